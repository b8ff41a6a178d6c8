package stellar

import (
	"context"
	"strconv"

	"github.com/zktrails/zktrails/internal/chains"
)

// GameHub wraps the session-tracking game-hub contract.
type GameHub struct {
	invoker    chains.Invoker
	contractID string
}

// NewGameHub creates a GameHub client. An empty contract id makes every call
// a no-op reported as not attempted.
func NewGameHub(invoker chains.Invoker, contractID string) *GameHub {
	return &GameHub{invoker: invoker, contractID: contractID}
}

// StartGame calls start_game(session_id, player1, player2).
func (g *GameHub) StartGame(ctx context.Context, sessionID uint32, player1, player2 string) chains.CallResult {
	if g.contractID == "" {
		return chains.Skipped("game hub contract not configured")
	}
	return g.invoker.Invoke(ctx, chains.Invocation{
		ContractID: g.contractID,
		Function:   "start_game",
		Args: []chains.Arg{
			{Name: "session_id", Value: strconv.FormatUint(uint64(sessionID), 10)},
			{Name: "player1", Value: player1},
			{Name: "player2", Value: player2},
		},
	})
}

// EndGame calls end_game(session_id, player1_won).
func (g *GameHub) EndGame(ctx context.Context, sessionID uint32, player1Won bool) chains.CallResult {
	if g.contractID == "" {
		return chains.Skipped("game hub contract not configured")
	}
	return g.invoker.Invoke(ctx, chains.Invocation{
		ContractID: g.contractID,
		Function:   "end_game",
		Args: []chains.Arg{
			{Name: "session_id", Value: strconv.FormatUint(uint64(sessionID), 10)},
			{Name: "player1_won", Value: strconv.FormatBool(player1Won)},
		},
	})
}

// MissionManager wraps the reward-registering mission-manager contract.
type MissionManager struct {
	invoker    chains.Invoker
	contractID string
}

// NewMissionManager creates a MissionManager client.
func NewMissionManager(invoker chains.Invoker, contractID string) *MissionManager {
	return &MissionManager{invoker: invoker, contractID: contractID}
}

// CompleteMission calls complete_mission(player, mission_id, points).
func (m *MissionManager) CompleteMission(ctx context.Context, player, missionID string, points uint32) chains.CallResult {
	if m.contractID == "" {
		return chains.Skipped("mission manager contract not configured")
	}
	return m.invoker.Invoke(ctx, chains.Invocation{
		ContractID: m.contractID,
		Function:   "complete_mission",
		Args: []chains.Arg{
			{Name: "player", Value: player},
			{Name: "mission_id", Value: missionID},
			{Name: "points", Value: strconv.FormatUint(uint64(points), 10)},
		},
	})
}
