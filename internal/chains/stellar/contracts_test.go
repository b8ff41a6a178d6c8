package stellar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktrails/zktrails/internal/chains"
)

type recordingInvoker struct {
	calls  []chains.Invocation
	result chains.CallResult
}

func (r *recordingInvoker) Invoke(ctx context.Context, inv chains.Invocation) chains.CallResult {
	r.calls = append(r.calls, inv)
	return r.result
}

func TestGameHub(t *testing.T) {
	inv := &recordingInvoker{result: chains.Submitted(chains.OutcomeDuplicate, "h")}
	hub := NewGameHub(inv, "CHUB")

	start := hub.StartGame(context.Background(), 123456, testPlayer, testAccount)
	assert.True(t, start.Succeeded)

	end := hub.EndGame(context.Background(), 123456, true)
	assert.True(t, end.Succeeded)

	require.Len(t, inv.calls, 2)
	assert.Equal(t, chains.Invocation{
		ContractID: "CHUB",
		Function:   "start_game",
		Args: []chains.Arg{
			{Name: "session_id", Value: "123456"},
			{Name: "player1", Value: testPlayer},
			{Name: "player2", Value: testAccount},
		},
	}, inv.calls[0])
	assert.Equal(t, "end_game", inv.calls[1].Function)
	assert.Equal(t, []chains.Arg{
		{Name: "session_id", Value: "123456"},
		{Name: "player1_won", Value: "true"},
	}, inv.calls[1].Args)
}

func TestGameHub_NotConfigured(t *testing.T) {
	inv := &recordingInvoker{}
	hub := NewGameHub(inv, "")

	result := hub.StartGame(context.Background(), 1, testPlayer, testPlayer)
	assert.False(t, result.Attempted)
	assert.Empty(t, inv.calls)
}

func TestMissionManager(t *testing.T) {
	inv := &recordingInvoker{result: chains.Submitted(chains.OutcomeSuccess, "h")}
	mm := NewMissionManager(inv, "CMM")

	result := mm.CompleteMission(context.Background(), testPlayer, "m0", 100)
	assert.True(t, result.Succeeded)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, "complete_mission", inv.calls[0].Function)
	assert.Equal(t, []chains.Arg{
		{Name: "player", Value: testPlayer},
		{Name: "mission_id", Value: "m0"},
		{Name: "points", Value: "100"},
	}, inv.calls[0].Args)

	empty := NewMissionManager(inv, "")
	assert.False(t, empty.CompleteMission(context.Background(), testPlayer, "m0", 1).Attempted)
}
