package transport

import (
	"time"

	"github.com/zktrails/zktrails/internal/sessions/domain"
)

// StartRequest is the HTTP request body for starting a mission.
type StartRequest struct {
	WalletAddress  string `json:"walletAddress"`
	Player2Address string `json:"player2Address,omitempty"`
}

// ToDomain converts StartRequest to domain.StartRequest.
func (r StartRequest) ToDomain(missionID string) domain.StartRequest {
	return domain.StartRequest{
		MissionID: missionID,
		Player1:   r.WalletAddress,
		Player2:   r.Player2Address,
	}
}

// StartResponse is the response for starting a mission.
type StartResponse struct {
	SessionID      uint32 `json:"sessionId"`
	GameHubStarted bool   `json:"gameHubStarted"`
}

// SessionResponse is an operator view of a session.
type SessionResponse struct {
	SessionID      uint32     `json:"sessionId"`
	MissionID      string     `json:"missionId"`
	Player1        string     `json:"player1"`
	Player2        string     `json:"player2"`
	State          string     `json:"state"`
	GameHubStarted bool       `json:"gameHubStarted"`
	GameHubEnded   bool       `json:"gameHubEnded"`
	StartedAt      time.Time  `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
}

func newSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		SessionID:      s.SessionID,
		MissionID:      s.MissionID,
		Player1:        s.Player1,
		Player2:        s.Player2,
		State:          string(s.State),
		GameHubStarted: s.GameHubStarted,
		GameHubEnded:   s.GameHubEnded,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
	}
}
