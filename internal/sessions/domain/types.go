// Package domain contains the mission session lifecycle: opening a game hub
// session when a mission starts and closing it when the mission completes.
package domain

import (
	"errors"
	"time"
)

// Common errors returned by the session service.
var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSessionIDTaken    = errors.New("session id held by an open session")
)

// State is a session lifecycle state.
type State string

const (
	StateNone      State = "NONE"
	StateStarted   State = "STARTED"
	StateEnded     State = "ENDED"
	StateAbandoned State = "ABANDONED"
)

// sessionIDSpace bounds derived session ids to wall-clock seconds mod 10^6.
const sessionIDSpace = 1_000_000

// Session is one mission attempt.
type Session struct {
	ID             string
	SessionID      uint32
	MissionID      string
	Player1        string
	Player2        string
	State          State
	GameHubStarted bool
	GameHubEnded   bool
	StartedAt      time.Time
	EndedAt        *time.Time
}

// StartRequest opens a session for a mission.
type StartRequest struct {
	MissionID string
	Player1   string
	Player2   string // optional second participant
}

// StartResult is returned when a session opens.
type StartResult struct {
	SessionID      uint32
	GameHubStarted bool
	Player2        string
}

// EndResult reports how a session was closed. It is never an error:
// game progress does not depend on the game hub.
type EndResult struct {
	SessionID    uint32
	GameHubEnded bool
	Synthesized  bool // no usable session was supplied, a fresh id was used
	AlreadyEnded bool
}

// DeriveSessionID maps a wall-clock instant to a session id.
func DeriveSessionID(t time.Time) uint32 {
	s := t.Unix() % sessionIDSpace
	if s < 0 {
		s += sessionIDSpace
	}
	return uint32(s)
}

// nextSessionID returns the id tried after id. Zero is reserved for
// "no session" and is never produced.
func nextSessionID(id uint32) uint32 {
	return id%(sessionIDSpace-1) + 1
}
