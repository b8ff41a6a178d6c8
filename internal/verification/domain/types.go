// Package domain contains mission verification: checking a player's evidence
// against a mission's verification method and, when it holds, closing the
// session and settling the reward.
package domain

import (
	"errors"
	"time"

	"github.com/zktrails/zktrails/internal/catalog"
)

// Common errors returned by the verification service.
var (
	ErrNotFound         = errors.New("mission not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrWrongMethod      = errors.New("mission does not use this verification method")
	ErrAlreadyCompleted = errors.New("mission already completed")
)

// MissionSource looks up catalog missions.
type MissionSource interface {
	Get(id string) (*catalog.Mission, error)
}

// Result is a verification verdict. A false verdict is a normal outcome,
// never an error, and never reveals zone bounds or answer keys.
type Result struct {
	Verified bool
	Reason   string
	Quiz     *QuizScore // set for quiz missions
}

// QuizScore is the outcome of scoring a quiz submission.
type QuizScore struct {
	Correct      int
	Total        int
	Passed       bool
	ScorePercent int
}

// Location is a player-reported position in degrees.
type Location struct {
	Lat        float64
	Lon        float64
	ReportedAt *time.Time
}

// Evidence is the proof a player submits for a mission. Exactly one field is
// expected to be set, matching the mission's verification method.
type Evidence struct {
	Answers  map[string]int
	Location *Location
	TxHash   string
}

// Attempt is one verification attempt against a mission.
type Attempt struct {
	Mission  *catalog.Mission
	Wallet   string
	Evidence Evidence
}

// CompleteRequest asks to verify and settle a mission.
type CompleteRequest struct {
	MissionID string
	Wallet    string
	SessionID uint32 // zero when the client has none
	Evidence  Evidence
}

// CompleteResult is returned by VerifyAndComplete. Settlement fields are
// zero when Verified is false.
type CompleteResult struct {
	Verified     bool
	Reason       string
	Quiz         *QuizScore
	TxHash       string
	OnChain      bool
	GameHubEnded bool
	Reward       int
	SessionID    uint32
}

// evidenceTag is the completion evidence recorded for a mission: the
// transaction hash for ledger missions, otherwise the kind of proof.
func evidenceTag(m *catalog.Mission, e Evidence) string {
	switch {
	case m.Method.IsLedger():
		return e.TxHash
	case m.Method == catalog.MethodGeofence:
		return "location"
	case m.Method == catalog.MethodQuiz:
		return "quiz"
	}
	return string(m.Method)
}
