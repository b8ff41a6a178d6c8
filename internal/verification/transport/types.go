package transport

import (
	"time"

	"github.com/zktrails/zktrails/internal/verification/domain"
)

// VerifyAnswersRequest is the HTTP request body for scoring a quiz.
type VerifyAnswersRequest struct {
	Answers map[string]int `json:"answers"`
}

// VerifyLocationRequest is the HTTP request body for checking a location.
type VerifyLocationRequest struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Timestamp *int64   `json:"timestamp,omitempty"` // unix seconds
}

// ToDomain converts VerifyLocationRequest to domain.Location.
func (r VerifyLocationRequest) ToDomain() domain.Location {
	loc := domain.Location{Lat: *r.Lat, Lon: *r.Lon}
	if r.Timestamp != nil {
		t := time.Unix(*r.Timestamp, 0)
		loc.ReportedAt = &t
	}
	return loc
}

// VerifyTransactionRequest is the HTTP request body for checking a transaction.
type VerifyTransactionRequest struct {
	TxHash        string `json:"txHash"`
	WalletAddress string `json:"walletAddress"`
}

// CompleteMissionRequest is the HTTP request body for completing a mission.
type CompleteMissionRequest struct {
	MissionID     string        `json:"missionId"`
	WalletAddress string        `json:"walletAddress"`
	SessionID     uint32        `json:"sessionId,omitempty"`
	Evidence      EvidenceInput `json:"evidence"`
}

// EvidenceInput carries the proof for one verification method.
type EvidenceInput struct {
	Answers   map[string]int `json:"answers,omitempty"`
	Lat       *float64       `json:"lat,omitempty"`
	Lon       *float64       `json:"lon,omitempty"`
	Timestamp *int64         `json:"timestamp,omitempty"`
	TxHash    string         `json:"txHash,omitempty"`
}

// ToDomain converts CompleteMissionRequest to domain.CompleteRequest.
func (r CompleteMissionRequest) ToDomain() domain.CompleteRequest {
	ev := domain.Evidence{Answers: r.Evidence.Answers, TxHash: r.Evidence.TxHash}
	if r.Evidence.Lat != nil && r.Evidence.Lon != nil {
		loc := VerifyLocationRequest{Lat: r.Evidence.Lat, Lon: r.Evidence.Lon, Timestamp: r.Evidence.Timestamp}.ToDomain()
		ev.Location = &loc
	}
	return domain.CompleteRequest{
		MissionID: r.MissionID,
		Wallet:    r.WalletAddress,
		SessionID: r.SessionID,
		Evidence:  ev,
	}
}

// VerdictResponse is the response for a standalone verification.
type VerdictResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

// QuizResponse is the response for scoring a quiz.
type QuizResponse struct {
	Correct      int    `json:"correct"`
	Total        int    `json:"total"`
	Passed       bool   `json:"passed"`
	ScorePercent int    `json:"scorePercent"`
	Verified     bool   `json:"verified"`
	Reason       string `json:"reason"`
}

func newQuizResponse(r *domain.Result) QuizResponse {
	resp := QuizResponse{Verified: r.Verified, Reason: r.Reason}
	if r.Quiz != nil {
		resp.Correct = r.Quiz.Correct
		resp.Total = r.Quiz.Total
		resp.Passed = r.Quiz.Passed
		resp.ScorePercent = r.Quiz.ScorePercent
	}
	return resp
}

// CompleteMissionResponse is the response for completing a mission.
type CompleteMissionResponse struct {
	Verified     bool          `json:"verified"`
	Reason       string        `json:"reason"`
	TxHash       string        `json:"txHash,omitempty"`
	OnChain      bool          `json:"onChain"`
	GameHubEnded bool          `json:"gameHubEnded"`
	Reward       int           `json:"reward"`
	SessionID    uint32        `json:"sessionId,omitempty"`
	Quiz         *QuizResponse `json:"quiz,omitempty"`
}

func newCompleteMissionResponse(r *domain.CompleteResult) CompleteMissionResponse {
	resp := CompleteMissionResponse{
		Verified:     r.Verified,
		Reason:       r.Reason,
		TxHash:       r.TxHash,
		OnChain:      r.OnChain,
		GameHubEnded: r.GameHubEnded,
		Reward:       r.Reward,
		SessionID:    r.SessionID,
	}
	if r.Quiz != nil {
		q := newQuizResponse(&domain.Result{Verified: r.Verified, Reason: r.Reason, Quiz: r.Quiz})
		resp.Quiz = &q
	}
	return resp
}
