package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	VerifyAndComplete(ctx context.Context, req CompleteRequest) (*CompleteResult, error)
	VerifyAnswers(ctx context.Context, missionID string, answers map[string]int) (*Result, error)
	VerifyLocation(ctx context.Context, missionID string, loc Location) (*Result, error)
	VerifyTransaction(ctx context.Context, missionID, txHash, wallet string) (*Result, error)
}

// LoggingMiddleware returns a service middleware that logs all operations.
// Coordinates and answers are never logged.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) VerifyAndComplete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	start := time.Now()
	res, err := m.next.VerifyAndComplete(ctx, req)
	attrs := []any{
		"mission_id", req.MissionID,
		"wallet", req.Wallet,
		"session_id", req.SessionID,
	}
	if res != nil {
		attrs = append(attrs,
			"verified", res.Verified,
			"on_chain", res.OnChain,
			"game_hub_ended", res.GameHubEnded,
			"reference", res.TxHash,
		)
	}
	attrs = append(attrs, "duration", time.Since(start), "error", err)
	m.logger.Info("VerifyAndComplete", attrs...)
	return res, err
}

func (m *loggingMiddleware) VerifyAnswers(ctx context.Context, missionID string, answers map[string]int) (*Result, error) {
	start := time.Now()
	res, err := m.next.VerifyAnswers(ctx, missionID, answers)
	m.logger.Debug("VerifyAnswers",
		"mission_id", missionID,
		"answers", len(answers),
		"verified", res != nil && res.Verified,
		"duration", time.Since(start),
		"error", err,
	)
	return res, err
}

func (m *loggingMiddleware) VerifyLocation(ctx context.Context, missionID string, loc Location) (*Result, error) {
	start := time.Now()
	res, err := m.next.VerifyLocation(ctx, missionID, loc)
	m.logger.Debug("VerifyLocation",
		"mission_id", missionID,
		"verified", res != nil && res.Verified,
		"duration", time.Since(start),
		"error", err,
	)
	return res, err
}

func (m *loggingMiddleware) VerifyTransaction(ctx context.Context, missionID, txHash, wallet string) (*Result, error) {
	start := time.Now()
	res, err := m.next.VerifyTransaction(ctx, missionID, txHash, wallet)
	m.logger.Debug("VerifyTransaction",
		"mission_id", missionID,
		"tx_hash", txHash,
		"wallet", wallet,
		"verified", res != nil && res.Verified,
		"duration", time.Since(start),
		"error", err,
	)
	return res, err
}
