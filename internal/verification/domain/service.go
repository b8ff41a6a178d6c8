package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/observability/metrics"
	sessions "github.com/zktrails/zktrails/internal/sessions/domain"
	settlement "github.com/zktrails/zktrails/internal/settlement/domain"
	"github.com/zktrails/zktrails/internal/validation"
)

// SessionEnder closes the game session of a completed mission.
type SessionEnder interface {
	End(ctx context.Context, sessionID uint32, missionID, player1 string, won bool) sessions.EndResult
}

// Settler records a verified completion.
type Settler interface {
	Settle(ctx context.Context, req settlement.SettleRequest) settlement.Receipt
	Count(ctx context.Context, f settlement.Filter) (int, error)
}

// Config configures the verification service.
type Config struct {
	// SingleCompletion rejects a wallet's repeat completion of a mission and
	// the reuse of an already settled transaction hash.
	SingleCompletion bool
}

type service struct {
	missions MissionSource
	registry *Registry
	quiz     *QuizScorer
	geofence *GeofenceVerifier
	ledger   *LedgerVerifier
	sessions SessionEnder
	settler  Settler
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a new verification service.
func NewService(
	missions MissionSource,
	quiz *QuizScorer,
	geofence *GeofenceVerifier,
	ledger *LedgerVerifier,
	sessions SessionEnder,
	settler Settler,
	cfg Config,
	logger *slog.Logger,
) *service {
	return &service{
		missions: missions,
		registry: NewDefaultRegistry(quiz, geofence, ledger),
		quiz:     quiz,
		geofence: geofence,
		ledger:   ledger,
		sessions: sessions,
		settler:  settler,
		cfg:      cfg,
		logger:   logger,
	}
}

// VerifyAndComplete verifies the evidence for a mission and, only when it
// holds, ends the session and settles the reward. Session and settlement
// failures degrade the result instead of failing the request.
func (s *service) VerifyAndComplete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	m, err := s.mission(req.MissionID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateAccountID(req.Wallet); err != nil {
		return nil, fmt.Errorf("%w: walletAddress: %v", ErrInvalidInput, err)
	}
	if m.Method.IsLedger() && req.Evidence.TxHash != "" {
		if err := validation.ValidateTxHash(req.Evidence.TxHash); err != nil {
			return nil, fmt.Errorf("%w: txHash: %v", ErrInvalidInput, err)
		}
	}
	if err := s.checkNotCompleted(ctx, m, req); err != nil {
		return nil, err
	}

	res, err := s.registry.Verify(ctx, Attempt{Mission: m, Wallet: req.Wallet, Evidence: req.Evidence})
	if err != nil {
		return nil, err
	}
	metrics.VerificationResult(string(m.Method), res.Verified)
	if !res.Verified {
		return &CompleteResult{Reason: res.Reason, Quiz: res.Quiz}, nil
	}

	end := s.sessions.End(ctx, req.SessionID, m.ID, req.Wallet, true)
	receipt := s.settler.Settle(ctx, settlement.SettleRequest{
		MissionID: m.ID,
		Wallet:    req.Wallet,
		SessionID: end.SessionID,
		Reward:    m.Reward,
		Evidence:  evidenceTag(m, req.Evidence),
	})

	return &CompleteResult{
		Verified:     true,
		Reason:       res.Reason,
		Quiz:         res.Quiz,
		TxHash:       receipt.Reference,
		OnChain:      receipt.OnChain,
		GameHubEnded: end.GameHubEnded,
		Reward:       m.Reward,
		SessionID:    end.SessionID,
	}, nil
}

// checkNotCompleted enforces the single-completion rule when enabled. It is
// a read before settlement, so two concurrent completions may both pass.
func (s *service) checkNotCompleted(ctx context.Context, m *catalog.Mission, req CompleteRequest) error {
	if !s.cfg.SingleCompletion {
		return nil
	}
	n, err := s.settler.Count(ctx, settlement.Filter{Wallet: req.Wallet, MissionID: m.ID})
	if err != nil {
		return fmt.Errorf("checking completions: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s by %s", ErrAlreadyCompleted, m.ID, req.Wallet)
	}
	if m.Method.IsLedger() && req.Evidence.TxHash != "" {
		n, err := s.settler.Count(ctx, settlement.Filter{Evidence: req.Evidence.TxHash})
		if err != nil {
			return fmt.Errorf("checking completions: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: transaction already used", ErrAlreadyCompleted)
		}
	}
	return nil
}

// VerifyAnswers scores a quiz submission without settling it.
func (s *service) VerifyAnswers(ctx context.Context, missionID string, answers map[string]int) (*Result, error) {
	score, err := s.quiz.Score(missionID, answers)
	if err != nil {
		return nil, err
	}
	metrics.VerificationResult(string(catalog.MethodQuiz), score.Passed)
	res := quizResult(score)
	return &res, nil
}

// VerifyLocation checks a location report without settling it. Missions
// that are not geofenced fail closed.
func (s *service) VerifyLocation(ctx context.Context, missionID string, loc Location) (*Result, error) {
	m, err := s.mission(missionID)
	if err != nil {
		return nil, err
	}
	res := s.geofence.VerifyAt(m, loc)
	metrics.VerificationResult(string(m.Method), res.Verified)
	return &res, nil
}

// VerifyTransaction checks a transaction without settling it.
func (s *service) VerifyTransaction(ctx context.Context, missionID, txHash, wallet string) (*Result, error) {
	m, err := s.mission(missionID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateTxHash(txHash); err != nil {
		return nil, fmt.Errorf("%w: txHash: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateAccountID(wallet); err != nil {
		return nil, fmt.Errorf("%w: walletAddress: %v", ErrInvalidInput, err)
	}
	res := s.ledger.Verify(ctx, m, txHash, wallet)
	metrics.VerificationResult(string(m.Method), res.Verified)
	return &res, nil
}

func (s *service) mission(id string) (*catalog.Mission, error) {
	m, err := s.missions.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting mission: %w", err)
	}
	return m, nil
}
