// Package domain contains reward settlement: registering a verified mission
// completion on the mission-manager contract and recording it locally.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/internal/observability/metrics"
	"github.com/zktrails/zktrails/internal/storage"
)

// localRefPrefix marks references that were not confirmed on the ledger.
const localRefPrefix = "local-"

// MissionManager registers completions on the ledger.
type MissionManager interface {
	CompleteMission(ctx context.Context, player, missionID string, points uint32) chains.CallResult
}

// Store is the subset of storage used by settlement.
type Store interface {
	CreateCompletion(ctx context.Context, c *storage.Completion) error
	ListCompletions(ctx context.Context, filter storage.CompletionFilter) ([]storage.Completion, error)
	CountCompletions(ctx context.Context, filter storage.CompletionFilter) (int, error)
}

// PlayerCreditor adds points to a player profile.
type PlayerCreditor interface {
	Credit(ctx context.Context, address, missionID string, points int) error
}

// CreditFunc adapts a function to PlayerCreditor.
type CreditFunc func(ctx context.Context, address, missionID string, points int) error

func (f CreditFunc) Credit(ctx context.Context, address, missionID string, points int) error {
	return f(ctx, address, missionID, points)
}

// SettleRequest describes a verified completion.
type SettleRequest struct {
	MissionID string
	Wallet    string
	SessionID uint32
	Reward    int    // points registered on-chain and credited to the player
	Evidence  string // tx hash, "location" or "quiz"
}

// Receipt is the outcome of a settlement. Reference is never empty.
type Receipt struct {
	Reference string
	OnChain   bool
}

// Completion is a recorded settlement.
type Completion struct {
	ID        string
	MissionID string
	Wallet    string
	SessionID uint32
	Reward    int
	Reference string
	OnChain   bool
	Evidence  string
	CreatedAt time.Time
}

// Filter narrows completion lookups. Empty fields match everything.
type Filter struct {
	Wallet    string
	MissionID string
	Evidence  string
	Limit     int
}

type service struct {
	manager MissionManager
	store   Store
	players PlayerCreditor
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewService creates a new settlement service. players may be nil.
func NewService(manager MissionManager, store Store, players PlayerCreditor, clock clockwork.Clock, logger *slog.Logger) *service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &service{
		manager: manager,
		store:   store,
		players: players,
		clock:   clock,
		logger:  logger,
	}
}

// Record registers a completion on the mission-manager contract. A result
// with Succeeded false means the ledger did not accept it.
func (s *service) Record(ctx context.Context, wallet, missionID string, reward int) chains.CallResult {
	if reward < 0 {
		return chains.Skipped("negative reward")
	}
	if int64(reward) > catalog.MaxReward {
		return chains.Skipped(fmt.Sprintf("reward %d exceeds %d", reward, int64(catalog.MaxReward)))
	}
	return s.manager.CompleteMission(ctx, wallet, missionID, uint32(reward))
}

// Settle records a verified completion. The ledger call and bookkeeping are
// best effort: a failed ledger call yields a local reference, and storage or
// profile errors are logged without failing the settlement.
func (s *service) Settle(ctx context.Context, req SettleRequest) Receipt {
	res := s.Record(ctx, req.Wallet, req.MissionID, req.Reward)

	receipt := Receipt{OnChain: res.Succeeded && res.TxHash != ""}
	if receipt.OnChain {
		receipt.Reference = res.TxHash
	} else {
		receipt.Reference = localRefPrefix + strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
		s.logger.Warn("mission completion not registered on ledger",
			"mission_id", req.MissionID,
			"wallet", req.Wallet,
			"attempted", res.Attempted,
			"status", res.Status,
			"detail", res.Detail,
			"reference", receipt.Reference,
		)
	}
	metrics.Settlement(receipt.OnChain)

	// The completion is recorded even when the client has gone away.
	ctx = context.WithoutCancel(ctx)

	c := &storage.Completion{
		MissionID: req.MissionID,
		Wallet:    req.Wallet,
		SessionID: req.SessionID,
		Reward:    req.Reward,
		Reference: receipt.Reference,
		OnChain:   receipt.OnChain,
		Evidence:  req.Evidence,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateCompletion(ctx, c); err != nil {
		s.logger.Error("recording completion", "mission_id", req.MissionID, "wallet", req.Wallet, "error", err)
	}

	if s.players != nil {
		if err := s.players.Credit(ctx, req.Wallet, req.MissionID, req.Reward); err != nil {
			s.logger.Warn("crediting player", "wallet", req.Wallet, "error", err)
		}
	}

	return receipt
}

// List returns recorded completions, newest first.
func (s *service) List(ctx context.Context, f Filter) ([]Completion, error) {
	rows, err := s.store.ListCompletions(ctx, toStorageFilter(f))
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	out := make([]Completion, len(rows))
	for i, r := range rows {
		out[i] = Completion{
			ID:        r.ID,
			MissionID: r.MissionID,
			Wallet:    r.Wallet,
			SessionID: r.SessionID,
			Reward:    r.Reward,
			Reference: r.Reference,
			OnChain:   r.OnChain,
			Evidence:  r.Evidence,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

// Count returns the number of recorded completions matching f.
func (s *service) Count(ctx context.Context, f Filter) (int, error) {
	n, err := s.store.CountCompletions(ctx, toStorageFilter(f))
	if err != nil {
		return 0, fmt.Errorf("counting completions: %w", err)
	}
	return n, nil
}

func toStorageFilter(f Filter) storage.CompletionFilter {
	return storage.CompletionFilter{
		Wallet:    f.Wallet,
		MissionID: f.MissionID,
		Evidence:  f.Evidence,
		Limit:     f.Limit,
	}
}
