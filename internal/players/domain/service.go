// Package domain contains player profiles: score, tier and completed missions.
package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zktrails/zktrails/internal/storage"
	"github.com/zktrails/zktrails/internal/validation"
)

// Common errors returned by the player service.
var (
	ErrNotFound       = errors.New("player not found")
	ErrInvalidAddress = errors.New("invalid address")
)

// Tier is a player rank derived from score.
type Tier string

const (
	TierRookie     Tier = "ROOKIE"
	TierAdventurer Tier = "ADVENTURER"
	TierExplorer   Tier = "EXPLORER"
	TierLegend     Tier = "LEGEND"
)

// Score thresholds at which a player reaches the next tier.
const (
	adventurerScore = 500
	explorerScore   = 2000
	legendScore     = 5000
)

// TierFor returns the tier for a score.
func TierFor(score int) Tier {
	switch {
	case score >= legendScore:
		return TierLegend
	case score >= explorerScore:
		return TierExplorer
	case score >= adventurerScore:
		return TierAdventurer
	default:
		return TierRookie
	}
}

// Player is a player profile keyed by wallet address.
type Player struct {
	Address           string
	Score             int
	Tier              Tier
	CompletedMissions []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Store is the subset of storage used by the player service.
type Store interface {
	GetPlayer(ctx context.Context, address string) (*storage.Player, error)
	UpsertPlayer(ctx context.Context, p *storage.Player) error
	ListTopPlayers(ctx context.Context, limit int) ([]storage.Player, error)
}

type service struct {
	store Store
	clock clockwork.Clock

	// mu serializes read-modify-write updates of a profile
	mu sync.Mutex
}

// NewService creates a new player service.
func NewService(store Store, clock clockwork.Clock) *service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &service{store: store, clock: clock}
}

// Get returns a player profile.
func (s *service) Get(ctx context.Context, address string) (*Player, error) {
	row, err := s.store.GetPlayer(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	p := fromStorage(row)
	return &p, nil
}

// Register creates a profile for address, or returns the existing one.
func (s *service) Register(ctx context.Context, address string) (*Player, error) {
	if err := validation.ValidateAccountID(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, err := s.Get(ctx, address); err == nil {
		return p, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	row := &storage.Player{
		Address:           address,
		Tier:              string(TierRookie),
		CompletedMissions: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.UpsertPlayer(ctx, row); err != nil {
		return nil, fmt.Errorf("registering player: %w", err)
	}
	p := fromStorage(row)
	return &p, nil
}

// Credit adds points for a completed mission, creating the profile when
// needed. A mission is listed once however often it is completed.
func (s *service) Credit(ctx context.Context, address, missionID string, points int) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	row, err := s.store.GetPlayer(ctx, address)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		row = &storage.Player{Address: address, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("getting player: %w", err)
	}

	row.Score += points
	row.Tier = string(TierFor(row.Score))
	if !slices.Contains(row.CompletedMissions, missionID) {
		row.CompletedMissions = append(row.CompletedMissions, missionID)
	}
	row.UpdatedAt = now

	if err := s.store.UpsertPlayer(ctx, row); err != nil {
		return nil, fmt.Errorf("crediting player: %w", err)
	}
	p := fromStorage(row)
	return &p, nil
}

// Leaderboard returns the top players by score.
func (s *service) Leaderboard(ctx context.Context, limit int) ([]Player, error) {
	rows, err := s.store.ListTopPlayers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	out := make([]Player, len(rows))
	for i := range rows {
		out[i] = fromStorage(&rows[i])
	}
	return out, nil
}

func fromStorage(p *storage.Player) Player {
	missions := p.CompletedMissions
	if missions == nil {
		missions = []string{}
	}
	return Player{
		Address:           p.Address,
		Score:             p.Score,
		Tier:              Tier(p.Tier),
		CompletedMissions: missions,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
