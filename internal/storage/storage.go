package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zktrails/zktrails/internal/config"
)

// SessionStore handles mission session records
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, sessionID uint32) (*Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	TransitionSession(ctx context.Context, id, from, to string, at time.Time) error
	SetSessionGameHub(ctx context.Context, id string, started, ended bool) error
	AbandonSessions(ctx context.Context, startedBefore, at time.Time) (int, error)
}

// CompletionStore handles settled mission completions
type CompletionStore interface {
	CreateCompletion(ctx context.Context, c *Completion) error
	ListCompletions(ctx context.Context, filter CompletionFilter) ([]Completion, error)
	CountCompletions(ctx context.Context, filter CompletionFilter) (int, error)
}

// PlayerStore handles player profiles
type PlayerStore interface {
	GetPlayer(ctx context.Context, address string) (*Player, error)
	UpsertPlayer(ctx context.Context, p *Player) error
	ListTopPlayers(ctx context.Context, limit int) ([]Player, error)
}

// ProofStore handles generated location proofs
type ProofStore interface {
	CreateProof(ctx context.Context, p *Proof) error
	GetProof(ctx context.Context, id string) (*Proof, error)
}

// APIKeyStore handles API key operations
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	SessionStore
	CompletionStore
	PlayerStore
	ProofStore
	APIKeyStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}

// Session is a mission attempt correlated with a game hub session
type Session struct {
	ID             string
	SessionID      uint32
	MissionID      string
	Player1        string
	Player2        string
	State          string
	GameHubStarted bool
	GameHubEnded   bool
	StartedAt      time.Time
	EndedAt        *time.Time
}

// Completion is a settled mission completion
type Completion struct {
	ID        string
	MissionID string
	Wallet    string
	SessionID uint32
	Reward    int
	Reference string // ledger tx hash or local fallback reference
	OnChain   bool
	Evidence  string
	CreatedAt time.Time
}

// Player is a player profile keyed by wallet address
type Player struct {
	Address           string
	Score             int
	Tier              string
	CompletedMissions []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Proof is a generated location proof
type Proof struct {
	ID           string
	MissionID    string
	Wallet       string
	Proof        []byte
	PublicInputs []byte
	CreatedAt    time.Time
}

// APIKey represents an API key
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// SessionFilter contains filter options for listing sessions
type SessionFilter struct {
	State string
	Limit int
}

// CompletionFilter contains filter options for listing completions.
// Empty fields match everything.
type CompletionFilter struct {
	Wallet    string
	MissionID string
	Evidence  string
	Limit     int
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
