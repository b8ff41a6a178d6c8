package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Mission sessions
	CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id BIGINT NOT NULL,
		mission_id TEXT NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL,
		state TEXT NOT NULL,
		game_hub_started BOOLEAN NOT NULL DEFAULT FALSE,
		game_hub_ended BOOLEAN NOT NULL DEFAULT FALSE,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ
	);

	-- Completions
	CREATE TABLE IF NOT EXISTS completions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		mission_id TEXT NOT NULL,
		wallet TEXT NOT NULL,
		session_id BIGINT NOT NULL,
		reward INTEGER NOT NULL,
		reference TEXT NOT NULL,
		on_chain BOOLEAN NOT NULL DEFAULT FALSE,
		evidence TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Players
	CREATE TABLE IF NOT EXISTS players (
		address TEXT PRIMARY KEY,
		score INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL,
		completed_missions JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Proofs
	CREATE TABLE IF NOT EXISTS proofs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		mission_id TEXT NOT NULL,
		wallet TEXT NOT NULL,
		proof BYTEA NOT NULL,
		public_inputs BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
	);

	-- Indexes
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open ON sessions(session_id) WHERE state = 'STARTED';
	CREATE INDEX IF NOT EXISTS idx_sessions_lookup ON sessions(session_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state, started_at);
	CREATE INDEX IF NOT EXISTS idx_completions_wallet ON completions(wallet, mission_id);
	CREATE INDEX IF NOT EXISTS idx_completions_evidence ON completions(evidence);
	CREATE INDEX IF NOT EXISTS idx_players_score ON players(score DESC);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

func isPostgresUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanPostgresSession(row rowScanner) (*Session, error) {
	var sess Session
	var sessionID int64
	var endedAt sql.NullTime
	err := row.Scan(&sess.ID, &sessionID, &sess.MissionID, &sess.Player1, &sess.Player2, &sess.State,
		&sess.GameHubStarted, &sess.GameHubEnded, &sess.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	sess.SessionID = uint32(sessionID)
	sess.StartedAt = sess.StartedAt.UTC()
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		sess.EndedAt = &t
	}
	return &sess, nil
}

// CreateSession records a new session. ErrConflict means another open
// session already holds the session id.
func (s *PostgresStore) CreateSession(ctx context.Context, sess *Session) error {
	ensureID(&sess.ID)
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query, sess.ID, int64(sess.SessionID), sess.MissionID, sess.Player1, sess.Player2,
		sess.State, sess.GameHubStarted, sess.GameHubEnded, sess.StartedAt, sess.EndedAt)
	if isPostgresUnique(err) {
		return ErrConflict
	}
	return err
}

// GetSession returns the open session with the given id, or the most recent one
func (s *PostgresStore) GetSession(ctx context.Context, sessionID uint32) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1
		ORDER BY (state = 'STARTED') DESC, started_at DESC LIMIT 1`
	sess, err := scanPostgresSession(s.db.QueryRowContext(ctx, query, int64(sessionID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// ListSessions lists sessions, newest first
func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	w := newWhere(postgresPlaceholder).eq("state", filter.State)
	query := `SELECT ` + sessionColumns + ` FROM sessions` + w.String() +
		` ORDER BY started_at DESC LIMIT ` + w.next(defaultLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanPostgresSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// TransitionSession moves a session from one state to another. ErrConflict
// means the session was no longer in the expected state.
func (s *PostgresStore) TransitionSession(ctx context.Context, id, from, to string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET state = $1, ended_at = $2 WHERE id = $3 AND state = $4",
		to, at, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = $1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// SetSessionGameHub records the game hub call outcomes
func (s *PostgresStore) SetSessionGameHub(ctx context.Context, id string, started, ended bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET game_hub_started = $1, game_hub_ended = $2 WHERE id = $3",
		started, ended, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AbandonSessions marks open sessions started before the cutoff as abandoned
func (s *PostgresStore) AbandonSessions(ctx context.Context, startedBefore, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET state = 'ABANDONED', ended_at = $1 WHERE state = 'STARTED' AND started_at < $2",
		at, startedBefore)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CreateCompletion records a settled completion
func (s *PostgresStore) CreateCompletion(ctx context.Context, c *Completion) error {
	ensureID(&c.ID)
	query := `
		INSERT INTO completions (id, mission_id, wallet, session_id, reward, reference, on_chain, evidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.MissionID, c.Wallet, int64(c.SessionID), c.Reward,
		c.Reference, c.OnChain, c.Evidence, c.CreatedAt)
	return err
}

// ListCompletions lists completions, newest first
func (s *PostgresStore) ListCompletions(ctx context.Context, filter CompletionFilter) ([]Completion, error) {
	w := completionWhere(filter, postgresPlaceholder)
	query := `SELECT id, mission_id, wallet, session_id, reward, reference, on_chain, evidence, created_at
		FROM completions` + w.String() + ` ORDER BY created_at DESC LIMIT ` + w.next(defaultLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []Completion{}
	for rows.Next() {
		var c Completion
		var sessionID int64
		if err := rows.Scan(&c.ID, &c.MissionID, &c.Wallet, &sessionID, &c.Reward, &c.Reference,
			&c.OnChain, &c.Evidence, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.SessionID = uint32(sessionID)
		c.CreatedAt = c.CreatedAt.UTC()
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// CountCompletions counts completions matching the filter
func (s *PostgresStore) CountCompletions(ctx context.Context, filter CompletionFilter) (int, error) {
	w := completionWhere(filter, postgresPlaceholder)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM completions"+w.String(), w.args...).Scan(&n)
	return n, err
}

func scanPostgresPlayer(row rowScanner) (*Player, error) {
	var p Player
	var missions []byte
	if err := row.Scan(&p.Address, &p.Score, &p.Tier, &missions, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	ids, err := decodeMissions(missions)
	if err != nil {
		return nil, err
	}
	p.CompletedMissions = ids
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// GetPlayer retrieves a player by address
func (s *PostgresStore) GetPlayer(ctx context.Context, address string) (*Player, error) {
	query := `SELECT address, score, tier, completed_missions, created_at, updated_at FROM players WHERE address = $1`
	p, err := scanPostgresPlayer(s.db.QueryRowContext(ctx, query, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// UpsertPlayer creates a player or replaces its progress
func (s *PostgresStore) UpsertPlayer(ctx context.Context, p *Player) error {
	missions, err := encodeMissions(p.CompletedMissions)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO players (address, score, tier, completed_missions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			score = EXCLUDED.score,
			tier = EXCLUDED.tier,
			completed_missions = EXCLUDED.completed_missions,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, p.Address, p.Score, p.Tier, string(missions), p.CreatedAt, p.UpdatedAt)
	return err
}

// ListTopPlayers lists players by descending score
func (s *PostgresStore) ListTopPlayers(ctx context.Context, limit int) ([]Player, error) {
	query := `SELECT address, score, tier, completed_missions, created_at, updated_at
		FROM players ORDER BY score DESC, address ASC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, defaultLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		p, err := scanPostgresPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// CreateProof stores a generated proof
func (s *PostgresStore) CreateProof(ctx context.Context, p *Proof) error {
	ensureID(&p.ID)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO proofs (id, mission_id, wallet, proof, public_inputs, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		p.ID, p.MissionID, p.Wallet, p.Proof, p.PublicInputs, p.CreatedAt)
	return err
}

// GetProof retrieves a proof by id
func (s *PostgresStore) GetProof(ctx context.Context, id string) (*Proof, error) {
	var p Proof
	err := s.db.QueryRowContext(ctx,
		"SELECT id, mission_id, wallet, proof, public_inputs, created_at FROM proofs WHERE id = $1", id).Scan(
		&p.ID, &p.MissionID, &p.Wallet, &p.Proof, &p.PublicInputs, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// CreateAPIKey creates a new API key
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name) VALUES ($1, $2, $3)", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ak.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = NOW() WHERE id = $1", ak.ID)
	return &ak, nil
}

// ListAPIKeys lists all API keys
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var createdAt time.Time
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &createdAt, &lastUsed); err != nil {
			return nil, err
		}
		k.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.Time.Format("2006-01-02 15:04:05")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
