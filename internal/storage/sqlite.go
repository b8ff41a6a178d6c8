package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Per-connection pragmas go in the DSN so every pooled connection gets them
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Mission sessions
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		session_id INTEGER NOT NULL,
		mission_id TEXT NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL,
		state TEXT NOT NULL,
		game_hub_started INTEGER NOT NULL DEFAULT 0,
		game_hub_ended INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		ended_at INTEGER
	);

	-- Completions
	CREATE TABLE IF NOT EXISTS completions (
		id TEXT PRIMARY KEY,
		mission_id TEXT NOT NULL,
		wallet TEXT NOT NULL,
		session_id INTEGER NOT NULL,
		reward INTEGER NOT NULL,
		reference TEXT NOT NULL,
		on_chain INTEGER NOT NULL DEFAULT 0,
		evidence TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	-- Players
	CREATE TABLE IF NOT EXISTS players (
		address TEXT PRIMARY KEY,
		score INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL,
		completed_missions TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Proofs
	CREATE TABLE IF NOT EXISTS proofs (
		id TEXT PRIMARY KEY,
		mission_id TEXT NOT NULL,
		wallet TEXT NOT NULL,
		proof BLOB NOT NULL,
		public_inputs BLOB,
		created_at INTEGER NOT NULL
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
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

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const sessionColumns = `id, session_id, mission_id, player1, player2, state, game_hub_started, game_hub_ended, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row rowScanner) (*Session, error) {
	var sess Session
	var sessionID int64
	var startedAt int64
	var endedAt sql.NullInt64
	err := row.Scan(&sess.ID, &sessionID, &sess.MissionID, &sess.Player1, &sess.Player2, &sess.State,
		&sess.GameHubStarted, &sess.GameHubEnded, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	sess.SessionID = uint32(sessionID)
	sess.StartedAt = fromMillis(startedAt)
	if endedAt.Valid {
		t := fromMillis(endedAt.Int64)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// CreateSession records a new session. ErrConflict means another open
// session already holds the session id.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *Session) error {
	ensureID(&sess.ID)
	var endedAt sql.NullInt64
	if sess.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: toMillis(*sess.EndedAt), Valid: true}
	}
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, sess.ID, int64(sess.SessionID), sess.MissionID, sess.Player1, sess.Player2,
		sess.State, sess.GameHubStarted, sess.GameHubEnded, toMillis(sess.StartedAt), endedAt)
	if isSQLiteUnique(err) {
		return ErrConflict
	}
	return err
}

// GetSession returns the open session with the given id, or the most recent one
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID uint32) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = ?
		ORDER BY (state = 'STARTED') DESC, started_at DESC LIMIT 1`
	sess, err := scanSQLiteSession(s.db.QueryRowContext(ctx, query, int64(sessionID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// ListSessions lists sessions, newest first
func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	w := newWhere(sqlitePlaceholder).eq("state", filter.State)
	query := `SELECT ` + sessionColumns + ` FROM sessions` + w.String() +
		` ORDER BY started_at DESC LIMIT ` + w.next(defaultLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// TransitionSession moves a session from one state to another. ErrConflict
// means the session was no longer in the expected state.
func (s *SQLiteStore) TransitionSession(ctx context.Context, id, from, to string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET state = ?, ended_at = ? WHERE id = ? AND state = ?",
		to, toMillis(at), id, from)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, id)
}

func (s *SQLiteStore) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// SetSessionGameHub records the game hub call outcomes
func (s *SQLiteStore) SetSessionGameHub(ctx context.Context, id string, started, ended bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET game_hub_started = ?, game_hub_ended = ? WHERE id = ?",
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
func (s *SQLiteStore) AbandonSessions(ctx context.Context, startedBefore, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET state = 'ABANDONED', ended_at = ? WHERE state = 'STARTED' AND started_at < ?",
		toMillis(at), toMillis(startedBefore))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CreateCompletion records a settled completion
func (s *SQLiteStore) CreateCompletion(ctx context.Context, c *Completion) error {
	ensureID(&c.ID)
	query := `
		INSERT INTO completions (id, mission_id, wallet, session_id, reward, reference, on_chain, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.MissionID, c.Wallet, int64(c.SessionID), c.Reward,
		c.Reference, c.OnChain, c.Evidence, toMillis(c.CreatedAt))
	return err
}

// ListCompletions lists completions, newest first
func (s *SQLiteStore) ListCompletions(ctx context.Context, filter CompletionFilter) ([]Completion, error) {
	w := completionWhere(filter, sqlitePlaceholder)
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
		var sessionID, createdAt int64
		if err := rows.Scan(&c.ID, &c.MissionID, &c.Wallet, &sessionID, &c.Reward, &c.Reference,
			&c.OnChain, &c.Evidence, &createdAt); err != nil {
			return nil, err
		}
		c.SessionID = uint32(sessionID)
		c.CreatedAt = fromMillis(createdAt)
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// CountCompletions counts completions matching the filter
func (s *SQLiteStore) CountCompletions(ctx context.Context, filter CompletionFilter) (int, error) {
	w := completionWhere(filter, sqlitePlaceholder)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM completions"+w.String(), w.args...).Scan(&n)
	return n, err
}

func scanSQLitePlayer(row rowScanner) (*Player, error) {
	var p Player
	var missions string
	var createdAt, updatedAt int64
	if err := row.Scan(&p.Address, &p.Score, &p.Tier, &missions, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ids, err := decodeMissions([]byte(missions))
	if err != nil {
		return nil, err
	}
	p.CompletedMissions = ids
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// GetPlayer retrieves a player by address
func (s *SQLiteStore) GetPlayer(ctx context.Context, address string) (*Player, error) {
	query := `SELECT address, score, tier, completed_missions, created_at, updated_at FROM players WHERE address = ?`
	p, err := scanSQLitePlayer(s.db.QueryRowContext(ctx, query, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// UpsertPlayer creates a player or replaces its progress
func (s *SQLiteStore) UpsertPlayer(ctx context.Context, p *Player) error {
	missions, err := encodeMissions(p.CompletedMissions)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO players (address, score, tier, completed_missions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			score = excluded.score,
			tier = excluded.tier,
			completed_missions = excluded.completed_missions,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, p.Address, p.Score, p.Tier, string(missions),
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	return err
}

// ListTopPlayers lists players by descending score
func (s *SQLiteStore) ListTopPlayers(ctx context.Context, limit int) ([]Player, error) {
	query := `SELECT address, score, tier, completed_missions, created_at, updated_at
		FROM players ORDER BY score DESC, address ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, defaultLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		p, err := scanSQLitePlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// CreateProof stores a generated proof
func (s *SQLiteStore) CreateProof(ctx context.Context, p *Proof) error {
	ensureID(&p.ID)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO proofs (id, mission_id, wallet, proof, public_inputs, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.MissionID, p.Wallet, p.Proof, p.PublicInputs, toMillis(p.CreatedAt))
	return err
}

// GetProof retrieves a proof by id
func (s *SQLiteStore) GetProof(ctx context.Context, id string) (*Proof, error) {
	var p Proof
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, mission_id, wallet, proof, public_inputs, created_at FROM proofs WHERE id = ?", id).Scan(
		&p.ID, &p.MissionID, &p.Wallet, &p.Proof, &p.PublicInputs, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// CreateAPIKey creates a new API key
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name, created_at) VALUES (?, ?, ?, datetime('now'))", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?", ak.ID)
	return &ak, nil
}

// ListAPIKeys lists all API keys
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullString
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.String
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ? AND revoked_at IS NULL", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
