package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/internal/observability/metrics"
	"github.com/zktrails/zktrails/internal/validation"
)

// maxIDAttempts bounds the search for a free session id.
const maxIDAttempts = 64

// GameHub is the external contract that tracks game sessions.
type GameHub interface {
	StartGame(ctx context.Context, sessionID uint32, player1, player2 string) chains.CallResult
	EndGame(ctx context.Context, sessionID uint32, player1Won bool) chains.CallResult
}

// MissionSource looks up catalog missions.
type MissionSource interface {
	Get(id string) (*catalog.Mission, error)
}

// Config configures the session service.
type Config struct {
	// Player2Placeholder is used when a start request names no second
	// participant. When empty, player1 plays both seats.
	Player2Placeholder string
	// TTL is how long a session may stay open before Abandon closes it.
	TTL time.Duration
}

type service struct {
	store    Store
	hub      GameHub
	missions MissionSource
	clock    clockwork.Clock
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a new session service.
func NewService(store Store, hub GameHub, missions MissionSource, clock clockwork.Clock, cfg Config, logger *slog.Logger) *service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &service{
		store:    store,
		hub:      hub,
		missions: missions,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start opens a session and asks the game hub to start a game. The hub call
// is best effort: its outcome is reported, never returned as an error.
func (s *service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if _, err := s.missions.Get(req.MissionID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: mission %q", ErrNotFound, req.MissionID)
		}
		return nil, fmt.Errorf("getting mission: %w", err)
	}
	if err := validation.ValidateAccountID(req.Player1); err != nil {
		return nil, fmt.Errorf("%w: walletAddress: %v", ErrInvalidInput, err)
	}

	player2 := req.Player2
	switch {
	case player2 != "":
		if err := validation.ValidateAccountID(player2); err != nil {
			return nil, fmt.Errorf("%w: player2Address: %v", ErrInvalidInput, err)
		}
	case s.cfg.Player2Placeholder != "":
		player2 = s.cfg.Player2Placeholder
	default:
		player2 = req.Player1
	}

	now := s.clock.Now()
	sess := &Session{
		MissionID: req.MissionID,
		Player1:   req.Player1,
		Player2:   player2,
		State:     StateStarted,
		StartedAt: now,
	}
	if err := s.create(ctx, sess, DeriveSessionID(now)); err != nil {
		return nil, err
	}

	res := s.hub.StartGame(ctx, sess.SessionID, sess.Player1, sess.Player2)
	metrics.GameHubCall("start_game", string(res.Status))
	if !res.Succeeded {
		s.logger.Warn("game hub start_game not acknowledged",
			"session_id", sess.SessionID,
			"mission_id", sess.MissionID,
			"attempted", res.Attempted,
			"status", res.Status,
			"detail", res.Detail,
		)
	}
	if err := s.store.SetGameHub(ctx, sess.ID, res.Succeeded, false); err != nil {
		s.logger.Warn("recording start_game outcome", "session_id", sess.SessionID, "error", err)
	}

	return &StartResult{
		SessionID:      sess.SessionID,
		GameHubStarted: res.Succeeded,
		Player2:        player2,
	}, nil
}

// create stores sess under the first free id at or after id.
func (s *service) create(ctx context.Context, sess *Session, id uint32) error {
	if id == 0 {
		id = nextSessionID(id)
	}
	for i := 0; i < maxIDAttempts; i++ {
		sess.SessionID = id
		err := s.store.Create(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSessionIDTaken) {
			return fmt.Errorf("creating session: %w", err)
		}
		id = nextSessionID(id)
	}
	return fmt.Errorf("creating session: no free session id near %d", sess.SessionID)
}

// End closes the session of a verified completion of missionID and asks the
// game hub to end the game. A zero id, or one held by another player or
// opened for another mission, gets a freshly synthesized id. An unknown id is
// still passed to the hub. An already ended session is not ended twice.
func (s *service) End(ctx context.Context, sessionID uint32, missionID, player1 string, won bool) EndResult {
	now := s.clock.Now()

	if sessionID != 0 {
		sess, err := s.store.Get(ctx, sessionID)
		switch {
		case err == nil && sess.Player1 != player1:
			s.logger.Warn("session belongs to another player, synthesizing a fresh id",
				"session_id", sessionID)
			sessionID = 0
		case err == nil && sess.MissionID != missionID:
			s.logger.Warn("session was opened for another mission, synthesizing a fresh id",
				"session_id", sessionID,
				"session_mission_id", sess.MissionID,
				"mission_id", missionID)
			sessionID = 0
		case err == nil:
			return s.endKnown(ctx, sess, won, now)
		case errors.Is(err, ErrNotFound):
			s.logger.Info("ending unknown session", "session_id", sessionID)
		default:
			s.logger.Warn("looking up session", "session_id", sessionID, "error", err)
		}
	}

	synthesized := false
	if sessionID == 0 {
		sessionID = s.freeID(ctx, DeriveSessionID(now))
		synthesized = true
	}

	ok := s.endGame(ctx, sessionID, won)
	return EndResult{SessionID: sessionID, GameHubEnded: ok, Synthesized: synthesized}
}

func (s *service) endKnown(ctx context.Context, sess *Session, won bool, now time.Time) EndResult {
	if sess.State == StateEnded {
		return EndResult{SessionID: sess.SessionID, AlreadyEnded: true}
	}

	err := s.store.Transition(ctx, sess.ID, sess.State, StateEnded, now)
	if errors.Is(err, ErrInvalidTransition) {
		// Another request ended it first
		return EndResult{SessionID: sess.SessionID, AlreadyEnded: true}
	}
	if err != nil {
		s.logger.Warn("closing session", "session_id", sess.SessionID, "error", err)
	}

	ok := s.endGame(ctx, sess.SessionID, won)
	if err := s.store.SetGameHub(ctx, sess.ID, sess.GameHubStarted, ok); err != nil {
		s.logger.Warn("recording end_game outcome", "session_id", sess.SessionID, "error", err)
	}
	return EndResult{SessionID: sess.SessionID, GameHubEnded: ok}
}

func (s *service) endGame(ctx context.Context, sessionID uint32, won bool) bool {
	res := s.hub.EndGame(ctx, sessionID, won)
	metrics.GameHubCall("end_game", string(res.Status))
	if !res.Succeeded {
		s.logger.Warn("game hub end_game not acknowledged",
			"session_id", sessionID,
			"attempted", res.Attempted,
			"status", res.Status,
			"detail", res.Detail,
		)
	}
	return res.Succeeded
}

// freeID returns the first id at or after id not held by an open session.
func (s *service) freeID(ctx context.Context, id uint32) uint32 {
	if id == 0 {
		id = nextSessionID(id)
	}
	for i := 0; i < maxIDAttempts; i++ {
		sess, err := s.store.Get(ctx, id)
		if err != nil || sess.State != StateStarted {
			return id
		}
		id = nextSessionID(id)
	}
	return id
}

// Get returns a session by its session id.
func (s *service) Get(ctx context.Context, sessionID uint32) (*Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// List returns sessions in the given state, newest first. An empty state
// lists every session.
func (s *service) List(ctx context.Context, state State, limit int) ([]Session, error) {
	switch state {
	case "", StateStarted, StateEnded, StateAbandoned:
	default:
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, state)
	}
	sessions, err := s.store.List(ctx, state, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// ListActive returns the open sessions.
func (s *service) ListActive(ctx context.Context) ([]Session, error) {
	return s.List(ctx, StateStarted, 0)
}

// Abandon closes sessions that stayed open longer than the configured TTL.
func (s *service) Abandon(ctx context.Context) (int, error) {
	if s.cfg.TTL <= 0 {
		return 0, nil
	}
	now := s.clock.Now()
	n, err := s.store.Abandon(ctx, now.Add(-s.cfg.TTL), now)
	if err != nil {
		return 0, fmt.Errorf("abandoning sessions: %w", err)
	}
	metrics.SessionsExpired(n)

	if active, err := s.store.List(ctx, StateStarted, 0); err == nil {
		metrics.SessionsActive(len(active))
	}
	return n, nil
}
