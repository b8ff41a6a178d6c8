package domain

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zktrails/zktrails/internal/storage"
)

// Store persists sessions. Create fails with ErrSessionIDTaken when an open
// session already holds the session id, and Transition fails with
// ErrInvalidTransition when the session is no longer in state from.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID uint32) (*Session, error)
	List(ctx context.Context, state State, limit int) ([]Session, error)
	Transition(ctx context.Context, id string, from, to State, at time.Time) error
	SetGameHub(ctx context.Context, id string, started, ended bool) error
	Abandon(ctx context.Context, startedBefore, at time.Time) (int, error)
}

// MemoryStore keeps sessions in process memory. Closed sessions are
// discarded by Abandon once they are older than the cutoff.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	open     map[uint32]string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		open:     make(map[uint32]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.State == StateStarted {
		if _, taken := m.open[s.SessionID]; taken {
			return ErrSessionIDTaken
		}
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	cp := *s
	m.sessions[s.ID] = &cp
	if s.State == StateStarted {
		m.open[s.SessionID] = s.ID
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID uint32) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.open[sessionID]; ok {
		cp := *m.sessions[id]
		return &cp, nil
	}

	var latest *Session
	for _, s := range m.sessions {
		if s.SessionID != sessionID {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, state State, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Session{}
	for _, s := range m.sessions {
		if state == "" || s.State == state {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Transition(ctx context.Context, id string, from, to State, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.State != from {
		return ErrInvalidTransition
	}
	if from == StateStarted {
		delete(m.open, s.SessionID)
	}
	s.State = to
	s.EndedAt = &at
	return nil
}

func (m *MemoryStore) SetGameHub(ctx context.Context, id string, started, ended bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.GameHubStarted = started
	s.GameHubEnded = ended
	return nil
}

func (m *MemoryStore) Abandon(ctx context.Context, startedBefore, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if !s.StartedAt.Before(startedBefore) {
			continue
		}
		switch s.State {
		case StateStarted:
			delete(m.open, s.SessionID)
			s.State = StateAbandoned
			s.EndedAt = &at
			n++
		case StateEnded, StateAbandoned:
			if s.EndedAt != nil && s.EndedAt.Before(startedBefore) {
				delete(m.sessions, id)
			}
		}
	}
	return n, nil
}

// DatabaseStore persists sessions through the storage layer so they survive
// restarts and are shared between replicas.
type DatabaseStore struct {
	store storage.SessionStore
}

// NewDatabaseStore wraps a storage.SessionStore.
func NewDatabaseStore(store storage.SessionStore) *DatabaseStore {
	return &DatabaseStore{store: store}
}

func (d *DatabaseStore) Create(ctx context.Context, s *Session) error {
	row := toStorage(s)
	err := d.store.CreateSession(ctx, row)
	if errors.Is(err, storage.ErrConflict) {
		return ErrSessionIDTaken
	}
	if err != nil {
		return err
	}
	s.ID = row.ID
	return nil
}

func (d *DatabaseStore) Get(ctx context.Context, sessionID uint32) (*Session, error) {
	row, err := d.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := fromStorage(row)
	return &s, nil
}

func (d *DatabaseStore) List(ctx context.Context, state State, limit int) ([]Session, error) {
	rows, err := d.store.ListSessions(ctx, storage.SessionFilter{State: string(state), Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(rows))
	for i := range rows {
		out = append(out, fromStorage(&rows[i]))
	}
	return out, nil
}

func (d *DatabaseStore) Transition(ctx context.Context, id string, from, to State, at time.Time) error {
	err := d.store.TransitionSession(ctx, id, string(from), string(to), at)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		return ErrInvalidTransition
	}
	return err
}

func (d *DatabaseStore) SetGameHub(ctx context.Context, id string, started, ended bool) error {
	err := d.store.SetSessionGameHub(ctx, id, started, ended)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (d *DatabaseStore) Abandon(ctx context.Context, startedBefore, at time.Time) (int, error) {
	return d.store.AbandonSessions(ctx, startedBefore, at)
}

func toStorage(s *Session) *storage.Session {
	return &storage.Session{
		ID:             s.ID,
		SessionID:      s.SessionID,
		MissionID:      s.MissionID,
		Player1:        s.Player1,
		Player2:        s.Player2,
		State:          string(s.State),
		GameHubStarted: s.GameHubStarted,
		GameHubEnded:   s.GameHubEnded,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
	}
}

func fromStorage(s *storage.Session) Session {
	return Session{
		ID:             s.ID,
		SessionID:      s.SessionID,
		MissionID:      s.MissionID,
		Player1:        s.Player1,
		Player2:        s.Player2,
		State:          State(s.State),
		GameHubStarted: s.GameHubStarted,
		GameHubEnded:   s.GameHubEnded,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
	}
}
