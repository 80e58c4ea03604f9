package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store implementation. One mutex guards the
// map, so lookup+renew, refresh, delete, and sweep all run in the same
// critical section. A renewal that wins the lock before the sweeper leaves
// the session retained.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	window   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store with the given inactivity
// window. A zero window falls back to DefaultInactivityWindow.
func NewMemoryStore(window time.Duration) *MemoryStore {
	if window <= 0 {
		window = DefaultInactivityWindow
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		window:   window,
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.SessionID]; exists {
		return ErrDuplicateID
	}

	now := m.now()
	s.CreatedAt = now
	s.LastAccessed = now
	s.ExpiresAt = now.Add(m.window)

	m.sessions[s.SessionID] = s.clone()
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	now := m.now()
	if s.IsExpired(now) {
		delete(m.sessions, sessionID)
		return nil, ErrExpired
	}

	s.Renew(now, m.window)
	return s.clone(), nil
}

func (m *MemoryStore) Refresh(_ context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}

	now := m.now()
	if s.IsExpired(now) {
		// Expired sessions are terminal; never renew them back to life.
		delete(m.sessions, sessionID)
		return false, nil
	}

	s.Renew(now, m.window)
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live entries, expired or not. Used by tests
// and the sweeper log line.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
