package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a session id is empty or unknown.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired is returned when a session was found but its inactivity
	// window had elapsed. The store evicts the session before returning it.
	ErrExpired = errors.New("session: expired")
	// ErrDuplicateID is returned when a generated session id collides with
	// a live session. With 256-bit ids this indicates a broken id source.
	ErrDuplicateID = errors.New("session: duplicate id")
)

// Store holds active sessions keyed by session id and owns their expiry
// logic. Touch is the single synchronized check-then-renew path used by
// both request handling and the sweeper, so lazy eviction and timer-driven
// eviction share one critical section.
type Store interface {
	// Create stamps CreatedAt/LastAccessed/ExpiresAt on s and inserts it.
	Create(ctx context.Context, s *Session) error

	// Touch atomically looks up a session, evicts it if expired
	// (returning ErrExpired), and otherwise renews its inactivity window
	// and returns a copy. Two concurrent Touch calls for the same id must
	// agree on expired-vs-valid, and a renewal must never be lost.
	Touch(ctx context.Context, sessionID string) (*Session, error)

	// Refresh renews the session if it is present and still valid.
	// It reports false for absent sessions; an expired-but-unswept session
	// is evicted and reported false, never resurrected.
	Refresh(ctx context.Context, sessionID string) (bool, error)

	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// Sweep evicts every expired session and returns how many it removed.
	Sweep(ctx context.Context) (int, error)
}
