// Package session implements the session lifecycle for the gateway.
// A session is created after the identity provider accepts a credential,
// renewed on every successful lookup (sliding inactivity window), and
// removed on logout, on lazy expiry detection, or by the periodic sweeper.
// Session data is owned exclusively by the Store; callers only ever see
// copies.
package session

import "time"

// DefaultInactivityWindow is how long a session survives without activity.
const DefaultInactivityWindow = 30 * time.Minute

// Session represents one authenticated user's active login.
type Session struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	CredentialToken string    `json:"credential_token"` // bearer credential, never logged
	CreatedAt       time.Time `json:"created_at"`
	LastAccessed    time.Time `json:"last_accessed"`
	ExpiresAt       time.Time `json:"expires_at"`
	IPAddress       string    `json:"ip_address,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
}

// IsExpired reports whether the session's inactivity window has elapsed
// relative to the given reference time.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsValid is the inverse of IsExpired: valid iff now <= ExpiresAt.
func (s *Session) IsValid(now time.Time) bool {
	return !s.IsExpired(now)
}

// Renew advances LastAccessed and ExpiresAt together. This is the only
// mutation a session undergoes after creation; both timestamps always move
// in lockstep so that ExpiresAt == LastAccessed + window holds for the
// session's whole lifetime.
func (s *Session) Renew(now time.Time, window time.Duration) {
	s.LastAccessed = now
	s.ExpiresAt = now.Add(window)
}

// clone returns a copy so store internals never escape to callers.
func (s *Session) clone() *Session {
	c := *s
	return &c
}
