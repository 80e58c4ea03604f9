// Package audit publishes authentication-relevant events for security
// monitoring: login success and failure, logout, and session expiry.
// Events carry request provenance but never credential tokens or passwords.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event kinds.
const (
	KindLogin          = "login_succeeded"
	KindLoginFailed    = "login_failed"
	KindLogout         = "logout"
	KindSessionExpired = "session_expired"
)

// Event is one auth-relevant occurrence.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Publisher emits audit events. Publish must not block request handling on
// broker availability.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// LogPublisher writes audit events to the structured log. It is the
// fallback when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(_ context.Context, e Event) error {
	l.logger.Info("audit event",
		"kind", e.Kind,
		"user_id", orUnauthenticated(e.UserID),
		"email", e.Email,
		"method", e.Method,
		"path", e.Path,
		"client_ip", e.ClientIP,
		"detail", e.Detail,
	)
	return nil
}

func (l *LogPublisher) Close() {}

func orUnauthenticated(userID string) string {
	if userID == "" {
		return "unauthenticated"
	}
	return userID
}
