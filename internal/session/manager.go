package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Metadata carries optional provenance recorded at session creation.
type Metadata struct {
	IPAddress string
	UserAgent string
}

// Validation is the presentation-safe view of a session check. It never
// carries the credential token.
type Validation struct {
	IsValid      bool
	UserID       string
	LastAccessed time.Time
}

// Manager defines the session lifecycle operations used by the gateway.
type Manager interface {
	// Create establishes a new session for a verified principal.
	Create(ctx context.Context, userID, credentialToken string, meta Metadata) (*Session, error)

	// Get looks a session up, evicting it if expired (ErrExpired) and
	// renewing its inactivity window otherwise.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Validate wraps Get into a presentation-safe result.
	Validate(ctx context.Context, sessionID string) Validation

	// Refresh renews a live session; false when absent or expired.
	Refresh(ctx context.Context, sessionID string) bool

	// Destroy removes a session. Idempotent.
	Destroy(ctx context.Context, sessionID string) error

	// Sweep evicts every expired session.
	Sweep(ctx context.Context) (int, error)

	// RunSweeper runs Sweep on a timer until ctx is cancelled.
	RunSweeper(ctx context.Context, interval time.Duration)
}

type manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a session manager on top of the given store. The store
// is injected rather than global so tests and future externalized backends
// can swap it without touching callers.
func NewManager(store Store, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &manager{store: store, logger: logger}
}

func (m *manager) Create(ctx context.Context, userID, credentialToken string, meta Metadata) (*Session, error) {
	sessionID, err := GenerateID()
	if err != nil {
		return nil, err
	}

	s := &Session{
		SessionID:       sessionID,
		UserID:          userID,
		CredentialToken: credentialToken,
		IPAddress:       meta.IPAddress,
		UserAgent:       meta.UserAgent,
	}

	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return s, nil
}

func (m *manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	return m.store.Touch(ctx, sessionID)
}

func (m *manager) Validate(ctx context.Context, sessionID string) Validation {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return Validation{}
	}
	return Validation{
		IsValid:      true,
		UserID:       s.UserID,
		LastAccessed: s.LastAccessed,
	}
}

func (m *manager) Refresh(ctx context.Context, sessionID string) bool {
	ok, err := m.store.Refresh(ctx, sessionID)
	if err != nil {
		m.logger.Error("session refresh failed",
			"error", err.Error(),
		)
		return false
	}
	return ok
}

func (m *manager) Destroy(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

func (m *manager) Sweep(ctx context.Context) (int, error) {
	return m.store.Sweep(ctx)
}

func (m *manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Error("session sweep failed", "error", err.Error())
				continue
			}
			if removed > 0 {
				m.logger.Info("expired sessions swept", "removed", removed)
			}
		}
	}
}
