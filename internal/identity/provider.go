// Package identity defines the boundary to the external identity provider.
// The gateway never stores credentials; it hands them to the provider and
// receives either a verified principal or a tagged failure. Transport
// failures and rejected credentials are distinct error kinds so callers can
// retry the former without forcing a logout.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredential is returned when the provider rejects the
	// credential (wrong password, revoked or expired token).
	ErrInvalidCredential = errors.New("identity: credential rejected")
	// ErrUnavailable is returned when the provider cannot be reached or
	// answers with a server error. Retryable; does not invalidate sessions.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// Principal is the provider's verified-identity record. Immutable value,
// never persisted beyond request scope except as a Session's UserID.
type Principal struct {
	ID            string
	Email         string
	EmailVerified bool
}

// Provider is the credential-verification contract.
type Provider interface {
	// SignIn exchanges an email/password pair for a verified principal
	// and a bearer credential.
	SignIn(ctx context.Context, email, password string) (*Principal, string, error)

	// Verify introspects a bearer credential.
	Verify(ctx context.Context, token string) (*Principal, error)

	// SignOut revokes a bearer credential. Best effort.
	SignOut(ctx context.Context, token string) error
}
