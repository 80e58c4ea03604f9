// Package guard makes the allow-or-redirect decision for incoming paths.
// It is a pure function of (path, authenticated?) with no side effects, so
// it can be tested exhaustively without any HTTP machinery.
package guard

import "strings"

// Decision is the guard's verdict for a request.
type Decision int

const (
	// Allow lets the request proceed to a local handler or the forwarder.
	Allow Decision = iota
	// RedirectToLogin sends an unauthenticated browser to the login page.
	RedirectToLogin
)

// DefaultPrefixes is the stock protected route list.
var DefaultPrefixes = []string{"/dashboard", "/api", "/reports", "/settings"}

// Policy holds the protected path prefixes. Matching is first-match-wins;
// since every match produces the same verdict today the order is immaterial,
// but a future per-route policy would need the precedence to stay defined,
// so it is: slice order, earliest wins.
type Policy struct {
	Prefixes []string
}

// NewPolicy builds a policy, falling back to DefaultPrefixes when the list
// is empty.
func NewPolicy(prefixes []string) Policy {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return Policy{Prefixes: prefixes}
}

// Authorize decides whether a request may proceed. A path under a protected
// prefix without a verified principal redirects to login; everything else
// is allowed.
func (p Policy) Authorize(path string, hasVerifiedPrincipal bool) Decision {
	if hasVerifiedPrincipal {
		return Allow
	}
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return RedirectToLogin
		}
	}
	return Allow
}

// Protected reports whether the path falls under any protected prefix.
func (p Policy) Protected(path string) bool {
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
