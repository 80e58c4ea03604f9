package auth

import "time"

// LoginRequest is the credential pair posted to /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the client-facing view of a verified principal.
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

// LoginResponse is returned on successful login alongside the session cookie.
type LoginResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

// SessionResponse is returned by the session-check endpoint.
type SessionResponse struct {
	Valid        bool      `json:"valid"`
	UserID       string    `json:"userId,omitempty"`
	LastAccessed time.Time `json:"lastAccessed,omitzero"`
	Error        string    `json:"error,omitempty"`
}
