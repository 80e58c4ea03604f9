package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignInSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.String())
		}
		if r.Header.Get("apikey") != "test-key" {
			t.Errorf("apikey header = %q, want test-key", r.Header.Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "bearer-abc",
			"user": {"id": "user-1", "email": "user@example.com", "email_confirmed_at": "2026-01-01T00:00:00Z"}
		}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "test-key")
	principal, token, err := p.SignIn(context.Background(), "user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if token != "bearer-abc" {
		t.Errorf("token = %q, want bearer-abc", token)
	}
	if principal.ID != "user-1" || !principal.EmailVerified {
		t.Errorf("principal = %+v", principal)
	}
}

func TestSignInRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, _, err := p.SignIn(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestSignInProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	p := NewHTTPProvider(deadURL, "")
	_, _, err := p.SignIn(context.Background(), "user@example.com", "hunter2")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSignInServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, _, err := p.SignIn(context.Background(), "user@example.com", "hunter2")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("5xx: err = %v, want ErrUnavailable", err)
	}
	// The two failure kinds stay distinguishable.
	if errors.Is(err, ErrInvalidCredential) {
		t.Error("unavailable must not also match ErrInvalidCredential")
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer bearer-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "user-1", "email": "user@example.com", "email_confirmed_at": ""}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")

	principal, err := p.Verify(context.Background(), "bearer-abc")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if principal.ID != "user-1" || principal.EmailVerified {
		t.Errorf("principal = %+v", principal)
	}

	if _, err := p.Verify(context.Background(), "stale"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("stale token: err = %v, want ErrInvalidCredential", err)
	}
}

func TestSignOutToleratesDeadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	if err := p.SignOut(context.Background(), "already-dead"); err != nil {
		t.Fatalf("SignOut of a dead token should succeed, got %v", err)
	}
}
