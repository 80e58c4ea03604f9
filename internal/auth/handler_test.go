package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"authgate/internal/audit"
	"authgate/internal/identity"
	"authgate/internal/session"

	"github.com/gin-gonic/gin"
)

// Mock identity provider for handler tests.
type mockProvider struct {
	signInFunc  func(ctx context.Context, email, password string) (*identity.Principal, string, error)
	signedOut   []string
	signOutErr  error
	verifyCalls int
}

func (m *mockProvider) SignIn(ctx context.Context, email, password string) (*identity.Principal, string, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, email, password)
	}
	return nil, "", identity.ErrInvalidCredential
}

func (m *mockProvider) Verify(context.Context, string) (*identity.Principal, error) {
	m.verifyCalls++
	return nil, identity.ErrInvalidCredential
}

func (m *mockProvider) SignOut(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return m.signOutErr
}

// Capturing audit publisher.
type captureAudit struct {
	events []audit.Event
}

func (c *captureAudit) Publish(_ context.Context, e audit.Event) error {
	c.events = append(c.events, e)
	return nil
}

func (c *captureAudit) Close() {}

func newTestHandler(provider identity.Provider) (*Handler, session.Manager, *captureAudit, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore(30 * time.Minute)
	sessions := session.NewManager(store, nil)
	capture := &captureAudit{}
	h := NewHandler(provider, sessions, capture, 30*time.Minute, false)

	r := gin.New()
	h.RegisterRoutes(r)
	return h, sessions, capture, r
}

func postLogin(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginSuccess(t *testing.T) {
	provider := &mockProvider{
		signInFunc: func(_ context.Context, email, password string) (*identity.Principal, string, error) {
			if email != "user@example.com" || password != "hunter2" {
				return nil, "", identity.ErrInvalidCredential
			}
			return &identity.Principal{ID: "user-1", Email: email, EmailVerified: true}, "bearer-abc", nil
		},
	}
	_, sessions, capture, r := newTestHandler(provider)

	w := postLogin(r, `{"email":"user@example.com","password":"hunter2"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.Success || resp.User.ID != "user-1" || !resp.User.EmailVerified {
		t.Errorf("response = %+v", resp)
	}

	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("login should set the session cookie")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie attributes wrong: %+v", cookie)
	}
	if cookie.MaxAge != int((30 * time.Minute).Seconds()) {
		t.Errorf("cookie MaxAge = %d, want %d", cookie.MaxAge, int((30 * time.Minute).Seconds()))
	}

	// The cookie value is a live session id.
	got, err := sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("session from cookie not found: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("session UserID = %q, want user-1", got.UserID)
	}

	if len(capture.events) != 1 || capture.events[0].Kind != audit.KindLogin {
		t.Errorf("audit events = %+v, want one login_succeeded", capture.events)
	}
}

func TestLoginMissingFields(t *testing.T) {
	provider := &mockProvider{
		signInFunc: func(context.Context, string, string) (*identity.Principal, string, error) {
			t.Error("provider must not be called for incomplete input")
			return nil, "", nil
		},
	}
	_, _, _, r := newTestHandler(provider)

	for _, body := range []string{
		`{"email":"user@example.com"}`,
		`{"password":"hunter2"}`,
		`{}`,
		`not json`,
	} {
		w := postLogin(r, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
		if cookie := sessionCookie(w); cookie != nil {
			t.Errorf("body %q: no session cookie should be set", body)
		}
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	_, _, capture, r := newTestHandler(&mockProvider{})

	w := postLogin(r, `{"email":"user@example.com","password":"wrong"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if cookie := sessionCookie(w); cookie != nil {
		t.Error("failed login must not set a session cookie")
	}

	if len(capture.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(capture.events))
	}
	e := capture.events[0]
	if e.Kind != audit.KindLoginFailed {
		t.Errorf("event kind = %q, want login_failed", e.Kind)
	}
	if e.Email != "user@example.com" {
		t.Errorf("event email = %q, want the attempted email", e.Email)
	}
	if strings.Contains(e.Detail, "wrong") {
		t.Error("audit event must not contain the password")
	}
}

func TestLoginProviderUnavailable(t *testing.T) {
	provider := &mockProvider{
		signInFunc: func(context.Context, string, string) (*identity.Principal, string, error) {
			return nil, "", identity.ErrUnavailable
		},
	}
	_, _, _, r := newTestHandler(provider)

	w := postLogin(r, `{"email":"user@example.com","password":"hunter2"}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestLogout(t *testing.T) {
	provider := &mockProvider{}
	_, sessions, capture, r := newTestHandler(provider)

	sess, err := sessions.Create(context.Background(), "user-1", "bearer-abc", session.Metadata{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	// Server-side session is gone.
	if _, err := sessions.Get(context.Background(), sess.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session still present after logout: %v", err)
	}

	// Provider credential was revoked.
	if len(provider.signedOut) != 1 || provider.signedOut[0] != "bearer-abc" {
		t.Errorf("signed out tokens = %v, want [bearer-abc]", provider.signedOut)
	}

	cookie := sessionCookie(w)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Error("logout should clear the session cookie")
	}

	if len(capture.events) != 1 || capture.events[0].Kind != audit.KindLogout {
		t.Errorf("audit events = %+v, want one logout", capture.events)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	_, _, _, r := newTestHandler(&mockProvider{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestLogoutSurvivesProviderSignOutFailure(t *testing.T) {
	provider := &mockProvider{signOutErr: identity.ErrUnavailable}
	_, sessions, _, r := newTestHandler(provider)

	sess, _ := sessions.Create(context.Background(), "user-1", "tok", session.Metadata{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; provider failure must not block logout", w.Code)
	}
	if _, err := sessions.Get(context.Background(), sess.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Error("session must be destroyed even when provider sign-out fails")
	}
}

func TestSessionCheck(t *testing.T) {
	_, sessions, _, r := newTestHandler(&mockProvider{})

	sess, _ := sessions.Create(context.Background(), "user-1", "tok", session.Metadata{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.Valid || resp.UserID != "user-1" || resp.LastAccessed.IsZero() {
		t.Errorf("response = %+v", resp)
	}
	if strings.Contains(w.Body.String(), "tok") {
		t.Error("session check must not expose the credential token")
	}
}

func TestSessionCheckInvalid(t *testing.T) {
	_, _, _, r := newTestHandler(&mockProvider{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Valid {
		t.Error("response should report valid=false")
	}
}
