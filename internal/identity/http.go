package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every provider call so an unresponsive provider
// surfaces as ErrUnavailable instead of a hung request.
const DefaultTimeout = 10 * time.Second

// HTTPProvider talks to a GoTrue-style identity API: password-grant sign-in,
// bearer-token introspection, and sign-out.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a provider client for the given base URL. The
// API key is sent as the "apikey" header on every call.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

type userPayload struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmedAt string `json:"email_confirmed_at"`
}

func (u userPayload) principal() *Principal {
	return &Principal{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailConfirmedAt != "",
	}
}

type signInResponse struct {
	AccessToken string      `json:"access_token"`
	User        userPayload `json:"user"`
}

func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*Principal, string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, "", fmt.Errorf("identity: marshal sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("identity: build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuthHeaders(req, "")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, "", err
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("%w: malformed sign-in response", ErrUnavailable)
	}
	if out.AccessToken == "" || out.User.ID == "" {
		return nil, "", fmt.Errorf("%w: incomplete sign-in response", ErrUnavailable)
	}

	return out.User.principal(), out.AccessToken, nil
}

func (p *HTTPProvider) Verify(ctx context.Context, token string) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build verify request: %w", err)
	}
	p.setAuthHeaders(req, token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var user userPayload
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response", ErrUnavailable)
	}
	if user.ID == "" {
		return nil, ErrInvalidCredential
	}

	return user.principal(), nil
}

func (p *HTTPProvider) SignOut(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("identity: build sign-out request: %w", err)
	}
	p.setAuthHeaders(req, token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	// Sign-out of an already-dead token is fine.
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: sign-out status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) setAuthHeaders(req *http.Request, token string) {
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// classifyStatus maps provider status codes onto the tagged error kinds at
// the point of failure; callers never inspect message text.
func classifyStatus(code int) error {
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code == http.StatusBadRequest,
		code == http.StatusUnauthorized,
		code == http.StatusForbidden:
		return ErrInvalidCredential
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
