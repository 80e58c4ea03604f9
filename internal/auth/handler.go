// Package auth implements the gateway's credential endpoints: login,
// logout, and session check. Handlers translate identity-provider and
// session errors into the uniform client-facing taxonomy; raw error text
// never reaches the client.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"authgate/internal/audit"
	"authgate/internal/identity"
	"authgate/internal/session"

	"github.com/gin-gonic/gin"
)

// Handler handles authentication HTTP requests.
type Handler struct {
	provider identity.Provider
	sessions session.Manager
	audit    audit.Publisher

	cookieWindow  time.Duration
	secureCookies bool
}

// NewHandler creates the auth handler. The cookie max-age tracks the
// session inactivity window.
func NewHandler(provider identity.Provider, sessions session.Manager, publisher audit.Publisher, window time.Duration, secureCookies bool) *Handler {
	if publisher == nil {
		publisher = audit.NewLogPublisher(nil)
	}
	if window <= 0 {
		window = session.DefaultInactivityWindow
	}
	return &Handler{
		provider:      provider,
		sessions:      sessions,
		audit:         publisher,
		cookieWindow:  window,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes mounts the auth endpoints under /auth.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	grp := r.Group("/auth")
	grp.POST("/login", h.Login)
	grp.POST("/logout", h.Logout)
	grp.GET("/session", h.SessionCheck)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "email and password required",
		})
		return
	}

	principal, token, err := h.provider.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.publishEvent(c, audit.KindLoginFailed, "", req.Email, err.Error())

		switch {
		case errors.Is(err, identity.ErrInvalidCredential):
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid email or password",
			})
		case errors.Is(err, identity.ErrUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   "identity provider unavailable",
			})
		default:
			slog.Error("login failed unexpectedly", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "login failed",
			})
		}
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), principal.ID, token, session.Metadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		slog.Error("session creation failed", "error", err.Error(), "user_id", principal.ID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "login failed",
		})
		return
	}

	session.SetCookie(c.Writer, sess.SessionID, h.cookieWindow, h.secureCookies)
	h.publishEvent(c, audit.KindLogin, principal.ID, principal.Email, "")

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		User: UserResponse{
			ID:            principal.ID,
			Email:         principal.Email,
			EmailVerified: principal.EmailVerified,
		},
	})
}

// Logout handles POST /auth/logout. It requires a live session, revokes the
// provider credential best-effort, and always clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	sessionID := h.sessionID(c)

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		session.ClearCookie(c.Writer, h.secureCookies)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "invalid or expired session",
		})
		return
	}

	if err := h.provider.SignOut(c.Request.Context(), sess.CredentialToken); err != nil {
		// The server-side session dies regardless.
		slog.Warn("provider sign-out failed", "error", err.Error(), "user_id", sess.UserID)
	}

	if err := h.sessions.Destroy(c.Request.Context(), sessionID); err != nil {
		slog.Error("session destroy failed", "error", err.Error(), "user_id", sess.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "logout failed",
		})
		return
	}

	session.ClearCookie(c.Writer, h.secureCookies)
	h.publishEvent(c, audit.KindLogout, sess.UserID, "", "")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SessionCheck handles GET /auth/session.
func (h *Handler) SessionCheck(c *gin.Context) {
	validation := h.sessions.Validate(c.Request.Context(), h.sessionID(c))
	if !validation.IsValid {
		c.JSON(http.StatusUnauthorized, SessionResponse{
			Valid: false,
			Error: "invalid or expired session",
		})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Valid:        true,
		UserID:       validation.UserID,
		LastAccessed: validation.LastAccessed,
	})
}

func (h *Handler) sessionID(c *gin.Context) string {
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie != "" {
		return cookie
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

func (h *Handler) publishEvent(c *gin.Context, kind, userID, email, detail string) {
	err := h.audit.Publish(c.Request.Context(), audit.Event{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		UserID:    userID,
		Email:     email,
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Detail:    detail,
	})
	if err != nil {
		slog.Error("audit publish failed", "kind", kind, "error", err.Error())
	}
}
