package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"authgate/internal/guard"
	"authgate/internal/identity"
	"authgate/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by the middleware chain.
const (
	ctxPrincipal    = "principal"
	ctxProviderDown = "identity_provider_down"
)

// CurrentPrincipal returns the verified principal attached to the request,
// or nil when the request is unauthenticated.
func CurrentPrincipal(c *gin.Context) *identity.Principal {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*identity.Principal)
	return p
}

// Authenticate resolves the request's session and verifies the stored
// credential with the identity provider. It never rejects on its own: it
// attaches the principal when verification succeeds and leaves the
// authorization decision to the guard. A provider outage only marks the
// request, so public paths stay reachable while the guard turns the
// outage into a retryable 502 where a principal is actually required.
func Authenticate(sessions session.Manager, provider identity.Provider, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := extractSessionID(c)
		if sessionID == "" {
			c.Next()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				session.ClearCookie(c.Writer, secureCookies)
				slog.Info("expired session rejected",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"user_id", "unauthenticated",
					"client_ip", c.ClientIP(),
				)
			}
			c.Next()
			return
		}

		principal, err := provider.Verify(c.Request.Context(), sess.CredentialToken)
		if err != nil {
			if errors.Is(err, identity.ErrUnavailable) {
				slog.Error("identity provider unavailable",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"error", err.Error(),
				)
				// The session may still be good; keep it and proceed
				// unauthenticated.
				c.Set(ctxProviderDown, true)
				c.Next()
				return
			}

			// Credential revoked upstream: the session is dead.
			_ = sessions.Destroy(c.Request.Context(), sessionID)
			session.ClearCookie(c.Writer, secureCookies)
			slog.Info("session credential rejected by provider",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"user_id", sess.UserID,
				"client_ip", c.ClientIP(),
			)
			c.Next()
			return
		}

		c.Set(ctxPrincipal, principal)
		c.Set("user_id", principal.ID)
		c.Next()
	}
}

// Authorize applies the guard's decision. Browsers are redirected to the
// login page; API clients get a structured 401. When the principal is
// missing only because the identity provider is down, the answer is a
// retryable 502, not a login redirect.
func Authorize(policy guard.Policy, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		hasPrincipal := CurrentPrincipal(c) != nil
		if policy.Authorize(c.Request.URL.Path, hasPrincipal) == guard.RedirectToLogin {
			if c.GetBool(ctxProviderDown) {
				c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
					"success": false,
					"error":   "identity provider unavailable",
				})
				return
			}
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, loginPath)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}
		c.Next()
	}
}

// extractSessionID reads the session id from the session cookie, falling
// back to a bearer Authorization header for cookieless API clients. Both
// carry the same opaque session id.
func extractSessionID(c *gin.Context) string {
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// RequestID tags every request with a unique id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// Logging emits one structured line per request. Auth-relevant failures are
// recognizable by status and user_id; credential material never appears.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rw := newResponseWriter(c.Writer)
		c.Writer = rw

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Milliseconds()),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_size", rw.Size(),
		}

		if userID, exists := c.Get("user_id"); exists {
			attrs = append(attrs, "user_id", userID)
		} else {
			attrs = append(attrs, "user_id", "unauthenticated")
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			slog.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("request rejected", attrs...)
		default:
			slog.Info("request completed", attrs...)
		}
	}
}
