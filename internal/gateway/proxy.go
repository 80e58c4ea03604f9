package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"authgate/internal/discovery"

	"github.com/gin-gonic/gin"
)

// Identity headers injected into forwarded requests. They are derived from
// the verified principal only; client-supplied values are stripped.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

// Forwarder reverse-proxies authorized requests to the downstream service.
type Forwarder struct {
	resolver  discovery.Resolver
	transport http.RoundTripper
	logger    *slog.Logger
}

// NewForwarder builds a forwarder with bounded dial and response-header
// timeouts so a silent downstream turns into a reported failure instead of
// a hung request.
func NewForwarder(resolver discovery.Resolver, timeout time.Duration, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		resolver: resolver,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 5 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
		},
		logger: logger,
	}
}

// Handle forwards the request downstream with identity headers attached.
// It refuses to forward without a verified principal even though the guard
// runs first.
func (f *Forwarder) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}

		target, err := f.resolver.Resolve(c.Request.Context())
		if err != nil {
			f.logger.Error("downstream resolution failed",
				"path", c.Request.URL.Path,
				"error", err.Error(),
			)
			unavailable(c.Writer)
			c.Abort()
			return
		}

		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.Transport = f.transport

		director := proxy.Director
		proxy.Director = func(req *http.Request) {
			director(req)
			req.Host = target.Host

			// Never trust identity headers from the client.
			req.Header.Del(HeaderUserID)
			req.Header.Del(HeaderUserEmail)
			req.Header.Set(HeaderUserID, principal.ID)
			req.Header.Set(HeaderUserEmail, principal.Email)
		}

		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				// Client went away mid-forward; the in-flight downstream
				// call has already been abandoned with it.
				f.logger.Debug("client disconnected during forward",
					"path", r.URL.Path,
				)
				return
			}
			f.logger.Error("downstream forward failed",
				"method", r.Method,
				"path", r.URL.Path,
				"target", target.Host,
				"error", err.Error(),
			)
			unavailable(w)
		}

		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// unavailable writes the uniform downstream-failure response. Internal
// error detail stays in the log, never in the body.
func unavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"success":false,"error":"service unavailable"}`))
}
