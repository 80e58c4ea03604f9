// Package gateway wires the authentication gateway's HTTP surface: the
// auth endpoints, the session-aware middleware chain, the authorization
// guard, and the reverse-proxy dispatcher for downstream traffic.
package gateway

import (
	"net/http"

	"authgate/internal/audit"
	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/guard"
	"authgate/internal/identity"
	"authgate/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the gateway router.
func SetupRouter(
	cfg *config.Config,
	sessions session.Manager,
	provider identity.Provider,
	publisher audit.Publisher,
	forwarder *Forwarder,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logging())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "auth-gateway",
		})
	})

	authHandler := auth.NewHandler(provider, sessions, publisher, cfg.InactivityWindow, cfg.SecureCookies)
	authHandler.RegisterRoutes(r)

	// Where unauthenticated browsers land. Rendering the page itself is
	// the frontend's job.
	r.GET(cfg.LoginPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "authentication required, sign in via POST /auth/login"})
	})

	policy := guard.NewPolicy(cfg.ProtectedPrefixes)

	// Everything not handled above flows through authenticate -> guard ->
	// forward. Only protected traffic is forwarded; the gateway owns no
	// other routes.
	r.NoRoute(
		Authenticate(sessions, provider, cfg.SecureCookies),
		Authorize(policy, cfg.LoginPath),
		requireProtected(policy),
		forwarder.Handle(),
	)

	return r
}

// requireProtected stops paths outside the protected prefixes from reaching
// the forwarder: the downstream only ever sees traffic the guard verified,
// so every forwarded request carries a principal.
func requireProtected(policy guard.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !policy.Protected(c.Request.URL.Path) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "not found",
			})
			return
		}
		c.Next()
	}
}
