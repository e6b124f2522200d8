package api

import (
	v1 "github.com/flexprice/ratelimiter/internal/api/v1"
	"github.com/flexprice/ratelimiter/internal/config"
	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/rest/middleware"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/flexprice/ratelimiter/internal/types"
	"github.com/gin-gonic/gin"
)

// Handlers groups every v1 handler the router wires up. A single small
// struct rather than per-handler fx.Provide plumbing, since this
// service exposes a handful of routes rather than the teacher's full
// billing surface.
type Handlers struct {
	Health    *v1.HealthHandler
	RateLimit *v1.RateLimitHandler
}

// NewRouter builds the gin engine: request ID, CORS, and Sentry
// middleware globally; API-key auth on the private group; the rate
// limit shell only on the guarded /v1/ping subgroup.
func NewRouter(handlers Handlers, cfg *config.Configuration, svc service.RateLimitService, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
	)

	router.GET("/healthz", handlers.Health.Health)

	private := router.Group("/", middleware.APIKeyAuthMiddleware(cfg, log))
	private.Use(middleware.ErrorHandler())

	v1Group := private.Group("/v1")
	{
		// Status/History are read-only introspection endpoints
		// (SPEC_FULL.md §4 items 3-4) — they must NOT sit behind
		// RateLimitMiddleware, which would spend (and could reject)
		// a request just to let a client check its own quota.
		v1Group.GET("/rate-limit/status", handlers.RateLimit.Status)
		v1Group.GET("/rate-limit/history", handlers.RateLimit.History)

		guarded := v1Group.Group("/")
		guarded.Use(middleware.RateLimitMiddleware(svc, extractUserID, nil, log))
		guarded.GET("/ping", handlers.RateLimit.Ping)
	}

	return router
}

// extractUserID is the userId extractor §4.F step 2 calls for: the
// API-key auth middleware has already placed the caller's userID in
// the request context.
func extractUserID(c *gin.Context) string {
	return types.GetUserID(c.Request.Context())
}
