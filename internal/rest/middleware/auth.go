package middleware

import (
	"context"
	"net/http"

	"github.com/flexprice/ratelimiter/internal/auth"
	"github.com/flexprice/ratelimiter/internal/config"
	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/types"
	"github.com/gin-gonic/gin"
)

// setContextValues sets the tenant ID and user ID in the request context.
func setContextValues(c *gin.Context, tenantID, userID string) {
	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, userID)
	c.Request = c.Request.WithContext(ctx)
}

// APIKeyAuthMiddleware is the only authentication scheme this service
// exposes: a config-issued API key in the configured header (no JWT, no
// database-backed secrets — SPEC_FULL.md drops the original's
// multi-scheme auth surface as out of scope for a rate limiter).
func APIKeyAuthMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(cfg.Auth.APIKey.Header)
		tenantID, userID, valid := auth.ValidateAPIKey(cfg, apiKey)
		if !valid {
			log.Debugw("invalid api key")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			c.Abort()
			return
		}

		setContextValues(c, tenantID, userID)
		c.Next()
	}
}
