package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/flexprice/ratelimiter/internal/types"
	"github.com/gin-gonic/gin"
)

// RateLimitHandler exposes the supplemented introspection endpoints
// (SPEC_FULL.md §4 items 3-4): history and status never mutate
// counters, unlike the guarded demo route the middleware protects.
type RateLimitHandler struct {
	svc    service.RateLimitService
	logger *logger.Logger
}

func NewRateLimitHandler(svc service.RateLimitService, logger *logger.Logger) *RateLimitHandler {
	return &RateLimitHandler{svc: svc, logger: logger}
}

// Ping is the demo protected route the rate limiter middleware guards.
func (h *RateLimitHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Status runs checkOnly for the caller without incrementing counters.
func (h *RateLimitHandler) Status(c *gin.Context) {
	userID := types.GetUserID(c.Request.Context())

	decision, err := h.svc.Status(c.Request.Context(), userID, time.Now().UTC())
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Errorw("rate limit status check failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "rate limit status check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed":   decision.Allowed,
		"remaining": remainingPayload(decision.Remaining),
	})
}

// History returns usage history for the caller's (userID, periodType).
func (h *RateLimitHandler) History(c *gin.Context) {
	userID := types.GetUserID(c.Request.Context())

	periodType := ratelimit.PeriodType(c.Query("periodType"))
	switch periodType {
	case ratelimit.PeriodHourly, ratelimit.PeriodDaily, ratelimit.PeriodMonthly:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "periodType must be hourly, daily, or monthly"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.svc.History(c.Request.Context(), userID, periodType, limit)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Errorw("rate limit history lookup failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "rate limit history lookup failed"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"periodStart":  e.PeriodStart,
			"periodEnd":    e.PeriodEnd,
			"requestCount": e.RequestCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func remainingPayload(remaining ratelimit.Remaining) gin.H {
	out := gin.H{}
	if remaining.Hourly != nil {
		out["hourly"] = *remaining.Hourly
	}
	if remaining.Daily != nil {
		out["daily"] = *remaining.Daily
	}
	if remaining.Monthly != nil {
		out["monthly"] = *remaining.Monthly
	}
	return out
}
