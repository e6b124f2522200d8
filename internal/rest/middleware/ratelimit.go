package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/gin-gonic/gin"
)

// UserIDExtractor pulls the caller's userID out of a request (§4.F
// step 2). The HTTP entrypoint binds this to whatever identifies a
// caller for this deployment — here, the tenant-scoped user ID the
// auth middleware already placed in the request context.
type UserIDExtractor func(c *gin.Context) string

// SkipPredicate is the caller-supplied admin/bypass hook (§4.F step 1).
type SkipPredicate func(c *gin.Context) bool

var exceededLimitMessages = map[ratelimit.PeriodType]string{
	ratelimit.PeriodHourly:  "hourly",
	ratelimit.PeriodDaily:   "daily",
	ratelimit.PeriodMonthly: "monthly",
}

// RateLimitMiddleware implements the Middleware Shell (§4.F): skip
// check, userID extraction, provider lookup (with its {"none"} fallback
// handled inside the service), resolver, checkAndIncrement, response
// headers, and the 429 JSON body on rejection.
func RateLimitMiddleware(svc service.RateLimitService, extractUserID UserIDExtractor, shouldSkip SkipPredicate, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldSkip != nil && shouldSkip(c) {
			c.Next()
			return
		}

		userID := extractUserID(c)
		decision, err := svc.Admit(c.Request.Context(), userID, time.Now().UTC())
		if err != nil {
			log.WithContext(c.Request.Context()).Errorw("rate limit check failed", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "rate limit check failed"})
			return
		}

		setRemainingHeaders(c, decision.Remaining)

		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, rejectionBody(decision))
			return
		}

		c.Next()
	}
}

func setRemainingHeaders(c *gin.Context, remaining ratelimit.Remaining) {
	if remaining.Hourly != nil {
		c.Header("X-RateLimit-Hourly-Remaining", strconv.FormatInt(*remaining.Hourly, 10))
	}
	if remaining.Daily != nil {
		c.Header("X-RateLimit-Daily-Remaining", strconv.FormatInt(*remaining.Daily, 10))
	}
	if remaining.Monthly != nil {
		c.Header("X-RateLimit-Monthly-Remaining", strconv.FormatInt(*remaining.Monthly, 10))
	}
}

// rejectionBody builds the exact §6 shape: remaining fields whose
// underlying limit is unlimited are omitted.
func rejectionBody(decision ratelimit.AdmissionDecision) gin.H {
	remaining := gin.H{}
	if decision.Remaining.Hourly != nil {
		remaining["hourly"] = *decision.Remaining.Hourly
	}
	if decision.Remaining.Daily != nil {
		remaining["daily"] = *decision.Remaining.Daily
	}
	if decision.Remaining.Monthly != nil {
		remaining["monthly"] = *decision.Remaining.Monthly
	}

	var exceeded string
	if decision.ExceededLimit != nil {
		exceeded = exceededLimitMessages[*decision.ExceededLimit]
	}

	return gin.H{
		"success":       false,
		"error":         "Rate limit exceeded",
		"message":       "You have exceeded your " + exceeded + " request limit. Please try again later or upgrade your subscription.",
		"remaining":     remaining,
		"exceededLimit": exceeded,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
}

