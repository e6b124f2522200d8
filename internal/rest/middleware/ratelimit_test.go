package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/provider"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/flexprice/ratelimiter/internal/rest/middleware"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/flexprice/ratelimiter/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, hourly int64) (*gin.Engine, *testutil.InMemoryRateLimitCounterStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewInMemoryRateLimitCounterStore()
	engine := ratelimit.NewEngine(store)
	cfg, err := ratelimit.NewRateLimitsConfig(ratelimit.RateLimits{
		Hourly:  ratelimit.BoundedLimit(hourly),
		Daily:   ratelimit.UnlimitedLimit(),
		Monthly: ratelimit.UnlimitedLimit(),
	}, nil)
	require.NoError(t, err)

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	svc := service.NewRateLimitService(engine, cfg, provider.NewStaticProvider(nil), log)

	router := gin.New()
	router.Use(middleware.RateLimitMiddleware(svc, func(c *gin.Context) string {
		return c.GetHeader("X-Test-User")
	}, nil, log))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return router, store
}

func TestRateLimitMiddleware_SetsRemainingHeaderAndAllows(t *testing.T) {
	router, _ := newTestRouter(t, 2)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Test-User", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Hourly-Remaining"))
}

func TestRateLimitMiddleware_Returns429WithBodyWhenExceeded(t *testing.T) {
	router, _ := newTestRouter(t, 1)

	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Test-User", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := makeRequest()
	require.Equal(t, http.StatusOK, first.Code)

	second := makeRequest()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), `"error":"Rate limit exceeded"`)
	assert.Contains(t, second.Body.String(), `"exceededLimit":"hourly"`)
}
