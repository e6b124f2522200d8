package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flexprice/ratelimiter/internal/api"
	v1 "github.com/flexprice/ratelimiter/internal/api/v1"
	"github.com/flexprice/ratelimiter/internal/auth"
	"github.com/flexprice/ratelimiter/internal/config"
	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/provider"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/flexprice/ratelimiter/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key"

func newTestRouter(t *testing.T) (*gin.Engine, *testutil.InMemoryRateLimitCounterStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewInMemoryRateLimitCounterStore()
	engine := ratelimit.NewEngine(store)
	rlCfg, err := ratelimit.NewRateLimitsConfig(ratelimit.RateLimits{
		Hourly:  ratelimit.BoundedLimit(1),
		Daily:   ratelimit.UnlimitedLimit(),
		Monthly: ratelimit.UnlimitedLimit(),
	}, nil)
	require.NoError(t, err)

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	svc := service.NewRateLimitService(engine, rlCfg, provider.NewStaticProvider(nil), log)

	cfg := &config.Configuration{
		Auth: config.AuthConfig{
			APIKey: config.APIKeyConfig{
				Header: "x-api-key",
				Keys: map[string]config.APIKeyDetails{
					auth.HashAPIKey(testAPIKey): {
						TenantID: "tenant-1",
						UserID:   "user-1",
						Name:     "test",
						IsActive: true,
					},
				},
			},
		},
	}

	handlers := api.Handlers{
		Health:    v1.NewHealthHandler(log),
		RateLimit: v1.NewRateLimitHandler(svc, log),
	}

	return api.NewRouter(handlers, cfg, svc, log), store
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("x-api-key", testAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestRouter_StatusEndpointDoesNotIncrement guards against the rate
// limit shell being mounted over the whole /v1 group: the read-only
// status/history introspection endpoints (SPEC_FULL.md §4 items 3-4)
// must never spend or reject a request.
func TestRouter_StatusEndpointDoesNotIncrement(t *testing.T) {
	router, store := newTestRouter(t)

	first := doRequest(router, http.MethodGet, "/v1/rate-limit/status")
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, http.MethodGet, "/v1/rate-limit/status")
	assert.Equal(t, http.StatusOK, second.Code)

	assert.Empty(t, store.Rows())
}

func TestRouter_PingIsGuardedByRateLimitMiddleware(t *testing.T) {
	router, _ := newTestRouter(t)

	first := doRequest(router, http.MethodGet, "/v1/ping")
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, http.MethodGet, "/v1/ping")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouter_HealthzIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
