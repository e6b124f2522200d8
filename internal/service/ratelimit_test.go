package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/provider"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/flexprice/ratelimiter/internal/service"
	"github.com/flexprice/ratelimiter/internal/testutil"
	"github.com/flexprice/ratelimiter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// erroringProvider always fails, exercising §4.F step 3's fallback to
// the "none" tier.
type erroringProvider struct{}

func (erroringProvider) Lookup(_ context.Context, _ string) (provider.SubscriptionSnapshot, error) {
	return provider.SubscriptionSnapshot{}, assert.AnError
}

func newTestService(t *testing.T, prov provider.SubscriptionProvider) (service.RateLimitService, *testutil.InMemoryRateLimitCounterStore) {
	t.Helper()

	store := testutil.NewInMemoryRateLimitCounterStore()
	engine := ratelimit.NewEngine(store)

	none := ratelimit.RateLimits{
		Hourly:  ratelimit.BoundedLimit(2),
		Daily:   ratelimit.BoundedLimit(5),
		Monthly: ratelimit.BoundedLimit(20),
	}
	cfg, err := ratelimit.NewRateLimitsConfig(none, nil)
	require.NoError(t, err)

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}

	return service.NewRateLimitService(engine, cfg, prov, log), store
}

func TestRateLimitService_Admit_FallsBackToNoneOnProviderError(t *testing.T) {
	svc, store := newTestService(t, erroringProvider{})
	ctx := testutil.SetupContext()
	now := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

	decision, err := svc.Admit(ctx, types.DefaultUserID, now)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	require.NotNil(t, decision.Remaining.Hourly)
	assert.Equal(t, int64(1), *decision.Remaining.Hourly)
	assert.Len(t, store.Rows(), 3)
}

func TestRateLimitService_Status_DoesNotIncrement(t *testing.T) {
	svc, store := newTestService(t, erroringProvider{})
	ctx := testutil.SetupContext()
	now := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

	decision, err := svc.Status(ctx, types.DefaultUserID, now)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, store.Rows())
}

func TestRateLimitService_Admit_RejectsAfterHourlyLimit(t *testing.T) {
	svc, _ := newTestService(t, erroringProvider{})
	ctx := testutil.SetupContext()
	now := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

	for i := 0; i < 2; i++ {
		decision, err := svc.Admit(ctx, types.DefaultUserID, now)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := svc.Admit(ctx, types.DefaultUserID, now)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	require.NotNil(t, decision.ExceededLimit)
	assert.Equal(t, ratelimit.PeriodHourly, *decision.ExceededLimit)
}
