package service

import (
	"context"
	"time"

	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/provider"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
)

// RateLimitService composes the Entitlement Resolver, the Rate-Limit
// Engine, and the Subscription Provider Adapter behind the three
// operations the transport layer (middleware + HTTP handlers) needs.
// It is the one place that implements §4.F step 3's provider-failure
// fallback to {"none"}/absent.
type RateLimitService interface {
	// Admit runs the full checkAndIncrement path for userID.
	Admit(ctx context.Context, userID string, now time.Time) (ratelimit.AdmissionDecision, error)
	// Status runs the read-only checkOnly path for userID.
	Status(ctx context.Context, userID string, now time.Time) (ratelimit.AdmissionDecision, error)
	// History returns usage history for userID/periodType.
	History(ctx context.Context, userID string, periodType ratelimit.PeriodType, limit int) ([]ratelimit.HistoryEntry, error)
}

type rateLimitService struct {
	engine   *ratelimit.Engine
	config   ratelimit.RateLimitsConfig
	provider provider.SubscriptionProvider
	log      *logger.Logger
}

// NewRateLimitService builds the service. config is the decoded
// RateLimitsConfig (BuildRateLimitsConfig); it is immutable for the
// process lifetime — entitlement tiers change via redeploy, not at
// runtime.
func NewRateLimitService(engine *ratelimit.Engine, config ratelimit.RateLimitsConfig, prov provider.SubscriptionProvider, log *logger.Logger) RateLimitService {
	return &rateLimitService{engine: engine, config: config, provider: prov, log: log}
}

// lookupSnapshot implements §4.F step 3: on provider error, fall back to
// {"none"}/absent and log — the engine itself never retries (§7
// ProviderLookupError policy).
func (s *rateLimitService) lookupSnapshot(ctx context.Context, userID string) provider.SubscriptionSnapshot {
	snapshot, err := s.provider.Lookup(ctx, userID)
	if err != nil {
		s.log.WithContext(ctx).Warnw("subscription provider lookup failed, falling back to none tier",
			"user_id", userID, "error", err)
		return provider.NoneSnapshot()
	}
	return snapshot
}

func (s *rateLimitService) Admit(ctx context.Context, userID string, now time.Time) (ratelimit.AdmissionDecision, error) {
	snapshot := s.lookupSnapshot(ctx, userID)
	limits := ratelimit.Resolve(snapshot.Entitlements, s.config)
	return s.engine.CheckAndIncrement(ctx, userID, limits, snapshot.SubscriptionStartedAt, now)
}

func (s *rateLimitService) Status(ctx context.Context, userID string, now time.Time) (ratelimit.AdmissionDecision, error) {
	snapshot := s.lookupSnapshot(ctx, userID)
	limits := ratelimit.Resolve(snapshot.Entitlements, s.config)
	return s.engine.CheckOnly(ctx, userID, limits, snapshot.SubscriptionStartedAt, now)
}

func (s *rateLimitService) History(ctx context.Context, userID string, periodType ratelimit.PeriodType, limit int) ([]ratelimit.HistoryEntry, error) {
	snapshot := s.lookupSnapshot(ctx, userID)
	return s.engine.GetHistory(ctx, userID, periodType, snapshot.SubscriptionStartedAt, limit)
}
