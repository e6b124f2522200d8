package provider

import (
	"context"
	"time"

	"github.com/flexprice/ratelimiter/internal/ratelimit"
)

// SubscriptionSnapshot is the external-collaborator contract's result
// shape (§4.E of SPEC_FULL.md): the caller's currently active
// entitlements and the earliest purchase date among them.
type SubscriptionSnapshot struct {
	Entitlements          ratelimit.EntitlementSet
	SubscriptionStartedAt *time.Time
}

// NoneSnapshot is the fallback snapshot substituted whenever a lookup
// fails or the user is unknown to the provider.
func NoneSnapshot() SubscriptionSnapshot {
	return SubscriptionSnapshot{
		Entitlements:          ratelimit.NewEntitlementSet("none"),
		SubscriptionStartedAt: nil,
	}
}

// SubscriptionProvider is the Subscription Provider Adapter contract.
// A "user unknown to provider" result is NOT an error — it is
// represented as NoneSnapshot(). Only transport/5xx failures return a
// non-nil error; the engine itself never retries (§7).
type SubscriptionProvider interface {
	Lookup(ctx context.Context, userID string) (SubscriptionSnapshot, error)
}
