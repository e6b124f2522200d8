package provider

import (
	"context"
	"time"

	"github.com/flexprice/ratelimiter/internal/ratelimit"
)

// StaticEntry is one user's canned subscription state for the
// static/config-driven adapter.
type StaticEntry struct {
	Entitlements          []string
	SubscriptionStartedAt *time.Time
}

// StaticProvider is a config-driven SubscriptionProvider used when no
// live subscription provider is configured (ProviderConfig.BaseURL
// empty — SPEC_FULL.md §4 supplemented feature 6). It never returns an
// error: unknown users resolve to NoneSnapshot(), matching the "user
// unknown to provider" contract in §4.E.
type StaticProvider struct {
	entries map[string]StaticEntry
}

// NewStaticProvider builds a static provider from a fixed user->entry map.
func NewStaticProvider(entries map[string]StaticEntry) *StaticProvider {
	if entries == nil {
		entries = map[string]StaticEntry{}
	}
	return &StaticProvider{entries: entries}
}

func (p *StaticProvider) Lookup(_ context.Context, userID string) (SubscriptionSnapshot, error) {
	entry, ok := p.entries[userID]
	if !ok {
		return NoneSnapshot(), nil
	}
	return SubscriptionSnapshot{
		Entitlements:          ratelimit.NewEntitlementSet(entry.Entitlements...),
		SubscriptionStartedAt: entry.SubscriptionStartedAt,
	}, nil
}
