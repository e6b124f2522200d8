package service

import (
	"github.com/flexprice/ratelimiter/internal/config"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
)

// BuildRateLimitsConfig converts the YAML-decoded RateLimitConfig into
// the domain's RateLimitsConfig, translating the nil-means-unlimited
// convention on each *int64 field into the Limit sum type (§3 "absent
// is a first-class value", §9 Design Notes).
func BuildRateLimitsConfig(cfg config.RateLimitConfig) (ratelimit.RateLimitsConfig, error) {
	none, ok := cfg.Entitlements["none"]
	if !ok {
		return ratelimit.RateLimitsConfig{}, ratelimit.ErrMissingNoneTier()
	}

	others := make(map[string]ratelimit.RateLimits, len(cfg.Entitlements)-1)
	for name, tier := range cfg.Entitlements {
		if name == "none" {
			continue
		}
		others[name] = rateLimitsFromTier(tier)
	}

	return ratelimit.NewRateLimitsConfig(rateLimitsFromTier(none), others)
}

func rateLimitsFromTier(tier config.RateLimitTierConfig) ratelimit.RateLimits {
	return ratelimit.RateLimits{
		Hourly:  limitFromPtr(tier.Hourly),
		Daily:   limitFromPtr(tier.Daily),
		Monthly: limitFromPtr(tier.Monthly),
	}
}

func limitFromPtr(n *int64) ratelimit.Limit {
	if n == nil {
		return ratelimit.UnlimitedLimit()
	}
	return ratelimit.BoundedLimit(*n)
}
