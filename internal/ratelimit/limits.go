package ratelimit

import ierr "github.com/flexprice/ratelimiter/internal/errors"

// Limit is either Unlimited or a non-negative Bounded(n). It is modeled as
// a dedicated sum type rather than a sentinel (e.g. -1 or nil) so that a
// bounded limit of zero can never be confused with "no ceiling".
type Limit struct {
	bounded bool
	n       int64
}

// UnlimitedLimit returns the absent/unlimited member of the sum type.
func UnlimitedLimit() Limit {
	return Limit{}
}

// BoundedLimit returns a present, numeric limit. n may be zero, meaning
// "no requests admitted in this period" — distinct from Unlimited.
func BoundedLimit(n int64) Limit {
	return Limit{bounded: true, n: n}
}

// IsUnlimited reports whether this limit is absent.
func (l Limit) IsUnlimited() bool {
	return !l.bounded
}

// Value returns the bound and whether it is present.
func (l Limit) Value() (int64, bool) {
	return l.n, l.bounded
}

// max returns the field-wise upper bound of two limits: Unlimited
// dominates any Bounded value, otherwise the larger Bounded value wins.
func (l Limit) max(other Limit) Limit {
	if l.IsUnlimited() || other.IsUnlimited() {
		return UnlimitedLimit()
	}
	if other.n > l.n {
		return other
	}
	return l
}

// RateLimits is the effective {hourly, daily, monthly} budget triple for
// a caller, after entitlement resolution.
type RateLimits struct {
	Hourly  Limit
	Daily   Limit
	Monthly Limit
}

// ForPeriod returns the limit for a given period type.
func (r RateLimits) ForPeriod(p PeriodType) Limit {
	switch p {
	case PeriodHourly:
		return r.Hourly
	case PeriodDaily:
		return r.Daily
	case PeriodMonthly:
		return r.Monthly
	default:
		return UnlimitedLimit()
	}
}

// joinUpperBound computes the field-wise upper-bound join across a set of
// RateLimits rows (§4.B of SPEC_FULL.md).
func joinUpperBound(rows []RateLimits) RateLimits {
	if len(rows) == 0 {
		return RateLimits{}
	}
	joined := rows[0]
	for _, r := range rows[1:] {
		joined.Hourly = joined.Hourly.max(r.Hourly)
		joined.Daily = joined.Daily.max(r.Daily)
		joined.Monthly = joined.Monthly.max(r.Monthly)
	}
	return joined
}

// RateLimitsConfig is the "none" tier plus arbitrary named entitlement
// tiers. "none" is required at construction time rather than modeled as
// a single nullable map, per the Design Notes' "entity polymorphism over
// a config dictionary" recommendation — this moves the required-key
// invariant to construction instead of to every lookup call site.
type RateLimitsConfig struct {
	None   RateLimits
	Others map[string]RateLimits
}

// NewRateLimitsConfig builds a RateLimitsConfig. The "none" tier is a
// required parameter, so it cannot be absent here and the returned error
// is always nil; the missing-"none" ConfigError (§7) is raised earlier,
// by config decoding (ErrMissingNoneTier).
func NewRateLimitsConfig(none RateLimits, others map[string]RateLimits) (RateLimitsConfig, error) {
	if others == nil {
		others = map[string]RateLimits{}
	}
	return RateLimitsConfig{None: none, Others: others}, nil
}

// Lookup returns the RateLimits row for an entitlement name, falling
// back to "none" for unknown names.
func (c RateLimitsConfig) Lookup(name string) RateLimits {
	if name == "none" {
		return c.None
	}
	if rl, ok := c.Others[name]; ok {
		return rl
	}
	return c.None
}

// EntitlementSet is an unordered set of entitlement names. An empty set
// is treated as {"none"} by the resolver, not specially here.
type EntitlementSet map[string]struct{}

// NewEntitlementSet builds a set from a slice of names, deduplicating.
func NewEntitlementSet(names ...string) EntitlementSet {
	set := make(EntitlementSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Slice returns the set's members; order is unspecified.
func (s EntitlementSet) Slice() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	return out
}

var errMissingNoneTier = ierr.NewError("rate_limit.entitlements.none is required").
	WithHint("configure a \"none\" tier for users with no active entitlement").
	Mark(ierr.ErrConfiguration)

// ErrMissingNoneTier is returned by config decoding when the required
// "none" key is absent from the configured tiers.
func ErrMissingNoneTier() error {
	return errMissingNoneTier
}
