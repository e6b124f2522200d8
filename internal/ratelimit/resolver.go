package ratelimit

// Resolve maps a set of active entitlement names to an effective
// RateLimits triple (§4.B). Unknown entitlement names within a
// multi-entitlement set fall back to config's "none" row before
// joining; a lone unknown name behaves identically to resolving
// {"none"} (invariant 5, §8).
func Resolve(entitlements EntitlementSet, config RateLimitsConfig) RateLimits {
	if len(entitlements) == 0 {
		return config.None
	}

	names := entitlements.Slice()
	if len(names) == 1 {
		return config.Lookup(names[0])
	}

	rows := make([]RateLimits, 0, len(names))
	for _, name := range names {
		rows = append(rows, config.Lookup(name))
	}
	return joinUpperBound(rows)
}
