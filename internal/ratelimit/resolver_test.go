package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConfig(t *testing.T, none RateLimits, others map[string]RateLimits) RateLimitsConfig {
	t.Helper()
	cfg, err := NewRateLimitsConfig(none, others)
	require.NoError(t, err)
	return cfg
}

func TestResolve_EmptySetFallsBackToNone(t *testing.T) {
	cfg := mustConfig(t, RateLimits{Hourly: BoundedLimit(2)}, nil)
	got := Resolve(NewEntitlementSet(), cfg)
	assert.Equal(t, cfg.None, got)
}

func TestResolve_SingleKnownEntitlement(t *testing.T) {
	starter := RateLimits{Hourly: BoundedLimit(500)}
	cfg := mustConfig(t, RateLimits{Hourly: BoundedLimit(100)}, map[string]RateLimits{"starter": starter})

	got := Resolve(NewEntitlementSet("starter"), cfg)
	assert.Equal(t, starter, got)
}

// Invariant 5 — unknown-entitlement fallback.
func TestResolve_SingleUnknownEntitlementFallsBackToNone(t *testing.T) {
	cfg := mustConfig(t, RateLimits{Hourly: BoundedLimit(100)}, map[string]RateLimits{
		"starter": {Hourly: BoundedLimit(500)},
	})

	got := Resolve(NewEntitlementSet("ghost-tier"), cfg)
	assert.Equal(t, Resolve(NewEntitlementSet("none"), cfg), got)
	assert.Equal(t, cfg.None, got)
}

// S3 — multi-entitlement upper bound.
func TestResolve_MultiEntitlementUpperBoundJoin(t *testing.T) {
	cfg := mustConfig(t,
		RateLimits{Hourly: BoundedLimit(5), Daily: BoundedLimit(20), Monthly: BoundedLimit(100)},
		map[string]RateLimits{
			"starter": {Hourly: BoundedLimit(10), Daily: BoundedLimit(50), Monthly: BoundedLimit(500)},
			"pro":     {Hourly: BoundedLimit(100), Daily: UnlimitedLimit(), Monthly: UnlimitedLimit()},
		},
	)

	got := Resolve(NewEntitlementSet("starter", "pro"), cfg)

	assert.Equal(t, RateLimits{
		Hourly:  BoundedLimit(100),
		Daily:   UnlimitedLimit(),
		Monthly: UnlimitedLimit(),
	}, got)
}

// Invariant 4 — upper-bound join, unlimited dominance and max-of-present.
func TestResolve_UpperBoundJoinDominanceAndMax(t *testing.T) {
	cfg := mustConfig(t, RateLimits{}, map[string]RateLimits{
		"a": {Hourly: BoundedLimit(10)},
		"b": {Hourly: UnlimitedLimit()},
		"c": {Hourly: BoundedLimit(30)},
	})

	got := Resolve(NewEntitlementSet("a", "b", "c"), cfg)
	assert.True(t, got.Hourly.IsUnlimited())

	cfg2 := mustConfig(t, RateLimits{}, map[string]RateLimits{
		"a": {Hourly: BoundedLimit(10)},
		"c": {Hourly: BoundedLimit(30)},
	})
	got2 := Resolve(NewEntitlementSet("a", "c"), cfg2)
	bound, ok := got2.Hourly.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(30), bound)
}

func TestResolve_UnknownNameWithinMultiSetFallsBackToNoneBeforeJoining(t *testing.T) {
	cfg := mustConfig(t, RateLimits{Hourly: BoundedLimit(5)}, map[string]RateLimits{
		"starter": {Hourly: BoundedLimit(3)},
	})

	got := Resolve(NewEntitlementSet("starter", "ghost"), cfg)
	bound, ok := got.Hourly.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(5), bound) // none's 5 beats starter's 3
}
