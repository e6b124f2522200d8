package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

func TestCurrentHourStart_Canonicity(t *testing.T) {
	now := mustParse(t, "2025-06-15T14:30:45Z")
	hs := currentHourStart(now)

	assert.Equal(t, 0, hs.Minute())
	assert.Equal(t, 0, hs.Second())
	assert.Equal(t, 0, hs.Nanosecond())
	assert.True(t, now.Sub(hs) < time.Hour)
	assert.Equal(t, mustParse(t, "2025-06-15T14:00:00Z"), hs)
}

func TestCurrentDayStart(t *testing.T) {
	now := mustParse(t, "2025-06-15T14:30:45Z")
	assert.Equal(t, mustParse(t, "2025-06-15T00:00:00Z"), currentDayStart(now))
}

func TestHourContiguity(t *testing.T) {
	now := mustParse(t, "2025-12-31T23:45:00Z")
	assert.Equal(t, nextHourStart(now), nextHourStart(currentHourStart(now)))
	assert.Equal(t, mustParse(t, "2026-01-01T00:00:00Z"), nextHourStart(now))
}

func TestDayContiguity_MonthRollover(t *testing.T) {
	now := mustParse(t, "2025-01-31T23:00:00Z")
	assert.Equal(t, mustParse(t, "2025-02-01T00:00:00Z"), nextDayStart(now))
	assert.Equal(t, nextDayStart(now), nextDayStart(currentDayStart(now)))
}

func TestSubscriptionMonthStart_NoAnchor(t *testing.T) {
	now := mustParse(t, "2025-06-15T14:30:45Z")
	assert.Equal(t, mustParse(t, "2025-06-01T00:00:00Z"), subscriptionMonthStart(nil, now))
	assert.Equal(t, mustParse(t, "2025-07-01T00:00:00Z"), nextSubscriptionMonthStart(nil, now))
}

// S4 — subscription-month short-month clamp.
func TestSubscriptionMonthStart_ShortMonthClamp(t *testing.T) {
	anchor := mustParse(t, "2025-01-31T00:00:00Z")

	got := subscriptionMonthStart(&anchor, mustParse(t, "2025-02-15T10:00:00Z"))
	assert.Equal(t, mustParse(t, "2025-01-31T00:00:00Z"), got)

	got = subscriptionMonthStart(&anchor, mustParse(t, "2025-02-28T00:00:00Z"))
	assert.Equal(t, mustParse(t, "2025-02-28T00:00:00Z"), got)

	next := nextSubscriptionMonthStart(&anchor, mustParse(t, "2025-01-31T00:00:00Z"))
	assert.Equal(t, mustParse(t, "2025-02-28T00:00:00Z"), next)
}

func TestSubscriptionMonthStart_BoundaryEqualityBelongsToCurrentMonth(t *testing.T) {
	anchor := mustParse(t, "2025-03-10T00:00:00Z")
	now := mustParse(t, "2025-04-10T00:00:00Z") // d == E(Y,M)
	assert.Equal(t, mustParse(t, "2025-04-10T00:00:00Z"), subscriptionMonthStart(&anchor, now))
}

func TestSubscriptionMonthContiguity(t *testing.T) {
	anchor := mustParse(t, "2025-01-31T00:00:00Z")
	now := mustParse(t, "2025-03-20T00:00:00Z")

	cur := subscriptionMonthStart(&anchor, now)
	assert.Equal(t, nextSubscriptionMonthStart(&anchor, now), nextSubscriptionMonthStart(&anchor, cur))
}

func TestEffectiveDayInMonth(t *testing.T) {
	assert.Equal(t, 28, effectiveDayInMonth(31, 2025, time.February))
	assert.Equal(t, 29, effectiveDayInMonth(31, 2024, time.February)) // leap year
	assert.Equal(t, 15, effectiveDayInMonth(15, 2025, time.June))
}
