package ratelimit

import (
	"context"
	"time"
)

// CounterStore abstracts the relational store behind the three
// operations the engine needs (§4.C), plus the administrative
// ResetPeriod. Implementations must make
// IncrementOrInsert safe under concurrent callers for the same key —
// the unique index on (user_id, period_type, period_start) makes
// double-insert impossible, but the increment itself should be an
// atomic upsert rather than a read-then-write pair wherever the
// backing store supports it (§9 open question, resolved in
// DESIGN.md: this module takes the atomic path by default).
type CounterStore interface {
	// GetCount returns request_count for the unique row, or 0 if no
	// row exists. Never fails on absence.
	GetCount(ctx context.Context, userID string, periodType PeriodType, periodStart time.Time) (int64, error)

	// IncrementOrInsert increments the matching row's request_count,
	// or inserts a new row with request_count = 1 if none exists. It
	// returns the post-increment count.
	IncrementOrInsert(ctx context.Context, userID string, periodType PeriodType, periodStart, now time.Time) (int64, error)

	// History returns up to limit rows for (userID, periodType)
	// ordered by period_start descending (most recent first).
	History(ctx context.Context, userID string, periodType PeriodType, limit int) ([]CounterRow, error)

	// ResetPeriod clears a single period's counter back to zero,
	// deleting the row if present. Administrative operation, not part
	// of the core engine's request path (SPEC_FULL.md §4 supplemented
	// feature 5).
	ResetPeriod(ctx context.Context, userID string, periodType PeriodType, periodStart time.Time) error
}
