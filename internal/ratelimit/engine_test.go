package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inMemoryStore is a minimal CounterStore double for engine white-box
// tests. It is deliberately separate from
// testutil.InMemoryRateLimitCounterStore (which depends on this
// package) to avoid an import cycle; the two share the same
// non-atomic-increment-is-fine-in-single-threaded-tests rationale
// recorded in DESIGN.md.
type inMemoryStore struct {
	mu   sync.Mutex
	rows map[string]*CounterRow
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{rows: make(map[string]*CounterRow)}
}

func (s *inMemoryStore) key(userID string, periodType PeriodType, periodStart time.Time) string {
	return userID + "|" + string(periodType) + "|" + periodStart.UTC().Format(time.RFC3339)
}

func (s *inMemoryStore) GetCount(_ context.Context, userID string, periodType PeriodType, periodStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[s.key(userID, periodType, periodStart)]
	if !ok {
		return 0, nil
	}
	return row.RequestCount, nil
}

func (s *inMemoryStore) IncrementOrInsert(_ context.Context, userID string, periodType PeriodType, periodStart, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(userID, periodType, periodStart)
	row, ok := s.rows[key]
	if !ok {
		row = &CounterRow{UserID: userID, PeriodType: periodType, PeriodStart: periodStart, CreatedAt: now}
		s.rows[key] = row
	}
	row.RequestCount++
	row.UpdatedAt = now
	return row.RequestCount, nil
}

func (s *inMemoryStore) History(_ context.Context, userID string, periodType PeriodType, limit int) ([]CounterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var rows []CounterRow
	for _, row := range s.rows {
		if row.UserID == userID && row.PeriodType == periodType {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PeriodStart.After(rows[j].PeriodStart) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *inMemoryStore) ResetPeriod(_ context.Context, userID string, periodType PeriodType, periodStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, s.key(userID, periodType, periodStart))
	return nil
}

func (s *inMemoryStore) Rows() []CounterRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]CounterRow, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, *row)
	}
	return rows
}

func newTestEngine() (*Engine, *inMemoryStore) {
	store := newInMemoryStore()
	return NewEngine(store), store
}

// S1 — first request on "none" tier.
func TestCheckAndIncrement_FirstRequestOnNoneTier(t *testing.T) {
	engine, store := newTestEngine()
	limits := RateLimits{
		Hourly:  BoundedLimit(2),
		Daily:   BoundedLimit(5),
		Monthly: BoundedLimit(20),
	}
	now := mustParse(t, "2025-06-15T14:30:45Z")

	decision, err := engine.CheckAndIncrement(context.Background(), "user-1", limits, nil, now)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	require.NotNil(t, decision.Remaining.Hourly)
	require.NotNil(t, decision.Remaining.Daily)
	require.NotNil(t, decision.Remaining.Monthly)
	assert.Equal(t, int64(1), *decision.Remaining.Hourly)
	assert.Equal(t, int64(4), *decision.Remaining.Daily)
	assert.Equal(t, int64(19), *decision.Remaining.Monthly)

	rows := store.Rows()
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, int64(1), row.RequestCount)
		switch row.PeriodType {
		case PeriodHourly:
			assert.Equal(t, mustParse(t, "2025-06-15T14:00:00Z"), row.PeriodStart)
		case PeriodDaily:
			assert.Equal(t, mustParse(t, "2025-06-15T00:00:00Z"), row.PeriodStart)
		case PeriodMonthly:
			assert.Equal(t, mustParse(t, "2025-06-01T00:00:00Z"), row.PeriodStart)
		}
	}
}

// S2 — hourly boundary.
func TestCheckAndIncrement_HourlyBoundary(t *testing.T) {
	engine, store := newTestEngine()
	limits := RateLimits{Hourly: BoundedLimit(2), Daily: BoundedLimit(5), Monthly: BoundedLimit(20)}

	ctx := context.Background()
	hourStart := mustParse(t, "2025-06-15T14:00:00Z")
	_, err := store.IncrementOrInsert(ctx, "user-1", PeriodHourly, hourStart, hourStart)
	require.NoError(t, err)
	_, err = store.IncrementOrInsert(ctx, "user-1", PeriodHourly, hourStart, hourStart)
	require.NoError(t, err)

	decision, err := engine.CheckAndIncrement(ctx, "user-1", limits, nil, mustParse(t, "2025-06-15T14:59:59Z"))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 429, decision.StatusCode)
	require.NotNil(t, decision.ExceededLimit)
	assert.Equal(t, PeriodHourly, *decision.ExceededLimit)
	require.NotNil(t, decision.Remaining.Hourly)
	assert.Equal(t, int64(0), *decision.Remaining.Hourly)

	count, err := store.GetCount(ctx, "user-1", PeriodHourly, hourStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "rejection must not increment counters")

	decision, err = engine.CheckAndIncrement(ctx, "user-1", limits, nil, mustParse(t, "2025-06-15T15:00:00Z"))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	count, err = store.GetCount(ctx, "user-1", PeriodHourly, mustParse(t, "2025-06-15T15:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// S3 — multi-entitlement upper bound: unlimited periods get no counter row.
func TestCheckAndIncrement_UnlimitedPeriodsSkipCounterWrites(t *testing.T) {
	engine, store := newTestEngine()
	limits := RateLimits{
		Hourly:  BoundedLimit(100),
		Daily:   UnlimitedLimit(),
		Monthly: UnlimitedLimit(),
	}
	now := mustParse(t, "2025-01-10T09:00:00Z")

	decision, err := engine.CheckAndIncrement(context.Background(), "user-1", limits, nil, now)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Remaining.Daily)
	assert.Nil(t, decision.Remaining.Monthly)
	require.NotNil(t, decision.Remaining.Hourly)

	rows := store.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, PeriodHourly, rows[0].PeriodType)
}

// S6 — rejection priority: hourly checked first even when daily/monthly
// are also within headroom of their own limits.
func TestCheckAndIncrement_RejectionPriorityHourlyFirst(t *testing.T) {
	engine, store := newTestEngine()
	limits := RateLimits{Hourly: BoundedLimit(1), Daily: BoundedLimit(10), Monthly: BoundedLimit(100)}
	now := mustParse(t, "2025-06-15T14:30:00Z")

	ctx := context.Background()
	_, err := store.IncrementOrInsert(ctx, "user-1", PeriodHourly, currentHourStart(now), now)
	require.NoError(t, err)
	_, err = store.IncrementOrInsert(ctx, "user-1", PeriodDaily, currentDayStart(now), now)
	require.NoError(t, err)
	_, err = store.IncrementOrInsert(ctx, "user-1", PeriodMonthly, subscriptionMonthStart(nil, now), now)
	require.NoError(t, err)

	decision, err := engine.CheckAndIncrement(ctx, "user-1", limits, nil, now)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	require.NotNil(t, decision.ExceededLimit)
	assert.Equal(t, PeriodHourly, *decision.ExceededLimit)
}

// Invariant 6 — admission monotonicity.
func TestCheckAndIncrement_AdmissionMonotonicity(t *testing.T) {
	engine, store := newTestEngine()
	limits := RateLimits{Hourly: BoundedLimit(5)}
	now := mustParse(t, "2025-06-15T14:30:00Z")
	ctx := context.Background()

	decision, err := engine.CheckAndIncrement(ctx, "user-1", limits, nil, now)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	before, _ := store.GetCount(ctx, "user-1", PeriodHourly, currentHourStart(now))

	// Drive past the limit to exercise a rejection and confirm it leaves counts unchanged.
	for i := 0; i < 10; i++ {
		_, _ = engine.CheckAndIncrement(ctx, "user-1", limits, nil, now)
	}
	afterAdmitted, _ := store.GetCount(ctx, "user-1", PeriodHourly, currentHourStart(now))
	assert.True(t, afterAdmitted >= before)

	decision, err = engine.CheckAndIncrement(ctx, "user-1", limits, nil, now)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	afterReject, _ := store.GetCount(ctx, "user-1", PeriodHourly, currentHourStart(now))
	assert.Equal(t, afterAdmitted, afterReject)
}

func TestCheckOnly_DoesNotMutateCounters(t *testing.T) {
	engine, store := newTestEngine()
	limits := RateLimits{Hourly: BoundedLimit(5)}
	now := mustParse(t, "2025-06-15T14:30:00Z")
	ctx := context.Background()

	decision, err := engine.CheckOnly(ctx, "user-1", limits, nil, now)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, store.Rows())
}

func TestGetHistory_OrderedMostRecentFirst(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	older := mustParse(t, "2025-06-14T00:00:00Z")
	newer := mustParse(t, "2025-06-15T00:00:00Z")
	_, err := store.IncrementOrInsert(ctx, "user-1", PeriodDaily, older, older)
	require.NoError(t, err)
	_, err = store.IncrementOrInsert(ctx, "user-1", PeriodDaily, newer, newer)
	require.NoError(t, err)

	entries, err := engine.GetHistory(ctx, "user-1", PeriodDaily, nil, 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].PeriodStart.After(entries[1].PeriodStart))
	assert.Equal(t, newer.AddDate(0, 0, 1), entries[0].PeriodEnd)
}
