package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/flexprice/ratelimiter/internal/types"
)

type counterKey struct {
	userID      string
	periodType  ratelimit.PeriodType
	periodStart time.Time
}

// InMemoryRateLimitCounterStore is a test double for
// ratelimit.CounterStore. Tests run single-threaded, so a simple
// non-atomic read-then-write increment is acceptable here even though
// the Postgres implementation uses an atomic upsert (DESIGN.md records
// this as the one sanctioned exception to the atomic-upsert default).
type InMemoryRateLimitCounterStore struct {
	mu   sync.Mutex
	rows map[counterKey]*ratelimit.CounterRow
}

// NewInMemoryRateLimitCounterStore builds an empty in-memory counter store.
func NewInMemoryRateLimitCounterStore() *InMemoryRateLimitCounterStore {
	return &InMemoryRateLimitCounterStore{
		rows: make(map[counterKey]*ratelimit.CounterRow),
	}
}

func (s *InMemoryRateLimitCounterStore) GetCount(_ context.Context, userID string, periodType ratelimit.PeriodType, periodStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[counterKey{userID, periodType, periodStart}]
	if !ok {
		return 0, nil
	}
	return row.RequestCount, nil
}

func (s *InMemoryRateLimitCounterStore) IncrementOrInsert(_ context.Context, userID string, periodType ratelimit.PeriodType, periodStart, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey{userID, periodType, periodStart}
	row, ok := s.rows[key]
	if !ok {
		row = &ratelimit.CounterRow{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RATE_LIMIT_COUNTER),
			UserID:       userID,
			PeriodType:   periodType,
			PeriodStart:  periodStart,
			RequestCount: 0,
			CreatedAt:    now,
		}
		s.rows[key] = row
	}
	row.RequestCount++
	row.UpdatedAt = now
	return row.RequestCount, nil
}

func (s *InMemoryRateLimitCounterStore) History(_ context.Context, userID string, periodType ratelimit.PeriodType, limit int) ([]ratelimit.CounterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	var rows []ratelimit.CounterRow
	for k, row := range s.rows {
		if k.userID == userID && k.periodType == periodType {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PeriodStart.After(rows[j].PeriodStart)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *InMemoryRateLimitCounterStore) ResetPeriod(_ context.Context, userID string, periodType ratelimit.PeriodType, periodStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, counterKey{userID, periodType, periodStart})
	return nil
}

// Rows exposes the current row set for assertions in tests.
func (s *InMemoryRateLimitCounterStore) Rows() []ratelimit.CounterRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]ratelimit.CounterRow, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, *row)
	}
	return rows
}

// Clear resets the store to empty, mirroring the teacher's
// BaseServiceTestSuite.clearStores per-test reset pattern.
func (s *InMemoryRateLimitCounterStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[counterKey]*ratelimit.CounterRow)
}
