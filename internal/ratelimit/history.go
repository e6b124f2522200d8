package ratelimit

import (
	"context"
	"time"
)

// HistoryEntry is one row of a period's usage history, with periodEnd
// derived via the Period Calculator's nextXStart companion (§4.D).
type HistoryEntry struct {
	PeriodStart  time.Time
	PeriodEnd    time.Time
	RequestCount int64
}

// GetHistory returns up to limit entries for (userID, periodType),
// most-recent-first, deriving each row's exclusive periodEnd from the
// calculator rather than storing it.
func (e *Engine) GetHistory(ctx context.Context, userID string, periodType PeriodType, subscriptionStartedAt *time.Time, limit int) ([]HistoryEntry, error) {
	rows, err := e.store.History(ctx, userID, periodType, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, HistoryEntry{
			PeriodStart:  row.PeriodStart,
			PeriodEnd:    nextPeriodStart(periodType, subscriptionStartedAt, row.PeriodStart),
			RequestCount: row.RequestCount,
		})
	}
	return entries, nil
}
