package ratelimit

import "time"

// PeriodType is the closed enum of window kinds the engine tracks.
type PeriodType string

const (
	PeriodHourly  PeriodType = "hourly"
	PeriodDaily   PeriodType = "daily"
	PeriodMonthly PeriodType = "monthly"
)

// checkOrder is the deterministic priority hourly -> daily -> monthly
// used both for admission evaluation (§4.D) and for picking the first
// exceeded period to report. Must not be reordered (§9).
var checkOrder = []PeriodType{PeriodHourly, PeriodDaily, PeriodMonthly}

// CounterRow is a persisted (user, periodType, periodStart) -> count row.
// periodStart is always a canonical instant returned by the Period
// Calculator, never a wall-clock request timestamp.
type CounterRow struct {
	ID           string
	UserID       string
	PeriodType   PeriodType
	PeriodStart  time.Time
	RequestCount int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
