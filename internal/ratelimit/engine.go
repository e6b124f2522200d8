package ratelimit

import (
	"context"
	"time"

	ierr "github.com/flexprice/ratelimiter/internal/errors"
	"github.com/sourcegraph/conc/pool"
)

// Engine composes the Period Calculator, the already-resolved
// RateLimits, and a CounterStore into the admission-decision state
// machine (§4.D).
type Engine struct {
	store CounterStore
}

// NewEngine builds a rate-limit engine backed by the given store.
func NewEngine(store CounterStore) *Engine {
	return &Engine{store: store}
}

// Remaining is the per-period "requests left" triple. A nil entry
// means the corresponding limit is unlimited.
type Remaining struct {
	Hourly  *int64
	Daily   *int64
	Monthly *int64
}

// AdmissionDecision is the outcome of checkAndIncrement/checkOnly.
type AdmissionDecision struct {
	Allowed       bool
	StatusCode    int
	Remaining     Remaining
	ExceededLimit *PeriodType
	Limits        RateLimits
}

func (r *Remaining) setForPeriod(p PeriodType, v int64) {
	switch p {
	case PeriodHourly:
		r.Hourly = &v
	case PeriodDaily:
		r.Daily = &v
	case PeriodMonthly:
		r.Monthly = &v
	}
}

type periodState struct {
	periodType  PeriodType
	periodStart time.Time
	limit       Limit
	count       int64
}

// CheckAndIncrement implements the full algorithm in §4.D: it computes
// the three current period starts, reads the three counts in
// parallel, evaluates admission in hourly -> daily -> monthly order,
// and on admit increments only the periods with a present limit, in
// parallel.
func (e *Engine) CheckAndIncrement(ctx context.Context, userID string, limits RateLimits, subscriptionStartedAt *time.Time, now time.Time) (AdmissionDecision, error) {
	states, err := e.readCounts(ctx, userID, limits, subscriptionStartedAt, now)
	if err != nil {
		return AdmissionDecision{}, err
	}

	if exceeded, ok := firstExceeded(states); ok {
		return rejectDecision(limits, states, exceeded), nil
	}

	if err := e.incrementPresent(ctx, userID, states, now); err != nil {
		return AdmissionDecision{}, err
	}

	return admitDecision(limits, states), nil
}

// CheckOnly evaluates admission without mutating any counters — used
// by the read-only /v1/rate-limit/status endpoint (SPEC_FULL.md §4
// supplemented feature 4).
func (e *Engine) CheckOnly(ctx context.Context, userID string, limits RateLimits, subscriptionStartedAt *time.Time, now time.Time) (AdmissionDecision, error) {
	states, err := e.readCounts(ctx, userID, limits, subscriptionStartedAt, now)
	if err != nil {
		return AdmissionDecision{}, err
	}

	if exceeded, ok := firstExceeded(states); ok {
		return rejectDecision(limits, states, exceeded), nil
	}
	return admitDecision(limits, states), nil
}

func (e *Engine) readCounts(ctx context.Context, userID string, limits RateLimits, anchor *time.Time, now time.Time) ([]periodState, error) {
	states := make([]periodState, len(checkOrder))
	for i, p := range checkOrder {
		states[i] = periodState{
			periodType:  p,
			periodStart: periodStart(p, anchor, now),
			limit:       limits.ForPeriod(p),
		}
	}

	// Each result carries its state index: the pool collects results as
	// the reads finish, not in the order they were started.
	type indexedCount struct {
		i int
		n int64
	}
	p := pool.NewWithResults[indexedCount]().WithContext(ctx).WithFirstError()
	for i, st := range states {
		i, st := i, st
		p.Go(func(ctx context.Context) (indexedCount, error) {
			n, err := e.store.GetCount(ctx, userID, st.periodType, st.periodStart)
			return indexedCount{i: i, n: n}, err
		})
	}
	counts, err := p.Wait()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read rate limit counters").
			Mark(ierr.ErrDependencyMissing)
	}
	for _, c := range counts {
		states[c.i].count = c.n
	}
	return states, nil
}

func (e *Engine) incrementPresent(ctx context.Context, userID string, states []periodState, now time.Time) error {
	wp := pool.New().WithErrors().WithContext(ctx)
	for _, st := range states {
		if st.limit.IsUnlimited() {
			continue
		}
		st := st
		wp.Go(func(ctx context.Context) error {
			_, err := e.store.IncrementOrInsert(ctx, userID, st.periodType, st.periodStart, now)
			return err
		})
	}
	if err := wp.Wait(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to persist rate limit counters").
			Mark(ierr.ErrDependencyMissing)
	}
	return nil
}

// firstExceeded returns the first (in checkOrder priority) period
// whose present limit is violated by its pre-increment count.
func firstExceeded(states []periodState) (periodState, bool) {
	for _, st := range states {
		if st.limit.IsUnlimited() {
			continue
		}
		bound, _ := st.limit.Value()
		if st.count >= bound {
			return st, true
		}
	}
	return periodState{}, false
}

func rejectDecision(limits RateLimits, states []periodState, exceeded periodState) AdmissionDecision {
	var remaining Remaining
	for _, st := range states {
		if st.limit.IsUnlimited() {
			continue
		}
		bound, _ := st.limit.Value()
		remaining.setForPeriod(st.periodType, max0(bound-st.count))
	}
	p := exceeded.periodType
	return AdmissionDecision{
		Allowed:       false,
		StatusCode:    429,
		Remaining:     remaining,
		ExceededLimit: &p,
		Limits:        limits,
	}
}

func admitDecision(limits RateLimits, states []periodState) AdmissionDecision {
	var remaining Remaining
	for _, st := range states {
		if st.limit.IsUnlimited() {
			continue
		}
		bound, _ := st.limit.Value()
		remaining.setForPeriod(st.periodType, max0(bound-(st.count+1)))
	}
	return AdmissionDecision{
		Allowed:    true,
		StatusCode: 200,
		Remaining:  remaining,
		Limits:     limits,
	}
}

func max0(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
