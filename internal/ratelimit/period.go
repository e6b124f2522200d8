package ratelimit

import "time"

// Period Calculator. Pure, deterministic, side-effect free; all
// timestamps are UTC. Built on plain time.Time arithmetic: the monthly
// window finds the current/next subscription month boundary for a fixed
// anchor day, clamped to the last day of short months.

// currentHourStart truncates now to the start of its UTC hour.
func currentHourStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
}

// nextHourStart is currentHourStart(now) + 1 hour, with day/month/year rollover.
func nextHourStart(now time.Time) time.Time {
	return currentHourStart(now).Add(time.Hour)
}

// currentDayStart truncates now to UTC midnight.
func currentDayStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// nextDayStart is currentDayStart(now) + 1 day, with month/year rollover.
func nextDayStart(now time.Time) time.Time {
	return currentDayStart(now).AddDate(0, 0, 1)
}

// lastDayOfMonth returns L(y, m): the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// effectiveDayInMonth returns E(y, m) = min(D, L(y, m)): the anchor day
// clamped to the last day of a short month.
func effectiveDayInMonth(day, year int, month time.Month) int {
	l := lastDayOfMonth(year, month)
	if day > l {
		return l
	}
	return day
}

// subscriptionMonthStart computes the current subscription-anchored
// monthly window's start instant. If anchor is absent, it falls back to
// the calendar month (midnight UTC on the 1st).
func subscriptionMonthStart(anchor *time.Time, now time.Time) time.Time {
	now = now.UTC()
	y, m, d := now.Date()

	if anchor == nil {
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}

	anchorDay := anchor.UTC().Day()
	e := effectiveDayInMonth(anchorDay, y, m)

	if d >= e {
		return time.Date(y, m, e, 0, 0, 0, 0, time.UTC)
	}

	// The current period started last month.
	prevM := m - 1
	prevY := y
	if prevM < time.January {
		prevM = time.December
		prevY--
	}
	prevE := effectiveDayInMonth(anchorDay, prevY, prevM)
	return time.Date(prevY, prevM, prevE, 0, 0, 0, 0, time.UTC)
}

// nextSubscriptionMonthStart advances the current subscription month
// start by one calendar month, clamped again via E.
func nextSubscriptionMonthStart(anchor *time.Time, now time.Time) time.Time {
	cur := subscriptionMonthStart(anchor, now)

	if anchor == nil {
		y, m, _ := cur.Date()
		nextM := m + 1
		nextY := y
		if nextM > time.December {
			nextM = time.January
			nextY++
		}
		return time.Date(nextY, nextM, 1, 0, 0, 0, 0, time.UTC)
	}

	anchorDay := anchor.UTC().Day()
	y, m, _ := cur.Date()
	nextM := m + 1
	nextY := y
	if nextM > time.December {
		nextM = time.January
		nextY++
	}
	e := effectiveDayInMonth(anchorDay, nextY, nextM)
	return time.Date(nextY, nextM, e, 0, 0, 0, 0, time.UTC)
}

// periodStart dispatches to the calculator for a given period type.
func periodStart(p PeriodType, anchor *time.Time, now time.Time) time.Time {
	switch p {
	case PeriodHourly:
		return currentHourStart(now)
	case PeriodDaily:
		return currentDayStart(now)
	case PeriodMonthly:
		return subscriptionMonthStart(anchor, now)
	default:
		return now.UTC()
	}
}

// nextPeriodStart dispatches to the calculator's "next" companion,
// used to derive the exclusive upper bound (periodEnd) for history.
func nextPeriodStart(p PeriodType, anchor *time.Time, now time.Time) time.Time {
	switch p {
	case PeriodHourly:
		return nextHourStart(now)
	case PeriodDaily:
		return nextDayStart(now)
	case PeriodMonthly:
		return nextSubscriptionMonthStart(anchor, now)
	default:
		return now.UTC()
	}
}
