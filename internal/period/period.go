// Package period implements the calendar-phase clock for monthly billing.
// All cut-offs are fixed days of the month (5, 15, 20) regardless of month
// length.
package period

import "time"

// Phase classifies a moment within the billing month.
type Phase string

const (
	// PhaseFirstWindow covers days 1-5: full or first-half purchase.
	PhaseFirstWindow Phase = "first_window"
	// PhaseGap covers days 6-14: full-price-only purchase, or late recovery
	// of a missed second half.
	PhaseGap Phase = "gap"
	// PhaseSecondWindow covers days 15-20: second-half purchase.
	PhaseSecondWindow Phase = "second_window"
	// PhaseLate covers day 21 onward: half-price remainder of the month.
	PhaseLate Phase = "late"
)

// Period identifies the (month, year) a subscription row is credited for.
type Period struct {
	Month int
	Year  int
}

// Current returns the period of now.
func Current(now time.Time) Period {
	return Period{Month: int(now.Month()), Year: now.Year()}
}

// PhaseOf classifies now by day of month.
func PhaseOf(now time.Time) Phase {
	switch day := now.Day(); {
	case day <= 5:
		return PhaseFirstWindow
	case day <= 14:
		return PhaseGap
	case day <= 20:
		return PhaseSecondWindow
	default:
		return PhaseLate
	}
}

// FirstDeadline is the end of the first payment window: day 5, 23:59:59 local.
func FirstDeadline(now time.Time) time.Time {
	return endOfDay(now.Year(), now.Month(), 5, now.Location())
}

// SecondDeadline is the end of the second payment window: day 20, 23:59:59 local.
func SecondDeadline(now time.Time) time.Time {
	return endOfDay(now.Year(), now.Month(), 20, now.Location())
}

// FullTermEnd is the entitlement boundary for a full, second-part, half-month
// or renewal payment: day 5 of the next calendar month, 23:59:59 local.
func FullTermEnd(now time.Time) time.Time {
	year, month := now.Year(), now.Month()
	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}
	return endOfDay(year, month, 5, now.Location())
}

// FirstPartEnd is the entitlement boundary for a first-half payment: day 15 of
// the current month, 23:59:59 local.
func FirstPartEnd(now time.Time) time.Time {
	return endOfDay(now.Year(), now.Month(), 15, now.Location())
}

// RenewalTermEnd computes the boundary for a renewal anchored to an existing
// subscription: one full term forward from whichever is later, now or the
// anchor. Paying early never shortens remaining access.
func RenewalTermEnd(now, anchor time.Time) time.Time {
	base := now
	if anchor.After(base) {
		base = anchor.In(now.Location())
	}
	return FullTermEnd(base)
}

func endOfDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 0, loc)
}
