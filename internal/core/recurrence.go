package core

import "time"

// NextOccurrence computes the single next due date for a recurrence
// rule. It does not loop to catch up missed periods; callers advance
// the watermark and call again.
//
// When lastGenerated is zero the rule has never fired and the next
// occurrence is startDate itself. Otherwise the watermark advances by
// exactly one unit: one day, seven days, or one calendar month.
//
// Monthly advancement re-anchors on the start date's day-of-month and
// clamps to the last day of shorter months: a rule starting Jan 31
// fires on Feb 29 (leap years) or Feb 28, then on Mar 31 again. The
// anchor day is taken from startDate, not from the watermark, so the
// clamp never drifts the schedule permanently earlier.
//
// A candidate before startDate is clamped up to startDate. The second
// return is false when the type never generates (None or unknown).
func NextOccurrence(t RecurrenceType, startDate, lastGenerated time.Time) (time.Time, bool) {
	if !t.Generates() || startDate.IsZero() {
		return time.Time{}, false
	}

	start := DateOnly(startDate)
	if lastGenerated.IsZero() {
		return start, true
	}
	last := DateOnly(lastGenerated)

	var next time.Time
	switch t {
	case Daily:
		next = last.AddDate(0, 0, 1)
	case Weekly:
		next = last.AddDate(0, 0, 7)
	case Monthly:
		next = nextMonthlyOccurrence(last, start.Day())
	default:
		return time.Time{}, false
	}

	if next.Before(start) {
		return start, true
	}
	return next, true
}

// nextMonthlyOccurrence returns the anchor day in the month after
// last, clamped to that month's length.
func nextMonthlyOccurrence(last time.Time, anchorDay int) time.Time {
	year, month, _ := last.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	day := anchorDay
	if lastDay := daysIn(year, month); day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month. Day zero of
// the following month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
