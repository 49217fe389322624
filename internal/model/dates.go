package model

import "time"

// DateLayout is the wire and query-string format for calendar dates.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at UTC midnight.  The date is taken
// in t's own location so that a local "today" keeps its day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from start to end.  It is
// negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}

// RangesOverlap reports whether the inclusive date ranges [a1, a2] and
// [b1, b2] share at least one calendar day.  A stay ending on the day
// another begins counts as overlapping.
func RangesOverlap(a1, a2, b1, b2 time.Time) bool {
	return !Day(a1).After(Day(b2)) && !Day(b1).After(Day(a2))
}

// Nights returns the number of billed nights for [start, end].  A same-day
// range is billed as one night.
func Nights(start, end time.Time) int {
	n := DaysBetween(start, end)
	if n < 1 {
		return 1
	}
	return n
}

// Price returns the total amount in cents for a stay at the given nightly
// price.
func Price(nightlyCents int64, start, end time.Time) int64 {
	return nightlyCents * int64(Nights(start, end))
}
