// Package dateutil provides canonical calendar-day handling for the app.
//
// WHY A DEDICATED PACKAGE?
// Habits are tracked by the USER'S LOCAL CALENDAR DAY, not by instants.
// "2024-03-10" means the same thing whether the user is in Dhaka or Denver —
// it is a pure calendar value with no time-of-day and no timezone attached.
// Every other package (streak engine, due filter, repositories) speaks in
// these YYYY-MM-DD strings, so the formatting/parsing rules live in exactly
// one place.
//
// WHY NOT time.Time EVERYWHERE?
// time.Time is an instant. Two instants in different zones can fall on
// different calendar days, and daylight-saving transitions make "add 24
// hours" land on the wrong day twice a year. By converting to a day string
// as early as possible (using the local calendar fields) and doing all
// arithmetic on normalized dates, none of that can bite us.
package dateutil

import (
	"fmt"
	"time"
)

// Layout is the canonical day format. Lexicographic order on these strings
// equals calendar order, which the streak engine relies on when sorting.
const Layout = "2006-01-02"

// FormatDay renders t's LOCAL calendar fields as YYYY-MM-DD, zero-padded.
//
// Deliberately not UTC-normalized: two representations of the same instant
// in different zones may format to different days. That is the point —
// a completion logged at 23:30 local time belongs to that local day.
func FormatDay(t time.Time) string {
	return t.Format(Layout)
}

// ParseDay parses a YYYY-MM-DD string as midnight local time.
// Returns an error for anything that isn't a real calendar date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("dateutil: parsing day %q: %w", s, err)
	}
	return t, nil
}

// DayOfWeek returns the weekday index of a day string: 0=Sunday..6=Saturday.
func DayOfWeek(s string) (int, error) {
	t, err := ParseDay(s)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}

// DaysBetween returns the calendar-day difference b - a between two day
// strings. Positive when b is after a.
//
// PURE CALENDAR ARITHMETIC:
// Both days are rebuilt at UTC midnight before differencing. UTC has no
// daylight-saving transitions, so every day is exactly 24 hours and the
// division below is exact — no rounding of millisecond deltas needed.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDay(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDay(b)
	if err != nil {
		return 0, err
	}
	ua := time.Date(ta.Year(), ta.Month(), ta.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(tb.Year(), tb.Month(), tb.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour)), nil
}

// AddDays returns the day string n calendar days after s (n may be negative).
func AddDays(s string, n int) (string, error) {
	t, err := ParseDay(s)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, n)), nil
}
