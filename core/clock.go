package core

import "time"

// DayID identifies one calendar day in the canonical timezone, formatted
// YYYY-MM-DD. DayIDs compare correctly as strings.
type DayID string

const dayLayout = "2006-01-02"

// DayOf converts a timestamp to the calendar day it falls on in loc.
// A nil loc means UTC.
func DayOf(t time.Time, loc *time.Location) DayID {
	if loc == nil {
		loc = time.UTC
	}
	return DayID(t.In(loc).Format(dayLayout))
}

// Today returns the current calendar day in loc. Two calls within the same
// calendar day return equal values.
func Today(loc *time.Location) DayID {
	return DayOf(time.Now(), loc)
}

// IsZero reports whether the day is unset (no activity recorded yet).
func (d DayID) IsZero() bool { return d == "" }

// Time returns midnight of the day in loc. Invalid DayIDs yield the zero time.
func (d DayID) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dayLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Before returns the previous calendar day.
func (d DayID) Before() DayID {
	return DayID(d.Time(time.UTC).AddDate(0, 0, -1).Format(dayLayout))
}

// AddDays returns the day n days after d (n may be negative).
func (d DayID) AddDays(n int) DayID {
	return DayID(d.Time(time.UTC).AddDate(0, 0, n).Format(dayLayout))
}

// DaysBetween returns the number of calendar days from a to b. The result is
// never negative; equal days yield 0.
func DaysBetween(a, b DayID) int {
	ta, tb := a.Time(time.UTC), b.Time(time.UTC)
	if tb.Before(ta) {
		ta, tb = tb, ta
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// EndOfTomorrow returns the last instant of the calendar day after now in loc.
// Streak protection purchased today covers a miss through all of tomorrow.
func EndOfTomorrow(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	day := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, 2).Add(-time.Nanosecond)
}
