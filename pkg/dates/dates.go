// Package dates converts instants into shop calendar days. A day is always
// represented as midnight UTC of the calendar date seen in the shop's zone.
package dates

import "time"

// Calendar resolves calendar days in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar builds a calendar for loc; a nil location means UTC.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: time.Now}
}

// Fixed returns a calendar whose Today is pinned, for tests and replays.
func Fixed(day time.Time) *Calendar {
	pinned := Day(day, time.UTC)
	return &Calendar{loc: time.UTC, now: func() time.Time { return pinned }}
}

// Today is the current shop calendar day.
func (c *Calendar) Today() time.Time {
	return Day(c.now(), c.loc)
}

// Now is the current instant.
func (c *Calendar) Now() time.Time {
	return c.now()
}

// Day normalizes t to the calendar day observed in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a normalized day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// Parse reads a YYYY-MM-DD string into a normalized day.
func Parse(value string) (time.Time, error) {
	return time.Parse(time.DateOnly, value)
}
