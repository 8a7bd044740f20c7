package service

import "time"

// Clock supplies the current date to time-dependent domain logic.
// Billing rollover, overdue penalties and lease expiry all take "today"
// from a Clock so tests can pin time to a fixed date.
type Clock interface {
	// Now returns the current instant
	Now() time.Time
	// Today returns the current date truncated to midnight UTC
	Today() time.Time
}

// SystemClock is the production Clock backed by the wall clock
type SystemClock struct{}

// NewSystemClock creates a new SystemClock
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current instant
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Today returns the current date truncated to midnight UTC
func (SystemClock) Today() time.Time {
	return DateOnly(time.Now())
}

// FixedClock is a Clock pinned to a single instant, for tests and replays
type FixedClock struct {
	Instant time.Time
}

// NewFixedClock creates a Clock that always reports the given instant
func NewFixedClock(instant time.Time) *FixedClock {
	return &FixedClock{Instant: instant}
}

// Now returns the pinned instant
func (c *FixedClock) Now() time.Time {
	return c.Instant
}

// Today returns the pinned instant truncated to midnight UTC
func (c *FixedClock) Today() time.Time {
	return DateOnly(c.Instant)
}

// DateOnly truncates a time to midnight UTC, discarding the clock component
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddCalendarMonth advances a date by exactly one calendar month, clamping
// to the last day of the target month when the source day does not exist
// there (Jan 31 -> Feb 28/29, never Mar 2/3). Billing cycles use calendar
// months rather than 30-day windows so due dates do not drift over a year.
func AddCalendarMonth(t time.Time) time.Time {
	return AddCalendarMonths(t, 1)
}

// AddCalendarMonths advances a date by n calendar months with day clamping
func AddCalendarMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
