// Package timeutil owns the deployment timezone. Timestamps are stored and
// compared in UTC everywhere else; day boundaries and "today"/"yesterday"
// semantics are computed here, in local time, so daily summaries line up with
// what the user experiences across DST transitions.
package timeutil

import "time"

// DefaultTimezone is the deployment timezone used when none is configured.
const DefaultTimezone = "America/Chicago"

// Clock produces the current time in a fixed deployment timezone and derives
// day boundaries from it. The zero value is not usable; construct with
// NewClock or NewFixedClock.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock loads the named timezone. An empty name selects DefaultTimezone.
func NewClock(timezone string) (*Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixedClock returns a clock pinned to a fixed instant, for tests.
func NewFixedClock(at time.Time, timezone string) *Clock {
	c, err := NewClock(timezone)
	if err != nil {
		c = &Clock{loc: time.UTC}
	}
	c.now = func() time.Time { return at }
	return c
}

// Now returns the current instant in the deployment timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// NowUTC returns the current instant in UTC, for storage.
func (c *Clock) NowUTC() time.Time {
	return c.now().UTC()
}

// Location exposes the deployment timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// DayBounds returns the local-midnight [start, end) window containing t.
func (c *Clock) DayBounds(t time.Time) (start, end time.Time) {
	local := t.In(c.loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// DayKey formats the local calendar day of t as YYYY-MM-DD.
func (c *Clock) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// DaysAgo returns the local instant offsetDays before now. Day arithmetic
// uses AddDate in local time rather than subtracting 24h multiples, so the
// result lands on the right calendar day across DST changes.
func (c *Clock) DaysAgo(offsetDays int) time.Time {
	return c.Now().AddDate(0, 0, -offsetDays)
}
