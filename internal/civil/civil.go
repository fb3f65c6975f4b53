// Package civil provides calendar-date arithmetic pinned to the resort's
// local timezone. The resort runs on a fixed UTC-5 offset year round, so the
// zone is constructed explicitly instead of trusting the host machine.
package civil

import (
	"fmt"
	"time"
)

// ResortZone is the fixed resort-local offset (Jamaica, UTC-5, no DST).
var ResortZone = time.FixedZone("America/Jamaica", -5*60*60)

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Today returns the current civil date at the resort for the given instant.
func Today(now time.Time) Date {
	return DateOf(now.In(ResortZone))
}

// DateOf extracts the civil date from t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a bare "YYYY-MM-DD" string as a civil date. The string is
// never interpreted as local midnight, so no offset shift can move the day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid civil date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// AddDays shifts the date by n calendar days. Arithmetic runs on midday UTC
// so month and year boundaries roll over without offset drift.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return DateOf(t)
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	a := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
	b := time.Date(other.Year, other.Month, other.Day, 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// DayBounds returns the UTC instant range [start, end) covering local
// midnight-to-midnight of d at the resort.
func DayBounds(d Date) (start, end time.Time) {
	start = time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, ResortZone)
	next := d.AddDays(1)
	end = time.Date(next.Year, next.Month, next.Day, 0, 0, 0, 0, ResortZone)
	return start.UTC(), end.UTC()
}

// EndOfDay returns the first instant after d at the resort, i.e. the exclusive
// expiry instant for anything valid "through" d.
func EndOfDay(d Date) time.Time {
	_, end := DayBounds(d)
	return end
}
