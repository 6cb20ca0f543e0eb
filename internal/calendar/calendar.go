// Package calendar derives the day and week identifiers the chore log is
// keyed by.
package calendar

import "time"

// DateLayout is the ISO calendar-day format used in the document.
const DateLayout = "2006-01-02"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Today returns now's calendar day.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// DayOfWeek returns now's weekday.
func DayOfWeek(now time.Time) time.Weekday {
	return now.Weekday()
}

// WeekID returns the Sunday that starts now's week.
func WeekID(now time.Time) string {
	return startOfDay(now).AddDate(0, 0, -int(now.Weekday())).Format(DateLayout)
}

// WeekStart parses a week identifier back into a time in loc.
func WeekStart(weekID string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, weekID, loc)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
