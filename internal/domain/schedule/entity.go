package schedule

import (
	"fmt"
	"time"
)

// EmployeeSchedule is the directory's view of one work schedule assigned to an employee.
// It is read-only for attendance resolution.
type EmployeeSchedule struct {
	ID                 string
	EmployeeID         string
	SiteID             string
	ScheduledTimeIn    Clock
	ScheduledTimeOut   Clock
	GracePeriodMinutes int
	WorkDays           []time.Weekday
	IsActive           bool
}

// WorksOn reports whether the schedule expects the employee at work on the given weekday.
func (s EmployeeSchedule) WorksOn(day time.Weekday) bool {
	for _, d := range s.WorkDays {
		if d == day {
			return true
		}
	}
	return false
}

// Clock is a wall-clock time of day expressed in minutes since midnight.
type Clock int

const minutesPerDay = 24 * 60

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(((hour*60+minute)%minutesPerDay + minutesPerDay) % minutesPerDay)
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q: %w", s, ErrInvalidClock)
}

// ClockOf returns the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Hour() int    { return int(c) / 60 }
func (c Clock) Minute() int  { return int(c) % 60 }
func (c Clock) Minutes() int { return int(c) }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On anchors the clock on the calendar date d in loc.
func (c Clock) On(d ShiftDate, loc *time.Location) time.Time {
	return d.Time(loc).Add(time.Duration(c) * time.Minute)
}

// ShiftDate is the logical calendar date a shift is attributed to, independent of the
// calendar dates its scans happened on.
type ShiftDate string

const shiftDateLayout = "2006-01-02"

// ShiftDateOf returns the calendar date of t in t's own location.
func ShiftDateOf(t time.Time) ShiftDate {
	return ShiftDate(t.Format(shiftDateLayout))
}

// ParseShiftDate validates a YYYY-MM-DD string.
func ParseShiftDate(s string) (ShiftDate, error) {
	if _, err := time.Parse(shiftDateLayout, s); err != nil {
		return "", fmt.Errorf("invalid shift date %q: %w", s, ErrInvalidDateFormat)
	}
	return ShiftDate(s), nil
}

// Time returns midnight of the date in loc.
func (d ShiftDate) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(shiftDateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d ShiftDate) AddDays(n int) ShiftDate {
	return ShiftDateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d ShiftDate) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d ShiftDate) Before(o ShiftDate) bool { return d < o }
func (d ShiftDate) After(o ShiftDate) bool  { return d > o }

func (d ShiftDate) String() string { return string(d) }
