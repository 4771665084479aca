package schedule

import "errors"

var (
	ErrScheduleNotFound  = errors.New("work schedule not found")
	ErrNoActiveSchedule  = errors.New("no active schedule for the shift window")
	ErrInvalidClock      = errors.New("invalid clock time, use HH:MM")
	ErrInvalidDateFormat = errors.New("invalid date format, use YYYY-MM-DD")
)
