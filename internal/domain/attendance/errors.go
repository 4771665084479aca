package attendance

import "errors"

var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrInvalidRecordKey   = errors.New("attendance record requires employee, schedule and shift date")
)
