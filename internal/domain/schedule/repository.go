package schedule

import "context"

// ScheduleRepository is the read-only schedule directory.
type ScheduleRepository interface {
	// ActiveSchedulesForDate returns every active schedule whose assignment covers date.
	ActiveSchedulesForDate(ctx context.Context, date ShiftDate) ([]EmployeeSchedule, error)
	GetByID(ctx context.Context, id string) (EmployeeSchedule, error)
}
