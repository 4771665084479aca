package biometric

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// AttendanceWriter turns a resolution into the stored record for its key.
type AttendanceWriter struct {
	repo attendance.AttendanceRepository
}

func NewAttendanceWriter(repo attendance.AttendanceRepository) *AttendanceWriter {
	return &AttendanceWriter{repo: repo}
}

// Write replaces every resolution-owned field of the record for key. Fields the resolution
// leaves nil are cleared, so a corrected re-import never keeps stale values.
func (w *AttendanceWriter) Write(ctx context.Context, key attendance.Key, res attendance.Resolution) (attendance.AttendanceRecord, error) {
	if key.EmployeeID == "" || key.ScheduleID == "" || key.ShiftDate == "" {
		return attendance.AttendanceRecord{}, fmt.Errorf("write attendance %s: %w", key, attendance.ErrInvalidRecordKey)
	}

	rec := attendance.AttendanceRecord{
		EmployeeID: key.EmployeeID,
		ScheduleID: key.ScheduleID,
		ShiftDate:  key.ShiftDate,
	}
	rec.Apply(res)

	saved, err := w.repo.Upsert(ctx, rec)
	if err != nil {
		return attendance.AttendanceRecord{}, fmt.Errorf("write attendance %s: %w", key, err)
	}
	return saved, nil
}

// RecordedEmployees returns the employees that already have a record for date.
func (w *AttendanceWriter) RecordedEmployees(ctx context.Context, date schedule.ShiftDate) (map[string]bool, error) {
	records, err := w.repo.ListByShiftDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list attendance for %s: %w", date, err)
	}
	recorded := make(map[string]bool, len(records))
	for _, rec := range records {
		recorded[rec.EmployeeID] = true
	}
	return recorded, nil
}
