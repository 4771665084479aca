package attendance

import (
	"context"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// AttendanceRepository persists resolved attendance records.
type AttendanceRepository interface {
	// Upsert writes rec as the only record for its key. On conflict every resolution-owned
	// column is overwritten and AdminVerified is left as stored.
	Upsert(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)

	// GetByKey returns nil, nil when no record exists.
	GetByKey(ctx context.Context, key Key) (*AttendanceRecord, error)

	List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, int64, error)

	ListByShiftDate(ctx context.Context, date schedule.ShiftDate) ([]AttendanceRecord, error)
}
