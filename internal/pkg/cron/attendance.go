package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// AbsenceMarker writes ncns records for scheduled employees without any record on a date.
type AbsenceMarker interface {
	MarkAbsences(ctx context.Context, date schedule.ShiftDate) (biometric.BatchResult, error)
}

type AttendanceJobs struct {
	marker  AbsenceMarker
	loc     *time.Location
	lagDays int
	now     func() time.Time
}

// NewAttendanceJobs sweeps the shift date lagDays before today, leaving time for overnight
// shifts to end and their exports to be uploaded.
func NewAttendanceJobs(marker AbsenceMarker, loc *time.Location, lagDays int) *AttendanceJobs {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceJobs{
		marker:  marker,
		loc:     loc,
		lagDays: lagDays,
		now:     time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("mark_no_call_no_show", 1*time.Hour, j.MarkNoCallNoShow)
}

func (j *AttendanceJobs) MarkNoCallNoShow(ctx context.Context) error {
	now := j.now().In(j.loc)

	// Only run during the first hour of the local day
	if now.Hour() != 0 {
		return nil
	}

	date := schedule.ShiftDateOf(now).AddDays(-j.lagDays)
	slog.Info("Cron: Starting mark no-call no-show job", "shift_date", date)

	result, err := j.marker.MarkAbsences(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to mark absences for %s: %w", date, err)
	}

	slog.Info("Cron: Marked no-call no-show",
		"shift_date", date,
		"written", len(result.RecordsWritten),
		"warnings", len(result.Warnings),
	)
	return nil
}
