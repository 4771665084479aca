package biometric

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// MarkAbsences writes an ncns record for every employee with a schedule assigned on date that
// works that weekday, when the employee has no record for date yet. Records written by an import are never touched, and a later import for
// the date replaces the ncns record like any other.
func (p *Processor) MarkAbsences(ctx context.Context, date schedule.ShiftDate) (biometric.BatchResult, error) {
	result := biometric.BatchResult{
		SkippedLines:    []string{},
		UnresolvedNames: []string{},
		RecordsWritten:  []string{},
		Warnings:        []string{},
	}

	roster, err := p.loadRoster(ctx, date, date)
	if err != nil {
		return result, err
	}
	recorded, err := p.writer.RecordedEmployees(ctx, date)
	if err != nil {
		return result, err
	}

	for _, emp := range roster.Employees() {
		if recorded[emp.ID] {
			continue
		}
		var working []schedule.EmployeeSchedule
		for _, s := range roster.SchedulesOn(emp.ID, date) {
			if s.WorksOn(date.Weekday()) {
				working = append(working, s)
			}
		}
		sched, ok := pickSchedule(working, nil)
		if !ok {
			continue
		}

		res := ResolveStatus(StatusInput{
			Schedule: sched,
			Profile:  p.cfg.Bands.Classify(sched),
			Date:     date,
		}, p.cfg)

		key := attendance.Key{EmployeeID: emp.ID, ScheduleID: sched.ID, ShiftDate: date}
		rec, err := p.writer.Write(ctx, key, res)
		if err != nil {
			slog.Error("Biometric: failed to write absence", "key", key.String(), "error", err)
			result.Warnings = append(result.Warnings, err.Error())
			continue
		}
		result.RecordsWritten = append(result.RecordsWritten, rec.ID)
	}

	slog.Info("Biometric: absences marked", "shift_date", date, "written", len(result.RecordsWritten), "warnings", len(result.Warnings))
	return result, nil
}
