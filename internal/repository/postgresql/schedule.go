package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type scheduleRepository struct {
	db *database.DB
}

const scheduleColumns = `
	id, employee_id, site_id, scheduled_time_in, scheduled_time_out,
	grace_period_minutes, work_days, is_active`

func scanSchedule(row pgx.Row) (schedule.EmployeeSchedule, error) {
	var (
		s        schedule.EmployeeSchedule
		timeIn   pgtype.Time
		timeOut  pgtype.Time
		workDays []int16
	)
	if err := row.Scan(&s.ID, &s.EmployeeID, &s.SiteID, &timeIn, &timeOut, &s.GracePeriodMinutes, &workDays, &s.IsActive); err != nil {
		return schedule.EmployeeSchedule{}, err
	}
	s.ScheduledTimeIn = clockFromTime(timeIn)
	s.ScheduledTimeOut = clockFromTime(timeOut)
	s.WorkDays = make([]time.Weekday, 0, len(workDays))
	for _, d := range workDays {
		s.WorkDays = append(s.WorkDays, time.Weekday(d))
	}
	return s, nil
}

// clockFromTime truncates a TIME column to minute precision.
func clockFromTime(t pgtype.Time) schedule.Clock {
	minutes := int(t.Microseconds / int64(time.Minute/time.Microsecond))
	return schedule.NewClock(minutes/60, minutes%60)
}

// ActiveSchedulesForDate implements schedule.ScheduleRepository.
func (r *scheduleRepository) ActiveSchedulesForDate(ctx context.Context, date schedule.ShiftDate) ([]schedule.EmployeeSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + `
		FROM employee_schedules
		WHERE is_active
		  AND effective_from <= $1
		  AND (effective_to IS NULL OR effective_to >= $1)
		ORDER BY id`

	rows, err := q.Query(ctx, query, date.Time(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []schedule.EmployeeSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}
	return schedules, nil
}

// GetByID implements schedule.ScheduleRepository.
func (r *scheduleRepository) GetByID(ctx context.Context, id string) (schedule.EmployeeSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + ` FROM employee_schedules WHERE id = $1`

	s, err := scanSchedule(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.EmployeeSchedule{}, schedule.ErrScheduleNotFound
		}
		return schedule.EmployeeSchedule{}, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

func NewScheduleRepository(db *database.DB) schedule.ScheduleRepository {
	return &scheduleRepository{db: db}
}
