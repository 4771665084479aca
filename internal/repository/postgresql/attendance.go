package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	id, employee_id, schedule_id, shift_date,
	scheduled_time_in, scheduled_time_out, actual_time_in, actual_time_out,
	bio_in_site_id, bio_out_site_id, status, secondary_status,
	tardy_minutes, undertime_minutes, is_cross_site_bio, warnings,
	admin_verified, created_at, updated_at`

func scanAttendance(row pgx.Row) (attendance.AttendanceRecord, error) {
	var (
		rec       attendance.AttendanceRecord
		shiftDate time.Time
		status    string
		secondary *string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.ScheduleID, &shiftDate,
		&rec.ScheduledTimeIn, &rec.ScheduledTimeOut, &rec.ActualTimeIn, &rec.ActualTimeOut,
		&rec.BioInSiteID, &rec.BioOutSiteID, &status, &secondary,
		&rec.TardyMinutes, &rec.UndertimeMinutes, &rec.IsCrossSiteBio, &rec.Warnings,
		&rec.AdminVerified, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.AttendanceRecord{}, err
	}
	rec.ShiftDate = schedule.ShiftDateOf(shiftDate)
	rec.Status = attendance.Status(status)
	if secondary != nil {
		s := attendance.SecondaryStatus(*secondary)
		rec.SecondaryStatus = &s
	}
	return rec, nil
}

// Upsert implements attendance.AttendanceRepository.
func (a *attendanceRepository) Upsert(ctx context.Context, rec attendance.AttendanceRecord) (attendance.AttendanceRecord, error) {
	key := rec.Key()

	var secondary *string
	if rec.SecondaryStatus != nil {
		s := string(*rec.SecondaryStatus)
		secondary = &s
	}

	query := `
		INSERT INTO attendance_records (
			id, employee_id, schedule_id, shift_date,
			scheduled_time_in, scheduled_time_out, actual_time_in, actual_time_out,
			bio_in_site_id, bio_out_site_id, status, secondary_status,
			tardy_minutes, undertime_minutes, is_cross_site_bio, warnings
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (employee_id, schedule_id, shift_date) DO UPDATE SET
			scheduled_time_in  = EXCLUDED.scheduled_time_in,
			scheduled_time_out = EXCLUDED.scheduled_time_out,
			actual_time_in     = EXCLUDED.actual_time_in,
			actual_time_out    = EXCLUDED.actual_time_out,
			bio_in_site_id     = EXCLUDED.bio_in_site_id,
			bio_out_site_id    = EXCLUDED.bio_out_site_id,
			status             = EXCLUDED.status,
			secondary_status   = EXCLUDED.secondary_status,
			tardy_minutes      = EXCLUDED.tardy_minutes,
			undertime_minutes  = EXCLUDED.undertime_minutes,
			is_cross_site_bio  = EXCLUDED.is_cross_site_bio,
			warnings           = EXCLUDED.warnings,
			updated_at         = NOW()
		RETURNING ` + attendanceColumns

	var saved attendance.AttendanceRecord
	err := WithTransaction(ctx, a.db, func(ctx context.Context, tx pgx.Tx) error {
		// Serialises concurrent writers of the same key for the rest of the transaction.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
			return fmt.Errorf("failed to lock attendance key: %w", err)
		}

		var err error
		saved, err = scanAttendance(tx.QueryRow(ctx, query,
			uuid.Must(uuid.NewV7()).String(),
			rec.EmployeeID,
			rec.ScheduleID,
			rec.ShiftDate.Time(time.UTC),
			rec.ScheduledTimeIn,
			rec.ScheduledTimeOut,
			rec.ActualTimeIn,
			rec.ActualTimeOut,
			rec.BioInSiteID,
			rec.BioOutSiteID,
			string(rec.Status),
			secondary,
			rec.TardyMinutes,
			rec.UndertimeMinutes,
			rec.IsCrossSiteBio,
			rec.Warnings,
		))
		return err
	})
	if err != nil {
		return attendance.AttendanceRecord{}, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	return saved, nil
}

// GetByKey implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByKey(ctx context.Context, key attendance.Key) (*attendance.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE employee_id = $1 AND schedule_id = $2 AND shift_date = $3`

	rec, err := scanAttendance(q.QueryRow(ctx, query, key.EmployeeID, key.ScheduleID, key.ShiftDate.Time(time.UTC)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by key: %w", err)
	}

	return &rec, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.AttendanceRecord, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "TRUE"
	args := []any{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	if filter.ShiftDate != nil && *filter.ShiftDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date = $%d", argIdx)
		args = append(args, *filter.ShiftDate)
		argIdx++
	}

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	orderByField := "shift_date"
	switch filter.SortBy {
	case "status":
		orderByField = "status"
	case "actual_time_in":
		orderByField = "actual_time_in"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE %s
		ORDER BY %s %s NULLS LAST, employee_id ASC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	records, err := collectAttendance(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListByShiftDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByShiftDate(ctx context.Context, date schedule.ShiftDate) ([]attendance.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE shift_date = $1
		ORDER BY employee_id, schedule_id`

	rows, err := q.Query(ctx, query, date.Time(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance by shift date: %w", err)
	}
	defer rows.Close()

	return collectAttendance(rows)
}

func collectAttendance(rows pgx.Rows) ([]attendance.AttendanceRecord, error) {
	var records []attendance.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}
	return records, nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
