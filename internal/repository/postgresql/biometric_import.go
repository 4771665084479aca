package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type importRepository struct {
	db *database.DB
}

const importColumns = `
	id, file_name, object_key, site_id, period_start, period_end,
	status, result, error_message, created_at, updated_at`

func scanImport(row pgx.Row) (biometric.Import, error) {
	var (
		imp         biometric.Import
		periodStart *time.Time
		periodEnd   *time.Time
		status      string
	)
	err := row.Scan(
		&imp.ID, &imp.FileName, &imp.ObjectKey, &imp.SiteID, &periodStart, &periodEnd,
		&status, &imp.Result, &imp.ErrorMessage, &imp.CreatedAt, &imp.UpdatedAt,
	)
	if err != nil {
		return biometric.Import{}, err
	}
	imp.Status = biometric.ImportStatus(status)
	imp.PeriodStart = shiftDatePtr(periodStart)
	imp.PeriodEnd = shiftDatePtr(periodEnd)
	return imp, nil
}

func shiftDatePtr(t *time.Time) *schedule.ShiftDate {
	if t == nil {
		return nil
	}
	d := schedule.ShiftDateOf(*t)
	return &d
}

func dateArg(d *schedule.ShiftDate) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time(time.UTC)
	return &t
}

// Create implements biometric.ImportRepository.
func (r *importRepository) Create(ctx context.Context, imp biometric.Import) (biometric.Import, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO biometric_imports (
			id, file_name, object_key, site_id, period_start, period_end, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING ` + importColumns

	created, err := scanImport(q.QueryRow(ctx, query,
		imp.ID,
		imp.FileName,
		imp.ObjectKey,
		imp.SiteID,
		dateArg(imp.PeriodStart),
		dateArg(imp.PeriodEnd),
		string(imp.Status),
	))
	if err != nil {
		return biometric.Import{}, fmt.Errorf("failed to create biometric import: %w", err)
	}
	return created, nil
}

// GetByID implements biometric.ImportRepository.
func (r *importRepository) GetByID(ctx context.Context, id string) (biometric.Import, error) {
	q := GetQuerier(ctx, r.db)

	imp, err := scanImport(q.QueryRow(ctx, `SELECT `+importColumns+` FROM biometric_imports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return biometric.Import{}, biometric.ErrImportNotFound
		}
		return biometric.Import{}, fmt.Errorf("failed to get biometric import: %w", err)
	}
	return imp, nil
}

// MarkProcessing implements biometric.ImportRepository.
func (r *importRepository) MarkProcessing(ctx context.Context, id string, staleBefore time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE biometric_imports
		SET status = 'processing', error_message = NULL, updated_at = NOW()
		WHERE id = $1
		  AND (status IN ('queued', 'failed') OR (status = 'processing' AND updated_at < $2))
	`
	tag, err := q.Exec(ctx, query, id, staleBefore)
	if err != nil {
		return fmt.Errorf("failed to claim biometric import: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	if err := q.QueryRow(ctx, `SELECT status FROM biometric_imports WHERE id = $1`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return biometric.ErrImportNotFound
		}
		return fmt.Errorf("failed to get biometric import status: %w", err)
	}
	if biometric.ImportStatus(status) == biometric.ImportStatusCompleted {
		return biometric.ErrImportAlreadyProcessed
	}
	return biometric.ErrImportInProgress
}

// MarkCompleted implements biometric.ImportRepository.
func (r *importRepository) MarkCompleted(ctx context.Context, id string, result biometric.BatchResult) error {
	return r.setStatus(ctx, id, `
		UPDATE biometric_imports
		SET status = 'completed', result = $2, error_message = NULL, updated_at = NOW()
		WHERE id = $1
	`, result)
}

// MarkFailed implements biometric.ImportRepository.
func (r *importRepository) MarkFailed(ctx context.Context, id string, message string) error {
	return r.setStatus(ctx, id, `
		UPDATE biometric_imports
		SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1
	`, message)
}

func (r *importRepository) setStatus(ctx context.Context, id string, query string, args ...any) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update biometric import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return biometric.ErrImportNotFound
	}
	return nil
}

// ListStale implements biometric.ImportRepository.
func (r *importRepository) ListStale(ctx context.Context, cutoff time.Time) ([]biometric.Import, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + importColumns + `
		FROM biometric_imports
		WHERE status IN ('queued', 'processing')
		  AND updated_at < $1
		ORDER BY created_at`

	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale imports: %w", err)
	}
	defer rows.Close()

	var imports []biometric.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan biometric import: %w", err)
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate biometric imports: %w", err)
	}
	return imports, nil
}

func NewImportRepository(db *database.DB) biometric.ImportRepository {
	return &importRepository{db: db}
}
