package biometric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/storage"
	"github.com/google/uuid"
)

// ImportQueue hands imports to the background worker.
type ImportQueue interface {
	EnqueueProcess(ctx context.Context, importID string) error
}

type BiometricServiceImpl struct {
	biometric.ImportRepository
	attendance.AttendanceRepository
	processor *Processor
	storage   storage.FileStorage
	queue     ImportQueue
	loc       *time.Location

	// staleAfter is how long a processing import may go untouched before another run may
	// take it over.
	staleAfter time.Duration
}

// NewBiometricService wires the import workflow. queue may be nil, in which case every
// import is processed inline. staleAfter defaults to an hour.
func NewBiometricService(
	importRepo biometric.ImportRepository,
	attendanceRepo attendance.AttendanceRepository,
	processor *Processor,
	fileStorage storage.FileStorage,
	queue ImportQueue,
	loc *time.Location,
	staleAfter time.Duration,
) biometric.BiometricService {
	if loc == nil {
		loc = time.UTC
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	return &BiometricServiceImpl{
		ImportRepository:     importRepo,
		AttendanceRepository: attendanceRepo,
		processor:            processor,
		storage:              fileStorage,
		queue:                queue,
		loc:                  loc,
		staleAfter:           staleAfter,
	}
}

// Import implements biometric.BiometricService.
func (s *BiometricServiceImpl) Import(ctx context.Context, req biometric.ImportRequest) (biometric.ImportResponse, error) {
	if err := req.Validate(); err != nil {
		return biometric.ImportResponse{}, err
	}

	id := uuid.Must(uuid.NewV7()).String()
	fileName := filepath.Base(req.FileHeader.Filename)
	ext := strings.ToLower(filepath.Ext(fileName))
	objectKey := fmt.Sprintf("biometric/%s/%s%s", time.Now().In(s.loc).Format("2006-01-02"), id, ext)

	contentType := "text/tab-separated-values"
	switch ext {
	case ".csv":
		contentType = "text/csv"
	case ".xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if _, err := s.storage.Upload(ctx, req.File, req.FileHeader.Size, objectKey, contentType); err != nil {
		return biometric.ImportResponse{}, fmt.Errorf("failed to store export file: %w", err)
	}

	imp := biometric.Import{
		ID:          id,
		FileName:    fileName,
		ObjectKey:   objectKey,
		SiteID:      req.SiteID,
		PeriodStart: optionalShiftDate(req.PeriodStart),
		PeriodEnd:   optionalShiftDate(req.PeriodEnd),
		Status:      biometric.ImportStatusQueued,
	}
	created, err := s.ImportRepository.Create(ctx, imp)
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return biometric.ImportResponse{}, fmt.Errorf("failed to create import: %w", err)
	}

	if req.Async && s.queue != nil {
		if err := s.queue.EnqueueProcess(ctx, created.ID); err != nil {
			_ = s.ImportRepository.MarkFailed(ctx, created.ID, err.Error())
			return biometric.ImportResponse{}, fmt.Errorf("failed to enqueue import: %w", err)
		}
		slog.Info("Biometric: import queued", "import_id", created.ID, "file", fileName)
		return biometric.NewImportResponse(created), nil
	}

	if _, err := s.ProcessImport(ctx, created.ID); err != nil {
		return biometric.ImportResponse{}, err
	}
	return s.GetImport(ctx, created.ID)
}

// ProcessImport implements biometric.BiometricService.
func (s *BiometricServiceImpl) ProcessImport(ctx context.Context, importID string) (biometric.BatchResult, error) {
	imp, err := s.ImportRepository.GetByID(ctx, importID)
	if err != nil {
		return biometric.BatchResult{}, err
	}
	if imp.Status == biometric.ImportStatusCompleted {
		return biometric.BatchResult{}, biometric.ErrImportAlreadyProcessed
	}

	if err := s.ImportRepository.MarkProcessing(ctx, imp.ID, time.Now().Add(-s.staleAfter)); err != nil {
		return biometric.BatchResult{}, fmt.Errorf("failed to mark import processing: %w", err)
	}

	fail := func(err error) (biometric.BatchResult, error) {
		slog.Error("Biometric: import failed", "import_id", imp.ID, "error", err)
		if markErr := s.ImportRepository.MarkFailed(ctx, imp.ID, err.Error()); markErr != nil {
			slog.Error("Biometric: failed to mark import failed", "import_id", imp.ID, "error", markErr)
		}
		return biometric.BatchResult{}, err
	}

	rc, err := s.storage.Download(ctx, imp.ObjectKey)
	if err != nil {
		return fail(fmt.Errorf("failed to open export file: %w", err))
	}
	parsed, err := ParseFile(rc, imp.FileName, s.loc)
	rc.Close()
	if err != nil {
		return fail(fmt.Errorf("failed to read export file: %w", err))
	}

	result, err := s.processor.Process(ctx, biometric.Batch{
		Events:      parsed.Events,
		Skipped:     parsed.Skipped,
		SiteID:      imp.SiteID,
		PeriodStart: imp.PeriodStart,
		PeriodEnd:   imp.PeriodEnd,
	})
	if err != nil {
		return fail(err)
	}

	if err := s.ImportRepository.MarkCompleted(ctx, imp.ID, result); err != nil {
		return biometric.BatchResult{}, fmt.Errorf("failed to mark import completed: %w", err)
	}
	return result, nil
}

// GetImport implements biometric.BiometricService.
func (s *BiometricServiceImpl) GetImport(ctx context.Context, id string) (biometric.ImportResponse, error) {
	imp, err := s.ImportRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, biometric.ErrImportNotFound) {
			return biometric.ImportResponse{}, err
		}
		return biometric.ImportResponse{}, fmt.Errorf("failed to get import: %w", err)
	}
	return biometric.NewImportResponse(imp), nil
}

// ListAttendance implements biometric.BiometricService.
func (s *BiometricServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, attendance.NewAttendanceResponse(r))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

func optionalShiftDate(s *string) *schedule.ShiftDate {
	if s == nil || *s == "" {
		return nil
	}
	d := schedule.ShiftDate(*s)
	return &d
}
