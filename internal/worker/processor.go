package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/queue"
	"github.com/hibiken/asynq"
)

// ImportProcessor is plugged into the asynq worker loop.
type ImportProcessor struct {
	service biometric.BiometricService
}

func NewImportProcessor(service biometric.BiometricService) *ImportProcessor {
	return &ImportProcessor{service: service}
}

// Handler registers the biometric task handlers.
func (p *ImportProcessor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ProcessImportTask, p.HandleProcess)
	return mux
}

func (p *ImportProcessor) HandleProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeProcess(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	result, err := p.service.ProcessImport(ctx, payload.ImportID)
	switch {
	case errors.Is(err, biometric.ErrImportAlreadyProcessed):
		slog.Info("Worker: import already processed", "import_id", payload.ImportID)
		return nil
	case errors.Is(err, biometric.ErrImportInProgress):
		slog.Info("Worker: import claimed by another run", "import_id", payload.ImportID)
		return nil
	case errors.Is(err, biometric.ErrImportNotFound):
		return fmt.Errorf("import %s: %v: %w", payload.ImportID, err, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("process import %s: %w", payload.ImportID, err)
	}

	slog.Info("Worker: import processed",
		"import_id", payload.ImportID,
		"processed", result.ProcessedCount,
		"written", len(result.RecordsWritten),
		"warnings", len(result.Warnings),
	)
	return nil
}
