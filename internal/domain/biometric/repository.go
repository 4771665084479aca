package biometric

import (
	"context"
	"time"
)

// ImportRepository tracks uploaded export files.
type ImportRepository interface {
	Create(ctx context.Context, imp Import) (Import, error)
	GetByID(ctx context.Context, id string) (Import, error)
	// MarkProcessing claims the import for one run. Queued and failed imports can be claimed,
	// and so can a processing one untouched since staleBefore. Otherwise it returns
	// ErrImportAlreadyProcessed or ErrImportInProgress.
	MarkProcessing(ctx context.Context, id string, staleBefore time.Time) error
	MarkCompleted(ctx context.Context, id string, result BatchResult) error
	MarkFailed(ctx context.Context, id string, message string) error

	// ListStale returns imports queued or processing and untouched since the cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]Import, error)
}
