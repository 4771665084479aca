package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
)

// Requeuer puts an import back on the processing queue.
type Requeuer interface {
	EnqueueProcess(ctx context.Context, importID string) error
}

type ImportJobs struct {
	importRepo biometric.ImportRepository
	queue      Requeuer
	staleAfter time.Duration
	now        func() time.Time
}

func NewImportJobs(importRepo biometric.ImportRepository, queue Requeuer, staleAfter time.Duration) *ImportJobs {
	return &ImportJobs{
		importRepo: importRepo,
		queue:      queue,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (j *ImportJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("requeue_stale_imports", 15*time.Minute, j.RequeueStaleImports)
}

// RequeueStaleImports re-enqueues imports that have been processing for longer than the
// stale window, which happens when a worker dies mid-batch.
func (j *ImportJobs) RequeueStaleImports(ctx context.Context) error {
	cutoff := j.now().Add(-j.staleAfter)
	stale, err := j.importRepo.ListStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale imports: %w", err)
	}
	if len(stale) == 0 {
		slog.Debug("Cron: No stale imports found")
		return nil
	}

	requeued := 0
	for _, imp := range stale {
		if err := j.queue.EnqueueProcess(ctx, imp.ID); err != nil {
			slog.Error("Cron: Failed to requeue import", "import_id", imp.ID, "error", err)
			continue
		}
		requeued++
	}

	slog.Info("Cron: Requeued stale imports", "found", len(stale), "requeued", requeued)
	return nil
}
