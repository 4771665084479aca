package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/queue"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

type stubService struct {
	biometric.BiometricService
	err   error
	calls []string
}

func (s *stubService) ProcessImport(ctx context.Context, importID string) (biometric.BatchResult, error) {
	s.calls = append(s.calls, importID)
	return biometric.BatchResult{ProcessedCount: 2}, s.err
}

func TestHandleProcess(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		err       error
		wantErr   bool
		skipRetry bool
	}{
		{name: "processed", payload: `{"import_id":"imp-1"}`},
		{name: "already processed is success", payload: `{"import_id":"imp-1"}`, err: biometric.ErrImportAlreadyProcessed},
		{name: "claimed by another run is success", payload: `{"import_id":"imp-1"}`, err: biometric.ErrImportInProgress},
		{name: "missing import is not retried", payload: `{"import_id":"imp-1"}`, err: biometric.ErrImportNotFound, wantErr: true, skipRetry: true},
		{name: "transient failure is retried", payload: `{"import_id":"imp-1"}`, err: errors.New("db down"), wantErr: true},
		{name: "bad payload is not retried", payload: `{}`, wantErr: true, skipRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			p := NewImportProcessor(svc)

			err := p.HandleProcess(context.Background(), asynq.NewTask(queue.ProcessImportTask, []byte(tt.payload)))
			if !tt.wantErr {
				assert.NoError(t, err)
				assert.Equal(t, []string{"imp-1"}, svc.calls)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}
