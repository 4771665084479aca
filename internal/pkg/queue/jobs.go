package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ProcessImportTask is scheduled for each uploaded export and for stale re-queues.
	ProcessImportTask = "biometric:process"
)

// ProcessPayload names the import the worker should resolve.
type ProcessPayload struct {
	ImportID string `json:"import_id"`
}

// Client enqueues biometric jobs.
type Client struct {
	client   *asynq.Client
	maxRetry int
}

func NewClient(redis asynq.RedisClientOpt, maxRetry int) *Client {
	return &Client{client: asynq.NewClient(redis), maxRetry: maxRetry}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueProcess enqueues processing of one import. Only one task per import can be pending
// at a time.
func (c *Client) EnqueueProcess(ctx context.Context, importID string) error {
	data, err := json.Marshal(ProcessPayload{ImportID: importID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ProcessImportTask, data)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(c.maxRetry),
		asynq.TaskID(ProcessImportTask+":"+importID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue process task: %w", err)
	}
	return nil
}

// DecodeProcess reads the payload of a ProcessImportTask.
func DecodeProcess(task *asynq.Task) (ProcessPayload, error) {
	var payload ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if payload.ImportID == "" {
		return ProcessPayload{}, fmt.Errorf("decode payload: missing import_id")
	}
	return payload, nil
}
