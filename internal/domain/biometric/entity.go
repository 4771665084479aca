package biometric

import (
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// ScanEvent is one parsed row of a time-clock export. It is never persisted.
type ScanEvent struct {
	RawNameToken string
	DeviceID     string
	Timestamp    time.Time
	Line         int
}

// Batch is one export file's worth of scans plus the metadata supplied with the upload.
type Batch struct {
	Events  []ScanEvent
	Skipped []*ParseError

	// SiteID is where the file was collected. Empty means resolve per device.
	SiteID string

	// Optional explicit coverage. When nil the period is derived from the scans.
	PeriodStart *schedule.ShiftDate
	PeriodEnd   *schedule.ShiftDate
}

// BatchResult summarises one processed batch for the upload tracker.
type BatchResult struct {
	ProcessedCount  int      `json:"processed_count"`
	SkippedLines    []string `json:"skipped_lines"`
	UnresolvedNames []string `json:"unresolved_names"`
	RecordsWritten  []string `json:"records_written"`
	Warnings        []string `json:"warnings"`
}

type ImportStatus string

const (
	ImportStatusQueued     ImportStatus = "queued"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Import tracks one uploaded export file through processing.
type Import struct {
	ID           string
	FileName     string
	ObjectKey    string
	SiteID       string
	PeriodStart  *schedule.ShiftDate
	PeriodEnd    *schedule.ShiftDate
	Status       ImportStatus
	Result       *BatchResult
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
