package biometric

import (
	"context"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
)

// BiometricService accepts export uploads and turns them into attendance records.
type BiometricService interface {
	// Import stores the uploaded file and processes it, inline or through the queue.
	Import(ctx context.Context, req ImportRequest) (ImportResponse, error)

	// ProcessImport runs the resolution pipeline for a stored import.
	ProcessImport(ctx context.Context, importID string) (BatchResult, error)

	GetImport(ctx context.Context, id string) (ImportResponse, error)

	ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error)
}
