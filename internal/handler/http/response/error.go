package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/auth"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Biometric domain errors
	case errors.Is(err, biometric.ErrImportNotFound):
		NotFound(w, "Biometric import not found")
	case errors.Is(err, biometric.ErrImportAlreadyProcessed):
		Conflict(w, "Biometric import already processed")
	case errors.Is(err, biometric.ErrImportInProgress):
		Conflict(w, "Biometric import is being processed")
	case errors.Is(err, biometric.ErrEmptyWorkbook):
		BadRequest(w, "Export workbook has no worksheet", nil)
	case errors.Is(err, storage.ErrObjectNotFound):
		NotFound(w, "Export file not found")

	// Attendance and schedule errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, schedule.ErrInvalidDateFormat):
		BadRequest(w, "Invalid date format, use YYYY-MM-DD", nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
