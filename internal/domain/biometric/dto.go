package biometric

import (
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/validator"
)

// ========================================
// IMPORT DTOs
// ========================================

var AllowedExportExtensions = []string{".txt", ".tsv", ".csv", ".dat", ".xlsx"}

type ImportRequest struct {
	SiteID      string                `json:"site_id"`
	PeriodStart *string               `json:"period_start,omitempty"` // YYYY-MM-DD
	PeriodEnd   *string               `json:"period_end,omitempty"`   // YYYY-MM-DD
	Async       bool                  `json:"async"`
	File        multipart.File        `json:"-"`
	FileHeader  *multipart.FileHeader `json:"-"`
}

func (r *ImportRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.FileHeader == nil || r.File == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "file",
			Message: "export file is required",
		})
	} else {
		ext := strings.ToLower(filepath.Ext(r.FileHeader.Filename))
		if !validator.IsInSlice(ext, AllowedExportExtensions) {
			errs = append(errs, validator.ValidationError{
				Field:   "file",
				Message: "invalid file type: only " + strings.Join(AllowedExportExtensions, ", ") + " allowed",
			})
		} else if r.FileHeader.Size > 20<<20 { // 20MB
			errs = append(errs, validator.ValidationError{
				Field:   "file",
				Message: "export file size must not exceed 20MB",
			})
		}
	}

	if r.SiteID != "" && validator.IsEmpty(r.SiteID) {
		errs = append(errs, validator.ValidationError{
			Field:   "site_id",
			Message: "site_id must not be blank",
		})
	}

	var start, end time.Time
	if r.PeriodStart != nil && *r.PeriodStart != "" {
		var valid bool
		if start, valid = validator.IsValidDate(*r.PeriodStart); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "period_start",
				Message: "period_start must be in YYYY-MM-DD format",
			})
		}
	}
	if r.PeriodEnd != nil && *r.PeriodEnd != "" {
		var valid bool
		if end, valid = validator.IsValidDate(*r.PeriodEnd); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "period_end",
				Message: "period_end must be in YYYY-MM-DD format",
			})
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "period_end",
			Message: "period_end must not be before period_start",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ImportResponse struct {
	ID           string       `json:"id"`
	FileName     string       `json:"file_name"`
	SiteID       string       `json:"site_id,omitempty"`
	PeriodStart  *string      `json:"period_start,omitempty"`
	PeriodEnd    *string      `json:"period_end,omitempty"`
	Status       string       `json:"status"`
	Result       *BatchResult `json:"result,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

func NewImportResponse(imp Import) ImportResponse {
	resp := ImportResponse{
		ID:           imp.ID,
		FileName:     imp.FileName,
		SiteID:       imp.SiteID,
		Status:       string(imp.Status),
		Result:       imp.Result,
		ErrorMessage: imp.ErrorMessage,
		CreatedAt:    imp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    imp.UpdatedAt.Format(time.RFC3339),
	}
	if imp.PeriodStart != nil {
		s := imp.PeriodStart.String()
		resp.PeriodStart = &s
	}
	if imp.PeriodEnd != nil {
		s := imp.PeriodEnd.String()
		resp.PeriodEnd = &s
	}
	return resp
}
