package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type AttendanceResponse struct {
	ID               string   `json:"id"`
	EmployeeID       string   `json:"employee_id"`
	ScheduleID       string   `json:"schedule_id"`
	ShiftDate        string   `json:"shift_date"`
	ScheduledTimeIn  string   `json:"scheduled_time_in"`
	ScheduledTimeOut string   `json:"scheduled_time_out"`
	ActualTimeIn     *string  `json:"actual_time_in"`
	ActualTimeOut    *string  `json:"actual_time_out"`
	BioInSiteID      *string  `json:"bio_in_site_id"`
	BioOutSiteID     *string  `json:"bio_out_site_id"`
	Status           string   `json:"status"`
	SecondaryStatus  *string  `json:"secondary_status"`
	TardyMinutes     *int     `json:"tardy_minutes"`
	UndertimeMinutes *int     `json:"undertime_minutes"`
	IsCrossSiteBio   bool     `json:"is_cross_site_bio"`
	Warnings         []string `json:"warnings"`
	AdminVerified    bool     `json:"admin_verified"`
	UpdatedAt        string   `json:"updated_at"`
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

func NewAttendanceResponse(r AttendanceRecord) AttendanceResponse {
	var secondary *string
	if r.SecondaryStatus != nil {
		s := string(*r.SecondaryStatus)
		secondary = &s
	}
	return AttendanceResponse{
		ID:               r.ID,
		EmployeeID:       r.EmployeeID,
		ScheduleID:       r.ScheduleID,
		ShiftDate:        r.ShiftDate.String(),
		ScheduledTimeIn:  r.ScheduledTimeIn.Format("2006-01-02 15:04:05"),
		ScheduledTimeOut: r.ScheduledTimeOut.Format("2006-01-02 15:04:05"),
		ActualTimeIn:     timePtrToString(r.ActualTimeIn),
		ActualTimeOut:    timePtrToString(r.ActualTimeOut),
		BioInSiteID:      r.BioInSiteID,
		BioOutSiteID:     r.BioOutSiteID,
		Status:           string(r.Status),
		SecondaryStatus:  secondary,
		TardyMinutes:     r.TardyMinutes,
		UndertimeMinutes: r.UndertimeMinutes,
		IsCrossSiteBio:   r.IsCrossSiteBio,
		Warnings:         r.Warnings,
		AdminVerified:    r.AdminVerified,
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
}

type AttendanceFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	ShiftDate  *string `json:"shift_date,omitempty"` // YYYY-MM-DD
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // shift_date, status, actual_time_in
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil && !validator.IsInSlice(*f.Status, StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(StatusValues, ", "),
		})
	}

	dates := []struct {
		field string
		value *string
	}{
		{"shift_date", f.ShiftDate},
		{"start_date", f.StartDate},
		{"end_date", f.EndDate},
	}
	for _, d := range dates {
		if d.value != nil && *d.value != "" {
			if _, valid := validator.IsValidDate(*d.value); !valid {
				errs = append(errs, validator.ValidationError{
					Field:   d.field,
					Message: d.field + " must be in YYYY-MM-DD format",
				})
			}
		}
	}

	if f.SortBy != "" {
		validSortFields := []string{"shift_date", "status", "actual_time_in"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: shift_date, status, actual_time_in",
			})
		}
	} else {
		f.SortBy = "shift_date"
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}
