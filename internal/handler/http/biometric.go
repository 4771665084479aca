package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type BiometricHandler interface {
	Import(w http.ResponseWriter, r *http.Request)
	GetImport(w http.ResponseWriter, r *http.Request)
	ListAttendance(w http.ResponseWriter, r *http.Request)
}

type biometricHandlerImpl struct {
	biometricService biometric.BiometricService
}

func NewBiometricHandler(biometricService biometric.BiometricService) BiometricHandler {
	return &biometricHandlerImpl{
		biometricService: biometricService,
	}
}

// Import implements BiometricHandler.
func (h *biometricHandlerImpl) Import(w http.ResponseWriter, r *http.Request) {
	var req biometric.ImportRequest

	// Parse multipart form (max 20MB in memory, rest spills to disk)
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	// Optional JSON metadata in 'data' field
	if dataJSON := r.FormValue("data"); dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
			slog.Error("Failed to unmarshal JSON data", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(w, "Export file is required", nil)
			return
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}
	defer file.Close()

	req.File = file
	req.FileHeader = fileHeader

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.biometricService.Import(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Status == string(biometric.ImportStatusQueued) {
		response.Accepted(w, "Biometric import queued", result)
		return
	}
	response.Created(w, "Biometric import processed", result)
}

// GetImport implements BiometricHandler.
func (h *biometricHandlerImpl) GetImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid import ID", nil)
		return
	}

	result, err := h.biometricService.GetImport(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListAttendance implements BiometricHandler.
func (h *biometricHandlerImpl) ListAttendance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := attendance.AttendanceFilter{}

	if employeeID := query.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	if shiftDate := query.Get("shift_date"); shiftDate != "" {
		filter.ShiftDate = &shiftDate
	}

	// Date range filters
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}

	// Pagination
	page := 1
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}
	filter.Page = page

	limit := 20
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			limit = limitNum
		}
	}
	filter.Limit = limit

	// Sorting
	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")

	result, err := h.biometricService.ListAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Attendances, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}
