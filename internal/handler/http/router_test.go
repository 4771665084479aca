package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/config"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handlerTestSecret = "test-secret-key-for-jwt"
	knownImportID     = "01890a5d-ac96-774b-bcce-b302099a8057"
)

type fakeBiometricService struct {
	imported *biometric.ImportRequest
	async    bool
	filter   attendance.AttendanceFilter
}

func (s *fakeBiometricService) Import(ctx context.Context, req biometric.ImportRequest) (biometric.ImportResponse, error) {
	if err := req.Validate(); err != nil {
		return biometric.ImportResponse{}, err
	}
	s.imported = &req
	status := biometric.ImportStatusCompleted
	if req.Async {
		status = biometric.ImportStatusQueued
	}
	return biometric.ImportResponse{ID: knownImportID, FileName: req.FileHeader.Filename, Status: string(status)}, nil
}

func (s *fakeBiometricService) ProcessImport(ctx context.Context, importID string) (biometric.BatchResult, error) {
	return biometric.BatchResult{}, nil
}

func (s *fakeBiometricService) GetImport(ctx context.Context, id string) (biometric.ImportResponse, error) {
	if id != knownImportID {
		return biometric.ImportResponse{}, biometric.ErrImportNotFound
	}
	return biometric.ImportResponse{ID: id, Status: string(biometric.ImportStatusCompleted)}, nil
}

func (s *fakeBiometricService) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	s.filter = filter
	return attendance.ListAttendanceResponse{
		TotalCount:  1,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  1,
		Attendances: []attendance.AttendanceResponse{{ID: "att-001", Status: "on_time"}},
	}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeBiometricService, jwt.Service) {
	t.Helper()
	svc := &fakeBiometricService{}
	jwtService := jwt.NewJWTService(handlerTestSecret, time.Hour)
	router := NewRouter(config.AppConfig{Env: "test", AllowedOrigins: "http://localhost:3000"}, jwtService, NewBiometricHandler(svc))
	return router, svc, jwtService
}

func bearer(t *testing.T, j jwt.Service, admin bool) string {
	t.Helper()
	token, _, err := j.GenerateAccessToken("ops@example.com", admin)
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeResponse(t *testing.T, body io.Reader) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func multipartBody(t *testing.T, fileName, content, data string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != "" {
		require.NoError(t, mw.WriteField("data", data))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_Authentication(t *testing.T) {
	router, _, j := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{name: "missing token", method: http.MethodGet, path: "/api/v1/biometric/attendances", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, path: "/api/v1/biometric/attendances", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "valid token", method: http.MethodGet, path: "/api/v1/biometric/attendances", auth: bearer(t, j, false), wantStatus: http.StatusOK},
		{name: "import requires admin", method: http.MethodPost, path: "/api/v1/biometric/imports", auth: bearer(t, j, false), wantStatus: http.StatusForbidden},
		{name: "heartbeat is public", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestBiometricHandler_Import(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		data       string
		wantStatus int
		wantAsync  bool
	}{
		{name: "inline", fileName: "march.txt", wantStatus: http.StatusCreated},
		{name: "queued", fileName: "march.txt", data: `{"async":true,"site_id":"site-a"}`, wantStatus: http.StatusAccepted, wantAsync: true},
		{name: "csv re-save", fileName: "march.csv", wantStatus: http.StatusCreated},
		{name: "missing file", wantStatus: http.StatusBadRequest},
		{name: "wrong extension", fileName: "march.pdf", wantStatus: http.StatusUnprocessableEntity},
		{name: "bad metadata", fileName: "march.txt", data: `{`, wantStatus: http.StatusBadRequest},
		{name: "blank site", fileName: "march.txt", data: `{"site_id":"   "}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "reversed period", fileName: "march.txt", data: `{"period_start":"2024-03-10","period_end":"2024-03-01"}`, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc, j := newTestRouter(t)
			body, contentType := multipartBody(t, tt.fileName, "NODADOANGELO\t1\t2024-03-04 08:00:00\n", tt.data)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/biometric/imports", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", bearer(t, j, true))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus < 300 {
				require.NotNil(t, svc.imported)
				assert.Equal(t, tt.wantAsync, svc.imported.Async)
			}
		})
	}
}

func TestBiometricHandler_GetImport(t *testing.T) {
	router, _, j := newTestRouter(t)

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "found", id: knownImportID, wantStatus: http.StatusOK},
		{name: "not found", id: "01890a5d-ac96-774b-bcce-b302099a8058", wantStatus: http.StatusNotFound},
		{name: "not a uuid", id: "42", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/biometric/imports/"+tt.id, nil)
			req.Header.Set("Authorization", bearer(t, j, false))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestBiometricHandler_ListAttendance(t *testing.T) {
	router, svc, j := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/biometric/attendances?shift_date=2024-03-04&status=tardy&page=2&limit=5&sort_order=asc", nil)
	req.Header.Set("Authorization", bearer(t, j, false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec.Body)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 5, resp.Meta.Limit)

	require.NotNil(t, svc.filter.ShiftDate)
	assert.Equal(t, "2024-03-04", *svc.filter.ShiftDate)
	assert.Equal(t, "shift_date", svc.filter.SortBy)
	assert.Equal(t, "asc", svc.filter.SortOrder)

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/biometric/attendances?status=late", nil)
	bad.Header.Set("Authorization", bearer(t, j, false))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
