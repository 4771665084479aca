package biometric

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceExport = "No\tDevNo\tUserId\tName\tMode\tDateTime\n" +
	"1\t1\t101\tNODADO, A.\tFP\t2024-03-04 08:03:00\n" +
	"2\t1\t101\tNODADO, A.\tFP\t2024-03-04 17:05:00\n" +
	"3\t1\t102\tGARCIA, P.\tFP\t2024-03-04 08:00:00\n"

type serviceFixture struct {
	service    *BiometricServiceImpl
	imports    *fakeImportRepo
	attendance *fakeAttendanceRepo
	storage    *memStorage
	queue      *fakeQueue
}

func newServiceFixture(withQueue bool) serviceFixture {
	fx := newProcessorFixture([]employee.Employee{angelo, benedict}, []schedule.EmployeeSchedule{morningShift, nightShift}, nil)
	imports := newFakeImportRepo()
	store := newMemStorage()
	q := &fakeQueue{}

	var queue ImportQueue
	if withQueue {
		queue = q
	}
	svc := NewBiometricService(imports, fx.attendance, fx.processor, store, queue, nil, time.Hour).(*BiometricServiceImpl)
	return serviceFixture{service: svc, imports: imports, attendance: fx.attendance, storage: store, queue: q}
}

func uploadRequest(name, content string, async bool) biometric.ImportRequest {
	return biometric.ImportRequest{
		SiteID:     "site-a",
		Async:      async,
		File:       memFile{bytes.NewReader([]byte(content))},
		FileHeader: &multipart.FileHeader{Filename: name, Size: int64(len(content))},
	}
}

func TestBiometricService_ImportInline(t *testing.T) {
	fx := newServiceFixture(false)

	resp, err := fx.service.Import(context.Background(), uploadRequest("march.txt", serviceExport, true))
	require.NoError(t, err)

	assert.Equal(t, string(biometric.ImportStatusCompleted), resp.Status)
	assert.Equal(t, "march.txt", resp.FileName)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 2, resp.Result.ProcessedCount)
	assert.Equal(t, []string{"garcia p"}, resp.Result.UnresolvedNames)
	assert.Len(t, resp.Result.RecordsWritten, 1)
	assert.Len(t, fx.storage.objects, 1)

	rec, ok := fx.attendance.get(angelo.ID, morningShift.ID, "2024-03-04")
	require.True(t, ok)
	assert.Equal(t, attendance.StatusOnTime, rec.Status)
}

func TestBiometricService_ImportQueued(t *testing.T) {
	fx := newServiceFixture(true)

	resp, err := fx.service.Import(context.Background(), uploadRequest("march.tsv", serviceExport, true))
	require.NoError(t, err)
	assert.Equal(t, string(biometric.ImportStatusQueued), resp.Status)
	assert.Equal(t, []string{resp.ID}, fx.queue.ids)
	assert.Empty(t, fx.attendance.records)

	result, err := fx.service.ProcessImport(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProcessedCount)

	_, err = fx.service.ProcessImport(context.Background(), resp.ID)
	assert.ErrorIs(t, err, biometric.ErrImportAlreadyProcessed)
}

func TestBiometricService_ProcessImportClaimsOnce(t *testing.T) {
	fx := newServiceFixture(true)
	ctx := context.Background()

	resp, err := fx.service.Import(ctx, uploadRequest("march.txt", serviceExport, true))
	require.NoError(t, err)

	// Another worker picked the import up a minute ago.
	running := fx.imports.imports[resp.ID]
	running.Status = biometric.ImportStatusProcessing
	running.UpdatedAt = time.Now().Add(-time.Minute)
	fx.imports.imports[resp.ID] = running

	_, err = fx.service.ProcessImport(ctx, resp.ID)
	assert.ErrorIs(t, err, biometric.ErrImportInProgress)
	assert.Empty(t, fx.attendance.records)

	// The other run went quiet for longer than staleAfter.
	running.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fx.imports.imports[resp.ID] = running

	result, err := fx.service.ProcessImport(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, biometric.ImportStatusCompleted, fx.imports.imports[resp.ID].Status)
}

func TestBiometricService_EnqueueFailureMarksImportFailed(t *testing.T) {
	fx := newServiceFixture(true)
	fx.queue.err = errors.New("redis down")

	_, err := fx.service.Import(context.Background(), uploadRequest("march.txt", serviceExport, true))
	require.Error(t, err)

	require.Len(t, fx.imports.imports, 1)
	for _, imp := range fx.imports.imports {
		assert.Equal(t, biometric.ImportStatusFailed, imp.Status)
	}
}

func TestBiometricService_ImportValidation(t *testing.T) {
	fx := newServiceFixture(false)

	_, err := fx.service.Import(context.Background(), uploadRequest("march.pdf", serviceExport, false))
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "file", verrs[0].Field)
	assert.Empty(t, fx.storage.objects)
}

func TestBiometricService_MissingObjectFailsImport(t *testing.T) {
	fx := newServiceFixture(false)
	_, err := fx.imports.Create(context.Background(), biometric.Import{
		ID:        "imp-lost",
		FileName:  "lost.txt",
		ObjectKey: "biometric/lost.txt",
		Status:    biometric.ImportStatusQueued,
	})
	require.NoError(t, err)

	_, err = fx.service.ProcessImport(context.Background(), "imp-lost")
	require.Error(t, err)

	imp, _ := fx.imports.GetByID(context.Background(), "imp-lost")
	assert.Equal(t, biometric.ImportStatusFailed, imp.Status)
	require.NotNil(t, imp.ErrorMessage)
	assert.Contains(t, *imp.ErrorMessage, "failed to open export file")
}

func TestBiometricService_GetImportNotFound(t *testing.T) {
	fx := newServiceFixture(false)

	_, err := fx.service.GetImport(context.Background(), "missing")
	assert.ErrorIs(t, err, biometric.ErrImportNotFound)
}

func TestBiometricService_ListAttendance(t *testing.T) {
	fx := newServiceFixture(false)
	_, err := fx.service.Import(context.Background(), uploadRequest("march.txt", serviceExport, false))
	require.NoError(t, err)

	resp, err := fx.service.ListAttendance(context.Background(), attendance.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.TotalCount)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, "1-1 of 1", resp.Showing)
	require.Len(t, resp.Attendances, 1)
	assert.Equal(t, "2024-03-04", resp.Attendances[0].ShiftDate)

	bad := "maybe"
	_, err = fx.service.ListAttendance(context.Background(), attendance.AttendanceFilter{Status: &bad})
	assert.Error(t, err)
}
