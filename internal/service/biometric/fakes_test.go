package biometric

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/site"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/storage"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeDirectory struct {
	employees   []employee.Employee
	schedules   []schedule.EmployeeSchedule
	employeeErr error
	scheduleErr error

	// Effective ranges by schedule ID; a schedule without an entry is open-ended.
	effectiveFrom map[string]schedule.ShiftDate
	effectiveTo   map[string]schedule.ShiftDate
}

func (d *fakeDirectory) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	for _, e := range d.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (d *fakeDirectory) ListActive(ctx context.Context) ([]employee.Employee, error) {
	return d.employees, d.employeeErr
}

type fakeSchedules struct {
	dir *fakeDirectory
}

func (s fakeSchedules) ActiveSchedulesForDate(ctx context.Context, date schedule.ShiftDate) ([]schedule.EmployeeSchedule, error) {
	if s.dir.scheduleErr != nil {
		return nil, s.dir.scheduleErr
	}
	var active []schedule.EmployeeSchedule
	for _, sc := range s.dir.schedules {
		if from, ok := s.dir.effectiveFrom[sc.ID]; ok && date.Before(from) {
			continue
		}
		if to, ok := s.dir.effectiveTo[sc.ID]; ok && date.After(to) {
			continue
		}
		active = append(active, sc)
	}
	return active, nil
}

func (s fakeSchedules) GetByID(ctx context.Context, id string) (schedule.EmployeeSchedule, error) {
	for _, sc := range s.dir.schedules {
		if sc.ID == id {
			return sc, nil
		}
	}
	return schedule.EmployeeSchedule{}, schedule.ErrScheduleNotFound
}

type fakeSites map[string]string

func (f fakeSites) GetByID(ctx context.Context, id string) (site.Site, error) {
	for _, s := range f {
		if s == id {
			return site.Site{ID: id}, nil
		}
	}
	return site.Site{}, site.ErrSiteNotFound
}

func (f fakeSites) ResolveByDeviceID(ctx context.Context, deviceID string) (site.Site, error) {
	id, ok := f[deviceID]
	if !ok {
		return site.Site{}, site.ErrDeviceNotFound
	}
	return site.Site{ID: id}, nil
}

// fakeAttendanceRepo mimics the upsert contract: one row per key, AdminVerified kept.
type fakeAttendanceRepo struct {
	mu      sync.Mutex
	records map[attendance.Key]attendance.AttendanceRecord
	failFor map[attendance.Key]bool
	nextID  int
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{
		records: make(map[attendance.Key]attendance.AttendanceRecord),
		failFor: make(map[attendance.Key]bool),
	}
}

func (r *fakeAttendanceRepo) Upsert(ctx context.Context, rec attendance.AttendanceRecord) (attendance.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rec.Key()
	if r.failFor[key] {
		return attendance.AttendanceRecord{}, errors.New("connection reset")
	}
	if existing, ok := r.records[key]; ok {
		rec.ID = existing.ID
		rec.AdminVerified = existing.AdminVerified
		rec.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		rec.ID = fmt.Sprintf("att-%03d", r.nextID)
		rec.AdminVerified = false
		rec.CreatedAt = fixedNow
	}
	rec.UpdatedAt = fixedNow
	r.records[key] = rec
	return rec, nil
}

func (r *fakeAttendanceRepo) GetByKey(ctx context.Context, key attendance.Key) (*attendance.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *fakeAttendanceRepo) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.AttendanceRecord, int64, error) {
	all := r.sorted()
	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start > len(all) {
		start = len(all)
	}
	end := min(start+filter.Limit, len(all))
	return all[start:end], total, nil
}

func (r *fakeAttendanceRepo) ListByShiftDate(ctx context.Context, date schedule.ShiftDate) ([]attendance.AttendanceRecord, error) {
	var out []attendance.AttendanceRecord
	for _, rec := range r.sorted() {
		if rec.ShiftDate == date {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) sorted() []attendance.AttendanceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]attendance.AttendanceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

func (r *fakeAttendanceRepo) get(employeeID, scheduleID string, date schedule.ShiftDate) (attendance.AttendanceRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[attendance.Key{EmployeeID: employeeID, ScheduleID: scheduleID, ShiftDate: date}]
	return rec, ok
}

type fakeImportRepo struct {
	mu      sync.Mutex
	imports map[string]biometric.Import
}

func newFakeImportRepo() *fakeImportRepo {
	return &fakeImportRepo{imports: make(map[string]biometric.Import)}
}

func (r *fakeImportRepo) Create(ctx context.Context, imp biometric.Import) (biometric.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp.CreatedAt, imp.UpdatedAt = fixedNow, fixedNow
	r.imports[imp.ID] = imp
	return imp, nil
}

func (r *fakeImportRepo) GetByID(ctx context.Context, id string) (biometric.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok {
		return biometric.Import{}, biometric.ErrImportNotFound
	}
	return imp, nil
}

func (r *fakeImportRepo) update(id string, fn func(*biometric.Import)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok {
		return biometric.ErrImportNotFound
	}
	fn(&imp)
	r.imports[id] = imp
	return nil
}

func (r *fakeImportRepo) MarkProcessing(ctx context.Context, id string, staleBefore time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	switch {
	case !ok:
		return biometric.ErrImportNotFound
	case imp.Status == biometric.ImportStatusCompleted:
		return biometric.ErrImportAlreadyProcessed
	case imp.Status == biometric.ImportStatusProcessing && !imp.UpdatedAt.Before(staleBefore):
		return biometric.ErrImportInProgress
	}
	imp.Status = biometric.ImportStatusProcessing
	imp.UpdatedAt = time.Now()
	r.imports[id] = imp
	return nil
}

func (r *fakeImportRepo) MarkCompleted(ctx context.Context, id string, result biometric.BatchResult) error {
	return r.update(id, func(imp *biometric.Import) {
		imp.Status = biometric.ImportStatusCompleted
		imp.Result = &result
	})
}

func (r *fakeImportRepo) MarkFailed(ctx context.Context, id string, message string) error {
	return r.update(id, func(imp *biometric.Import) {
		imp.Status = biometric.ImportStatusFailed
		imp.ErrorMessage = &message
	})
}

func (r *fakeImportRepo) ListStale(ctx context.Context, cutoff time.Time) ([]biometric.Import, error) {
	return nil, nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Upload(ctx context.Context, file io.Reader, size int64, key string, contentType string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

type fakeQueue struct {
	ids []string
	err error
}

func (q *fakeQueue) EnqueueProcess(ctx context.Context, importID string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, importID)
	return nil
}

// memFile satisfies multipart.File.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

// Fixtures. 2024-03-04 is a Monday.
var (
	weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

	angelo   = employee.Employee{ID: "emp-angelo", FirstName: "Angelo", LastName: "Nodado"}
	benedict = employee.Employee{ID: "emp-benedict", FirstName: "Benedict", LastName: "Nodado"}
	maria    = employee.Employee{ID: "emp-maria", FirstName: "Maria", LastName: "Santos"}
	juan     = employee.Employee{ID: "emp-juan", FirstName: "Juan", LastName: "Dela Cruz"}

	morningShift = schedule.EmployeeSchedule{
		ID: "sch-angelo", EmployeeID: angelo.ID, SiteID: "site-a",
		ScheduledTimeIn: schedule.NewClock(8, 0), ScheduledTimeOut: schedule.NewClock(17, 0),
		GracePeriodMinutes: 30, WorkDays: weekdays, IsActive: true,
	}
	nightShift = schedule.EmployeeSchedule{
		ID: "sch-benedict", EmployeeID: benedict.ID, SiteID: "site-a",
		ScheduledTimeIn: schedule.NewClock(22, 0), ScheduledTimeOut: schedule.NewClock(7, 0),
		GracePeriodMinutes: 30, WorkDays: weekdays, IsActive: true,
	}
	graveyardShift = schedule.EmployeeSchedule{
		ID: "sch-maria", EmployeeID: maria.ID, SiteID: "site-a",
		ScheduledTimeIn: schedule.NewClock(0, 0), ScheduledTimeOut: schedule.NewClock(9, 0),
		GracePeriodMinutes: 15, WorkDays: weekdays, IsActive: true,
	}
)

func testConfig() ResolverConfig {
	cfg := DefaultResolverConfig()
	cfg.Location = time.UTC
	cfg.Workers = 2
	return cfg
}

func at(date string, hh, mm int) time.Time {
	d := schedule.ShiftDate(date).Time(time.UTC)
	return d.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func scan(token string, ts time.Time) biometric.ScanEvent {
	return biometric.ScanEvent{RawNameToken: token, DeviceID: "1", Timestamp: ts}
}
