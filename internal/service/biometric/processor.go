package biometric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/site"
	"golang.org/x/sync/errgroup"
)

// Processor drives one batch through identity resolution, grouping, status resolution and
// the writer.
type Processor struct {
	employee.EmployeeRepository
	schedule.ScheduleRepository
	site.SiteRepository
	writer *AttendanceWriter
	cfg    ResolverConfig
}

func NewProcessor(
	employeeRepo employee.EmployeeRepository,
	scheduleRepo schedule.ScheduleRepository,
	siteRepo site.SiteRepository,
	writer *AttendanceWriter,
	cfg ResolverConfig,
) *Processor {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Processor{
		EmployeeRepository: employeeRepo,
		ScheduleRepository: scheduleRepo,
		SiteRepository:     siteRepo,
		writer:             writer,
		cfg:                cfg,
	}
}

// employeeOutcome is what processing one employee contributes to the batch result.
type employeeOutcome struct {
	processed int
	written   []string
	warnings  []string
}

// Process resolves and writes every shift in batch. Per-line, per-name and per-record
// problems become warnings; an error is returned only when the directory cannot be read,
// before anything has been written.
func (p *Processor) Process(ctx context.Context, batch biometric.Batch) (biometric.BatchResult, error) {
	result := biometric.BatchResult{
		SkippedLines:    []string{},
		UnresolvedNames: []string{},
		RecordsWritten:  []string{},
		Warnings:        []string{},
	}
	for _, perr := range batch.Skipped {
		result.SkippedLines = append(result.SkippedLines, perr.Error())
	}

	from, to, ok := p.period(batch)
	if !ok {
		slog.Info("Biometric: empty batch, nothing to resolve", "skipped", len(batch.Skipped))
		return result, nil
	}

	loadFrom, loadTo := from, to
	if first, last, ok := p.scanSpan(batch.Events); ok {
		if first.Before(loadFrom) {
			loadFrom = first
		}
		if last.After(loadTo) {
			loadTo = last
		}
	}
	roster, err := p.loadRoster(ctx, loadFrom, loadTo)
	if err != nil {
		return result, err
	}

	scansByEmployee := p.resolveTokens(batch.Events, roster, &result)
	sites := p.resolveSites(ctx, batch, &result)

	employees := roster.Employees()
	outcomes := make([]employeeOutcome, len(employees))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, emp := range employees {
		g.Go(func() error {
			outcomes[i] = p.processEmployee(gctx, emp, scansByEmployee[emp.ID], roster, sites, from, to)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("process batch: %w", err)
	}

	for _, o := range outcomes {
		result.ProcessedCount += o.processed
		result.RecordsWritten = append(result.RecordsWritten, o.written...)
		result.Warnings = append(result.Warnings, o.warnings...)
	}

	slog.Info("Biometric: batch processed",
		"period_start", from,
		"period_end", to,
		"processed", result.ProcessedCount,
		"written", len(result.RecordsWritten),
		"skipped", len(result.SkippedLines),
		"unresolved", len(result.UnresolvedNames),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// period returns the dates the batch covers: the explicit upload period when given, else the
// calendar span of the scans.
func (p *Processor) period(batch biometric.Batch) (schedule.ShiftDate, schedule.ShiftDate, bool) {
	from, to, _ := p.scanSpan(batch.Events)
	if batch.PeriodStart != nil {
		from = *batch.PeriodStart
	}
	if batch.PeriodEnd != nil {
		to = *batch.PeriodEnd
	}
	if from == "" || to == "" || to.Before(from) {
		return "", "", false
	}
	return from, to, true
}

// scanSpan returns the first and last calendar dates scans happened on.
func (p *Processor) scanSpan(events []biometric.ScanEvent) (schedule.ShiftDate, schedule.ShiftDate, bool) {
	var first, last schedule.ShiftDate
	for _, ev := range events {
		d := schedule.ShiftDateOf(ev.Timestamp.In(p.cfg.Location))
		if first == "" || d.Before(first) {
			first = d
		}
		if last == "" || d.After(last) {
			last = d
		}
	}
	return first, last, first != ""
}

// loadRoster snapshots active employees and the schedules assigned on each date from the
// day before from through to. The day before is included so next-day shifts starting then
// are known.
func (p *Processor) loadRoster(ctx context.Context, from, to schedule.ShiftDate) (Roster, error) {
	employees, err := p.EmployeeRepository.ListActive(ctx)
	if err != nil {
		return Roster{}, fmt.Errorf("failed to list active employees: %w", err)
	}

	byDate := make(map[schedule.ShiftDate][]schedule.EmployeeSchedule)
	for d := from.AddDays(-1); !d.After(to); d = d.AddDays(1) {
		day, err := p.ScheduleRepository.ActiveSchedulesForDate(ctx, d)
		if err != nil {
			return Roster{}, fmt.Errorf("failed to load schedules for %s: %w", d, err)
		}
		byDate[d] = day
	}
	return NewDatedRoster(employees, byDate), nil
}

// resolveTokens attributes each distinct name token to an employee. Scans of tokens that do
// not resolve are reported and dropped.
func (p *Processor) resolveTokens(events []biometric.ScanEvent, roster Roster, result *biometric.BatchResult) map[string][]biometric.ScanEvent {
	var tokens []string
	byToken := make(map[string][]biometric.ScanEvent)
	for _, ev := range events {
		if _, seen := byToken[ev.RawNameToken]; !seen {
			tokens = append(tokens, ev.RawNameToken)
		}
		byToken[ev.RawNameToken] = append(byToken[ev.RawNameToken], ev)
	}

	byEmployee := make(map[string][]biometric.ScanEvent)
	for _, token := range tokens {
		scans := byToken[token]
		times := make([]time.Time, len(scans))
		for i, ev := range scans {
			times[i] = ev.Timestamp.In(p.cfg.Location)
		}

		switch r := ResolveIdentity(token, times, roster, p.cfg.AffinityMargin).(type) {
		case Resolved:
			byEmployee[r.Employee.ID] = append(byEmployee[r.Employee.ID], scans...)
		case Unresolved:
			result.UnresolvedNames = append(result.UnresolvedNames, token)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s, %d scans skipped", r.Error(), len(scans)))
		}
	}
	return byEmployee
}

// siteIndex answers which site a scan was collected at.
type siteIndex struct {
	upload   string
	byDevice map[string]string
}

func (s siteIndex) siteOf(deviceID string) string {
	if s.upload != "" {
		return s.upload
	}
	return s.byDevice[deviceID]
}

// resolveSites maps each device seen in the batch to its site. The upload's site wins when
// one was given.
func (p *Processor) resolveSites(ctx context.Context, batch biometric.Batch, result *biometric.BatchResult) siteIndex {
	idx := siteIndex{upload: batch.SiteID, byDevice: make(map[string]string)}
	if batch.SiteID != "" || p.SiteRepository == nil {
		return idx
	}
	for _, ev := range batch.Events {
		if ev.DeviceID == "" {
			continue
		}
		if _, done := idx.byDevice[ev.DeviceID]; done {
			continue
		}
		s, err := p.SiteRepository.ResolveByDeviceID(ctx, ev.DeviceID)
		if err != nil {
			if !errors.Is(err, site.ErrDeviceNotFound) {
				slog.Warn("Biometric: site lookup failed", "device_id", ev.DeviceID, "error", err)
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("device %s: %v", ev.DeviceID, err))
			idx.byDevice[ev.DeviceID] = ""
			continue
		}
		idx.byDevice[ev.DeviceID] = s.ID
	}
	return idx
}

// employeeShift is the scans of one shift date and the schedule they are measured against.
type employeeShift struct {
	schedule schedule.EmployeeSchedule
	scans    []biometric.ScanEvent
}

func (p *Processor) processEmployee(
	ctx context.Context,
	emp employee.Employee,
	events []biometric.ScanEvent,
	roster Roster,
	sites siteIndex,
	from, to schedule.ShiftDate,
) employeeOutcome {
	var out employeeOutcome

	candidates := roster.SchedulesFor(emp.ID)
	if len(candidates) == 0 {
		if len(events) > 0 {
			out.warnings = append(out.warnings, fmt.Sprintf("%s: %v, %d scans skipped", emp.FullName(), biometric.ErrNoActiveSchedule, len(events)))
		}
		return out
	}

	local := make([]biometric.ScanEvent, len(events))
	for i, ev := range events {
		ev.Timestamp = ev.Timestamp.In(p.cfg.Location)
		local[i] = ev
	}

	shifts, unassigned := p.assignShifts(emp, local, candidates, roster)
	for _, date := range sortedDates(unassigned) {
		out.warnings = append(out.warnings, fmt.Sprintf("%s on %s: %v, %d scans skipped", emp.FullName(), date, biometric.ErrNoActiveSchedule, unassigned[date]))
	}

	p.addAbsences(shifts, candidates, roster, sites, from, to, &out)

	dates := make([]schedule.ShiftDate, 0, len(shifts))
	for d := range shifts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("%s %s: %v", emp.FullName(), d, err))
			return out
		}

		shift := shifts[d]
		sort.SliceStable(shift.scans, func(i, j int) bool { return shift.scans[i].Timestamp.Before(shift.scans[j].Timestamp) })
		scans := make([]Scan, 0, len(shift.scans))
		for _, ev := range shift.scans {
			scans = append(scans, Scan{At: ev.Timestamp, SiteID: sites.siteOf(ev.DeviceID)})
		}
		out.processed += len(scans)

		res := ResolveStatus(StatusInput{
			Schedule: shift.schedule,
			Profile:  p.cfg.Bands.Classify(shift.schedule),
			Date:     d,
			Scans:    scans,
		}, p.cfg)

		key := attendance.Key{EmployeeID: emp.ID, ScheduleID: shift.schedule.ID, ShiftDate: d}
		rec, err := p.writer.Write(ctx, key, res)
		if err != nil {
			slog.Error("Biometric: failed to write attendance", "key", key.String(), "error", err)
			out.warnings = append(out.warnings, err.Error())
			continue
		}
		out.written = append(out.written, rec.ID)
	}
	return out
}

// assignShifts groups an employee's scans into shift dates, each measured against a schedule
// assigned on that date. Scans are first grouped with the schedule that fits the whole batch
// best; a date where that schedule is not assigned is regrouped with the schedule that is.
// Scans landing on a date with no assigned schedule are counted per date in unassigned.
func (p *Processor) assignShifts(
	emp employee.Employee,
	events []biometric.ScanEvent,
	candidates []schedule.EmployeeSchedule,
	roster Roster,
) (map[schedule.ShiftDate]*employeeShift, map[schedule.ShiftDate]int) {
	shifts := make(map[schedule.ShiftDate]*employeeShift)
	unassigned := make(map[schedule.ShiftDate]int)

	add := func(s schedule.EmployeeSchedule, d schedule.ShiftDate, scans []biometric.ScanEvent) {
		// One record per employee and shift date: the first schedule to claim a date keeps it.
		shift, ok := shifts[d]
		if !ok {
			shifts[d] = &employeeShift{schedule: s, scans: append([]biometric.ScanEvent(nil), scans...)}
			return
		}
		shift.scans = append(shift.scans, scans...)
	}

	primary, _ := pickSchedule(candidates, events)
	for _, bucket := range GroupByShiftDate(events, p.cfg.Bands.Classify(primary)) {
		if roster.ActiveOn(primary.ID, bucket.Date) {
			add(primary, bucket.Date, bucket.Scans)
			continue
		}

		sched, ok := pickSchedule(roster.SchedulesOn(emp.ID, bucket.Date), bucket.Scans)
		if !ok {
			unassigned[bucket.Date] += len(bucket.Scans)
			continue
		}
		for _, regrouped := range GroupByShiftDate(bucket.Scans, p.cfg.Bands.Classify(sched)) {
			if !roster.ActiveOn(sched.ID, regrouped.Date) {
				unassigned[regrouped.Date] += len(regrouped.Scans)
				continue
			}
			add(sched, regrouped.Date, regrouped.Scans)
		}
	}
	return shifts, unassigned
}

// addAbsences adds an empty shift for every work day in the period on which a schedule is
// assigned and nothing was scanned. The shift window has to lie inside the period, and a
// site's export says nothing about who was absent from another site.
func (p *Processor) addAbsences(
	shifts map[schedule.ShiftDate]*employeeShift,
	candidates []schedule.EmployeeSchedule,
	roster Roster,
	sites siteIndex,
	from, to schedule.ShiftDate,
	out *employeeOutcome,
) {
	periodStart := from.Time(p.cfg.Location)
	periodEnd := to.AddDays(1).Time(p.cfg.Location)

	for _, sched := range candidates {
		if sites.upload != "" && sites.upload != sched.SiteID {
			continue
		}
		workDates, err := WorkDates(sched, from, to)
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("schedule %s: %v", sched.ID, err))
			continue
		}
		profile := p.cfg.Bands.Classify(sched)
		for _, d := range workDates {
			if _, has := shifts[d]; has || !roster.ActiveOn(sched.ID, d) {
				continue
			}
			start, end := profile.Window(d, p.cfg.Location)
			if start.Before(periodStart) || end.After(periodEnd) {
				continue
			}
			shifts[d] = &employeeShift{schedule: sched}
		}
	}
}

func sortedDates(m map[schedule.ShiftDate]int) []schedule.ShiftDate {
	dates := make([]schedule.ShiftDate, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// pickSchedule chooses the schedule scans are measured against: the one whose shift the
// scans sit closest to by shiftAffinity. Without scans, or on a tie, the first by ID wins.
func pickSchedule(schedules []schedule.EmployeeSchedule, events []biometric.ScanEvent) (schedule.EmployeeSchedule, bool) {
	if len(schedules) == 0 {
		return schedule.EmployeeSchedule{}, false
	}
	if len(schedules) == 1 || len(events) == 0 {
		return schedules[0], true
	}

	clocks := make([]schedule.Clock, len(events))
	for i, ev := range events {
		clocks[i] = schedule.ClockOf(ev.Timestamp)
	}

	best, bestScore := schedules[0], math.MaxInt
	for _, s := range schedules {
		if score := shiftAffinity(clocks, s); score < bestScore {
			best, bestScore = s, score
		}
	}
	return best, true
}
