package biometric

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// ResolverConfig holds the tunable thresholds of the resolution pipeline.
type ResolverConfig struct {
	Location *time.Location

	// Lateness below this many minutes still counts as on time.
	LateThresholdMinutes int

	// A resolved scan further than this from its scheduled boundary forces manual review.
	AnomalyThreshold time.Duration

	// Scans spanning less than this are one punch, not an in/out pair.
	MinPairSpan time.Duration

	AffinityMargin time.Duration
	Bands          ShiftBands
	Workers        int
}

func DefaultResolverConfig() ResolverConfig {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		loc = time.FixedZone("PHT", 8*60*60)
	}
	return ResolverConfig{
		Location:             loc,
		LateThresholdMinutes: 15,
		AnomalyThreshold:     6 * time.Hour,
		MinPairSpan:          60 * time.Minute,
		AffinityMargin:       0,
		Bands:                DefaultShiftBands(),
		Workers:              4,
	}
}

// Scan is one punch inside a shift bucket with the site it was collected at.
type Scan struct {
	At     time.Time
	SiteID string
}

// StatusInput is one employee's shift on one shift date.
type StatusInput struct {
	Schedule schedule.EmployeeSchedule
	Profile  ShiftProfile
	Date     schedule.ShiftDate
	Scans    []Scan // oldest first
}

// shiftFacts are the measurements the status rules are evaluated against.
type shiftFacts struct {
	hasIn, hasOut bool
	anomaly       bool
	tardy         int
	grace         int
	lateThreshold int
}

type statusRule struct {
	status attendance.Status
	when   func(f shiftFacts) bool
}

// statusRules is evaluated top to bottom; the first match wins.
var statusRules = []statusRule{
	{attendance.StatusNeedsManualReview, func(f shiftFacts) bool { return f.anomaly }},
	{attendance.StatusNCNS, func(f shiftFacts) bool { return !f.hasIn && !f.hasOut }},
	{attendance.StatusFailedBioIn, func(f shiftFacts) bool { return !f.hasIn }},
	{attendance.StatusFailedBioOut, func(f shiftFacts) bool { return !f.hasOut }},
	{attendance.StatusOnTime, func(f shiftFacts) bool { return f.tardy < f.lateThreshold }},
	{attendance.StatusTardy, func(f shiftFacts) bool { return f.tardy <= f.grace }},
	{attendance.StatusHalfDayAbsence, func(shiftFacts) bool { return true }},
}

func (f shiftFacts) status() attendance.Status {
	for _, r := range statusRules {
		if r.when(f) {
			return r.status
		}
	}
	return attendance.StatusHalfDayAbsence
}

// ResolveStatus derives the complete attendance resolution for one shift date.
func ResolveStatus(in StatusInput, cfg ResolverConfig) attendance.Resolution {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	start, end := in.Profile.Window(in.Date, loc)
	res := attendance.Resolution{
		ScheduledTimeIn:  start,
		ScheduledTimeOut: end,
	}

	var warnings []string
	timeIn, timeOut, collapsed := pairScans(in.Scans, start, end, cfg.MinPairSpan)
	if collapsed {
		warnings = append(warnings, fmt.Sprintf("%d scans within %s treated as a single punch", len(in.Scans), cfg.MinPairSpan))
	}

	facts := shiftFacts{
		hasIn:         timeIn != nil,
		hasOut:        timeOut != nil,
		grace:         in.Schedule.GracePeriodMinutes,
		lateThreshold: cfg.LateThresholdMinutes,
	}

	var tardy, undertime int
	if timeIn != nil {
		at := timeIn.At.In(loc)
		res.ActualTimeIn = &at
		res.BioInSiteID = siteRef(timeIn.SiteID)
		if dev := absDuration(at.Sub(start)); dev > cfg.AnomalyThreshold {
			facts.anomaly = true
			warnings = append(warnings, fmt.Sprintf("time-in %s is %s from scheduled %s", at.Format("2006-01-02 15:04"), dev, start.Format("2006-01-02 15:04")))
		}
		tardy = floorMinutes(at.Sub(start))
	}
	if timeOut != nil {
		at := timeOut.At.In(loc)
		res.ActualTimeOut = &at
		res.BioOutSiteID = siteRef(timeOut.SiteID)
		if dev := absDuration(end.Sub(at)); dev > cfg.AnomalyThreshold {
			facts.anomaly = true
			warnings = append(warnings, fmt.Sprintf("time-out %s is %s from scheduled %s", at.Format("2006-01-02 15:04"), dev, end.Format("2006-01-02 15:04")))
		}
		undertime = floorMinutes(end.Sub(at))
	}
	facts.tardy = tardy

	res.Status = facts.status()
	res.IsCrossSiteBio = crossSite(res.BioInSiteID, in.Schedule.SiteID) || crossSite(res.BioOutSiteID, in.Schedule.SiteID)

	switch res.Status {
	case attendance.StatusNeedsManualReview, attendance.StatusNCNS:
		// Measurements against a rejected pairing mean nothing.
	default:
		if facts.hasIn {
			res.TardyMinutes = &tardy
		}
		if facts.hasOut {
			res.UndertimeMinutes = &undertime
		}
	}

	res.SecondaryStatus = secondaryStatus(in, res.Status, facts, undertime)
	if len(warnings) > 0 {
		res.Warnings = warnings
	}
	return res
}

// pairScans picks the time-in and time-out punches. A lone punch, or a cluster too tight to
// be a pair, is one side only: whichever scheduled boundary it sits closer to.
func pairScans(scans []Scan, start, end time.Time, minSpan time.Duration) (timeIn, timeOut *Scan, collapsed bool) {
	if len(scans) == 0 {
		return nil, nil, false
	}
	first, last := scans[0], scans[len(scans)-1]
	if len(scans) > 1 && last.At.Sub(first.At) >= minSpan {
		return &first, &last, false
	}

	if absDuration(first.At.Sub(start)) <= absDuration(end.Sub(last.At)) {
		return &first, nil, len(scans) > 1
	}
	return nil, &last, len(scans) > 1
}

func secondaryStatus(in StatusInput, status attendance.Status, f shiftFacts, undertime int) *attendance.SecondaryStatus {
	var s attendance.SecondaryStatus
	switch {
	case !in.Schedule.WorksOn(in.Date.Weekday()):
		s = attendance.SecondaryRestDay
	case status == attendance.StatusFailedBioOut && f.tardy >= f.lateThreshold:
		s = attendance.SecondaryHalfDayAbsence
		if f.tardy <= f.grace {
			s = attendance.SecondaryTardy
		}
	case (status == attendance.StatusOnTime || status == attendance.StatusTardy) && undertime > 0:
		s = attendance.SecondaryUndertime
	default:
		return nil
	}
	return &s
}

func crossSite(bioSite *string, scheduleSite string) bool {
	return bioSite != nil && scheduleSite != "" && *bioSite != scheduleSite
}

func siteRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// floorMinutes returns whole minutes of d, never negative.
func floorMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
