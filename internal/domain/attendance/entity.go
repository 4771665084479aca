package attendance

import (
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

type Status string

const (
	StatusOnTime            Status = "on_time"
	StatusTardy             Status = "tardy"
	StatusHalfDayAbsence    Status = "half_day_absence"
	StatusNCNS              Status = "ncns"
	StatusFailedBioIn       Status = "failed_bio_in"
	StatusFailedBioOut      Status = "failed_bio_out"
	StatusNeedsManualReview Status = "needs_manual_review"
)

var StatusValues = []string{
	string(StatusOnTime),
	string(StatusTardy),
	string(StatusHalfDayAbsence),
	string(StatusNCNS),
	string(StatusFailedBioIn),
	string(StatusFailedBioOut),
	string(StatusNeedsManualReview),
}

type SecondaryStatus string

const (
	SecondaryRestDay        SecondaryStatus = "rest_day"
	SecondaryUndertime      SecondaryStatus = "undertime"
	SecondaryTardy          SecondaryStatus = "tardy"
	SecondaryHalfDayAbsence SecondaryStatus = "half_day_absence"
)

// AttendanceRecord is the single attendance row per employee, schedule and shift date.
type AttendanceRecord struct {
	ID               string
	EmployeeID       string
	ScheduleID       string
	ShiftDate        schedule.ShiftDate
	ScheduledTimeIn  time.Time
	ScheduledTimeOut time.Time
	ActualTimeIn     *time.Time
	ActualTimeOut    *time.Time
	BioInSiteID      *string
	BioOutSiteID     *string
	Status           Status
	SecondaryStatus  *SecondaryStatus
	TardyMinutes     *int
	UndertimeMinutes *int
	IsCrossSiteBio   bool
	Warnings         []string

	// Owned by the review workflow, never written by resolution.
	AdminVerified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resolution is the complete set of fields derived by one resolution pass. Applying it
// replaces every derived field of a record; a nil here is written as NULL.
type Resolution struct {
	ScheduledTimeIn  time.Time
	ScheduledTimeOut time.Time
	ActualTimeIn     *time.Time
	ActualTimeOut    *time.Time
	BioInSiteID      *string
	BioOutSiteID     *string
	Status           Status
	SecondaryStatus  *SecondaryStatus
	TardyMinutes     *int
	UndertimeMinutes *int
	IsCrossSiteBio   bool
	Warnings         []string
}

// Apply overwrites all resolution-owned fields of r with res.
func (r *AttendanceRecord) Apply(res Resolution) {
	r.ScheduledTimeIn = res.ScheduledTimeIn
	r.ScheduledTimeOut = res.ScheduledTimeOut
	r.ActualTimeIn = res.ActualTimeIn
	r.ActualTimeOut = res.ActualTimeOut
	r.BioInSiteID = res.BioInSiteID
	r.BioOutSiteID = res.BioOutSiteID
	r.Status = res.Status
	r.SecondaryStatus = res.SecondaryStatus
	r.TardyMinutes = res.TardyMinutes
	r.UndertimeMinutes = res.UndertimeMinutes
	r.IsCrossSiteBio = res.IsCrossSiteBio
	r.Warnings = nil
	if len(res.Warnings) > 0 {
		r.Warnings = append([]string(nil), res.Warnings...)
	}
}

// Key identifies the one record a resolution pass targets.
type Key struct {
	EmployeeID string
	ScheduleID string
	ShiftDate  schedule.ShiftDate
}

func (k Key) String() string {
	return k.EmployeeID + "|" + k.ScheduleID + "|" + k.ShiftDate.String()
}

func (r AttendanceRecord) Key() Key {
	return Key{EmployeeID: r.EmployeeID, ScheduleID: r.ScheduleID, ShiftDate: r.ShiftDate}
}
