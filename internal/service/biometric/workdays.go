package biometric

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/teambition/rrule-go"
)

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// WorkDayRule renders a schedule's work days as a weekly recurrence rule.
func WorkDayRule(s schedule.EmployeeSchedule) string {
	codes := make([]string, 0, len(s.WorkDays))
	for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if s.WorksOn(day) {
			codes = append(codes, weekdayCodes[day])
		}
	}
	if len(codes) == 0 {
		return ""
	}
	return "FREQ=WEEKLY;BYDAY=" + strings.Join(codes, ",")
}

// WorkDates expands the schedule's work days between from and to, both inclusive.
func WorkDates(s schedule.EmployeeSchedule, from, to schedule.ShiftDate) ([]schedule.ShiftDate, error) {
	rule := WorkDayRule(s)
	if rule == "" || to.Before(from) {
		return nil, nil
	}

	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("parse work day rule %q: %w", rule, err)
	}
	opt.Dtstart = from.Time(time.UTC)

	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build work day rule %q: %w", rule, err)
	}

	set := rrule.Set{}
	set.RRule(rr)

	instances := set.Between(from.Time(time.UTC), to.Time(time.UTC), true)
	dates := make([]schedule.ShiftDate, 0, len(instances))
	for _, t := range instances {
		dates = append(dates, schedule.ShiftDateOf(t))
	}
	return dates, nil
}
