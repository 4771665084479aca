package biometric

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// Roster is an immutable snapshot of the directory taken once per batch: the candidate
// employees, their active schedules and the dates each schedule is assigned on.
type Roster struct {
	employees []employee.Employee
	byID      map[string]employee.Employee
	schedules map[string][]schedule.EmployeeSchedule

	// schedule IDs per shift date; nil when the roster is not dated.
	activeOn map[schedule.ShiftDate]map[string]bool
}

// NewRoster copies the given employees and keeps only the active schedules. The roster is
// undated: every schedule counts as assigned on every date.
func NewRoster(employees []employee.Employee, schedules []schedule.EmployeeSchedule) Roster {
	r := Roster{
		employees: append([]employee.Employee(nil), employees...),
		byID:      make(map[string]employee.Employee, len(employees)),
		schedules: make(map[string][]schedule.EmployeeSchedule),
	}
	sort.Slice(r.employees, func(i, j int) bool { return r.employees[i].ID < r.employees[j].ID })
	for _, e := range r.employees {
		r.byID[e.ID] = e
	}

	seen := make(map[string]bool)
	for _, s := range schedules {
		if !s.IsActive || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		r.schedules[s.EmployeeID] = append(r.schedules[s.EmployeeID], s)
	}
	for id := range r.schedules {
		list := r.schedules[id]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return r
}

func (r Roster) Employees() []employee.Employee {
	return append([]employee.Employee(nil), r.employees...)
}

func (r Roster) Employee(id string) (employee.Employee, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// SchedulesFor returns the employee's active schedules ordered by ID.
func (r Roster) SchedulesFor(employeeID string) []schedule.EmployeeSchedule {
	return append([]schedule.EmployeeSchedule(nil), r.schedules[employeeID]...)
}

// NewDatedRoster builds a roster from the directory's per-date answers. A schedule is only
// assigned on the dates it was returned for; dates missing from byDate have none.
func NewDatedRoster(employees []employee.Employee, byDate map[schedule.ShiftDate][]schedule.EmployeeSchedule) Roster {
	var all []schedule.EmployeeSchedule
	activeOn := make(map[schedule.ShiftDate]map[string]bool, len(byDate))
	for date, schedules := range byDate {
		ids := make(map[string]bool, len(schedules))
		for _, s := range schedules {
			if s.IsActive {
				ids[s.ID] = true
			}
		}
		activeOn[date] = ids
		all = append(all, schedules...)
	}

	r := NewRoster(employees, all)
	r.activeOn = activeOn
	return r
}

// ActiveOn reports whether the schedule is assigned on date.
func (r Roster) ActiveOn(scheduleID string, date schedule.ShiftDate) bool {
	if r.activeOn == nil {
		return true
	}
	return r.activeOn[date][scheduleID]
}

// SchedulesOn returns the employee's schedules assigned on date, ordered by ID.
func (r Roster) SchedulesOn(employeeID string, date schedule.ShiftDate) []schedule.EmployeeSchedule {
	var out []schedule.EmployeeSchedule
	for _, s := range r.schedules[employeeID] {
		if r.ActiveOn(s.ID, date) {
			out = append(out, s)
		}
	}
	return out
}

type MatchStep string

const (
	MatchLastName      MatchStep = "last_name"
	MatchFirstInitial  MatchStep = "first_initial"
	MatchFirstTwo      MatchStep = "first_two_letters"
	MatchShiftAffinity MatchStep = "shift_affinity"
)

// IdentityResult is either Resolved or Unresolved.
type IdentityResult interface {
	identityResult()
}

type Resolved struct {
	Employee employee.Employee
	Step     MatchStep
}

type Unresolved struct {
	Token      string
	Reason     string
	Candidates []string
}

func (Resolved) identityResult()   {}
func (Unresolved) identityResult() {}

func (u Unresolved) Error() string {
	if len(u.Candidates) == 0 {
		return fmt.Sprintf("unresolved name %q: %s", u.Token, u.Reason)
	}
	return fmt.Sprintf("unresolved name %q: %s (candidates: %s)", u.Token, u.Reason, strings.Join(u.Candidates, ", "))
}

func (u Unresolved) Unwrap() error {
	return biometric.ErrUnresolvedIdentity
}

// ResolveIdentity maps a normalised name token to exactly one roster employee.
//
// Candidates are narrowed by last name, then by the first-name initial carried in the token,
// then by the first two letters. Remaining ties go to the candidate whose shift the token's
// scans sit closest to, measured by shiftAffinity, and only when it beats the runner-up by at
// least margin. Anything else is Unresolved; scans are never attributed to
// a guess.
func ResolveIdentity(token string, scanTimes []time.Time, roster Roster, margin time.Duration) IdentityResult {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return Unresolved{Token: token, Reason: "empty name token"}
	}

	candidates, hint := matchLastName(fields, roster.employees)
	switch len(candidates) {
	case 0:
		return Unresolved{Token: token, Reason: "no active employee with that last name"}
	case 1:
		return Resolved{Employee: candidates[0], Step: MatchLastName}
	}

	narrowing := []struct {
		step   MatchStep
		prefix int
	}{
		{MatchFirstInitial, 1},
		{MatchFirstTwo, 2},
	}
	for _, n := range narrowing {
		if len(hint) < n.prefix {
			break
		}
		filtered := filterByFirstName(candidates, hint[:n.prefix])
		switch len(filtered) {
		case 0:
			return Unresolved{Token: token, Reason: fmt.Sprintf("first name %q matches no candidate", hint[:n.prefix]), Candidates: names(candidates)}
		case 1:
			return Resolved{Employee: filtered[0], Step: n.step}
		}
		candidates = filtered
	}

	if len(scanTimes) > 0 {
		if e, ok := pickByShiftAffinity(candidates, clocksOf(scanTimes), roster, margin); ok {
			return Resolved{Employee: e, Step: MatchShiftAffinity}
		}
	}

	return Unresolved{Token: token, Reason: "ambiguous after all tie-breaks", Candidates: names(candidates)}
}

// matchLastName returns the employees whose last name is the longest leading run of token
// words, plus the remaining words joined as the first-name hint. Exports that put the first
// name first are matched on the trailing words instead.
func matchLastName(fields []string, employees []employee.Employee) ([]employee.Employee, string) {
	var (
		best     []employee.Employee
		bestLen  int
		bestHint string
	)
	for _, e := range employees {
		last := strings.Fields(NormalizeNameToken(e.LastName))
		if len(last) == 0 || len(last) > len(fields) || len(last) < bestLen {
			continue
		}
		if !equalWords(fields[:len(last)], last) {
			continue
		}
		if len(last) > bestLen {
			best, bestLen = nil, len(last)
			bestHint = strings.Join(fields[len(last):], "")
		}
		best = append(best, e)
	}
	if len(best) > 0 {
		return best, bestHint
	}

	for _, e := range employees {
		last := strings.Fields(NormalizeNameToken(e.LastName))
		if len(last) == 0 || len(last) >= len(fields) || len(last) < bestLen {
			continue
		}
		if !equalWords(fields[len(fields)-len(last):], last) {
			continue
		}
		if len(last) > bestLen {
			best, bestLen = nil, len(last)
			bestHint = strings.Join(fields[:len(fields)-len(last)], "")
		}
		best = append(best, e)
	}
	return best, bestHint
}

func filterByFirstName(candidates []employee.Employee, prefix string) []employee.Employee {
	var out []employee.Employee
	for _, e := range candidates {
		first := strings.ReplaceAll(NormalizeNameToken(e.FirstName), " ", "")
		if strings.HasPrefix(first, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func pickByShiftAffinity(candidates []employee.Employee, clocks []schedule.Clock, roster Roster, margin time.Duration) (employee.Employee, bool) {
	type scored struct {
		emp      employee.Employee
		distance int
	}
	var ranked []scored
	for _, e := range candidates {
		schedules := roster.SchedulesFor(e.ID)
		if len(schedules) == 0 {
			continue
		}
		best := -1
		for _, s := range schedules {
			if d := shiftAffinity(clocks, s); best < 0 || d < best {
				best = d
			}
		}
		ranked = append(ranked, scored{emp: e, distance: best})
	}
	if len(ranked) == 0 {
		return employee.Employee{}, false
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })
	if len(ranked) == 1 {
		return ranked[0].emp, true
	}

	lead := ranked[1].distance - ranked[0].distance
	if lead <= 0 || time.Duration(lead)*time.Minute < margin {
		return employee.Employee{}, false
	}
	return ranked[0].emp, true
}

func clocksOf(times []time.Time) []schedule.Clock {
	clocks := make([]schedule.Clock, len(times))
	for i, t := range times {
		clocks[i] = schedule.ClockOf(t)
	}
	return clocks
}

// shiftAffinity is the median distance in minutes from each scan to the nearer end of the
// schedule's shift. Time-ins and time-outs both count, so a night worker's evening and
// morning punches all sit close to a 22:00-07:00 shift.
func shiftAffinity(clocks []schedule.Clock, s schedule.EmployeeSchedule) int {
	if len(clocks) == 0 {
		return 0
	}
	distances := make([]int, len(clocks))
	for i, c := range clocks {
		distances[i] = min(clockDistance(c, s.ScheduledTimeIn), clockDistance(c, s.ScheduledTimeOut))
	}
	sort.Ints(distances)
	mid := len(distances) / 2
	if len(distances)%2 == 1 {
		return distances[mid]
	}
	return (distances[mid-1] + distances[mid]) / 2
}

// clockDistance is the distance in minutes between two times of day, going around midnight
// when that is shorter.
func clockDistance(a, b schedule.Clock) int {
	d := a.Minutes() - b.Minutes()
	if d < 0 {
		d = -d
	}
	if d > 12*60 {
		d = 24*60 - d
	}
	return d
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func names(employees []employee.Employee) []string {
	out := make([]string, 0, len(employees))
	for _, e := range employees {
		out = append(out, e.FullName())
	}
	sort.Strings(out)
	return out
}
