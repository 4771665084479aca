package biometric

import (
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

type ShiftType string

const (
	ShiftGraveyard ShiftType = "graveyard"
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftEvening   ShiftType = "evening"
	ShiftNight     ShiftType = "night"
)

// ShiftBands holds the first hour of each band. Hours before MorningFrom are graveyard.
type ShiftBands struct {
	MorningFrom   int
	AfternoonFrom int
	EveningFrom   int
	NightFrom     int
}

func DefaultShiftBands() ShiftBands {
	return ShiftBands{
		MorningFrom:   5,
		AfternoonFrom: 12,
		EveningFrom:   17,
		NightFrom:     21,
	}
}

// ShiftProfile is everything downstream code needs to know about a schedule's calendar shape.
type ShiftProfile struct {
	Type     ShiftType
	NextDay  bool
	Duration time.Duration
	TimeIn   schedule.Clock
	TimeOut  schedule.Clock
}

// Type returns the band the given start hour falls into.
func (b ShiftBands) Type(hour int) ShiftType {
	switch {
	case hour < b.MorningFrom:
		return ShiftGraveyard
	case hour < b.AfternoonFrom:
		return ShiftMorning
	case hour < b.EveningFrom:
		return ShiftAfternoon
	case hour < b.NightFrom:
		return ShiftEvening
	default:
		return ShiftNight
	}
}

// Classify derives the shift type from the scheduled start hour and decides whether the
// shift ends on the following calendar day. Graveyard shifts never do: they start after
// midnight and end the same date.
func (b ShiftBands) Classify(s schedule.EmployeeSchedule) ShiftProfile {
	in, out := s.ScheduledTimeIn, s.ScheduledTimeOut
	kind := b.Type(in.Hour())

	minutes := out.Minutes() - in.Minutes()
	if minutes <= 0 {
		minutes += 24 * 60
	}

	return ShiftProfile{
		Type:     kind,
		NextDay:  out <= in && kind != ShiftGraveyard,
		Duration: time.Duration(minutes) * time.Minute,
		TimeIn:   in,
		TimeOut:  out,
	}
}

// Window returns the scheduled start and end of the shift attributed to date d.
func (p ShiftProfile) Window(d schedule.ShiftDate, loc *time.Location) (time.Time, time.Time) {
	start := p.TimeIn.On(d, loc)
	end := p.TimeOut.On(d, loc)
	if p.NextDay {
		end = p.TimeOut.On(d.AddDays(1), loc)
	}
	return start, end
}
