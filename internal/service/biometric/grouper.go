package biometric

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
)

// ShiftBucket holds the scans attributed to one logical shift date, oldest first.
type ShiftBucket struct {
	Date  schedule.ShiftDate
	Scans []biometric.ScanEvent
}

// ShiftDateFor maps one scan to the logical shift date it belongs to.
//
// Same-day shifts, graveyard included, use the scan's own calendar date. For next-day
// shifts the off-duty gap between time-out and the next time-in is split at its midpoint:
// scans after that point open the shift of their own date, scans before it close the
// shift that started the previous day.
func (p ShiftProfile) ShiftDateFor(ts time.Time) schedule.ShiftDate {
	date := schedule.ShiftDateOf(ts)
	if !p.NextDay {
		return date
	}

	gap := 24*60 - int(p.Duration/time.Minute)
	boundary := p.TimeIn.Minutes() - gap/2
	if schedule.ClockOf(ts).Minutes() < boundary {
		return date.AddDays(-1)
	}
	return date
}

// GroupByShiftDate buckets an employee's scans by logical shift date. Buckets come back in
// date order and keep every scan, duplicates included.
func GroupByShiftDate(events []biometric.ScanEvent, profile ShiftProfile) []ShiftBucket {
	byDate := make(map[schedule.ShiftDate][]biometric.ScanEvent)
	for _, ev := range events {
		d := profile.ShiftDateFor(ev.Timestamp)
		byDate[d] = append(byDate[d], ev)
	}

	buckets := make([]ShiftBucket, 0, len(byDate))
	for d, scans := range byDate {
		sort.SliceStable(scans, func(i, j int) bool {
			return scans[i].Timestamp.Before(scans[j].Timestamp)
		})
		buckets = append(buckets, ShiftBucket{Date: d, Scans: scans})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets
}
