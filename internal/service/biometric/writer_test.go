package biometric

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceWriter_Write(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAttendanceRepo()
	w := NewAttendanceWriter(repo)

	key := attendance.Key{EmployeeID: "emp-1", ScheduleID: "sch-1", ShiftDate: schedule.ShiftDate("2024-03-04")}
	in := time.Date(2024, 3, 4, 0, 10, 0, 0, time.UTC)
	out := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	tardy := 10
	site := "site-a"

	first, err := w.Write(ctx, key, attendance.Resolution{
		ActualTimeIn:  &in,
		ActualTimeOut: &out,
		BioInSiteID:   &site,
		Status:        attendance.StatusOnTime,
		TardyMinutes:  &tardy,
		Warnings:      []string{"duplicate scans collapsed"},
	})
	require.NoError(t, err)
	assert.Equal(t, key, first.Key())

	// Simulate a reviewer signing off between imports.
	stored := repo.records[key]
	stored.AdminVerified = true
	repo.records[key] = stored

	second, err := w.Write(ctx, key, attendance.Resolution{Status: attendance.StatusFailedBioOut, ActualTimeIn: &in})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.AdminVerified)
	assert.Equal(t, attendance.StatusFailedBioOut, second.Status)
	assert.Nil(t, second.ActualTimeOut)
	assert.Nil(t, second.BioInSiteID)
	assert.Nil(t, second.TardyMinutes)
	assert.Empty(t, second.Warnings)
	assert.Len(t, repo.records, 1)
}

func TestAttendanceWriter_RejectsIncompleteKey(t *testing.T) {
	w := NewAttendanceWriter(newFakeAttendanceRepo())

	_, err := w.Write(context.Background(), attendance.Key{EmployeeID: "emp-1", ShiftDate: "2024-03-04"}, attendance.Resolution{Status: attendance.StatusNCNS})
	assert.ErrorIs(t, err, attendance.ErrInvalidRecordKey)
}

func TestAttendanceWriter_RecordedEmployees(t *testing.T) {
	ctx := context.Background()
	w := NewAttendanceWriter(newFakeAttendanceRepo())

	for _, key := range []attendance.Key{
		{EmployeeID: "emp-1", ScheduleID: "sch-1", ShiftDate: "2024-03-04"},
		{EmployeeID: "emp-2", ScheduleID: "sch-2", ShiftDate: "2024-03-05"},
	} {
		_, err := w.Write(ctx, key, attendance.Resolution{Status: attendance.StatusOnTime})
		require.NoError(t, err)
	}

	recorded, err := w.RecordedEmployees(ctx, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"emp-1": true}, recorded)
}
