package unavailability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

func dayPtr(d model.UnavailabilityDay) *model.UnavailabilityDay {
	return &d
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCheck_Recurring(t *testing.T) {
	reg := NewRegistry([]model.Unavailability{
		{ID: "u-1", StaffID: "staff-1", Mode: model.UnavailabilityRecurring, DayOfWeek: dayPtr(model.UnavailableWednesday), Reason: "university", Active: true},
	})

	// Wednesday Jan 8 2025
	wed := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)
	err := reg.Check(wed)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUnavailable))
	assert.Contains(t, err.Error(), "every Wednesday")
	assert.Contains(t, err.Error(), "university")

	// Every Wednesday, not just one
	assert.True(t, reg.IsUnavailable(wed.AddDate(0, 0, 7*10)))

	// Thursday is fine
	assert.NoError(t, reg.Check(wed.AddDate(0, 0, 1)))
}

func TestCheck_RecurringUsesMondayZero(t *testing.T) {
	// Day 0 must be Monday, not Sunday
	reg := NewRegistry([]model.Unavailability{
		{StaffID: "staff-1", Mode: model.UnavailabilityRecurring, DayOfWeek: dayPtr(0), Active: true},
	})

	assert.True(t, reg.IsUnavailable(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)))
	assert.False(t, reg.IsUnavailable(time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)))
}

func TestCheck_OneOff(t *testing.T) {
	reg := NewRegistry([]model.Unavailability{
		{StaffID: "staff-1", Mode: model.UnavailabilityOneOff, Date: datePtr(2025, 3, 14), Reason: "dentist", Active: true},
	})

	err := reg.Check(time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-03-14")

	assert.False(t, reg.IsUnavailable(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, reg.IsUnavailable(time.Date(2025, 3, 21, 15, 30, 0, 0, time.UTC)), "one-off does not repeat")
}

func TestCheck_IgnoresInactive(t *testing.T) {
	reg := NewRegistry([]model.Unavailability{
		{StaffID: "staff-1", Mode: model.UnavailabilityRecurring, DayOfWeek: dayPtr(model.UnavailableMonday), Active: false},
		{StaffID: "staff-1", Mode: model.UnavailabilityOneOff, Date: datePtr(2025, 1, 6), Active: false},
	})

	assert.NoError(t, reg.Check(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)))
}

func TestCheck_FirstMatchWins(t *testing.T) {
	reg := NewRegistry([]model.Unavailability{
		{StaffID: "staff-1", Mode: model.UnavailabilityOneOff, Date: datePtr(2025, 1, 6), Reason: "holiday", Active: true},
		{StaffID: "staff-1", Mode: model.UnavailabilityRecurring, DayOfWeek: dayPtr(model.UnavailableMonday), Reason: "school run", Active: true},
	})

	err := reg.Check(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holiday")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   model.Unavailability
		wantErr string
	}{
		{"recurring", model.Unavailability{StaffID: "s", Mode: model.UnavailabilityRecurring, DayOfWeek: dayPtr(model.UnavailableSunday)}, ""},
		{"one-off", model.Unavailability{StaffID: "s", Mode: model.UnavailabilityOneOff, Date: datePtr(2025, 1, 1)}, ""},
		{"recurring without day", model.Unavailability{StaffID: "s", Mode: model.UnavailabilityRecurring, Date: datePtr(2025, 1, 1)}, "requires a day of week"},
		{"recurring day out of range", model.Unavailability{StaffID: "s", Mode: model.UnavailabilityRecurring, DayOfWeek: dayPtr(7)}, "between 0 (Monday) and 6"},
		{"one-off without date", model.Unavailability{StaffID: "s", Mode: model.UnavailabilityOneOff, DayOfWeek: dayPtr(1)}, "requires a date"},
		{"unknown mode", model.Unavailability{StaffID: "s", Mode: "weekly"}, "unknown unavailability mode"},
		{"missing staff", model.Unavailability{Mode: model.UnavailabilityOneOff, Date: datePtr(2025, 1, 1)}, "requires a staff member"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.entry)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
