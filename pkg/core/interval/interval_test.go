package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

func at(hour, minute int) time.Time {
	// Monday, Jan 6 2025
	return time.Date(2025, 1, 6, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		startA, endA, startB, endB time.Time
		expected                   bool
	}{
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"partial overlap at start", at(9, 0), at(10, 0), at(9, 30), at(11, 0), true},
		{"partial overlap at end", at(9, 30), at(11, 0), at(9, 0), at(10, 0), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"touching end to start", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"touching start to end", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(14, 0), at(15, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.startA, tt.endA, tt.startB, tt.endB))
		})
	}
}

func TestDayNumbering(t *testing.T) {
	tests := []struct {
		date           time.Time
		opening        model.OpeningDay
		unavailability model.UnavailabilityDay
	}{
		{time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC), model.OpeningMonday, model.UnavailableMonday},
		{time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC), model.OpeningWednesday, model.UnavailableWednesday},
		{time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC), model.OpeningSaturday, model.UnavailableSaturday},
		{time.Date(2025, 1, 12, 12, 0, 0, 0, time.UTC), model.OpeningSunday, model.UnavailableSunday},
	}

	for _, tt := range tests {
		t.Run(tt.date.Weekday().String(), func(t *testing.T) {
			assert.Equal(t, tt.opening, OpeningDayOf(tt.date))
			assert.Equal(t, tt.unavailability, UnavailabilityDayOf(tt.date))
			assert.Equal(t, int(tt.opening)-1, int(tt.unavailability))
			assert.Equal(t, tt.date.Weekday(), tt.opening.Weekday())
			assert.Equal(t, tt.date.Weekday(), tt.unavailability.Weekday())
		})
	}
}

func TestTimeOfDayOf(t *testing.T) {
	tod := TimeOfDayOf(time.Date(2025, 1, 6, 8, 30, 15, 0, time.UTC))
	assert.Equal(t, model.NewTimeOfDay(8, 30, 15), tod)
	assert.Equal(t, "08:30:15", tod.String())
}

func TestDateOfAndSameDate(t *testing.T) {
	ts := time.Date(2025, 1, 6, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), DateOf(ts))
	assert.True(t, SameDate(ts, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameDate(ts, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)))
}

func TestAddWeeks(t *testing.T) {
	start := at(9, 0)
	assert.Equal(t, time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC), AddWeeks(start, 4))
}
