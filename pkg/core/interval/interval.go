// Package interval holds the time arithmetic shared by the roster and booking engines.
package interval

import (
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}

// OpeningDayOf returns the opening-hours day number (Monday=1 .. Sunday=7) of t
func OpeningDayOf(t time.Time) model.OpeningDay {
	return model.OpeningDay(mondayIndex(t) + 1)
}

// UnavailabilityDayOf returns the unavailability day number (Monday=0 .. Sunday=6) of t
func UnavailabilityDayOf(t time.Time) model.UnavailabilityDay {
	return model.UnavailabilityDay(mondayIndex(t))
}

// mondayIndex maps time.Weekday (Sunday=0) onto a Monday-first index 0..6
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// TimeOfDayOf returns the wall-clock component of t in its own location
func TimeOfDayOf(t time.Time) model.TimeOfDay {
	return model.NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// DateOf truncates t to midnight in its own location
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar date
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddWeeks shifts t by n calendar weeks, preserving wall-clock time across DST changes
func AddWeeks(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, 7*n)
}
