// Package hours answers opening-hours questions for a single daycare.
package hours

import (
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

// Directory indexes a daycare's weekly opening hours by day
type Directory struct {
	byDay map[model.OpeningDay]model.OpeningHours
}

// NewDirectory builds a directory from the daycare's opening hours.
// If the same day appears twice, the later entry wins.
func NewDirectory(entries []model.OpeningHours) *Directory {
	byDay := make(map[model.OpeningDay]model.OpeningHours, len(entries))
	for _, e := range entries {
		byDay[e.Day] = e
	}
	return &Directory{byDay: byDay}
}

// Lookup returns the entry for the day of date
func (d *Directory) Lookup(date time.Time) (model.OpeningHours, bool) {
	e, ok := d.byDay[interval.OpeningDayOf(date)]
	return e, ok
}

// IsOpen is false when there is no entry for date's day or the entry is closed
func (d *Directory) IsOpen(date time.Time) bool {
	e, ok := d.Lookup(date)
	return ok && !e.Closed
}

// IsWithinHours compares only the time-of-day of start and end against the
// hours of start's day. Days without configured hours are permissive.
func (d *Directory) IsWithinHours(start, end time.Time) bool {
	e, ok := d.Lookup(start)
	if !ok {
		return true
	}
	if e.Closed || e.From == nil || e.To == nil {
		return false
	}
	return interval.TimeOfDayOf(start) >= *e.From && interval.TimeOfDayOf(end) <= *e.To
}

// CapacityFor returns the configured capacity for date's day, 0 if unset or closed
func (d *Directory) CapacityFor(date time.Time) int {
	e, ok := d.Lookup(date)
	if !ok || e.Closed {
		return 0
	}
	return e.Capacity
}

// Validate checks the opening hours invariants:
// closed entries have no times, open entries have both and From < To.
func Validate(e model.OpeningHours) error {
	if !e.Day.Valid() {
		return model.Reject(model.KindInvalid, "day must be between 1 (Monday) and 7 (Sunday), got %d", int(e.Day))
	}
	if e.Capacity < 0 {
		return model.Reject(model.KindInvalid, "capacity must not be negative, got %d", e.Capacity)
	}
	if e.Closed {
		if e.From != nil || e.To != nil {
			return model.Reject(model.KindInvalid, "closed day %s must not have opening times", e.Day)
		}
		return nil
	}
	if e.From == nil || e.To == nil {
		return model.Reject(model.KindInvalid, "open day %s requires both from and to times", e.Day)
	}
	if *e.From >= *e.To {
		return model.Reject(model.KindInvalid, "opening time %s must be before closing time %s", *e.From, *e.To)
	}
	return nil
}
