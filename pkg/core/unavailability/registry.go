// Package unavailability answers whether a staff member can work at a given time.
package unavailability

import (
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

// Registry holds the unavailability records of one staff member
type Registry struct {
	entries []model.Unavailability
}

// NewRegistry builds a registry from a staff member's records (inactive ones are ignored)
func NewRegistry(entries []model.Unavailability) *Registry {
	return &Registry{entries: entries}
}

// Check returns an unavailable rejection for the first active entry matching t:
// a recurring entry on t's weekday (Monday=0) or a one-off entry on t's date.
func (r *Registry) Check(t time.Time) error {
	day := interval.UnavailabilityDayOf(t)

	for _, e := range r.entries {
		if !e.Active {
			continue
		}
		switch e.Mode {
		case model.UnavailabilityRecurring:
			if e.DayOfWeek != nil && *e.DayOfWeek == day {
				return model.Reject(model.KindUnavailable, "staff %s is unavailable every %s%s", e.StaffID, day, reasonSuffix(e.Reason))
			}
		case model.UnavailabilityOneOff:
			if e.Date != nil && interval.SameDate(*e.Date, t) {
				return model.Reject(model.KindUnavailable, "staff %s is unavailable on %s%s", e.StaffID, e.Date.Format("2006-01-02"), reasonSuffix(e.Reason))
			}
		}
	}
	return nil
}

// IsUnavailable reports whether any active entry matches t
func (r *Registry) IsUnavailable(t time.Time) bool {
	return r.Check(t) != nil
}

func reasonSuffix(reason string) string {
	if reason == "" {
		return ""
	}
	return " (" + reason + ")"
}

// Validate enforces the mode invariant: recurring entries need a valid day of
// week, one-off entries need a date.
func Validate(e model.Unavailability) error {
	if e.StaffID == "" {
		return model.Reject(model.KindInvalid, "unavailability requires a staff member")
	}
	switch e.Mode {
	case model.UnavailabilityRecurring:
		if e.DayOfWeek == nil {
			return model.Reject(model.KindInvalid, "recurring unavailability requires a day of week")
		}
		if !e.DayOfWeek.Valid() {
			return model.Reject(model.KindInvalid, "day of week must be between 0 (Monday) and 6 (Sunday), got %d", int(*e.DayOfWeek))
		}
	case model.UnavailabilityOneOff:
		if e.Date == nil {
			return model.Reject(model.KindInvalid, "one-off unavailability requires a date")
		}
	default:
		return model.Reject(model.KindInvalid, "unknown unavailability mode %q", e.Mode)
	}
	return nil
}
