// Package roster validates proposed staff shifts against the staff member's
// other shifts and unavailability. It is pure: callers load the state and
// persist the outcome.
package roster

import (
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/unavailability"
)

// Proposal is a shift a staff member wants to work
type Proposal struct {
	Staff     *model.Staff
	DaycareID string
	Start     time.Time
	End       time.Time
	Day       time.Time

	// ExcludeShiftID is the shift being replaced when updating; it is ignored for overlap checks
	ExcludeShiftID string
}

// State is what the scheduler needs to know about the staff member
type State struct {
	// Shifts are the staff member's shifts on the proposal's day (any daycare)
	Shifts []model.StaffShift

	// Unavailability are the staff member's unavailability records
	Unavailability []model.Unavailability
}

// check is one validation step; checks run in order and the first failure wins
type check struct {
	name string
	fn   func(p *Proposal, s *State) error
}

var checks = []check{
	{"interval", checkInterval},
	{"association", checkAssociation},
	{"overlap", checkOverlap},
	{"unavailability", checkUnavailability},
}

// Validate runs the roster checks in order and returns the first rejection
func Validate(p *Proposal, s *State) error {
	for _, c := range checks {
		if err := c.fn(p, s); err != nil {
			return err
		}
	}
	return nil
}

func checkInterval(p *Proposal, _ *State) error {
	if p.Staff == nil {
		return model.Reject(model.KindInvalid, "shift requires a staff member")
	}
	if !p.Start.Before(p.End) {
		return model.Reject(model.KindInvalid, "shift start %s must be before end %s",
			p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	return nil
}

func checkAssociation(p *Proposal, _ *State) error {
	if !p.Staff.CanManage(p.DaycareID) {
		return model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", p.Staff.ID, p.DaycareID)
	}
	return nil
}

func checkOverlap(p *Proposal, s *State) error {
	if conflict := FindOverlap(p, s.Shifts); conflict != nil {
		return model.Reject(model.KindOverlap, "shift overlaps shift %s (%s - %s)",
			conflict.ID, conflict.Start.Format("15:04"), conflict.End.Format("15:04"))
	}
	return nil
}

func checkUnavailability(p *Proposal, s *State) error {
	return unavailability.NewRegistry(s.Unavailability).Check(p.Start)
}

// FindOverlap returns the first active shift of the same staff member on the
// proposal's day that overlaps it, skipping the excluded shift
func FindOverlap(p *Proposal, shifts []model.StaffShift) *model.StaffShift {
	for i := range shifts {
		sh := &shifts[i]
		if !sh.Active || sh.StaffID != p.Staff.ID {
			continue
		}
		if p.ExcludeShiftID != "" && sh.ID == p.ExcludeShiftID {
			continue
		}
		if !interval.SameDate(sh.Day, p.Day) {
			continue
		}
		if interval.Overlaps(p.Start, p.End, sh.Start, sh.End) {
			return sh
		}
	}
	return nil
}

// ActiveOnly filters a roster down to active shifts, the only ones that make up the current roster
func ActiveOnly(shifts []model.StaffShift) []model.StaffShift {
	active := make([]model.StaffShift, 0, len(shifts))
	for _, sh := range shifts {
		if sh.Active {
			active = append(active, sh)
		}
	}
	return active
}

// Deactivate moves a shift from Active to Inactive. There is no way back.
func Deactivate(sh *model.StaffShift) error {
	if !sh.Active {
		return model.Reject(model.KindPrecondition, "shift %s is already inactive", sh.ID)
	}
	sh.Active = false
	return nil
}
