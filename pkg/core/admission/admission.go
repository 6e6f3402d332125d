// Package admission decides whether a pet booking is admitted, waitlisted or
// rejected. Like the roster package it is pure: the caller supplies the
// relevant state read inside its transaction and persists the decision.
package admission

import (
	"fmt"
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/hours"
	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

// Outcome is the successful result of an admission
type Outcome string

const (
	OutcomeAdmitted   Outcome = "admitted"
	OutcomeWaitlisted Outcome = "waitlisted"
)

// Request is a booking proposal with its entities already resolved
type Request struct {
	Actor      model.Actor
	Customer   *model.Customer
	Pet        *model.Pet
	DaycareID  string
	Start      time.Time
	End        time.Time
	Products   []model.Product
	Recurrence bool
}

// State is the data the engine reads for one slot
type State struct {
	OpeningHours []model.OpeningHours

	// Blacklist entries for the pet at the daycare
	Blacklist []model.BlacklistedPet

	// PetBookings are the pet's bookings at every daycare
	PetBookings []model.Booking

	// DaycareBookings are the bookings at the requested daycare around the slot
	DaycareBookings []model.Booking
}

// Decision describes an admitted or waitlisted slot
type Decision struct {
	Outcome  Outcome
	Start    time.Time
	End      time.Time
	Capacity int
	Occupied int

	// Advisory is set when the booking overflowed to the waitlist
	Advisory string
}

// Evaluate runs the whole pipeline: request authorization, then the slot checks
func Evaluate(req *Request, state *State) (*Decision, error) {
	if err := Authorize(req); err != nil {
		return nil, err
	}
	return EvaluateSlot(req.Pet.ID, req.DaycareID, req.Start, req.End, state)
}

// Authorize checks the request itself: interval, products, pet ownership and
// the acting user's right to book at the daycare
func Authorize(req *Request) error {
	if req.Customer == nil || req.Pet == nil || req.DaycareID == "" {
		return model.Reject(model.KindInvalid, "booking requires a customer, a pet and a daycare")
	}
	if !req.Start.Before(req.End) {
		return model.Reject(model.KindInvalid, "booking start %s must be before end %s",
			req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339))
	}
	if !req.Pet.Active {
		return model.Reject(model.KindInvalid, "pet %s is not active", req.Pet.ID)
	}
	for _, p := range req.Products {
		if p.DaycareID != req.DaycareID || !p.Active {
			return model.Reject(model.KindInvalid, "product %s is not offered by daycare %s", p.ID, req.DaycareID)
		}
	}

	if !req.Pet.OwnedBy(req.Customer.ID) {
		return model.Reject(model.KindOwnership, "customer %s does not own pet %s", req.Customer.ID, req.Pet.ID)
	}

	switch req.Actor.Kind {
	case model.ActorStaff:
		if !req.Actor.Staff.CanManage(req.DaycareID) {
			return model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", req.Actor.Staff.ID, req.DaycareID)
		}
	case model.ActorCustomer:
		if !req.Actor.IsCustomer(req.Customer.ID) {
			return model.Reject(model.KindPermission, "customer %s cannot book on behalf of customer %s", req.Actor.Customer.ID, req.Customer.ID)
		}
	default:
		return model.Reject(model.KindPermission, "bookings require a staff or customer identity")
	}
	return nil
}

// EvaluateSlot runs the slot checks for one interval in order: blacklist,
// open day, opening hours, pet overlap, then capacity. Capacity overflow is
// not an error; it yields a waitlisted decision.
func EvaluateSlot(petID, daycareID string, start, end time.Time, state *State) (*Decision, error) {
	if e := activeBlacklist(state.Blacklist, petID, daycareID); e != nil {
		return nil, model.Reject(model.KindBlacklisted, "pet %s is blacklisted at daycare %s%s", petID, daycareID, reasonSuffix(e.Reason))
	}

	dir := hours.NewDirectory(state.OpeningHours)
	if !dir.IsOpen(start) {
		return nil, model.Reject(model.KindClosed, "daycare %s is closed on %s", daycareID, start.Format("Monday 2006-01-02"))
	}
	if !dir.IsWithinHours(start, end) {
		e, _ := dir.Lookup(start)
		return nil, model.Reject(model.KindHours, "booking %s-%s is outside opening hours %s-%s",
			start.Format("15:04"), end.Format("15:04"), e.From, e.To)
	}

	if b := findPetOverlap(state.PetBookings, petID, start, end); b != nil {
		return nil, model.Reject(model.KindOverlap, "pet %s already has booking %s at daycare %s from %s to %s",
			petID, b.ID, b.DaycareID, b.Start.Format("2006-01-02 15:04"), b.End.Format("15:04"))
	}

	capacity := dir.CapacityFor(start)
	occupied := CountOccupying(state.DaycareBookings, daycareID, start, end)
	decision := &Decision{Start: start, End: end, Capacity: capacity, Occupied: occupied}

	if occupied < capacity {
		decision.Outcome = OutcomeAdmitted
		return decision, nil
	}

	decision.Outcome = OutcomeWaitlisted
	decision.Advisory = fmt.Sprintf("daycare %s is at capacity (%d of %d) for %s-%s; the booking was placed on the waitlist",
		daycareID, occupied, capacity, start.Format("2006-01-02 15:04"), end.Format("15:04"))
	return decision, nil
}

// CountOccupying counts active, non-waitlisted bookings at the daycare that overlap [start, end)
func CountOccupying(bookings []model.Booking, daycareID string, start, end time.Time) int {
	count := 0
	for _, b := range bookings {
		if !b.Active || b.IsWaitlist || b.DaycareID != daycareID {
			continue
		}
		if interval.Overlaps(start, end, b.Start, b.End) {
			count++
		}
	}
	return count
}

// findPetOverlap returns an active booking of the pet at any daycare overlapping [start, end).
// Waitlisted bookings count too: the pet cannot be promised two places at once.
func findPetOverlap(bookings []model.Booking, petID string, start, end time.Time) *model.Booking {
	for i := range bookings {
		b := &bookings[i]
		if !b.Active || b.PetID != petID {
			continue
		}
		if interval.Overlaps(start, end, b.Start, b.End) {
			return b
		}
	}
	return nil
}

func activeBlacklist(entries []model.BlacklistedPet, petID, daycareID string) *model.BlacklistedPet {
	for i := range entries {
		e := &entries[i]
		if e.Active && e.PetID == petID && e.DaycareID == daycareID {
			return e
		}
	}
	return nil
}

func reasonSuffix(reason string) string {
	if reason == "" {
		return ""
	}
	return ": " + reason
}
