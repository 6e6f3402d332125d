// Package waitlist implements the notify/accept/reject/uninvite handshake on
// waitlisted bookings.
package waitlist

import (
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

// State is derived from the flags of a waitlist entry
type State string

const (
	StatePending  State = "pending"
	StateNotified State = "notified"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// Action is a transition requested by a staff member or customer
type Action string

const (
	ActionNotify   Action = "notify"
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionUninvite Action = "uninvite"
)

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionNotify, ActionAccept, ActionReject, ActionUninvite:
		return a, nil
	default:
		return "", model.Reject(model.KindInvalid, "unknown waitlist action %q", s)
	}
}

// transitions lists the states each action may start from
var transitions = map[Action][]State{
	ActionNotify:   {StatePending, StateNotified},
	ActionAccept:   {StateNotified, StateAccepted},
	ActionReject:   {StatePending, StateNotified, StateAccepted},
	ActionUninvite: {StatePending, StateNotified},
}

// StateOf derives the state of an entry
func StateOf(e *model.WaitlistEntry) State {
	switch {
	case !e.Active:
		return StateRejected
	case e.CustomerAccepted:
		return StateAccepted
	case e.CustomerNotified:
		return StateNotified
	default:
		return StatePending
	}
}

// CanTransition reports whether action is allowed from state
func CanTransition(from State, action Action) bool {
	for _, s := range transitions[action] {
		if s == from {
			return true
		}
	}
	return false
}

// Effect reports which rows an applied action changed
type Effect struct {
	From           State
	To             State
	EntryChanged   bool
	BookingChanged bool
}

// Apply checks the actor's rights and the entry's state, then mutates entry
// (and booking, for accept) in place. The booking must be the one the entry wraps.
func Apply(entry *model.WaitlistEntry, booking *model.Booking, action Action, actor model.Actor) (*Effect, error) {
	if err := authorize(booking, action, actor); err != nil {
		return nil, err
	}

	from := StateOf(entry)
	if !CanTransition(from, action) {
		return nil, preconditionError(entry, from, action)
	}

	effect := &Effect{From: from}
	switch action {
	case ActionNotify:
		if !entry.CustomerNotified {
			entry.CustomerNotified = true
			effect.EntryChanged = true
		}
	case ActionAccept:
		if !entry.CustomerAccepted {
			entry.CustomerAccepted = true
			effect.EntryChanged = true
		}
		// Promotion trusts the waitlist slot; capacity is not re-checked
		if booking.IsWaitlist || !booking.WaitlistAccepted {
			booking.IsWaitlist = false
			booking.WaitlistAccepted = true
			effect.BookingChanged = true
		}
	case ActionReject:
		// Closes the entry only; an accepted booking stays promoted
		entry.Active = false
		effect.EntryChanged = true
	case ActionUninvite:
		if entry.CustomerNotified {
			entry.CustomerNotified = false
			effect.EntryChanged = true
		}
	}
	effect.To = StateOf(entry)
	return effect, nil
}

// authorize enforces who may perform each action: staff associated with the
// booking's daycare for notify/uninvite, the booking's customer for accept/reject
func authorize(booking *model.Booking, action Action, actor model.Actor) error {
	switch action {
	case ActionNotify, ActionUninvite:
		if actor.Kind != model.ActorStaff {
			return model.Reject(model.KindPermission, "only staff can %s a customer", action)
		}
		if !actor.Staff.CanManage(booking.DaycareID) {
			return model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", actor.Staff.ID, booking.DaycareID)
		}
	case ActionAccept, ActionReject:
		if actor.Kind != model.ActorCustomer {
			return model.Reject(model.KindPermission, "only the booking's customer can %s it", action)
		}
		if !actor.IsCustomer(booking.CustomerID) {
			return model.Reject(model.KindPermission, "customer %s does not own booking %s", actor.Customer.ID, booking.ID)
		}
	default:
		return model.Reject(model.KindInvalid, "unknown waitlist action %q", action)
	}
	return nil
}

func preconditionError(entry *model.WaitlistEntry, from State, action Action) error {
	switch {
	case from == StateRejected:
		return model.Reject(model.KindPrecondition, "waitlist entry %s is closed", entry.ID)
	case action == ActionAccept:
		return model.Reject(model.KindPrecondition, "waitlist entry %s cannot be accepted before the customer is notified", entry.ID)
	case action == ActionUninvite:
		return model.Reject(model.KindPrecondition, "waitlist entry %s was already accepted", entry.ID)
	default:
		return model.Reject(model.KindPrecondition, "cannot %s waitlist entry %s in state %s", action, entry.ID, from)
	}
}
