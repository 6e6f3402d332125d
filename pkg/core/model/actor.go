package model

// ActorKind identifies who is performing an action
type ActorKind int

const (
	ActorAnonymous ActorKind = iota
	ActorStaff
	ActorCustomer
)

func (k ActorKind) String() string {
	switch k {
	case ActorStaff:
		return "staff"
	case ActorCustomer:
		return "customer"
	default:
		return "anonymous"
	}
}

// Actor is the identity resolved once at the request boundary.
// Exactly one of Staff/Customer is set, matching Kind; both are nil for anonymous actors.
type Actor struct {
	Kind     ActorKind
	Staff    *Staff
	Customer *Customer
}

// Anonymous returns an actor with no identity
func Anonymous() Actor {
	return Actor{Kind: ActorAnonymous}
}

// StaffActor wraps a staff profile
func StaffActor(s *Staff) Actor {
	if s == nil {
		return Anonymous()
	}
	return Actor{Kind: ActorStaff, Staff: s}
}

// CustomerActor wraps a customer profile
func CustomerActor(c *Customer) Actor {
	if c == nil {
		return Anonymous()
	}
	return Actor{Kind: ActorCustomer, Customer: c}
}

// ID returns the profile ID of the actor, or "" for anonymous actors
func (a Actor) ID() string {
	switch a.Kind {
	case ActorStaff:
		return a.Staff.ID
	case ActorCustomer:
		return a.Customer.ID
	default:
		return ""
	}
}

// IsCustomer reports whether the actor is the given customer
func (a Actor) IsCustomer(customerID string) bool {
	return a.Kind == ActorCustomer && a.Customer.ID == customerID
}
