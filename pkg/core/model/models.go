package model

import (
	"slices"
	"time"
)

// Role distinguishes privilege levels of staff members
type Role string

const (
	RoleOwner    Role = "Owner"
	RoleEmployee Role = "Employee"
)

// Staff represents a staff profile and the daycares it is linked to
type Staff struct {
	ID         string
	Name       string
	Role       Role
	DaycareIDs []string
	Active     bool
}

// CanManage reports whether the staff member is associated with the daycare.
// Every staff-side action on a daycare's roster, bookings or waitlist goes through this check.
func (s *Staff) CanManage(daycareID string) bool {
	if s == nil || !s.Active {
		return false
	}
	return slices.Contains(s.DaycareIDs, daycareID)
}

// Administers reports whether the staff member owns the daycare
// (Owner role and associated with it). Used for opening hours, blacklist and
// managing other staff members' rosters.
func (s *Staff) Administers(daycareID string) bool {
	return s.CanManage(daycareID) && s.Role == RoleOwner
}

// Customer represents a customer profile
type Customer struct {
	ID     string
	Name   string
	Active bool
}

// Pet represents a pet and its (co-)owners
type Pet struct {
	ID          string
	Name        string
	CustomerIDs []string
	Active      bool
}

// OwnedBy reports whether the customer is one of the pet's owners
func (p *Pet) OwnedBy(customerID string) bool {
	return p != nil && slices.Contains(p.CustomerIDs, customerID)
}

// Daycare represents a daycare facility
type Daycare struct {
	ID   string
	Name string
}

// Product is an add-on service offered by a daycare (e.g. grooming, walks)
type Product struct {
	ID        string
	DaycareID string
	Name      string
	Price     string
	Active    bool
}

// OpeningHours is the schedule of a daycare for one day of the week.
// Closed entries carry no From/To. Capacity 0 means every booking overflows to the waitlist.
type OpeningHours struct {
	DaycareID string
	Day       OpeningDay
	Closed    bool
	From      *TimeOfDay
	To        *TimeOfDay
	Capacity  int
}

// UnavailabilityMode selects which field of an Unavailability is meaningful
type UnavailabilityMode string

const (
	UnavailabilityRecurring UnavailabilityMode = "recurring"
	UnavailabilityOneOff    UnavailabilityMode = "one_off"
)

// Unavailability records a day a staff member cannot work.
// Recurring entries use DayOfWeek, one-off entries use Date.
type Unavailability struct {
	ID        string
	StaffID   string
	Mode      UnavailabilityMode
	DayOfWeek *UnavailabilityDay
	Date      *time.Time
	Reason    string
	Active    bool
}

// StaffShift is a roster entry
type StaffShift struct {
	ID        string
	StaffID   string
	DaycareID string
	Start     time.Time
	End       time.Time
	Day       time.Time
	Active    bool
}

// BookingStatus is derived from the waitlist flags of a booking
type BookingStatus string

const (
	BookingAccepted   BookingStatus = "ACCEPTED"
	BookingWaitlisted BookingStatus = "WAITLISTED"
	BookingRejected   BookingStatus = "REJECTED"
)

// Booking is a pet-care interval at a daycare
type Booking struct {
	ID               string
	CustomerID       string
	PetID            string
	DaycareID        string
	Start            time.Time
	End              time.Time
	Active           bool
	CheckedIn        bool
	Recurrence       bool
	ProductIDs       []string
	IsWaitlist       bool
	WaitlistAccepted bool
	CreatedAt        time.Time
}

// Status derives the booking status from its flags.
// NOTE: a booking promoted from the waitlist (WaitlistAccepted) reports REJECTED.
// This polarity is kept as-is until product confirms the intended meaning.
func (b *Booking) Status() BookingStatus {
	switch {
	case b.IsWaitlist:
		return BookingWaitlisted
	case b.WaitlistAccepted:
		return BookingRejected
	default:
		return BookingAccepted
	}
}

// BlacklistedPet bans a pet from booking at a daycare while active
type BlacklistedPet struct {
	ID        string
	PetID     string
	DaycareID string
	Reason    string
	Active    bool
	CreatedAt time.Time
}

// WaitlistEntry tracks the notify/accept handshake for a waitlisted booking
type WaitlistEntry struct {
	ID               string
	BookingID        string
	CustomerNotified bool
	CustomerAccepted bool
	Active           bool
	CreatedAt        time.Time
}
