package db

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

// ErrNotFound is returned by lookups of a single row that does not exist
var ErrNotFound = errors.New("not found")

// EntityStore resolves the profiles referenced by requests
type EntityStore interface {
	GetDaycare(ctx context.Context, daycareID string) (*model.Daycare, error)
	GetStaff(ctx context.Context, staffID string) (*model.Staff, error)
	GetCustomer(ctx context.Context, customerID string) (*model.Customer, error)
	GetPet(ctx context.Context, petID string) (*model.Pet, error)
	GetProducts(ctx context.Context, productIDs []string) ([]model.Product, error)
}

// RosterReader reads shifts and unavailability
type RosterReader interface {
	GetShift(ctx context.Context, shiftID string) (*model.StaffShift, error)
	// GetStaffShiftsOnDay returns every shift of the staff member on the day, at any daycare
	GetStaffShiftsOnDay(ctx context.Context, staffID string, day time.Time) ([]model.StaffShift, error)
	// GetDaycareShifts returns the shifts at the daycare with day in [from, to)
	GetDaycareShifts(ctx context.Context, daycareID string, from, to time.Time) ([]model.StaffShift, error)
	GetUnavailability(ctx context.Context, staffID string) ([]model.Unavailability, error)
	GetUnavailabilityByID(ctx context.Context, id string) (*model.Unavailability, error)
}

// RosterStore defines the roster operations
type RosterStore interface {
	RosterReader
	InsertShift(ctx context.Context, shift *model.StaffShift) error
	UpdateShift(ctx context.Context, shift *model.StaffShift) error
	InsertUnavailability(ctx context.Context, u *model.Unavailability) error
	SetUnavailabilityActive(ctx context.Context, id string, active bool) error
}

// HoursStore defines the opening hours operations
type HoursStore interface {
	GetOpeningHours(ctx context.Context, daycareID string) ([]model.OpeningHours, error)
	UpsertOpeningHours(ctx context.Context, hours *model.OpeningHours) error
}

// BookingReader reads bookings
type BookingReader interface {
	GetBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	// GetPetBookings returns the pet's bookings at every daycare that intersect [from, to)
	GetPetBookings(ctx context.Context, petID string, from, to time.Time) ([]model.Booking, error)
	// GetDaycareBookings returns the bookings at the daycare that intersect [from, to)
	GetDaycareBookings(ctx context.Context, daycareID string, from, to time.Time) ([]model.Booking, error)
}

// BookingStore defines the booking and blacklist operations
type BookingStore interface {
	BookingReader
	InsertBooking(ctx context.Context, booking *model.Booking) error
	UpdateBooking(ctx context.Context, booking *model.Booking) error
	GetBlacklist(ctx context.Context, petID, daycareID string) ([]model.BlacklistedPet, error)
	GetBlacklistEntry(ctx context.Context, id string) (*model.BlacklistedPet, error)
	InsertBlacklist(ctx context.Context, entry *model.BlacklistedPet) error
	SetBlacklistActive(ctx context.Context, id string, active bool) error
}

// WaitlistStore defines the waitlist operations
type WaitlistStore interface {
	GetWaitlistEntry(ctx context.Context, entryID string) (*model.WaitlistEntry, error)
	GetWaitlistEntryForBooking(ctx context.Context, bookingID string) (*model.WaitlistEntry, error)
	InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error
	UpdateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error
}

// Store is every operation available inside a transaction
type Store interface {
	EntityStore
	RosterStore
	HoursStore
	BookingStore
	WaitlistStore
}

// Database defines the interface for all database operations.
// InTx runs fn inside one serializable transaction, retrying it on
// serialization failures; fn must therefore be safe to run more than once.
type Database interface {
	Store
	InTx(ctx context.Context, fn func(tx Store) error) error
}
