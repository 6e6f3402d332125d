// Package dbtest provides an in-memory db.Database seeded with a small
// daycare fixture, for tests of packages built on the store.
package dbtest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

// Fake is an in-memory db.Database. InTx runs one transaction at a time and
// rolls the mutable tables back when fn fails.
type Fake struct {
	mu sync.Mutex

	Daycares  map[string]model.Daycare
	Staff     map[string]model.Staff
	Customers map[string]model.Customer
	Pets      map[string]model.Pet
	Products  map[string]model.Product

	Hours          []model.OpeningHours
	Shifts         []model.StaffShift
	Unavailability []model.Unavailability
	Bookings       []model.Booking
	Blacklist      []model.BlacklistedPet
	Waitlist       []model.WaitlistEntry

	TxCount int
}

type snapshot struct {
	Hours          []model.OpeningHours
	Shifts         []model.StaffShift
	Unavailability []model.Unavailability
	Bookings       []model.Booking
	Blacklist      []model.BlacklistedPet
	Waitlist       []model.WaitlistEntry
}

var _ db.Database = (*Fake)(nil)

// Monday is the reference week tests book and roster around
var Monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

// At returns day at hour:minute
func At(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// NewSeeded returns a store with two daycares:
//   - d1 "Paws": open Monday to Friday 08:00-18:00 with capacity 2, closed on Saturday, no entry for Sunday
//   - d2 "Barks": open every day 07:00-19:00 with capacity 5
//
// Staff: owner (Owner of d1), emp (d1), emp2 (d1 and d2), outsider (d2), retired (inactive).
// Customers c1 and c2 own pets p1, p3 and p2 respectively; p4 is co-owned.
func NewSeeded() *Fake {
	f := &Fake{
		Daycares: map[string]model.Daycare{
			"d1": {ID: "d1", Name: "Paws"},
			"d2": {ID: "d2", Name: "Barks"},
		},
		Staff: map[string]model.Staff{
			"owner":    {ID: "owner", Name: "Olivia", Role: model.RoleOwner, DaycareIDs: []string{"d1"}, Active: true},
			"emp":      {ID: "emp", Name: "Ethan", Role: model.RoleEmployee, DaycareIDs: []string{"d1"}, Active: true},
			"emp2":     {ID: "emp2", Name: "Emma", Role: model.RoleEmployee, DaycareIDs: []string{"d1", "d2"}, Active: true},
			"outsider": {ID: "outsider", Name: "Oscar", Role: model.RoleEmployee, DaycareIDs: []string{"d2"}, Active: true},
			"retired":  {ID: "retired", Name: "Rita", Role: model.RoleEmployee, DaycareIDs: []string{"d1"}, Active: false},
		},
		Customers: map[string]model.Customer{
			"c1":     {ID: "c1", Name: "Carol", Active: true},
			"c2":     {ID: "c2", Name: "Chris", Active: true},
			"closed": {ID: "closed", Name: "Cleo", Active: false},
		},
		Pets: map[string]model.Pet{
			"p1": {ID: "p1", Name: "Rex", CustomerIDs: []string{"c1"}, Active: true},
			"p2": {ID: "p2", Name: "Fido", CustomerIDs: []string{"c2"}, Active: true},
			"p3": {ID: "p3", Name: "Luna", CustomerIDs: []string{"c1"}, Active: true},
			"p4": {ID: "p4", Name: "Milo", CustomerIDs: []string{"c2", "c1"}, Active: true},
		},
		Products: map[string]model.Product{
			"walk":  {ID: "walk", DaycareID: "d1", Name: "Walk", Price: "5.00", Active: true},
			"groom": {ID: "groom", DaycareID: "d2", Name: "Groom", Price: "20.00", Active: true},
		},
	}

	for day := model.OpeningDay(1); day <= 5; day++ {
		f.Hours = append(f.Hours, model.OpeningHours{
			DaycareID: "d1", Day: day,
			From: model.NewTimeOfDay(8, 0, 0).Ptr(), To: model.NewTimeOfDay(18, 0, 0).Ptr(),
			Capacity: 2,
		})
	}
	f.Hours = append(f.Hours, model.OpeningHours{DaycareID: "d1", Day: 6, Closed: true})
	for day := model.OpeningDay(1); day <= 7; day++ {
		f.Hours = append(f.Hours, model.OpeningHours{
			DaycareID: "d2", Day: day,
			From: model.NewTimeOfDay(7, 0, 0).Ptr(), To: model.NewTimeOfDay(19, 0, 0).Ptr(),
			Capacity: 5,
		})
	}
	return f
}

// StaffActor returns the seeded staff member as an actor
func (f *Fake) StaffActor(staffID string) model.Actor {
	s := f.Staff[staffID]
	return model.StaffActor(&s)
}

// CustomerActor returns the seeded customer as an actor
func (f *Fake) CustomerActor(customerID string) model.Actor {
	c := f.Customers[customerID]
	return model.CustomerActor(&c)
}

func (f *Fake) InTx(ctx context.Context, fn func(tx db.Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.TxCount++
	snap := snapshot{
		Hours:          slices.Clone(f.Hours),
		Shifts:         slices.Clone(f.Shifts),
		Unavailability: slices.Clone(f.Unavailability),
		Bookings:       slices.Clone(f.Bookings),
		Blacklist:      slices.Clone(f.Blacklist),
		Waitlist:       slices.Clone(f.Waitlist),
	}
	if err := fn(f); err != nil {
		f.Hours = snap.Hours
		f.Shifts = snap.Shifts
		f.Unavailability = snap.Unavailability
		f.Bookings = snap.Bookings
		f.Blacklist = snap.Blacklist
		f.Waitlist = snap.Waitlist
		return err
	}
	return nil
}

// Entities

func (f *Fake) GetDaycare(ctx context.Context, daycareID string) (*model.Daycare, error) {
	d, ok := f.Daycares[daycareID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &d, nil
}

func (f *Fake) GetStaff(ctx context.Context, staffID string) (*model.Staff, error) {
	s, ok := f.Staff[staffID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &s, nil
}

func (f *Fake) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	c, ok := f.Customers[customerID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &c, nil
}

func (f *Fake) GetPet(ctx context.Context, petID string) (*model.Pet, error) {
	p, ok := f.Pets[petID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (f *Fake) GetProducts(ctx context.Context, productIDs []string) ([]model.Product, error) {
	var products []model.Product
	for _, id := range productIDs {
		p, ok := f.Products[id]
		if !ok {
			return nil, db.ErrNotFound
		}
		products = append(products, p)
	}
	return products, nil
}

// Roster

func (f *Fake) GetShift(ctx context.Context, shiftID string) (*model.StaffShift, error) {
	for _, sh := range f.Shifts {
		if sh.ID == shiftID {
			return &sh, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *Fake) GetStaffShiftsOnDay(ctx context.Context, staffID string, day time.Time) ([]model.StaffShift, error) {
	var out []model.StaffShift
	for _, sh := range f.Shifts {
		if sh.StaffID == staffID && interval.SameDate(sh.Day, day) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *Fake) GetDaycareShifts(ctx context.Context, daycareID string, from, to time.Time) ([]model.StaffShift, error) {
	var out []model.StaffShift
	for _, sh := range f.Shifts {
		if sh.DaycareID == daycareID && !sh.Day.Before(from) && sh.Day.Before(to) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *Fake) GetUnavailability(ctx context.Context, staffID string) ([]model.Unavailability, error) {
	var out []model.Unavailability
	for _, u := range f.Unavailability {
		if u.StaffID == staffID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *Fake) GetUnavailabilityByID(ctx context.Context, id string) (*model.Unavailability, error) {
	for _, u := range f.Unavailability {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *Fake) InsertShift(ctx context.Context, shift *model.StaffShift) error {
	f.Shifts = append(f.Shifts, *shift)
	return nil
}

func (f *Fake) UpdateShift(ctx context.Context, shift *model.StaffShift) error {
	for i := range f.Shifts {
		if f.Shifts[i].ID == shift.ID {
			f.Shifts[i] = *shift
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *Fake) InsertUnavailability(ctx context.Context, u *model.Unavailability) error {
	f.Unavailability = append(f.Unavailability, *u)
	return nil
}

func (f *Fake) SetUnavailabilityActive(ctx context.Context, id string, active bool) error {
	for i := range f.Unavailability {
		if f.Unavailability[i].ID == id {
			f.Unavailability[i].Active = active
			return nil
		}
	}
	return db.ErrNotFound
}

// Opening hours

func (f *Fake) GetOpeningHours(ctx context.Context, daycareID string) ([]model.OpeningHours, error) {
	var out []model.OpeningHours
	for _, h := range f.Hours {
		if h.DaycareID == daycareID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *Fake) UpsertOpeningHours(ctx context.Context, hours *model.OpeningHours) error {
	for i := range f.Hours {
		if f.Hours[i].DaycareID == hours.DaycareID && f.Hours[i].Day == hours.Day {
			f.Hours[i] = *hours
			return nil
		}
	}
	f.Hours = append(f.Hours, *hours)
	return nil
}

// Bookings

func (f *Fake) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	for _, b := range f.Bookings {
		if b.ID == bookingID {
			return &b, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *Fake) GetPetBookings(ctx context.Context, petID string, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.Bookings {
		if b.PetID == petID && b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *Fake) GetDaycareBookings(ctx context.Context, daycareID string, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.Bookings {
		if b.DaycareID == daycareID && b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *Fake) InsertBooking(ctx context.Context, booking *model.Booking) error {
	f.Bookings = append(f.Bookings, *booking)
	return nil
}

func (f *Fake) UpdateBooking(ctx context.Context, booking *model.Booking) error {
	for i := range f.Bookings {
		if f.Bookings[i].ID == booking.ID {
			f.Bookings[i] = *booking
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *Fake) GetBlacklist(ctx context.Context, petID, daycareID string) ([]model.BlacklistedPet, error) {
	var out []model.BlacklistedPet
	for _, e := range f.Blacklist {
		if e.PetID == petID && e.DaycareID == daycareID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *Fake) GetBlacklistEntry(ctx context.Context, id string) (*model.BlacklistedPet, error) {
	for _, e := range f.Blacklist {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *Fake) InsertBlacklist(ctx context.Context, entry *model.BlacklistedPet) error {
	f.Blacklist = append(f.Blacklist, *entry)
	return nil
}

func (f *Fake) SetBlacklistActive(ctx context.Context, id string, active bool) error {
	for i := range f.Blacklist {
		if f.Blacklist[i].ID == id {
			f.Blacklist[i].Active = active
			return nil
		}
	}
	return db.ErrNotFound
}

// Waitlist

func (f *Fake) GetWaitlistEntry(ctx context.Context, entryID string) (*model.WaitlistEntry, error) {
	for _, e := range f.Waitlist {
		if e.ID == entryID {
			return &e, nil
		}
	}
	return nil, db.ErrNotFound
}

// GetWaitlistEntryForBooking returns the newest active entry of the booking,
// or the newest closed one when none is active
func (f *Fake) GetWaitlistEntryForBooking(ctx context.Context, bookingID string) (*model.WaitlistEntry, error) {
	var latest *model.WaitlistEntry
	for i := range f.Waitlist {
		e := f.Waitlist[i]
		if e.BookingID != bookingID {
			continue
		}
		if latest == nil || e.Active && !latest.Active ||
			e.Active == latest.Active && !e.CreatedAt.Before(latest.CreatedAt) {
			latest = &e
		}
	}
	if latest == nil {
		return nil, db.ErrNotFound
	}
	return latest, nil
}

func (f *Fake) InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	f.Waitlist = append(f.Waitlist, *entry)
	return nil
}

func (f *Fake) UpdateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	for i := range f.Waitlist {
		if f.Waitlist[i].ID == entry.ID {
			f.Waitlist[i] = *entry
			return nil
		}
	}
	return db.ErrNotFound
}

