package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/admission"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/waitlist"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
)

func bookingRequest(f *fakeDB, customerID, petID string, start, end time.Time) *BookingRequest {
	return &BookingRequest{
		Actor:      f.CustomerActor(customerID),
		CustomerID: customerID,
		PetID:      petID,
		DaycareID:  "d1",
		Start:      start,
		End:        end,
	}
}

func TestCreateBooking_CapacityOverflowIsWaitlisted(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	start, end := at(monday, 9, 0), at(monday, 12, 0)

	first, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", start, end))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeAdmitted, first.Outcome)

	second, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c2", "p2", start, end))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeAdmitted, second.Outcome)

	third, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p3", at(monday, 10, 0), at(monday, 11, 0)))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeWaitlisted, third.Outcome)
	assert.True(t, third.Booking.IsWaitlist)
	assert.Equal(t, model.BookingWaitlisted, third.Booking.Status())
	assert.NotEmpty(t, third.Advisory)
	require.NotEmpty(t, third.WaitlistEntryID)

	entry, err := f.GetWaitlistEntry(ctx, third.WaitlistEntryID)
	require.NoError(t, err)
	assert.Equal(t, third.Booking.ID, entry.BookingID)
	assert.True(t, entry.Active)
	assert.False(t, entry.CustomerNotified)
	assert.False(t, entry.CustomerAccepted)

	// A booking touching the end of the full slot does not overlap it
	after, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c2", "p4", end, at(monday, 14, 0)))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeAdmitted, after.Outcome)

	// Cancelling an admitted booking frees a place; the waitlisted one does not count
	_, err = CancelBooking(ctx, f, logger, f.CustomerActor("c1"), first.Booking.ID)
	require.NoError(t, err)

	fourth, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c2", "p4", at(monday, 9, 0), at(monday, 10, 0)))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeAdmitted, fourth.Outcome)
}

func TestCreateBooking_ZeroCapacityAlwaysWaitlists(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	for i := range f.Hours {
		if f.Hours[i].DaycareID == "d1" {
			f.Hours[i].Capacity = 0
		}
	}

	decision, err := CreateBooking(ctx, f, nil, zap.NewNop(), bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 10, 0)))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeWaitlisted, decision.Outcome)
}

func TestCreateBooking_Recurrence(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	req := bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 17, 0))
	req.Recurrence = true
	req.ProductIDs = []string{"walk"}

	decision, err := CreateBooking(ctx, f, nil, zap.NewNop(), req)
	require.NoError(t, err)

	assert.True(t, decision.Booking.Recurrence)
	assert.Empty(t, decision.Skipped)
	require.Len(t, decision.Siblings, 4)
	for k, s := range decision.Siblings {
		weeks := k + 1
		assert.Equal(t, at(monday, 9, 0).AddDate(0, 0, 7*weeks), s.Booking.Start, "sibling %d start", weeks)
		assert.Equal(t, at(monday, 17, 0).AddDate(0, 0, 7*weeks), s.Booking.End, "sibling %d end", weeks)
		assert.False(t, s.Booking.Recurrence)
		assert.Equal(t, "p1", s.Booking.PetID)
		assert.Equal(t, "c1", s.Booking.CustomerID)
		assert.Equal(t, []string{"walk"}, s.Booking.ProductIDs)
		assert.Equal(t, admission.OutcomeAdmitted, s.Outcome)
	}

	assert.Len(t, f.Bookings, 5)
	assert.Equal(t, 1, f.TxCount)
}

func TestCreateBooking_RecurrenceSkipsFailingSibling(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()

	// The pet is already booked at another daycare in two weeks' time
	twoWeeks := monday.AddDate(0, 0, 14)
	other := bookingRequest(f, "c1", "p1", at(twoWeeks, 10, 0), at(twoWeeks, 11, 0))
	other.DaycareID = "d2"
	_, err := CreateBooking(ctx, f, nil, logger, other)
	require.NoError(t, err)

	// Three weeks out the daycare is full
	threeWeeks := monday.AddDate(0, 0, 21)
	for _, pet := range []struct{ customer, pet string }{{"c2", "p2"}, {"c1", "p3"}} {
		_, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, pet.customer, pet.pet, at(threeWeeks, 9, 0), at(threeWeeks, 17, 0)))
		require.NoError(t, err)
	}

	req := bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 17, 0))
	req.Recurrence = true
	decision, err := CreateBooking(ctx, f, nil, logger, req)
	require.NoError(t, err)

	assert.Equal(t, admission.OutcomeAdmitted, decision.Outcome)
	require.Len(t, decision.Skipped, 1)
	assert.Equal(t, at(twoWeeks, 9, 0), decision.Skipped[0].Start)
	assert.Equal(t, model.KindOverlap, decision.Skipped[0].Reason.Kind)

	require.Len(t, decision.Siblings, 3)
	outcomes := map[time.Time]admission.Outcome{}
	for _, s := range decision.Siblings {
		outcomes[s.Booking.Start] = s.Outcome
	}
	assert.Equal(t, admission.OutcomeAdmitted, outcomes[at(monday.AddDate(0, 0, 7), 9, 0)])
	assert.Equal(t, admission.OutcomeWaitlisted, outcomes[at(threeWeeks, 9, 0)])
	assert.Equal(t, admission.OutcomeAdmitted, outcomes[at(monday.AddDate(0, 0, 28), 9, 0)])
}

func TestCreateBooking_BlacklistedPet(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()

	entry, err := BlacklistPet(ctx, f, logger, f.StaffActor("owner"), "p1", "d1", "bit a groomer")
	require.NoError(t, err)

	_, err = CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0)))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindBlacklisted))
	assert.Contains(t, err.Error(), "bit a groomer")
	assert.Empty(t, f.Bookings)

	// The blacklist is per daycare
	other := bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0))
	other.DaycareID = "d2"
	_, err = CreateBooking(ctx, f, nil, logger, other)
	require.NoError(t, err)

	require.NoError(t, LiftBlacklist(ctx, f, logger, f.StaffActor("owner"), entry.ID))
	decision, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", at(monday.AddDate(0, 0, 1), 9, 0), at(monday.AddDate(0, 0, 1), 12, 0)))
	require.NoError(t, err)
	assert.Equal(t, admission.OutcomeAdmitted, decision.Outcome)
}

func TestCreateBooking_Rejections(t *testing.T) {
	saturday := monday.AddDate(0, 0, 5)

	tests := []struct {
		name   string
		mutate func(f *fakeDB, req *BookingRequest)
		kind   model.RejectionKind
	}{
		{
			name:   "end before start",
			mutate: func(f *fakeDB, req *BookingRequest) { req.End = req.Start.Add(-time.Hour) },
			kind:   model.KindInvalid,
		},
		{
			name:   "closed day",
			mutate: func(f *fakeDB, req *BookingRequest) { req.Start, req.End = at(saturday, 9, 0), at(saturday, 12, 0) },
			kind:   model.KindClosed,
		},
		{
			name:   "outside opening hours",
			mutate: func(f *fakeDB, req *BookingRequest) { req.Start = at(monday, 7, 0) },
			kind:   model.KindHours,
		},
		{
			name: "customer does not own the pet",
			mutate: func(f *fakeDB, req *BookingRequest) {
				req.Actor = f.StaffActor("emp")
				req.CustomerID = "c2"
			},
			kind: model.KindOwnership,
		},
		{
			name:   "staff not associated with the daycare",
			mutate: func(f *fakeDB, req *BookingRequest) { req.Actor = f.StaffActor("outsider") },
			kind:   model.KindAssociation,
		},
		{
			name:   "customer booking for someone else",
			mutate: func(f *fakeDB, req *BookingRequest) { req.Actor = f.CustomerActor("c2") },
			kind:   model.KindPermission,
		},
		{
			name:   "anonymous",
			mutate: func(f *fakeDB, req *BookingRequest) { req.Actor = model.Anonymous() },
			kind:   model.KindPermission,
		},
		{
			name:   "unknown pet",
			mutate: func(f *fakeDB, req *BookingRequest) { req.PetID = "ghost" },
			kind:   model.KindNotFound,
		},
		{
			name:   "product of another daycare",
			mutate: func(f *fakeDB, req *BookingRequest) { req.ProductIDs = []string{"groom"} },
			kind:   model.KindInvalid,
		},
		{
			name: "pet already booked at another daycare",
			mutate: func(f *fakeDB, req *BookingRequest) {
				f.Bookings = append(f.Bookings, model.Booking{
					ID: "existing", CustomerID: "c1", PetID: "p1", DaycareID: "d2",
					Start: at(monday, 11, 0), End: at(monday, 13, 0), Active: true,
				})
			},
			kind: model.KindOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDB()
			req := bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0))
			tt.mutate(f, req)
			before := len(f.Bookings)

			_, err := CreateBooking(context.Background(), f, nil, zap.NewNop(), req)
			require.Error(t, err)
			r, ok := model.AsRejection(err)
			require.True(t, ok, "expected a rejection, got %v", err)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Len(t, f.Bookings, before)
			assert.Empty(t, f.Waitlist)
		})
	}
}

func TestCreateBooking_CancelledBookingDoesNotOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFakeDB()
	f.Bookings = append(f.Bookings, model.Booking{
		ID: "old", CustomerID: "c1", PetID: "p1", DaycareID: "d1",
		Start: at(monday, 9, 0), End: at(monday, 12, 0), Active: false,
	})

	_, err := CreateBooking(ctx, f, nil, zap.NewNop(), bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0)))
	assert.NoError(t, err)
}

func TestCreateBooking_BusyLock(t *testing.T) {
	shortLockWait(t)
	f := newFakeDB()
	locker := newFakeLocker(lock.PetKey("p1"))

	_, err := CreateBooking(context.Background(), f, locker, zap.NewNop(), bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lock.ErrBusy))
	assert.Equal(t, 0, f.TxCount)
	assert.Empty(t, locker.held)
}

func TestCreateBooking_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lock.NewRedisLockFromClient(client)

	f := newFakeDB()
	req := bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0))
	req.Recurrence = true

	_, err := CreateBooking(context.Background(), f, locker, zap.NewNop(), req)
	require.NoError(t, err)

	// Every lock is released once the booking is stored
	assert.Empty(t, mr.Keys())
}

func TestCreateBooking_ConcurrentRequestsQueueForCapacity(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lock.NewRedisLockFromClient(client)

	f := newFakeDB()
	start, end := at(monday, 9, 0), at(monday, 10, 0)
	requests := []*BookingRequest{
		bookingRequest(f, "c1", "p1", start, end),
		bookingRequest(f, "c2", "p2", start, end),
		bookingRequest(f, "c1", "p3", start, end),
	}

	var wg sync.WaitGroup
	outcomes := make([]admission.Outcome, len(requests))
	errs := make([]error, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req *BookingRequest) {
			defer wg.Done()
			decision, err := CreateBooking(context.Background(), f, locker, zap.NewNop(), req)
			errs[i] = err
			if err == nil {
				outcomes[i] = decision.Outcome
			}
		}(i, req)
	}
	wg.Wait()

	counts := map[admission.Outcome]int{}
	for i := range requests {
		require.NoError(t, errs[i], "request %d", i)
		counts[outcomes[i]]++
	}
	// d1 holds two pets on Monday; the third request is waitlisted, never refused
	assert.Equal(t, 2, counts[admission.OutcomeAdmitted])
	assert.Equal(t, 1, counts[admission.OutcomeWaitlisted])
	assert.Empty(t, mr.Keys())
}

func TestCreateBooking_LocksPetAndEveryCapacityDay(t *testing.T) {
	f := newFakeDB()
	locker := newFakeLocker()
	req := bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0))
	req.Recurrence = true

	_, err := CreateBooking(context.Background(), f, locker, zap.NewNop(), req)
	require.NoError(t, err)

	assert.Contains(t, locker.acquired, "pet:p1")
	assert.Contains(t, locker.acquired, "capacity:d1:2025-01-06")
	assert.Contains(t, locker.acquired, "capacity:d1:2025-02-03")
	assert.Len(t, locker.acquired, 6)
	assert.Empty(t, locker.held)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()

	decision, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0)))
	require.NoError(t, err)
	id := decision.Booking.ID

	_, err = CancelBooking(ctx, f, logger, f.CustomerActor("c2"), id)
	assert.True(t, model.IsKind(err, model.KindPermission))

	_, err = CancelBooking(ctx, f, logger, f.StaffActor("outsider"), id)
	assert.True(t, model.IsKind(err, model.KindAssociation))

	_, err = CancelBooking(ctx, f, logger, model.Anonymous(), id)
	assert.True(t, model.IsKind(err, model.KindPermission))

	cancelled, err := CancelBooking(ctx, f, logger, f.StaffActor("emp"), id)
	require.NoError(t, err)
	assert.False(t, cancelled.Active)

	_, err = CancelBooking(ctx, f, logger, f.CustomerActor("c1"), id)
	assert.True(t, model.IsKind(err, model.KindPrecondition))

	_, err = CancelBooking(ctx, f, logger, f.CustomerActor("c1"), "missing")
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

func TestCancelBooking_ClosesWaitlistEntry(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	for i := range f.Hours {
		f.Hours[i].Capacity = 0
	}

	decision, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", at(monday, 9, 0), at(monday, 12, 0)))
	require.NoError(t, err)
	require.Equal(t, admission.OutcomeWaitlisted, decision.Outcome)

	_, err = CancelBooking(ctx, f, logger, f.CustomerActor("c1"), decision.Booking.ID)
	require.NoError(t, err)

	entry, err := f.GetWaitlistEntry(ctx, decision.WaitlistEntryID)
	require.NoError(t, err)
	assert.False(t, entry.Active)
}

func TestCancelBooking_ClosesLatestWaitlistEntry(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	booked := waitlistedBooking(t, f)

	// The first entry was rejected and the booking later re-entered the waitlist
	_, err := WaitlistAction(ctx, f, nil, logger, booked.WaitlistEntryID, waitlist.ActionReject, f.CustomerActor("c1"))
	require.NoError(t, err)
	first, err := f.GetWaitlistEntry(ctx, booked.WaitlistEntryID)
	require.NoError(t, err)
	require.NoError(t, f.InsertWaitlistEntry(ctx, &model.WaitlistEntry{
		ID: "second", BookingID: booked.Booking.ID, Active: true, CreatedAt: first.CreatedAt.Add(time.Hour),
	}))

	current, err := f.GetWaitlistEntryForBooking(ctx, booked.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", current.ID)

	_, err = CancelBooking(ctx, f, logger, f.CustomerActor("c1"), booked.Booking.ID)
	require.NoError(t, err)

	second, err := f.GetWaitlistEntry(ctx, "second")
	require.NoError(t, err)
	assert.False(t, second.Active)
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	start, end := at(monday, 9, 0), at(monday, 12, 0)

	admitted, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", start, end))
	require.NoError(t, err)
	_, err = CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c2", "p2", start, end))
	require.NoError(t, err)
	waitlisted, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p3", start, end))
	require.NoError(t, err)
	require.Equal(t, admission.OutcomeWaitlisted, waitlisted.Outcome)

	_, err = CheckIn(ctx, f, logger, f.CustomerActor("c1"), admitted.Booking.ID)
	assert.True(t, model.IsKind(err, model.KindPermission))

	_, err = CheckIn(ctx, f, logger, f.StaffActor("outsider"), admitted.Booking.ID)
	assert.True(t, model.IsKind(err, model.KindAssociation))

	booking, err := CheckIn(ctx, f, logger, f.StaffActor("emp"), admitted.Booking.ID)
	require.NoError(t, err)
	assert.True(t, booking.CheckedIn)

	_, err = CheckIn(ctx, f, logger, f.StaffActor("emp"), admitted.Booking.ID)
	assert.True(t, model.IsKind(err, model.KindPrecondition))

	_, err = CheckIn(ctx, f, logger, f.StaffActor("emp"), waitlisted.Booking.ID)
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}
