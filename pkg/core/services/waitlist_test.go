package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/admission"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/waitlist"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
)

// waitlistedBooking fills d1 on Monday morning and returns a third, waitlisted booking for p3 (customer c1)
func waitlistedBooking(t *testing.T, f *fakeDB) *BookingDecision {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	start, end := at(monday, 9, 0), at(monday, 12, 0)

	_, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p1", start, end))
	require.NoError(t, err)
	_, err = CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c2", "p2", start, end))
	require.NoError(t, err)

	decision, err := CreateBooking(ctx, f, nil, logger, bookingRequest(f, "c1", "p3", start, end))
	require.NoError(t, err)
	require.Equal(t, admission.OutcomeWaitlisted, decision.Outcome)
	return decision
}

func TestWaitlistAction_AcceptBeforeNotify(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	booked := waitlistedBooking(t, f)
	entryID := booked.WaitlistEntryID

	_, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionAccept, f.CustomerActor("c1"))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindPrecondition))

	notified, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionNotify, f.StaffActor("emp"))
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatePending, notified.From)
	assert.Equal(t, waitlist.StateNotified, notified.To)
	assert.True(t, notified.Entry.CustomerNotified)

	accepted, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionAccept, f.CustomerActor("c1"))
	require.NoError(t, err)
	assert.Equal(t, waitlist.StateAccepted, accepted.To)

	booking, err := f.GetBooking(ctx, booked.Booking.ID)
	require.NoError(t, err)
	assert.False(t, booking.IsWaitlist)
	assert.True(t, booking.WaitlistAccepted)
	// Promoted bookings keep reporting REJECTED
	assert.Equal(t, model.BookingRejected, booking.Status())

	entry, err := f.GetWaitlistEntry(ctx, entryID)
	require.NoError(t, err)
	assert.True(t, entry.CustomerAccepted)
	assert.True(t, entry.Active)

	// Once accepted the customer can no longer be uninvited
	_, err = WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionUninvite, f.StaffActor("emp"))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindPrecondition))
	assert.Contains(t, err.Error(), "already accepted")

	// but can still withdraw; the promoted booking stays in place
	rejected, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionReject, f.CustomerActor("c1"))
	require.NoError(t, err)
	assert.Equal(t, waitlist.StateAccepted, rejected.From)
	assert.Equal(t, waitlist.StateRejected, rejected.To)
	assert.False(t, rejected.Entry.Active)

	booking, err = f.GetBooking(ctx, booked.Booking.ID)
	require.NoError(t, err)
	assert.False(t, booking.IsWaitlist)
	assert.True(t, booking.Active)
}

func TestWaitlistAction_Reject(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	booked := waitlistedBooking(t, f)
	entryID := booked.WaitlistEntryID

	_, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionNotify, f.StaffActor("emp"))
	require.NoError(t, err)

	rejected, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionReject, f.CustomerActor("c1"))
	require.NoError(t, err)
	assert.Equal(t, waitlist.StateRejected, rejected.To)
	assert.False(t, rejected.Entry.Active)

	// The booking row is left as it was
	booking, err := f.GetBooking(ctx, booked.Booking.ID)
	require.NoError(t, err)
	assert.True(t, booking.IsWaitlist)
	assert.True(t, booking.Active)

	_, err = WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionNotify, f.StaffActor("emp"))
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}

func TestWaitlistAction_Uninvite(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	f := newFakeDB()
	booked := waitlistedBooking(t, f)
	entryID := booked.WaitlistEntryID

	_, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionNotify, f.StaffActor("emp"))
	require.NoError(t, err)
	// Notify is idempotent
	again, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionNotify, f.StaffActor("emp2"))
	require.NoError(t, err)
	assert.Equal(t, waitlist.StateNotified, again.From)

	uninvited, err := WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionUninvite, f.StaffActor("owner"))
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatePending, uninvited.To)

	_, err = WaitlistAction(ctx, f, nil, logger, entryID, waitlist.ActionAccept, f.CustomerActor("c1"))
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}

func TestWaitlistAction_Permissions(t *testing.T) {
	tests := []struct {
		name   string
		action waitlist.Action
		actor  func(f *fakeDB) model.Actor
		kind   model.RejectionKind
	}{
		{"customer cannot notify", waitlist.ActionNotify, func(f *fakeDB) model.Actor { return f.CustomerActor("c1") }, model.KindPermission},
		{"unassociated staff cannot notify", waitlist.ActionNotify, func(f *fakeDB) model.Actor { return f.StaffActor("outsider") }, model.KindAssociation},
		{"staff cannot accept", waitlist.ActionAccept, func(f *fakeDB) model.Actor { return f.StaffActor("owner") }, model.KindPermission},
		{"other customer cannot reject", waitlist.ActionReject, func(f *fakeDB) model.Actor { return f.CustomerActor("c2") }, model.KindPermission},
		{"anonymous cannot uninvite", waitlist.ActionUninvite, func(f *fakeDB) model.Actor { return model.Anonymous() }, model.KindPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDB()
			booked := waitlistedBooking(t, f)

			_, err := WaitlistAction(context.Background(), f, nil, zap.NewNop(), booked.WaitlistEntryID, tt.action, tt.actor(f))
			require.Error(t, err)
			assert.True(t, model.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestWaitlistAction_UnknownEntry(t *testing.T) {
	f := newFakeDB()

	_, err := WaitlistAction(context.Background(), f, nil, zap.NewNop(), "ghost", waitlist.ActionNotify, f.StaffActor("emp"))
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

func TestWaitlistAction_TakesCapacityLock(t *testing.T) {
	shortLockWait(t)
	f := newFakeDB()
	booked := waitlistedBooking(t, f)
	locker := newFakeLocker(lock.CapacityKey("d1", monday))

	_, err := WaitlistAction(context.Background(), f, locker, zap.NewNop(), booked.WaitlistEntryID, waitlist.ActionNotify, f.StaffActor("emp"))
	assert.True(t, errors.Is(err, lock.ErrBusy))
}
