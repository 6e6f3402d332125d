package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/waitlist"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
	"github.com/jakechorley/daycare-scheduler/pkg/metrics"
)

// WaitlistDecision is the state of an entry and its booking after an action
type WaitlistDecision struct {
	Entry   *model.WaitlistEntry
	Booking *model.Booking
	From    waitlist.State
	To      waitlist.State
}

// WaitlistAction applies notify, accept, reject or uninvite to a waitlist entry
func WaitlistAction(ctx context.Context, database db.Database, locker lock.Locker, logger *zap.Logger, entryID string, action waitlist.Action, actor model.Actor) (*WaitlistDecision, error) {
	fields := []zap.Field{
		zap.String("entry_id", entryID),
		zap.String("action", string(action)),
		zap.String("actor", actor.Kind.String()),
		zap.String("actor_id", actor.ID()),
	}
	logger.Debug("Applying waitlist action", fields...)

	decision, err := waitlistAction(ctx, database, locker, logger, entryID, action, actor)
	if err != nil {
		metrics.IncWaitlistTransition(string(action), outcomeLabel(err))
		logDecision(logger, "Waitlist action", err, fields...)
		return nil, err
	}

	metrics.IncWaitlistTransition(string(action), "ok")
	logger.Info("Waitlist action applied",
		append(fields,
			zap.String("from", string(decision.From)),
			zap.String("to", string(decision.To)),
			zap.String("booking_id", decision.Booking.ID))...)
	return decision, nil
}

func waitlistAction(ctx context.Context, database db.Database, locker lock.Locker, logger *zap.Logger, entryID string, action waitlist.Action, actor model.Actor) (*WaitlistDecision, error) {
	// Accepting promotes the booking into the daycare's capacity, so it takes
	// the same capacity lock as admission. The lock key needs the booking's date.
	entry, err := database.GetWaitlistEntry(ctx, entryID)
	if err != nil {
		return nil, lookup(err, "waitlist entry", entryID)
	}
	booking, err := database.GetBooking(ctx, entry.BookingID)
	if err != nil {
		return nil, lookup(err, "booking", entry.BookingID)
	}

	release, err := acquire(ctx, locker, logger, lock.CapacityKey(booking.DaycareID, booking.Start))
	if err != nil {
		return nil, err
	}
	defer release()

	var decision *WaitlistDecision
	err = database.InTx(ctx, func(tx db.Store) error {
		entry, err := tx.GetWaitlistEntry(ctx, entryID)
		if err != nil {
			return lookup(err, "waitlist entry", entryID)
		}
		booking, err := tx.GetBooking(ctx, entry.BookingID)
		if err != nil {
			return lookup(err, "booking", entry.BookingID)
		}

		effect, err := waitlist.Apply(entry, booking, action, actor)
		if err != nil {
			return err
		}

		if effect.EntryChanged {
			if err := tx.UpdateWaitlistEntry(ctx, entry); err != nil {
				return fmt.Errorf("failed to update waitlist entry: %w", err)
			}
		}
		if effect.BookingChanged {
			if err := tx.UpdateBooking(ctx, booking); err != nil {
				return fmt.Errorf("failed to update booking: %w", err)
			}
		}

		decision = &WaitlistDecision{Entry: entry, Booking: booking, From: effect.From, To: effect.To}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}
