package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/admission"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
	"github.com/jakechorley/daycare-scheduler/pkg/metrics"
)

// BookingRequest proposes a booking for a pet at a daycare
type BookingRequest struct {
	Actor      model.Actor
	CustomerID string
	PetID      string
	DaycareID  string
	Start      time.Time
	End        time.Time
	ProductIDs []string
	Recurrence bool
}

// SlotResult is one persisted booking and how it was admitted
type SlotResult struct {
	Booking         *model.Booking
	Outcome         admission.Outcome
	WaitlistEntryID string
	Advisory        string
}

// SkippedSlot is a recurring sibling that failed validation and was not booked
type SkippedSlot struct {
	Start  time.Time
	End    time.Time
	Reason *model.Rejection
}

// BookingDecision reports the requested booking and, for recurring requests,
// what happened to each weekly sibling
type BookingDecision struct {
	SlotResult
	Siblings []SlotResult
	Skipped  []SkippedSlot
}

// CreateBooking authorizes and admits a booking. Overflow beyond the day's
// capacity is not an error: the booking is stored as waitlisted with a pending
// waitlist entry. Recurring requests also book four weekly siblings, each
// admitted, waitlisted or skipped on its own merits.
func CreateBooking(ctx context.Context, database db.Database, locker lock.Locker, logger *zap.Logger, req *BookingRequest) (*BookingDecision, error) {
	fields := []zap.Field{
		zap.String("customer_id", req.CustomerID),
		zap.String("pet_id", req.PetID),
		zap.String("daycare_id", req.DaycareID),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
		zap.Bool("recurrence", req.Recurrence),
	}
	logger.Debug("Proposing booking", fields...)

	decision, err := createBooking(ctx, database, locker, logger, req)
	if err != nil {
		metrics.IncBookingDecision(outcomeLabel(err))
		logDecision(logger, "Booking", err, fields...)
		return nil, err
	}

	metrics.IncBookingDecision(string(decision.Outcome))
	for _, s := range decision.Siblings {
		metrics.IncBookingDecision(string(s.Outcome))
	}
	for _, s := range decision.Skipped {
		metrics.IncBookingDecision(string(s.Reason.Kind))
	}

	logger.Info("Booking stored",
		append(fields,
			zap.String("booking_id", decision.Booking.ID),
			zap.String("outcome", string(decision.Outcome)),
			zap.Int("siblings", len(decision.Siblings)),
			zap.Int("skipped", len(decision.Skipped)))...)
	return decision, nil
}

func createBooking(ctx context.Context, database db.Database, locker lock.Locker, logger *zap.Logger, req *BookingRequest) (*BookingDecision, error) {
	if !req.Start.Before(req.End) {
		return nil, model.Reject(model.KindInvalid, "booking start %s must be before end %s",
			req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339))
	}

	var siblings []admission.Slot
	if req.Recurrence {
		var err error
		siblings, err = admission.ExpandRecurrence(req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("failed to expand recurrence: %w", err)
		}
		logger.Debug("Expanded recurrence", zap.Int("siblings", len(siblings)))
	}

	keys := []string{lock.PetKey(req.PetID), lock.CapacityKey(req.DaycareID, req.Start)}
	for _, s := range siblings {
		keys = append(keys, lock.CapacityKey(req.DaycareID, s.Start))
	}
	release, err := acquire(ctx, locker, logger, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var decision *BookingDecision
	err = database.InTx(ctx, func(tx db.Store) error {
		// Reset on every attempt: InTx may rerun this function
		decision = nil

		areq, err := resolveBookingRequest(ctx, tx, req)
		if err != nil {
			return err
		}
		if err := admission.Authorize(areq); err != nil {
			return err
		}

		openingHours, err := tx.GetOpeningHours(ctx, req.DaycareID)
		if err != nil {
			return fmt.Errorf("failed to fetch opening hours: %w", err)
		}
		blacklist, err := tx.GetBlacklist(ctx, req.PetID, req.DaycareID)
		if err != nil {
			return fmt.Errorf("failed to fetch blacklist: %w", err)
		}

		admit := func(start, end time.Time, recurrence bool) (*SlotResult, error) {
			state, err := loadSlotState(ctx, tx, req, start, end)
			if err != nil {
				return nil, err
			}
			state.OpeningHours = openingHours
			state.Blacklist = blacklist

			d, err := admission.EvaluateSlot(req.PetID, req.DaycareID, start, end, state)
			if err != nil {
				return nil, err
			}
			logger.Debug("Slot evaluated",
				zap.Time("start", start),
				zap.String("outcome", string(d.Outcome)),
				zap.Int("occupied", d.Occupied),
				zap.Int("capacity", d.Capacity))
			return persistSlot(ctx, tx, areq, d, recurrence)
		}

		primary, err := admit(req.Start, req.End, req.Recurrence)
		if err != nil {
			return err
		}
		result := &BookingDecision{SlotResult: *primary}

		for _, s := range siblings {
			sibling, err := admit(s.Start, s.End, false)
			if r, ok := model.AsRejection(err); ok {
				logger.Debug("Skipping recurring sibling",
					zap.Time("start", s.Start),
					zap.String("kind", string(r.Kind)),
					zap.String("detail", r.Detail))
				result.Skipped = append(result.Skipped, SkippedSlot{Start: s.Start, End: s.End, Reason: r})
				continue
			}
			if err != nil {
				return err
			}
			result.Siblings = append(result.Siblings, *sibling)
		}

		decision = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// resolveBookingRequest loads the entities a booking references
func resolveBookingRequest(ctx context.Context, tx db.EntityStore, req *BookingRequest) (*admission.Request, error) {
	customer, err := tx.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, lookup(err, "customer", req.CustomerID)
	}
	pet, err := tx.GetPet(ctx, req.PetID)
	if err != nil {
		return nil, lookup(err, "pet", req.PetID)
	}
	products, err := tx.GetProducts(ctx, req.ProductIDs)
	if err != nil {
		return nil, lookup(err, "products", fmt.Sprint(req.ProductIDs))
	}

	return &admission.Request{
		Actor:      req.Actor,
		Customer:   customer,
		Pet:        pet,
		DaycareID:  req.DaycareID,
		Start:      req.Start,
		End:        req.End,
		Products:   products,
		Recurrence: req.Recurrence,
	}, nil
}

// loadSlotState reads the bookings the admission checks need for one slot
func loadSlotState(ctx context.Context, tx db.BookingReader, req *BookingRequest, start, end time.Time) (*admission.State, error) {
	petBookings, err := tx.GetPetBookings(ctx, req.PetID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pet bookings: %w", err)
	}
	daycareBookings, err := tx.GetDaycareBookings(ctx, req.DaycareID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daycare bookings: %w", err)
	}
	return &admission.State{PetBookings: petBookings, DaycareBookings: daycareBookings}, nil
}

// persistSlot stores the booking for an evaluated slot, plus a pending waitlist entry on overflow
func persistSlot(ctx context.Context, tx db.Store, req *admission.Request, d *admission.Decision, recurrence bool) (*SlotResult, error) {
	productIDs := make([]string, 0, len(req.Products))
	for _, p := range req.Products {
		productIDs = append(productIDs, p.ID)
	}

	booking := &model.Booking{
		ID:         uuid.New().String(),
		CustomerID: req.Customer.ID,
		PetID:      req.Pet.ID,
		DaycareID:  req.DaycareID,
		Start:      d.Start,
		End:        d.End,
		Active:     true,
		Recurrence: recurrence,
		ProductIDs: productIDs,
		IsWaitlist: d.Outcome == admission.OutcomeWaitlisted,
		CreatedAt:  now(),
	}
	if err := tx.InsertBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	result := &SlotResult{Booking: booking, Outcome: d.Outcome, Advisory: d.Advisory}
	if d.Outcome != admission.OutcomeWaitlisted {
		return result, nil
	}

	entry := &model.WaitlistEntry{
		ID:        uuid.New().String(),
		BookingID: booking.ID,
		Active:    true,
		CreatedAt: booking.CreatedAt,
	}
	if err := tx.InsertWaitlistEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert waitlist entry: %w", err)
	}
	result.WaitlistEntryID = entry.ID
	return result, nil
}

// CancelBooking soft-deletes a booking. The owning customer or staff of the
// daycare may cancel; an open waitlist entry for the booking is closed with it.
func CancelBooking(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, bookingID string) (*model.Booking, error) {
	logger.Debug("Cancelling booking", zap.String("booking_id", bookingID))

	var booking *model.Booking
	err := database.InTx(ctx, func(tx db.Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return lookup(err, "booking", bookingID)
		}
		if err := authorizeBookingChange(actor, b); err != nil {
			return err
		}
		if !b.Active {
			return model.Reject(model.KindPrecondition, "booking %s is already cancelled", b.ID)
		}

		b.Active = false
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		if b.IsWaitlist {
			entry, err := tx.GetWaitlistEntryForBooking(ctx, b.ID)
			if err != nil {
				return lookup(err, "waitlist entry for booking", b.ID)
			}
			if entry.Active {
				entry.Active = false
				if err := tx.UpdateWaitlistEntry(ctx, entry); err != nil {
					return fmt.Errorf("failed to close waitlist entry: %w", err)
				}
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		logDecision(logger, "Booking cancellation", err, zap.String("booking_id", bookingID))
		return nil, err
	}

	logger.Info("Booking cancelled", zap.String("booking_id", bookingID))
	return booking, nil
}

// CheckIn records that the pet of an admitted booking has arrived
func CheckIn(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, bookingID string) (*model.Booking, error) {
	logger.Debug("Checking in booking", zap.String("booking_id", bookingID))

	staff, err := requireStaff(actor, "check in bookings")
	if err != nil {
		return nil, err
	}

	var booking *model.Booking
	err = database.InTx(ctx, func(tx db.Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return lookup(err, "booking", bookingID)
		}
		if !staff.CanManage(b.DaycareID) {
			return model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", staff.ID, b.DaycareID)
		}
		switch {
		case !b.Active:
			return model.Reject(model.KindPrecondition, "booking %s is cancelled", b.ID)
		case b.IsWaitlist:
			return model.Reject(model.KindPrecondition, "booking %s is still on the waitlist", b.ID)
		case b.CheckedIn:
			return model.Reject(model.KindPrecondition, "booking %s is already checked in", b.ID)
		}

		b.CheckedIn = true
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		logDecision(logger, "Check-in", err, zap.String("booking_id", bookingID))
		return nil, err
	}

	logger.Info("Booking checked in", zap.String("booking_id", bookingID), zap.String("staff_id", staff.ID))
	return booking, nil
}

// authorizeBookingChange allows the booking's customer or staff associated with its daycare
func authorizeBookingChange(actor model.Actor, b *model.Booking) error {
	switch actor.Kind {
	case model.ActorCustomer:
		if !actor.IsCustomer(b.CustomerID) {
			return model.Reject(model.KindPermission, "customer %s does not own booking %s", actor.Customer.ID, b.ID)
		}
	case model.ActorStaff:
		if !actor.Staff.CanManage(b.DaycareID) {
			return model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", actor.Staff.ID, b.DaycareID)
		}
	default:
		return model.Reject(model.KindPermission, "bookings can only be changed by their customer or daycare staff")
	}
	return nil
}

