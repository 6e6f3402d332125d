package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/roster"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
	"github.com/jakechorley/daycare-scheduler/pkg/metrics"
)

// ShiftRequest proposes a shift for a staff member. When ExcludeShiftID is set
// the request replaces that shift instead of adding a new one.
type ShiftRequest struct {
	Actor     model.Actor
	StaffID   string
	DaycareID string
	Start     time.Time
	End       time.Time

	// Day defaults to the date of Start
	Day            time.Time
	ExcludeShiftID string
}

// ShiftDecision is the persisted outcome of an accepted shift
type ShiftDecision struct {
	Shift   *model.StaffShift
	Updated bool
}

// CreateShift validates a proposed shift against the staff member's roster and
// unavailability and persists it. Rejections are returned as *model.Rejection.
func CreateShift(ctx context.Context, database db.Database, locker lock.Locker, logger *zap.Logger, req *ShiftRequest) (*ShiftDecision, error) {
	day := req.Day
	if day.IsZero() {
		day = interval.DateOf(req.Start)
	}

	fields := []zap.Field{
		zap.String("staff_id", req.StaffID),
		zap.String("daycare_id", req.DaycareID),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
		zap.String("exclude_shift_id", req.ExcludeShiftID),
	}
	logger.Debug("Proposing shift", fields...)

	decision, err := createShift(ctx, database, locker, logger, req, day)
	if err != nil {
		metrics.IncShiftDecision(outcomeLabel(err))
		logDecision(logger, "Shift", err, fields...)
		return nil, err
	}

	metrics.IncShiftDecision("accepted")
	logger.Info("Shift accepted",
		append(fields, zap.String("shift_id", decision.Shift.ID), zap.Bool("updated", decision.Updated))...)
	return decision, nil
}

func createShift(ctx context.Context, database db.Database, locker lock.Locker, logger *zap.Logger, req *ShiftRequest, day time.Time) (*ShiftDecision, error) {
	actor, err := requireStaff(req.Actor, "propose shifts")
	if err != nil {
		return nil, err
	}
	if actor.ID != req.StaffID && !actor.Administers(req.DaycareID) {
		return nil, model.Reject(model.KindPermission, "staff %s cannot manage the roster of staff %s", actor.ID, req.StaffID)
	}

	release, err := acquire(ctx, locker, logger, lock.RosterKey(req.StaffID, day))
	if err != nil {
		return nil, err
	}
	defer release()

	var decision *ShiftDecision
	err = database.InTx(ctx, func(tx db.Store) error {
		staff, err := tx.GetStaff(ctx, req.StaffID)
		if err != nil {
			return lookup(err, "staff", req.StaffID)
		}

		var existing *model.StaffShift
		if req.ExcludeShiftID != "" {
			existing, err = tx.GetShift(ctx, req.ExcludeShiftID)
			if err != nil {
				return lookup(err, "shift", req.ExcludeShiftID)
			}
			if existing.StaffID != staff.ID {
				return model.Reject(model.KindInvalid, "shift %s does not belong to staff %s", existing.ID, staff.ID)
			}
			if !existing.Active {
				return model.Reject(model.KindPrecondition, "shift %s is inactive and cannot be updated", existing.ID)
			}
		}

		shifts, err := tx.GetStaffShiftsOnDay(ctx, staff.ID, day)
		if err != nil {
			return fmt.Errorf("failed to fetch shifts: %w", err)
		}
		unavailable, err := tx.GetUnavailability(ctx, staff.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch unavailability: %w", err)
		}
		logger.Debug("Loaded roster state",
			zap.Int("shifts", len(shifts)),
			zap.Int("unavailability", len(unavailable)))

		proposal := &roster.Proposal{
			Staff:          staff,
			DaycareID:      req.DaycareID,
			Start:          req.Start,
			End:            req.End,
			Day:            day,
			ExcludeShiftID: req.ExcludeShiftID,
		}
		if err := roster.Validate(proposal, &roster.State{Shifts: shifts, Unavailability: unavailable}); err != nil {
			return err
		}

		if existing != nil {
			existing.DaycareID = req.DaycareID
			existing.Start = req.Start
			existing.End = req.End
			existing.Day = day
			if err := tx.UpdateShift(ctx, existing); err != nil {
				return fmt.Errorf("failed to update shift: %w", err)
			}
			decision = &ShiftDecision{Shift: existing, Updated: true}
			return nil
		}

		shift := &model.StaffShift{
			ID:        uuid.New().String(),
			StaffID:   staff.ID,
			DaycareID: req.DaycareID,
			Start:     req.Start,
			End:       req.End,
			Day:       day,
			Active:    true,
		}
		if err := tx.InsertShift(ctx, shift); err != nil {
			return fmt.Errorf("failed to insert shift: %w", err)
		}
		decision = &ShiftDecision{Shift: shift}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// DeactivateShift removes a shift from the roster. Inactive shifts stay inactive.
func DeactivateShift(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, shiftID string) (*model.StaffShift, error) {
	logger.Debug("Deactivating shift", zap.String("shift_id", shiftID))

	staff, err := requireStaff(actor, "deactivate shifts")
	if err != nil {
		return nil, err
	}

	var shift *model.StaffShift
	err = database.InTx(ctx, func(tx db.Store) error {
		sh, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return lookup(err, "shift", shiftID)
		}
		if sh.StaffID != staff.ID && !staff.Administers(sh.DaycareID) {
			return model.Reject(model.KindPermission, "staff %s cannot manage shift %s", staff.ID, sh.ID)
		}
		if err := roster.Deactivate(sh); err != nil {
			return err
		}
		if err := tx.UpdateShift(ctx, sh); err != nil {
			return fmt.Errorf("failed to update shift: %w", err)
		}
		shift = sh
		return nil
	})
	if err != nil {
		logDecision(logger, "Shift deactivation", err, zap.String("shift_id", shiftID))
		return nil, err
	}

	logger.Info("Shift deactivated", zap.String("shift_id", shiftID), zap.String("staff_id", shift.StaffID))
	return shift, nil
}

// ListRoster returns the active shifts at a daycare with day in [from, to), ordered by day and start
func ListRoster(ctx context.Context, database db.RosterReader, logger *zap.Logger, daycareID string, from, to time.Time) ([]model.StaffShift, error) {
	if !from.Before(to) {
		return nil, model.Reject(model.KindInvalid, "roster range start %s must be before end %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	logger.Debug("Listing roster",
		zap.String("daycare_id", daycareID),
		zap.String("from", from.Format("2006-01-02")),
		zap.String("to", to.Format("2006-01-02")))

	shifts, err := database.GetDaycareShifts(ctx, daycareID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}

	active := roster.ActiveOnly(shifts)
	logger.Debug("Roster loaded", zap.Int("total", len(shifts)), zap.Int("active", len(active)))
	return active, nil
}
