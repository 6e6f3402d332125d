package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/hours"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/unavailability"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

// SetOpeningHours replaces the schedule of one day at a daycare. Owners only.
func SetOpeningHours(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, entry model.OpeningHours) (*model.OpeningHours, error) {
	logger.Debug("Setting opening hours",
		zap.String("daycare_id", entry.DaycareID),
		zap.Stringer("day", entry.Day),
		zap.Bool("closed", entry.Closed),
		zap.Int("capacity", entry.Capacity))

	if err := requireAdministrator(actor, entry.DaycareID, "set opening hours"); err != nil {
		return nil, err
	}
	if err := hours.Validate(entry); err != nil {
		return nil, err
	}
	if entry.Closed {
		entry.From, entry.To = nil, nil
	}

	err := database.InTx(ctx, func(tx db.Store) error {
		if err := tx.UpsertOpeningHours(ctx, &entry); err != nil {
			return fmt.Errorf("failed to store opening hours: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Opening hours set",
		zap.String("daycare_id", entry.DaycareID),
		zap.Stringer("day", entry.Day))
	return &entry, nil
}

// AddUnavailability records a day a staff member cannot work. Staff may record
// their own; an owner may record it for staff of a daycare they administer.
func AddUnavailability(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, entry model.Unavailability) (*model.Unavailability, error) {
	logger.Debug("Adding unavailability",
		zap.String("staff_id", entry.StaffID),
		zap.String("mode", string(entry.Mode)))

	acting, err := requireStaff(actor, "record unavailability")
	if err != nil {
		return nil, err
	}
	if err := unavailability.Validate(entry); err != nil {
		return nil, err
	}

	entry.ID = uuid.New().String()
	entry.Active = true

	err = database.InTx(ctx, func(tx db.Store) error {
		staff, err := tx.GetStaff(ctx, entry.StaffID)
		if err != nil {
			return lookup(err, "staff", entry.StaffID)
		}
		if err := authorizeRosterOf(acting, staff); err != nil {
			return err
		}
		if err := tx.InsertUnavailability(ctx, &entry); err != nil {
			return fmt.Errorf("failed to insert unavailability: %w", err)
		}
		return nil
	})
	if err != nil {
		logDecision(logger, "Unavailability", err, zap.String("staff_id", entry.StaffID))
		return nil, err
	}

	logger.Info("Unavailability added", zap.String("id", entry.ID), zap.String("staff_id", entry.StaffID))
	return &entry, nil
}

// DeactivateUnavailability withdraws an unavailability record
func DeactivateUnavailability(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, id string) error {
	acting, err := requireStaff(actor, "withdraw unavailability")
	if err != nil {
		return err
	}

	err = database.InTx(ctx, func(tx db.Store) error {
		entry, err := tx.GetUnavailabilityByID(ctx, id)
		if err != nil {
			return lookup(err, "unavailability", id)
		}
		staff, err := tx.GetStaff(ctx, entry.StaffID)
		if err != nil {
			return lookup(err, "staff", entry.StaffID)
		}
		if err := authorizeRosterOf(acting, staff); err != nil {
			return err
		}
		if !entry.Active {
			return model.Reject(model.KindPrecondition, "unavailability %s is already inactive", id)
		}
		if err := tx.SetUnavailabilityActive(ctx, id, false); err != nil {
			return fmt.Errorf("failed to deactivate unavailability: %w", err)
		}
		return nil
	})
	if err != nil {
		logDecision(logger, "Unavailability withdrawal", err, zap.String("id", id))
		return err
	}

	logger.Info("Unavailability deactivated", zap.String("id", id))
	return nil
}

// authorizeRosterOf allows staff to manage their own roster, and owners to
// manage the roster of staff at any daycare they administer
func authorizeRosterOf(acting, target *model.Staff) error {
	if acting.ID == target.ID {
		return nil
	}
	for _, daycareID := range target.DaycareIDs {
		if acting.Administers(daycareID) {
			return nil
		}
	}
	return model.Reject(model.KindPermission, "staff %s cannot manage the roster of staff %s", acting.ID, target.ID)
}

// BlacklistPet bans a pet from a daycare. Owners only.
func BlacklistPet(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, petID, daycareID, reason string) (*model.BlacklistedPet, error) {
	logger.Debug("Blacklisting pet", zap.String("pet_id", petID), zap.String("daycare_id", daycareID))

	if err := requireAdministrator(actor, daycareID, "blacklist pets"); err != nil {
		return nil, err
	}

	var entry *model.BlacklistedPet
	err := database.InTx(ctx, func(tx db.Store) error {
		if _, err := tx.GetPet(ctx, petID); err != nil {
			return lookup(err, "pet", petID)
		}

		existing, err := tx.GetBlacklist(ctx, petID, daycareID)
		if err != nil {
			return fmt.Errorf("failed to fetch blacklist: %w", err)
		}
		for _, e := range existing {
			if e.Active {
				return model.Reject(model.KindPrecondition, "pet %s is already blacklisted at daycare %s (entry %s)", petID, daycareID, e.ID)
			}
		}

		entry = &model.BlacklistedPet{
			ID:        uuid.New().String(),
			PetID:     petID,
			DaycareID: daycareID,
			Reason:    reason,
			Active:    true,
			CreatedAt: now(),
		}
		if err := tx.InsertBlacklist(ctx, entry); err != nil {
			return fmt.Errorf("failed to insert blacklist entry: %w", err)
		}
		return nil
	})
	if err != nil {
		logDecision(logger, "Blacklist", err, zap.String("pet_id", petID), zap.String("daycare_id", daycareID))
		return nil, err
	}

	logger.Info("Pet blacklisted", zap.String("pet_id", petID), zap.String("daycare_id", daycareID), zap.String("id", entry.ID))
	return entry, nil
}

// LiftBlacklist deactivates a blacklist entry. Owners only.
func LiftBlacklist(ctx context.Context, database db.Database, logger *zap.Logger, actor model.Actor, entryID string) error {
	err := database.InTx(ctx, func(tx db.Store) error {
		entry, err := tx.GetBlacklistEntry(ctx, entryID)
		if err != nil {
			return lookup(err, "blacklist entry", entryID)
		}
		if err := requireAdministrator(actor, entry.DaycareID, "lift a blacklist"); err != nil {
			return err
		}
		if !entry.Active {
			return model.Reject(model.KindPrecondition, "blacklist entry %s is already lifted", entryID)
		}
		if err := tx.SetBlacklistActive(ctx, entryID, false); err != nil {
			return fmt.Errorf("failed to lift blacklist entry: %w", err)
		}
		return nil
	})
	if err != nil {
		logDecision(logger, "Blacklist lift", err, zap.String("id", entryID))
		return err
	}

	logger.Info("Blacklist lifted", zap.String("id", entryID))
	return nil
}
