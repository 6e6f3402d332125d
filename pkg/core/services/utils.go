package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
	"github.com/jakechorley/daycare-scheduler/pkg/metrics"
)

// lockTTL bounds how long a crashed request can hold a lock
const lockTTL = 30 * time.Second

// lockWait bounds how long a request queues behind another holding the same
// lock; overridden in tests
var lockWait = 5 * time.Second

// now is overridden in tests
var now = func() time.Time { return time.Now().UTC() }

// lookup converts a missing row into a not_found rejection and wraps anything else
func lookup(err error, what, id string) error {
	if errors.Is(err, db.ErrNotFound) {
		return model.Reject(model.KindNotFound, "%s %s not found", what, id)
	}
	return fmt.Errorf("failed to get %s %s: %w", what, id, err)
}

// acquire takes the locks guarding a write. A nil locker means no redis is configured.
func acquire(ctx context.Context, locker lock.Locker, logger *zap.Logger, keys ...string) (func(), error) {
	if locker == nil {
		locker = lock.Noop{}
	}

	release, err := lock.AcquireAll(ctx, locker, lockTTL, lockWait, keys...)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			metrics.IncConflict()
			logger.Info("Lock still held by another request", zap.Strings("keys", keys), zap.Error(err))
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire locks: %w", err)
	}
	return release, nil
}

// outcomeLabel names a failed decision for metrics
func outcomeLabel(err error) string {
	if r, ok := model.AsRejection(err); ok {
		return string(r.Kind)
	}
	if errors.Is(err, lock.ErrBusy) {
		return "busy"
	}
	return "error"
}

// logDecision logs a rejection at Info and any other failure at Error
func logDecision(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	if r, ok := model.AsRejection(err); ok {
		logger.Info(msg+" rejected", append(fields, zap.String("kind", string(r.Kind)), zap.String("detail", r.Detail))...)
		return
	}
	logger.Error(msg+" failed", append(fields, zap.Error(err))...)
}

// ResolveActor turns the identity presented at a boundary into an Actor.
// Unknown or inactive profiles are refused rather than treated as anonymous.
func ResolveActor(ctx context.Context, store db.EntityStore, staffID, customerID string) (model.Actor, error) {
	switch {
	case staffID != "" && customerID != "":
		return model.Anonymous(), model.Reject(model.KindInvalid, "an actor is either staff or a customer, not both")
	case staffID != "":
		staff, err := store.GetStaff(ctx, staffID)
		if errors.Is(err, db.ErrNotFound) {
			return model.Anonymous(), model.Reject(model.KindPermission, "unknown staff %s", staffID)
		}
		if err != nil {
			return model.Anonymous(), fmt.Errorf("failed to resolve staff %s: %w", staffID, err)
		}
		if !staff.Active {
			return model.Anonymous(), model.Reject(model.KindPermission, "staff %s is not active", staffID)
		}
		return model.StaffActor(staff), nil
	case customerID != "":
		customer, err := store.GetCustomer(ctx, customerID)
		if errors.Is(err, db.ErrNotFound) {
			return model.Anonymous(), model.Reject(model.KindPermission, "unknown customer %s", customerID)
		}
		if err != nil {
			return model.Anonymous(), fmt.Errorf("failed to resolve customer %s: %w", customerID, err)
		}
		if !customer.Active {
			return model.Anonymous(), model.Reject(model.KindPermission, "customer %s is not active", customerID)
		}
		return model.CustomerActor(customer), nil
	default:
		return model.Anonymous(), nil
	}
}

// requireStaff returns the acting staff member or a permission rejection
func requireStaff(actor model.Actor, action string) (*model.Staff, error) {
	if actor.Kind != model.ActorStaff {
		return nil, model.Reject(model.KindPermission, "only staff can %s", action)
	}
	return actor.Staff, nil
}

// requireAdministrator checks the actor owns the daycare
func requireAdministrator(actor model.Actor, daycareID, action string) error {
	staff, err := requireStaff(actor, action)
	if err != nil {
		return err
	}
	if !staff.CanManage(daycareID) {
		return model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", staff.ID, daycareID)
	}
	if !staff.Administers(daycareID) {
		return model.Reject(model.KindPermission, "only an owner of daycare %s can %s", daycareID, action)
	}
	return nil
}
