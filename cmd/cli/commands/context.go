package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/internal/config"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
)

// Migrator applies pending schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Migrator Migrator
	Locker   lock.Locker
	Logger   *zap.Logger
	Ctx      context.Context

	// NewPublisher builds the Google Sheets client on first use, so only
	// publishRoster goes through the OAuth flow
	NewPublisher func() (services.RosterPublisher, error)

	// Identity the command acts as, from --staff or --customer
	StaffID    string
	CustomerID string
}

// Actor resolves the identity given on the command line
func (app *AppContext) Actor() (model.Actor, error) {
	actor, err := services.ResolveActor(app.Ctx, app.Database, app.StaffID, app.CustomerID)
	if err != nil {
		return model.Anonymous(), err
	}
	if actor.Kind == model.ActorAnonymous {
		return actor, fmt.Errorf("this command needs --staff or --customer")
	}
	return actor, nil
}

// Location returns the timezone command-line times are given in
func (app *AppContext) Location() *time.Location {
	if app.Cfg == nil {
		return time.UTC
	}
	return app.Cfg.Location()
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

// parseDateTime parses "2006-01-02T15:04" in the configured timezone
func (app *AppContext) parseDateTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateTimeLayout, value, app.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected YYYY-MM-DDTHH:MM: %w", value, err)
	}
	return t, nil
}

// parseDate parses "2006-01-02" in the configured timezone
func (app *AppContext) parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, app.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}
