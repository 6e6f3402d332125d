package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/internal/config"
	"github.com/jakechorley/daycare-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/daycare-scheduler/pkg/core/interval"
	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

// PublishRosterStore defines the database operations needed for publishing a roster
type PublishRosterStore interface {
	db.RosterReader
	GetDaycare(ctx context.Context, daycareID string) (*model.Daycare, error)
	GetStaff(ctx context.Context, staffID string) (*model.Staff, error)
}

// RosterPublisher writes a published roster to a spreadsheet
type RosterPublisher interface {
	PublishRoster(spreadsheetID string, roster *sheetsclient.PublishedRoster) error
}

// PublishRoster publishes one week (Monday to Sunday) of a daycare's active
// shifts to the configured roster spreadsheet. Staff associated with the daycare only.
func PublishRoster(
	ctx context.Context,
	store PublishRosterStore,
	publisher RosterPublisher,
	cfg *config.Config,
	logger *zap.Logger,
	actor model.Actor,
	daycareID string,
	week time.Time,
) (*sheetsclient.PublishedRoster, error) {
	staff, err := requireStaff(actor, "publish rosters")
	if err != nil {
		return nil, err
	}
	if !staff.CanManage(daycareID) {
		return nil, model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", staff.ID, daycareID)
	}
	if cfg.Sheets.RosterSheetID == "" {
		return nil, fmt.Errorf("sheets.rosterSheetID is not configured")
	}

	loc := cfg.Location()
	weekStart := mondayOf(week.In(loc))
	weekEnd := weekStart.AddDate(0, 0, 7)

	logger.Debug("Publishing roster",
		zap.String("daycare_id", daycareID),
		zap.String("week_start", weekStart.Format("2006-01-02")))

	daycare, err := store.GetDaycare(ctx, daycareID)
	if err != nil {
		return nil, lookup(err, "daycare", daycareID)
	}

	shifts, err := ListRoster(ctx, store, logger, daycareID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	names, err := staffNames(ctx, store, shifts)
	if err != nil {
		return nil, err
	}

	published := &sheetsclient.PublishedRoster{
		DaycareName: daycare.Name,
		WeekStart:   weekStart,
		Rows:        buildRosterRows(shifts, names, weekStart, loc),
	}

	logger.Debug("Built roster rows", zap.Int("shifts", len(shifts)))

	if err := publisher.PublishRoster(cfg.Sheets.RosterSheetID, published); err != nil {
		return nil, fmt.Errorf("failed to publish roster: %w", err)
	}

	logger.Info("Roster published",
		zap.String("daycare_id", daycareID),
		zap.String("week_start", weekStart.Format("2006-01-02")),
		zap.Int("shifts", len(shifts)))
	return published, nil
}

// staffNames resolves the display name of every staff member on the roster.
// Staff that no longer exist are shown by ID.
func staffNames(ctx context.Context, store PublishRosterStore, shifts []model.StaffShift) (map[string]string, error) {
	names := make(map[string]string)
	for _, sh := range shifts {
		if _, ok := names[sh.StaffID]; ok {
			continue
		}
		staff, err := store.GetStaff(ctx, sh.StaffID)
		if errors.Is(err, db.ErrNotFound) {
			names[sh.StaffID] = sh.StaffID
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get staff %s: %w", sh.StaffID, err)
		}
		names[sh.StaffID] = staff.Name
	}
	return names, nil
}

// buildRosterRows lays out one row per day of the week, shifts ordered by start time
func buildRosterRows(shifts []model.StaffShift, names map[string]string, weekStart time.Time, loc *time.Location) []sheetsclient.PublishedRosterRow {
	byDay := make(map[string][]model.StaffShift)
	for _, sh := range shifts {
		key := sh.Day.Format("2006-01-02")
		byDay[key] = append(byDay[key], sh)
	}

	rows := make([]sheetsclient.PublishedRosterRow, 0, 7)
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i)
		dayShifts := byDay[date.Format("2006-01-02")]
		sort.Slice(dayShifts, func(a, b int) bool {
			if !dayShifts[a].Start.Equal(dayShifts[b].Start) {
				return dayShifts[a].Start.Before(dayShifts[b].Start)
			}
			return names[dayShifts[a].StaffID] < names[dayShifts[b].StaffID]
		})

		entries := make([]string, 0, len(dayShifts))
		for _, sh := range dayShifts {
			entries = append(entries, fmt.Sprintf("%s (%s-%s)",
				names[sh.StaffID], sh.Start.In(loc).Format("15:04"), sh.End.In(loc).Format("15:04")))
		}

		rows = append(rows, sheetsclient.PublishedRosterRow{
			Date:   date.Format("Mon Jan 02 2006"),
			Shifts: entries,
		})
	}
	return rows
}

// mondayOf returns midnight of the Monday starting t's week
func mondayOf(t time.Time) time.Time {
	day := interval.DateOf(t)
	return day.AddDate(0, 0, -(int(interval.OpeningDayOf(day)) - 1))
}
