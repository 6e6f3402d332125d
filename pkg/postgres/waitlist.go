package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

const waitlistColumns = `id, booking_id, customer_notified, customer_accepted, active, created_at`

// latestEntryForBooking picks the newest active entry of a booking, falling
// back to the newest closed one
const latestEntryForBooking = `SELECT ` + waitlistColumns + ` FROM waitlist
	WHERE booking_id = $1
	ORDER BY active DESC, created_at DESC, id DESC
	LIMIT 1`

func (s *store) getWaitlistEntry(ctx context.Context, query, what, arg string) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := s.q.QueryRow(ctx, query, arg).
		Scan(&e.ID, &e.BookingID, &e.CustomerNotified, &e.CustomerAccepted, &e.Active, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry by %s %s: %w", what, arg, err)
	}
	return &e, nil
}

// GetWaitlistEntry retrieves a waitlist entry by ID
func (s *store) GetWaitlistEntry(ctx context.Context, entryID string) (*model.WaitlistEntry, error) {
	return s.getWaitlistEntry(ctx, `SELECT `+waitlistColumns+` FROM waitlist WHERE id = $1`, "id", entryID)
}

// GetWaitlistEntryForBooking retrieves the current waitlist entry of a booking
func (s *store) GetWaitlistEntryForBooking(ctx context.Context, bookingID string) (*model.WaitlistEntry, error) {
	return s.getWaitlistEntry(ctx, latestEntryForBooking, "booking", bookingID)
}

// InsertWaitlistEntry inserts a waitlist entry
func (s *store) InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO waitlist (id, booking_id, customer_notified, customer_accepted, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.BookingID, e.CustomerNotified, e.CustomerAccepted, e.Active, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert waitlist entry: %w", err)
	}
	return nil
}

// UpdateWaitlistEntry overwrites the handshake flags of a waitlist entry
func (s *store) UpdateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE waitlist
		SET customer_notified = $2, customer_accepted = $3, active = $4
		WHERE id = $1
	`, e.ID, e.CustomerNotified, e.CustomerAccepted, e.Active)
	if err != nil {
		return fmt.Errorf("failed to update waitlist entry %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
