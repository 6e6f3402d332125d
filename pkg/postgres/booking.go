package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

const bookingSelect = `
	SELECT b.id, b.customer_id, b.pet_id, b.daycare_id, b.start_time, b.end_time,
		b.active, b.checked_in, b.recurrence, b.is_waitlist, b.waitlist_accepted, b.created_at,
		COALESCE(array_agg(bp.product_id) FILTER (WHERE bp.product_id IS NOT NULL), '{}')
	FROM booking b
	LEFT JOIN booking_product bp ON bp.booking_id = b.id
`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.CustomerID, &b.PetID, &b.DaycareID, &b.Start, &b.End,
		&b.Active, &b.CheckedIn, &b.Recurrence, &b.IsWaitlist, &b.WaitlistAccepted, &b.CreatedAt,
		&b.ProductIDs)
	return b, err
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

// GetBooking retrieves a single booking with its products
func (s *store) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	b, err := scanBooking(s.q.QueryRow(ctx, bookingSelect+`
		WHERE b.id = $1
		GROUP BY b.id
	`, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", bookingID, err)
	}
	return &b, nil
}

// GetPetBookings retrieves the pet's bookings at any daycare intersecting [from, to)
func (s *store) GetPetBookings(ctx context.Context, petID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := s.q.Query(ctx, bookingSelect+`
		WHERE b.pet_id = $1 AND b.start_time < $3 AND b.end_time > $2
		GROUP BY b.id
		ORDER BY b.start_time
	`, petID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for pet %s: %w", petID, err)
	}
	return collectBookings(rows)
}

// GetDaycareBookings retrieves the bookings at a daycare intersecting [from, to)
func (s *store) GetDaycareBookings(ctx context.Context, daycareID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := s.q.Query(ctx, bookingSelect+`
		WHERE b.daycare_id = $1 AND b.start_time < $3 AND b.end_time > $2
		GROUP BY b.id
		ORDER BY b.start_time
	`, daycareID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for daycare %s: %w", daycareID, err)
	}
	return collectBookings(rows)
}

// InsertBooking inserts a booking and its product links
func (s *store) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO booking (id, customer_id, pet_id, daycare_id, start_time, end_time,
			active, checked_in, recurrence, is_waitlist, waitlist_accepted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.CustomerID, b.PetID, b.DaycareID, b.Start, b.End,
		b.Active, b.CheckedIn, b.Recurrence, b.IsWaitlist, b.WaitlistAccepted, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	for _, productID := range b.ProductIDs {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO booking_product (booking_id, product_id) VALUES ($1, $2)
		`, b.ID, productID); err != nil {
			return fmt.Errorf("failed to link product %s to booking: %w", productID, err)
		}
	}
	return nil
}

// UpdateBooking overwrites the status flags of a booking
func (s *store) UpdateBooking(ctx context.Context, b *model.Booking) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE booking
		SET active = $2, checked_in = $3, is_waitlist = $4, waitlist_accepted = $5
		WHERE id = $1
	`, b.ID, b.Active, b.CheckedIn, b.IsWaitlist, b.WaitlistAccepted)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

const blacklistColumns = `id, pet_id, daycare_id, reason, active, created_at`

func scanBlacklist(row pgx.Row) (model.BlacklistedPet, error) {
	var e model.BlacklistedPet
	err := row.Scan(&e.ID, &e.PetID, &e.DaycareID, &e.Reason, &e.Active, &e.CreatedAt)
	return e, err
}

// GetBlacklist retrieves the blacklist entries of a pet at a daycare
func (s *store) GetBlacklist(ctx context.Context, petID, daycareID string) ([]model.BlacklistedPet, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+blacklistColumns+`
		FROM blacklisted_pet
		WHERE pet_id = $1 AND daycare_id = $2
	`, petID, daycareID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer rows.Close()

	var entries []model.BlacklistedPet
	for rows.Next() {
		e, err := scanBlacklist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist: %w", err)
	}
	return entries, nil
}

// GetBlacklistEntry retrieves a single blacklist entry
func (s *store) GetBlacklistEntry(ctx context.Context, id string) (*model.BlacklistedPet, error) {
	e, err := scanBlacklist(s.q.QueryRow(ctx, `SELECT `+blacklistColumns+` FROM blacklisted_pet WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist entry %s: %w", id, err)
	}
	return &e, nil
}

// InsertBlacklist inserts a blacklist entry
func (s *store) InsertBlacklist(ctx context.Context, e *model.BlacklistedPet) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO blacklisted_pet (id, pet_id, daycare_id, reason, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.PetID, e.DaycareID, e.Reason, e.Active, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert blacklist entry: %w", err)
	}
	return nil
}

// SetBlacklistActive toggles a blacklist entry
func (s *store) SetBlacklistActive(ctx context.Context, id string, active bool) error {
	tag, err := s.q.Exec(ctx, `UPDATE blacklisted_pet SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update blacklist entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
