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

const shiftColumns = `id, staff_id, daycare_id, start_time, end_time, day, active`

func scanShift(row pgx.Row) (model.StaffShift, error) {
	var sh model.StaffShift
	err := row.Scan(&sh.ID, &sh.StaffID, &sh.DaycareID, &sh.Start, &sh.End, &sh.Day, &sh.Active)
	return sh, err
}

func collectShifts(rows pgx.Rows) ([]model.StaffShift, error) {
	defer rows.Close()

	var shifts []model.StaffShift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shifts: %w", err)
	}
	return shifts, nil
}

// GetShift retrieves a single shift
func (s *store) GetShift(ctx context.Context, shiftID string) (*model.StaffShift, error) {
	sh, err := scanShift(s.q.QueryRow(ctx, `SELECT `+shiftColumns+` FROM staff_shift WHERE id = $1`, shiftID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift %s: %w", shiftID, err)
	}
	return &sh, nil
}

// GetStaffShiftsOnDay retrieves the staff member's shifts on a day across all daycares
func (s *store) GetStaffShiftsOnDay(ctx context.Context, staffID string, day time.Time) ([]model.StaffShift, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM staff_shift
		WHERE staff_id = $1 AND day = $2
		ORDER BY start_time
	`, staffID, dateParam(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts for staff %s: %w", staffID, err)
	}
	return collectShifts(rows)
}

// GetDaycareShifts retrieves the shifts at a daycare with day in [from, to)
func (s *store) GetDaycareShifts(ctx context.Context, daycareID string, from, to time.Time) ([]model.StaffShift, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM staff_shift
		WHERE daycare_id = $1 AND day >= $2 AND day < $3
		ORDER BY day, start_time
	`, daycareID, dateParam(from), dateParam(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts for daycare %s: %w", daycareID, err)
	}
	return collectShifts(rows)
}

// InsertShift inserts a new shift
func (s *store) InsertShift(ctx context.Context, shift *model.StaffShift) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO staff_shift (id, staff_id, daycare_id, start_time, end_time, day, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, shift.ID, shift.StaffID, shift.DaycareID, shift.Start, shift.End, dateParam(shift.Day), shift.Active)
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

// UpdateShift overwrites the mutable fields of a shift
func (s *store) UpdateShift(ctx context.Context, shift *model.StaffShift) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE staff_shift
		SET daycare_id = $2, start_time = $3, end_time = $4, day = $5, active = $6
		WHERE id = $1
	`, shift.ID, shift.DaycareID, shift.Start, shift.End, dateParam(shift.Day), shift.Active)
	if err != nil {
		return fmt.Errorf("failed to update shift %s: %w", shift.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

const unavailabilityColumns = `id, staff_id, mode, day_of_week, date, reason, active`

func scanUnavailability(row pgx.Row) (model.Unavailability, error) {
	var u model.Unavailability
	var mode string
	var dow *int16
	err := row.Scan(&u.ID, &u.StaffID, &mode, &dow, &u.Date, &u.Reason, &u.Active)
	if err != nil {
		return u, err
	}
	u.Mode = model.UnavailabilityMode(mode)
	if dow != nil {
		d := model.UnavailabilityDay(*dow)
		u.DayOfWeek = &d
	}
	return u, nil
}

// GetUnavailability retrieves all unavailability records of a staff member
func (s *store) GetUnavailability(ctx context.Context, staffID string) ([]model.Unavailability, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+unavailabilityColumns+`
		FROM staff_unavailability
		WHERE staff_id = $1
	`, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unavailability for staff %s: %w", staffID, err)
	}
	defer rows.Close()

	var entries []model.Unavailability
	for rows.Next() {
		u, err := scanUnavailability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unavailability: %w", err)
		}
		entries = append(entries, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unavailability: %w", err)
	}
	return entries, nil
}

// GetUnavailabilityByID retrieves a single unavailability record
func (s *store) GetUnavailabilityByID(ctx context.Context, id string) (*model.Unavailability, error) {
	u, err := scanUnavailability(s.q.QueryRow(ctx, `
		SELECT `+unavailabilityColumns+` FROM staff_unavailability WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unavailability %s: %w", id, err)
	}
	return &u, nil
}

// InsertUnavailability inserts a new unavailability record
func (s *store) InsertUnavailability(ctx context.Context, u *model.Unavailability) error {
	var dow *int16
	if u.DayOfWeek != nil {
		d := int16(*u.DayOfWeek)
		dow = &d
	}
	var date any
	if u.Date != nil {
		date = dateParam(*u.Date)
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO staff_unavailability (id, staff_id, mode, day_of_week, date, reason, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.StaffID, string(u.Mode), dow, date, u.Reason, u.Active)
	if err != nil {
		return fmt.Errorf("failed to insert unavailability: %w", err)
	}
	return nil
}

// SetUnavailabilityActive toggles an unavailability record
func (s *store) SetUnavailabilityActive(ctx context.Context, id string, active bool) error {
	tag, err := s.q.Exec(ctx, `UPDATE staff_unavailability SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update unavailability %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// dateParam formats a timestamp as a DATE literal in its own location
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}
