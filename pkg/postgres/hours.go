package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

const microsPerSecond = 1_000_000

// GetOpeningHours retrieves the weekly schedule of a daycare
func (s *store) GetOpeningHours(ctx context.Context, daycareID string) ([]model.OpeningHours, error) {
	rows, err := s.q.Query(ctx, `
		SELECT daycare_id, day, closed, from_time, to_time, capacity
		FROM opening_hours
		WHERE daycare_id = $1
		ORDER BY day
	`, daycareID)
	if err != nil {
		return nil, fmt.Errorf("failed to query opening hours for daycare %s: %w", daycareID, err)
	}
	defer rows.Close()

	var entries []model.OpeningHours
	for rows.Next() {
		var h model.OpeningHours
		var day int16
		var from, to pgtype.Time
		if err := rows.Scan(&h.DaycareID, &day, &h.Closed, &from, &to, &h.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan opening hours: %w", err)
		}
		h.Day = model.OpeningDay(day)
		h.From = timeOfDayFromPg(from)
		h.To = timeOfDayFromPg(to)
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opening hours: %w", err)
	}
	return entries, nil
}

// UpsertOpeningHours sets the schedule of one day
func (s *store) UpsertOpeningHours(ctx context.Context, h *model.OpeningHours) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO opening_hours (daycare_id, day, closed, from_time, to_time, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (daycare_id, day) DO UPDATE
		SET closed = EXCLUDED.closed,
			from_time = EXCLUDED.from_time,
			to_time = EXCLUDED.to_time,
			capacity = EXCLUDED.capacity
	`, h.DaycareID, int16(h.Day), h.Closed, timeOfDayToPg(h.From), timeOfDayToPg(h.To), h.Capacity)
	if err != nil {
		return fmt.Errorf("failed to upsert opening hours: %w", err)
	}
	return nil
}

func timeOfDayFromPg(t pgtype.Time) *model.TimeOfDay {
	if !t.Valid {
		return nil
	}
	return model.TimeOfDay(t.Microseconds / microsPerSecond).Ptr()
}

func timeOfDayToPg(t *model.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(*t) * microsPerSecond, Valid: true}
}
