package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/export"
)

// ExportBookings writes the bookings of a daycare that intersect [from, to)
// to an XLSX workbook. Staff associated with the daycare only.
func ExportBookings(ctx context.Context, database db.BookingReader, logger *zap.Logger, actor model.Actor, daycareID string, from, to time.Time, loc *time.Location, w io.Writer) (int, error) {
	staff, err := requireStaff(actor, "export bookings")
	if err != nil {
		return 0, err
	}
	if !staff.CanManage(daycareID) {
		return 0, model.Reject(model.KindAssociation, "staff %s is not associated with daycare %s", staff.ID, daycareID)
	}
	if !from.Before(to) {
		return 0, model.Reject(model.KindInvalid, "export range start %s must be before end %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	logger.Debug("Exporting bookings",
		zap.String("daycare_id", daycareID),
		zap.Time("from", from),
		zap.Time("to", to))

	bookings, err := database.GetDaycareBookings(ctx, daycareID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch bookings: %w", err)
	}

	wb, err := export.NewBookingsWorkbook(loc)
	if err != nil {
		return 0, fmt.Errorf("failed to create workbook: %w", err)
	}
	defer wb.Close()

	if err := wb.Add(bookings...); err != nil {
		return 0, err
	}
	if _, err := wb.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Info("Bookings exported", zap.String("daycare_id", daycareID), zap.Int("bookings", wb.Rows()))
	return wb.Rows(), nil
}
