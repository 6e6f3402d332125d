package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

const (
	bookingsSheet = "Bookings"
	timeLayout    = "2006-01-02 15:04"
)

var bookingColumns = []string{
	"Booking ID", "Customer ID", "Pet ID", "Start", "End", "Status",
	"Active", "Checked In", "Recurring", "Products", "Created",
}

// BookingsWorkbook accumulates bookings into a single-sheet XLSX workbook
type BookingsWorkbook struct {
	file *excelize.File
	loc  *time.Location
	row  int
}

// NewBookingsWorkbook creates a workbook with a bold header row. Times are written in loc.
func NewBookingsWorkbook(loc *time.Location) (*BookingsWorkbook, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	w := &BookingsWorkbook{file: f, loc: loc, row: 1}
	header := make([]interface{}, len(bookingColumns))
	for i, c := range bookingColumns {
		header[i] = c
	}
	if err := w.writeRow(header); err != nil {
		_ = f.Close()
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(bookingColumns), 1)
		_ = f.SetCellStyle(bookingsSheet, "A1", endCell, style)
	}

	return w, nil
}

// Add appends one row per booking
func (w *BookingsWorkbook) Add(bookings ...model.Booking) error {
	for i := range bookings {
		b := &bookings[i]
		err := w.writeRow([]interface{}{
			b.ID,
			b.CustomerID,
			b.PetID,
			b.Start.In(w.loc).Format(timeLayout),
			b.End.In(w.loc).Format(timeLayout),
			string(b.Status()),
			b.Active,
			b.CheckedIn,
			b.Recurrence,
			strings.Join(b.ProductIDs, ", "),
			b.CreatedAt.In(w.loc).Format(timeLayout),
		})
		if err != nil {
			return fmt.Errorf("failed to write booking %s: %w", b.ID, err)
		}
	}
	return nil
}

// Rows returns the number of bookings written
func (w *BookingsWorkbook) Rows() int {
	return w.row - 2
}

// WriteTo writes the workbook to out
func (w *BookingsWorkbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// Close releases the workbook
func (w *BookingsWorkbook) Close() error {
	return w.file.Close()
}

func (w *BookingsWorkbook) writeRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(bookingsSheet, cell, &values); err != nil {
		return err
	}
	w.row++
	return nil
}
