package sheetsclient

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateColumn  = "Date"
	notesColumn = "Notes"
	staffPrefix = "Staff "
	dateLayout  = "Mon Jan 02 2006"
)

// PublishedRosterRow is one day of the published roster
type PublishedRosterRow struct {
	Date   string   // Format: "Mon Jan 02 2006"
	Shifts []string // "Name (09:00-17:00)", ordered by start time
}

// PublishedRoster is one week of a daycare's roster
type PublishedRoster struct {
	DaycareName string
	WeekStart   time.Time
	Rows        []PublishedRosterRow
}

// PublishRoster publishes a week of roster to Google Sheets.
// If the tab doesn't exist it is created as "<daycare> Mon Jan 06 2025 - Sun Jan 12 2025".
// If it exists the Date and Staff columns are overwritten while Notes and any
// other custom columns are preserved.
func (c *Client) PublishRoster(spreadsheetID string, roster *PublishedRoster) error {
	tabTitle := rosterTabTitle(roster.DaycareName, roster.WeekStart)

	exists, err := c.tabExists(spreadsheetID, tabTitle)
	if err != nil {
		return err
	}

	var existing [][]interface{}
	if exists {
		existing, err = c.readTab(spreadsheetID, tabTitle)
		if err != nil {
			return fmt.Errorf("failed to read existing tab data: %w", err)
		}
	} else if _, err := c.addTab(spreadsheetID, tabTitle); err != nil {
		return fmt.Errorf("failed to create tab: %w", err)
	}

	values, err := buildRosterValues(roster, existing)
	if err != nil {
		return err
	}
	return c.writeTab(spreadsheetID, tabTitle, values)
}

// rosterTabTitle names the tab of one week
func rosterTabTitle(daycareName string, weekStart time.Time) string {
	end := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("%s %s - %s", daycareName, weekStart.Format(dateLayout), end.Format(dateLayout))
}

// buildRosterValues lays out the roster below a 2-row gap. existing is the
// current tab content (nil for a new tab); its Notes and extra columns are kept.
func buildRosterValues(roster *PublishedRoster, existing [][]interface{}) ([][]interface{}, error) {
	maxStaff := 0
	for _, row := range roster.Rows {
		if len(row.Shifts) > maxStaff {
			maxStaff = len(row.Shifts)
		}
	}

	// Columns to carry over from the existing tab, by header name
	var extraHeaders []string
	extraValues := map[string][]interface{}{}
	if existing != nil {
		if len(existing) < 3 {
			return nil, fmt.Errorf("existing tab has insufficient rows (expected at least 3 rows with 2-row gap)")
		}
		header := existing[2]
		if findColumnIndex(header, dateColumn) == -1 {
			return nil, fmt.Errorf("existing tab missing required column %q", dateColumn)
		}
		if n := len(findStaffColumns(header)); n > maxStaff {
			maxStaff = n
		}
		for i, cell := range header {
			name, ok := cell.(string)
			if !ok || name == "" || name == dateColumn || strings.HasPrefix(name, staffPrefix) {
				continue
			}
			extraHeaders = append(extraHeaders, name)
			column := make([]interface{}, 0, len(existing)-3)
			for _, row := range existing[3:] {
				if i < len(row) {
					column = append(column, row[i])
				} else {
					column = append(column, "")
				}
			}
			extraValues[name] = column
		}
	} else {
		extraHeaders = []string{notesColumn}
	}

	header := []interface{}{dateColumn}
	for i := 0; i < maxStaff; i++ {
		header = append(header, fmt.Sprintf("%s%d", staffPrefix, i+1))
	}
	for _, name := range extraHeaders {
		header = append(header, name)
	}

	values := [][]interface{}{
		{}, // Row 1 (empty)
		{}, // Row 2 (empty)
		header,
	}

	for rowIdx, row := range roster.Rows {
		sheetRow := []interface{}{row.Date}
		for i := 0; i < maxStaff; i++ {
			if i < len(row.Shifts) {
				sheetRow = append(sheetRow, row.Shifts[i])
			} else {
				sheetRow = append(sheetRow, "")
			}
		}
		for _, name := range extraHeaders {
			if column := extraValues[name]; rowIdx < len(column) {
				sheetRow = append(sheetRow, column[rowIdx])
			} else {
				sheetRow = append(sheetRow, "")
			}
		}
		values = append(values, sheetRow)
	}

	return values, nil
}

// findColumnIndex finds the index of a column by its header name
func findColumnIndex(header []interface{}, columnName string) int {
	for i, cell := range header {
		if str, ok := cell.(string); ok && str == columnName {
			return i
		}
	}
	return -1
}

// findStaffColumns finds all staff column indices in order
func findStaffColumns(header []interface{}) []int {
	var cols []int
	for i, cell := range header {
		if str, ok := cell.(string); ok && strings.HasPrefix(str, staffPrefix) {
			cols = append(cols, i)
		}
	}
	return cols
}
