package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
)

// ProposeShiftCmd creates the proposeShift command
func ProposeShiftCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposeShift <staff_id> <daycare_id> <start> <end>",
		Short: "Add a shift to the roster (times as YYYY-MM-DDTHH:MM)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetString("replace")

			actor, err := app.Actor()
			if err != nil {
				return err
			}
			start, err := app.parseDateTime(args[2])
			if err != nil {
				return err
			}
			end, err := app.parseDateTime(args[3])
			if err != nil {
				return err
			}

			decision, err := services.CreateShift(app.Ctx, app.Database, app.Locker, app.Logger, &services.ShiftRequest{
				Actor:          actor,
				StaffID:        args[0],
				DaycareID:      args[1],
				Start:          start,
				End:            end,
				ExcludeShiftID: replace,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if decision.Updated {
				fmt.Fprintf(out, "\n✓ Shift updated\n\n")
			} else {
				fmt.Fprintf(out, "\n✓ Shift added to the roster\n\n")
			}
			printShift(cmd, app, decision.Shift)
			return nil
		},
	}

	cmd.Flags().String("replace", "", "ID of an existing shift this one replaces")

	return cmd
}

// DeactivateShiftCmd creates the deactivateShift command
func DeactivateShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivateShift <shift_id>",
		Short: "Remove a shift from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			shift, err := services.DeactivateShift(app.Ctx, app.Database, app.Logger, actor, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Shift %s deactivated\n\n", shift.ID)
			return nil
		},
	}
}

// ListRosterCmd creates the listRoster command
func ListRosterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listRoster <daycare_id> <from_date> <to_date>",
		Short: "List active shifts at a daycare between two dates (end exclusive)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := app.parseDate(args[1])
			if err != nil {
				return err
			}
			to, err := app.parseDate(args[2])
			if err != nil {
				return err
			}

			shifts, err := services.ListRoster(app.Ctx, app.Database, app.Logger, args[0], from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(shifts) == 0 {
				fmt.Fprintln(out, "No shifts in this range.")
				return nil
			}

			fmt.Fprintf(out, "\n%-12s  %-13s  %-20s  %s\n", "Day", "Time", "Staff", "Shift ID")
			fmt.Fprintln(out, "------------  -------------  --------------------  ------------------------------------")
			for i := range shifts {
				sh := &shifts[i]
				fmt.Fprintf(out, "%-12s  %-13s  %-20s  %s\n",
					sh.Day.Format(dateLayout),
					timeRange(sh.Start, sh.End, app.Location()),
					sh.StaffID,
					sh.ID)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// AddUnavailabilityCmd creates the addUnavailability command
func AddUnavailabilityCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addUnavailability <staff_id>",
		Short: "Record a weekday (--weekday 0-6, Monday=0) or a date (--date) a staff member cannot work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday, _ := cmd.Flags().GetInt("weekday")
			date, _ := cmd.Flags().GetString("date")
			reason, _ := cmd.Flags().GetString("reason")

			actor, err := app.Actor()
			if err != nil {
				return err
			}

			entry := model.Unavailability{StaffID: args[0], Reason: reason}
			switch {
			case cmd.Flags().Changed("weekday") && date != "":
				return fmt.Errorf("use either --weekday or --date, not both")
			case cmd.Flags().Changed("weekday"):
				day := model.UnavailabilityDay(weekday)
				entry.Mode = model.UnavailabilityRecurring
				entry.DayOfWeek = &day
			case date != "":
				d, err := app.parseDate(date)
				if err != nil {
					return err
				}
				entry.Mode = model.UnavailabilityOneOff
				entry.Date = &d
			default:
				return fmt.Errorf("one of --weekday or --date is required")
			}

			saved, err := services.AddUnavailability(app.Ctx, app.Database, app.Logger, actor, entry)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Unavailability recorded (ID: %s)\n\n", saved.ID)
			return nil
		},
	}

	cmd.Flags().Int("weekday", 0, "Recurring weekday, Monday=0 to Sunday=6")
	cmd.Flags().String("date", "", "One-off date (YYYY-MM-DD)")
	cmd.Flags().String("reason", "", "Reason shown in rejections")

	return cmd
}

// DeactivateUnavailabilityCmd creates the deactivateUnavailability command
func DeactivateUnavailabilityCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivateUnavailability <unavailability_id>",
		Short: "Withdraw an unavailability record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if err := services.DeactivateUnavailability(app.Ctx, app.Database, app.Logger, actor, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Unavailability %s withdrawn\n\n", args[0])
			return nil
		},
	}
}

// PublishRosterCmd creates the publishRoster command
func PublishRosterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishRoster <daycare_id> [week_date]",
		Short: "Publish a week of a daycare's roster to Google Sheets",
		Long:  "Publish the week containing week_date (default: this week) to the roster sheet. Notes and custom columns in an existing tab are kept.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			week := time.Now()
			if len(args) > 1 {
				var err error
				if week, err = app.parseDate(args[1]); err != nil {
					return err
				}
			}

			app.Logger.Debug("publishRoster command", zap.String("daycare_id", args[0]), zap.Time("week", week))

			actor, err := app.Actor()
			if err != nil {
				return err
			}
			publisher, err := app.NewPublisher()
			if err != nil {
				return fmt.Errorf("failed to create sheets client: %w", err)
			}

			published, err := services.PublishRoster(app.Ctx, app.Database, publisher, app.Cfg, app.Logger, actor, args[0], week)
			if err != nil {
				return fmt.Errorf("failed to publish roster: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✅ Roster Published Successfully\n\n")
			fmt.Fprintf(out, "Daycare:    %s\n", published.DaycareName)
			fmt.Fprintf(out, "Week Start: %s\n", published.WeekStart.Format(dateLayout))
			fmt.Fprintf(out, "Sheet ID:   %s\n\n", app.Cfg.Sheets.RosterSheetID)

			for _, row := range published.Rows {
				staff := "—"
				if len(row.Shifts) > 0 {
					staff = fmt.Sprintf("%d shifts", len(row.Shifts))
				}
				fmt.Fprintf(out, "%-15s  %s\n", row.Date, staff)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func printShift(cmd *cobra.Command, app *AppContext, sh *model.StaffShift) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Shift ID: %s\n", sh.ID)
	fmt.Fprintf(out, "Staff:    %s\n", sh.StaffID)
	fmt.Fprintf(out, "Daycare:  %s\n", sh.DaycareID)
	fmt.Fprintf(out, "Day:      %s\n", sh.Day.Format(dateLayout))
	fmt.Fprintf(out, "Time:     %s\n\n", timeRange(sh.Start, sh.End, app.Location()))
}

func timeRange(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + "-" + end.In(loc).Format("15:04")
}
