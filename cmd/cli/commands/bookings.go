package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/admission"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
	"github.com/jakechorley/daycare-scheduler/pkg/core/waitlist"
)

// BookCmd creates the book command
func BookCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book <customer_id> <pet_id> <daycare_id> <start> <end>",
		Short: "Book a pet into a daycare (times as YYYY-MM-DDTHH:MM)",
		Long:  "Book a pet into a daycare. A full day puts the booking on the waitlist. With --recurring the same slot is also booked for the following four weeks.",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, _ := cmd.Flags().GetStringSlice("products")
			recurring, _ := cmd.Flags().GetBool("recurring")

			actor, err := app.Actor()
			if err != nil {
				return err
			}
			start, err := app.parseDateTime(args[3])
			if err != nil {
				return err
			}
			end, err := app.parseDateTime(args[4])
			if err != nil {
				return err
			}

			decision, err := services.CreateBooking(app.Ctx, app.Database, app.Locker, app.Logger, &services.BookingRequest{
				Actor:      actor,
				CustomerID: args[0],
				PetID:      args[1],
				DaycareID:  args[2],
				Start:      start,
				End:        end,
				ProductIDs: products,
				Recurrence: recurring,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printSlot(cmd, app, decision.SlotResult)
			for _, s := range decision.Siblings {
				printSlot(cmd, app, s)
			}
			for _, s := range decision.Skipped {
				fmt.Fprintf(out, "✗ %s  skipped: %s\n", s.Start.In(app.Location()).Format(dateLayout), s.Reason.Detail)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringSlice("products", nil, "Product IDs to add to the booking")
	cmd.Flags().Bool("recurring", false, "Also book the same slot for the next four weeks")

	return cmd
}

func printSlot(cmd *cobra.Command, app *AppContext, slot services.SlotResult) {
	out := cmd.OutOrStdout()
	b := slot.Booking
	day := b.Start.In(app.Location()).Format(dateLayout)
	span := timeRange(b.Start, b.End, app.Location())

	if slot.Outcome == admission.OutcomeWaitlisted {
		fmt.Fprintf(out, "⏳ %s %s  %s  WAITLISTED (entry %s)\n", day, span, b.ID, slot.WaitlistEntryID)
		if slot.Advisory != "" {
			fmt.Fprintf(out, "   %s\n", slot.Advisory)
		}
		return
	}
	fmt.Fprintf(out, "✓ %s %s  %s  %s\n", day, span, b.ID, b.Status())
}

// CancelBookingCmd creates the cancelBooking command
func CancelBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelBooking <booking_id>",
		Short: "Cancel a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			booking, err := services.CancelBooking(app.Ctx, app.Database, app.Logger, actor, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking %s cancelled\n\n", booking.ID)
			return nil
		},
	}
}

// CheckInCmd creates the checkIn command
func CheckInCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkIn <booking_id>",
		Short: "Record that a booked pet has arrived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			booking, err := services.CheckIn(app.Ctx, app.Database, app.Logger, actor, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking %s checked in\n\n", booking.ID)
			return nil
		},
	}
}

// WaitlistCmd creates the waitlist command
func WaitlistCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:       "waitlist <notify|accept|reject|uninvite> <entry_id>",
		Short:     "Move a waitlist entry through notify, accept, reject or uninvite",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(waitlist.ActionNotify), string(waitlist.ActionAccept), string(waitlist.ActionReject), string(waitlist.ActionUninvite)},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := waitlist.ParseAction(args[0])
			if err != nil {
				return err
			}
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			decision, err := services.WaitlistAction(app.Ctx, app.Database, app.Locker, app.Logger, args[1], action, actor)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Waitlist entry %s: %s → %s\n", decision.Entry.ID, decision.From, decision.To)
			fmt.Fprintf(out, "Booking %s is now %s\n\n", decision.Booking.ID, decision.Booking.Status())
			return nil
		},
	}
}

// ExportBookingsCmd creates the exportBookings command
func ExportBookingsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportBookings <daycare_id> <from_date> <to_date>",
		Short: "Export a daycare's bookings between two dates to an Excel workbook",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("out")

			actor, err := app.Actor()
			if err != nil {
				return err
			}
			from, err := app.parseDate(args[1])
			if err != nil {
				return err
			}
			to, err := app.parseDate(args[2])
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("bookings-%s-%s.xlsx", args[0], args[1])
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer file.Close()

			count, err := services.ExportBookings(app.Ctx, app.Database, app.Logger, actor, args[0], from, to, app.Location(), file)
			if err != nil {
				_ = os.Remove(output)
				return err
			}

			app.Logger.Debug("Export written", zap.String("path", output), zap.Int("rows", count))
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Exported %d bookings to %s\n\n", count, output)
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Output path (default bookings-<daycare>-<from>.xlsx)")

	return cmd
}
