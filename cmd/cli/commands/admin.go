package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
)

// SetHoursCmd creates the setHours command
func SetHoursCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setHours <daycare_id> <day>",
		Short: "Set a daycare's opening hours and capacity for a weekday (Monday=1 to Sunday=7)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			closed, _ := cmd.Flags().GetBool("closed")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			capacity, _ := cmd.Flags().GetInt("capacity")

			day, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("day must be a number: %w", err)
			}
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			entry := model.OpeningHours{
				DaycareID: args[0],
				Day:       model.OpeningDay(day),
				Closed:    closed,
				Capacity:  capacity,
			}
			if !closed {
				if from == "" || to == "" {
					return fmt.Errorf("--from and --to are required unless --closed is set")
				}
				f, err := model.ParseTimeOfDay(from)
				if err != nil {
					return err
				}
				t, err := model.ParseTimeOfDay(to)
				if err != nil {
					return err
				}
				entry.From, entry.To = f.Ptr(), t.Ptr()
			}

			saved, err := services.SetOpeningHours(app.Ctx, app.Database, app.Logger, actor, entry)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if saved.Closed {
				fmt.Fprintf(out, "\n✓ %s: closed on %s\n\n", saved.DaycareID, saved.Day)
			} else {
				fmt.Fprintf(out, "\n✓ %s: open %s %s-%s, capacity %d\n\n", saved.DaycareID, saved.Day, saved.From, saved.To, saved.Capacity)
			}
			return nil
		},
	}

	cmd.Flags().Bool("closed", false, "Mark the day as closed")
	cmd.Flags().String("from", "", "Opening time (HH:MM)")
	cmd.Flags().String("to", "", "Closing time (HH:MM)")
	cmd.Flags().Int("capacity", 0, "Pets admitted at the same time")

	return cmd
}

// BlacklistCmd creates the blacklist command
func BlacklistCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist <daycare_id> <pet_id>",
		Short: "Ban a pet from a daycare",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")

			actor, err := app.Actor()
			if err != nil {
				return err
			}
			entry, err := services.BlacklistPet(app.Ctx, app.Database, app.Logger, actor, args[1], args[0], reason)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Pet %s blacklisted at %s (ID: %s)\n\n", entry.PetID, entry.DaycareID, entry.ID)
			return nil
		},
	}

	cmd.Flags().String("reason", "", "Reason shown when bookings are refused")

	return cmd
}

// LiftBlacklistCmd creates the liftBlacklist command
func LiftBlacklistCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "liftBlacklist <entry_id>",
		Short: "Lift a pet's blacklisting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if err := services.LiftBlacklist(app.Ctx, app.Database, app.Logger, actor, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Blacklist entry %s lifted\n\n", args[0])
			return nil
		},
	}
}
