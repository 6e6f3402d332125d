package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/cmd/cli/commands"
	"github.com/jakechorley/daycare-scheduler/internal/config"
	"github.com/jakechorley/daycare-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
	"github.com/jakechorley/daycare-scheduler/pkg/metrics"
	"github.com/jakechorley/daycare-scheduler/pkg/postgres"
	"github.com/jakechorley/daycare-scheduler/pkg/utils/logging"
)

var (
	env     string
	app     = &commands.AppContext{Ctx: context.Background()}
	closers []func()
)

func main() {
	// A missing .env file is fine; the variables may come from the shell
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "daycare",
		Short:         "Daycare scheduler CLI - Manage rosters, bookings and waitlists",
		Long:          `A CLI tool for rostering daycare staff, admitting pet bookings against capacity and running the waitlist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&app.StaffID, "staff", "", "Act as this staff member")
	rootCmd.PersistentFlags().StringVar(&app.CustomerID, "customer", "", "Act as this customer")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.ProposeShiftCmd(app))
	rootCmd.AddCommand(commands.DeactivateShiftCmd(app))
	rootCmd.AddCommand(commands.ListRosterCmd(app))
	rootCmd.AddCommand(commands.AddUnavailabilityCmd(app))
	rootCmd.AddCommand(commands.DeactivateUnavailabilityCmd(app))
	rootCmd.AddCommand(commands.PublishRosterCmd(app))
	rootCmd.AddCommand(commands.BookCmd(app))
	rootCmd.AddCommand(commands.CancelBookingCmd(app))
	rootCmd.AddCommand(commands.CheckInCmd(app))
	rootCmd.AddCommand(commands.WaitlistCmd(app))
	rootCmd.AddCommand(commands.ExportBookingsCmd(app))
	rootCmd.AddCommand(commands.SetHoursCmd(app))
	rootCmd.AddCommand(commands.BlacklistCmd(app))
	rootCmd.AddCommand(commands.LiftBlacklistCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// initApp sets up logger, config, database and the optional redis lock
func initApp() error {
	var err error

	// Initialize logger
	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Debug("Starting application", zap.String("environment", env))

	// Load configuration
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("timezone", app.Cfg.Timezone))

	metrics.Register()

	// Connect to the database
	database, err := postgres.NewDB(app.Ctx, app.Cfg.Database.URL, app.Cfg.Database.MaxTxRetries, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Database = database
	app.Migrator = database
	closers = append(closers, database.Close)
	app.Logger.Debug("Database initialized successfully")

	// Without redis the database's serializable transactions are the only guard
	if app.Cfg.Redis.Addr != "" {
		locker, err := lock.NewRedisLock(app.Ctx, app.Cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("failed to initialize redis lock: %w", err)
		}
		app.Locker = locker
		closers = append(closers, func() {
			if err := locker.Close(); err != nil {
				app.Logger.Warn("Failed to close redis lock", zap.Error(err))
			}
		})
		app.Logger.Debug("Redis lock initialized", zap.String("addr", app.Cfg.Redis.Addr))
	}

	app.NewPublisher = func() (services.RosterPublisher, error) {
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, env, app.Logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	return nil
}
