package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/httpapi"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Cfg.HTTP
			server := &http.Server{
				Addr:         cfg.Address,
				Handler:      httpapi.NewServer(app.Database, app.Locker, app.Logger, app.Location()).Routes(),
				ReadTimeout:  cfg.Timeout,
				WriteTimeout: cfg.Timeout,
				IdleTimeout:  cfg.IdleTimeout,
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serverErr := make(chan error, 1)
			go func() {
				app.Logger.Info("Starting HTTP server", zap.String("addr", cfg.Address))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
					return
				}
				serverErr <- nil
			}()

			select {
			case <-ctx.Done():
				app.Logger.Info("Received shutdown signal")
			case err := <-serverErr:
				if err != nil {
					app.Logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			app.Logger.Info("Shutting down HTTP server", zap.Duration("timeout", cfg.ShutdownTimeout))
			if err := server.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("Server shutdown failed", zap.Error(err))
				return err
			}
			app.Logger.Info("Server shutdown complete")
			return nil
		},
	}
}
