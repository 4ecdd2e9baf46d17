package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deppfellow/adoption-agency/internal/database"
	"github.com/deppfellow/adoption-agency/internal/handler"
	"github.com/deppfellow/adoption-agency/internal/router"
)

// DefaultContextTimeout bounds startup migrations and graceful shutdown.
const DefaultContextTimeout = 30 * time.Second

func newServeCommand(opts *Options) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the species HTTP API until SIGINT or SIGTERM.

Pending migrations are applied on startup unless --skip-migrate is set.
In-flight requests get up to 30 seconds to finish on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, !skipMigrate)
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")

	return cmd
}

func runServe(parent context.Context, opts *Options, migrate bool) error {
	a, err := opts.bootstrap(true)
	if err != nil {
		return err
	}
	s := a.server

	if migrate {
		migrateCtx, cancel := context.WithTimeout(parent, DefaultContextTimeout)
		err := database.Migrate(migrateCtx, s.Logger, s.DB)
		cancel()
		if err != nil {
			a.close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	s.SetupHTTPServer(router.NewRouter(s, handler.NewHandlers(s, a.services)))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startErr := make(chan error, 1)
	go func() {
		startErr <- s.Start()
	}()

	select {
	case err := <-startErr:
		a.close()
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.Logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultContextTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.Logger.Info().Msg("server exited properly")
	return nil
}
