// Package cli implements the adoption command line: the HTTP server, the
// migration runner and one-shot species commands that print JSON.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/deppfellow/adoption-agency/internal/config"
	"github.com/deppfellow/adoption-agency/internal/lib/utils"
	"github.com/deppfellow/adoption-agency/internal/logger"
	"github.com/deppfellow/adoption-agency/internal/repository"
	"github.com/deppfellow/adoption-agency/internal/server"
	"github.com/deppfellow/adoption-agency/internal/service"
)

// closeTimeout bounds releasing the database after a one-shot command.
const closeTimeout = 10 * time.Second

// Options holds state shared by every command.
type Options struct {
	// Pretty indents JSON output.
	Pretty bool

	// LoadConfig reads the configuration. Tests replace it.
	LoadConfig func() (*config.Config, error)
}

// DefaultOptions reads configuration from the environment.
func DefaultOptions() *Options {
	return &Options{LoadConfig: config.LoadConfig}
}

// NewRootCommand creates the root command of the adoption CLI.
func NewRootCommand(opts *Options) *cobra.Command {
	if opts == nil {
		opts = DefaultOptions()
	}

	cmd := &cobra.Command{
		Use:   "adoption",
		Short: "Adoption agency species service",
		Long: `Manage the species catalogue of the adoption agency.

Configuration is read from ADOPTION_* environment variables (and a .env
file when present). Run "adoption migrate" once before the other commands
on a fresh database.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", false, "indent JSON output")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSpeciesCommand(opts))

	return cmd
}

// app is the wired dependency graph a command works with.
type app struct {
	server   *server.Server
	services *service.Services
}

// bootstrap loads config and opens the database. Long-running commands log
// to stdout like the server always has; one-shot commands log to stderr.
func (o *Options) bootstrap(longRunning bool) (*app, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerService := logger.NewLoggerService(cfg.Observability)

	log := logger.NewCLILogger(cfg.Observability, loggerService)
	if longRunning {
		log = logger.NewLoggerWithService(cfg.Observability, loggerService)
	}

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		loggerService.Shutdown()
		return nil, err
	}

	services, err := service.NewServices(srv, repository.NewRepositories(srv))
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return nil, fmt.Errorf("could not create services: %w", err)
	}

	return &app{server: srv, services: services}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.server.Logger.Error().Err(err).Msg("failed to release resources")
	}
}

func (o *Options) print(w io.Writer, v any) error {
	return utils.WriteJSON(w, v, o.Pretty)
}
