package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deppfellow/adoption-agency/internal/database"
)

func newMigrateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.bootstrap(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), DefaultContextTimeout)
			defer cancel()

			if err := database.Migrate(ctx, a.server.Logger, a.server.DB); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			return opts.print(cmd.OutOrStdout(), map[string]string{
				"status":  "ok",
				"dialect": string(a.server.DB.Dialect()),
			})
		},
	}
}
