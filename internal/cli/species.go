package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/service"
)

func newSpeciesCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Create, list and change species",
	}

	cmd.AddCommand(newSpeciesCreateCommand(opts))
	cmd.AddCommand(newSpeciesListCommand(opts))
	cmd.AddCommand(newSpeciesGetCommand(opts))
	cmd.AddCommand(newSpeciesUpdateCommand(opts))
	cmd.AddCommand(newSpeciesIDCommand(opts, "activate", "Mark a species active",
		func(cmd *cobra.Command, svc *service.SpeciesService, id int64) (any, error) {
			return svc.ActivateSpecies(cmd.Context(), id)
		}))
	cmd.AddCommand(newSpeciesIDCommand(opts, "deactivate", "Mark a species inactive",
		func(cmd *cobra.Command, svc *service.SpeciesService, id int64) (any, error) {
			return svc.DeactivateSpecies(cmd.Context(), id)
		}))
	cmd.AddCommand(newSpeciesIDCommand(opts, "delete", "Permanently delete a species",
		func(cmd *cobra.Command, svc *service.SpeciesService, id int64) (any, error) {
			if err := svc.DeleteSpecies(cmd.Context(), id); err != nil {
				return nil, err
			}
			return map[string]any{"id": id, "deleted": true}, nil
		}))

	return cmd
}

// runSpecies opens the app, runs fn against the species service and prints
// its result as JSON.
func runSpecies(cmd *cobra.Command, opts *Options, fn func(svc *service.SpeciesService) (any, error)) error {
	a, err := opts.bootstrap(false)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := fn(a.services.Species)
	if err != nil {
		return err
	}
	return opts.print(cmd.OutOrStdout(), result)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid species id %q", arg)
	}
	return id, nil
}

func newSpeciesCreateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an active species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpecies(cmd, opts, func(svc *service.SpeciesService) (any, error) {
				return svc.CreateSpecies(cmd.Context(), args[0])
			})
		},
	}
}

type speciesListOptions struct {
	active string
	name   string
	search map[string]string
	ids    []int64
	query  string
}

func (o speciesListOptions) filter() (model.SpeciesFilter, error) {
	filter := model.SpeciesFilter{
		IDs:    o.ids,
		Search: o.query,
	}

	if o.active != "" {
		active, err := strconv.ParseBool(o.active)
		if err != nil {
			return filter, fmt.Errorf("invalid --active value %q", o.active)
		}
		filter.IsActive = &active
	}

	columns := make(map[string]string, len(o.search)+1)
	for column, value := range o.search {
		columns[column] = value
	}
	if o.name != "" {
		columns[model.SpeciesColumnName] = o.name
	}
	if len(columns) > 0 {
		filter.SearchByColumn = columns
	}

	return filter, nil
}

func newSpeciesListCommand(opts *Options) *cobra.Command {
	listOpts := speciesListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List species matching every given filter",
		Example: `  adoption species list --active true
  adoption species list --name cat --ids 1,3
  adoption species list --search name=pill -q dog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := listOpts.filter()
			if err != nil {
				return err
			}
			return runSpecies(cmd, opts, func(svc *service.SpeciesService) (any, error) {
				return svc.ReadSpecies(cmd.Context(), filter)
			})
		},
	}

	cmd.Flags().StringVar(&listOpts.active, "active", "", "only active (true) or inactive (false) species")
	cmd.Flags().StringVar(&listOpts.name, "name", "", "case-insensitive substring of the name")
	cmd.Flags().StringToStringVar(&listOpts.search, "search", nil, "column=substring filters")
	cmd.Flags().Int64SliceVar(&listOpts.ids, "ids", nil, "restrict to these ids")
	cmd.Flags().StringVarP(&listOpts.query, "query", "q", "", "free-text search over id and name")

	return cmd
}

func newSpeciesGetCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runSpecies(cmd, opts, func(svc *service.SpeciesService) (any, error) {
				species, err := svc.GetSpecies(cmd.Context(), id)
				if err != nil {
					return nil, err
				}
				if species == nil {
					return nil, errs.NewInvalidTarget(model.SpeciesTable, id)
				}
				return species, nil
			})
		},
	}
}

func newSpeciesUpdateCommand(opts *Options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a species",
		Long: `Rename a species. Without --name nothing changes and the current
row is printed; --name "" is rejected because a species must keep a name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			changes := model.SpeciesChanges{}
			if cmd.Flags().Changed("name") {
				changes.Name = &name
			}

			return runSpecies(cmd, opts, func(svc *service.SpeciesService) (any, error) {
				return svc.UpdateSpecies(cmd.Context(), id, changes)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")

	return cmd
}

// newSpeciesIDCommand builds the commands that take nothing but an id.
func newSpeciesIDCommand(
	opts *Options,
	use, short string,
	fn func(cmd *cobra.Command, svc *service.SpeciesService, id int64) (any, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runSpecies(cmd, opts, func(svc *service.SpeciesService) (any, error) {
				return fn(cmd, svc, id)
			})
		},
	}
}
