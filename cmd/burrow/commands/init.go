package commands

import (
	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/scaffold"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var (
		force bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "init [PROJECT]",
		Short: "Create a burrow.yml in the current directory",
		Long: `Create a starter burrow.yml for a project.

The project name namespaces every key in the asset database, so projects can
share one Redis server. It must be lowercase alphanumeric with '-' or '_'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := opts.project()
			if len(args) == 1 {
				project = args[0]
			}
			if project == "" {
				return printer.Error(
					"project name required",
					"burrow init needs the name of the project to configure.",
					[]string{"Run:\n  burrow init <project>"},
				)
			}

			path, err := scaffold.Initialize(scaffold.Options{
				Project: project,
				Port:    port,
				Force:   force,
			})
			if err != nil {
				return printer.Error("initialization failed", err.Error(), nil)
			}

			scaffold.PrintSuccess(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing burrow.yml")
	cmd.Flags().IntVar(&port, "port", 6379, "Host port for the local Redis database")
	return cmd
}
