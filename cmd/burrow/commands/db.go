package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dyluth/burrow/internal/dbserver"
	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/printer"
	"github.com/spf13/cobra"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local asset database container",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newDBUpCmd(opts), newDBDownCmd(opts), newDBStatusCmd(opts), newDBListCmd())
	return cmd
}

func dockerClient(ctx context.Context) (dbserver.DockerAPI, func(), error) {
	cli, err := dbserver.NewClient(ctx)
	if err != nil {
		return nil, nil, printer.Error("Docker not available", err.Error(), nil)
	}
	return cli, func() { cli.Close() }, nil
}

func newDBUpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Start the project's Redis container",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			cli, closeCli, err := dockerClient(ctx)
			if err != nil {
				return err
			}
			defer closeCli()

			printer.Step("Starting asset database for project '%s'...\n", cfg.Project)
			inst, err := dbserver.Up(ctx, cli, dbserver.UpOptions{
				Project: cfg.Project,
				Image:   cfg.Redis.Image,
				Port:    cfg.Redis.Port,
				Logger:  logging.New("dbserver"),
			})
			if err != nil {
				return printer.Error("failed to start asset database", err.Error(), nil)
			}

			printer.Success("Asset database running: %s (port %d)\n", inst.Name, inst.Port)
			if inst.Port != cfg.Redis.Port {
				printer.Warning("Port %d was taken. Point burrow at the new port:\n", cfg.Redis.Port)
				printer.Info("  export BURROW_REDIS_URL=%s\n", inst.URL())
			}
			return nil
		},
	}
}

func newDBDownCmd(opts *rootOptions) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the project's Redis container",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			cli, closeCli, err := dockerClient(ctx)
			if err != nil {
				return err
			}
			defer closeCli()

			n, err := dbserver.Down(ctx, cli, cfg.Project, purge)
			if errors.Is(err, dbserver.ErrNotFound) {
				printer.Warning("No asset database running for project '%s'\n", cfg.Project)
				return nil
			}
			if err != nil {
				return printer.Error("failed to stop asset database", err.Error(), nil)
			}

			printer.Success("Removed %d container(s) for project '%s'\n", n, cfg.Project)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also remove the container's data volumes")
	return cmd
}

func newDBStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the project's Redis container",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			cli, closeCli, err := dockerClient(ctx)
			if err != nil {
				return err
			}
			defer closeCli()

			inst, err := dbserver.Find(ctx, cli, cfg.Project)
			if errors.Is(err, dbserver.ErrNotFound) {
				return printer.Error(
					fmt.Sprintf("no asset database for project '%s'", cfg.Project),
					"No burrow Redis container exists for this project.",
					[]string{"Start one:\n  burrow db up"},
				)
			}
			if err != nil {
				return err
			}

			printer.Info("Project:   %s\n", inst.Project)
			printer.Info("Container: %s\n", inst.Name)
			printer.Info("Status:    %s\n", inst.Status)
			printer.Info("URL:       %s\n", inst.URL())
			return nil
		},
	}
}

func newDBListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the Redis containers of every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cli, closeCli, err := dockerClient(ctx)
			if err != nil {
				return err
			}
			defer closeCli()

			instances, err := dbserver.List(ctx, cli)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(instances)
			}

			if len(instances) == 0 {
				printer.Info("No asset databases found\n")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROJECT\tSTATUS\tPORT\tCONTAINER")
			for _, inst := range instances {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", inst.Project, inst.Status, inst.Port, inst.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
