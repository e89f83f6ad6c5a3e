package commands

import (
	"context"
	"errors"

	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [ASSET]",
		Short: "Publish a demo asset with a handful of subsets",
		Long: `Publish a demo asset (default name "hero") with model, rig, animation,
point cache, look and unfamilied subsets, some with several versions.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			name := "hero"
			if len(args) == 1 {
				name = args[0]
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			asset, err := assetdb.PublishDemo(ctx, client, name)
			if errors.Is(err, assetdb.ErrDuplicateName) {
				return printer.Error(
					"asset already exists",
					err.Error(),
					[]string{"Seed under another name:\n  burrow seed <name>"},
				)
			}
			if err != nil {
				return err
			}

			printer.Success("Published demo asset '%s' (%s)\n", asset.Name, asset.ID)
			return nil
		},
	}
}
