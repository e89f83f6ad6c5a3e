package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/render"
	"github.com/dyluth/burrow/internal/subsets"
	"github.com/spf13/cobra"
)

func newSetVersionCmd(opts *rootOptions) *cobra.Command {
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "set-version ASSET SUBSET VERSION",
		Short: "Show a subset at another of its versions",
		Long: `Load a subset at a specific version and list the asset with that row
updated: frames, duration, handles, step, author and time all follow the
chosen version. Nothing is written to the asset database.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			view.apply(cmd, cfg)

			client, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			p, err := openAsset(ctx, client, cfg, args[0])
			if err != nil {
				return err
			}

			rec, err := p.SetVersion(ctx, args[1], args[2])
			if errors.Is(err, subsets.ErrVersionNotFound) {
				return printer.Error(
					"version not found",
					fmt.Sprintf("Subset '%s' has no version '%s'.", args[1], args[2]),
					[]string{fmt.Sprintf("List its versions:\n  burrow history %s --subset %s", args[0], args[1])},
				)
			}
			if err != nil {
				return printer.Error("cannot change version", err.Error(), nil)
			}

			printer.Success("%s now at %s (frames %s)\n\n", rec.Subset, rec.Version, rec.Frames)
			_, err = render.Tree(cmd.OutOrStdout(), p.Proxy, render.Options{Title: p.Asset().Name})
			return err
		},
	}

	view.register(cmd)
	return cmd
}
