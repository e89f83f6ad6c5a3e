package commands

import (
	"context"

	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/render"
	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		view      viewFlags
		output    string
		collapsed []string
	)

	cmd := &cobra.Command{
		Use:     "ls ASSET",
		Aliases: []string{"list"},
		Short:   "List an asset's subsets, grouped",
		Long: `List the subsets of an asset at their latest versions, grouped by a column.

The asset may be given by name, full ID or a unique ID prefix.

Output Formats:
  default - Grouped table
  jsonl   - One JSON object per subset with raw values and its group key

Examples:
  # Group by family (the default)
  burrow ls hero

  # Group by author, only animation caches
  burrow ls hero --group-by author --families 'avalon.animation,avalon.pointcache'

  # Pipe to jq
  burrow ls hero -o jsonl | jq 'select(.group=="avalon.model") | .subset'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "default" && output != "jsonl" {
				return printer.Error(
					"invalid output format",
					"Unknown format: "+output,
					[]string{"Valid formats: default, jsonl"},
				)
			}

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

			if output == "jsonl" {
				return render.JSONL(cmd.OutOrStdout(), p.Proxy)
			}

			folded := make(map[string]bool, len(collapsed))
			for _, key := range collapsed {
				folded[key] = true
			}
			_, err = render.Tree(cmd.OutOrStdout(), p.Proxy, render.Options{
				Title:     p.Asset().Name,
				Collapsed: folded,
			})
			return err
		},
	}

	view.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")
	cmd.Flags().StringSliceVar(&collapsed, "collapse", nil, "Group keys to show folded")
	return cmd
}
