package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/render"
	"github.com/dyluth/burrow/internal/watch"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		view   viewFlags
		wait   time.Duration
		output string
	)

	cmd := &cobra.Command{
		Use:   "watch ASSET",
		Short: "List an asset's subsets and refresh as new versions are published",
		Long: `List an asset's subsets, then keep listening for publishes. Every new
subset or version of the asset prints a line and the refreshed listing.

With --wait the command first waits for the asset itself to be published.
Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "default" && output != "jsonl" {
				return printer.Error(
					"invalid output format",
					"Unknown format: "+output,
					[]string{"Valid formats: default, jsonl"},
				)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			if wait > 0 {
				printer.Step("Waiting up to %v for asset '%s'...\n", wait, args[0])
				if _, err := watch.PollForAsset(ctx, client, args[0], wait); err != nil {
					return printer.Error("asset did not appear", err.Error(), nil)
				}
			}

			p, err := openAsset(ctx, client, cfg, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			show := func() error {
				if output == "jsonl" {
					return render.JSONL(out, p.Proxy)
				}
				_, err := render.Tree(out, p.Proxy, render.Options{Title: p.Asset().Name})
				return err
			}
			if err := show(); err != nil {
				return err
			}

			sub, err := client.SubscribePublishEvents(ctx)
			if err != nil {
				return fmt.Errorf("failed to subscribe to publish events: %w", err)
			}
			defer sub.Close()

			w, err := watch.New(ctx, client, p.Asset(), p, logging.New("watch"))
			if err != nil {
				return err
			}

			return w.Run(ctx, sub, func(doc *assetdb.Document, subset string) error {
				if output == "default" {
					fmt.Fprintf(out, "\n%s\n\n", watch.FormatEvent(doc, subset))
				}
				return show()
			})
		},
	}

	view.register(cmd)
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait this long for the asset to be published")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")
	return cmd
}
