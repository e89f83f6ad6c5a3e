package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dyluth/burrow/internal/browser"
	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/watch"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "browse ASSET",
		Short: "Browse an asset's subsets interactively",
		Long: `Open an interactive view of an asset's subsets.

Keys:
  ↑/↓ or j/k  move
  enter       fold or unfold a group
  g           cycle the group-by column
  1-9         show or hide a family
  e           switch the selected subset to another version
  r           reload
  q           quit

The view reloads by itself when new subsets or versions are published.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

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

			program := tea.NewProgram(browser.New(ctx, p), tea.WithAltScreen(),
				tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))

			sub, err := client.SubscribePublishEvents(ctx)
			if err != nil {
				return fmt.Errorf("failed to subscribe to publish events: %w", err)
			}
			defer sub.Close()

			w, err := watch.New(ctx, client, p.Asset(), browser.ProgramReloader{Program: program}, logging.New("watch"))
			if err != nil {
				return err
			}
			go func() {
				_ = w.Run(ctx, sub, func(doc *assetdb.Document, subset string) error {
					program.Send(browser.StatusMsg(watch.FormatEvent(doc, subset)))
					return nil
				})
			}()

			_, err = program.Run()
			return err
		},
	}

	view.register(cmd)
	return cmd
}
