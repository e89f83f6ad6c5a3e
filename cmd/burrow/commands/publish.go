package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/burrow/internal/filter"
	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/resolver"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/spf13/cobra"
)

func newPublishCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish assets, subsets and versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newPublishAssetCmd(opts),
		newPublishSubsetCmd(opts),
		newPublishVersionCmd(opts),
	)
	return cmd
}

// publishDoc connects, runs build to produce the document, and publishes it.
func publishDoc(cmd *cobra.Command, opts *rootOptions, build func(ctx context.Context, repo assetdb.Repository) (*assetdb.Document, error)) error {
	ctx := context.Background()
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	doc, err := build(ctx, client)
	if err != nil {
		return err
	}

	if err := client.Publish(ctx, doc); err != nil {
		if errors.Is(err, assetdb.ErrDuplicateName) {
			return printer.Error(
				fmt.Sprintf("%s '%s' already published", doc.Type, doc.Name),
				"Published documents are immutable and names are unique among siblings.",
				nil,
			)
		}
		return printer.Error(fmt.Sprintf("failed to publish %s", doc.Type), err.Error(), nil)
	}

	printer.Success("Published %s '%s' (%s)\n", doc.Type, doc.Name, doc.ID)
	return nil
}

func newPublishAssetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "asset NAME",
		Short: "Publish a new asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishDoc(cmd, opts, func(context.Context, assetdb.Repository) (*assetdb.Document, error) {
				return &assetdb.Document{ID: assetdb.NewID(), Type: assetdb.TypeAsset, Name: args[0]}, nil
			})
		},
	}
}

func newPublishSubsetCmd(opts *rootOptions) *cobra.Command {
	var extra map[string]string

	cmd := &cobra.Command{
		Use:   "subset ASSET NAME",
		Short: "Publish a new subset under an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishDoc(cmd, opts, func(ctx context.Context, repo assetdb.Repository) (*assetdb.Document, error) {
				asset, err := resolver.ResolveAsset(ctx, repo, args[0])
				if err != nil {
					return nil, assetError(args[0], err)
				}
				doc := &assetdb.Document{ID: assetdb.NewID(), Type: assetdb.TypeSubset, Name: args[1], Parent: asset.ID}
				if len(extra) > 0 {
					doc.Extra = extra
				}
				return doc, nil
			})
		},
	}

	cmd.Flags().StringToStringVar(&extra, "extra", nil, "Host-specific attributes (key=value)")
	return cmd
}

type versionFlags struct {
	start    float64
	end      float64
	handles  int
	step     int
	families []string
	author   string
	comment  string
}

func newPublishVersionCmd(opts *rootOptions) *cobra.Command {
	var f versionFlags

	cmd := &cobra.Command{
		Use:   "version ASSET SUBSET [NAME]",
		Short: "Publish a new version of a subset",
		Long: `Publish a new version of a subset. Without NAME the next vNNN after the
latest published version is used.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishDoc(cmd, opts, func(ctx context.Context, repo assetdb.Repository) (*assetdb.Document, error) {
				asset, err := resolver.ResolveAsset(ctx, repo, args[0])
				if err != nil {
					return nil, assetError(args[0], err)
				}

				subset, err := repo.FindOne(ctx, assetdb.Query{Type: assetdb.TypeSubset, Parent: asset.ID, Name: args[1]}, nil)
				if assetdb.IsNotFound(err) {
					return nil, printer.Error(
						"subset not found",
						fmt.Sprintf("Asset '%s' has no subset '%s'.", asset.Name, args[1]),
						[]string{fmt.Sprintf("Publish it first:\n  burrow publish subset %s %s", asset.Name, args[1])},
					)
				}
				if err != nil {
					return nil, err
				}

				name := ""
				if len(args) == 3 {
					name = args[2]
				} else if name, err = assetdb.NextVersion(ctx, repo, subset.ID); err != nil {
					return nil, err
				}

				return &assetdb.Document{
					ID:     assetdb.NewID(),
					Type:   assetdb.TypeVersion,
					Name:   name,
					Parent: subset.ID,
					Data:   f.data(cmd, time.Now().UTC()),
				}, nil
			})
		},
	}

	cmd.Flags().Float64Var(&f.start, "start", 0, "First frame")
	cmd.Flags().Float64Var(&f.end, "end", 0, "Last frame")
	cmd.Flags().IntVar(&f.handles, "handles", 0, "Handle frames on each side")
	cmd.Flags().IntVar(&f.step, "step", 1, "Frame step")
	cmd.Flags().StringArrayVar(&f.families, "family", nil, "Family (repeatable; the first is primary)")
	cmd.Flags().StringVar(&f.author, "author", "", "Author of the version")
	cmd.Flags().StringVar(&f.comment, "comment", "", "Publish comment")
	return cmd
}

// data builds the version payload. Frame fields are only set when their flag
// was given.
func (f *versionFlags) data(cmd *cobra.Command, now time.Time) *assetdb.VersionData {
	d := &assetdb.VersionData{
		Families: f.families,
		Author:   f.author,
		Time:     now.Format(filter.VersionTimeLayout),
		Comment:  f.comment,
	}
	flags := cmd.Flags()
	if flags.Changed("start") {
		d.StartFrame = assetdb.Float(f.start)
	}
	if flags.Changed("end") {
		d.EndFrame = assetdb.Float(f.end)
	}
	if flags.Changed("handles") {
		d.Handles = assetdb.Int(f.handles)
	}
	if flags.Changed("step") {
		d.Step = assetdb.Int(f.step)
	}
	return d
}
