package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dyluth/burrow/internal/config"
	"github.com/dyluth/burrow/internal/groupby"
	"github.com/dyluth/burrow/internal/loader"
	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/resolver"
	"github.com/dyluth/burrow/internal/subsets"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/spf13/cobra"
)

// viewFlags override the loader section of burrow.yml for one invocation.
type viewFlags struct {
	groupBy  string
	families []string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.groupBy, "group-by", "g", "", "Column to group by, or 'none' (overrides burrow.yml)")
	cmd.Flags().StringSliceVarP(&f.families, "families", "f", nil, "Families to show, globs allowed (overrides burrow.yml)")
}

func (f *viewFlags) apply(cmd *cobra.Command, cfg *config.BurrowConfig) {
	if f.groupBy != "" {
		cfg.Loader.GroupBy = f.groupBy
	}
	if cmd.Flags().Changed("families") {
		cfg.Loader.Families = append([]string{}, f.families...)
	}
}

// openAsset builds the loader view stack over repo and selects the asset.
func openAsset(ctx context.Context, repo assetdb.Repository, cfg *config.BurrowConfig, ref string) (*loader.Pipeline, error) {
	p, err := loader.New(repo, cfg, logging.New("loader"))
	if err != nil {
		if errors.Is(err, groupby.ErrUnknownColumn) {
			return nil, printer.Error(
				"unknown group-by column",
				err.Error(),
				[]string{fmt.Sprintf("Group by one of: %s", groupableColumns())},
			)
		}
		return nil, err
	}

	if _, err := p.SelectAsset(ctx, ref); err != nil {
		return nil, assetError(ref, err)
	}
	return p, nil
}

func groupableColumns() string {
	return strings.Join(append(slices.Clone(subsets.Columns), groupby.NoneSelector), ", ")
}

// assetError turns resolver failures into printed reports.
func assetError(ref string, err error) error {
	var ambiguous *resolver.AmbiguousError
	switch {
	case resolver.IsNotFoundError(err):
		return printer.Error(
			"asset not found",
			fmt.Sprintf("No asset matches '%s'.", ref),
			[]string{
				fmt.Sprintf("Publish it:\n  burrow publish asset %s", ref),
				fmt.Sprintf("Or publish the demo asset:\n  burrow seed %s", ref),
			},
		)
	case errors.As(err, &ambiguous):
		return printer.Error("ambiguous asset reference", resolver.FormatAmbiguousError(ambiguous), nil)
	default:
		return fmt.Errorf("failed to load asset '%s': %w", ref, err)
	}
}
