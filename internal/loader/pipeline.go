// Package loader assembles the subset loader view stack from configuration:
// subsets model, family filter and group-by proxy.
package loader

import (
	"context"
	"fmt"

	"github.com/dyluth/burrow/internal/config"
	"github.com/dyluth/burrow/internal/filter"
	"github.com/dyluth/burrow/internal/groupby"
	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/model"
	"github.com/dyluth/burrow/internal/resolver"
	"github.com/dyluth/burrow/internal/subsets"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/sirupsen/logrus"
)

// Pipeline is the wired view stack. Proxy is the view renderers consume.
type Pipeline struct {
	Subsets *subsets.Model
	Filter  *filter.FamilyView
	Proxy   *groupby.Proxy

	repo  assetdb.Repository
	asset *assetdb.Document
	log   *logrus.Entry
}

// New builds the view stack over repo. Fails if the configured group-by
// column does not exist.
func New(repo assetdb.Repository, cfg *config.BurrowConfig, log *logrus.Entry) (*Pipeline, error) {
	log = logging.OrDiscard(log)

	source := subsets.NewModel(repo, subsets.Options{
		Families:   FamilyStyles(cfg),
		SubsetIcon: cfg.Loader.SubsetIcon,
		Logger:     log.WithField("view", "subsets"),
	})

	families := filter.NewFamilyView(cfg.Loader.Families, log.WithField("view", "filter"))
	families.SetSourceModel(source)

	proxy := groupby.NewProxy(groupby.Options{
		GroupBy:  cfg.Loader.GroupBy,
		Fallback: cfg.Loader.FallbackGroup,
		Logger:   log.WithField("view", "groupby"),
	})
	if err := proxy.SetSourceModel(families); err != nil {
		return nil, fmt.Errorf("failed to configure grouping: %w", err)
	}

	return &Pipeline{
		Subsets: source,
		Filter:  families,
		Proxy:   proxy,
		repo:    repo,
		log:     log,
	}, nil
}

// FamilyStyles converts the configured families for the subsets model.
func FamilyStyles(cfg *config.BurrowConfig) subsets.FamilyStyles {
	styles := make(subsets.FamilyStyles, len(cfg.Families))
	for name, f := range cfg.Families {
		styles[name] = subsets.FamilyStyle{Label: f.Label, Icon: f.Icon}
	}
	return styles
}

// SelectAsset resolves an asset by name or ID and loads its subsets.
func (p *Pipeline) SelectAsset(ctx context.Context, ref string) (*assetdb.Document, error) {
	asset, err := resolver.ResolveAsset(ctx, p.repo, ref)
	if err != nil {
		return nil, err
	}

	if err := p.Subsets.SetAsset(ctx, asset.ID); err != nil {
		return nil, err
	}
	p.asset = asset

	p.log.WithFields(logrus.Fields{
		"asset":    asset.Name,
		"asset_id": asset.ID,
	}).Debug("Selected asset")
	return asset, nil
}

// Asset returns the selected asset, or nil.
func (p *Pipeline) Asset() *assetdb.Document {
	return p.asset
}

// Refresh reloads the selected asset.
func (p *Pipeline) Refresh(ctx context.Context) error {
	return p.Subsets.Refresh(ctx)
}

// PositionOf returns the proxy position of a subset's cell in a source column.
// Fails if the subset is unknown or hidden by the family filter.
func (p *Pipeline) PositionOf(subset string, column int) (groupby.Position, error) {
	row, ok := p.Subsets.FindRow(subset)
	if !ok {
		return groupby.Root, fmt.Errorf("subset %q is not loaded", subset)
	}

	visible, ok := p.Filter.MapFromSource(row)
	if !ok {
		return groupby.Root, fmt.Errorf("subset %q is hidden by the family filter", subset)
	}

	return p.Proxy.MapFromSource(model.Cell{Row: visible, Column: column})
}

// SetVersion switches a subset to another of its versions through the proxy
// and returns the updated record.
func (p *Pipeline) SetVersion(ctx context.Context, subset, version string) (*subsets.Record, error) {
	pos, err := p.PositionOf(subset, subsets.ColumnVersion)
	if err != nil {
		return nil, err
	}

	if err := p.Proxy.SetData(ctx, pos, version); err != nil {
		return nil, err
	}

	row, _ := p.Subsets.FindRow(subset)
	return p.Subsets.Record(row)
}
