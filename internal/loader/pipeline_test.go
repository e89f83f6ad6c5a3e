package loader

import (
	"context"
	"testing"

	"github.com/dyluth/burrow/internal/config"
	"github.com/dyluth/burrow/internal/groupby"
	"github.com/dyluth/burrow/internal/model"
	"github.com/dyluth/burrow/internal/subsets"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPipeline(t *testing.T, mutate func(cfg *config.BurrowConfig)) (*Pipeline, *assetdb.Document) {
	t.Helper()
	ctx := context.Background()

	store := assetdb.NewMemStore()
	asset, err := assetdb.PublishDemo(ctx, store, "hero")
	require.NoError(t, err)

	cfg := config.Default("demo")
	cfg.Families = map[string]config.Family{"avalon.model": {Label: "Model", Icon: "cube"}}
	if mutate != nil {
		mutate(cfg)
	}

	p, err := New(store, cfg, nil)
	require.NoError(t, err)
	return p, asset
}

func groupLabels(t *testing.T, p *groupby.Proxy) []string {
	t.Helper()
	n, err := p.RowCount(groupby.Root)
	require.NoError(t, err)

	var labels []string
	for row := 0; row < n; row++ {
		pos, err := p.Index(row, 0, groupby.Root)
		require.NoError(t, err)
		v, err := p.Data(pos, model.DisplayRole)
		require.NoError(t, err)
		labels = append(labels, v.(string))
	}
	return labels
}

func TestPipeline_SelectAsset(t *testing.T) {
	p, asset := setupPipeline(t, nil)

	selected, err := p.SelectAsset(context.Background(), "hero")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, selected.ID)
	assert.Equal(t, asset.ID, p.Asset().ID)

	assert.Equal(t, []string{
		"family: Model (1)",
		"family: avalon.rig (1)",
		"family: avalon.animation (1)",
		"family: avalon.pointcache (1)",
		"family: avalon.look (1)",
		"family: (blank) (1)",
	}, groupLabels(t, p.Proxy))
}

func TestPipeline_FamilyFilter(t *testing.T) {
	p, _ := setupPipeline(t, func(cfg *config.BurrowConfig) {
		cfg.Loader.Families = []string{"avalon.model"}
	})
	_, err := p.SelectAsset(context.Background(), "hero")
	require.NoError(t, err)

	assert.Equal(t, []string{"family: Model (1)", "family: (blank) (1)"}, groupLabels(t, p.Proxy))

	p.Filter.SetFamilyFilter(nil)
	assert.Equal(t, []string{"family: (blank) (1)"}, groupLabels(t, p.Proxy))
}

func TestPipeline_SetVersion(t *testing.T) {
	p, _ := setupPipeline(t, nil)
	ctx := context.Background()
	_, err := p.SelectAsset(ctx, "hero")
	require.NoError(t, err)

	rec, err := p.SetVersion(ctx, "animMain", "v001")
	require.NoError(t, err)
	assert.Equal(t, "v001", rec.Version)
	assert.Equal(t, "1001-1100", rec.Frames)
	require.NotNil(t, rec.Duration)
	assert.Equal(t, float64(100), *rec.Duration)

	pos, err := p.PositionOf("animMain", subsets.ColumnFrames)
	require.NoError(t, err)
	frames, err := p.Proxy.Data(pos, model.DisplayRole)
	require.NoError(t, err)
	assert.Equal(t, "1001-1100", frames)

	_, err = p.SetVersion(ctx, "animMain", "v009")
	assert.ErrorIs(t, err, subsets.ErrVersionNotFound)

	_, err = p.SetVersion(ctx, "layoutDraft", "v001")
	assert.ErrorContains(t, err, "not loaded")
}

func TestPipeline_SetVersionHidden(t *testing.T) {
	p, _ := setupPipeline(t, func(cfg *config.BurrowConfig) {
		cfg.Loader.Families = []string{"avalon.model"}
	})
	_, err := p.SelectAsset(context.Background(), "hero")
	require.NoError(t, err)

	_, err = p.SetVersion(context.Background(), "rigMain", "v001")
	assert.ErrorContains(t, err, "hidden by the family filter")
}

func TestPipeline_ReattachKeepsSingleReset(t *testing.T) {
	p, _ := setupPipeline(t, nil)
	require.NoError(t, p.Proxy.SetSourceModel(p.Filter))

	var events []string
	p.Proxy.Subscribe(model.Hooks{
		AboutToReset: func() { events = append(events, "about") },
		Reset:        func() { events = append(events, "reset") },
	})

	_, err := p.SelectAsset(context.Background(), "hero")
	require.NoError(t, err)
	assert.Equal(t, []string{"about", "reset"}, events)
}

func TestPipeline_UnknownGroupBy(t *testing.T) {
	store := assetdb.NewMemStore()
	cfg := config.Default("demo")
	cfg.Loader.GroupBy = "colour"

	_, err := New(store, cfg, nil)
	assert.ErrorIs(t, err, groupby.ErrUnknownColumn)
}

func TestPipeline_UnknownAsset(t *testing.T) {
	p, _ := setupPipeline(t, nil)
	_, err := p.SelectAsset(context.Background(), "dragon")
	assert.ErrorContains(t, err, "no asset found")
	assert.Nil(t, p.Asset())
}
