package assetdb

import (
	"context"
	"fmt"
)

// demoVersion describes one version published by PublishDemo.
type demoVersion struct {
	name string
	data VersionData
}

// demoSubset describes one subset published by PublishDemo.
// A subset with no versions is published too; loaders are expected to skip it.
type demoSubset struct {
	name     string
	extra    map[string]string
	versions []demoVersion
}

var demoSubsets = []demoSubset{
	{
		name: "modelDefault",
		versions: []demoVersion{
			{"v001", VersionData{StartFrame: Float(1), EndFrame: Float(1), Families: []string{"avalon.model"}, Author: "maria", Time: "20240301T101500Z", Comment: "blockout"}},
			{"v002", VersionData{StartFrame: Float(1), EndFrame: Float(1), Families: []string{"avalon.model"}, Author: "maria", Time: "20240305T164200Z", Comment: "uv pass"}},
		},
	},
	{
		name:  "rigMain",
		extra: map[string]string{"host": "maya"},
		versions: []demoVersion{
			{"v001", VersionData{Families: []string{"avalon.rig"}, Author: "jun", Time: "20240306T090000Z"}},
		},
	},
	{
		name: "animMain",
		versions: []demoVersion{
			{"v001", VersionData{StartFrame: Float(1001), EndFrame: Float(1100), Handles: Int(8), Step: Int(1), Families: []string{"avalon.animation"}, Author: "sam", Time: "20240310T120000Z"}},
			{"v002", VersionData{StartFrame: Float(1001), EndFrame: Float(1120), Handles: Int(8), Step: Int(1), Families: []string{"avalon.animation"}, Author: "sam", Time: "20240312T173000Z"}},
			{"v003", VersionData{StartFrame: Float(1001), EndFrame: Float(1120.5), Handles: Int(8), Step: Int(2), Families: []string{"avalon.animation"}, Author: "ana", Time: "20240314T081500Z"}},
		},
	},
	{
		name: "pointcacheHero",
		versions: []demoVersion{
			{"v001", VersionData{StartFrame: Float(1001), EndFrame: Float(1120), Handles: Int(0), Step: Int(1), Families: []string{"avalon.pointcache", "avalon.animation"}, Author: "sam", Time: "20240315T100000Z"}},
		},
	},
	{
		name: "lookDefault",
		versions: []demoVersion{
			{"v001", VersionData{Families: []string{"avalon.look"}, Author: "ana", Time: "20240302T140000Z"}},
		},
	},
	{
		name: "sketchNotes",
		versions: []demoVersion{
			{"v001", VersionData{Author: "maria", Time: "20240228T110000Z", Comment: "no family published"}},
		},
	},
	{
		// Never published a version
		name: "layoutDraft",
	},
}

// PublishDemo publishes a small demo asset with a handful of subsets and
// versions, returning the asset document.
func PublishDemo(ctx context.Context, pub Publisher, assetName string) (*Document, error) {
	asset := &Document{ID: NewID(), Type: TypeAsset, Name: assetName}
	if err := pub.Publish(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to publish asset %q: %w", assetName, err)
	}

	for _, s := range demoSubsets {
		subset := &Document{ID: NewID(), Type: TypeSubset, Name: s.name, Parent: asset.ID, Extra: s.extra}
		if err := pub.Publish(ctx, subset); err != nil {
			return nil, fmt.Errorf("failed to publish subset %q: %w", s.name, err)
		}

		for _, v := range s.versions {
			data := v.data
			version := &Document{ID: NewID(), Type: TypeVersion, Name: v.name, Parent: subset.ID, Data: &data}
			if err := pub.Publish(ctx, version.Clone()); err != nil {
				return nil, fmt.Errorf("failed to publish %s/%s: %w", s.name, v.name, err)
			}
		}
	}

	return asset, nil
}
