// Package assetdb provides type-safe Go definitions and Redis schema patterns
// for the burrow asset database.
//
// # Overview
//
// The asset database holds the published state of a project: assets, the
// subsets published for each asset, and the immutable versions published for
// each subset. Every document is addressed by a UUID and points at its parent
// document, forming the hierarchy asset → subset → version.
//
// Loader views never talk to Redis directly. They depend on the Repository
// interface (Find and FindOne), which is implemented by the Redis-backed
// Client and by the in-memory MemStore used in tests and demos.
//
// # Usage Example
//
//	client, err := assetdb.NewClient(&redis.Options{Addr: "localhost:6379"}, "show-a")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	asset := &assetdb.Document{ID: assetdb.NewID(), Type: assetdb.TypeAsset, Name: "hero"}
//	if err := client.Publish(ctx, asset); err != nil {
//		log.Fatal(err)
//	}
//
//	// Latest version of a subset
//	latest, err := client.FindOne(ctx, assetdb.Query{
//		Type:   assetdb.TypeVersion,
//		Parent: subsetID,
//	}, assetdb.ByNameDescending)
//
// # Redis Schema
//
// All Redis keys follow the pattern: burrow:{project}:{entity}:...
//
// Documents: burrow:{project}:doc:{id} (hash)
// Children:  burrow:{project}:children:{parent}:{type} (list, publish order)
// Names:     burrow:{project}:names:{parent}:{type} (lex ZSET of "name\x00id")
// By name:   burrow:{project}:byname:{parent}:{type} (hash name -> id)
//
// Top-level assets use the parent segment "root".
//
// Pub/Sub channel: burrow:{project}:publish_events
package assetdb
