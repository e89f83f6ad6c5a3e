package assetdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// publishTree publishes an asset with one subset and the named versions.
func publishTree(t *testing.T, pub Publisher, versions ...string) (asset, subset *Document) {
	t.Helper()
	ctx := context.Background()

	asset = &Document{ID: NewID(), Type: TypeAsset, Name: "hero"}
	require.NoError(t, pub.Publish(ctx, asset))

	subset = &Document{ID: NewID(), Type: TypeSubset, Name: "modelDefault", Parent: asset.ID}
	require.NoError(t, pub.Publish(ctx, subset))

	for i, name := range versions {
		v := &Document{
			ID:     NewID(),
			Type:   TypeVersion,
			Name:   name,
			Parent: subset.ID,
			Data:   &VersionData{StartFrame: Float(1), EndFrame: Float(float64(10 + i)), Families: []string{"avalon.model"}},
		}
		require.NoError(t, pub.Publish(ctx, v))
	}
	return asset, subset
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-project", client.Project())
	})

	t.Run("rejects empty project name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "project name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPublish(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("writes document and indexes", func(t *testing.T) {
		asset, subset := publishTree(t, client, "v001")

		assert.True(t, mr.Exists(DocumentKey("test-project", asset.ID)))
		assert.True(t, mr.Exists(DocumentKey("test-project", subset.ID)))

		ids, err := mr.List(ChildrenKey("test-project", asset.ID, TypeSubset))
		require.NoError(t, err)
		assert.Equal(t, []string{subset.ID}, ids)

		assert.Equal(t, subset.ID, mr.HGet(ByNameKey("test-project", asset.ID, TypeSubset), "modelDefault"))
		assert.NotZero(t, subset.CreatedAtMs)
	})

	t.Run("rejects invalid document", func(t *testing.T) {
		err := client.Publish(ctx, &Document{ID: "bad", Type: TypeAsset, Name: "x"})
		assert.ErrorContains(t, err, "invalid document")
	})

	t.Run("rejects missing parent", func(t *testing.T) {
		err := client.Publish(ctx, &Document{ID: NewID(), Type: TypeSubset, Name: "rig", Parent: NewID()})
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("rejects parent of wrong type", func(t *testing.T) {
		asset := &Document{ID: NewID(), Type: TypeAsset, Name: "prop"}
		require.NoError(t, client.Publish(ctx, asset))

		err := client.Publish(ctx, &Document{ID: NewID(), Type: TypeVersion, Name: "v001", Parent: asset.ID, Data: &VersionData{}})
		assert.ErrorContains(t, err, "must be a subset")
	})

	t.Run("rejects duplicate sibling name", func(t *testing.T) {
		client, _ := setupTestClient(t)
		_, subset := publishTree(t, client, "v001")

		err := client.Publish(ctx, &Document{ID: NewID(), Type: TypeVersion, Name: "v001", Parent: subset.ID, Data: &VersionData{}})
		assert.True(t, errors.Is(err, ErrDuplicateName))
	})

	t.Run("failed write releases the name", func(t *testing.T) {
		client, mr := setupTestClient(t)
		asset, _ := publishTree(t, client)

		// A string where the children list lives makes RPUSH fail inside the transaction
		children := ChildrenKey("test-project", asset.ID, TypeSubset)
		require.NoError(t, mr.Set(children, "junk"))

		rig := &Document{ID: NewID(), Type: TypeSubset, Name: "rigMain", Parent: asset.ID}
		err := client.Publish(ctx, rig)
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to write document")
		assert.NotContains(t, err.Error(), "stays claimed")

		assert.Empty(t, mr.HGet(ByNameKey("test-project", asset.ID, TypeSubset), "rigMain"))
		assert.False(t, mr.Exists(DocumentKey("test-project", rig.ID)))
		names, err := mr.ZMembers(NamesKey("test-project", asset.ID, TypeSubset))
		require.NoError(t, err)
		assert.NotContains(t, names, nameMember("rigMain", rig.ID))

		mr.Del(children)
		retry := &Document{ID: NewID(), Type: TypeSubset, Name: "rigMain", Parent: asset.ID}
		require.NoError(t, client.Publish(ctx, retry))
		assert.Equal(t, retry.ID, mr.HGet(ByNameKey("test-project", asset.ID, TypeSubset), "rigMain"))
	})
}

func TestGetDocument(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	asset, _ := publishTree(t, client)

	t.Run("retrieves existing document", func(t *testing.T) {
		doc, err := client.GetDocument(ctx, asset.ID)
		require.NoError(t, err)
		assert.Equal(t, asset, doc)
	})

	t.Run("returns not found for missing document", func(t *testing.T) {
		_, err := client.GetDocument(ctx, NewID())
		assert.True(t, IsNotFound(err))
	})
}

func TestFind(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, subset := publishTree(t, client, "v002", "v001", "v003")

	t.Run("returns documents in publish order", func(t *testing.T) {
		docs, err := client.Find(ctx, Query{Type: TypeVersion, Parent: subset.ID})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "v002", docs[0].Name)
		assert.Equal(t, "v001", docs[1].Name)
		assert.Equal(t, "v003", docs[2].Name)
	})

	t.Run("narrows by name", func(t *testing.T) {
		docs, err := client.Find(ctx, Query{Type: TypeVersion, Parent: subset.ID, Name: "v001"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "v001", docs[0].Name)
	})

	t.Run("returns empty slice when nothing matches", func(t *testing.T) {
		docs, err := client.Find(ctx, Query{Type: TypeVersion, Parent: NewID()})
		require.NoError(t, err)
		assert.Empty(t, docs)

		docs, err = client.Find(ctx, Query{Type: TypeVersion, Parent: subset.ID, Name: "v999"})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("lists assets at the root", func(t *testing.T) {
		docs, err := client.Find(ctx, Query{Type: TypeAsset})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "hero", docs[0].Name)
	})

	t.Run("rejects query without parent", func(t *testing.T) {
		_, err := client.Find(ctx, Query{Type: TypeSubset})
		assert.ErrorContains(t, err, "require a parent")
	})
}

func TestFindOne(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	_, subset := publishTree(t, client, "v002", "v010", "v001")
	q := Query{Type: TypeVersion, Parent: subset.ID}

	t.Run("name descending picks the latest version", func(t *testing.T) {
		doc, err := client.FindOne(ctx, q, ByNameDescending)
		require.NoError(t, err)
		assert.Equal(t, "v010", doc.Name)
		require.NotNil(t, doc.Data)
		assert.Equal(t, float64(11), *doc.Data.EndFrame)
	})

	t.Run("name ascending picks the first version", func(t *testing.T) {
		doc, err := client.FindOne(ctx, q, &Sort{Field: "name"})
		require.NoError(t, err)
		assert.Equal(t, "v001", doc.Name)
	})

	t.Run("nil sort keeps publish order", func(t *testing.T) {
		doc, err := client.FindOne(ctx, q, nil)
		require.NoError(t, err)
		assert.Equal(t, "v002", doc.Name)
	})

	t.Run("by name", func(t *testing.T) {
		doc, err := client.FindOne(ctx, Query{Type: TypeVersion, Parent: subset.ID, Name: "v001"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "v001", doc.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.FindOne(ctx, Query{Type: TypeVersion, Parent: NewID()}, ByNameDescending)
		assert.True(t, IsNotFound(err))

		_, err = client.FindOne(ctx, Query{Type: TypeVersion, Parent: NewID()}, nil)
		assert.True(t, IsNotFound(err))

		_, err = client.FindOne(ctx, Query{Type: TypeVersion, Parent: subset.ID, Name: "v999"}, nil)
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects unsupported sort field", func(t *testing.T) {
		_, err := client.FindOne(ctx, q, &Sort{Field: "time"})
		assert.ErrorContains(t, err, "unsupported sort field")
	})
}

func TestSubscribePublishEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("receives published documents", func(t *testing.T) {
		sub, err := client.SubscribePublishEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		asset := &Document{ID: NewID(), Type: TypeAsset, Name: "prop"}
		require.NoError(t, client.Publish(ctx, asset))

		select {
		case received := <-sub.Events():
			assert.Equal(t, asset.ID, received.ID)
			assert.Equal(t, TypeAsset, received.Type)
		case <-time.After(1 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("cleanup on Close", func(t *testing.T) {
		sub, err := client.SubscribePublishEvents(ctx)
		require.NoError(t, err)

		assert.NoError(t, sub.Close())
		// Calling Close again should be safe
		assert.NoError(t, sub.Close())
	})

	t.Run("cleanup on context cancellation", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)

		sub, err := client.SubscribePublishEvents(cancelCtx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok, "channel should be closed")
		case <-time.After(1 * time.Second):
			t.Fatal("timeout waiting for channel close")
		}
	})
}

func TestSubscriptionErrorChannel(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribePublishEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(PublishEventsChannel("test-project"), "{not json")

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to unmarshal publish event")
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for error")
	}
}

func TestProjectNamespacing(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	defer mr.Close()

	ctx := context.Background()

	show1, err := NewClient(&redis.Options{Addr: mr.Addr()}, "show1")
	require.NoError(t, err)
	defer show1.Close()

	show2, err := NewClient(&redis.Options{Addr: mr.Addr()}, "show2")
	require.NoError(t, err)
	defer show2.Close()

	asset := &Document{ID: NewID(), Type: TypeAsset, Name: "hero"}
	require.NoError(t, show1.Publish(ctx, asset))

	// Same name is free in another project
	require.NoError(t, show2.Publish(ctx, &Document{ID: NewID(), Type: TypeAsset, Name: "hero"}))

	_, err = show2.GetDocument(ctx, asset.ID)
	assert.True(t, IsNotFound(err))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(redis.Nil))
	assert.True(t, IsNotFound(notFound(Query{Type: TypeAsset, Name: "x"})))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestPublishDemo(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	asset, err := PublishDemo(ctx, client, "hero")
	require.NoError(t, err)

	subsets, err := client.Find(ctx, Query{Type: TypeSubset, Parent: asset.ID})
	require.NoError(t, err)
	assert.Len(t, subsets, len(demoSubsets))

	_, err = PublishDemo(ctx, client, "hero")
	assert.True(t, errors.Is(err, ErrDuplicateName))
}
