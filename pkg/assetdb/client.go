package assetdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client provides project-scoped Redis operations for the asset database.
// All keys and channels are automatically namespaced with the project name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb     *redis.Client
	project string
}

// NewClient creates a new asset database client for the specified project.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - project: project identifier (must not be empty)
//
// Returns an error if project is empty.
func NewClient(redisOpts *redis.Options, project string) (*Client, error) {
	if project == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	return &Client{
		rdb:     redis.NewClient(redisOpts),
		project: project,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Project returns the project namespace of this client.
func (c *Client) Project() string {
	return c.project
}

// Publish validates a document, writes it with its indexes, and announces it on
// burrow:{project}:publish_events.
//
// The parent must already exist and be of the matching type (asset for subsets,
// subset for versions). Names are unique per parent and type: publishing a
// second "v002" under the same subset fails with ErrDuplicateName.
func (c *Client) Publish(ctx context.Context, doc *Document) error {
	if doc.CreatedAtMs == 0 {
		doc.CreatedAtMs = time.Now().UnixMilli()
	}

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	if parentType, ok := doc.Type.ParentType(); ok {
		parent, err := c.GetDocument(ctx, doc.Parent)
		if err != nil {
			if IsNotFound(err) {
				return fmt.Errorf("parent %s of %s %q does not exist", doc.Parent, doc.Type, doc.Name)
			}
			return fmt.Errorf("failed to verify parent: %w", err)
		}
		if parent.Type != parentType {
			return fmt.Errorf("parent of %s %q must be a %s, got %s", doc.Type, doc.Name, parentType, parent.Type)
		}
	}

	hash, err := DocumentToHash(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	// Claim the name first so two publishers cannot both win it
	claimed, err := c.rdb.HSetNX(ctx, ByNameKey(c.project, doc.Parent, doc.Type), doc.Name, doc.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to claim document name: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: %s %q under %q", ErrDuplicateName, doc.Type, doc.Name, doc.Parent)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, DocumentKey(c.project, doc.ID), hash)
		pipe.RPush(ctx, ChildrenKey(c.project, doc.Parent, doc.Type), doc.ID)
		pipe.ZAdd(ctx, NamesKey(c.project, doc.Parent, doc.Type), redis.Z{
			Score:  0,
			Member: nameMember(doc.Name, doc.ID),
		})
		return nil
	})
	if err != nil {
		if cerr := c.releaseClaim(ctx, doc); cerr != nil {
			return fmt.Errorf("failed to write document to Redis: %w (name %q stays claimed: %v)", err, doc.Name, cerr)
		}
		return fmt.Errorf("failed to write document to Redis: %w", err)
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document for event: %w", err)
	}

	if err := c.rdb.Publish(ctx, PublishEventsChannel(c.project), docJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish document event: %w", err)
	}

	return nil
}

// releaseClaim undoes a failed write so the name can be published again.
// Redis applies the commands of a transaction that did not fail, so every
// index is cleaned, not just the name claim.
func (c *Client) releaseClaim(ctx context.Context, doc *Document) error {
	ctx = context.WithoutCancel(ctx)
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, DocumentKey(c.project, doc.ID))
		pipe.LRem(ctx, ChildrenKey(c.project, doc.Parent, doc.Type), 0, doc.ID)
		pipe.ZRem(ctx, NamesKey(c.project, doc.Parent, doc.Type), nameMember(doc.Name, doc.ID))
		pipe.HDel(ctx, ByNameKey(c.project, doc.Parent, doc.Type), doc.Name)
		return nil
	})
	return err
}

// GetDocument retrieves a document by ID.
// Returns an error satisfying IsNotFound if the document doesn't exist.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	hashData, err := c.rdb.HGetAll(ctx, DocumentKey(c.project, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read document from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	doc, err := HashToDocument(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize document %s: %w", id, err)
	}

	return doc, nil
}

// Find returns all documents matching the query in publish order.
// Returns an empty slice (not an error) when nothing matches.
func (c *Client) Find(ctx context.Context, q Query) ([]*Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if q.Name != "" {
		doc, err := c.findByName(ctx, q)
		if err != nil {
			if IsNotFound(err) {
				return []*Document{}, nil
			}
			return nil, err
		}
		return []*Document{doc}, nil
	}

	ids, err := c.rdb.LRange(ctx, ChildrenKey(c.project, q.Parent, q.Type), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", q.Type, err)
	}

	return c.getDocuments(ctx, ids)
}

// FindOne returns the first document matching the query under the given ordering.
// With ByNameDescending this is the latest version of a subset.
func (c *Client) FindOne(ctx context.Context, q Query, sort *Sort) (*Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}

	if q.Name != "" {
		return c.findByName(ctx, q)
	}

	var id string
	if sort == nil {
		first, err := c.rdb.LIndex(ctx, ChildrenKey(c.project, q.Parent, q.Type), 0).Result()
		if err != nil {
			if err == redis.Nil {
				return nil, notFound(q)
			}
			return nil, fmt.Errorf("failed to read first %s: %w", q.Type, err)
		}
		id = first
	} else {
		rangeBy := &redis.ZRangeBy{Min: "-", Max: "+", Offset: 0, Count: 1}
		key := NamesKey(c.project, q.Parent, q.Type)

		var members []string
		var err error
		if sort.Descending {
			members, err = c.rdb.ZRevRangeByLex(ctx, key, rangeBy).Result()
		} else {
			members, err = c.rdb.ZRangeByLex(ctx, key, rangeBy).Result()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s name index: %w", q.Type, err)
		}
		if len(members) == 0 {
			return nil, notFound(q)
		}

		_, memberID, ok := strings.Cut(members[0], "\x00")
		if !ok {
			return nil, fmt.Errorf("malformed name index member %q", members[0])
		}
		id = memberID
	}

	return c.GetDocument(ctx, id)
}

func (c *Client) findByName(ctx context.Context, q Query) (*Document, error) {
	id, err := c.rdb.HGet(ctx, ByNameKey(c.project, q.Parent, q.Type), q.Name).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, notFound(q)
		}
		return nil, fmt.Errorf("failed to look up %s %q: %w", q.Type, q.Name, err)
	}
	return c.GetDocument(ctx, id)
}

// getDocuments fetches several documents in one round trip, keeping order.
// IDs whose hash has vanished are skipped.
func (c *Client) getDocuments(ctx context.Context, ids []string) ([]*Document, error) {
	if len(ids) == 0 {
		return []*Document{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, DocumentKey(c.project, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read documents from Redis: %w", err)
	}

	docs := make([]*Document, 0, len(ids))
	for i, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		doc, err := HashToDocument(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize document %s: %w", ids[i], err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Subscription represents an active Pub/Sub subscription to publish events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Document
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of published documents.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Document {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribePublishEvents subscribes to publish events for this project.
// The subscription is confirmed by Redis before this returns, so documents
// published afterwards are never missed.
//
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once: a subscriber that falls behind may lose events.
func (c *Client) SubscribePublishEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, PublishEventsChannel(c.project))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to publish events: %w", err)
	}

	eventsChan := make(chan *Document, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var doc Document
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal publish event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &doc:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
