package assetdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// ErrDuplicateName is returned when publishing a document whose name is already
// taken among its siblings of the same type.
var ErrDuplicateName = errors.New("document name already published")

// Query selects documents of one type under one parent.
// Name narrows the match to a single document.
type Query struct {
	Type   DocumentType
	Parent string
	Name   string
}

// Sort orders the candidates of a FindOne lookup.
type Sort struct {
	Field      string // only "name" is supported
	Descending bool
}

// ByNameDescending picks the lexicographically highest name, i.e. the latest
// zero-padded version.
var ByNameDescending = &Sort{Field: "name", Descending: true}

// Repository is the data-access boundary the loader views depend on.
type Repository interface {
	// Find returns all documents matching the query in publish order.
	Find(ctx context.Context, q Query) ([]*Document, error)

	// FindOne returns the first document matching the query under the given
	// ordering (publish order when sort is nil).
	// Returns an error satisfying IsNotFound when nothing matches.
	FindOne(ctx context.Context, q Query, sort *Sort) (*Document, error)
}

// Publisher writes new documents to the asset database.
type Publisher interface {
	Publish(ctx context.Context, doc *Document) error
}

var (
	_ Repository = (*Client)(nil)
	_ Publisher  = (*Client)(nil)
	_ Repository = (*MemStore)(nil)
	_ Publisher  = (*MemStore)(nil)
)

// Validate checks that the query can be answered.
func (q Query) Validate() error {
	if err := q.Type.Validate(); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	if q.Type != TypeAsset && q.Parent == "" {
		return fmt.Errorf("invalid query: %s lookups require a parent", q.Type)
	}
	return nil
}

// Matches returns true if the document satisfies every field of the query.
func (q Query) Matches(d *Document) bool {
	if d.Type != q.Type || d.Parent != q.Parent {
		return false
	}
	return q.Name == "" || d.Name == q.Name
}

// Validate checks that the ordering is supported.
func (s *Sort) Validate() error {
	if s == nil {
		return nil
	}
	if s.Field != "name" {
		return fmt.Errorf("unsupported sort field: %q (supported: name)", s.Field)
	}
	return nil
}

// IsNotFound returns true if the error means the lookup matched nothing.
// Covers both ErrNotFound and a bare redis.Nil.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}

// sortDocuments orders docs in place; publish order is kept for nil sorts.
func sortDocuments(docs []*Document, s *Sort) {
	if s == nil {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if s.Descending {
			return docs[i].Name > docs[j].Name
		}
		return docs[i].Name < docs[j].Name
	})
}

func notFound(q Query) error {
	if q.Name != "" {
		return fmt.Errorf("%w: %s %q under %q", ErrNotFound, q.Type, q.Name, q.Parent)
	}
	return fmt.Errorf("%w: no %s under %q", ErrNotFound, q.Type, q.Parent)
}
