package assetdb

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Repository and Publisher.
// It enforces the same validation, parent and name rules as Client, and hands
// out clones so stored documents are never mutated by callers.
type MemStore struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
	now   func() time.Time
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		docs: make(map[string]*Document),
		now:  time.Now,
	}
}

// Publish validates and stores a document.
func (m *MemStore) Publish(_ context.Context, doc *Document) error {
	if doc.CreatedAtMs == 0 {
		doc.CreatedAtMs = m.now().UnixMilli()
	}

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}

	if parentType, ok := doc.Type.ParentType(); ok {
		parent, exists := m.docs[doc.Parent]
		if !exists {
			return fmt.Errorf("parent %s of %s %q does not exist", doc.Parent, doc.Type, doc.Name)
		}
		if parent.Type != parentType {
			return fmt.Errorf("parent of %s %q must be a %s, got %s", doc.Type, doc.Name, parentType, parent.Type)
		}
	}

	for _, id := range m.order {
		existing := m.docs[id]
		if existing.Type == doc.Type && existing.Parent == doc.Parent && existing.Name == doc.Name {
			return fmt.Errorf("%w: %s %q under %q", ErrDuplicateName, doc.Type, doc.Name, doc.Parent)
		}
	}

	m.docs[doc.ID] = doc.Clone()
	m.order = append(m.order, doc.ID)
	return nil
}

// GetDocument retrieves a document by ID.
func (m *MemStore) GetDocument(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc.Clone(), nil
}

// Find returns all documents matching the query in publish order.
func (m *MemStore) Find(_ context.Context, q Query) ([]*Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.matching(q), nil
}

// FindOne returns the first document matching the query under the given ordering.
func (m *MemStore) FindOne(_ context.Context, q Query, sort *Sort) (*Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := sort.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.matching(q)
	if len(docs) == 0 {
		return nil, notFound(q)
	}
	sortDocuments(docs, sort)
	return docs[0], nil
}

// Len returns the number of stored documents.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *MemStore) matching(q Query) []*Document {
	out := []*Document{}
	for _, id := range m.order {
		if doc := m.docs[id]; q.Matches(doc) {
			out = append(out, doc.Clone())
		}
	}
	return out
}
