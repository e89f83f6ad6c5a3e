// Package nodestore holds an ordered forest of values addressed by handles.
//
// The store is rebuilt wholesale: Clear drops every node and starts a new
// generation. Handles remember the generation they were issued in, and using
// one from an earlier generation panics. A stale handle is a programming error
// in the caller, never a recoverable condition.
package nodestore

import "fmt"

// Handle addresses one node. The zero Handle is the root, which is valid in
// every generation.
type Handle struct {
	gen uint64
	id  int
}

// IsRoot reports whether h addresses the root.
func (h Handle) IsRoot() bool {
	return h.id == 0
}

type node[T any] struct {
	value    T
	parent   int
	row      int
	children []int
}

// Store is an ordered forest of T. Not safe for concurrent use.
type Store[T any] struct {
	// nodes[0] is the root sentinel
	nodes []node[T]
	gen   uint64
}

// New returns an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{nodes: []node[T]{{}}}
}

// Root returns the root handle.
func (s *Store[T]) Root() Handle {
	return Handle{}
}

// Clear drops every node and starts a new generation.
func (s *Store[T]) Clear() {
	s.nodes = []node[T]{{}}
	s.gen++
}

// Generation returns the number of times the store has been cleared.
func (s *Store[T]) Generation() uint64 {
	return s.gen
}

// Append adds value as the last child of parent and returns its handle.
func (s *Store[T]) Append(parent Handle, value T) Handle {
	p := s.resolve(parent)
	id := len(s.nodes)
	s.nodes = append(s.nodes, node[T]{
		value:  value,
		parent: p,
		row:    len(s.nodes[p].children),
	})
	s.nodes[p].children = append(s.nodes[p].children, id)
	return Handle{gen: s.gen, id: id}
}

// Len returns the number of children of parent.
func (s *Store[T]) Len(parent Handle) int {
	return len(s.nodes[s.resolve(parent)].children)
}

// Child returns the row-th child of parent. ok is false for rows out of range.
func (s *Store[T]) Child(parent Handle, row int) (Handle, bool) {
	children := s.nodes[s.resolve(parent)].children
	if row < 0 || row >= len(children) {
		return Handle{}, false
	}
	return Handle{gen: s.gen, id: children[row]}, true
}

// Get returns the value stored at h. The root holds the zero T.
func (s *Store[T]) Get(h Handle) T {
	return s.nodes[s.resolve(h)].value
}

// Set replaces the value stored at h.
func (s *Store[T]) Set(h Handle, value T) {
	id := s.resolve(h)
	if id == 0 {
		panic("nodestore: cannot set the root value")
	}
	s.nodes[id].value = value
}

// Parent returns the parent of h. The root is its own parent.
func (s *Store[T]) Parent(h Handle) Handle {
	id := s.resolve(h)
	if id == 0 {
		return Handle{}
	}
	p := s.nodes[id].parent
	if p == 0 {
		return Handle{}
	}
	return Handle{gen: s.gen, id: p}
}

// Row returns the position of h among its siblings.
func (s *Store[T]) Row(h Handle) int {
	return s.nodes[s.resolve(h)].row
}

func (s *Store[T]) resolve(h Handle) int {
	if h.id == 0 {
		return 0
	}
	if h.gen != s.gen {
		panic(fmt.Sprintf("nodestore: stale handle from generation %d (current %d)", h.gen, s.gen))
	}
	if h.id >= len(s.nodes) {
		panic(fmt.Sprintf("nodestore: handle %d out of range", h.id))
	}
	return h.id
}
