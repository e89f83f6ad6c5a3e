// Package model defines the contracts shared by every layer of the loader view
// stack: the flat Source interface, item roles and flags, and reset signalling.
//
// Views are single-threaded. A view announces a rebuild with BeginReset and
// finishes it with (*Rebuild).End; between the two every query on that view
// fails with ErrResetInProgress.
package model

import (
	"context"
	"errors"
)

var (
	// ErrResetInProgress is returned by queries issued while a view is rebuilding.
	ErrResetInProgress = errors.New("model reset in progress")

	// ErrIndexOutOfRange is returned for row or column positions outside the view.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotEditable is returned by SetData on cells that do not accept edits.
	ErrNotEditable = errors.New("cell is not editable")
)

// Role selects which facet of a cell Data returns.
type Role int

const (
	// DisplayRole is the human-readable string of a cell.
	DisplayRole Role = iota
	// EditRole is the raw value of a cell, as accepted by SetData.
	EditRole
	// DecorationRole is the icon name of a cell, or nil.
	DecorationRole
	// NodeRole is the record backing the row, independent of column.
	NodeRole
)

func (r Role) String() string {
	switch r {
	case DisplayRole:
		return "display"
	case EditRole:
		return "edit"
	case DecorationRole:
		return "decoration"
	case NodeRole:
		return "node"
	default:
		return "unknown"
	}
}

// Flags describe how a cell may be interacted with.
type Flags uint8

const (
	ItemEnabled Flags = 1 << iota
	ItemSelectable
	ItemEditable
)

// Has returns true if every bit of other is set in f.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// Cell addresses one cell of a flat source.
type Cell struct {
	Row    int
	Column int
}

// Listener receives change notifications from a Source.
type Listener interface {
	ModelAboutToReset()
	ModelReset()
	RowsChanged(first, last int)
}

// Source is a flat, row-oriented data model.
//
// Every query returns ErrResetInProgress while the source is rebuilding and
// ErrIndexOutOfRange for positions outside the current rows or columns.
type Source interface {
	RowCount() (int, error)
	ColumnCount() int
	Data(row, column int, role Role) (any, error)
	HeaderData(column int, role Role) (any, error)
	SetData(ctx context.Context, row, column int, value any) error
	Flags(row, column int) Flags
	Subscribe(l Listener)
	Unsubscribe(l Listener)
}

// Hooks adapts plain functions to a Listener. Nil hooks are skipped.
type Hooks struct {
	AboutToReset func()
	Reset        func()
	Changed      func(first, last int)
}

func (h Hooks) ModelAboutToReset() {
	if h.AboutToReset != nil {
		h.AboutToReset()
	}
}

func (h Hooks) ModelReset() {
	if h.Reset != nil {
		h.Reset()
	}
}

func (h Hooks) RowsChanged(first, last int) {
	if h.Changed != nil {
		h.Changed(first, last)
	}
}
