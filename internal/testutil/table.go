package testutil

import (
	"context"
	"fmt"

	"github.com/dyluth/burrow/internal/model"
)

// Row is one row of a Table. Values are keyed by header name.
type Row map[string]any

// TableNode is returned for model.NodeRole.
type TableNode struct {
	Row    Row
	Family string
}

// FamilyName implements the family lookup of the filter view.
func (n *TableNode) FamilyName() string {
	return n.Family
}

// Table is an in-memory model.Source for view tests. Display values are
// fmt.Sprint of the stored value, "" for nil.
type Table struct {
	Headers []string
	Rows    []Row

	// WithNodes makes NodeRole return a *TableNode carrying the "family" value.
	WithNodes bool

	signals model.Signals
}

var _ model.Source = (*Table)(nil)

// NewTable creates a table with the given headers and rows.
func NewTable(headers []string, rows ...Row) *Table {
	return &Table{Headers: headers, Rows: rows}
}

// Reset replaces every row inside a reset bracket.
func (t *Table) Reset(rows ...Row) {
	rb := t.signals.BeginReset()
	defer rb.End()
	t.Rows = rows
}

// BeginReset opens a reset without closing it, for tests that query mid-reset.
func (t *Table) BeginReset() *model.Rebuild {
	return t.signals.BeginReset()
}

// Set changes one value and emits a row change.
func (t *Table) Set(row int, header string, value any) {
	t.Rows[row][header] = value
	t.signals.EmitRowsChanged(row, row)
}

func (t *Table) RowCount() (int, error) {
	if err := t.signals.Check(); err != nil {
		return 0, err
	}
	return len(t.Rows), nil
}

func (t *Table) ColumnCount() int {
	return len(t.Headers)
}

func (t *Table) Data(row, column int, role model.Role) (any, error) {
	if err := t.signals.Check(); err != nil {
		return nil, err
	}
	if row < 0 || row >= len(t.Rows) || column < 0 || column >= len(t.Headers) {
		return nil, fmt.Errorf("cell %d,%d: %w", row, column, model.ErrIndexOutOfRange)
	}

	r := t.Rows[row]
	switch role {
	case model.DisplayRole:
		v := r[t.Headers[column]]
		if v == nil {
			return "", nil
		}
		return fmt.Sprint(v), nil
	case model.EditRole:
		return r[t.Headers[column]], nil
	case model.NodeRole:
		if !t.WithNodes {
			return nil, nil
		}
		family, _ := r["family"].(string)
		return &TableNode{Row: r, Family: family}, nil
	default:
		return nil, nil
	}
}

func (t *Table) HeaderData(column int, role model.Role) (any, error) {
	if err := t.signals.Check(); err != nil {
		return nil, err
	}
	if column < 0 || column >= len(t.Headers) {
		return nil, fmt.Errorf("column %d: %w", column, model.ErrIndexOutOfRange)
	}
	return t.Headers[column], nil
}

func (t *Table) SetData(_ context.Context, row, column int, value any) error {
	if err := t.signals.Check(); err != nil {
		return err
	}
	if row < 0 || row >= len(t.Rows) || column < 0 || column >= len(t.Headers) {
		return fmt.Errorf("cell %d,%d: %w", row, column, model.ErrIndexOutOfRange)
	}
	t.Set(row, t.Headers[column], value)
	return nil
}

func (t *Table) Flags(row, column int) model.Flags {
	if row < 0 || row >= len(t.Rows) {
		return 0
	}
	return model.ItemEnabled | model.ItemSelectable | model.ItemEditable
}

func (t *Table) Subscribe(l model.Listener) {
	t.signals.Subscribe(l)
}

func (t *Table) Unsubscribe(l model.Listener) {
	t.signals.Unsubscribe(l)
}

// Listeners returns the number of subscribed listeners.
func (t *Table) Listeners() int {
	return t.signals.Listeners()
}
