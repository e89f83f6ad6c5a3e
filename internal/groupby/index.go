// Package groupby presents a flat source as a two-level tree: one header row
// per group, with the source rows of that group as its children.
package groupby

import (
	"fmt"
	"reflect"

	"github.com/dyluth/burrow/internal/model"
)

const (
	// NoColumn disables grouping: every row lands in DefaultGroup.
	NoColumn = -1

	// DefaultGroup is the single group used when grouping is disabled.
	DefaultGroup = "default"

	// DefaultFallback is the group of rows whose grouping value is empty.
	DefaultFallback = "(blank)"
)

// Index partitions the rows of a source into groups keyed by the display
// value of one column.
//
// Every source row belongs to exactly one group. Groups are ordered by the
// first row that produced them, and members keep source order.
type Index struct {
	column   int
	fallback string

	groups    []string
	members   map[string][]int
	rowGroup  []int // source row -> group position
	memberPos []int // source row -> position within its group
}

// BuildIndex evaluates every source row once. A source without rows yields
// an index without groups.
func BuildIndex(src model.Source, column int, fallback string) (*Index, error) {
	if fallback == "" {
		fallback = DefaultFallback
	}

	idx := &Index{
		column:   column,
		fallback: fallback,
		members:  make(map[string][]int),
	}

	if src == nil {
		return idx, nil
	}

	if column != NoColumn && (column < 0 || column >= src.ColumnCount()) {
		return nil, fmt.Errorf("group column %d: %w", column, model.ErrIndexOutOfRange)
	}

	rows, err := src.RowCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count source rows: %w", err)
	}

	idx.rowGroup = make([]int, rows)
	idx.memberPos = make([]int, rows)

	for row := 0; row < rows; row++ {
		key := DefaultGroup
		if column != NoColumn {
			value, err := src.Data(row, column, model.DisplayRole)
			if err != nil {
				return nil, fmt.Errorf("failed to read group value of row %d: %w", row, err)
			}
			key = idx.keyFor(value)
		}

		members, seen := idx.members[key]
		if !seen {
			idx.groups = append(idx.groups, key)
		}
		idx.memberPos[row] = len(members)
		idx.members[key] = append(members, row)
	}

	for pos, key := range idx.groups {
		for _, row := range idx.members[key] {
			idx.rowGroup[row] = pos
		}
	}

	return idx, nil
}

func (idx *Index) keyFor(value any) string {
	if isFalsy(value) {
		return idx.fallback
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// isFalsy reports whether a grouping value counts as empty: nil, "", false,
// numeric zero, or an empty slice, map or array.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Column returns the grouping column, or NoColumn.
func (idx *Index) Column() int {
	return idx.column
}

// Fallback returns the group name used for empty values.
func (idx *Index) Fallback() string {
	return idx.fallback
}

// SourceRows returns the number of rows indexed.
func (idx *Index) SourceRows() int {
	return len(idx.rowGroup)
}

// GroupCount returns the number of groups.
func (idx *Index) GroupCount() int {
	return len(idx.groups)
}

// GroupAt returns the key of the group at position i.
func (idx *Index) GroupAt(i int) (string, bool) {
	if i < 0 || i >= len(idx.groups) {
		return "", false
	}
	return idx.groups[i], true
}

// GroupPosition returns the position of a group key.
func (idx *Index) GroupPosition(key string) (int, bool) {
	members, ok := idx.members[key]
	if !ok || len(members) == 0 {
		return 0, false
	}
	return idx.rowGroup[members[0]], true
}

// GroupOf returns the key of the group holding a source row.
func (idx *Index) GroupOf(row int) (string, error) {
	if row < 0 || row >= len(idx.rowGroup) {
		return "", fmt.Errorf("source row %d: %w", row, model.ErrIndexOutOfRange)
	}
	return idx.groups[idx.rowGroup[row]], nil
}

// MemberPosition returns the position of a source row within its group.
func (idx *Index) MemberPosition(row int) (int, error) {
	if row < 0 || row >= len(idx.memberPos) {
		return 0, fmt.Errorf("source row %d: %w", row, model.ErrIndexOutOfRange)
	}
	return idx.memberPos[row], nil
}

// MemberCount returns the number of rows in a group, 0 for unknown keys.
func (idx *Index) MemberCount(key string) int {
	return len(idx.members[key])
}

// Members returns a copy of the source rows of a group, in source order.
func (idx *Index) Members(key string) []int {
	return append([]int(nil), idx.members[key]...)
}

// SourceRow returns the source row of the member-th member of the group at
// position group.
func (idx *Index) SourceRow(group, member int) (int, bool) {
	key, ok := idx.GroupAt(group)
	if !ok {
		return 0, false
	}
	members := idx.members[key]
	if member < 0 || member >= len(members) {
		return 0, false
	}
	return members[member], true
}
