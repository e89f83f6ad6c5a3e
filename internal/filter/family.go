// Package filter provides the family filter view that sits between the subsets
// model and the group-by proxy, and the criteria used to select published
// versions by time, family and author.
package filter

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/model"
	"github.com/sirupsen/logrus"
)

// familyNode is implemented by source records that know their family.
type familyNode interface {
	FamilyName() string
}

// FamilyView hides source rows whose family is outside an allow-set.
//
// An empty allow-set hides every row that has a family. Rows whose family
// cannot be determined are always shown. Allow-set entries may be glob
// patterns ("avalon.*").
type FamilyView struct {
	source   model.Source
	allowed  []string
	visible  []int
	signals  model.Signals
	pending  *model.Rebuild
	listener *sourceListener
	log      *logrus.Entry
}

var _ model.Source = (*FamilyView)(nil)

// NewFamilyView creates a filter view allowing the given families.
func NewFamilyView(families []string, log *logrus.Entry) *FamilyView {
	return &FamilyView{
		allowed: normalize(families),
		log:     logging.OrDiscard(log),
	}
}

// SetSourceModel attaches the view to src and rebuilds.
func (v *FamilyView) SetSourceModel(src model.Source) {
	rb := v.signals.BeginReset()
	defer rb.End()

	if src != v.source {
		if v.listener != nil {
			v.source.Unsubscribe(v.listener)
			v.listener = nil
		}
		if src != nil {
			v.listener = &sourceListener{view: v, src: src}
			src.Subscribe(v.listener)
		}
	}
	v.source = src
	v.rebuild()
}

// SourceModel returns the attached source, or nil.
func (v *FamilyView) SourceModel() model.Source {
	return v.source
}

// SetFamilyFilter replaces the allow-set and re-evaluates every row.
func (v *FamilyView) SetFamilyFilter(families []string) {
	rb := v.signals.BeginReset()
	defer rb.End()

	v.allowed = normalize(families)
	v.rebuild()

	v.log.WithField("families", strings.Join(v.allowed, ",")).Debug("Family filter changed")
}

// FamilyFilter returns a copy of the allow-set, sorted.
func (v *FamilyView) FamilyFilter() []string {
	return append([]string(nil), v.allowed...)
}

// FilterAcceptsRow reports whether a source row passes the filter.
func (v *FamilyView) FilterAcceptsRow(sourceRow int) bool {
	family, ok := v.familyOf(sourceRow)
	if !ok {
		return true
	}
	return v.Accepts(family)
}

// Accepts reports whether rows of family pass the filter. Rows without a
// family always pass.
func (v *FamilyView) Accepts(family string) bool {
	if family == "" {
		return true
	}
	for _, pattern := range v.allowed {
		if matched, err := path.Match(pattern, family); err == nil && matched {
			return true
		}
	}
	return false
}

// familyOf determines the family of a source row, first from the row node and
// then from a column headed "family".
func (v *FamilyView) familyOf(sourceRow int) (string, bool) {
	if v.source == nil {
		return "", false
	}

	node, err := v.source.Data(sourceRow, 0, model.NodeRole)
	if err != nil {
		return "", false
	}
	if n, ok := node.(familyNode); ok {
		return n.FamilyName(), true
	}

	for col := 0; col < v.source.ColumnCount(); col++ {
		header, err := v.source.HeaderData(col, model.DisplayRole)
		if err != nil || fmt.Sprint(header) != "family" {
			continue
		}
		value, err := v.source.Data(sourceRow, col, model.EditRole)
		if err != nil || value == nil {
			return "", false
		}
		return fmt.Sprint(value), true
	}
	return "", false
}

func (v *FamilyView) rebuild() {
	v.visible = v.visible[:0]
	if v.source == nil {
		return
	}

	rows, err := v.source.RowCount()
	if err != nil {
		v.log.WithError(err).Warn("Failed to read source row count")
		return
	}

	for row := 0; row < rows; row++ {
		if v.FilterAcceptsRow(row) {
			v.visible = append(v.visible, row)
		}
	}

	v.log.WithFields(logrus.Fields{
		"source_rows":  rows,
		"visible_rows": len(v.visible),
	}).Debug("Filter rebuilt")
}

// MapToSource returns the source row shown at row.
func (v *FamilyView) MapToSource(row int) (int, error) {
	if err := v.signals.Check(); err != nil {
		return 0, err
	}
	if row < 0 || row >= len(v.visible) {
		return 0, fmt.Errorf("row %d: %w", row, model.ErrIndexOutOfRange)
	}
	return v.visible[row], nil
}

// MapFromSource returns the view row of a source row. ok is false for hidden rows.
func (v *FamilyView) MapFromSource(sourceRow int) (int, bool) {
	if v.signals.Resetting() {
		return 0, false
	}
	i := sort.SearchInts(v.visible, sourceRow)
	if i < len(v.visible) && v.visible[i] == sourceRow {
		return i, true
	}
	return 0, false
}

// RowCount returns the number of visible rows.
func (v *FamilyView) RowCount() (int, error) {
	if err := v.signals.Check(); err != nil {
		return 0, err
	}
	return len(v.visible), nil
}

// ColumnCount returns the source column count.
func (v *FamilyView) ColumnCount() int {
	if v.source == nil {
		return 0
	}
	return v.source.ColumnCount()
}

// Data returns the source data of a visible cell.
func (v *FamilyView) Data(row, column int, role model.Role) (any, error) {
	src, err := v.MapToSource(row)
	if err != nil {
		return nil, err
	}
	return v.source.Data(src, column, role)
}

// HeaderData forwards to the source.
func (v *FamilyView) HeaderData(column int, role model.Role) (any, error) {
	if err := v.signals.Check(); err != nil {
		return nil, err
	}
	if v.source == nil {
		return nil, fmt.Errorf("column %d: %w", column, model.ErrIndexOutOfRange)
	}
	return v.source.HeaderData(column, role)
}

// SetData forwards an edit to the source.
func (v *FamilyView) SetData(ctx context.Context, row, column int, value any) error {
	src, err := v.MapToSource(row)
	if err != nil {
		return err
	}
	return v.source.SetData(ctx, src, column, value)
}

// Flags forwards to the source.
func (v *FamilyView) Flags(row, column int) model.Flags {
	src, err := v.MapToSource(row)
	if err != nil {
		return 0
	}
	return v.source.Flags(src, column)
}

// Subscribe registers a change listener.
func (v *FamilyView) Subscribe(l model.Listener) {
	v.signals.Subscribe(l)
}

// Unsubscribe removes a change listener.
func (v *FamilyView) Unsubscribe(l model.Listener) {
	v.signals.Unsubscribe(l)
}

// sourceListener relays source notifications. Notifications from a source the
// view has since been detached from are ignored.
type sourceListener struct {
	view *FamilyView
	src  model.Source
}

func (l *sourceListener) ModelAboutToReset() {
	if l.src != l.view.source || l.view.pending != nil {
		return
	}
	l.view.pending = l.view.signals.BeginReset()
}

func (l *sourceListener) ModelReset() {
	v := l.view
	if l.src != v.source {
		return
	}
	rb := v.pending
	v.pending = nil
	if rb == nil {
		rb = v.signals.BeginReset()
	}
	v.rebuild()
	rb.End()
}

// RowsChanged rebuilds: an edited row may have moved in or out of the allow-set.
func (l *sourceListener) RowsChanged(first, last int) {
	v := l.view
	if l.src != v.source {
		return
	}
	rb := v.signals.BeginReset()
	v.rebuild()
	rb.End()
}

func normalize(families []string) []string {
	seen := make(map[string]bool, len(families))
	out := make([]string, 0, len(families))
	for _, f := range families {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
