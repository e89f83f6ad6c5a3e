package groupby

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/model"
	"github.com/sirupsen/logrus"
)

// ErrUnknownColumn is returned when a group-by name matches no source column.
var ErrUnknownColumn = errors.New("unknown group-by column")

// NoneSelector is the group-by name that disables grouping.
const NoneSelector = "none"

// Kind tells which level of the tree a Position addresses.
type Kind uint8

const (
	KindRoot Kind = iota
	KindHeader
	KindMember
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindHeader:
		return "header"
	case KindMember:
		return "member"
	default:
		return "unknown"
	}
}

// Position addresses one cell of the proxy tree. Positions are only valid in
// the generation that issued them; the zero Position is the root and is valid
// in every generation.
type Position struct {
	kind   Kind
	group  int
	member int
	column int
	gen    uint64
}

// Root is the invisible parent of every header row.
var Root = Position{}

// Kind returns the level addressed.
func (p Position) Kind() Kind { return p.kind }

// IsRoot reports whether p is the root.
func (p Position) IsRoot() bool { return p.kind == KindRoot }

// IsHeader reports whether p is a group header row.
func (p Position) IsHeader() bool { return p.kind == KindHeader }

// IsMember reports whether p is a member row.
func (p Position) IsMember() bool { return p.kind == KindMember }

// Group returns the group position of a header or member.
func (p Position) Group() int { return p.group }

// Row returns the row of p under its parent.
func (p Position) Row() int {
	if p.kind == KindMember {
		return p.member
	}
	return p.group
}

// Column returns the proxy column. Column 0 is the synthetic group column.
func (p Position) Column() int { return p.column }

func (p Position) String() string {
	switch p.kind {
	case KindHeader:
		return fmt.Sprintf("header(%d):%d", p.group, p.column)
	case KindMember:
		return fmt.Sprintf("member(%d/%d):%d", p.group, p.member, p.column)
	default:
		return "root"
	}
}

// Group is returned by Data with model.NodeRole on a header row.
type Group struct {
	Key   string
	Count int
}

// Options configure a Proxy.
type Options struct {
	GroupBy  string
	Fallback string
	Logger   *logrus.Entry
}

// Proxy presents a flat source as groups of rows, with one synthetic leading
// column holding the group headers.
//
// Without a source the proxy is empty and every query is valid. The proxy
// listens to its source and rebuilds fully on any reset or row change.
type Proxy struct {
	source      model.Source
	index       *Index
	groupBy     string
	groupColumn int
	groupHeader string
	fallback    string
	signals     model.Signals
	pending     *model.Rebuild
	listener    *sourceListener
	log         *logrus.Entry
}

// NewProxy creates an empty proxy.
func NewProxy(opts Options) *Proxy {
	fallback := opts.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}
	p := &Proxy{
		groupBy:     opts.GroupBy,
		groupColumn: NoColumn,
		fallback:    fallback,
		log:         logging.OrDiscard(opts.Logger),
	}
	p.index, _ = BuildIndex(nil, NoColumn, fallback)
	return p
}

// SetSourceModel attaches the proxy to src and rebuilds. The configured
// group-by name must resolve against the new source; otherwise the proxy is
// left untouched and ErrUnknownColumn is returned.
func (p *Proxy) SetSourceModel(src model.Source) error {
	column, header := NoColumn, ""
	if src != nil {
		var err error
		if column, header, err = resolveColumn(src, p.groupBy); err != nil {
			return err
		}
	}

	rb := p.signals.BeginReset()
	defer rb.End()

	if src != p.source {
		if p.listener != nil {
			p.source.Unsubscribe(p.listener)
			p.listener = nil
		}
		if src != nil {
			p.listener = &sourceListener{proxy: p, src: src}
			src.Subscribe(p.listener)
		}
	}
	p.source = src
	p.groupColumn = column
	p.groupHeader = header
	p.rebuild()
	return nil
}

// SourceModel returns the attached source, or nil.
func (p *Proxy) SourceModel() model.Source {
	return p.source
}

// SetGroupBy regroups by the named source column. "" and "none" disable
// grouping. Names match source headers case-insensitively. An unknown name
// returns ErrUnknownColumn and leaves the view untouched.
func (p *Proxy) SetGroupBy(name string) error {
	if p.source == nil {
		if !isNone(name) {
			p.log.WithField("group_by", name).Debug("Group-by stored until a source is attached")
		}
		p.groupBy = name
		return nil
	}

	column, header, err := resolveColumn(p.source, name)
	if err != nil {
		return err
	}

	rb := p.signals.BeginReset()
	defer rb.End()

	p.groupBy = name
	p.groupColumn = column
	p.groupHeader = header
	p.rebuild()

	logging.Event(p.log, "group_by_changed").WithFields(logrus.Fields{
		"group_by": p.GroupBy(),
		"groups":   p.index.GroupCount(),
	}).Info("Regrouped view")
	return nil
}

// GroupBy returns the resolved grouping column name, or "none".
func (p *Proxy) GroupBy() string {
	if p.groupColumn == NoColumn {
		if p.source == nil && !isNone(p.groupBy) {
			return p.groupBy
		}
		return NoneSelector
	}
	return p.groupHeader
}

// GroupIndex returns the current grouping index.
func (p *Proxy) GroupIndex() *Index {
	return p.index
}

// Generation returns the number of completed rebuilds.
func (p *Proxy) Generation() uint64 {
	return p.signals.Generation()
}

func (p *Proxy) rebuild() {
	idx, err := BuildIndex(p.source, p.groupColumn, p.fallback)
	if err != nil {
		p.log.WithError(err).Warn("Failed to build group index, showing no rows")
		idx, _ = BuildIndex(nil, p.groupColumn, p.fallback)
	}
	p.index = idx

	p.log.WithFields(logrus.Fields{
		"group_by": p.GroupBy(),
		"groups":   idx.GroupCount(),
		"rows":     idx.SourceRows(),
	}).Debug("Group index rebuilt")
}

// validate panics on positions from an earlier generation.
func (p *Proxy) validate(pos Position) {
	if pos.kind == KindRoot {
		return
	}
	if pos.gen != p.signals.Generation() {
		panic(fmt.Sprintf("groupby: stale position %s from generation %d (current %d)", pos, pos.gen, p.signals.Generation()))
	}
}

// Index returns the position of the row-th child of parent at column.
func (p *Proxy) Index(row, column int, parent Position) (Position, error) {
	if err := p.signals.Check(); err != nil {
		return Root, err
	}
	p.validate(parent)

	if column < 0 || column >= p.ColumnCount() {
		return Root, fmt.Errorf("column %d: %w", column, model.ErrIndexOutOfRange)
	}

	gen := p.signals.Generation()
	switch parent.kind {
	case KindRoot:
		if row < 0 || row >= p.index.GroupCount() {
			return Root, fmt.Errorf("group row %d: %w", row, model.ErrIndexOutOfRange)
		}
		return Position{kind: KindHeader, group: row, column: column, gen: gen}, nil
	case KindHeader:
		if _, ok := p.index.SourceRow(parent.group, row); !ok {
			return Root, fmt.Errorf("member row %d of group %d: %w", row, parent.group, model.ErrIndexOutOfRange)
		}
		return Position{kind: KindMember, group: parent.group, member: row, column: column, gen: gen}, nil
	default:
		return Root, fmt.Errorf("member rows have no children: %w", model.ErrIndexOutOfRange)
	}
}

// Parent returns the root for headers and the owning header (column 0) for
// members in any column.
func (p *Proxy) Parent(pos Position) Position {
	p.validate(pos)
	if pos.kind != KindMember {
		return Root
	}
	return Position{kind: KindHeader, group: pos.group, gen: pos.gen}
}

// MapToSource returns the source cell behind a member position. Headers,
// column 0 and invalid groups have no source cell.
func (p *Proxy) MapToSource(pos Position) (model.Cell, bool) {
	if p.signals.Resetting() {
		return model.Cell{}, false
	}
	p.validate(pos)

	if pos.kind != KindMember || pos.column == 0 {
		return model.Cell{}, false
	}
	row, ok := p.index.SourceRow(pos.group, pos.member)
	if !ok {
		return model.Cell{}, false
	}
	return model.Cell{Row: row, Column: pos.column - 1}, true
}

// MapFromSource returns the member position showing a source cell.
func (p *Proxy) MapFromSource(cell model.Cell) (Position, error) {
	if err := p.signals.Check(); err != nil {
		return Root, err
	}
	if p.source == nil || cell.Column < 0 || cell.Column >= p.source.ColumnCount() {
		return Root, fmt.Errorf("source column %d: %w", cell.Column, model.ErrIndexOutOfRange)
	}

	key, err := p.index.GroupOf(cell.Row)
	if err != nil {
		return Root, err
	}
	group, ok := p.index.GroupPosition(key)
	if !ok {
		return Root, fmt.Errorf("group %q: %w", key, model.ErrIndexOutOfRange)
	}
	member, err := p.index.MemberPosition(cell.Row)
	if err != nil {
		return Root, err
	}

	return Position{
		kind:   KindMember,
		group:  group,
		member: member,
		column: cell.Column + 1,
		gen:    p.signals.Generation(),
	}, nil
}

// Data returns one facet of a cell. Member cells past column 0 come from the
// source; header cells in column 0 carry the group label.
func (p *Proxy) Data(pos Position, role model.Role) (any, error) {
	if err := p.signals.Check(); err != nil {
		return nil, err
	}
	p.validate(pos)

	switch pos.kind {
	case KindMember:
		cell, ok := p.MapToSource(pos)
		if !ok {
			return nil, nil
		}
		return p.source.Data(cell.Row, cell.Column, role)
	case KindHeader:
		if pos.column != 0 {
			return nil, nil
		}
		key, ok := p.index.GroupAt(pos.group)
		if !ok {
			return nil, fmt.Errorf("group %d: %w", pos.group, model.ErrIndexOutOfRange)
		}
		switch role {
		case model.DisplayRole, model.EditRole:
			return p.groupLabel(key), nil
		case model.NodeRole:
			return Group{Key: key, Count: p.index.MemberCount(key)}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func (p *Proxy) groupLabel(key string) string {
	count := p.index.MemberCount(key)
	if p.groupColumn == NoColumn {
		return fmt.Sprintf("All (%d)", count)
	}
	if key == "" {
		key = p.fallback
	}
	return fmt.Sprintf("%s: %s (%d)", p.groupHeader, key, count)
}

// HeaderData returns "*" for the synthetic column and the source header of
// section-1 otherwise.
func (p *Proxy) HeaderData(section int, role model.Role) (any, error) {
	if err := p.signals.Check(); err != nil {
		return nil, err
	}
	if section < 0 || section >= p.ColumnCount() {
		return nil, fmt.Errorf("section %d: %w", section, model.ErrIndexOutOfRange)
	}
	if section == 0 {
		if role == model.DisplayRole || role == model.EditRole {
			return "*", nil
		}
		return nil, nil
	}
	return p.source.HeaderData(section-1, role)
}

// RowCount returns the number of children of parent.
func (p *Proxy) RowCount(parent Position) (int, error) {
	if err := p.signals.Check(); err != nil {
		return 0, err
	}
	p.validate(parent)

	switch parent.kind {
	case KindRoot:
		return p.index.GroupCount(), nil
	case KindHeader:
		if parent.column != 0 {
			return 0, nil
		}
		key, _ := p.index.GroupAt(parent.group)
		return p.index.MemberCount(key), nil
	default:
		return 0, nil
	}
}

// HasChildren reports whether parent has at least one child.
func (p *Proxy) HasChildren(parent Position) (bool, error) {
	n, err := p.RowCount(parent)
	return n > 0, err
}

// ColumnCount returns the source column count plus the synthetic column, or
// 0 without a source.
func (p *Proxy) ColumnCount() int {
	if p.source == nil {
		return 0
	}
	return p.source.ColumnCount() + 1
}

// Flags marks headers enabled only; member cells forward to the source.
func (p *Proxy) Flags(pos Position) model.Flags {
	if p.signals.Resetting() {
		return 0
	}
	p.validate(pos)

	switch pos.kind {
	case KindHeader:
		return model.ItemEnabled
	case KindMember:
		cell, ok := p.MapToSource(pos)
		if !ok {
			return model.ItemEnabled | model.ItemSelectable
		}
		return p.source.Flags(cell.Row, cell.Column)
	default:
		return 0
	}
}

// SetData forwards an edit of a member cell to the source.
func (p *Proxy) SetData(ctx context.Context, pos Position, value any) error {
	if err := p.signals.Check(); err != nil {
		return err
	}
	cell, ok := p.MapToSource(pos)
	if !ok {
		return fmt.Errorf("position %s: %w", pos, model.ErrNotEditable)
	}
	return p.source.SetData(ctx, cell.Row, cell.Column, value)
}

// Subscribe registers a change listener.
func (p *Proxy) Subscribe(l model.Listener) {
	p.signals.Subscribe(l)
}

// Unsubscribe removes a change listener.
func (p *Proxy) Unsubscribe(l model.Listener) {
	p.signals.Unsubscribe(l)
}

// resolveColumn maps a group-by name onto a source column.
func resolveColumn(src model.Source, name string) (int, string, error) {
	if isNone(name) {
		return NoColumn, "", nil
	}

	available := make([]string, 0, src.ColumnCount())
	for col := 0; col < src.ColumnCount(); col++ {
		header, err := src.HeaderData(col, model.DisplayRole)
		if err != nil {
			return NoColumn, "", fmt.Errorf("failed to read header %d: %w", col, err)
		}
		h := fmt.Sprint(header)
		if strings.EqualFold(h, strings.TrimSpace(name)) {
			return col, h, nil
		}
		available = append(available, h)
	}

	return NoColumn, "", fmt.Errorf("%w: %q (available: %s, %s)", ErrUnknownColumn, name, strings.Join(available, ", "), NoneSelector)
}

func isNone(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, NoneSelector)
}

// sourceListener relays source notifications. Notifications from a source the
// proxy has since been detached from are ignored.
type sourceListener struct {
	proxy *Proxy
	src   model.Source
}

func (l *sourceListener) ModelAboutToReset() {
	if l.src != l.proxy.source || l.proxy.pending != nil {
		return
	}
	l.proxy.pending = l.proxy.signals.BeginReset()
}

func (l *sourceListener) ModelReset() {
	p := l.proxy
	if l.src != p.source {
		return
	}
	rb := p.pending
	p.pending = nil
	if rb == nil {
		rb = p.signals.BeginReset()
	}
	p.rebuild()
	rb.End()
}

// RowsChanged regroups: the edited row may now belong to another group.
func (l *sourceListener) RowsChanged(first, last int) {
	p := l.proxy
	if l.src != p.source {
		return
	}
	rb := p.signals.BeginReset()
	p.rebuild()
	rb.End()
}
