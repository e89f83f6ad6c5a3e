// Package subsets implements the flat source model of a loader: one row per
// subset of the selected asset, showing the data of its latest version.
package subsets

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/model"
	"github.com/dyluth/burrow/internal/nodestore"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/sirupsen/logrus"
)

// ErrVersionNotFound is returned when an edit names a version the subset does not have.
var ErrVersionNotFound = errors.New("version not found")

// DefaultSubsetIcon decorates the subset column.
const DefaultSubsetIcon = "fa.file-o"

// FamilyStyle is the presentation of one family.
type FamilyStyle struct {
	Label string
	Icon  string
}

// FamilyStyles maps family names to their presentation.
type FamilyStyles map[string]FamilyStyle

// Lookup returns the style of a family. The label falls back to the family name.
func (s FamilyStyles) Lookup(family string) FamilyStyle {
	style := s[family]
	if style.Label == "" {
		style.Label = family
	}
	return style
}

// Options configure a Model.
type Options struct {
	Families   FamilyStyles
	SubsetIcon string
	Logger     *logrus.Entry
}

// Model is the subsets source model. It implements model.Source.
type Model struct {
	repo       assetdb.Repository
	store      *nodestore.Store[*Record]
	signals    model.Signals
	assetID    string
	families   FamilyStyles
	subsetIcon string
	log        *logrus.Entry
}

var _ model.Source = (*Model)(nil)

// NewModel creates an empty model reading from repo.
func NewModel(repo assetdb.Repository, opts Options) *Model {
	icon := opts.SubsetIcon
	if icon == "" {
		icon = DefaultSubsetIcon
	}
	return &Model{
		repo:       repo,
		store:      nodestore.New[*Record](),
		families:   opts.Families,
		subsetIcon: icon,
		log:        logging.OrDiscard(opts.Logger),
	}
}

// AssetID returns the selected asset, or "" when none.
func (m *Model) AssetID() string {
	return m.assetID
}

// SetAsset selects an asset and refreshes. An empty id clears the model.
func (m *Model) SetAsset(ctx context.Context, assetID string) error {
	m.assetID = assetID
	return m.Refresh(ctx)
}

// Refresh rebuilds every row from the repository.
//
// Subsets without any version are skipped. A repository error aborts the
// refresh and leaves the model empty; the reset is completed either way.
func (m *Model) Refresh(ctx context.Context) error {
	rb := m.signals.BeginReset()
	defer rb.End()

	m.store.Clear()

	if m.assetID == "" {
		return nil
	}

	subsets, err := m.repo.Find(ctx, assetdb.Query{Type: assetdb.TypeSubset, Parent: m.assetID})
	if err != nil {
		return fmt.Errorf("failed to list subsets of asset %s: %w", m.assetID, err)
	}

	records := make([]*Record, 0, len(subsets))
	for _, subset := range subsets {
		latest, err := m.repo.FindOne(ctx, assetdb.Query{Type: assetdb.TypeVersion, Parent: subset.ID}, assetdb.ByNameDescending)
		if err != nil {
			if assetdb.IsNotFound(err) {
				m.log.WithField("subset", subset.Name).Debug("Skipping subset without published version")
				continue
			}
			return fmt.Errorf("failed to find latest version of subset %q: %w", subset.Name, err)
		}

		rec, err := NewRecord(subset)
		if err != nil {
			return err
		}
		if rec, err = m.applyVersion(rec, latest); err != nil {
			return err
		}
		records = append(records, rec)
	}

	for _, rec := range records {
		m.store.Append(m.store.Root(), rec)
	}

	logging.Event(m.log, "refresh_complete").WithFields(logrus.Fields{
		"asset":   m.assetID,
		"subsets": len(subsets),
		"rows":    len(records),
	}).Info("Refreshed subsets")

	return nil
}

// applyVersion returns a copy of rec carrying the data of version.
func (m *Model) applyVersion(rec *Record, version *assetdb.Document) (*Record, error) {
	if version.Parent != rec.ID {
		return nil, fmt.Errorf("version %s does not belong to subset %s", version.ID, rec.ID)
	}

	data := version.Data
	if data == nil {
		data = &assetdb.VersionData{}
	}

	next := *rec
	next.Version = version.Name
	next.VersionDocument = version
	next.Author = data.Author
	next.Time = data.Time
	next.StartFrame = data.StartFrame
	next.EndFrame = data.EndFrame
	next.Handles = data.Handles
	next.Step = data.Step

	if data.StartFrame != nil && data.EndFrame != nil {
		start, end := *data.StartFrame, *data.EndFrame
		duration := end - start + 1
		next.Frames = formatFrame(start) + "-" + formatFrame(end)
		next.Duration = &duration
	} else {
		next.Frames = UnknownMarker
		next.Duration = nil
	}

	next.Family = data.Family()
	style := m.families.Lookup(next.Family)
	next.FamilyLabel = style.Label
	next.FamilyIcon = style.Icon

	return &next, nil
}

// RowCount returns the number of subsets shown.
func (m *Model) RowCount() (int, error) {
	if err := m.signals.Check(); err != nil {
		return 0, err
	}
	return m.store.Len(m.store.Root()), nil
}

// ColumnCount returns the number of columns.
func (m *Model) ColumnCount() int {
	return len(Columns)
}

// Record returns the record at row.
func (m *Model) Record(row int) (*Record, error) {
	if err := m.signals.Check(); err != nil {
		return nil, err
	}
	h, ok := m.store.Child(m.store.Root(), row)
	if !ok {
		return nil, fmt.Errorf("row %d: %w", row, model.ErrIndexOutOfRange)
	}
	return m.store.Get(h), nil
}

// FindRow returns the row of the named subset.
func (m *Model) FindRow(subset string) (int, bool) {
	if m.signals.Resetting() {
		return 0, false
	}
	root := m.store.Root()
	for row := 0; row < m.store.Len(root); row++ {
		h, _ := m.store.Child(root, row)
		if m.store.Get(h).Subset == subset {
			return row, true
		}
	}
	return 0, false
}

// Data returns one facet of a cell.
func (m *Model) Data(row, column int, role model.Role) (any, error) {
	rec, err := m.Record(row)
	if err != nil {
		return nil, err
	}
	if column < 0 || column >= len(Columns) {
		return nil, fmt.Errorf("column %d: %w", column, model.ErrIndexOutOfRange)
	}

	switch role {
	case model.DisplayRole:
		return rec.Display(column)
	case model.EditRole:
		return rec.Field(column)
	case model.DecorationRole:
		switch column {
		case ColumnSubset:
			return m.subsetIcon, nil
		case ColumnFamily:
			if rec.FamilyIcon == "" {
				return nil, nil
			}
			return rec.FamilyIcon, nil
		}
		return nil, nil
	case model.NodeRole:
		return rec, nil
	default:
		return nil, nil
	}
}

// HeaderData returns the column key for display and edit roles.
func (m *Model) HeaderData(column int, role model.Role) (any, error) {
	if err := m.signals.Check(); err != nil {
		return nil, err
	}
	if column < 0 || column >= len(Columns) {
		return nil, fmt.Errorf("column %d: %w", column, model.ErrIndexOutOfRange)
	}
	if role != model.DisplayRole && role != model.EditRole {
		return nil, nil
	}
	return Columns[column], nil
}

// SetData edits a cell. Only the version column is editable: setting it to a
// version name loads that version and refreshes every version-derived field
// of the row. An unknown version leaves the row untouched.
func (m *Model) SetData(ctx context.Context, row, column int, value any) error {
	rec, err := m.Record(row)
	if err != nil {
		return err
	}
	if column != ColumnVersion {
		return fmt.Errorf("column %q: %w", columnName(column), model.ErrNotEditable)
	}

	name := fmt.Sprint(value)
	version, err := m.repo.FindOne(ctx, assetdb.Query{
		Type:   assetdb.TypeVersion,
		Parent: rec.ID,
		Name:   name,
	}, nil)
	if err != nil {
		if assetdb.IsNotFound(err) {
			return fmt.Errorf("%w: %q of subset %q", ErrVersionNotFound, name, rec.Subset)
		}
		return fmt.Errorf("failed to look up version %q of subset %q: %w", name, rec.Subset, err)
	}

	next, err := m.applyVersion(rec, version)
	if err != nil {
		return err
	}

	h, _ := m.store.Child(m.store.Root(), row)
	m.store.Set(h, next)

	logging.Event(m.log, "version_changed").WithFields(logrus.Fields{
		"subset": rec.Subset,
		"from":   rec.Version,
		"to":     next.Version,
	}).Info("Switched subset version")

	m.signals.EmitRowsChanged(row, row)
	return nil
}

// Flags marks every cell enabled and selectable; version cells are also editable.
func (m *Model) Flags(row, column int) model.Flags {
	if _, err := m.Record(row); err != nil {
		return 0
	}
	if column < 0 || column >= len(Columns) {
		return 0
	}
	flags := model.ItemEnabled | model.ItemSelectable
	if column == ColumnVersion {
		flags |= model.ItemEditable
	}
	return flags
}

// Subscribe registers a change listener.
func (m *Model) Subscribe(l model.Listener) {
	m.signals.Subscribe(l)
}

// Unsubscribe removes a change listener.
func (m *Model) Unsubscribe(l model.Listener) {
	m.signals.Unsubscribe(l)
}

func columnName(column int) string {
	if column < 0 || column >= len(Columns) {
		return fmt.Sprintf("#%d", column)
	}
	return Columns[column]
}
