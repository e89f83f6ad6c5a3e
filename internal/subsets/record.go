package subsets

import (
	"fmt"
	"strconv"

	"github.com/dyluth/burrow/internal/model"
	"github.com/dyluth/burrow/pkg/assetdb"
)

// Column keys, in display order.
const (
	ColumnSubset = iota
	ColumnFamily
	ColumnVersion
	ColumnTime
	ColumnAuthor
	ColumnFrames
	ColumnDuration
	ColumnHandles
	ColumnStep
)

// Columns are the header names of the subsets model.
var Columns = []string{
	"subset",
	"family",
	"version",
	"time",
	"author",
	"frames",
	"duration",
	"handles",
	"step",
}

// UnknownMarker replaces frames and duration when a version has no frame range.
const UnknownMarker = "unknown"

// Record is one subset row with the data of its current version applied.
// Records are immutable once stored; an edit builds a new record.
type Record struct {
	ID     string
	Subset string

	Family      string
	FamilyLabel string
	FamilyIcon  string

	Version    string
	Time       string
	Author     string
	Frames     string
	Duration   *float64
	Handles    *int
	Step       *int
	StartFrame *float64
	EndFrame   *float64

	VersionDocument *assetdb.Document
	Extra           map[string]string
}

// NewRecord builds a record for a subset document. Version fields stay empty
// until a version is applied.
func NewRecord(subset *assetdb.Document) (*Record, error) {
	if subset == nil {
		return nil, fmt.Errorf("subset document is nil")
	}
	if subset.Type != assetdb.TypeSubset {
		return nil, fmt.Errorf("document %s is a %s, not a subset", subset.ID, subset.Type)
	}
	if err := subset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subset document: %w", err)
	}

	extra := make(map[string]string, len(subset.Extra))
	for k, v := range subset.Extra {
		extra[k] = v
	}

	return &Record{
		ID:     subset.ID,
		Subset: subset.Name,
		Extra:  extra,
	}, nil
}

// FamilyName returns the primary family of the record, or "" when none.
func (r *Record) FamilyName() string {
	return r.Family
}

// Field returns the raw value of a column. Missing optional numbers are nil;
// a missing duration is UnknownMarker.
func (r *Record) Field(column int) (any, error) {
	switch column {
	case ColumnSubset:
		return r.Subset, nil
	case ColumnFamily:
		return r.Family, nil
	case ColumnVersion:
		return r.Version, nil
	case ColumnTime:
		return r.Time, nil
	case ColumnAuthor:
		return r.Author, nil
	case ColumnFrames:
		return r.Frames, nil
	case ColumnDuration:
		if r.Duration == nil {
			return UnknownMarker, nil
		}
		return *r.Duration, nil
	case ColumnHandles:
		return intValue(r.Handles), nil
	case ColumnStep:
		return intValue(r.Step), nil
	default:
		return nil, fmt.Errorf("column %d: %w", column, model.ErrIndexOutOfRange)
	}
}

// Display returns the display string of a column. The family column shows the
// family label.
func (r *Record) Display(column int) (string, error) {
	switch column {
	case ColumnFamily:
		return r.FamilyLabel, nil
	case ColumnDuration:
		if r.Duration == nil {
			return UnknownMarker, nil
		}
		return formatFrame(*r.Duration), nil
	case ColumnHandles:
		return formatInt(r.Handles), nil
	case ColumnStep:
		return formatInt(r.Step), nil
	}

	v, err := r.Field(column)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// formatFrame drops superfluous zeros so 1001.0 reads as "1001".
func formatFrame(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
