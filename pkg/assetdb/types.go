package assetdb

import (
	"fmt"

	"github.com/google/uuid"
)

// DocumentType identifies which level of the asset hierarchy a document lives on.
type DocumentType string

const (
	// TypeAsset is a top-level asset (character, prop, shot)
	TypeAsset DocumentType = "asset"

	// TypeSubset is a named, versioned deliverable of an asset (model, rig, cache)
	TypeSubset DocumentType = "subset"

	// TypeVersion is one immutable snapshot of a subset's published data
	TypeVersion DocumentType = "version"
)

// Document is a single record in the asset database.
// Only version documents carry Data; Extra holds host-specific attributes
// that the loader passes through untouched.
type Document struct {
	ID          string            `json:"_id"`                // UUID - unique identifier
	Type        DocumentType      `json:"type"`               // asset, subset or version
	Name        string            `json:"name"`               // Unique among siblings of the same type
	Parent      string            `json:"parent,omitempty"`   // UUID of the parent document, empty for assets
	Data        *VersionData      `json:"data,omitempty"`     // Version payload (versions only)
	Extra       map[string]string `json:"extra,omitempty"`    // Host-specific extras
	CreatedAtMs int64             `json:"created_at_ms"`      // Unix timestamp in milliseconds when published
}

// VersionData is the published payload of a version document.
// Frame range fields are optional: a version published from a still-frame host
// has no range at all.
type VersionData struct {
	StartFrame *float64 `json:"startFrame,omitempty"`
	EndFrame   *float64 `json:"endFrame,omitempty"`
	Handles    *int     `json:"handles,omitempty"`
	Step       *int     `json:"step,omitempty"`
	Families   []string `json:"families,omitempty"`
	Author     string   `json:"author,omitempty"`
	Time       string   `json:"time,omitempty"`
	Comment    string   `json:"comment,omitempty"`
}

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.New().String()
}

// Float returns a pointer to v. Convenience for building VersionData literals.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Family returns the primary family of the version, or "" when none was published.
func (v *VersionData) Family() string {
	if v == nil || len(v.Families) == 0 {
		return ""
	}
	return v.Families[0]
}

// Validate checks if the VersionData has consistent field values.
func (v *VersionData) Validate() error {
	if v.StartFrame != nil && v.EndFrame != nil && *v.EndFrame < *v.StartFrame {
		return fmt.Errorf("end frame %v is before start frame %v", *v.EndFrame, *v.StartFrame)
	}

	if v.Step != nil && *v.Step < 1 {
		return fmt.Errorf("invalid step: must be >= 1, got %d", *v.Step)
	}

	if v.Handles != nil && *v.Handles < 0 {
		return fmt.Errorf("invalid handles: must be >= 0, got %d", *v.Handles)
	}

	for i, family := range v.Families {
		if family == "" {
			return fmt.Errorf("family at index %d cannot be empty", i)
		}
	}

	return nil
}

// Validate checks if the Document has valid field values.
// Returns an error if any validation fails.
func (d *Document) Validate() error {
	if !isValidUUID(d.ID) {
		return fmt.Errorf("invalid document ID: not a valid UUID")
	}

	if err := d.Type.Validate(); err != nil {
		return fmt.Errorf("invalid type: %w", err)
	}

	if d.Name == "" {
		return fmt.Errorf("document name cannot be empty")
	}

	switch d.Type {
	case TypeAsset:
		if d.Parent != "" {
			return fmt.Errorf("asset %q cannot have a parent", d.Name)
		}
	default:
		if !isValidUUID(d.Parent) {
			return fmt.Errorf("invalid parent ID for %s %q: not a valid UUID", d.Type, d.Name)
		}
	}

	if d.Type == TypeVersion {
		if d.Data == nil {
			return fmt.Errorf("version %q has no data", d.Name)
		}
		if err := d.Data.Validate(); err != nil {
			return fmt.Errorf("invalid data for version %q: %w", d.Name, err)
		}
	} else if d.Data != nil {
		return fmt.Errorf("%s %q cannot carry version data", d.Type, d.Name)
	}

	return nil
}

// Clone returns a deep copy so callers can never mutate stored documents.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	c := *d
	if d.Data != nil {
		data := *d.Data
		if d.Data.StartFrame != nil {
			data.StartFrame = Float(*d.Data.StartFrame)
		}
		if d.Data.EndFrame != nil {
			data.EndFrame = Float(*d.Data.EndFrame)
		}
		if d.Data.Handles != nil {
			data.Handles = Int(*d.Data.Handles)
		}
		if d.Data.Step != nil {
			data.Step = Int(*d.Data.Step)
		}
		data.Families = append([]string(nil), d.Data.Families...)
		c.Data = &data
	}
	if d.Extra != nil {
		c.Extra = make(map[string]string, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Validate checks if the DocumentType is a valid enum value.
func (t DocumentType) Validate() error {
	switch t {
	case TypeAsset, TypeSubset, TypeVersion:
		return nil
	default:
		return fmt.Errorf("unknown document type: %q", t)
	}
}

// ParentType returns the document type a document of type t must hang under.
// Assets have no parent type.
func (t DocumentType) ParentType() (DocumentType, bool) {
	switch t {
	case TypeSubset:
		return TypeAsset, true
	case TypeVersion:
		return TypeSubset, true
	default:
		return "", false
	}
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
