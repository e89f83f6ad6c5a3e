package filter

import (
	"path"
	"time"

	"github.com/dyluth/burrow/internal/timespec"
	"github.com/dyluth/burrow/pkg/assetdb"
)

// VersionTimeLayout is the compact UTC stamp hosts write into VersionData.Time.
const VersionTimeLayout = "20060102T150405Z"

// Criteria selects published versions. All set fields must match.
type Criteria struct {
	Window     timespec.Range
	FamilyGlob string // matched against every family of the version
	Author     string // exact
}

// Matches reports whether doc is a version passing every criterion.
func (c *Criteria) Matches(doc *assetdb.Document) bool {
	if doc.Type != assetdb.TypeVersion {
		return false
	}

	if !c.Window.IsZero() && !c.Window.Contains(PublishedAt(doc)) {
		return false
	}

	if c.FamilyGlob != "" && !c.matchesFamily(doc.Data) {
		return false
	}

	if c.Author != "" && (doc.Data == nil || doc.Data.Author != c.Author) {
		return false
	}

	return true
}

func (c *Criteria) matchesFamily(data *assetdb.VersionData) bool {
	if data == nil {
		return false
	}
	for _, fam := range data.Families {
		if ok, err := path.Match(c.FamilyGlob, fam); err == nil && ok {
			return true
		}
	}
	return false
}

// HasFilters reports whether any criterion is set.
func (c *Criteria) HasFilters() bool {
	return !c.Window.IsZero() || c.FamilyGlob != "" || c.Author != ""
}

// PublishedAt is the version's own time stamp when it parses, else the
// moment the database accepted the document.
func PublishedAt(doc *assetdb.Document) time.Time {
	if doc.Data != nil && doc.Data.Time != "" {
		if t, err := time.Parse(VersionTimeLayout, doc.Data.Time); err == nil {
			return t
		}
	}
	return time.UnixMilli(doc.CreatedAtMs).UTC()
}
