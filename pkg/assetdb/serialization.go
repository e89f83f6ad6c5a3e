package assetdb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Scalar identity fields are stored as individual hash fields so they stay
// inspectable with redis-cli; the version payload and extras are JSON-encoded.

// DocumentToHash converts a Document to a Redis hash format.
func DocumentToHash(d *Document) (map[string]interface{}, error) {
	hash := map[string]interface{}{
		"id":            d.ID,
		"type":          string(d.Type),
		"name":          d.Name,
		"parent":        d.Parent,
		"created_at_ms": d.CreatedAtMs,
		"data":          "",
		"extra":         "",
	}

	if d.Data != nil {
		dataJSON, err := json.Marshal(d.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
		hash["data"] = string(dataJSON)
	}

	if len(d.Extra) > 0 {
		extraJSON, err := json.Marshal(d.Extra)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extra: %w", err)
		}
		hash["extra"] = string(extraJSON)
	}

	return hash, nil
}

// HashToDocument converts a Redis hash to a Document.
// JSON fields are decoded back to Go types.
func HashToDocument(hash map[string]string) (*Document, error) {
	var data *VersionData
	if dataJSON := hash["data"]; dataJSON != "" {
		data = &VersionData{}
		if err := json.Unmarshal([]byte(dataJSON), data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}

	var extra map[string]string
	if extraJSON := hash["extra"]; extraJSON != "" {
		if err := json.Unmarshal([]byte(extraJSON), &extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	doc := &Document{
		ID:          hash["id"],
		Type:        DocumentType(hash["type"]),
		Name:        hash["name"],
		Parent:      hash["parent"],
		Data:        data,
		Extra:       extra,
		CreatedAtMs: createdAtMs,
	}

	return doc, nil
}
