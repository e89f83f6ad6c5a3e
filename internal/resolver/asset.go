package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/burrow/pkg/assetdb"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
// Set to 6 characters to balance usability with collision avoidance.
const MinShortIDLength = 6

// ResolveAsset finds the asset a user refers to by full ID, exact name, or
// unique ID prefix.
//
// The function handles three cases:
// 1. Input is a full UUID - must match an asset ID
// 2. Input is an exact asset name - returns that asset
// 3. Input is a short ID prefix (>= 6 chars) - scans asset IDs for a unique match
func ResolveAsset(ctx context.Context, repo assetdb.Repository, ref string) (*assetdb.Document, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("asset reference cannot be empty")
	}

	byName, err := repo.Find(ctx, assetdb.Query{Type: assetdb.TypeAsset, Name: ref})
	if err != nil {
		return nil, fmt.Errorf("failed to look up asset: %w", err)
	}
	if len(byName) == 1 {
		return byName[0], nil
	}

	assets, err := repo.Find(ctx, assetdb.Query{Type: assetdb.TypeAsset})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	// If input is already a full UUID, it must match exactly
	if len(ref) == 36 && strings.Count(ref, "-") == 4 {
		for _, a := range assets {
			if a.ID == ref {
				return a, nil
			}
		}
		return nil, &NotFoundError{Ref: ref}
	}

	if len(ref) < MinShortIDLength {
		return nil, &NotFoundError{Ref: ref}
	}

	var matches []*assetdb.Document
	for _, a := range assets {
		if strings.HasPrefix(a.ID, ref) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Ref: ref}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return nil, &AmbiguousError{Ref: ref, Matches: ids}
	}
}

// NotFoundError indicates no asset matched the reference.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no asset found matching '%s'", e.Ref)
}

// AmbiguousError indicates multiple assets matched the short ID.
type AmbiguousError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d assets", e.Ref, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous short IDs.
// Lists all matching UUIDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("Error: ambiguous short ID '%s' matches %d assets:\n", err.Ref, len(err.Matches))

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}

	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += "\nUse the asset name or a longer prefix to identify the asset."
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
