package assetdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// NextVersionName returns the name following latest in the zero-padded
// "vNNN" scheme. An empty latest yields "v001".
func NextVersionName(latest string) (string, error) {
	if latest == "" {
		return "v001", nil
	}

	n, err := strconv.Atoi(strings.TrimPrefix(latest, "v"))
	if err != nil || !strings.HasPrefix(latest, "v") {
		return "", fmt.Errorf("version name %q does not follow the vNNN scheme", latest)
	}
	return fmt.Sprintf("v%03d", n+1), nil
}

// NextVersion looks up the latest version of a subset and returns the name
// the next publish should use.
func NextVersion(ctx context.Context, repo Repository, subsetID string) (string, error) {
	latest, err := repo.FindOne(ctx, Query{Type: TypeVersion, Parent: subsetID}, ByNameDescending)
	if IsNotFound(err) {
		return NextVersionName("")
	}
	if err != nil {
		return "", err
	}
	return NextVersionName(latest.Name)
}
