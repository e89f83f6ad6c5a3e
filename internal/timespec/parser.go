// Package timespec parses the --since/--until values accepted by the CLI.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Range is a publish-time window. A zero bound is open.
type Range struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (r Range) Contains(t time.Time) bool {
	if !r.Since.IsZero() && t.Before(r.Since) {
		return false
	}
	if !r.Until.IsZero() && t.After(r.Until) {
		return false
	}
	return true
}

// IsZero reports whether both bounds are open.
func (r Range) IsZero() bool {
	return r.Since.IsZero() && r.Until.IsZero()
}

// Parse turns spec into an absolute time. Accepted forms:
//   - RFC3339: "2024-03-10T12:00:00Z"
//   - a date: "2024-03-10" (midnight UTC)
//   - a Go duration before now: "90m", "1h30m"
//   - whole days before now: "3d"
func Parse(spec string, now time.Time) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, spec); err == nil {
		return t, nil
	}

	if days, ok := strings.CutSuffix(spec, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or '3d', a date like '2024-03-10', or RFC3339)", spec)
}

// ParseRange parses --since and --until. Empty values leave that bound open.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.Since, err = Parse(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if r.Until, err = Parse(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !r.Since.IsZero() && !r.Until.IsZero() && !r.Since.Before(r.Until) {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}
