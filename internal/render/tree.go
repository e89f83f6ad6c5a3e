// Package render writes the grouped loader view as plain text or JSONL.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/burrow/internal/groupby"
	"github.com/dyluth/burrow/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxCellWidth caps the width of a table column.
const MaxCellWidth = 28

var titleCaser = cases.Title(language.English)

// Options control text rendering.
type Options struct {
	// Title names what is listed, e.g. the asset name.
	Title string
	// Collapsed hides the members of the listed group keys.
	Collapsed map[string]bool
}

// Group is one group header of a Snapshot with its member rows.
type Group struct {
	Key   string
	Label string
	Cells [][]string       // display strings per member, one per source column
	Raw   []map[string]any // raw values per member keyed by header, plus "group"
}

// Snapshot is a copy of everything a grouped view shows.
type Snapshot struct {
	Headers []string
	Groups  []Group
	Rows    int
}

// Collect walks the proxy from the root and copies every header and member.
func Collect(view *groupby.Proxy) (*Snapshot, error) {
	snap := &Snapshot{}

	for section := 1; section < view.ColumnCount(); section++ {
		h, err := view.HeaderData(section, model.DisplayRole)
		if err != nil {
			return nil, fmt.Errorf("failed to read header %d: %w", section, err)
		}
		snap.Headers = append(snap.Headers, fmt.Sprint(h))
	}

	groups, err := view.RowCount(groupby.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	for g := 0; g < groups; g++ {
		header, err := view.Index(g, 0, groupby.Root)
		if err != nil {
			return nil, err
		}
		label, err := view.Data(header, model.DisplayRole)
		if err != nil {
			return nil, err
		}
		node, err := view.Data(header, model.NodeRole)
		if err != nil {
			return nil, err
		}
		grp := Group{Label: fmt.Sprint(label)}
		if n, ok := node.(groupby.Group); ok {
			grp.Key = n.Key
		}

		members, err := view.RowCount(header)
		if err != nil {
			return nil, err
		}
		for m := 0; m < members; m++ {
			cells := make([]string, len(snap.Headers))
			raw := make(map[string]any, len(snap.Headers)+1)
			raw["group"] = grp.Key

			for c := range snap.Headers {
				pos, err := view.Index(m, c+1, header)
				if err != nil {
					return nil, err
				}
				display, err := view.Data(pos, model.DisplayRole)
				if err != nil {
					return nil, err
				}
				value, err := view.Data(pos, model.EditRole)
				if err != nil {
					return nil, err
				}
				cells[c] = displayString(display)
				raw[snap.Headers[c]] = value
			}
			grp.Cells = append(grp.Cells, cells)
			grp.Raw = append(grp.Raw, raw)
			snap.Rows++
		}
		snap.Groups = append(snap.Groups, grp)
	}

	return snap, nil
}

// Tree writes the grouped view as an aligned table with one line per group
// header. Returns the number of member rows written.
func Tree(w io.Writer, view *groupby.Proxy, opts Options) (int, error) {
	snap, err := Collect(view)
	if err != nil {
		return 0, err
	}

	if snap.Rows == 0 {
		if opts.Title != "" {
			fmt.Fprintf(w, "No subsets found for asset '%s'\n", opts.Title)
		} else {
			fmt.Fprintln(w, "No subsets found")
		}
		return 0, nil
	}

	if opts.Title != "" {
		fmt.Fprintf(w, "Subsets for asset '%s' (grouped by %s):\n\n", opts.Title, view.GroupBy())
	}

	widths := ColumnWidths(snap)

	titles := make([]string, len(snap.Headers))
	rules := make([]string, len(snap.Headers))
	for i, h := range snap.Headers {
		titles[i] = HeaderTitle(h)
		rules[i] = strings.Repeat("-", widths[i])
	}
	writeRow(w, "  ", titles, widths)
	writeRow(w, "  ", rules, widths)

	for _, g := range snap.Groups {
		marker := "▾"
		if opts.Collapsed[g.Key] {
			marker = "▸"
		}
		fmt.Fprintf(w, "%s %s\n", marker, g.Label)
		if opts.Collapsed[g.Key] {
			continue
		}
		for _, cells := range g.Cells {
			writeRow(w, "  ", cells, widths)
		}
	}

	rowMsg := "subset"
	if snap.Rows != 1 {
		rowMsg = "subsets"
	}
	groupMsg := "group"
	if len(snap.Groups) != 1 {
		groupMsg = "groups"
	}
	fmt.Fprintf(w, "\n%d %s in %d %s\n", snap.Rows, rowMsg, len(snap.Groups), groupMsg)

	return snap.Rows, nil
}

// JSONL writes one JSON object per member row, keyed by column name plus
// "group". Values are the raw cell values.
func JSONL(w io.Writer, view *groupby.Proxy) error {
	snap, err := Collect(view)
	if err != nil {
		return err
	}

	for _, g := range snap.Groups {
		for _, raw := range g.Raw {
			data, err := json.Marshal(raw)
			if err != nil {
				return fmt.Errorf("failed to marshal row to JSON: %w", err)
			}

			if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
				return fmt.Errorf("failed to write JSONL output: %w", err)
			}
		}
	}

	return nil
}

// ColumnWidths sizes each column to its widest cell, capped at MaxCellWidth.
func ColumnWidths(snap *Snapshot) []int {
	widths := make([]int, len(snap.Headers))
	for i, h := range snap.Headers {
		widths[i] = len(h)
	}
	for _, g := range snap.Groups {
		for _, cells := range g.Cells {
			for i, c := range cells {
				if n := len([]rune(c)); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}
	for i := range widths {
		if widths[i] > MaxCellWidth {
			widths[i] = MaxCellWidth
		}
	}
	return widths
}

func writeRow(w io.Writer, indent string, cells []string, widths []int) {
	fmt.Fprintf(w, "%s%s\n", indent, FormatRow(cells, widths))
}

// FormatRow pads and truncates cells to widths and joins them.
func FormatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], truncate(c, widths[i]))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// HeaderTitle formats a column header for display.
func HeaderTitle(h string) string {
	return titleCaser.String(h)
}

// truncate shortens s to width runes, ending in "..." when cut.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// displayString renders a cell for the table. Empty cells show "-".
func displayString(v any) string {
	if v == nil {
		return "-"
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "-"
	}
	return s
}
