package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dyluth/burrow/internal/filter"
	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/internal/resolver"
	"github.com/dyluth/burrow/internal/timespec"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/spf13/cobra"
)

// historyEntry is one published version in history output.
type historyEntry struct {
	Subset    string    `json:"subset"`
	Version   string    `json:"version"`
	Published time.Time `json:"published"`
	Families  []string  `json:"families,omitempty"`
	Author    string    `json:"author,omitempty"`
	Comment   string    `json:"comment,omitempty"`
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		since, until string
		subset       string
		criteria     filter.Criteria
		output       string
	)

	cmd := &cobra.Command{
		Use:   "history ASSET",
		Short: "List every published version of an asset, newest first",
		Long: `List every version published under an asset, newest first.

Unlike 'ls', which shows only the latest version of each subset, history
shows all of them and can be narrowed by publish time, family and author.

Examples:
  # Everything published in the last three days
  burrow history hero --since 3d

  # Every version of one subset
  burrow history hero --subset animMain

  # Animation caches by sam during one week
  burrow history hero --since 2024-03-10 --until 2024-03-17 --family 'avalon.*cache' --author sam`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "default" && output != "jsonl" {
				return printer.Error(
					"invalid output format",
					"Unknown format: "+output,
					[]string{"Valid formats: default, jsonl"},
				)
			}

			window, err := timespec.ParseRange(since, until, time.Now())
			if err != nil {
				return printer.Error("invalid time range", err.Error(), nil)
			}
			criteria.Window = window

			ctx := context.Background()
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			asset, err := resolver.ResolveAsset(ctx, client, args[0])
			if err != nil {
				return assetError(args[0], err)
			}

			entries, err := collectHistory(ctx, client, asset, subset, &criteria)
			if err != nil {
				return fmt.Errorf("failed to read history of '%s': %w", asset.Name, err)
			}

			out := cmd.OutOrStdout()
			if output == "jsonl" {
				enc := json.NewEncoder(out)
				for _, e := range entries {
					if err := enc.Encode(e); err != nil {
						return fmt.Errorf("failed to write JSONL output: %w", err)
					}
				}
				return nil
			}

			if len(entries) == 0 {
				if criteria.HasFilters() || subset != "" {
					printer.Info("No versions of '%s' match the filters\n", asset.Name)
				} else {
					printer.Info("No versions published for asset '%s'\n", asset.Name)
				}
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PUBLISHED\tSUBSET\tVERSION\tFAMILY\tAUTHOR\tCOMMENT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Published.Format("2006-01-02 15:04"), e.Subset, e.Version,
					dash(strings.Join(e.Families, ",")), dash(e.Author), dash(e.Comment))
			}
			return w.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&since, "since", "", "Only versions published at or after this time (1h30m, 3d, 2024-03-10, RFC3339)")
	flags.StringVar(&until, "until", "", "Only versions published at or before this time")
	flags.StringVar(&subset, "subset", "", "Only versions of this subset")
	flags.StringVar(&criteria.FamilyGlob, "family", "", "Glob matched against each family of a version")
	flags.StringVar(&criteria.Author, "author", "", "Only versions by this author")
	flags.StringVarP(&output, "output", "o", "default", "Output format: default, jsonl")

	return cmd
}

// collectHistory reads every version under asset that passes c, newest first.
// A non-empty subset restricts it to that subset. Ties keep subset then
// version name order.
func collectHistory(ctx context.Context, repo assetdb.Repository, asset *assetdb.Document, subset string, c *filter.Criteria) ([]historyEntry, error) {
	subsetDocs, err := repo.Find(ctx, assetdb.Query{Type: assetdb.TypeSubset, Parent: asset.ID, Name: subset})
	if err != nil {
		return nil, err
	}

	var entries []historyEntry
	for _, s := range subsetDocs {
		versions, err := repo.Find(ctx, assetdb.Query{Type: assetdb.TypeVersion, Parent: s.ID})
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if !c.Matches(v) {
				continue
			}
			e := historyEntry{Subset: s.Name, Version: v.Name, Published: filter.PublishedAt(v)}
			if v.Data != nil {
				e.Families = v.Data.Families
				e.Author = v.Data.Author
				e.Comment = v.Data.Comment
			}
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		if a.Subset != b.Subset {
			return a.Subset < b.Subset
		}
		return a.Version < b.Version
	})
	return entries, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
