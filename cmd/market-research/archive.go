// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/research"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [query]",
	Short: "Search, list and export saved research runs",
	Long: `Archive works with runs saved by 'research --save'. With a query or
filters it searches archived chunks (full-text when the binary is built with
the sqlite_fts5 tag). --runs lists saved runs, --show prints one run, and
--export writes the matching chunks to <archive.dir>/export.yaml or .json.`,
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().String("url", "", "only chunks from this page")
	archiveCmd.Flags().Float64("min-score", 0, "only chunks scored at least this")
	archiveCmd.Flags().Int("limit", 0, "maximum results (default from config)")
	archiveCmd.Flags().Bool("runs", false, "list saved runs, newest first")
	archiveCmd.Flags().String("show", "", "print the run with this ID")
	archiveCmd.Flags().String("export", "", "export matching chunks: yaml or json")
	archiveCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := archive.Open(appConfig.Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")

	if listRuns, _ := cmd.Flags().GetBool("runs"); listRuns {
		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return research.FormatJSON(runs, os.Stdout)
		}
		formatRuns(runs, os.Stdout)
		return nil
	}

	if id, _ := cmd.Flags().GetString("show"); id != "" {
		res, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return research.FormatJSON(res, os.Stdout)
		}
		research.FormatText(res, os.Stdout)
		return nil
	}

	url, _ := cmd.Flags().GetString("url")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	opts := archive.QueryOptions{
		Query:      strings.Join(args, " "),
		URL:        url,
		MinScore:   minScore,
		MaxResults: limit,
	}

	switch format, _ := cmd.Flags().GetString("export"); format {
	case "":
	case "yaml":
		path, err := store.ExportYAML(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	case "json":
		path, err := store.ExportJSON(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	default:
		return fmt.Errorf("unsupported export format %q: use yaml or json", format)
	}

	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --url or --min-score (or use --runs)")
	}
	results, err := store.Query(ctx, opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return research.FormatJSON(results, os.Stdout)
	}
	formatQueryResults(results, store.FullText(), os.Stdout)
	return nil
}

func formatRuns(runs []archive.RunSummary, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No saved runs.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-16s  %-4s  %-6s  %-5s  %s\n", "ID", "Started", "Hops", "Chunks", "Conf", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s  %-4d  %-6d  %-5.2f  %s\n",
			r.ID, r.Started.Local().Format("2006-01-02 15:04"), r.Hops, r.Chunks, r.Confidence, r.Query)
	}
}

// formatQueryResults prints archive hits and which matcher produced them.
func formatQueryResults(results []archive.QueryResult, fullText bool, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintf(w, "%-4s  %-5s  %-60s  %s\n", "Rank", "Score", "Content", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, r := range results {
		content := strings.Join(strings.Fields(r.Content), " ")
		if rs := []rune(content); len(rs) > 60 {
			content = string(rs[:57]) + "..."
		}
		fmt.Fprintf(w, "%-4d  %-5.2f  %-60s  %s\n", i+1, r.Score, content, r.URL)
	}
	mode := "substring match"
	if fullText {
		mode = "full-text index"
	}
	fmt.Fprintf(w, "\n%d results (%s)\n", len(results), mode)
}
