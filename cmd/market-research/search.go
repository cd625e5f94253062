// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-research/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find candidate news pages with Brave Search",
	Long: `Search queries Brave news search for pages matching a market question.
Results are deduplicated by canonical URL and truncated to --max-results.
Use --out to save them as a candidate file for 'research --candidates'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of candidates (default from config)")
	searchCmd.Flags().String("freshness", "", "limit by age: pd (day), pw (week), pm (month)")
	searchCmd.Flags().String("out", "", "write candidates to this YAML file")
	searchCmd.Flags().Bool("json", false, "output candidates as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	query := strings.Join(args, " ")
	cfg := appConfig.Search
	if cmd.Flags().Changed("max-results") {
		cfg.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	if f, _ := cmd.Flags().GetString("freshness"); f != "" {
		cfg.Freshness = f
	}

	out, err := search.Search(ctx, query, []search.Backend{search.NewBraveBackend(cfg)}, cfg, os.Stderr)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		if err := search.WriteCandidateFile(path, query, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d candidates to %s\n", len(out.Candidates), path)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return search.FormatJSON(out, os.Stdout)
	}
	search.FormatTable(out, os.Stdout)

	if len(out.BackendErrors) > 0 && len(out.Candidates) == 0 {
		return fmt.Errorf("search failed: %s", strings.Join(out.BackendErrors, "; "))
	}
	return nil
}
