// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/browser"
	"github.com/pdiddy/market-research/internal/compose"
	"github.com/pdiddy/market-research/internal/fetch"
	"github.com/pdiddy/market-research/internal/research"
	"github.com/pdiddy/market-research/internal/search"
	"github.com/pdiddy/market-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Research a market question across candidate pages",
	Long: `Research renders candidate pages in isolated headless browser sessions,
extracts and scores their article text, and returns the scored chunks, their
citations, an aggregate confidence and a short summary.

The first --max-urls-per-hop candidates are fetched concurrently. When their
mean score is below 0.7 the next batch is fetched as a second hop.

Candidates are gathered from --url flags, a --candidates file and, with
--search, Brave Search, in that order. Use --voice for a short spoken-style
answer and --save to keep the run in the archive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringSlice("url", nil, "candidate URL (repeatable)")
	researchCmd.Flags().String("candidates", "", "candidate file written by 'search --out' or a YAML/JSON list")
	researchCmd.Flags().Bool("search", false, "discover candidates with Brave Search")
	researchCmd.Flags().Int("max-hops", 0, "maximum research hops, 1-3 (default from config)")
	researchCmd.Flags().Int("max-urls-per-hop", 0, "pages fetched per hop (default from config)")
	researchCmd.Flags().Int("max-length", 0, "maximum characters kept per page (default from config)")
	researchCmd.Flags().Duration("timeout", 0, "per-page navigation timeout (default from config)")
	researchCmd.Flags().Duration("deadline", 0, "overall deadline; partial results are returned when it passes")
	researchCmd.Flags().Bool("voice", false, "print a short spoken-style answer instead of the full result")
	researchCmd.Flags().Bool("json", false, "output as JSON")
	researchCmd.Flags().Bool("yaml", false, "output as YAML")
	researchCmd.Flags().Bool("save", false, "save the run to the archive")
	researchCmd.Flags().String("out", "", "also write the result as YAML to this path")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx, cancel := commandContext()
	defer cancel()
	if deadline, _ := cmd.Flags().GetDuration("deadline"); deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	candidates, err := gatherCandidates(ctx, cmd, query, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "warning: no candidates found")
	}

	opts := researchOptions(cmd)

	br := browser.New(appConfig.Browser, appConfig.Fetch, logger)
	fetcher := fetch.New(br, appConfig.Fetch, logger)
	session := research.NewSession(research.NewLoop(fetcher, logger, os.Stderr))
	defer finalizeSession(session, logger)

	if len(candidates) > 0 {
		if err := session.Start(ctx); err != nil {
			return err
		}
	}

	res, err := session.Run(ctx, candidates, query, opts)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := saveRuns(context.WithoutCancel(ctx), session.Results()); err != nil {
			return err
		}
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := research.WriteResultFile(out, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	if voice, _ := cmd.Flags().GetBool("voice"); voice {
		answer := compose.Compose(res.Chunks, query, res.Confidence, appConfig.Compose.MaxWords)
		switch {
		case jsonOutput:
			return research.FormatJSON(answer, os.Stdout)
		case yamlOutput:
			return research.FormatYAML(answer, os.Stdout)
		}
		research.FormatAnswer(answer, os.Stdout)
		return nil
	}
	switch {
	case jsonOutput:
		return research.FormatJSON(res, os.Stdout)
	case yamlOutput:
		return research.FormatYAML(res, os.Stdout)
	}
	research.FormatText(res, os.Stdout)
	return nil
}

// researchOptions starts from the configuration and applies any flags
// the user set.
func researchOptions(cmd *cobra.Command) research.Options {
	opts := research.Options{
		MaxHops:       appConfig.Research.MaxHops,
		MaxURLsPerHop: appConfig.Research.MaxURLsPerHop,
		MaxLength:     appConfig.Fetch.MaxLength,
		Timeout:       appConfig.Fetch.Timeout,
	}
	if cmd.Flags().Changed("max-hops") {
		opts.MaxHops, _ = cmd.Flags().GetInt("max-hops")
	}
	if cmd.Flags().Changed("max-urls-per-hop") {
		opts.MaxURLsPerHop, _ = cmd.Flags().GetInt("max-urls-per-hop")
	}
	if cmd.Flags().Changed("max-length") {
		opts.MaxLength, _ = cmd.Flags().GetInt("max-length")
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	return opts
}

// gatherCandidates merges the candidate sources named by flags. Only
// search results are capped by search.max_results; URLs and files the user
// supplied are kept in full. Dropped candidates are reported to w.
func gatherCandidates(ctx context.Context, cmd *cobra.Command, query string, w io.Writer) ([]types.Candidate, error) {
	var backends []search.Backend
	if urls, _ := cmd.Flags().GetStringSlice("url"); len(urls) > 0 {
		backends = append(backends, urlBackend(urls))
	}
	if path, _ := cmd.Flags().GetString("candidates"); path != "" {
		backends = append(backends, search.FileBackend{Path: path})
	}
	cfg := appConfig.Search
	if useSearch, _ := cmd.Flags().GetBool("search"); useSearch {
		backends = append(backends, search.NewBraveBackend(cfg))
	} else {
		cfg.MaxResults = 0
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no candidate source: provide --url, --candidates or --search")
	}

	out, err := search.Search(ctx, query, backends, cfg, w)
	if err != nil {
		return nil, err
	}
	if out.Invalid > 0 {
		fmt.Fprintf(w, "warning: skipped %d candidates without an http(s) URL\n", out.Invalid)
	}
	if out.Truncated > 0 {
		fmt.Fprintf(w, "warning: dropped %d candidates beyond search.max_results=%d\n", out.Truncated, cfg.MaxResults)
	}
	if len(out.Candidates) == 0 && len(out.BackendErrors) == len(backends) {
		return nil, fmt.Errorf("all candidate sources failed: %s", strings.Join(out.BackendErrors, "; "))
	}
	return out.Candidates, nil
}

// urlBackend serves candidates given on the command line.
type urlBackend []string

func (u urlBackend) Name() string { return "url" }

func (u urlBackend) Search(context.Context, string, types.SearchConfig) ([]types.Candidate, error) {
	out := make([]types.Candidate, len(u))
	for i, raw := range u {
		out[i] = types.Candidate{URL: strings.TrimSpace(raw)}
	}
	return out, nil
}

// saveRuns archives every run the session recorded.
func saveRuns(ctx context.Context, runs []types.ResearchResult) error {
	store, err := archive.Open(appConfig.Archive)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, res := range runs {
		if err := store.Save(ctx, res); err != nil {
			return fmt.Errorf("saving run %s: %w", res.ID, err)
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", res.ID)
	}
	return nil
}

// finalizeSession releases the browser. A close failure can leave Chrome
// running, so it is logged.
func finalizeSession(s *research.Session, log *zap.Logger) {
	if err := s.Finalize(); err != nil {
		log.Warn("closing research session", zap.String("session", s.ID), zap.Error(err))
	}
}
