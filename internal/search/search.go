// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search discovers candidate pages for a research query. Each
// provider is a Backend; Search fans a query out to all of them and merges
// the answers into one ordered, deduplicated candidate list.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/pdiddy/market-research/pkg/types"
)

// Backend returns candidates for a query from one provider.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Candidate, error)
}

// Output holds merged candidates and what happened along the way.
type Output struct {
	Candidates  []types.Candidate
	DupsRemoved int

	// Invalid counts candidates dropped for not being absolute http(s) URLs.
	Invalid int

	// Truncated counts candidates cut by cfg.MaxResults.
	Truncated int

	BackendErrors []string
}

// Search queries every backend concurrently. A failing backend is recorded
// in BackendErrors and does not fail the search. Candidates keep backend
// order (all of the first backend's, then the second's) regardless of
// which backend answers first.
func Search(ctx context.Context, query string, backends []Backend, cfg types.SearchConfig, w io.Writer) (Output, error) {
	if strings.TrimSpace(query) == "" {
		return Output{}, fmt.Errorf("query is empty")
	}
	if len(backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}
	if w == nil {
		w = io.Discard
	}

	type backendResult struct {
		candidates []types.Candidate
		err        error
	}

	results := make([]backendResult, len(backends))
	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			c, err := b.Search(ctx, query, cfg)
			results[i] = backendResult{candidates: c, err: err}
		}(i, b)
	}
	wg.Wait()

	var all []types.Candidate
	var backendErrors []string
	for i, br := range results {
		name := backends[i].Name()
		if br.err != nil {
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", name, br.err))
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", name, br.err)
			continue
		}
		all = append(all, br.candidates...)
	}

	deduped, removed, invalid := deduplicate(all)
	truncated := 0
	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		truncated = len(deduped) - cfg.MaxResults
		deduped = deduped[:cfg.MaxResults]
	}

	return Output{
		Candidates:    deduped,
		DupsRemoved:   removed,
		Invalid:       invalid,
		Truncated:     truncated,
		BackendErrors: backendErrors,
	}, nil
}

// deduplicate drops candidates whose canonical URL was already seen,
// filling an empty title or source on the survivor from the duplicate.
// Candidates without an absolute http(s) URL are dropped and counted
// separately.
func deduplicate(candidates []types.Candidate) (out []types.Candidate, removed, invalid int) {
	seen := make(map[string]int)
	for _, c := range candidates {
		key := CanonicalURL(c.URL)
		if key == "" {
			invalid++
			continue
		}
		if idx, ok := seen[key]; ok {
			if out[idx].Title == "" {
				out[idx].Title = c.Title
			}
			if out[idx].Source == "" {
				out[idx].Source = c.Source
			}
			removed++
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out, removed, invalid
}

// CanonicalURL normalizes rawURL for duplicate detection: lowercase host
// without "www.", no fragment, no tracking parameters, no trailing slash.
// It returns "" for URLs that are not absolute http(s).
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.EscapedPath(), "/")
	out := host + path
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// FormatTable writes candidates as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Candidates) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %s\n", "Rank", "Title", "Source", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, c := range out.Candidates {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %s\n", i+1, truncate(c.Title, 60), truncate(c.Source, 20), c.URL)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Candidates))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	if out.Invalid > 0 {
		fmt.Fprintf(w, " (%d invalid URLs skipped)", out.Invalid)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes candidates as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Candidates)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
