// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score ranks research chunks against a query with a cheap,
// deterministic term-overlap heuristic. It makes no network or model calls
// because it runs inline in every research hop.
package score

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/market-research/pkg/types"
)

const (
	contentTermWeight = 0.2

	// titleTermWeight is 1.5x the content weight: a query term in the
	// headline is a stronger relevance signal than one in the body.
	titleTermWeight = 0.3

	longContentChars   = 1000
	longContentBonus   = 0.2
	mediumContentChars = 500
	mediumContentBonus = 0.1
)

// Terms lowercases query, splits it on whitespace and removes duplicates,
// preserving first-occurrence order.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Chunk returns the relevance score of one chunk for the given terms,
// clamped to [0, 1].
func Chunk(c types.ContentChunk, terms []string) float64 {
	content := strings.ToLower(c.Content)
	title := strings.ToLower(c.Title)

	var s float64
	for _, term := range terms {
		if strings.Contains(content, term) {
			s += contentTermWeight
		}
		if title != "" && strings.Contains(title, term) {
			s += titleTermWeight
		}
	}

	switch n := utf8.RuneCountInString(c.Content); {
	case n > longContentChars:
		s += longContentBonus
	case n > mediumContentChars:
		s += mediumContentBonus
	}

	return clamp(s)
}

// Score assigns a relevance score to every chunk and returns them sorted by
// descending score. Ties keep their input order. The input slice is not
// modified.
func Score(chunks []types.ContentChunk, query string) []types.ContentChunk {
	terms := Terms(query)
	scored := make([]types.ContentChunk, len(chunks))
	for i, c := range chunks {
		c.Score = Chunk(c, terms)
		scored[i] = c
	}
	Rank(scored)
	return scored
}

// Rank stable-sorts chunks in place by descending score.
func Rank(chunks []types.ContentChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}

// Mean returns the arithmetic mean score, or 0 for no chunks.
func Mean(chunks []types.ContentChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	return sum / float64(len(chunks))
}

// Top returns the n highest-scored chunks across the whole slice without
// modifying it. Ties keep their input order.
func Top(chunks []types.ContentChunk, n int) []types.ContentChunk {
	ranked := make([]types.ContentChunk, len(chunks))
	copy(ranked, chunks)
	Rank(ranked)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func clamp(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
