// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the market-research engine:
// candidate sources from the search layer, per-page fetch outcomes, scored
// content chunks, research results and composed voice answers.
package types

import "time"

// Candidate is one source returned by the search layer. The research loop
// consumes an ordered slice of candidates and never reorders it.
type Candidate struct {
	// URL is the absolute http(s) address of the page.
	URL string `json:"url" yaml:"url"`

	// Title is the headline reported by the search provider, if any.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Source is the human-readable publisher name (e.g. "Reuters").
	Source string `json:"source_website,omitempty" yaml:"source_website,omitempty"`
}

// FetchResult is the outcome of rendering one URL. It is created once per
// fetch attempt and never mutated afterwards.
type FetchResult struct {
	URL string `json:"url" yaml:"url"`

	// Title and Content are empty when Success is false.
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	Success bool `json:"success" yaml:"success"`

	// Error is set if and only if Success is false.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is the end-to-end time spent on the attempt, including
	// failures. Binary-format rejections report zero.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ContentChunk is one unit of scored research material tied to the page it
// was extracted from.
type ContentChunk struct {
	Content string `json:"content" yaml:"content"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`

	// URL always equals the FetchResult.URL the chunk was built from.
	URL string `json:"url" yaml:"url"`

	// Source is a human-readable origin label.
	Source string `json:"source" yaml:"source"`

	// Hop is the research round (1-based) that produced the chunk.
	Hop int `json:"hop" yaml:"hop"`

	// Score is the relevance score in [0.0, 1.0]. The hop number never
	// biases it, so scores compare across hops.
	Score float64 `json:"score" yaml:"score"`
}

// ResearchResult is the terminal output of one research loop invocation.
type ResearchResult struct {
	// ID identifies the run in the archive.
	ID string `json:"id" yaml:"id"`

	// Query is the question the run researched.
	Query string `json:"query" yaml:"query"`

	// Chunks are sorted by descending score within each hop; hops are
	// concatenated in hop order and never re-sorted globally.
	Chunks []ContentChunk `json:"content_chunks" yaml:"content_chunks"`

	// Citations is the deduplicated set of chunk URLs in first-seen order.
	Citations []string `json:"citations" yaml:"citations"`

	// Confidence is the mean score over all chunks, 0.0 when there are none.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	Summary string `json:"summary" yaml:"summary"`

	// Hops is the number of research rounds that ran.
	Hops int `json:"hops" yaml:"hops"`

	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
}

// NumSources returns the number of distinct cited URLs.
func (r ResearchResult) NumSources() int {
	return len(r.Citations)
}

// VoiceAnswer is a short, spoken-style answer composed from research chunks.
type VoiceAnswer struct {
	Answer string `json:"answer" yaml:"answer"`

	// Hedge is a qualifier for low-confidence answers. Empty means none.
	Hedge string `json:"hedge,omitempty" yaml:"hedge,omitempty"`

	// Citations holds at most three URLs from the top-ranked chunks.
	Citations []string `json:"citations" yaml:"citations"`
}
