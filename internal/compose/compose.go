// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compose turns scored research chunks into short text: a spoken
// answer with citations, and the multi-source summary attached to a
// research result.
package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/market-research/internal/score"
	"github.com/pdiddy/market-research/pkg/types"
)

// Fixed phrases of the spoken answer.
const (
	NoInformation = "I couldn't find any information about that."
	LowConfidence = "Based on limited sources, this may not be complete."
	NoContent     = "No detailed content available for this query."
)

const (
	// DefaultMaxWords is the word budget used when the caller passes none.
	DefaultMaxWords = 25

	// HedgeThreshold is the confidence below which answers are hedged.
	HedgeThreshold = 0.6

	maxCitations       = 3
	summarySources     = 3
	summaryFragments   = 2
	summaryMaxChars    = 200
	sentenceSeparator  = ". "
	truncationEllipsis = "..."
)

// Compose builds a spoken answer from chunks. The answer is the first
// sentence of the highest-scored chunk, cut to maxWords words. The query is
// carried for callers that log or echo it; answer selection is by score
// alone.
func Compose(chunks []types.ContentChunk, query string, confidence float64, maxWords int) types.VoiceAnswer {
	if len(chunks) == 0 {
		return types.VoiceAnswer{Answer: NoInformation, Citations: []string{}}
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	best := chunks[0]
	for _, c := range chunks[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	sentence := firstSentence(best.Content)
	if sentence == "" {
		sentence = strings.TrimSpace(best.Title)
	}

	out := types.VoiceAnswer{
		Answer:    limitWords(sentence, maxWords),
		Citations: citations(chunks),
	}
	if confidence < HedgeThreshold {
		out.Hedge = LowConfidence
	}
	return out
}

// Summary renders the top three chunks by score as one line each: the
// first two sentence fragments, capped at 200 characters and tagged with
// the chunk's source.
func Summary(chunks []types.ContentChunk) string {
	var lines []string
	for _, c := range score.Top(chunks, summarySources) {
		parts := strings.SplitN(strings.TrimSpace(c.Content), sentenceSeparator, summaryFragments+1)
		if len(parts) > summaryFragments {
			parts = parts[:summaryFragments]
		}
		text := strings.TrimSpace(strings.Join(parts, sentenceSeparator))
		if text == "" {
			continue
		}
		text = strings.Join(strings.Fields(text), " ")
		if utf8.RuneCountInString(text) > summaryMaxChars {
			text = string([]rune(text)[:summaryMaxChars]) + truncationEllipsis
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", sourceLabel(c), text))
	}
	if len(lines) == 0 {
		return NoContent
	}
	return strings.Join(lines, "\n")
}

func firstSentence(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, sentenceSeparator); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSpace(content)
}

func limitWords(sentence string, maxWords int) string {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return ""
	}
	if len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + truncationEllipsis
	}
	out := strings.Join(words, " ")
	switch out[len(out)-1] {
	case '.', '!', '?':
		return out
	}
	return out + "."
}

func citations(chunks []types.ContentChunk) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, c := range score.Top(chunks, maxCitations) {
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c.URL)
	}
	return out
}

func sourceLabel(c types.ContentChunk) string {
	switch {
	case c.Source != "":
		return c.Source
	case c.Title != "":
		return c.Title
	default:
		return c.URL
	}
}
