// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-research/pkg/types"
)

func TestTerms(t *testing.T) {
	got := Terms("  Google NEWS google  earnings\tnews ")
	want := []string{"google", "news", "earnings"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Terms() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Terms("   "))
}

func TestTitleMatchOutweighsContentMatch(t *testing.T) {
	titled := types.ContentChunk{Title: "Important Google News", Content: "Generic content."}
	plain := types.ContentChunk{Title: "Generic Title", Content: "Google content here."}

	scored := Score([]types.ContentChunk{plain, titled}, "Google news")

	require.Len(t, scored, 2)
	assert.Equal(t, "Important Google News", scored[0].Title)
	assert.Greater(t, scored[0].Score, scored[1].Score)
	assert.InDelta(t, 0.6, scored[0].Score, 1e-9)
	assert.InDelta(t, 0.2, scored[1].Score, 1e-9)
}

func TestChunkLengthBonus(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"short", strings.Repeat("x", 500), 0},
		{"medium", strings.Repeat("x", 501), 0.1},
		{"at long threshold", strings.Repeat("x", 1000), 0.1},
		{"long", strings.Repeat("x", 1001), 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(types.ContentChunk{Content: tt.content}, Terms("apple"))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestChunkClampsToOne(t *testing.T) {
	c := types.ContentChunk{
		Title:   "apple earnings beat revenue guidance",
		Content: "apple earnings beat revenue guidance " + strings.Repeat("more ", 300),
	}
	got := Chunk(c, Terms("apple earnings beat revenue guidance"))
	assert.Equal(t, 1.0, got)
}

func TestScoresAlwaysBounded(t *testing.T) {
	chunks := []types.ContentChunk{
		{},
		{Content: "tesla"},
		{Title: "tesla tesla", Content: strings.Repeat("tesla deliveries ", 200)},
		{Title: "Unrelated", Content: strings.Repeat("lorem ipsum ", 60)},
	}
	for _, c := range Score(chunks, "tesla deliveries q3 record guidance outlook") {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	chunks := []types.ContentChunk{
		{URL: "a", Title: "Oil prices slump", Content: "Brent crude fell three percent."},
		{URL: "b", Title: "Gold", Content: "Gold and oil diverged as crude prices dropped."},
	}
	first := Score(chunks, "oil prices crude")
	second := Score(chunks, "oil prices crude")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("scores differ between runs (-first +second):\n%s", diff)
	}
}

func TestScoreDoesNotModifyInput(t *testing.T) {
	chunks := []types.ContentChunk{
		{URL: "a", Content: "nothing relevant"},
		{URL: "b", Title: "Oil", Content: "oil"},
	}
	_ = Score(chunks, "oil")
	assert.Equal(t, "a", chunks[0].URL)
	assert.Zero(t, chunks[0].Score)
	assert.Zero(t, chunks[1].Score)
}

func TestRankDescending(t *testing.T) {
	a := types.ContentChunk{URL: "A", Score: 0.9}
	b := types.ContentChunk{URL: "B", Score: 0.3}

	for _, in := range [][]types.ContentChunk{{a, b}, {b, a}} {
		Rank(in)
		assert.Equal(t, "A", in[0].URL)
		assert.Equal(t, "B", in[1].URL)
	}
}

func TestRankStableOnTies(t *testing.T) {
	chunks := []types.ContentChunk{
		{URL: "first", Score: 0.4},
		{URL: "top", Score: 0.8},
		{URL: "second", Score: 0.4},
	}
	Rank(chunks)
	got := []string{chunks[0].URL, chunks[1].URL, chunks[2].URL}
	assert.Equal(t, []string{"top", "first", "second"}, got)
}

func TestMean(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 0.5, Mean([]types.ContentChunk{{Score: 0.2}, {Score: 0.8}}), 1e-9)
}

func TestTop(t *testing.T) {
	chunks := []types.ContentChunk{
		{URL: "h1-a", Score: 0.5},
		{URL: "h1-b", Score: 0.1},
		{URL: "h2-a", Score: 0.9},
		{URL: "h2-b", Score: 0.3},
	}
	top := Top(chunks, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"h2-a", "h1-a", "h2-b"}, []string{top[0].URL, top[1].URL, top[2].URL})
	assert.Equal(t, "h1-a", chunks[0].URL, "input order must be preserved")
	assert.Len(t, Top(chunks, 10), 4)
}
