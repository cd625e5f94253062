// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := Parse(src)
	require.NoError(t, err)
	return d
}

// --- noise removal ---

func TestExtractRemovesNavigation(t *testing.T) {
	src := `<html><head><title>Fed holds rates</title></head><body>
<nav>Home | About</nav>
<article>
<p>The Federal Reserve held interest rates steady on Wednesday.</p>
<p>Officials signalled two cuts are still likely this year.</p>
<p>Markets rallied after the announcement in afternoon trading.</p>
</article>
</body></html>`

	d := mustParse(t, src)
	assert.Equal(t, "Fed holds rates", d.Title())
	text := New().Extract(d)
	assert.NotContains(t, text, "Home | About")
	assert.Equal(t,
		"The Federal Reserve held interest rates steady on Wednesday.\n\n"+
			"Officials signalled two cuts are still likely this year.\n\n"+
			"Markets rallied after the announcement in afternoon trading.",
		text)
}

func TestExtractRemovesNoiseInsideArticle(t *testing.T) {
	src := `<body><article>
<div class="social-share"><p>Share this story on every network you know</p></div>
<p>Apple shares climbed four percent in early trading.</p>
<p>The company beat analyst estimates for the quarter.</p>
<script>var tracking = "should never appear in output";</script>
<p>Services revenue reached a record high this period.</p>
<aside><p>Related: ten stocks to watch this week and more</p></aside>
<div class="comments"><p>First comment from a reader who disagrees</p></div>
</article></body>`

	text, strategy := New().ExtractWithStrategy(mustParse(t, src))
	assert.Equal(t, "article", strategy)
	assert.NotContains(t, text, "Share this story")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "Related:")
	assert.NotContains(t, text, "First comment")
	assert.Contains(t, text, "Services revenue reached a record high")
}

// --- strategy cascade ---

func TestExtractArticleNeedsThreeParagraphs(t *testing.T) {
	src := `<body><article>
<p>Only two paragraphs live inside this article.</p>
<p>That is not enough for the article strategy.</p>
</article></body>`

	_, strategy := New().ExtractWithStrategy(mustParse(t, src))
	assert.NotEqual(t, "article", strategy)
}

func TestExtractArticleShortParagraphsFallThrough(t *testing.T) {
	src := `<body><article><p>Too short.</p><p>Too short.</p><p>Too short.</p></article></body>`

	_, strategy := New().ExtractWithStrategy(mustParse(t, src))
	assert.Equal(t, "body-text", strategy)
}

func TestExtractMainContentParagraphs(t *testing.T) {
	src := `<body><div class="article-body">
<p>First paragraph with enough characters.</p>
<p>tiny</p>
<p>Second paragraph with enough characters.</p>
</div></body>`

	text, strategy := New().ExtractWithStrategy(mustParse(t, src))
	assert.Equal(t, "main-content", strategy)
	assert.Equal(t, "First paragraph with enough characters.\n\nSecond paragraph with enough characters.", text)
}

func TestExtractMainContentContainerText(t *testing.T) {
	body := strings.Repeat("Stocks rose sharply. ", 15)
	src := `<body><main><div>` + body + `</div></main></body>`

	text, strategy := New().ExtractWithStrategy(mustParse(t, src))
	assert.Equal(t, "main-content", strategy)
	assert.Equal(t, strings.TrimSpace(body), text)
}

func TestExtractMainContentTooShortFallsBack(t *testing.T) {
	src := `<body><main><div>Short</div></main>
<p>This paragraph is definitely longer than thirty characters.</p></body>`

	text, strategy := New().ExtractWithStrategy(mustParse(t, src))
	assert.Equal(t, "body-paragraphs", strategy)
	assert.Equal(t, "This paragraph is definitely longer than thirty characters.", text)
}

func TestExtractBodyParagraphsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("<body><div>")
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "<p>Paragraph number %02d has enough characters to count.</p>", i)
	}
	b.WriteString("</div></body>")

	text, strategy := New().ExtractWithStrategy(mustParse(t, b.String()))
	assert.Equal(t, "body-paragraphs", strategy)
	assert.Len(t, strings.Split(text, "\n\n"), maxBodyParagraphs)
	assert.Contains(t, text, "Paragraph number 15")
	assert.NotContains(t, text, "Paragraph number 16")
}

func TestExtractBodyTextFallback(t *testing.T) {
	text, strategy := New().ExtractWithStrategy(mustParse(t, `<body><div>Just text</div></body>`))
	assert.Equal(t, "body-text", strategy)
	assert.Equal(t, "Just text", text)
}

func TestExtractEmptyPage(t *testing.T) {
	d := mustParse(t, "")
	assert.Empty(t, d.Title())
	assert.Empty(t, New().Extract(d))
}

func TestExtractNilDocument(t *testing.T) {
	assert.Empty(t, New().Extract(nil))
}

type fixedStrategy struct {
	name string
	text string
	ok   bool
}

func (f fixedStrategy) Name() string { return f.name }

func (f fixedStrategy) Extract(*goquery.Document) (string, bool) { return f.text, f.ok }

func TestExtractFirstSuccessfulStrategyWins(t *testing.T) {
	e := New(
		fixedStrategy{name: "skip", ok: false},
		fixedStrategy{name: "win", text: "  winner   text ", ok: true},
		fixedStrategy{name: "never", text: "loser", ok: true},
	)
	text, strategy := e.ExtractWithStrategy(mustParse(t, "<body></body>"))
	assert.Equal(t, "win", strategy)
	assert.Equal(t, "winner text", text)
}

// --- title ---

func TestTitleFallsBackToHeading(t *testing.T) {
	d := mustParse(t, `<body><h1> Nvidia tops forecasts </h1></body>`)
	assert.Equal(t, "Nvidia tops forecasts", d.Title())
}

// --- normalization ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses blank lines", "Intro\n\n\n\nBody", "Intro\n\nBody"},
		{"keeps single blank line", "Intro\n\nBody", "Intro\n\nBody"},
		{"collapses spaces", "Body   text", "Body text"},
		{"trims", "  \n Body \n ", "Body"},
		{"strips privacy policy", "Read the Privacy Policy", "Read the"},
		{"strips case-insensitively", "COOKIE POLICY applies", "applies"},
		{"strips terms", "terms of service", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
