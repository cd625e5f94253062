// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract recovers the main article text from a rendered page.
//
// Extraction runs in two phases. Noise removal strips navigation, ads,
// social widgets, comments and scripts from the DOM exactly once. Then an
// ordered list of strategies is tried, each a looser heuristic than the one
// before it, and the first that succeeds supplies the text. The last
// strategy always succeeds, so extraction degrades to the page body rather
// than failing.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelectors lists structural and semantic regions that never hold
// article text.
var noiseSelectors = strings.Join([]string{
	"script", "style", "noscript",
	"nav", "header", "footer", "aside",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]", "[role=complementary]",
	".nav", ".navbar", ".navigation", ".menu",
	".sidebar", "#sidebar",
	".ad", ".ads", ".advert", ".advertisement", "[class*=advert]", "[id^=ad-]",
	".social", ".social-share", ".share", ".sharing", ".share-buttons",
	".comments", ".comment", "#comments",
	".related", ".related-articles", ".related-posts", ".related-stories",
}, ", ")

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	repeatedSpaces = regexp.MustCompile(` {2,}`)
	boilerplate    = regexp.MustCompile(`(?i)cookie policy|privacy policy|terms of service`)
)

// Document is a parsed page. Extraction mutates it (noise removal), so a
// Document must not be shared between goroutines.
type Document struct {
	doc     *goquery.Document
	cleaned bool
}

// Parse builds a Document from rendered HTML. The HTML5 parser accepts any
// input, so errors only come from the underlying reader.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Title returns the page title, falling back to the first <h1>.
func (d *Document) Title() string {
	if t := strings.TrimSpace(d.doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(d.doc.Find("h1").First().Text())
}

// removeNoise deletes denylisted regions. Later strategies assume a cleaned
// DOM, so it runs once per document before the first strategy.
func (d *Document) removeNoise() {
	if d.cleaned {
		return
	}
	d.doc.Find(noiseSelectors).Remove()
	d.cleaned = true
}

// Strategy is one tier of the extraction cascade.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Extract returns the article text and true, or false when the
	// strategy does not apply to this page.
	Extract(doc *goquery.Document) (string, bool)
}

// Extractor runs noise removal followed by an ordered strategy cascade.
type Extractor struct {
	strategies []Strategy
}

// New returns an Extractor with the given strategies. With none, the
// default cascade is used: article, main-content, body-paragraphs, body-text.
func New(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// DefaultStrategies returns the standard cascade, most specific first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		ArticleStrategy{},
		MainContentStrategy{Selectors: defaultMainSelectors},
		BodyParagraphStrategy{},
		BodyTextStrategy{},
	}
}

// Extract returns the normalized main text of d. It never fails; the worst
// case is an empty string.
func (e *Extractor) Extract(d *Document) string {
	text, _ := e.ExtractWithStrategy(d)
	return text
}

// ExtractWithStrategy is Extract plus the name of the strategy that
// produced the text ("" when none did).
func (e *Extractor) ExtractWithStrategy(d *Document) (string, string) {
	if d == nil {
		return "", ""
	}
	d.removeNoise()
	for _, s := range e.strategies {
		if text, ok := s.Extract(d.doc); ok {
			return Normalize(text), s.Name()
		}
	}
	return "", ""
}

// Normalize collapses blank-line runs to one blank line and space runs to
// one space, strips cookie/privacy/terms boilerplate, and trims the result.
func Normalize(text string) string {
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = repeatedSpaces.ReplaceAllString(text, " ")
	text = boilerplate.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
