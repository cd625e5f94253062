// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	paragraphSeparator = "\n\n"

	// articleMinParagraphs is how many <p> an <article> needs before its
	// paragraphs are trusted.
	articleMinParagraphs = 3

	// containerMinParagraphs is the same threshold for main-content containers.
	containerMinParagraphs = 2

	// minParagraphChars drops captions, bylines and button labels inside
	// article containers.
	minParagraphChars = 20

	// minContainerChars is the container-text fallback threshold.
	minContainerChars = 200

	// minBodyParagraphChars is the stricter filter for paragraphs collected
	// from anywhere in the body.
	minBodyParagraphChars = 30

	// maxBodyParagraphs caps the body-paragraph fallback.
	maxBodyParagraphs = 15
)

// defaultMainSelectors are common article-body containers in priority order.
var defaultMainSelectors = []string{
	"main article",
	"[role=main] article",
	".article-body",
	".article-content",
	".entry-content",
	".post-content",
	".story-body",
	"[itemprop=articleBody]",
	"main",
	"[role=main]",
	"#content",
}

// paragraphs returns the trimmed text of every <p> under sel whose length
// exceeds minChars, plus the total number of <p> elements seen.
func paragraphs(sel *goquery.Selection, minChars int) (kept []string, total int) {
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		total++
		text := strings.TrimSpace(p.Text())
		if utf8.RuneCountInString(text) > minChars {
			kept = append(kept, text)
		}
	})
	return kept, total
}

// ArticleStrategy reads paragraphs from the first <article> element.
type ArticleStrategy struct{}

func (ArticleStrategy) Name() string { return "article" }

func (ArticleStrategy) Extract(doc *goquery.Document) (string, bool) {
	article := doc.Find("article").First()
	if article.Length() == 0 {
		return "", false
	}
	kept, total := paragraphs(article, minParagraphChars)
	if total < articleMinParagraphs || len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, paragraphSeparator), true
}

// MainContentStrategy tries container selectors in order and works on the
// first one present in the page. It prefers the container's paragraphs and
// falls back to its full text when that is long enough.
type MainContentStrategy struct {
	Selectors []string
}

func (MainContentStrategy) Name() string { return "main-content" }

func (s MainContentStrategy) Extract(doc *goquery.Document) (string, bool) {
	for _, selector := range s.Selectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if kept, _ := paragraphs(container, minParagraphChars); len(kept) >= containerMinParagraphs {
			return strings.Join(kept, paragraphSeparator), true
		}
		text := strings.TrimSpace(container.Text())
		if utf8.RuneCountInString(text) > minContainerChars {
			return text, true
		}
		return "", false
	}
	return "", false
}

// BodyParagraphStrategy collects substantial paragraphs from the whole body.
type BodyParagraphStrategy struct{}

func (BodyParagraphStrategy) Name() string { return "body-paragraphs" }

func (BodyParagraphStrategy) Extract(doc *goquery.Document) (string, bool) {
	kept, _ := paragraphs(doc.Find("body"), minBodyParagraphChars)
	if len(kept) == 0 {
		return "", false
	}
	if len(kept) > maxBodyParagraphs {
		kept = kept[:maxBodyParagraphs]
	}
	return strings.Join(kept, paragraphSeparator), true
}

// BodyTextStrategy returns the body text verbatim. It always succeeds.
type BodyTextStrategy struct{}

func (BodyTextStrategy) Name() string { return "body-text" }

func (BodyTextStrategy) Extract(doc *goquery.Document) (string, bool) {
	return doc.Find("body").Text(), true
}
