// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch turns a URL into a FetchResult: it renders the page in an
// isolated browser session, extracts the article text and bounds its
// length. Per-URL problems are reported in the result, never as errors.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/browser"
	"github.com/pdiddy/market-research/internal/extract"
	"github.com/pdiddy/market-research/internal/gate"
	"github.com/pdiddy/market-research/pkg/types"
)

// ErrBinaryFormat is the FetchResult error for documents the browser
// cannot render as HTML.
const ErrBinaryFormat = "Binary file format not supported"

// Defaults used when neither the caller nor the configuration sets a value.
const (
	DefaultMaxLength          = 5000
	DefaultTimeout            = 10 * time.Second
	DefaultMaxConcurrentPages = 8
)

var binaryExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".zip", ".rar",
}

// Options bounds a single fetch. Zero values fall back to the fetcher's
// configured defaults.
type Options struct {
	MaxLength int
	Timeout   time.Duration
}

// Fetcher renders and extracts pages. It is safe for concurrent use; the
// number of simultaneous browser sessions is bounded by its gate.
type Fetcher struct {
	renderer  browser.Renderer
	extractor *extract.Extractor
	gate      *gate.Gate
	defaults  Options
	logger    *zap.Logger
}

// New returns a Fetcher that renders through r.
func New(r browser.Renderer, cfg types.FetchConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := Options{MaxLength: cfg.MaxLength, Timeout: cfg.Timeout}
	if d.MaxLength <= 0 {
		d.MaxLength = DefaultMaxLength
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	pages := cfg.MaxConcurrentPages
	if pages <= 0 {
		pages = DefaultMaxConcurrentPages
	}
	return &Fetcher{
		renderer:  r,
		extractor: extract.New(),
		gate:      gate.New(pages),
		defaults:  d,
		logger:    logger.Named("fetch"),
	}
}

// Start starts the underlying renderer when it needs starting. An error
// here means no page can be fetched.
func (f *Fetcher) Start(ctx context.Context) error {
	s, ok := f.renderer.(interface{ Start(context.Context) error })
	if !ok {
		return nil
	}
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting renderer: %w", err)
	}
	return nil
}

// Close releases the underlying renderer when it holds resources.
func (f *Fetcher) Close() error {
	if c, ok := f.renderer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Fetch renders rawURL and returns the extracted result. It never returns
// an error and never panics; every failure is recorded on the result.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (res types.FetchResult) {
	res.URL = rawURL

	if IsBinary(rawURL) {
		res.Error = ErrBinaryFormat
		f.logger.Debug("skipping binary document", zap.String("url", rawURL))
		return res
	}

	if opts.MaxLength <= 0 {
		opts.MaxLength = f.defaults.MaxLength
	}
	if opts.Timeout <= 0 {
		opts.Timeout = f.defaults.Timeout
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = types.FetchResult{URL: rawURL, Error: fmt.Sprintf("fetch panicked: %v", r)}
			f.logger.Error("fetch panicked", zap.String("url", rawURL), zap.Any("panic", r))
		}
		res.Duration = time.Since(start)
	}()

	if err := validateURL(rawURL); err != nil {
		res.Error = err.Error()
		return res
	}

	release, ok := f.gate.TryAcquire()
	if !ok {
		f.logger.Debug("all browser sessions busy, waiting",
			zap.String("url", rawURL),
			zap.Int("capacity", f.gate.Capacity()),
		)
		var err error
		if release, err = f.gate.Acquire(ctx); err != nil {
			res.Error = fmt.Sprintf("waiting for browser session: %v", err)
			return res
		}
	}
	defer release()

	page, err := f.renderer.Render(ctx, rawURL, opts.Timeout)
	if err != nil {
		res.Error = err.Error()
		f.logger.Info("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return res
	}

	doc, err := extract.Parse(page.HTML)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = doc.Title()
	}
	text, strategy := f.extractor.ExtractWithStrategy(doc)

	res.Title = title
	res.Content = Truncate(text, opts.MaxLength)
	res.Success = true
	f.logger.Debug("fetched page",
		zap.String("url", rawURL),
		zap.String("strategy", strategy),
		zap.Int("chars", utf8.RuneCountInString(res.Content)),
	)
	return res
}

// IsBinary reports whether rawURL names a document format the browser
// cannot render. The match is a case-insensitive substring test, so
// "report.pdf?dl=1" is caught as well as "report.pdf".
func IsBinary(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range binaryExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// Truncate cuts text to max characters and appends "..." when anything
// was removed.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max]) + "..."
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", rawURL)
	}
	return nil
}
