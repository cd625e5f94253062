// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser renders pages in headless Chrome through the DevTools
// protocol. One Chrome process is shared, but every render runs in its own
// incognito browser context, so concurrent renders share no cookies,
// storage or cache, and each context is disposed when its render returns.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/pkg/types"
)

// DefaultUserAgent is a current desktop Chrome user agent. Many news sites
// serve stripped or blocked pages to obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultSettle is the pause after DOMContentLoaded that lets deferred
// scripts populate the page.
const DefaultSettle = time.Second

// ErrNotStarted is returned by Render before Start has succeeded.
var ErrNotStarted = errors.New("browser not started")

// Page is the rendered state of one URL.
type Page struct {
	URL   string
	Title string
	HTML  string
}

// Renderer renders a URL and returns its DOM after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string, timeout time.Duration) (Page, error)
}

// Browser owns a Chrome process (or a connection to one) and renders pages
// in isolated sessions. It is safe for concurrent use.
type Browser struct {
	cfg       types.BrowserConfig
	userAgent string
	settle    time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// New returns an unstarted Browser. Fetch settings supply the user agent
// and settle period; zero values fall back to the package defaults.
func New(cfg types.BrowserConfig, fetch types.FetchConfig, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	ua := fetch.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	settle := fetch.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Browser{
		cfg:       cfg,
		userAgent: ua,
		settle:    settle,
		logger:    logger.Named("browser"),
	}
}

// Start connects to the configured DevTools endpoint or launches Chrome.
// Calling Start on a healthy browser is a no-op. A failure here means no
// page can be rendered at all.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return nil
		}
		b.logger.Warn("stale browser connection, reconnecting")
		b.closeLocked()
	}

	controlURL := b.cfg.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Headless(b.cfg.Headless)
		if b.cfg.Bin != "" {
			l = l.Bin(b.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launching chrome: %w", err)
		}
		controlURL = u
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return fmt.Errorf("connecting to chrome: %w", err)
	}

	b.browser = br
	b.launcher = l
	b.logger.Info("browser started", zap.String("control_url", controlURL))
	return nil
}

// Render opens url in a fresh incognito context, waits for DOMContentLoaded
// (bounded by timeout), pauses for the settle period, and returns the page
// title and HTML (read under a second timeout). A render therefore takes at
// most about 2*timeout plus the settle period. The context and page are closed on every return path.
func (b *Browser) Render(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	b.mu.Lock()
	br := b.browser
	b.mu.Unlock()
	if br == nil {
		return Page{}, ErrNotStarted
	}

	session, err := br.Incognito()
	if err != nil {
		return Page{}, fmt.Errorf("creating incognito context: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			b.logger.Debug("closing incognito context", zap.String("url", url), zap.Error(cerr))
		}
	}()

	page, err := session.Page(proto.TargetCreateTarget{})
	if err != nil {
		return Page{}, fmt.Errorf("creating page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			b.logger.Debug("closing page", zap.String("url", url), zap.Error(cerr))
		}
	}()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.userAgent}); err != nil {
		return Page{}, fmt.Errorf("setting user agent: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	nav := page.Context(navCtx)
	wait := nav.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := nav.Navigate(url); err != nil {
		return Page{}, fmt.Errorf("navigating to %s: %w", url, err)
	}
	wait()
	if err := navCtx.Err(); err != nil {
		return Page{}, fmt.Errorf("waiting for %s to load: %w", url, err)
	}

	if err := sleep(ctx, b.settle); err != nil {
		return Page{}, err
	}

	return snapshot(ctx, timeout, url, func(c context.Context) domReader { return page.Context(c) })
}

// domReader is the part of *rod.Page that snapshot reads.
type domReader interface {
	HTML() (string, error)
	Info() (*proto.TargetTargetInfo, error)
}

// snapshot reads the rendered DOM under its own deadline. rod retries
// element lookups until its context ends, so a page whose scripts keep the
// main thread busy would otherwise block forever.
func snapshot(ctx context.Context, timeout time.Duration, url string, bind func(context.Context) domReader) (Page, error) {
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	live := bind(readCtx)
	src, err := live.HTML()
	if err != nil {
		if cerr := readCtx.Err(); cerr != nil {
			return Page{}, fmt.Errorf("reading %s: %w", url, cerr)
		}
		return Page{}, fmt.Errorf("reading page html: %w", err)
	}

	out := Page{URL: url, HTML: src}
	if info, err := live.Info(); err == nil {
		out.Title = info.Title
		if info.URL != "" {
			out.URL = info.URL
		}
	}
	return out, nil
}

// Close shuts the browser down and, if this process launched Chrome, kills
// it and removes its profile directory.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *Browser) closeLocked() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
