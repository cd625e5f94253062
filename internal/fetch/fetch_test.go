// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/market-research/internal/browser"
	"github.com/pdiddy/market-research/pkg/types"
)

// fakeRenderer serves canned pages and records calls.
type fakeRenderer struct {
	pages   map[string]browser.Page
	errs    map[string]error
	panicOn string
	delay   time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	timeouts sync.Map

	startErr error
	started  bool
	closed   bool
}

func (r *fakeRenderer) Render(ctx context.Context, url string, timeout time.Duration) (browser.Page, error) {
	r.calls.Add(1)
	r.timeouts.Store(url, timeout)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return browser.Page{}, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if url == r.panicOn {
		panic("renderer crashed")
	}
	if err, ok := r.errs[url]; ok {
		return browser.Page{}, err
	}
	if p, ok := r.pages[url]; ok {
		return p, nil
	}
	return browser.Page{URL: url, HTML: "<html><body></body></html>"}, nil
}

func (r *fakeRenderer) Start(context.Context) error {
	r.started = true
	return r.startErr
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	return nil
}

const articlePage = `<html><head><title>Fed Holds Rates</title></head><body>
<nav>Markets Home Sectors</nav>
<article>
<p>The Federal Reserve left its benchmark rate unchanged on Wednesday.</p>
<p>Officials signalled two cuts are still likely before the end of the year.</p>
<p>Treasury yields fell after the statement as traders priced in easing.</p>
</article>
</body></html>`

func TestFetchSuccess(t *testing.T) {
	r := &fakeRenderer{pages: map[string]browser.Page{
		"https://news.example.com/fed": {Title: "Fed Holds Rates", HTML: articlePage},
	}}
	f := New(r, types.FetchConfig{}, nil)

	res := f.Fetch(context.Background(), "https://news.example.com/fed", Options{})
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Error)
	assert.Equal(t, "https://news.example.com/fed", res.URL)
	assert.Equal(t, "Fed Holds Rates", res.Title)
	assert.Contains(t, res.Content, "Federal Reserve left its benchmark rate")
	assert.NotContains(t, res.Content, "Markets Home")
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestFetchTitleFallsBackToDocument(t *testing.T) {
	r := &fakeRenderer{pages: map[string]browser.Page{
		"https://news.example.com/fed": {HTML: articlePage},
	}}
	f := New(r, types.FetchConfig{}, nil)

	res := f.Fetch(context.Background(), "https://news.example.com/fed", Options{})
	require.True(t, res.Success)
	assert.Equal(t, "Fed Holds Rates", res.Title)
}

func TestFetchBinaryFormats(t *testing.T) {
	urls := []string{
		"https://example.com/report.pdf",
		"https://example.com/REPORT.PDF",
		"https://example.com/deck.pptx",
		"https://example.com/files/data.xlsx?download=1",
		"https://example.com/archive.zip",
		"https://example.com/a.rar",
		"https://example.com/letter.doc",
	}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			r := &fakeRenderer{}
			f := New(r, types.FetchConfig{}, nil)
			res := f.Fetch(context.Background(), u, Options{})
			assert.False(t, res.Success)
			assert.Equal(t, ErrBinaryFormat, res.Error)
			assert.Equal(t, time.Duration(0), res.Duration)
			assert.Empty(t, res.Title)
			assert.Empty(t, res.Content)
			assert.Equal(t, int32(0), r.calls.Load(), "renderer must not be called")
		})
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/report.pdf", true},
		{"https://example.com/x.Docx", true},
		{"https://example.com/article", false},
		{"https://example.com/markets/stocks.html", false},
	}
	for _, tt := range tests {
		if got := IsBinary(tt.url); got != tt.want {
			t.Errorf("IsBinary(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestFetchInvalidURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "ftp://example.com/x", "https://"} {
		r := &fakeRenderer{}
		f := New(r, types.FetchConfig{}, nil)
		res := f.Fetch(context.Background(), u, Options{})
		assert.False(t, res.Success, u)
		assert.NotEmpty(t, res.Error, u)
		assert.Equal(t, int32(0), r.calls.Load(), u)
	}
}

func TestFetchRenderError(t *testing.T) {
	r := &fakeRenderer{errs: map[string]error{
		"https://example.com/slow": errors.New("waiting for https://example.com/slow to load: context deadline exceeded"),
	}}
	f := New(r, types.FetchConfig{}, nil)

	res := f.Fetch(context.Background(), "https://example.com/slow", Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "deadline exceeded")
	assert.Empty(t, res.Title)
	assert.Empty(t, res.Content)
}

func TestFetchRecoversPanic(t *testing.T) {
	r := &fakeRenderer{panicOn: "https://example.com/boom"}
	f := New(r, types.FetchConfig{}, nil)

	var res types.FetchResult
	require.NotPanics(t, func() {
		res = f.Fetch(context.Background(), "https://example.com/boom", Options{})
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "renderer crashed")
	assert.Equal(t, "https://example.com/boom", res.URL)

	// The gate permit taken before the panic must have been returned.
	assert.True(t, f.Fetch(context.Background(), "https://example.com/ok", Options{}).Success)
}

func TestFetchTruncates(t *testing.T) {
	body := "<html><body>" + strings.Repeat("é", 120) + "</body></html>"
	r := &fakeRenderer{pages: map[string]browser.Page{
		"https://example.com/long": {HTML: body},
	}}
	f := New(r, types.FetchConfig{}, nil)

	res := f.Fetch(context.Background(), "https://example.com/long", Options{MaxLength: 100})
	require.True(t, res.Success)
	assert.Equal(t, strings.Repeat("é", 100)+"...", res.Content)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"eleven chars", 6, "eleven..."},
		{"日本語のテキスト", 3, "日本語..."},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFetchAppliesDefaults(t *testing.T) {
	r := &fakeRenderer{}
	f := New(r, types.FetchConfig{Timeout: 3 * time.Second}, nil)

	f.Fetch(context.Background(), "https://example.com/a", Options{})
	f.Fetch(context.Background(), "https://example.com/b", Options{Timeout: time.Second})

	got, _ := r.timeouts.Load("https://example.com/a")
	assert.Equal(t, 3*time.Second, got)
	got, _ = r.timeouts.Load("https://example.com/b")
	assert.Equal(t, time.Second, got)
}

func TestFetchBoundsConcurrentSessions(t *testing.T) {
	r := &fakeRenderer{delay: 20 * time.Millisecond}
	f := New(r, types.FetchConfig{MaxConcurrentPages: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Fetch(context.Background(), "https://example.com/page", Options{})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), r.calls.Load())
	assert.LessOrEqual(t, r.peak.Load(), int32(2))
}

func TestFetchCancelledWhileWaitingForGate(t *testing.T) {
	r := &fakeRenderer{delay: time.Second}
	core, logs := observer.New(zapcore.DebugLevel)
	f := New(r, types.FetchConfig{MaxConcurrentPages: 1}, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Fetch(ctx, "https://example.com/holder", Options{})
	}()
	time.Sleep(20 * time.Millisecond)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	res := f.Fetch(waitCtx, "https://example.com/waiter", Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "waiting for browser session")

	busy := logs.FilterMessage("all browser sessions busy, waiting").All()
	require.Len(t, busy, 1)
	assert.Equal(t, int64(1), busy[0].ContextMap()["capacity"])
	assert.Equal(t, "https://example.com/waiter", busy[0].ContextMap()["url"])

	cancel()
	<-done
}

func TestStartAndClose(t *testing.T) {
	r := &fakeRenderer{}
	f := New(r, types.FetchConfig{}, nil)
	require.NoError(t, f.Start(context.Background()))
	assert.True(t, r.started)
	require.NoError(t, f.Close())
	assert.True(t, r.closed)

	r = &fakeRenderer{startErr: errors.New("chrome not found")}
	f = New(r, types.FetchConfig{}, nil)
	err := f.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
}
