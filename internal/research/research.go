// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs the multi-hop research loop: fetch a batch of
// candidate pages concurrently, score what they yield, and fetch a second
// batch when the first leaves confidence low.
package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-research/internal/compose"
	"github.com/pdiddy/market-research/internal/fetch"
	"github.com/pdiddy/market-research/internal/score"
	"github.com/pdiddy/market-research/pkg/types"
)

// Loop defaults and limits.
const (
	DefaultMaxHops       = 2
	DefaultMaxURLsPerHop = 3

	// MaxHopsLimit is the largest MaxHops a caller may request.
	MaxHopsLimit = 3

	// hopCap is the number of hops the loop actually runs at most. A
	// MaxHops of 3 is accepted but behaves like 2.
	hopCap = 2

	// ConfidenceThreshold is the mean score at or above which the loop
	// stops after the first hop.
	ConfidenceThreshold = 0.7
)

// ErrInvalidOptions is returned by Run for out-of-range options.
var ErrInvalidOptions = errors.New("invalid research options")

// Fetcher renders one URL. Implementations report per-URL failures on the
// result and never return errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) types.FetchResult
}

// Options bounds one research run. Zero MaxHops and MaxURLsPerHop take the
// defaults; zero MaxLength and Timeout take the fetcher's defaults.
type Options struct {
	MaxHops       int
	MaxURLsPerHop int
	MaxLength     int
	Timeout       time.Duration
}

func (o Options) normalize() (Options, error) {
	if o.MaxHops == 0 {
		o.MaxHops = DefaultMaxHops
	}
	if o.MaxURLsPerHop == 0 {
		o.MaxURLsPerHop = DefaultMaxURLsPerHop
	}
	if o.MaxHops < 1 || o.MaxHops > MaxHopsLimit {
		return o, fmt.Errorf("%w: max hops %d outside 1..%d", ErrInvalidOptions, o.MaxHops, MaxHopsLimit)
	}
	if o.MaxURLsPerHop < 0 {
		return o, fmt.Errorf("%w: max urls per hop %d is negative", ErrInvalidOptions, o.MaxURLsPerHop)
	}
	if o.MaxLength < 0 || o.Timeout < 0 {
		return o, fmt.Errorf("%w: max length and timeout must not be negative", ErrInvalidOptions)
	}
	return o, nil
}

// Loop drives research runs over a Fetcher. A Loop holds no per-run state
// and may serve concurrent runs.
type Loop struct {
	fetcher Fetcher
	logger  *zap.Logger
	w       io.Writer
}

// NewLoop returns a Loop. Progress lines are written to w (nil discards
// them) and structured events go to logger.
func NewLoop(f Fetcher, logger *zap.Logger, w io.Writer) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if w == nil {
		w = io.Discard
	}
	return &Loop{fetcher: f, logger: logger.Named("research"), w: w}
}

// Start starts the fetcher when it needs starting. An error here is the
// only failure that makes research unavailable.
func (l *Loop) Start(ctx context.Context) error {
	s, ok := l.fetcher.(interface{ Start(context.Context) error })
	if !ok {
		return nil
	}
	return s.Start(ctx)
}

// Run researches query over candidates. Hop 1 fetches the first
// MaxURLsPerHop candidates concurrently. Hop 2 fetches the next batch only
// when the mean score so far is below ConfidenceThreshold, MaxHops allows
// it and more candidates remain. Failed fetches contribute nothing.
//
// Run returns an error only for invalid options or when the fetcher cannot
// start. If ctx is cancelled between hops, the chunks accumulated by the
// completed hops are returned.
func (l *Loop) Run(ctx context.Context, candidates []types.Candidate, query string, opts Options) (types.ResearchResult, error) {
	opts, err := opts.normalize()
	if err != nil {
		return types.ResearchResult{}, err
	}

	result := types.ResearchResult{
		ID:      uuid.NewString(),
		Query:   query,
		Started: time.Now(),
	}
	log := l.logger.With(zap.String("run", result.ID))

	var chunks []types.ContentChunk
	if len(candidates) > 0 && opts.MaxURLsPerHop > 0 {
		if err := l.Start(ctx); err != nil {
			return types.ResearchResult{}, fmt.Errorf("starting fetcher: %w", err)
		}
	}

	maxHops := min(opts.MaxHops, hopCap)
	for hop := 1; hop <= maxHops; hop++ {
		lo := (hop - 1) * opts.MaxURLsPerHop
		if opts.MaxURLsPerHop == 0 || lo >= len(candidates) {
			break
		}
		if hop > 1 {
			avg := score.Mean(chunks)
			if avg >= ConfidenceThreshold {
				log.Info("confidence reached, stopping", zap.Int("hop", hop-1), zap.Float64("confidence", avg))
				break
			}
			log.Info("confidence low, continuing", zap.Int("next_hop", hop), zap.Float64("confidence", avg))
		}
		if err := ctx.Err(); err != nil {
			log.Warn("research cancelled, returning partial result", zap.Int("completed_hops", result.Hops), zap.Error(err))
			break
		}

		hi := min(lo+opts.MaxURLsPerHop, len(candidates))
		batch := candidates[lo:hi]
		fmt.Fprintf(l.w, "Hop %d: fetching %d pages\n", hop, len(batch))

		found := l.runHop(ctx, log, hop, batch, query, opts)
		chunks = append(chunks, found...)
		result.Hops = hop

		fmt.Fprintf(l.w, "Hop %d: %d of %d pages usable\n", hop, len(found), len(batch))
		log.Info("hop finished",
			zap.Int("hop", hop),
			zap.Int("fetched", len(batch)),
			zap.Int("chunks", len(found)),
		)
	}

	finish(&result, chunks)
	return result, nil
}

// runHop fetches batch concurrently and returns the scored chunks of the
// successful fetches, sorted by descending score. Results are stored by
// index so each chunk pairs with its own candidate regardless of
// completion order.
func (l *Loop) runHop(ctx context.Context, log *zap.Logger, hop int, batch []types.Candidate, query string, opts Options) []types.ContentChunk {
	fopts := fetch.Options{MaxLength: opts.MaxLength, Timeout: opts.Timeout}
	results := make([]types.FetchResult, len(batch))

	var g errgroup.Group
	for i, c := range batch {
		i, c := i, c
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = types.FetchResult{URL: c.URL, Error: fmt.Sprintf("fetch panicked: %v", r)}
				}
			}()
			results[i] = l.fetcher.Fetch(ctx, c.URL, fopts)
			return nil
		})
	}
	g.Wait()

	var chunks []types.ContentChunk
	for i, r := range results {
		if !r.Success {
			log.Info("fetch failed",
				zap.Int("hop", hop),
				zap.String("url", batch[i].URL),
				zap.String("error", r.Error),
				zap.Duration("duration", r.Duration),
			)
			continue
		}
		title := r.Title
		if title == "" {
			title = batch[i].Title
		}
		chunks = append(chunks, types.ContentChunk{
			Content: r.Content,
			Title:   title,
			URL:     r.URL,
			Source:  sourceLabel(batch[i]),
			Hop:     hop,
		})
	}
	return score.Score(chunks, query)
}

func finish(result *types.ResearchResult, chunks []types.ContentChunk) {
	if chunks == nil {
		chunks = []types.ContentChunk{}
	}
	result.Chunks = chunks
	result.Citations = Citations(chunks)
	result.Confidence = score.Mean(chunks)
	result.Summary = compose.Summary(chunks)
	result.Finished = time.Now()
}

// Citations returns the distinct chunk URLs in first-seen order.
func Citations(chunks []types.ContentChunk) []string {
	seen := make(map[string]bool, len(chunks))
	out := []string{}
	for _, c := range chunks {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c.URL)
	}
	return out
}

// sourceLabel prefers the publisher name from search, then the host.
func sourceLabel(c types.Candidate) string {
	if c.Source != "" {
		return c.Source
	}
	if u, err := url.Parse(c.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return c.URL
}
