// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/market-research/internal/httputil"
	"github.com/pdiddy/market-research/pkg/types"
)

// DefaultBraveBaseURL is the Brave Search API root.
const DefaultBraveBaseURL = "https://api.search.brave.com/res/v1"

const (
	maxErrorBodyBytes = 8 * 1024
	maxQueryWords     = 50
	braveMaxCount     = 20
)

// ErrMissingAPIKey is returned when no Brave API key is configured.
var ErrMissingAPIKey = errors.New("brave api key is not configured")

// APIError is a non-2xx response from Brave.
type APIError struct {
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("brave returned %d: %s", e.StatusCode, e.Body)
}

// BraveBackend queries the Brave news search endpoint. Requests are
// throttled by a token bucket and 429 responses are retried with backoff.
type BraveBackend struct {
	Client  *http.Client
	APIKey  string
	BaseURL string

	limiter *rate.Limiter
}

// NewBraveBackend returns a backend configured from cfg.
func NewBraveBackend(cfg types.SearchConfig) *BraveBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BraveBaseURL), "/")
	if base == "" {
		base = DefaultBraveBaseURL
	}
	return &BraveBackend{
		Client:  &http.Client{Timeout: timeout},
		APIKey:  strings.TrimSpace(cfg.BraveAPIKey),
		BaseURL: base,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name returns the backend identifier.
func (b *BraveBackend) Name() string { return "brave" }

type braveResponse struct {
	Results []braveResult `json:"results"`
	News    struct {
		Results []braveResult `json:"results"`
	} `json:"news"`
}

type braveResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Age         string `json:"age"`
	MetaURL     struct {
		Hostname string `json:"hostname"`
	} `json:"meta_url"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Search fetches news candidates for query.
func (b *BraveBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Candidate, error) {
	if b.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	q := trimToWordLimit(query, maxQueryWords)
	if q == "" {
		return nil, nil
	}

	count := cfg.MaxResults
	if count <= 0 || count > braveMaxCount {
		count = braveMaxCount
	}

	params := url.Values{
		"q":                {q},
		"count":            {fmt.Sprintf("%d", count)},
		"spellcheck":       {"0"},
		"text_decorations": {"0"},
	}
	if cfg.Freshness != "" {
		params.Set("freshness", cfg.Freshness)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/news/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("request brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	raw := parsed.Results
	if len(raw) == 0 {
		raw = parsed.News.Results
	}

	out := make([]types.Candidate, 0, len(raw))
	for _, r := range raw {
		u := strings.TrimSpace(r.URL)
		if u == "" {
			continue
		}
		source := strings.TrimSpace(r.Profile.Name)
		if source == "" {
			source = strings.TrimPrefix(r.MetaURL.Hostname, "www.")
		}
		out = append(out, types.Candidate{
			URL:    u,
			Title:  strings.TrimSpace(r.Title),
			Source: source,
		})
	}
	return out, nil
}

func trimToWordLimit(input string, maxWords int) string {
	words := strings.Fields(input)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
