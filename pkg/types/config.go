// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// BrowserConfig holds settings for the headless browser that renders pages.
type BrowserConfig struct {
	// Headless runs Chrome without a window (default true).
	Headless bool `json:"headless" yaml:"headless" mapstructure:"headless"`

	// Bin is an optional path to the Chrome binary. Empty lets the
	// launcher locate or download one.
	Bin string `json:"bin,omitempty" yaml:"bin,omitempty" mapstructure:"bin"`

	// ControlURL connects to an already running Chrome DevTools endpoint
	// instead of launching a new process.
	ControlURL string `json:"control_url,omitempty" yaml:"control_url,omitempty" mapstructure:"control_url"`
}

// FetchConfig holds settings for the page fetcher.
type FetchConfig struct {
	// MaxLength caps extracted text per page, in characters.
	MaxLength int `json:"max_length" yaml:"max_length" mapstructure:"max_length"`

	// Timeout is the per-page navigation deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Settle is the pause after DOMContentLoaded that lets deferred
	// scripts populate the page.
	Settle time.Duration `json:"settle" yaml:"settle" mapstructure:"settle"`

	// UserAgent is sent by every browser session.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxConcurrentPages bounds simultaneous browser sessions.
	MaxConcurrentPages int `json:"max_concurrent_pages" yaml:"max_concurrent_pages" mapstructure:"max_concurrent_pages"`
}

// ResearchConfig holds settings for the research loop.
type ResearchConfig struct {
	// MaxHops is the upper bound on research rounds (1-3). The loop never
	// runs more than two.
	MaxHops int `json:"max_hops" yaml:"max_hops" mapstructure:"max_hops"`

	// MaxURLsPerHop is the batch size fetched in each round.
	MaxURLsPerHop int `json:"max_urls_per_hop" yaml:"max_urls_per_hop" mapstructure:"max_urls_per_hop"`
}

// ComposeConfig holds settings for the answer composer.
type ComposeConfig struct {
	// MaxWords is the word budget of a spoken answer.
	MaxWords int `json:"max_words" yaml:"max_words" mapstructure:"max_words"`
}

// SearchConfig holds settings for candidate discovery.
type SearchConfig struct {
	// MaxResults is the maximum number of candidates to return.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Timeout is the HTTP request timeout for search APIs.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent to search APIs.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond throttles calls to each search API.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// BraveBaseURL is the Brave Search API root.
	BraveBaseURL string `json:"brave_base_url" yaml:"brave_base_url" mapstructure:"brave_base_url"`

	// BraveAPIKey authenticates Brave Search requests. Usually loaded
	// from .secrets/brave-api-key.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty" mapstructure:"brave_api_key"`

	// Freshness restricts news results by age (Brave "pd", "pw", "pm").
	Freshness string `json:"freshness,omitempty" yaml:"freshness,omitempty" mapstructure:"freshness"`
}

// ArchiveConfig holds settings for the research archive.
type ArchiveConfig struct {
	// Dir is the base directory holding the archive database and exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default maximum number of query results.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig holds settings for structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File, when set, sends logs to a rotating file instead of stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// AppConfig groups all component configurations.
type AppConfig struct {
	Browser  BrowserConfig  `json:"browser" yaml:"browser" mapstructure:"browser"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	Compose  ComposeConfig  `json:"compose" yaml:"compose" mapstructure:"compose"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Archive  ArchiveConfig  `json:"archive" yaml:"archive" mapstructure:"archive"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}
