// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the application configuration from viper:
// built-in defaults, then the config file, then MARKET_RESEARCH_*
// environment variables, then flags bound by the commands.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/market-research/internal/browser"
	"github.com/pdiddy/market-research/internal/search"
	"github.com/pdiddy/market-research/pkg/types"
)

// EnvPrefix prefixes every environment variable, e.g.
// MARKET_RESEARCH_FETCH_TIMEOUT=20s.
const EnvPrefix = "MARKET_RESEARCH"

var defaults = map[string]any{
	"browser.headless":           true,
	"browser.bin":                "",
	"browser.control_url":        "",
	"fetch.max_length":           5000,
	"fetch.timeout":              10 * time.Second,
	"fetch.settle":               time.Second,
	"fetch.user_agent":           browser.DefaultUserAgent,
	"fetch.max_concurrent_pages": 8,
	"research.max_hops":          2,
	"research.max_urls_per_hop":  3,
	"compose.max_words":          25,
	"search.max_results":         10,
	"search.timeout":             15 * time.Second,
	"search.user_agent":          "market-research/0.1",
	"search.requests_per_second": 1.0,
	"search.brave_base_url":      search.DefaultBraveBaseURL,
	"search.brave_api_key":       "",
	"search.freshness":           "",
	"archive.dir":                "research",
	"archive.max_results":        20,
	"log.level":                  "info",
	"log.file":                   "",
}

// SetDefaults registers every known key with its default and enables
// environment overrides.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load returns the validated configuration held by v. SetDefaults must
// have been called on v first; defaults applied in between, such as
// secrets, are kept.
func Load(v *viper.Viper) (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.AppConfig{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting at once.
func Validate(cfg types.AppConfig) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(cfg.Fetch.MaxLength > 0, "fetch.max_length must be positive, got %d", cfg.Fetch.MaxLength)
	check(cfg.Fetch.Timeout > 0, "fetch.timeout must be positive, got %s", cfg.Fetch.Timeout)
	check(cfg.Fetch.Settle >= 0, "fetch.settle must not be negative, got %s", cfg.Fetch.Settle)
	check(cfg.Fetch.MaxConcurrentPages > 0, "fetch.max_concurrent_pages must be positive, got %d", cfg.Fetch.MaxConcurrentPages)
	check(cfg.Research.MaxHops >= 1 && cfg.Research.MaxHops <= 3, "research.max_hops must be between 1 and 3, got %d", cfg.Research.MaxHops)
	check(cfg.Research.MaxURLsPerHop > 0, "research.max_urls_per_hop must be positive, got %d", cfg.Research.MaxURLsPerHop)
	check(cfg.Compose.MaxWords > 0, "compose.max_words must be positive, got %d", cfg.Compose.MaxWords)
	check(cfg.Search.MaxResults > 0, "search.max_results must be positive, got %d", cfg.Search.MaxResults)
	check(cfg.Search.RequestsPerSecond > 0, "search.requests_per_second must be positive, got %g", cfg.Search.RequestsPerSecond)
	check(cfg.Archive.Dir != "", "archive.dir must be set")

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
