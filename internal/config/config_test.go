// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-research/internal/browser"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5000, cfg.Fetch.MaxLength)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, time.Second, cfg.Fetch.Settle)
	assert.Equal(t, browser.DefaultUserAgent, cfg.Fetch.UserAgent)
	assert.Equal(t, 8, cfg.Fetch.MaxConcurrentPages)
	assert.Equal(t, 2, cfg.Research.MaxHops)
	assert.Equal(t, 3, cfg.Research.MaxURLsPerHop)
	assert.Equal(t, 25, cfg.Compose.MaxWords)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 1.0, cfg.Search.RequestsPerSecond)
	assert.Equal(t, "https://api.search.brave.com/res/v1", cfg.Search.BraveBaseURL)
	assert.Equal(t, "research", cfg.Archive.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market-research.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fetch:
  timeout: 20s
  max_length: 8000
research:
  max_hops: 1
log:
  level: debug
`), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 8000, cfg.Fetch.MaxLength)
	assert.Equal(t, 1, cfg.Research.MaxHops)
	assert.Equal(t, 3, cfg.Research.MaxURLsPerHop)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MARKET_RESEARCH_FETCH_TIMEOUT", "3s")
	t.Setenv("MARKET_RESEARCH_RESEARCH_MAX_URLS_PER_HOP", "5")
	t.Setenv("MARKET_RESEARCH_SEARCH_BRAVE_API_KEY", "BSA-env")

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 5, cfg.Research.MaxURLsPerHop)
	assert.Equal(t, "BSA-env", cfg.Search.BraveAPIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("research.max_hops", 4)
	v.Set("fetch.max_length", 0)
	v.Set("log.level", "loud")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research.max_hops")
	assert.Contains(t, err.Error(), "fetch.max_length")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadKeepsLaterDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetDefault("search.brave_api_key", "BSA-file")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "BSA-file", cfg.Search.BraveAPIKey)
}
