// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/pkg/types"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(types.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("fetch failed", zap.String("url", "https://a.example"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "fetch failed")
	assert.Contains(t, out, "https://a.example")
}

func TestDefaultLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(types.LogConfig{}, &buf)
	require.NoError(t, err)

	logger.Debug("debug line")
	logger.Info("info line")
	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(types.LogConfig{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestFileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "market-research.log")
	logger, err := New(types.LogConfig{Level: "DEBUG", File: path})
	require.NoError(t, err)

	logger.Debug("hop finished", zap.Int("hop", 1))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "hop finished", entry["msg"])
	assert.Equal(t, float64(1), entry["hop"])
	assert.Equal(t, "debug", entry["level"])
}
