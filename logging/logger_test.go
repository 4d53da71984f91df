package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesRotatedFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Encoding = "json"
	cfg.Level = "debug"
	cfg.File = filepath.Join(t.TempDir(), "logs", "winequality.log")

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Debug("model loaded", zap.String("path", "output/model.json"))
	_ = logger.Sync()

	payload, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(payload), `"msg":"model loaded"`), string(payload))
	assert.Contains(t, string(payload), `"path":"output/model.json"`)
}

func TestNewLevelFiltering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.File = filepath.Join(t.TempDir(), "warn.log")

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	payload, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "hidden")
	assert.Contains(t, string(payload), "shown")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Encoding: "xml"})
	assert.Error(t, err)

	logger, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
