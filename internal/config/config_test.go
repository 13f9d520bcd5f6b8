package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigAppliesProcessingDefaults(t *testing.T) {
	path := writeConfig(t, `{"env": "test", "port": 8080, "processing": {}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Processing.Workers)
	assert.Equal(t, 3, cfg.Processing.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Processing.RetryBase())
	assert.Equal(t, 300*time.Second, cfg.Processing.RetryCap())
	assert.Equal(t, 540*time.Second, cfg.Processing.AttemptTimeout())
	assert.Equal(t, 600*time.Second, cfg.Processing.Lease())
	assert.Equal(t, 12000, cfg.Processing.ChunkTokenThreshold)
	assert.Equal(t, 50<<20, cfg.Processing.MaxUploadSizeBytes)
	assert.Equal(t, 5000, cfg.Processing.StoredTextLimitChars)
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"processing": {
			"workers": 8,
			"max_attempts": 5,
			"retry_base_seconds": 2,
			"retry_cap_seconds": 60
		}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Processing.Workers)
	assert.Equal(t, 5, cfg.Processing.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Processing.RetryBase())
	assert.Equal(t, time.Minute, cfg.Processing.RetryCap())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidJSON(t *testing.T) {
	path := writeConfig(t, "{ not json")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
