package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// No config file in the test working directory: every key falls back
	// to its default.
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 32, cfg.SendBuffer)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.SnapshotPeriod)
	assert.Equal(t, 30*time.Second, cfg.InformPeriod)
}
