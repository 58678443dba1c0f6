package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFileOrEnv(t *testing.T) {
	t.Setenv("DG_MAX_RATIO", "")
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.MaxRatio)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "filesystem", cfg.Cache.Backend)
	assert.Equal(t, int64(5<<30), cfg.Cache.QuotaBytes)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("DG_MAX_RATIO", "0.3")
	t.Setenv("DG_LOG_LEVEL", "debug")
	t.Setenv("DG_CACHE_BACKEND", "memory")
	t.Setenv("DG_S3_ENDPOINT", "http://localhost:9000")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.MaxRatio)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "http://localhost:9000", cfg.S3.Endpoint)
}
