package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "evalcoach.db", cfg.DBPath)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 128, cfg.CacheSize)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.False(t, cfg.Configured())
}

func TestLoadProviderEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOOGLE_GENERATIVE_AI_API_KEY", "gm-key")
	t.Setenv("GEMINI_MODEL", "gemini-custom")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("OPENAI_MODEL", "gpt-custom")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gm-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-custom", cfg.Gemini.Model)
	assert.Equal(t, "oa-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-custom", cfg.OpenAI.Model)
	assert.True(t, cfg.Configured())
}

func TestLoadPrefixedEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "addr: \":9090\"\nlog_level: debug\ndb_path: custom.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evalcoach.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)
	t.Setenv("EVALCOACH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "custom.db", cfg.DBPath)
}

func TestConfigMappings(t *testing.T) {
	cfg := Config{
		RequestTimeout: 30 * time.Second,
		CacheSize:      64,
		Gemini:         ProviderConfig{APIKey: "gk", Model: "g-model"},
		OpenAI:         ProviderConfig{APIKey: "ok", Model: "o-model", BaseURL: "https://proxy.local/v1"},
	}

	gc := cfg.GeminiClient()
	assert.Equal(t, "gk", gc.APIKey)
	assert.Equal(t, "g-model", gc.Model)
	assert.Equal(t, 30*time.Second, gc.Timeout)

	oc := cfg.OpenAIClient()
	assert.Equal(t, "ok", oc.APIKey)
	assert.Equal(t, "https://proxy.local/v1", oc.BaseURL)

	assert.Equal(t, 64, cfg.Orchestrator().CacheSize)
}
