package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "GIN_MODE", "DATA_DIR", "LOG_LEVEL", "LOG_FILE", "LEXICON_URL",
	"YOUTUBE_API_KEY", "AI_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY",
	"OPENAI_BASE_URL", "AI_MODEL", "DEV_MODE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "data", cfg.Server.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 600*time.Second, cfg.LexiconTTL())
	assert.Equal(t, int64(20), cfg.YouTube.MaxResults)
	assert.Equal(t, 30*time.Minute, cfg.CompetitorCacheTTL())
	assert.Equal(t, 30*time.Minute, cfg.PageCacheTTL())
	assert.Equal(t, ProviderNone, cfg.AI.Provider)
	assert.Equal(t, time.Hour, cfg.AICacheTTL())
	assert.Equal(t, 2.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.False(t, cfg.YouTubeEnabled())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9000"
  gin_mode: debug
lexicon:
  url: https://example.com/words.json
  ttl_seconds: 60
youtube:
  api_key: file-key
ai:
  provider: OpenAI
  openai_api_key: sk-test
  openai_base_url: https://llm.example.com/v1
`)
	t.Setenv("PORT", "9100")
	t.Setenv("DEV_MODE", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "debug", cfg.Server.GinMode)
	assert.True(t, cfg.Server.DevMode)
	assert.Equal(t, "https://example.com/words.json", cfg.Lexicon.URL)
	assert.Equal(t, time.Minute, cfg.LexiconTTL())
	assert.True(t, cfg.YouTubeEnabled())
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, defaultOpenAIModel, cfg.AI.Model)
}

func TestLoadInfersProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, defaultGeminiModel, cfg.AI.Model)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port", map[string]string{"PORT": "http"}, "port must be numeric"},
		{"gin mode", map[string]string{"GIN_MODE": "loud"}, "gin mode"},
		{"gemini key", map[string]string{"AI_PROVIDER": "gemini"}, "Gemini API key is required"},
		{"openai key", map[string]string{"AI_PROVIDER": "openai"}, "OpenAI API key is required"},
		{"provider", map[string]string{"AI_PROVIDER": "claude"}, "unknown AI provider"},
		{"dev mode", map[string]string{"DEV_MODE": "maybe"}, "invalid DEV_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFile(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadUsesConfigFileEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfig(t, "log:\n  level: debug\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}
