// Package config loads the service configuration from an optional YAML
// file overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Lexicon   LexiconConfig   `yaml:"lexicon"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	AI        AIConfig        `yaml:"ai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
	DataDir string `yaml:"data_dir"`
	DevMode bool   `yaml:"dev_mode"`

	PageCacheMinutes int `yaml:"page_cache_minutes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type LexiconConfig struct {
	URL        string `yaml:"url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type YouTubeConfig struct {
	APIKey       string `yaml:"api_key"`
	MaxResults   int64  `yaml:"max_results"`
	CacheMinutes int    `yaml:"cache_minutes"`
}

type AIConfig struct {
	Provider          string `yaml:"provider"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	OpenAIBaseURL     string `yaml:"openai_base_url"`
	Model             string `yaml:"model"`
	CacheSeconds      int    `yaml:"cache_seconds"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// loadEnv tries .env.development first (local development), then .env.
func loadEnv() {
	if err := godotenv.Load(".env.development"); err != nil {
		_ = godotenv.Load()
	}
}

// Load reads CONFIG_FILE (default config.yaml) after loading .env files.
// A missing file is not an error; every setting has a default.
func Load() (*Config, error) {
	loadEnv()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFile(path)
}

// LoadFile is Load without the .env step.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	envString("PORT", &c.Server.Port)
	envString("GIN_MODE", &c.Server.GinMode)
	envString("DATA_DIR", &c.Server.DataDir)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FILE", &c.Log.File)
	envString("LEXICON_URL", &c.Lexicon.URL)
	envString("YOUTUBE_API_KEY", &c.YouTube.APIKey)
	envString("AI_PROVIDER", &c.AI.Provider)
	envString("GEMINI_API_KEY", &c.AI.GeminiAPIKey)
	envString("OPENAI_API_KEY", &c.AI.OpenAIAPIKey)
	envString("OPENAI_BASE_URL", &c.AI.OpenAIBaseURL)
	envString("AI_MODEL", &c.AI.Model)

	if v := os.Getenv("DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEV_MODE %q: %w", v, err)
		}
		c.Server.DevMode = b
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8082"
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = "data"
	}
	if c.Server.PageCacheMinutes <= 0 {
		c.Server.PageCacheMinutes = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Lexicon.TTLSeconds <= 0 {
		c.Lexicon.TTLSeconds = 600
	}
	if c.YouTube.MaxResults <= 0 {
		c.YouTube.MaxResults = 20
	}
	if c.YouTube.CacheMinutes <= 0 {
		c.YouTube.CacheMinutes = 30
	}

	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.Provider == "" {
		switch {
		case c.AI.GeminiAPIKey != "":
			c.AI.Provider = ProviderGemini
		case c.AI.OpenAIAPIKey != "":
			c.AI.Provider = ProviderOpenAI
		default:
			c.AI.Provider = ProviderNone
		}
	}
	if c.AI.Model == "" {
		switch c.AI.Provider {
		case ProviderGemini:
			c.AI.Model = defaultGeminiModel
		case ProviderOpenAI:
			c.AI.Model = defaultOpenAIModel
		}
	}
	if c.AI.CacheSeconds <= 0 {
		c.AI.CacheSeconds = 3600
	}
	if c.AI.RequestsPerMinute <= 0 {
		c.AI.RequestsPerMinute = 60
	}

	// 2 requests per second, bucket size of 5
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 2
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("gin mode must be debug, release or test, got %q", c.Server.GinMode)
	}

	switch c.AI.Provider {
	case ProviderNone:
	case ProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
		}
	case ProviderOpenAI:
		if c.AI.OpenAIAPIKey == "" {
			return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY or ai.openai_api_key)")
		}
	default:
		return fmt.Errorf("unknown AI provider %q", c.AI.Provider)
	}
	return nil
}

func (c *Config) LexiconTTL() time.Duration {
	return time.Duration(c.Lexicon.TTLSeconds) * time.Second
}

func (c *Config) PageCacheTTL() time.Duration {
	return time.Duration(c.Server.PageCacheMinutes) * time.Minute
}

func (c *Config) CompetitorCacheTTL() time.Duration {
	return time.Duration(c.YouTube.CacheMinutes) * time.Minute
}

func (c *Config) AICacheTTL() time.Duration {
	return time.Duration(c.AI.CacheSeconds) * time.Second
}

// YouTubeEnabled reports whether competitor data can be fetched.
func (c *Config) YouTubeEnabled() bool {
	return c.YouTube.APIKey != ""
}
