// Package config provides centralized configuration for the anonrelay bot.
// Values come from the environment (optionally seeded from a .env file) and
// an optional config file; the real environment always wins.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderStub   = "stub"
)

// Config holds all bot configuration values. It is built once at startup
// and passed by value into each component.
type Config struct {
	// BotToken is the chat transport credential. Required.
	BotToken string `mapstructure:"BOT_TOKEN"`

	// ChannelID is the channel anonymous posts are relayed to. Required.
	ChannelID string `mapstructure:"CHANNEL_ID"`

	// GroupID is the discussion group where /anon works. Empty disables /anon.
	GroupID string `mapstructure:"GROUP_ID"`

	// LLMProvider selects the model backend: "openai", "claude", "gemini", "ollama" or "stub".
	LLMProvider string `mapstructure:"LLM_PROVIDER"`

	OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`

	AnthropicKey   string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel string `mapstructure:"ANTHROPIC_MODEL"`

	GeminiKey   string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel string `mapstructure:"GEMINI_MODEL"`

	OllamaURL   string `mapstructure:"OLLAMA_URL"`
	OllamaModel string `mapstructure:"OLLAMA_MODEL"`

	// LLMRateLimit is the maximum number of model requests started per second.
	LLMRateLimit float64 `mapstructure:"LLM_RATE_LIMIT"`

	// HTTPTimeout is the timeout for outgoing HTTP requests (model, topic source).
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`

	// PosterInterval is the cadence of synthetic posts.
	PosterInterval time.Duration `mapstructure:"POSTER_INTERVAL"`

	// PosterCooldown is the wait after a failed synthetic post.
	PosterCooldown time.Duration `mapstructure:"POSTER_COOLDOWN"`

	// PosterTopic is the channel topic synthetic posts stay on.
	PosterTopic string `mapstructure:"POSTER_TOPIC"`

	// PosterSourceURL optionally seeds synthetic posts with a page excerpt.
	PosterSourceURL string `mapstructure:"POSTER_SOURCE_URL"`

	// ExtraKeywords are appended to the built-in moderation denylist.
	ExtraKeywords []string `mapstructure:"MODERATION_EXTRA_KEYWORDS"`

	// Workers is the number of concurrent event handlers.
	Workers int `mapstructure:"WORKERS"`

	// MetricsListen is the address of the ops HTTP server. Empty disables it.
	MetricsListen string `mapstructure:"METRICS_LISTEN"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"BOT_TOKEN":                 "",
	"CHANNEL_ID":                "",
	"GROUP_ID":                  "",
	"LLM_PROVIDER":              ProviderOpenAI,
	"OPENAI_API_KEY":            "",
	"OPENAI_BASE_URL":           "https://api.openai.com/v1",
	"OPENAI_MODEL":              "gpt-4o-mini",
	"ANTHROPIC_API_KEY":         "",
	"ANTHROPIC_MODEL":           "claude-sonnet-4-20250514",
	"GEMINI_API_KEY":            "",
	"GEMINI_MODEL":              "gemini-2.0-flash",
	"OLLAMA_URL":                "",
	"OLLAMA_MODEL":              "llama3",
	"LLM_RATE_LIMIT":            2.0,
	"HTTP_TIMEOUT":              60 * time.Second,
	"POSTER_INTERVAL":           360 * time.Minute,
	"POSTER_COOLDOWN":           60 * time.Minute,
	"POSTER_TOPIC":              "everyday campus life",
	"POSTER_SOURCE_URL":         "",
	"MODERATION_EXTRA_KEYWORDS": []string{},
	"WORKERS":                   8,
	"METRICS_LISTEN":            "",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "text",
}

// Load reads configuration from the environment and, when configFile is
// non-empty, from that file. It fails when required values are missing.
func Load(configFile string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.ExtraKeywords = cleanList(cfg.ExtraKeywords)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid value at once.
func (c Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.ChannelID == "" {
		errs = append(errs, errors.New("CHANNEL_ID is required"))
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderOllama, ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLMProvider))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers))
	}
	if c.PosterInterval <= 0 || c.PosterCooldown <= 0 {
		errs = append(errs, errors.New("POSTER_INTERVAL and POSTER_COOLDOWN must be positive"))
	}
	return errors.Join(errs...)
}

// BackendConfigured returns true when the selected provider has what it
// needs to make calls.
func (c Config) BackendConfigured() bool {
	switch c.LLMProvider {
	case ProviderClaude:
		return c.AnthropicKey != ""
	case ProviderGemini:
		return c.GeminiKey != ""
	case ProviderOllama:
		return c.OllamaURL != ""
	case ProviderStub:
		return true
	default:
		return c.OpenAIKey != ""
	}
}

// GroupEnabled reports whether the /anon group feature is active.
func (c Config) GroupEnabled() bool {
	return c.GroupID != ""
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment. Values
// already set in the real environment take precedence. A missing file is
// not an error.
func LoadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load env file", "path", path, "error", err)
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
