package engine

import (
	"log/slog"

	"github.com/yangwenmai/anonrelay/internal/config"
)

// FromConfig builds the model client for the configured provider. It
// returns false when the provider has no credential, which disables the
// classifier stage and the synthetic poster for the lifetime of the process.
func FromConfig(cfg config.Config) (ModelClient, bool) {
	if !cfg.BackendConfigured() {
		return nil, false
	}

	opts := []Option{WithTimeout(cfg.HTTPTimeout)}
	var mc ModelClient
	switch cfg.LLMProvider {
	case config.ProviderClaude:
		mc = NewClaudeClient(cfg.AnthropicKey, append(opts, WithModel(cfg.AnthropicModel))...)
	case config.ProviderGemini:
		mc = NewGeminiClient(cfg.GeminiKey, append(opts, WithModel(cfg.GeminiModel))...)
	case config.ProviderOllama:
		mc = NewOllamaClient(cfg.OllamaURL, append(opts, WithModel(cfg.OllamaModel))...)
	case config.ProviderStub:
		mc = &StubModelClient{}
	default:
		mc = NewOpenAIClient(cfg.OpenAIKey, append(opts, WithModel(cfg.OpenAIModel), WithBaseURL(cfg.OpenAIBaseURL))...)
	}

	slog.Info("model backend configured", "provider", cfg.LLMProvider, "rate_limit", cfg.LLMRateLimit)
	return RateLimited(mc, cfg.LLMRateLimit), true
}
