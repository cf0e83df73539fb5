package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-1.5-flash",
	"anthropic": "claude-3-5-haiku-latest",
	"ollama":    "llama3.1",
}

// NewClient builds the configured provider. It returns ErrNotConfigured when
// the provider needs an API key and none is set.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (ChatClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}
	if provider == "claude" {
		provider = "anthropic"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[provider]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIKey) == "" && provider != "ollama" {
		return nil, fmt.Errorf("%w: %s api key missing", ErrNotConfigured, provider)
	}

	var (
		c   ChatClient
		err error
	)
	switch provider {
	case "openai":
		c = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case "ollama":
		// OpenAI-compatible endpoint; the key is ignored but must be non-empty
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		key := cfg.APIKey
		if key == "" {
			key = "ollama"
		}
		c = NewOpenAIClient(key, cfg.Model, baseURL, cfg.Timeout)
	case "gemini":
		c, err = NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case "anthropic":
		c = NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		c = WithRateLimit(c, cfg.RequestsPerSecond)
	}
	logger.Info("llm.client.ready", "provider", c.Provider(), "rps", cfg.RequestsPerSecond)
	return c, nil
}
