package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/ivorybot/internal/config"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
	ProviderCustom     = "custom"
)

// New builds the provider selected by LLM_PROVIDER. Provider-specific env
// is parsed lazily so only the selected backend's variables are required.
func New(ctx context.Context, cfg *config.AppConfig) (Provider, error) {
	switch cfg.LLMProvider {
	case ProviderOpenRouter:
		c := config.NewOpenRouterConfig(ctx)
		headers := map[string]string{
			"HTTP-Referer": "https://github.com/sandevgo/ivorybot",
			"X-Title":      "IvoryBot",
		}
		return NewOpenAICompatible(ProviderOpenRouter, "https://openrouter.ai/api/v1", c.APIKey, c.Model, headers), nil

	case ProviderOpenAI:
		c := config.NewOpenAIConfig(ctx)
		return NewOpenAICompatible(ProviderOpenAI, "https://api.openai.com/v1", c.APIKey, c.Model, nil), nil

	case ProviderOllama:
		c := config.NewOllamaConfig(ctx)
		return NewOpenAICompatible(ProviderOllama, c.BaseURL+"/v1", c.APIKey, c.Model, nil), nil

	case ProviderCustom:
		c := config.NewCustomConfig(ctx)
		return NewOpenAICompatible(ProviderCustom, c.BaseURL, c.APIKey, c.Model, nil), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
