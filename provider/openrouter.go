package provider

import (
	"strings"

	"github.com/openai/openai-go/v3/option"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider for OpenRouter's
// OpenAI-compatible API. Model ids keep their vendor prefix
// ("meta-llama/llama-3.1-70b-instruct").
func NewOpenRouterProvider(cfg Config) (*OpenAIProvider, error) {
	catalog := buildCatalog("openrouter", cfg.Models, openRouterCatalog)
	for i := range catalog {
		if catalog[i].DisplayName == catalog[i].ID {
			catalog[i].DisplayName = stripProviderPrefix(catalog[i].ID)
		}
	}

	return newOpenAICompatible("openrouter", defaultOpenRouterBaseURL, catalog, cfg,
		option.WithHeader("X-Title", "chatcore"),
	)
}

// stripProviderPrefix removes vendor prefixes from OpenRouter model names.
// "meta-llama/llama-3.2-90b-instruct" → "llama-3.2-90b-instruct"
func stripProviderPrefix(modelName string) string {
	if idx := strings.Index(modelName, "/"); idx != -1 {
		return modelName[idx+1:]
	}
	return modelName
}
