// Package provider implements the generation backends used by chatcore.
//
// Every backend satisfies model.Provider. Callers never talk to an SDK
// directly: they build a Config, ask a Registry for a provider, and pass
// provider-agnostic histories, settings and tool definitions.
//
// # Backends
//
//   - OpenAIProvider: OpenAI chat completions (openai-go)
//   - OpenRouter: the same client pointed at OpenRouter's compatible API
//   - AnthropicProvider: Anthropic messages API (anthropic-sdk-go)
//   - OllamaProvider: local Ollama server (ollama/api)
//
// # Catalogs
//
// ListModels never performs I/O. Each backend serves a static catalog
// (see catalog.go) which may be replaced through Config.Models, so model
// validation happens before any network call and a missing model fails
// with *model.InvalidModelError.
//
// # Errors
//
// Transport and API failures are returned as *model.UpstreamError with the
// HTTP status when the SDK exposes one. Streams yield the same error type
// and end.
//
// # Usage
//
//	reg := provider.DefaultRegistry()
//	p, err := reg.New(provider.Config{Type: provider.ProviderTypeOpenAI})
//	if err != nil {
//	    // handle error
//	}
//	resp, err := p.Generate(ctx, history, settings, nil)
package provider

import (
	"net/http"

	"go.uber.org/zap"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type ProviderType

	// BaseURL overrides the backend endpoint. Empty uses the default.
	BaseURL string

	// APIKey is a fallback credential used when a call's settings carry none.
	APIKey string

	// Models replaces the built-in catalog when not empty.
	Models []string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
