package provider

import (
	"fmt"
	"strings"

	"chatcore/model"
)

// Factory builds a provider from its configuration.
type Factory func(cfg Config) (model.Provider, error)

// Registry is an explicit table of provider factories. Registration order
// is preserved so listings are stable.
type Registry struct {
	order     []ProviderType
	factories map[ProviderType]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[ProviderType]Factory)}
}

// DefaultRegistry returns a registry holding the built-in backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderTypeOpenAI, func(cfg Config) (model.Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	r.Register(ProviderTypeOpenRouter, func(cfg Config) (model.Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
	r.Register(ProviderTypeAnthropic, func(cfg Config) (model.Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	r.Register(ProviderTypeOllama, func(cfg Config) (model.Provider, error) {
		return NewOllamaProvider(cfg)
	})
	return r
}

// Register adds or replaces the factory for t. A replaced factory keeps
// its original position.
func (r *Registry) Register(t ProviderType, f Factory) {
	if _, ok := r.factories[t]; !ok {
		r.order = append(r.order, t)
	}
	r.factories[t] = f
}

// Types returns the registered provider types in registration order.
func (r *Registry) Types() []ProviderType {
	return append([]ProviderType(nil), r.order...)
}

// New builds the provider for cfg.Type.
func (r *Registry) New(cfg Config) (model.Provider, error) {
	f, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, cfg.Type)
	}
	return f(cfg)
}

// NewProvider builds a provider from the default registry.
func NewProvider(cfg Config) (model.Provider, error) {
	return DefaultRegistry().New(cfg)
}

// MapProviderIDToType converts a configured provider id to its type.
// Unknown ids map to their own value and fail in Registry.New.
func MapProviderIDToType(id string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "openai":
		return ProviderTypeOpenAI
	case "openrouter":
		return ProviderTypeOpenRouter
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	case "ollama":
		return ProviderTypeOllama
	default:
		return ProviderType(id)
	}
}
