package config

// ProviderDisplayName returns the display name for a provider
func ProviderDisplayName(providerID string) string {
	switch providerID {
	case "ollama":
		return "Ollama"
	case "openrouter":
		return "OpenRouter"
	case "anthropic":
		return "Anthropic"
	case "openai":
		return "OpenAI"
	default:
		return providerID
	}
}

// ProviderTokenKey returns the settings/credential key holding the API key
// of a provider. Providers without authentication return "".
func ProviderTokenKey(providerID string) string {
	switch providerID {
	case "openai":
		return KeyOpenAIToken
	case "openrouter":
		return KeyOpenRouterToken
	case "anthropic":
		return KeyAnthropicToken
	default:
		return ""
	}
}

// getProviderDefaultBaseURL returns the default base URL for a provider
func getProviderDefaultBaseURL(providerID string) string {
	switch providerID {
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com/v1"
	case "ollama":
		return "http://localhost:11434"
	default:
		return ""
	}
}
