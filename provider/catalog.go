package provider

import (
	"github.com/anthropics/anthropic-sdk-go"

	"chatcore/model"
)

var openAICatalog = []model.Model{
	{Provider: "openai", ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo"},
	{Provider: "openai", ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo"},
	{Provider: "openai", ID: "gpt-4o", DisplayName: "GPT-4o"},
	{Provider: "openai", ID: "gpt-4o-mini", DisplayName: "GPT-4o mini"},
}

var openRouterCatalog = []model.Model{
	{Provider: "openrouter", ID: "openai/gpt-4o", DisplayName: "GPT-4o"},
	{Provider: "openrouter", ID: "anthropic/claude-sonnet-4.5", DisplayName: "Claude Sonnet 4.5"},
	{Provider: "openrouter", ID: "meta-llama/llama-3.1-70b-instruct", DisplayName: "Llama 3.1 70B Instruct"},
	{Provider: "openrouter", ID: "qwen/qwen3-coder:free", DisplayName: "qwen3-coder:free"},
}

var anthropicCatalog = []model.Model{
	{Provider: "anthropic", ID: string(anthropic.ModelClaudeSonnet4_5_20250929), DisplayName: "Claude Sonnet 4.5"},
	{Provider: "anthropic", ID: string(anthropic.ModelClaude3_5Haiku20241022), DisplayName: "Claude 3.5 Haiku"},
}

var ollamaDefaultModels = []string{"llama3.1:latest"}

// buildCatalog returns ids as catalog entries, or a copy of fallback when
// ids is empty.
func buildCatalog(provider string, ids []string, fallback []model.Model) []model.Model {
	if len(ids) == 0 {
		return append([]model.Model(nil), fallback...)
	}
	catalog := make([]model.Model, 0, len(ids))
	for _, id := range ids {
		catalog = append(catalog, model.Model{Provider: provider, ID: id, DisplayName: id})
	}
	return catalog
}
