package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"chatcore/model"
)

// ToOpenAITools converts tool definitions to the OpenAI function format.
// OpenRouter shares the same format.
//
// Resulting structure:
//
//	{
//	  "type": "function",
//	  "function": {
//	    "name": "search",
//	    "description": "...",
//	    "parameters": {"type": "object", "properties": {...}, "required": [...]}
//	  }
//	}
func ToOpenAITools(defs []model.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	if len(defs) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(defs))
	for i, def := range defs {
		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.JSONSchema()),
			},
		)
	}
	return result
}

// ToAnthropicTools converts tool definitions to Anthropic tool params.
func ToAnthropicTools(defs []model.ToolDefinition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		schema := def.JSONSchema()
		inputSchema := anthropic.ToolInputSchemaParam{
			// Type defaults to "object" when omitted
			Properties: schema["properties"],
		}
		if req := def.RequiredParameters(); len(req) > 0 {
			inputSchema.Required = req
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
		if def.Description != "" {
			result[i].OfTool.Description = anthropic.String(def.Description)
		}
	}
	return result
}

// ToOllamaTools converts tool definitions to Ollama API tools.
func ToOllamaTools(defs []model.ToolDefinition) []api.Tool {
	if len(defs) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(defs))
	for _, def := range defs {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Required:   def.RequiredParameters(),
			Properties: make(map[string]api.ToolProperty, len(def.Parameters)),
		}
		for _, p := range def.Parameters {
			params.Properties[p.Name] = api.ToolProperty{
				Type:        api.PropertyType{p.Type},
				Description: p.Description,
			}
		}

		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return result
}
