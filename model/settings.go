package model

// Model is a static catalog entry offered by a provider.
type Model struct {
	Provider    string
	ID          string
	DisplayName string
}

// GenerationSettings is the configuration snapshot used for one turn.
//
// Sampling values are passed to the provider as-is; range validation is
// left to the backend. A zero MaxTokens means the provider default.
type GenerationSettings struct {
	Provider         string
	Model            string
	Credential       string
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	MaxTokens        int
	StreamingEnabled bool
	ToolsEnabled     bool
}

// ToolParameter describes one argument of a tool.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolDefinition is the declaration of a callable tool. Parameters keep
// their declaration order.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// RequiredParameters returns the names of the required parameters in order.
func (d ToolDefinition) RequiredParameters() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// JSONSchema renders the parameters as a JSON schema object.
func (d ToolDefinition) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	for _, p := range d.Parameters {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := d.RequiredParameters(); len(req) > 0 {
		schema["required"] = req
	}
	return schema
}
