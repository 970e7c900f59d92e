package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"chatcore/model"
)

const defaultOllamaBaseURL = "http://localhost:11434"

var errStopStream = errors.New("stream stopped by consumer")

// OllamaProvider implements model.Provider for a local Ollama server.
//
// Ollama needs no credential. The catalog comes from configuration since
// the installed models are only known at runtime.
type OllamaProvider struct {
	client  *api.Client
	baseURL string
	catalog []model.Model
	logger  *zap.Logger
}

// NewOllamaProvider creates an Ollama provider.
//
// Returns an error if the base URL cannot be parsed.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	ids := cfg.Models
	if len(ids) == 0 {
		ids = ollamaDefaultModels
	}

	return &OllamaProvider{
		client:  api.NewClient(parsedURL, httpClient),
		baseURL: baseURL,
		catalog: buildCatalog("ollama", ids, nil),
		logger:  cfg.logger(),
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) ListModels() []model.Model {
	return append([]model.Model(nil), p.catalog...)
}

func (p *OllamaProvider) SupportsStreaming() bool { return true }
func (p *OllamaProvider) SupportsToolCalls() bool { return true }

// Generate sends a non-streaming chat request.
func (p *OllamaProvider) Generate(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Response, error) {
	if !model.HasModel(p, settings.Model) {
		return nil, &model.InvalidModelError{Provider: p.Name(), Model: settings.Model}
	}

	req := p.request(history, settings, tools, false)

	var final api.ChatResponse
	var content strings.Builder
	var calls []api.ToolCall
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		calls = append(calls, resp.Message.ToolCalls...)
		final = resp
		return nil
	})
	if err != nil {
		return nil, upstreamError(p.Name(), err)
	}

	return model.NewResponse(content.String(), fromOllamaToolCalls(calls), ollamaUsage(final)), nil
}

// GenerateStream streams chat chunks. Ollama pushes chunks through a
// callback, which runs on the ranging goroutine.
func (p *OllamaProvider) GenerateStream(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Stream, error) {
	if !model.HasModel(p, settings.Model) {
		return nil, &model.InvalidModelError{Provider: p.Name(), Model: settings.Model}
	}

	req := p.request(history, settings, tools, true)

	return model.OnceStream(func(yield func(model.Delta, error) bool) {
		var calls []api.ToolCall
		var last api.ChatResponse

		err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			last = resp
			calls = append(calls, resp.Message.ToolCalls...)
			if resp.Message.Content == "" {
				return nil
			}
			if !yield(model.Delta{Content: resp.Message.Content}, nil) {
				return errStopStream
			}
			return nil
		})
		if errors.Is(err, errStopStream) {
			return
		}
		if err != nil {
			yield(model.Delta{}, upstreamError(p.Name(), err))
			return
		}

		yield(model.Delta{Done: true, ToolCalls: fromOllamaToolCalls(calls), Usage: ollamaUsage(last)}, nil)
	}), nil
}

// Ping checks that the server answers within five seconds.
func (p *OllamaProvider) Ping(ctx context.Context, _ string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return upstreamError(p.Name(), err)
	}
	return nil
}

func (p *OllamaProvider) request(history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition, stream bool) *api.ChatRequest {
	options := map[string]any{
		"temperature":       settings.Temperature,
		"top_p":             settings.TopP,
		"frequency_penalty": settings.FrequencyPenalty,
		"presence_penalty":  settings.PresencePenalty,
	}
	if settings.MaxTokens > 0 {
		options["num_predict"] = settings.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    settings.Model,
		Messages: ConvertToOllamaMessages(history),
		Stream:   &stream,
		Options:  options,
	}

	if len(tools) > 0 {
		if ModelSupportsToolCalling(settings.Model) {
			req.Tools = ToOllamaTools(tools)
		} else {
			p.logger.Debug("model does not support tool calling, sending without tools",
				zap.String("model", settings.Model))
		}
	}
	return req
}

func ollamaUsage(resp api.ChatResponse) model.Usage {
	if !resp.Done {
		return model.UnknownUsage
	}
	return knownUsage(int64(resp.PromptEvalCount), int64(resp.EvalCount))
}

// toolCallingModels tracks which model families support tool calling.
// This is a curated list based on Ollama documentation and community testing.
var toolCallingModels = map[string]bool{
	"qwen":      true,
	"llama3.1":  true,
	"llama3.2":  true,
	"llama3.3":  true,
	"mistral":   true,
	"command-r": true,
	"nemotron":  true,
	"granite3":  true,

	"llama3-gradient": false,
	"llama3":          false,
	"phi":             false,
	"gemma":           false,
	"codellama":       false,
	"deepseek":        false,
}

// orderedPrefixes lists the most specific prefixes first so "llama3.2"
// is not matched as generic "llama3".
var orderedPrefixes = []string{
	"llama3.3", "llama3.2", "llama3.1",
	"llama3-gradient",
	"command-r", "qwen", "mistral", "nemotron", "granite3",
	"codellama",
	"llama3",
	"deepseek", "phi", "gemma",
}

// ModelSupportsToolCalling reports whether an Ollama model is known to
// support the tool calling API. Unknown models are assumed not to.
func ModelSupportsToolCalling(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range orderedPrefixes {
		if strings.HasPrefix(modelName, prefix) {
			return toolCallingModels[prefix]
		}
	}
	return false
}
