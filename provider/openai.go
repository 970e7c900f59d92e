package provider

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"chatcore/model"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements model.Provider on top of the official OpenAI
// Go SDK. OpenRouter reuses it with a different endpoint and catalog.
type OpenAIProvider struct {
	client  openai.Client
	name    string
	baseURL string
	apiKey  string
	catalog []model.Model
	logger  *zap.Logger
}

// NewOpenAIProvider creates an OpenAI provider.
//
// The API key is optional at construction time: each call may carry its
// own credential in GenerationSettings.Credential.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	return newOpenAICompatible("openai", defaultOpenAIBaseURL, buildCatalog("openai", cfg.Models, openAICatalog), cfg)
}

func newOpenAICompatible(name, defaultBaseURL string, catalog []model.Model, cfg Config, extra ...option.RequestOption) (*OpenAIProvider, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	opts = append(opts, extra...)

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		name:    name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		catalog: catalog,
		logger:  cfg.logger(),
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

// ListModels returns a copy of the static catalog.
func (p *OpenAIProvider) ListModels() []model.Model {
	return append([]model.Model(nil), p.catalog...)
}

func (p *OpenAIProvider) SupportsStreaming() bool { return true }
func (p *OpenAIProvider) SupportsToolCalls() bool { return true }

// Generate runs one chat completion and returns either the text or the
// requested tool calls.
func (p *OpenAIProvider) Generate(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Response, error) {
	if !model.HasModel(p, settings.Model) {
		return nil, &model.InvalidModelError{Provider: p.name, Model: settings.Model}
	}

	params := p.params(history, settings, tools)
	p.logger.Debug("chat completion request",
		zap.String("model", settings.Model),
		zap.Int("messages", len(history)),
		zap.Int("tools", len(tools)))

	resp, err := p.client.Chat.Completions.New(ctx, params, p.requestOptions(settings)...)
	if err != nil {
		return nil, upstreamError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &model.UpstreamError{Provider: p.name, Message: "response contained no choices"}
	}

	msg := resp.Choices[0].Message
	var calls []model.ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, model.ToolCall{
			ID:           tc.ID,
			FunctionName: tc.Function.Name,
			RawArguments: tc.Function.Arguments,
		})
	}

	return model.NewResponse(msg.Content, calls, p.usage(resp.Usage, resp.JSON.Usage.Valid())), nil
}

// GenerateStream opens a streamed chat completion. The request is sent
// when the stream is first ranged over.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Stream, error) {
	if !model.HasModel(p, settings.Model) {
		return nil, &model.InvalidModelError{Provider: p.name, Model: settings.Model}
	}

	params := p.params(history, settings, tools)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	opts := p.requestOptions(settings)

	return model.OnceStream(func(yield func(model.Delta, error) bool) {
		stream := p.client.Chat.Completions.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		usage := model.UnknownUsage

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if chunk.JSON.Usage.Valid() {
				usage = p.usage(chunk.Usage, true)
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !yield(model.Delta{Content: chunk.Choices[0].Delta.Content}, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(model.Delta{}, upstreamError(p.name, err))
			return
		}

		final := model.Delta{Done: true, Usage: usage}
		if len(acc.Choices) > 0 {
			for _, tc := range acc.Choices[0].Message.ToolCalls {
				final.ToolCalls = append(final.ToolCalls, model.ToolCall{
					ID:           tc.ID,
					FunctionName: tc.Function.Name,
					RawArguments: tc.Function.Arguments,
				})
			}
		}
		yield(final, nil)
	}), nil
}

// Ping checks the credential by listing the account's models.
func (p *OpenAIProvider) Ping(ctx context.Context, credential string) error {
	_, err := p.client.Models.List(ctx, p.requestOptions(model.GenerationSettings{Credential: credential})...)
	if err != nil {
		return upstreamError(p.name, err)
	}
	return nil
}

func (p *OpenAIProvider) params(history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:         ConvertToOpenAIMessages(history),
		Model:            openai.ChatModel(settings.Model),
		Temperature:      openai.Float(settings.Temperature),
		TopP:             openai.Float(settings.TopP),
		FrequencyPenalty: openai.Float(settings.FrequencyPenalty),
		PresencePenalty:  openai.Float(settings.PresencePenalty),
	}
	if settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(settings.MaxTokens))
	}
	if len(tools) > 0 {
		params.Tools = ToOpenAITools(tools)
	}
	return params
}

// requestOptions attaches the per-call credential, if any.
func (p *OpenAIProvider) requestOptions(settings model.GenerationSettings) []option.RequestOption {
	if settings.Credential == "" {
		return nil
	}
	return []option.RequestOption{option.WithAPIKey(settings.Credential)}
}

func (p *OpenAIProvider) usage(u openai.CompletionUsage, present bool) model.Usage {
	if !present {
		return model.UnknownUsage
	}
	return knownUsage(u.PromptTokens, u.CompletionTokens)
}
