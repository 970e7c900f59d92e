package provider

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"chatcore/model"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"

	// The messages API requires max_tokens.
	defaultAnthropicMaxTokens = 4096
)

// AnthropicProvider implements model.Provider using Anthropic's official
// Go SDK.
type AnthropicProvider struct {
	client  *anthropic.Client
	baseURL string
	catalog []model.Model
	logger  *zap.Logger
}

// NewAnthropicProvider creates an Anthropic provider. Anthropic has no
// model listing endpoint so the catalog is curated.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client:  &client,
		baseURL: baseURL,
		catalog: buildCatalog("anthropic", cfg.Models, anthropicCatalog),
		logger:  cfg.logger(),
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ListModels() []model.Model {
	return append([]model.Model(nil), p.catalog...)
}

func (p *AnthropicProvider) SupportsStreaming() bool { return true }
func (p *AnthropicProvider) SupportsToolCalls() bool { return true }

// Generate sends one messages request.
func (p *AnthropicProvider) Generate(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Response, error) {
	if !model.HasModel(p, settings.Model) {
		return nil, &model.InvalidModelError{Provider: p.Name(), Model: settings.Model}
	}

	p.logger.Debug("messages request",
		zap.String("model", settings.Model),
		zap.Int("messages", len(history)),
		zap.Int("tools", len(tools)))

	msg, err := p.client.Messages.New(ctx, p.params(history, settings, tools), p.requestOptions(settings)...)
	if err != nil {
		return nil, upstreamError(p.Name(), err)
	}

	text, calls := extractAnthropicToolCalls(msg.Content)
	usage := model.UnknownUsage
	if msg.JSON.Usage.Valid() {
		usage = knownUsage(msg.Usage.InputTokens, msg.Usage.OutputTokens)
	}
	return model.NewResponse(text, calls, usage), nil
}

// GenerateStream streams text deltas. Tool calls and usage arrive on the
// final delta once the message is fully accumulated.
func (p *AnthropicProvider) GenerateStream(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Stream, error) {
	if !model.HasModel(p, settings.Model) {
		return nil, &model.InvalidModelError{Provider: p.Name(), Model: settings.Model}
	}

	params := p.params(history, settings, tools)
	opts := p.requestOptions(settings)

	return model.OnceStream(func(yield func(model.Delta, error) bool) {
		stream := p.client.Messages.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		msg := anthropic.Message{}
		started := false

		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				yield(model.Delta{}, upstreamError(p.Name(), err))
				return
			}

			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				started = true
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !yield(model.Delta{Content: delta.Text}, nil) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(model.Delta{}, upstreamError(p.Name(), err))
			return
		}

		_, calls := extractAnthropicToolCalls(msg.Content)
		usage := model.UnknownUsage
		if started {
			usage = knownUsage(msg.Usage.InputTokens, msg.Usage.OutputTokens)
		}
		yield(model.Delta{Done: true, ToolCalls: calls, Usage: usage}, nil)
	}), nil
}

// Ping makes a minimal request since Anthropic has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context, credential string) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.catalog[0].ID),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	}, p.requestOptions(model.GenerationSettings{Credential: credential})...)
	if err != nil {
		return upstreamError(p.Name(), err)
	}
	return nil
}

func (p *AnthropicProvider) params(history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) anthropic.MessageNewParams {
	messages, system := convertToAnthropicMessages(history)

	maxTokens := int64(defaultAnthropicMaxTokens)
	if settings.MaxTokens > 0 {
		maxTokens = int64(settings.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(settings.Model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(settings.Temperature),
	}
	// Newer models reject temperature and top_p together; only send top_p
	// when it differs from the neutral value.
	if settings.TopP > 0 && settings.TopP < 1 {
		params.TopP = anthropic.Float(settings.TopP)
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = ToAnthropicTools(tools)
	}
	return params
}

func (p *AnthropicProvider) requestOptions(settings model.GenerationSettings) []option.RequestOption {
	if settings.Credential == "" {
		return nil
	}
	return []option.RequestOption{option.WithAPIKey(settings.Credential)}
}
