package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatcore/model"
)

func (e *Engine) runTurn(ctx context.Context, chatID string) (err error) {
	log := e.logger.With(zap.String("chat_id", chatID))
	start := time.Now()
	log.Info("turn started")

	defer func() {
		e.emit(Event{Kind: EventTurnFinished, ChatID: chatID, Err: err})
		if err != nil {
			log.Warn("turn failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return
		}
		log.Info("turn finished", zap.Duration("elapsed", time.Since(start)))
	}()

	for depth := 0; ; depth++ {
		history, err := e.store.GetMessages(ctx, chatID)
		if err != nil {
			return err
		}
		settings := e.settings.Snapshot()
		p, err := e.provider(settings.Provider)
		if err != nil {
			return err
		}

		if depth == 0 {
			e.maybeGenerateTitle(ctx, chatID, history, p, settings, log)
		}

		if settings.StreamingEnabled && p.SupportsStreaming() {
			return e.stream(ctx, chatID, depth, history, p, settings, log)
		}

		atCap := depth >= e.maxDepth
		var defs []model.ToolDefinition
		if !atCap {
			defs = e.toolSet(settings, p)
		}

		resp, err := p.Generate(ctx, history, settings, defs)
		if err != nil {
			return err
		}
		logGeneration(log, p, settings, depth, len(defs), resp.ResponseUsage())

		assistant := model.AssistantMessage(chatID, resp)
		assignCallIDs(assistant.ToolCalls)
		if _, err := e.persist(ctx, depth, assistant); err != nil {
			return err
		}
		if !assistant.HasToolCalls() {
			return nil
		}

		if err := e.resolveToolCalls(ctx, chatID, depth, assistant.ToolCalls, atCap, log); err != nil {
			return err
		}
		if atCap {
			log.Warn("tool depth limit reached",
				zap.Int("max_depth", e.maxDepth),
				zap.Int("unresolved_calls", len(assistant.ToolCalls)))
			return nil
		}
	}
}

// toolSet returns the definitions offered on this call, or nil when tools
// are off for the turn.
func (e *Engine) toolSet(settings model.GenerationSettings, p model.Provider) []model.ToolDefinition {
	if !settings.ToolsEnabled || !p.SupportsToolCalls() || e.tools == nil {
		return nil
	}
	defs := e.tools.Filter(e.settings.ToolEnabled)
	if len(defs) == 0 {
		return nil
	}
	return defs
}

// stream consumes a streamed response and persists it as one assistant
// message once the stream ends. Nothing is stored if the stream fails or
// ctx is cancelled.
func (e *Engine) stream(ctx context.Context, chatID string, depth int, history []model.Message, p model.Provider, settings model.GenerationSettings, log *zap.Logger) error {
	s, err := p.GenerateStream(ctx, history, settings, nil)
	if err != nil {
		return err
	}

	var (
		content strings.Builder
		usage   = model.UnknownUsage
	)
	for delta, err := range s {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			e.emit(Event{Kind: EventDelta, ChatID: chatID, Depth: depth, Content: delta.Content})
		}
		if delta.Done {
			usage = delta.Usage
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logGeneration(log, p, settings, depth, 0, usage)

	_, err = e.persist(ctx, depth, model.Message{
		ChatID:  chatID,
		Role:    model.RoleAssistant,
		Content: content.String(),
	})
	return err
}

// resolveToolCalls stores exactly one tool message per call, in order.
// Once ctx is cancelled the remaining calls are resolved with a
// cancellation result and ctx.Err() is returned.
func (e *Engine) resolveToolCalls(ctx context.Context, chatID string, depth int, calls []model.ToolCall, atCap bool, log *zap.Logger) error {
	for _, call := range calls {
		var content string
		switch {
		case ctx.Err() != nil:
			content = model.ToolFailureContent(call.FunctionName, &model.ToolExecutionError{
				ToolName: call.FunctionName,
				Kind:     model.ToolErrCancelled,
				Cause:    ctx.Err(),
			})
		case atCap:
			content = model.ToolFailureContent(call.FunctionName, &model.ToolExecutionError{
				ToolName: call.FunctionName,
				Kind:     model.ToolErrDepthLimit,
				Cause:    fmt.Errorf("tool call depth limit of %d reached", e.maxDepth),
			})
		default:
			content = e.executeTool(ctx, chatID, depth, call, log)
		}

		persistCtx := ctx
		if ctx.Err() != nil {
			persistCtx = context.WithoutCancel(ctx)
		}
		_, err := e.persist(persistCtx, depth, model.Message{
			ChatID:     chatID,
			Role:       model.RoleTool,
			Name:       call.FunctionName,
			ToolCallID: call.ID,
			Content:    content,
		})
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// executeTool runs one call. Failures become the result content.
func (e *Engine) executeTool(ctx context.Context, chatID string, depth int, call model.ToolCall, log *zap.Logger) string {
	e.emit(Event{Kind: EventToolStarted, ChatID: chatID, Depth: depth, ToolCall: call})
	start := time.Now()

	var (
		out string
		err error
	)
	if e.tools == nil {
		err = &model.ToolExecutionError{ToolName: call.FunctionName, Kind: model.ToolErrNotFound, Cause: errors.New("no tools are configured")}
	} else {
		out, err = e.tools.Execute(ctx, call.FunctionName, call.RawArguments)
	}
	if err != nil {
		out = model.ToolFailureContent(call.FunctionName, err)
	}

	log.Info("tool executed",
		zap.String("tool", call.FunctionName),
		zap.String("call_id", call.ID),
		zap.Int("depth", depth),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	if err != nil {
		log.Debug("tool failure absorbed", zap.String("tool", call.FunctionName), zap.Error(err))
	}

	e.emit(Event{Kind: EventToolFinished, ChatID: chatID, Depth: depth, ToolCall: call, Content: out, Err: err})
	return out
}

func (e *Engine) persist(ctx context.Context, depth int, msg model.Message) (model.Message, error) {
	stored, err := e.store.AppendMessage(ctx, msg)
	if err != nil {
		return model.Message{}, err
	}
	e.emit(Event{Kind: EventMessagePersisted, ChatID: msg.ChatID, Depth: depth, Message: stored})
	return stored, nil
}

// assignCallIDs gives an id to calls the backend left unnamed, so tool
// results can always be correlated.
func assignCallIDs(calls []model.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
}

func logGeneration(log *zap.Logger, p model.Provider, settings model.GenerationSettings, depth, tools int, usage model.Usage) {
	log.Info("generation finished",
		zap.String("provider", p.Name()),
		zap.String("model", settings.Model),
		zap.Int("depth", depth),
		zap.Int("tools_offered", tools),
		zap.Int64("tokens_in", int64(usage.TokensIn)),
		zap.Int64("tokens_out", int64(usage.TokensOut)))
}
