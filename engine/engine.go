// Package engine drives chat turns: it loads the history of a chat, asks
// the active provider for a response, runs the tools the model requests
// and feeds their results back until the model answers in plain text.
//
// Only one turn may run per chat at a time. Turns on different chats run
// concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatcore/model"
	"chatcore/tools"
)

// DefaultMaxDepth is the number of tool rounds allowed in one turn.
const DefaultMaxDepth = 8

// ConversationStore is the persistence the engine needs.
type ConversationStore interface {
	GetChat(ctx context.Context, id string) (model.Chat, error)
	GetMessages(ctx context.Context, chatID string) ([]model.Message, error)
	AppendMessage(ctx context.Context, msg model.Message) (model.Message, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
}

// SettingsSource supplies the per-turn settings snapshot and the tool
// enable flags.
type SettingsSource interface {
	Snapshot() model.GenerationSettings
	ToolEnabled(name string) bool
}

// Options configures an Engine. Store, Settings and Providers are required.
type Options struct {
	Store     ConversationStore
	Providers map[string]model.Provider
	Tools     *tools.Registry
	Settings  SettingsSource

	// MaxDepth caps the tool rounds of a turn; 0 means DefaultMaxDepth.
	MaxDepth int
	// TitleModel overrides the chat model for title generation.
	TitleModel string

	Logger   *zap.Logger
	Observer Observer
}

// Engine runs turns. It is safe for concurrent use.
type Engine struct {
	store      ConversationStore
	providers  map[string]model.Provider
	tools      *tools.Registry
	settings   SettingsSource
	maxDepth   int
	titleModel string
	logger     *zap.Logger
	observer   Observer

	mu      sync.Mutex
	running map[string]struct{}
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("engine: settings are required")
	}
	if len(opts.Providers) == 0 {
		return nil, errors.New("engine: at least one provider is required")
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("engine: invalid max depth %d", opts.MaxDepth)
	}

	e := &Engine{
		store:      opts.Store,
		providers:  opts.Providers,
		tools:      opts.Tools,
		settings:   opts.Settings,
		maxDepth:   opts.MaxDepth,
		titleModel: opts.TitleModel,
		logger:     opts.Logger,
		observer:   opts.Observer,
		running:    make(map[string]struct{}),
	}
	if e.maxDepth == 0 {
		e.maxDepth = DefaultMaxDepth
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e, nil
}

// Submit appends a user message to the chat and runs a turn for it.
func (e *Engine) Submit(ctx context.Context, chatID, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("empty message")
	}
	release, err := e.acquire(chatID)
	if err != nil {
		return err
	}
	defer release()

	msg, err := e.store.AppendMessage(ctx, model.Message{ChatID: chatID, Role: model.RoleUser, Content: text})
	if err != nil {
		return err
	}
	e.emit(Event{Kind: EventMessagePersisted, ChatID: chatID, Message: msg})

	return e.runTurn(ctx, chatID)
}

// RunTurn answers the current history of the chat. It returns
// model.ErrTurnInProgress if a turn is already running for chatID.
func (e *Engine) RunTurn(ctx context.Context, chatID string) error {
	release, err := e.acquire(chatID)
	if err != nil {
		return err
	}
	defer release()

	return e.runTurn(ctx, chatID)
}

// Running reports whether a turn is in progress for chatID.
func (e *Engine) Running(chatID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[chatID]
	return ok
}

func (e *Engine) acquire(chatID string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.running[chatID]; busy {
		return nil, model.ErrTurnInProgress
	}
	e.running[chatID] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.running, chatID)
		e.mu.Unlock()
	}, nil
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

func (e *Engine) provider(name string) (model.Provider, error) {
	p, ok := e.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, name)
	}
	return p, nil
}
