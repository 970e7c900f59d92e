package testutil

import (
	"context"
	"sync"

	"chatcore/model"
)

// Call records one generation request made to a MockProvider.
type Call struct {
	History  []model.Message
	Settings model.GenerationSettings
	Tools    []model.ToolDefinition
	Stream   bool
}

// MockProvider implements model.Provider for testing.
//
// Responses queued with QueueResponses are returned in order by Generate;
// once the queue is empty Generate answers with "Mock response". The
// Func fields take precedence when set.
type MockProvider struct {
	NameValue string
	Models    []model.Model
	Streaming bool
	Tools     bool

	GenerateFunc func(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Response, error)
	StreamFunc   func(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Stream, error)
	PingFunc     func(ctx context.Context, credential string) error

	mu     sync.Mutex
	queue  []scripted
	calls  []Call
	before func()
}

type scripted struct {
	resp model.Response
	err  error
}

// NewMockProvider creates a mock with the given model ids in its catalog.
func NewMockProvider(name string, modelIDs ...string) *MockProvider {
	if len(modelIDs) == 0 {
		modelIDs = []string{"mock-model-1", "mock-model-2"}
	}
	m := &MockProvider{NameValue: name, Streaming: true, Tools: true}
	for _, id := range modelIDs {
		m.Models = append(m.Models, model.Model{Provider: name, ID: id, DisplayName: id})
	}
	return m
}

// QueueResponses appends scripted responses for Generate.
func (m *MockProvider) QueueResponses(rs ...model.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rs {
		m.queue = append(m.queue, scripted{resp: r})
	}
}

// QueueError makes the next Generate call fail with err.
func (m *MockProvider) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scripted{err: err})
}

// BeforeGenerate installs a hook run at the start of every Generate call.
func (m *MockProvider) BeforeGenerate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before = fn
}

// Calls returns the recorded requests in order.
func (m *MockProvider) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockProvider) Name() string { return m.NameValue }

func (m *MockProvider) ListModels() []model.Model {
	return append([]model.Model(nil), m.Models...)
}

func (m *MockProvider) SupportsStreaming() bool { return m.Streaming }
func (m *MockProvider) SupportsToolCalls() bool { return m.Tools }

func (m *MockProvider) record(history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition, stream bool) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		History:  append([]model.Message(nil), history...),
		Settings: settings,
		Tools:    append([]model.ToolDefinition(nil), tools...),
		Stream:   stream,
	})
	return m.before
}

func (m *MockProvider) Generate(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Response, error) {
	if before := m.record(history, settings, tools, false); before != nil {
		before()
	}
	if !model.HasModel(m, settings.Model) {
		return nil, &model.InvalidModelError{Provider: m.NameValue, Model: settings.Model}
	}
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, history, settings, tools)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return model.TextResponse{Content: "Mock response", Usage: model.UnknownUsage}, nil
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	return next.resp, next.err
}

func (m *MockProvider) GenerateStream(ctx context.Context, history []model.Message, settings model.GenerationSettings, tools []model.ToolDefinition) (model.Stream, error) {
	m.record(history, settings, tools, true)
	if !model.HasModel(m, settings.Model) {
		return nil, &model.InvalidModelError{Provider: m.NameValue, Model: settings.Model}
	}
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, history, settings, tools)
	}
	return StreamOf("Mock ", "response"), nil
}

func (m *MockProvider) Ping(ctx context.Context, credential string) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx, credential)
	}
	return nil
}
