package model

import (
	"context"
	"iter"
	"sync/atomic"
)

// Provider is one generation backend.
//
// It is declared here rather than in the provider package so that engine,
// tools and provider implementations can all depend on it without an
// import cycle.
type Provider interface {
	// Name returns the provider id, e.g. "openai".
	Name() string

	// ListModels returns the static model catalog. It performs no I/O and
	// returns the same ordered sequence on every call.
	ListModels() []Model

	SupportsStreaming() bool
	SupportsToolCalls() bool

	// Generate runs one non-streaming generation. It fails with
	// *InvalidModelError when settings.Model is not in ListModels and with
	// *UpstreamError when the backend call fails.
	Generate(ctx context.Context, history []Message, settings GenerationSettings, tools []ToolDefinition) (Response, error)

	// GenerateStream opens a streamed generation. Model validation happens
	// before the stream is returned; backend failures surface as errors
	// yielded by the stream.
	GenerateStream(ctx context.Context, history []Message, settings GenerationSettings, tools []ToolDefinition) (Stream, error)

	// Ping checks that the backend is reachable with the given credential.
	Ping(ctx context.Context, credential string) error
}

// Stream is a lazy, single-use sequence of deltas. A non-nil error ends
// the sequence.
type Stream = iter.Seq2[Delta, error]

// OnceStream wraps seq so that only the first iteration reaches the
// backend. Later iterations yield ErrStreamConsumed.
func OnceStream(seq Stream) Stream {
	var used atomic.Bool
	return func(yield func(Delta, error) bool) {
		if used.Swap(true) {
			yield(Delta{}, ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

// HasModel reports whether id is in the provider catalog.
func HasModel(p Provider, id string) bool {
	for _, m := range p.ListModels() {
		if m.ID == id {
			return true
		}
	}
	return false
}
