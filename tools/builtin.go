package tools

import (
	"go.uber.org/zap"

	"chatcore/config"
)

// NewBuiltinRegistry wires the search, fetch_and_summarize and compute
// executors from the tools config, followed by any extra executors. The
// built-in tools share one HTTP client.
func NewBuiltinRegistry(cfg config.ToolsConfig, secrets SecretSource, summarizer Summarizer, logger *zap.Logger, extra ...Executor) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := NewHTTPClient(0)

	executors := []Executor{
		NewSearch(cfg.SearchBaseURL, client, secrets),
		NewFetch(FetchOptions{
			Client:      client,
			MaxBytes:    cfg.FetchMaxBytes,
			ChunkTokens: cfg.FetchChunkTokens,
			Summarizer:  summarizer,
			Logger:      logger.Named("fetch"),
		}),
		NewCompute(cfg.ComputeBaseURL, client, secrets),
	}
	return NewRegistry(append(executors, extra...)...)
}
