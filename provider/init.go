package provider

import (
	"net/http"

	"go.uber.org/zap"

	"chatcore/config"
	"chatcore/model"
)

// InitializeProviders builds every enabled provider from the config.
// A provider that fails to build is logged and skipped so the others stay
// usable.
func InitializeProviders(cfg *config.Config, reg *Registry, httpClient *http.Client, logger *zap.Logger) map[string]model.Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := make(map[string]model.Provider)

	for _, pc := range cfg.Providers {
		if !pc.Enabled {
			logger.Debug("provider disabled", zap.String("provider", pc.ID))
			continue
		}

		p, err := reg.New(Config{
			Type:       MapProviderIDToType(pc.ID),
			BaseURL:    pc.BaseURL,
			Models:     pc.Models,
			HTTPClient: httpClient,
			Logger:     logger.Named(pc.ID),
		})
		if err != nil {
			logger.Warn("failed to initialize provider", zap.String("provider", pc.ID), zap.Error(err))
			continue
		}

		providers[p.Name()] = p
		logger.Debug("provider initialized",
			zap.String("provider", p.Name()),
			zap.String("base_url", pc.BaseURL),
			zap.Int("models", len(p.ListModels())))
	}

	return providers
}
