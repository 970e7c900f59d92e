package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"chatcore/config"
	"chatcore/engine"
	"chatcore/model"
	"chatcore/provider"
	"chatcore/storage"
	"chatcore/tools"
)

const pluginStartTimeout = 30 * time.Second

// app holds the wired components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	settings  *config.Settings
	creds     *config.CredentialStore
	providers map[string]model.Provider
	store     *storage.Store
	tools     *tools.Registry
	plugins   []*tools.Plugin
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.EnsureDataDirPermissions(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	creds := config.NewCredentialStoreFromConfig(cfg)
	if passphrase := os.Getenv("CHATCORE_SSH_PASSPHRASE"); passphrase != "" {
		creds.SetPassphrase(passphrase)
	}
	if err := creds.Load(cfg.DataDir()); err != nil {
		logger.Warn("failed to load credentials", zap.Error(err))
	}

	settings, err := config.OpenSettings(cfg.SettingsPath(), logger.Named("settings"))
	if err != nil {
		logger.Sync()
		return nil, err
	}
	settings.SetCredentials(creds)

	store, err := storage.Open(cfg.DatabasePath(), logger.Named("storage"))
	if err != nil {
		logger.Sync()
		return nil, err
	}

	httpClient := provider.NewHTTPClient(cfg.RequestTimeout())
	providers := provider.InitializeProviders(cfg, provider.DefaultRegistry(), httpClient, logger.Named("provider"))

	summarizer := &tools.ProviderSummarizer{
		Providers: providers,
		Settings:  settings,
		Model:     cfg.Tools.SummaryModel,
	}
	ctx, cancel := context.WithTimeout(context.Background(), pluginStartTimeout)
	plugins := tools.StartPlugins(ctx, cfg.EnabledPlugins(), settings, Version, logger.Named("plugins"))
	cancel()

	var extra []tools.Executor
	for _, p := range plugins {
		extra = append(extra, p.Executors()...)
	}
	reg, err := tools.NewBuiltinRegistry(cfg.Tools, settings, summarizer, logger.Named("tools"), extra...)
	if err != nil {
		return nil, multierr.Combine(err, tools.ClosePlugins(plugins), store.Close())
	}

	logger.Info("chatcore started",
		zap.String("version", Version),
		zap.String("data_dir", cfg.DataDir()),
		zap.Int("providers", len(providers)),
		zap.Int("plugins", len(plugins)))

	return &app{
		cfg:       cfg,
		logger:    logger,
		settings:  settings,
		creds:     creds,
		providers: providers,
		store:     store,
		tools:     reg,
		plugins:   plugins,
	}, nil
}

func (a *app) engine(observer engine.Observer) (*engine.Engine, error) {
	if len(a.providers) == 0 {
		return nil, errors.New("no provider is configured; check the providers section of the config")
	}
	return engine.New(engine.Options{
		Store:      a.store,
		Providers:  a.providers,
		Tools:      a.tools,
		Settings:   a.settings,
		MaxDepth:   a.cfg.Engine.MaxToolDepth,
		TitleModel: a.cfg.Engine.TitleModel,
		Logger:     a.logger.Named("engine"),
		Observer:   observer,
	})
}

// Close stops the plugins, releases the store and flushes the logger.
func (a *app) Close() error {
	return multierr.Combine(tools.ClosePlugins(a.plugins), a.store.Close(), a.logger.Sync())
}

// activeProvider returns the provider selected in settings.
func (a *app) activeProvider() (model.Provider, string, error) {
	name := a.settings.String(config.KeyProvider)
	p, ok := a.providers[name]
	if !ok {
		return nil, name, fmt.Errorf("%w: %s", model.ErrUnknownProvider, name)
	}
	return p, name, nil
}
