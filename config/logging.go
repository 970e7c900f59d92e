package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CheckDebug reports whether CHATCORE_DEBUG requests debug logging.
func CheckDebug() bool {
	debug := os.Getenv("CHATCORE_DEBUG")
	return debug == "true" || debug == "1"
}

// LogLevelValue resolves the configured level. CHATCORE_DEBUG wins over the
// config file.
func (c *Config) LogLevelValue() (zapcore.Level, error) {
	if CheckDebug() {
		return zapcore.DebugLevel, nil
	}
	s := strings.TrimSpace(c.LogLevel)
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	return level, nil
}

// NewLogger builds the JSON file logger in the data directory. Errors of
// the logger itself go to stderr.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	level, err := cfg.LogLevelValue()
	if err != nil {
		return nil, err
	}

	// Created 0600 before zap opens it in append mode.
	path := cfg.LogPath()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	f.Close()

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger.Debug("debug logging enabled", zap.String("path", path))
	return logger, nil
}
