package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatcore/events"
	"chatcore/model"
)

// Settings keys.
const (
	KeyProvider         = "Provider"
	KeyModel            = "Model"
	KeyStreaming        = "Streaming"
	KeyFunctions        = "Functions"
	KeyTemperature      = "Model-Temperature"
	KeyTopP             = "Model-TopP"
	KeyFrequencyPenalty = "Model-FrequencyPenalty"
	KeyPresencePenalty  = "Model-PresencePenalty"

	KeyOpenAIToken       = "OpenAI-Token"
	KeyOpenRouterToken   = "OpenRouter-Token"
	KeyAnthropicToken    = "Anthropic-Token"
	KeyGoogleSearchID    = "Google-Search-ID"
	KeyGoogleSearchToken = "Google-Search-Token"
	KeyWolframToken      = "Wolfram-Token"

	KeySearchEnabled  = "Search-Enabled"
	KeyFetchEnabled   = "Fetch-Enabled"
	KeyComputeEnabled = "Compute-Enabled"
)

var defaultSettings = map[string]any{
	KeyProvider:         "openai",
	KeyModel:            "gpt-4o",
	KeyStreaming:        true,
	KeyFunctions:        false,
	KeyTemperature:      1.0,
	KeyTopP:             1.0,
	KeyFrequencyPenalty: 0.0,
	KeyPresencePenalty:  0.0,
	KeySearchEnabled:    true,
	KeyFetchEnabled:     true,
	KeyComputeEnabled:   true,
}

// toolEnabledKeys maps tool names to the flag enabling them.
var toolEnabledKeys = map[string]string{
	"search":              KeySearchEnabled,
	"fetch_and_summarize": KeyFetchEnabled,
	"compute":             KeyComputeEnabled,
}

// VerifiedKey returns the flag recording that the credential stored under
// key was checked against its backend.
func VerifiedKey(key string) string {
	return key + "-Verified"
}

// SettingChange is published whenever a key changes value.
type SettingChange struct {
	Key string
	Old any
	New any
}

// Settings is the user settings document: a flat JSON object persisted in
// the data directory. Reads fall back to defaults; every Set is written
// through to disk.
type Settings struct {
	mu      sync.RWMutex
	path    string
	values  map[string]any
	creds   *CredentialStore
	changes *events.Bus[SettingChange]
	logger  *zap.Logger
}

// OpenSettings loads the settings document at path. A missing file starts
// empty; a corrupt one is reset to {}.
func OpenSettings(path string, logger *zap.Logger) (*Settings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Settings{
		path:    path,
		values:  make(map[string]any),
		changes: events.New[SettingChange](),
		logger:  logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil || s.values == nil {
		logger.Warn("settings file is corrupt, resetting", zap.String("path", path), zap.Error(err))
		s.values = make(map[string]any)
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetCredentials attaches a credential store consulted by Secret when the
// settings document has no value for a key.
func (s *Settings) SetCredentials(c *CredentialStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
}

func (s *Settings) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(key)
}

// lookup reads key or its default. Callers hold mu.
func (s *Settings) lookup(key string) (any, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	v, ok := defaultSettings[key]
	return v, ok
}

func (s *Settings) String(key string) string {
	v, ok := s.get(key)
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

func (s *Settings) Bool(key string) bool {
	v, _ := s.get(key)
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	}
	return false
}

func (s *Settings) Float(key string) float64 {
	v, _ := s.get(key)
	switch f := v.(type) {
	case float64:
		return f
	case string:
		parsed, _ := strconv.ParseFloat(f, 64)
		return parsed
	}
	return 0
}

// Secret returns a credential, preferring the settings document over the
// credential store.
func (s *Settings) Secret(key string) string {
	if v := s.String(key); v != "" {
		return v
	}
	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()
	if creds == nil {
		return ""
	}
	return creds.Get(key)
}

// Set stores value under key and persists the document. Observers are
// notified only when the stored value changes.
func (s *Settings) Set(key string, value any) error {
	value, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	s.mu.Lock()
	old, _ := s.lookup(key)
	if reflect.DeepEqual(old, value) {
		s.mu.Unlock()
		return nil
	}
	s.values[key] = value
	err = s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug("setting changed", zap.String("key", key))
	s.changes.Publish(SettingChange{Key: key, Old: old, New: value})
	return nil
}

// SetFromString parses raw according to the type of the key's default and
// stores it. Unknown keys are stored as strings.
func (s *Settings) SetFromString(key, raw string) error {
	switch defaultSettings[key].(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("setting %s: expected a boolean: %w", key, err)
		}
		return s.Set(key, b)
	case float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("setting %s: expected a number: %w", key, err)
		}
		return s.Set(key, f)
	}
	if strings.HasSuffix(key, "-Verified") || strings.HasSuffix(key, "-Enabled") {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("setting %s: expected a boolean: %w", key, err)
		}
		return s.Set(key, b)
	}
	return s.Set(key, raw)
}

// Subscribe returns a channel of setting changes.
func (s *Settings) Subscribe() <-chan SettingChange {
	return s.changes.Subscribe(0)
}

func (s *Settings) Unsubscribe(ch <-chan SettingChange) {
	s.changes.Unsubscribe(ch)
}

// Snapshot returns the generation settings for one turn.
func (s *Settings) Snapshot() model.GenerationSettings {
	provider := s.String(KeyProvider)
	return model.GenerationSettings{
		Provider:         provider,
		Model:            s.String(KeyModel),
		Credential:       s.Secret(ProviderTokenKey(provider)),
		Temperature:      s.Float(KeyTemperature),
		TopP:             s.Float(KeyTopP),
		FrequencyPenalty: s.Float(KeyFrequencyPenalty),
		PresencePenalty:  s.Float(KeyPresencePenalty),
		StreamingEnabled: s.Bool(KeyStreaming),
		ToolsEnabled:     s.Bool(KeyFunctions),
	}
}

// ToolEnabled reports whether the named tool may be offered to the model.
// Tools without a flag are enabled.
func (s *Settings) ToolEnabled(name string) bool {
	key, ok := toolEnabledKeys[strings.ToLower(name)]
	if !ok {
		return true
	}
	return s.Bool(key)
}

// save writes the document with 0600 permissions. Callers hold mu.
func (s *Settings) save() error {
	if err := EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, float64, nil:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}
