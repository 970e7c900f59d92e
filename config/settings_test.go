package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := OpenSettings(filepath.Join(t.TempDir(), "settings.json"), nil)
	if err != nil {
		t.Fatalf("OpenSettings failed: %v", err)
	}
	return s
}

func TestSettingsDefaults(t *testing.T) {
	s := openTestSettings(t)

	if got := s.String(KeyProvider); got != "openai" {
		t.Errorf("Provider: got %q, want %q", got, "openai")
	}
	if !s.Bool(KeyStreaming) {
		t.Error("Streaming should default to true")
	}
	if s.Bool(KeyFunctions) {
		t.Error("Functions should default to false")
	}
	if got := s.Float(KeyTemperature); got != 1 {
		t.Errorf("Temperature: got %v, want 1", got)
	}
	if got := s.String("Unknown-Key"); got != "" {
		t.Errorf("unknown key: got %q, want empty", got)
	}
}

func TestSettingsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := OpenSettings(path, nil)
	if err != nil {
		t.Fatalf("OpenSettings failed: %v", err)
	}
	if err := s.Set(KeyModel, "gpt-4-turbo"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(KeyTopP, 0.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := OpenSettings(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := reopened.String(KeyModel); got != "gpt-4-turbo" {
		t.Errorf("got %q, want %q", got, "gpt-4-turbo")
	}
	if got := reopened.Float(KeyTopP); got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("got permissions %o, want 600", perm)
	}
}

func TestSettingsNotifiesOnChangeOnly(t *testing.T) {
	s := openTestSettings(t)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	// Same as the default: no notification.
	if err := s.Set(KeyStreaming, true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(KeyStreaming, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case change := <-ch:
		if change.Key != KeyStreaming || change.Old != true || change.New != false {
			t.Errorf("unexpected change: %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
	select {
	case change := <-ch:
		t.Errorf("unexpected extra notification: %+v", change)
	default:
	}
}

func TestSettingsCorruptFileReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := OpenSettings(path, nil)
	if err != nil {
		t.Fatalf("OpenSettings failed: %v", err)
	}
	if got := s.String(KeyProvider); got != "openai" {
		t.Errorf("got %q, want default", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("got file %q, want {}", data)
	}
}

func TestSettingsSetFromString(t *testing.T) {
	s := openTestSettings(t)

	tests := []struct {
		key     string
		raw     string
		wantErr bool
	}{
		{KeyStreaming, "false", false},
		{KeyTemperature, "0.2", false},
		{KeyTemperature, "hot", true},
		{VerifiedKey(KeyOpenAIToken), "true", false},
		{KeyModel, "gpt-4o-mini", false},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			err := s.SetFromString(tt.key, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetFromString() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if s.Bool(KeyStreaming) {
		t.Error("Streaming should be false")
	}
	if got := s.Float(KeyTemperature); got != 0.2 {
		t.Errorf("got %v, want 0.2", got)
	}
	if !s.Bool(VerifiedKey(KeyOpenAIToken)) {
		t.Error("verified flag should be set")
	}
}

func TestSettingsSnapshot(t *testing.T) {
	s := openTestSettings(t)
	creds := NewCredentialStore(SecurityPlainText, "")
	creds.Set(KeyAnthropicToken, "store-key")
	s.SetCredentials(creds)

	if err := s.Set(KeyProvider, "anthropic"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(KeyFunctions, true); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.Credential != "store-key" {
		t.Errorf("credential: got %q, want %q", snap.Credential, "store-key")
	}
	if !snap.ToolsEnabled || !snap.StreamingEnabled {
		t.Errorf("unexpected flags: %+v", snap)
	}

	if err := s.Set(KeyAnthropicToken, "settings-key"); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Credential; got != "settings-key" {
		t.Errorf("settings value should win: got %q", got)
	}
}

func TestToolEnabled(t *testing.T) {
	s := openTestSettings(t)
	if !s.ToolEnabled("SEARCH") {
		t.Error("search should be enabled by default")
	}
	if err := s.Set(KeyComputeEnabled, false); err != nil {
		t.Fatal(err)
	}
	if s.ToolEnabled("compute") {
		t.Error("compute should be disabled")
	}
	if !s.ToolEnabled("custom_tool") {
		t.Error("tools without a flag are enabled")
	}
}
