package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestLoadFromCreatesDefaults(t *testing.T) {
	configDir := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("CHATCORE_DATA_DIR", dataDir)
	t.Setenv("CHATCORE_MAX_TOOL_DEPTH", "")
	t.Setenv("CHATCORE_LOG_LEVEL", "")

	cfg, err := LoadFrom(configDir)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.DataDir() != dataDir {
		t.Errorf("DataDir: got %q, want %q", cfg.DataDir(), dataDir)
	}
	if cfg.Engine.MaxToolDepth != 8 {
		t.Errorf("MaxToolDepth: got %d, want 8", cfg.Engine.MaxToolDepth)
	}
	if cfg.Tools.FetchChunkTokens != 4096 {
		t.Errorf("FetchChunkTokens: got %d, want 4096", cfg.Tools.FetchChunkTokens)
	}
	if !FileExists(filepath.Join(configDir, systemConfigFile)) {
		t.Error("system config template should be created")
	}
	if !FileExists(filepath.Join(dataDir, userConfigFile)) {
		t.Error("user config template should be created")
	}
	if _, ok := cfg.Provider("ollama"); !ok {
		t.Error("ollama should be configured by default")
	}

	// The generated template must decode to the same values.
	again, err := LoadFrom(configDir)
	if err != nil {
		t.Fatalf("second LoadFrom failed: %v", err)
	}
	if again.Engine.MaxToolDepth != 8 || len(again.Providers) != 4 {
		t.Errorf("template round trip mismatch: %+v", again)
	}
	p, _ := again.Provider("ollama")
	if len(p.Models) != 1 || p.Models[0] != "llama3.1:latest" {
		t.Errorf("got ollama models %v", p.Models)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CHATCORE_DATA_DIR", t.TempDir())
	t.Setenv("CHATCORE_MAX_TOOL_DEPTH", "3")
	t.Setenv("CHATCORE_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Engine.MaxToolDepth != 3 {
		t.Errorf("got %d, want 3", cfg.Engine.MaxToolDepth)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("got %q, want warn", cfg.LogLevel)
	}

	t.Setenv("CHATCORE_MAX_TOOL_DEPTH", "many")
	if _, err := LoadFrom(t.TempDir()); err == nil {
		t.Error("expected error for invalid depth")
	}
}

func TestLogLevelValue(t *testing.T) {
	t.Setenv("CHATCORE_DEBUG", "")
	tests := []struct {
		level   string
		want    string
		wantErr bool
	}{
		{"", "info", false},
		{"DEBUG", "debug", false},
		{"warn", "warn", false},
		{"loud", "info", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			got, err := cfg.LogLevelValue()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.String() != tt.want {
				t.Errorf("got %q, want %q", got.String(), tt.want)
			}
		})
	}

	t.Setenv("CHATCORE_DEBUG", "1")
	if got, _ := (&Config{LogLevel: "error"}).LogLevelValue(); got.String() != "debug" {
		t.Errorf("CHATCORE_DEBUG should force debug, got %q", got.String())
	}
}

func TestCredentialStorePlainText(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialStore(SecurityPlainText, "")
	store.Set(KeyOpenAIToken, "sk-test")
	store.Set(KeyWolframToken, "wolf")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := NewCredentialStore(SecurityPlainText, "")
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.Get(KeyOpenAIToken); got != "sk-test" {
		t.Errorf("got %q, want %q", got, "sk-test")
	}
	if keys := loaded.Keys(); len(keys) != 2 || keys[0] != KeyOpenAIToken {
		t.Errorf("got keys %v", keys)
	}
}

func writeTestSSHKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "test")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCredentialStoreSSHEncrypted(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeTestSSHKey(t)

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	store.Set(KeyGoogleSearchToken, "google-secret")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(encryptedCredentialsPath(dir))
	if err != nil {
		t.Fatalf("encrypted file missing: %v", err)
	}
	if len(raw) == 0 || string(raw) == `{"Google-Search-Token":"google-secret"}` {
		t.Error("credentials should be encrypted on disk")
	}

	loaded := NewCredentialStore(SecuritySSHKey, keyPath)
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.Get(KeyGoogleSearchToken); got != "google-secret" {
		t.Errorf("got %q, want %q", got, "google-secret")
	}

	other := NewCredentialStore(SecuritySSHKey, writeTestSSHKey(t))
	if err := other.Load(dir); err == nil {
		t.Error("a different key must not decrypt the credentials")
	}
}

func TestPluginConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PluginConfig
		wantErr bool
	}{
		{name: "valid", cfg: PluginConfig{ID: "files-2", Command: "npx"}},
		{name: "bad id", cfg: PluginConfig{ID: "my_files", Command: "npx"}, wantErr: true},
		{name: "empty id", cfg: PluginConfig{Command: "npx"}, wantErr: true},
		{name: "no command", cfg: PluginConfig{ID: "files"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	p := PluginConfig{
		ID:        "kb",
		Command:   "kb-server",
		Env:       map[string]string{"B": "2", "A": "1"},
		SecretEnv: []string{"API_KEY", "UNSET"},
	}
	secrets := map[string]string{PluginSecretKey("kb", "API_KEY"): "s3cret"}
	env := p.Environ(func(key string) string { return secrets[key] })

	tail := env[len(env)-3:]
	want := []string{"A=1", "B=2", "API_KEY=s3cret"}
	for i := range want {
		if tail[i] != want[i] {
			t.Errorf("env[%d]: got %q, want %q", i, tail[i], want[i])
		}
	}

	cfg := &Config{Tools: ToolsConfig{Plugins: []PluginConfig{{ID: "a", Enabled: true}, {ID: "b"}}}}
	if got := cfg.EnabledPlugins(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("EnabledPlugins: got %+v", got)
	}
}
