package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type ProviderConfig struct {
	ID      string   `toml:"id"`
	Enabled bool     `toml:"enabled"`
	BaseURL string   `toml:"base_url,omitempty"`
	Models  []string `toml:"models,omitempty"`
}

type EngineConfig struct {
	MaxToolDepth          int    `toml:"max_tool_depth"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	TitleModel            string `toml:"title_model,omitempty"`
}

type ToolsConfig struct {
	SearchBaseURL    string `toml:"search_base_url"`
	ComputeBaseURL   string `toml:"compute_base_url"`
	FetchChunkTokens int    `toml:"fetch_chunk_tokens"`
	FetchMaxBytes    int64  `toml:"fetch_max_bytes"`
	SummaryModel     string `toml:"summary_model,omitempty"`

	Plugins []PluginConfig `toml:"plugins,omitempty"`
}

type SecurityConfig struct {
	CredentialStorage SecurityMethod `toml:"credential_storage"`
	SSHKeyPath        string         `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	LogLevel  string           `toml:"log_level"`
	Engine    EngineConfig     `toml:"engine"`
	Tools     ToolsConfig      `toml:"tools"`
	Security  SecurityConfig   `toml:"security"`
	Providers []ProviderConfig `toml:"providers"`
}

type Config struct {
	DataDirectory string
	LogLevel      string
	Engine        EngineConfig
	Tools         ToolsConfig
	Security      SecurityConfig
	Providers     []ProviderConfig
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) RequestTimeout() time.Duration {
	if c.Engine.RequestTimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Engine.RequestTimeoutSeconds) * time.Second
}

// Provider returns the configuration of an enabled provider.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id && p.Enabled {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func (c *Config) applyEnvOverrides() error {
	if dataDir := os.Getenv("CHATCORE_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if level := os.Getenv("CHATCORE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if depth := os.Getenv("CHATCORE_MAX_TOOL_DEPTH"); depth != "" {
		n, err := strconv.Atoi(depth)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid CHATCORE_MAX_TOOL_DEPTH %q", depth)
		}
		c.Engine.MaxToolDepth = n
	}
	return nil
}

func (c *Config) applyUser(u *UserConfig) {
	c.LogLevel = u.LogLevel
	c.Engine = u.Engine
	c.Tools = u.Tools
	c.Security = u.Security
	c.Providers = u.Providers

	d := DefaultUserConfig()
	if c.Engine.RequestTimeoutSeconds <= 0 {
		c.Engine.RequestTimeoutSeconds = d.Engine.RequestTimeoutSeconds
	}
	if c.Tools.FetchChunkTokens <= 0 {
		c.Tools.FetchChunkTokens = d.Tools.FetchChunkTokens
	}
	if c.Tools.FetchMaxBytes <= 0 {
		c.Tools.FetchMaxBytes = d.Tools.FetchMaxBytes
	}
	if c.Tools.SearchBaseURL == "" {
		c.Tools.SearchBaseURL = d.Tools.SearchBaseURL
	}
	if c.Tools.ComputeBaseURL == "" {
		c.Tools.ComputeBaseURL = d.Tools.ComputeBaseURL
	}
	if c.Security.CredentialStorage == "" {
		c.Security.CredentialStorage = SecurityPlainText
	}
	if len(c.Providers) == 0 {
		c.Providers = d.Providers
	}
}

// Load reads the system config from the default config directory, then the
// user config from the data directory, then applies CHATCORE_* overrides.
func Load() (*Config, error) {
	return LoadFrom(GetConfigDir())
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(configDir string) (*Config, error) {
	systemCfg, err := LoadSystemConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	if dataDir := os.Getenv("CHATCORE_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUser(userCfg)

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}
