package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LoadSystemConfig reads settings.toml from configDir, creating it from
// the template when missing.
func LoadSystemConfig(configDir string) (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	path := filepath.Join(configDir, systemConfigFile)

	if !FileExists(path) {
		if err := writeTemplate(configDir, path, GenerateSystemConfigTemplate()); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = DefaultSystemConfig().DataDirectory
	}
	return cfg, nil
}

// LoadUserConfig reads config.toml from dataDir, creating it from the
// template when missing. Unset fields are filled by Config.applyUser.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	path := filepath.Join(dataDir, userConfigFile)

	if !FileExists(path) {
		if err := writeTemplate(dataDir, path, GenerateUserConfigTemplate()); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return DefaultUserConfig(), nil
	}

	cfg := &UserConfig{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	return cfg, nil
}

func writeTemplate(dir, path, content string) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0600)
}
