package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

// PluginConfig describes an MCP tool server started over stdio. Its tools
// join the registry under the "<id>_<tool>" name.
type PluginConfig struct {
	ID      string            `toml:"id"`
	Enabled bool              `toml:"enabled"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
	// SecretEnv lists environment variables read from the credential
	// store under PluginSecretKey(ID, name).
	SecretEnv []string `toml:"secret_env,omitempty"`
}

var pluginIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Validate checks the fields needed to start the plugin.
func (p PluginConfig) Validate() error {
	if !pluginIDPattern.MatchString(p.ID) {
		return fmt.Errorf("plugin id %q must contain only letters, digits and dashes", p.ID)
	}
	if p.Command == "" {
		return fmt.Errorf("plugin %s has no command", p.ID)
	}
	return nil
}

// PluginSecretKey is the credential store key of a plugin secret.
func PluginSecretKey(pluginID, name string) string {
	return "Plugin-" + pluginID + "-" + name
}

// Environ returns the process environment extended with the plugin's
// variables. Secrets that resolve to an empty value are left out.
func (p PluginConfig) Environ(secret func(key string) string) []string {
	env := os.Environ()

	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, p.Env[k]))
	}

	for _, name := range p.SecretEnv {
		if secret == nil {
			break
		}
		if v := secret(PluginSecretKey(p.ID, name)); v != "" {
			env = append(env, fmt.Sprintf("%s=%s", name, v))
		}
	}
	return env
}

// EnabledPlugins returns the enabled plugin entries in config order.
func (c *Config) EnabledPlugins() []PluginConfig {
	var out []PluginConfig
	for _, p := range c.Tools.Plugins {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
