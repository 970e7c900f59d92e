package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	systemConfigFile = "settings.toml"
	userConfigFile   = "config.toml"
	settingsFile     = "settings.json"
	databaseFile     = "chats.db"
	logFile          = "chatcore.log"
)

// GetConfigDir returns the configuration directory
// Linux/Mac: $XDG_CONFIG_HOME/chatcore or ~/.config/chatcore
// Windows: C:\Users\username\.config\chatcore
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "windows" {
		return filepath.Join(xdg, "chatcore")
	}
	return filepath.Join(GetHomeDir(), ".config", "chatcore")
}

// GetHomeDir returns the user's home directory across platforms
func GetHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("USERPROFILE")
		if home == "" {
			home = os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		}
		if home == "" {
			home = "C:\\"
		}
		return home
	}
	home := os.Getenv("HOME")
	if home == "" {
		home = "/"
	}
	return home
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), path[2:])
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}

// SettingsPath is the JSON settings document inside the data directory.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir(), settingsFile)
}

// DatabasePath is the sqlite conversation store inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), databaseFile)
}

// LogPath is the log file inside the data directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir(), logFile)
}

// EnsureDir creates a directory if it doesn't exist (0700 - user-only access)
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions creates dataDir if needed and forces 0700
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dataDir, 0700)
		}
		return err
	}
	if info.Mode().Perm() != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}
