package config

import (
	"os"
	"path/filepath"
)

const appName = "kaze"

// DefaultPath returns the default config file location
// (~/.config/kaze/config.json on Linux, per os.UserConfigDir).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.json")
}

// ResolveSessionsDir returns where session logs and the index live. Precedence:
// config override, KAZE_DATA_DIR, XDG_DATA_HOME, ~/.local/share.
func (c *Config) ResolveSessionsDir() string {
	if c.SessionsDir != "" {
		return c.SessionsDir
	}
	if dir := os.Getenv("KAZE_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "sessions")
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName, "sessions")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName, "sessions")
	}
	return filepath.Join(home, ".local", "share", appName, "sessions")
}

// HistoryPath returns where the REPL readline history is persisted.
func HistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "chat_history.txt")
}
