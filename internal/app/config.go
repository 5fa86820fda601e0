package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/hookstate/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hookstate"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# hookstate configuration
# Run: hookstate --help

# Minimum session-log level: debug, info, warn, error, fatal.
# Can also be set via HOOKSTATE_LOG_LEVEL.
# log_level: warn

# Override the session namespace directory (default: <tmp>/hookstate-sessions).
# session_root: /tmp/hookstate-sessions

# Lock acquisition timeout in milliseconds (default: 5000).
# lock_timeout_ms: 5000

# Age in seconds after which a dead-owner session is swept (default: 86400).
# stale_max_age_seconds: 86400

# Keep session logs after session-end instead of discarding them.
# Can also be set via HOOKSTATE_KEEP_LOGS.
# keep_logs: false
`
