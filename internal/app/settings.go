package app

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consumed by the runtime. Each overrides the
// corresponding config.yaml value or derived default.
const (
	EnvLogLevel     = "HOOKSTATE_LOG_LEVEL"
	EnvKeepLogs     = "HOOKSTATE_KEEP_LOGS"
	EnvSessionFile  = "HOOKSTATE_SESSION_FILE"
	EnvLogFile      = "HOOKSTATE_LOG_FILE"
	EnvErrorJournal = "HOOKSTATE_ERROR_JOURNAL"
	EnvPlugin       = "HOOKSTATE_PLUGIN"
	EnvHook         = "HOOKSTATE_HOOK"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	LogLevel           string `yaml:"log_level"`
	SessionRoot        string `yaml:"session_root"`
	LockTimeoutMS      int    `yaml:"lock_timeout_ms"`
	StaleMaxAgeSeconds int    `yaml:"stale_max_age_seconds"`
	KeepLogs           bool   `yaml:"keep_logs"`
}

const (
	defaultLockTimeoutMS      = 5000
	defaultStaleMaxAgeSeconds = 86400
)

// EffectiveLockTimeout returns the configured lock timeout with defaults
// and sanity bounds applied.
func EffectiveLockTimeout() time.Duration {
	ms := defaultLockTimeoutMS
	if s, err := LoadSettings(); err == nil && s.LockTimeoutMS > 0 {
		ms = s.LockTimeoutMS
	}
	if ms > 60_000 {
		ms = 60_000
	}
	return time.Duration(ms) * time.Millisecond
}

// EffectiveStaleMaxAge returns the configured stale-session threshold.
func EffectiveStaleMaxAge() time.Duration {
	secs := defaultStaleMaxAgeSeconds
	if s, err := LoadSettings(); err == nil && s.StaleMaxAgeSeconds > 0 {
		secs = s.StaleMaxAgeSeconds
	}
	return time.Duration(secs) * time.Second
}

// EffectiveLogLevel returns the minimum session-log level name, with the
// environment variable taking precedence over config.yaml.
func EffectiveLogLevel() string {
	if v := os.Getenv(EnvLogLevel); v != "" {
		return v
	}
	if s, err := LoadSettings(); err == nil && s.LogLevel != "" {
		return s.LogLevel
	}
	return "warn"
}

// KeepLogs reports whether session logs survive session-end.
func KeepLogs() bool {
	if v := os.Getenv(EnvKeepLogs); v != "" {
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	if s, err := LoadSettings(); err == nil {
		return s.KeepLogs
	}
	return false
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// sessionRootOverrideMu and sessionRootOverride implement a mutex-protected
// process-wide override for the CLI --session-root flag.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	sessionRootOverrideMu sync.RWMutex
	sessionRootOverride   string
)

// SetSessionRootOverride sets a process-wide session root override.
// Intended for CLI flag support (e.g. --session-root).
func SetSessionRootOverride(path string) {
	sessionRootOverrideMu.Lock()
	sessionRootOverride = path
	sessionRootOverrideMu.Unlock()
}

// SessionRootOverride returns the flag- or config-provided session root,
// or empty when the platform default should be used.
func SessionRootOverride() string {
	sessionRootOverrideMu.RLock()
	v := sessionRootOverride
	sessionRootOverrideMu.RUnlock()
	if v != "" {
		return v
	}
	if s, err := LoadSettings(); err == nil {
		return s.SessionRoot
	}
	return ""
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/hookstate/config.yaml
// 2) /etc/hookstate/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		// 1) User config (~/.config/hookstate/config.yaml)
		dir, err := ConfigDir()
		if err != nil {
			settingsErr = err
			return
		}
		if s, err := loadSettingsFile(filepath.Join(dir, "config.yaml")); err == nil {
			settings = s
			return
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}

		// 2) /etc
		if s, err := loadSettingsFile(filepath.Join(string(os.PathSeparator), "etc", "hookstate", "config.yaml")); err == nil {
			settings = s
			return
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}

		// 3) Local ./config.yaml (lowest priority)
		if s, err := loadSettingsFile("config.yaml"); err == nil {
			settings = s
			return
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
