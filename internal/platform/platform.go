// Package platform resolves OS-specific behavior (timestamp parsing, file
// age, temp-directory location) behind a uniform function surface. It has
// no dependencies on the rest of the repository beyond the error model.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dotcommander/hookstate/internal/models"
)

// OS identifies the host operating system family.
type OS string

const (
	MacOS   OS = "macos"
	Linux   OS = "linux"
	Windows OS = "windows"
	Unknown OS = "unknown"
)

// RemoteExecutionEnv marks execution on a remote/devcontainer host.
const RemoteExecutionEnv = "HOOKSTATE_REMOTE"

// sessionNamespace is the directory name under the temp dir that holds all
// session documents, logs, journals, and lock artifacts.
const sessionNamespace = "hookstate-sessions"

// Detect returns the host OS family.
func Detect() OS {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	case "windows":
		return Windows
	default:
		return Unknown
	}
}

// NowEpoch returns the current time as Unix seconds.
func NowEpoch() int64 {
	return time.Now().Unix()
}

// ParseTimestampToEpoch parses an ISO-8601 timestamp into Unix seconds.
// Returns a typed error on unparseable input; callers decide whether that
// is fatal.
func ParseTimestampToEpoch(value string) (int64, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, &models.InvalidTimestampError{Value: value}
}

// FileAgeSeconds returns the age of a file in seconds based on its
// modification time.
func FileAgeSeconds(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	age := time.Since(info.ModTime())
	if age < 0 {
		return 0, nil
	}
	return int64(age.Seconds()), nil
}

// TempDir returns the OS temp directory.
func TempDir() string {
	return os.TempDir()
}

// SessionRoot returns the directory holding all session artifacts,
// creating it if absent.
func SessionRoot() (string, error) {
	root := filepath.Join(TempDir(), sessionNamespace)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return "", err
	}
	return root, nil
}

// IsRemoteExecution reports whether the remote-execution environment flag
// is set.
func IsRemoteExecution() bool {
	switch os.Getenv(RemoteExecutionEnv) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
