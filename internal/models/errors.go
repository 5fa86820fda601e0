package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// RecoverableError is implemented by enriched errors that carry structured
// context and remediation hints. The session, journal, and output packages
// all consume this interface to avoid import cycles.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Sentinel errors for errors.Is matching across package boundaries.
var (
	ErrLockTimeout       = errors.New("lock acquisition timed out")
	ErrMalformedSession  = errors.New("session document is malformed")
	ErrInvalidPluginName = errors.New("plugin name contains disallowed characters")
	ErrInvalidTimestamp  = errors.New("timestamp is not valid ISO-8601")
	ErrInputConsumed     = errors.New("hook input already consumed")
)

// LockTimeoutError is returned when an advisory lock cannot be acquired
// within the configured deadline.
type LockTimeoutError struct {
	Target  string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out acquiring lock on %s after %s", e.Target, e.Timeout)
}
func (e *LockTimeoutError) ErrorCode() string { return "LOCK_TIMEOUT" }
func (e *LockTimeoutError) Context() map[string]string {
	return map[string]string{
		"target":     e.Target,
		"timeout_ms": strconv.FormatInt(e.Timeout.Milliseconds(), 10),
	}
}
func (e *LockTimeoutError) SuggestedAction() string {
	return "retry, or raise lock_timeout_ms in config.yaml if contention is expected"
}
func (e *LockTimeoutError) Is(target error) bool { return target == ErrLockTimeout }

// MalformedSessionError reports a session document that failed to parse.
// Callers treat the document as absent and reconstruct it; the error exists
// so the condition can still be journaled.
type MalformedSessionError struct {
	Path  string
	Cause error
}

func (e *MalformedSessionError) Error() string {
	return fmt.Sprintf("session document %s is malformed: %v", e.Path, e.Cause)
}
func (e *MalformedSessionError) ErrorCode() string { return "MALFORMED_SESSION" }
func (e *MalformedSessionError) Context() map[string]string {
	ctx := map[string]string{"path": e.Path}
	if e.Cause != nil {
		ctx["cause"] = e.Cause.Error()
	}
	return ctx
}
func (e *MalformedSessionError) SuggestedAction() string {
	return "no action needed; the document is reconstructed on the next write"
}
func (e *MalformedSessionError) Is(target error) bool { return target == ErrMalformedSession }
func (e *MalformedSessionError) Unwrap() error        { return e.Cause }

// InvalidPluginNameError rejects plugin identifiers outside the
// conservative allow-list. Raised before any session path is derived from
// the name, so a hostile name never reaches the filesystem.
type InvalidPluginNameError struct {
	Name string
}

func (e *InvalidPluginNameError) Error() string {
	return fmt.Sprintf("invalid plugin name %q: only alphanumerics, hyphen, and underscore are allowed", e.Name)
}
func (e *InvalidPluginNameError) ErrorCode() string { return "INVALID_PLUGIN_NAME" }
func (e *InvalidPluginNameError) Context() map[string]string {
	return map[string]string{"plugin": e.Name}
}
func (e *InvalidPluginNameError) SuggestedAction() string {
	return "rename the plugin to match ^[A-Za-z0-9][A-Za-z0-9_-]*$"
}
func (e *InvalidPluginNameError) Is(target error) bool { return target == ErrInvalidPluginName }

// InvalidTimestampError is returned by platform.ParseTimestampToEpoch for
// unparseable input. Callers decide whether the condition is fatal.
type InvalidTimestampError struct {
	Value string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("cannot parse %q as an ISO-8601 timestamp", e.Value)
}
func (e *InvalidTimestampError) ErrorCode() string { return "INVALID_TIMESTAMP" }
func (e *InvalidTimestampError) Context() map[string]string {
	return map[string]string{"value": e.Value}
}
func (e *InvalidTimestampError) SuggestedAction() string {
	return "supply an RFC 3339 timestamp, e.g. 2026-01-02T15:04:05Z"
}
func (e *InvalidTimestampError) Is(target error) bool { return target == ErrInvalidTimestamp }
