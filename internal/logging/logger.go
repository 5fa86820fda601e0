// Package logging appends leveled, timestamped records to the shared
// session log. Every append is a single O_APPEND write of one line, so
// concurrent hook processes interleave whole lines but never corrupt
// them. Logging is best-effort: nothing here ever fails the caller's
// primary task.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/hookstate/internal/app"
	"github.com/dotcommander/hookstate/internal/session"
)

// Level orders log severities. DEBUG is lowest.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the canonical upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a Level, defaulting to
// WARN for unknown input.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelWarn
	}
}

const (
	// maxLineBytes caps one log line at the conservative POSIX atomic-write
	// bound so an append never needs lock protection.
	maxLineBytes = 4096

	// rotateThreshold triggers rotation; rotatedGenerations are preserved.
	rotateThreshold    = 10 << 20
	rotatedGenerations = 5

	// rotateLockTimeout is deliberately short: losing a rotation race just
	// means the next writer rotates instead.
	rotateLockTimeout = time.Second
)

// Logger writes to one session log on behalf of one plugin/hook pair.
type Logger struct {
	path     string
	plugin   string
	hook     string
	minLevel Level
}

// New returns a Logger bound to the session log at path. The minimum level
// comes from HOOKSTATE_LOG_LEVEL / config.yaml, default WARN.
func New(path, plugin, hook string) *Logger {
	return &Logger{
		path:     path,
		plugin:   plugin,
		hook:     hook,
		minLevel: ParseLevel(app.EffectiveLogLevel()),
	}
}

// WithMinLevel overrides the filter level, mainly for tests.
func (l *Logger) WithMinLevel(level Level) *Logger {
	if l == nil {
		return nil
	}
	clone := *l
	clone.minLevel = level
	return &clone
}

// Path returns the log file path.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Log appends one line of the form
// [timestamp] [plugin] [level] [hook] message
// when level clears the filter. Nil-safe; all failures are swallowed.
func (l *Logger) Log(level Level, msg string) {
	if l == nil || level < l.minLevel {
		return
	}

	line := fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		time.Now().UTC().Format(time.RFC3339), l.plugin, level, l.hook, flatten(msg))
	if len(line) > maxLineBytes {
		line = line[:maxLineBytes-1] + "\n"
	}

	l.rotateIfNeeded()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // G304: path derived from the session namespace
	if err != nil {
		return
	}
	_, _ = f.WriteString(line)
	_ = f.Close()
}

func (l *Logger) Debug(msg string) { l.Log(LevelDebug, msg) }
func (l *Logger) Info(msg string)  { l.Log(LevelInfo, msg) }
func (l *Logger) Warn(msg string)  { l.Log(LevelWarn, msg) }
func (l *Logger) Error(msg string) { l.Log(LevelError, msg) }
func (l *Logger) Fatal(msg string) { l.Log(LevelFatal, msg) }

// flatten keeps every record to exactly one line.
func flatten(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.ReplaceAll(msg, "\r", " ")
}

// rotateIfNeeded shifts generations log.4→log.5 … log→log.1 once the log
// exceeds the threshold. Rotation is a multi-file rename, so unlike the
// appends it runs under the session lock; a timeout means another process
// is already rotating.
func (l *Logger) rotateIfNeeded() {
	info, err := os.Stat(l.path)
	if err != nil || info.Size() < rotateThreshold {
		return
	}

	lock, err := session.Acquire(l.path, rotateLockTimeout)
	if err != nil {
		return
	}
	defer lock.Release()

	// Re-check under the lock; a racer may have rotated already.
	info, err = os.Stat(l.path)
	if err != nil || info.Size() < rotateThreshold {
		return
	}

	for i := rotatedGenerations - 1; i >= 1; i-- {
		_ = os.Rename(l.path+"."+strconv.Itoa(i), l.path+"."+strconv.Itoa(i+1))
	}
	_ = os.Rename(l.path, l.path+".1")
}
