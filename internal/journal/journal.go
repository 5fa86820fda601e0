// Package journal appends structured failure records to a session-scoped
// JSON Lines file and mirrors them into the session log. FATAL severities
// terminate the process with the block-action exit code.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/dotcommander/hookstate/internal/logging"
)

// Severity of a journaled event.
const (
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// FatalExitCode is the distinguished status for fatal reports. Exit code 2
// blocks the pending host action, so a fatal inside a permission hook
// fails closed.
const FatalExitCode = 2

// Record is one journaled event, serialized as a single JSON line.
type Record struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Plugin    string            `json:"plugin"`
	Hook      string            `json:"hook"`
	Level     string            `json:"level"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	Stack     []string          `json:"stack,omitempty"`
}

// Journal appends Records for one plugin/hook pair. The zero value is not
// usable; construct with New.
type Journal struct {
	path   string
	plugin string
	hook   string
	log    *logging.Logger
	exit   func(int)
}

// Option configures a Journal.
type Option func(*Journal)

// WithExitFunc replaces os.Exit for ReportFatal. Tests use this to assert
// the termination contract without dying.
func WithExitFunc(fn func(int)) Option {
	return func(j *Journal) { j.exit = fn }
}

// New returns a Journal writing to path, mirroring into log. log may be
// nil; mirroring is then skipped.
func New(path, plugin, hook string, log *logging.Logger, opts ...Option) *Journal {
	j := &Journal{
		path:   path,
		plugin: plugin,
		hook:   hook,
		log:    log,
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// ReportWarning journals a recoverable condition.
func (j *Journal) ReportWarning(code, message string, context map[string]string) {
	j.report(LevelWarn, code, message, context)
}

// ReportError journals a caller-significant failure.
func (j *Journal) ReportError(code, message string, context map[string]string) {
	j.report(LevelError, code, message, context)
}

// ReportFatal journals the failure, prints a user-facing message to
// stderr, and terminates the process with FatalExitCode. It never returns
// (outside tests that inject an exit func).
func (j *Journal) ReportFatal(code, message string, context map[string]string) {
	j.report(LevelFatal, code, message, context)
	fmt.Fprintf(os.Stderr, "fatal: %s (%s)\n", message, code)
	j.exit(FatalExitCode)
}

func (j *Journal) report(level, code, message string, context map[string]string) {
	rec := Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Plugin:    j.plugin,
		Hook:      j.hook,
		Level:     level,
		Code:      code,
		Message:   message,
		Context:   context,
		Stack:     captureStack(3),
	}

	j.append(rec)
	j.mirror(level, code, message)
}

// append writes exactly one JSON line with a single O_APPEND write.
// Journaling failures are swallowed: recording an error must never abort
// the caller's primary task.
func (j *Journal) append(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	data = append(data, '\n')

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // G304: path derived from the session namespace
	if err != nil {
		return
	}
	_, _ = f.Write(data)
	_ = f.Close()
}

// mirror echoes a human-readable line into the session log so one log
// tail shows both narrative and structured events.
func (j *Journal) mirror(level, code, message string) {
	if j.log == nil {
		return
	}
	line := fmt.Sprintf("%s: %s", code, message)
	switch level {
	case LevelWarn:
		j.log.Warn(line)
	case LevelError:
		j.log.Error(line)
	case LevelFatal:
		j.log.Fatal(line)
	}
}

// captureStack collects best-effort function:line frames from the current
// call chain, skipping the journal's own frames.
func captureStack(skip int) []string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, fmt.Sprintf("%s:%d", frame.Function, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}
