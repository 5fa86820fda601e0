// Package lifecycle is the uniform entry/exit contract for hook
// invocations: it validates the plugin identity, initializes the session
// store, logger, and error journal, parses the host's stdin payload
// exactly once, and formats the structured responses the host expects.
package lifecycle

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/dotcommander/hookstate/internal/app"
	"github.com/dotcommander/hookstate/internal/journal"
	"github.com/dotcommander/hookstate/internal/logging"
	"github.com/dotcommander/hookstate/internal/models"
	"github.com/dotcommander/hookstate/internal/session"
)

// pluginNamePattern is the restrictive identifier allow-list. Anything
// outside it is rejected before the name can reach a filesystem path or
// shell-level operation.
var pluginNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Hook is the per-invocation handle threading initialized state through a
// hook's business logic.
type Hook struct {
	Plugin   string
	HookName string
	Store    *session.Store
	Log      *logging.Logger
	Journal  *journal.Journal

	stdin       io.Reader
	stdout      io.Writer
	payload     *Payload
	journalOpts []journal.Option
}

// Option configures a Hook during New.
type Option func(*Hook)

// WithStdin overrides the input stream (default os.Stdin).
func WithStdin(r io.Reader) Option {
	return func(h *Hook) { h.stdin = r }
}

// WithStdout overrides the response stream (default os.Stdout).
func WithStdout(w io.Writer) Option {
	return func(h *Hook) { h.stdout = w }
}

// WithStore pins the hook to an explicit store, bypassing host-pid
// resolution. Used by tests.
func WithStore(s *session.Store) Option {
	return func(h *Hook) { h.Store = s }
}

// WithJournalOptions forwards options to the bound journal. Tests use it
// to inject an exit func and observe the fatal contract.
func WithJournalOptions(opts ...journal.Option) Option {
	return func(h *Hook) { h.journalOpts = append(h.journalOpts, opts...) }
}

// New runs the fixed initialization sequence: validate the plugin name,
// create/join the session document, and bind the logger and journal to
// the session's files. An invalid plugin name is fatal immediately — it
// is journaled (the journal path derives from the pid, not the name) and
// the process exits with the block-action status.
func New(plugin, hook string, opts ...Option) (*Hook, error) {
	if plugin == "" {
		plugin = os.Getenv(app.EnvPlugin)
	}
	if hook == "" {
		hook = os.Getenv(app.EnvHook)
	}

	h := &Hook{
		Plugin:   plugin,
		HookName: hook,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.Store == nil {
		store, err := session.New(session.HostPID())
		if err != nil {
			return nil, fmt.Errorf("resolve session store: %w", err)
		}
		h.Store = store
	}

	h.Log = logging.New(h.Store.LogPath(), plugin, hook)
	h.Journal = journal.New(h.Store.JournalPath(), plugin, hook, h.Log, h.journalOpts...)

	if !pluginNamePattern.MatchString(plugin) {
		h.Journal.ReportFatal("INVALID_PLUGIN_NAME",
			fmt.Sprintf("plugin name %q rejected", plugin),
			map[string]string{"plugin": plugin, "hook": hook})
		// Reached only under an injected exit func.
		return nil, &models.InvalidPluginNameError{Name: plugin}
	}

	if _, err := h.Store.Init(plugin); err != nil {
		// Recoverable by contract: the hook proceeds without session state
		// rather than blocking the host action.
		h.Journal.ReportWarning("SESSION_INIT_FAILED", err.Error(),
			map[string]string{"plugin": plugin, "hook": hook})
	}

	// Export resolved identifiers for anything this invocation spawns.
	_ = os.Setenv(app.EnvPlugin, plugin)
	_ = os.Setenv(app.EnvHook, hook)

	h.Log.Debug("hook initialized")
	return h, nil
}

// Input consumes the stdin payload on first call and answers from memory
// afterwards. The stream is never re-read.
func (h *Hook) Input() *Payload {
	if h.payload == nil {
		h.payload = readPayload(h.stdin, h.Log)
	}
	return h.payload
}
