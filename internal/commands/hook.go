package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/hookstate/internal/app"
	"github.com/dotcommander/hookstate/internal/commands/hookcmd"
	"github.com/dotcommander/hookstate/internal/lifecycle"
	"github.com/dotcommander/hookstate/internal/models"
	"github.com/dotcommander/hookstate/internal/platform"
	"github.com/dotcommander/hookstate/internal/session"
)

// defaultPluginName is the plugin identity used when neither the --plugin
// flag nor HOOKSTATE_PLUGIN is set.
const defaultPluginName = "hookstate"

// NewHookCmd creates the hook parent command.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Hook handlers and installers",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(hookcmd.NewInstallCmd())
	cmd.AddCommand(hookcmd.NewUninstallCmd())

	// Hook handler subcommands — called by the host, not users directly.
	// Hidden from help output to reduce command surface noise.
	for _, sub := range []*cobra.Command{
		newHookSessionStartCmd(),
		newHookPreToolUseCmd(),
		newHookPostToolUseCmd(),
		newHookPromptCmd(),
		newHookStopCmd(),
		newHookSessionEndCmd(),
	} {
		sub.Hidden = true
		cmd.AddCommand(sub)
	}

	return cmd
}

// resolvePluginName prefers --plugin, then HOOKSTATE_PLUGIN, then the
// default identity.
func resolvePluginName(cmd *cobra.Command) string {
	if name, err := cmd.Flags().GetString("plugin"); err == nil && name != "" {
		return name
	}
	if name := os.Getenv(app.EnvPlugin); name != "" {
		return name
	}
	return defaultPluginName
}

// newHookSessionStartCmd creates the SessionStart handler: initializes the
// session document and injects a one-time orientation context.
func newHookSessionStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "session-start",
		Short:         "SessionStart hook — initializes session state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := lifecycle.New(resolvePluginName(cmd), "session-start")
			if err != nil {
				// Hooks must never block the host — log diagnostic and exit clean.
				slog.Error("session-start init failed", "error", err)
				return nil
			}

			input := h.Input()
			h.Log.Info("session started (source=" + input.Source + ")")

			// Best-effort housekeeping on every fresh start.
			if input.Source != "compact" {
				if n, err := session.CleanupStaleSessions("", app.EffectiveStaleMaxAge()); err == nil && n > 0 {
					h.Log.Info(fmt.Sprintf("swept %d stale session(s)", n))
				}
			}

			// Surface the orientation note once per session, not on every
			// resume or compact.
			const recKey = "session-orientation"
			if h.Store.HasShownRecommendation(h.Plugin, recKey) {
				return h.RespondStartupContext("")
			}
			if err := h.Store.MarkRecommendationShown(h.Plugin, recKey); err != nil {
				h.Journal.ReportWarning("RECOMMENDATION_MARK_FAILED", err.Error(), nil)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Session %d coordination active (platform: %s).\n",
				h.Store.PID(), platform.Detect())
			b.WriteString("Shared state, logs, and the error journal persist across hooks for this session.\n")
			return h.RespondStartupContext(b.String())
		},
	}
}

// newHookPreToolUseCmd creates the PreToolUse handler: security-screens
// file paths and emits a permission decision.
func newHookPreToolUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "pre-tool-use",
		Short:         "PreToolUse hook — security screen and permission decision",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := lifecycle.New(resolvePluginName(cmd), "pre-tool-use")
			if err != nil {
				slog.Error("pre-tool-use init failed", "error", err)
				return nil
			}

			input := h.Input()
			filePath := input.GetString("tool_input.file_path")
			if filePath == "" {
				// Nothing to screen; stay out of the way.
				return h.RespondPermission(lifecycle.PermissionAllow, "", nil)
			}

			if err := h.ValidatePath(filePath); err != nil {
				return h.RespondPermission(lifecycle.PermissionDeny, err.Error(), nil)
			}

			if lifecycle.IsSensitiveFile(filePath) {
				h.Journal.ReportWarning("SENSITIVE_FILE_ACCESS",
					input.ToolName+" targeted a sensitive file",
					map[string]string{"file_path": filePath, "tool": input.ToolName})
				return h.RespondPermission(lifecycle.PermissionDeny,
					"access to sensitive file blocked: "+filePath, nil)
			}

			return h.RespondPermission(lifecycle.PermissionAllow, "", nil)
		},
	}
}

// newHookPostToolUseCmd creates the PostToolUse handler: invalidates the
// validation cache for files a mutating tool touched.
func newHookPostToolUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "post-tool-use",
		Short:         "PostToolUse hook — maintains the validation cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := lifecycle.New(resolvePluginName(cmd), "post-tool-use")
			if err != nil {
				slog.Error("post-tool-use init failed", "error", err)
				return nil
			}

			input := h.Input()
			switch input.ToolName {
			case "Write", "Edit", "MultiEdit", "NotebookEdit":
				// mutating — continue
			default:
				return nil
			}

			filePath := input.GetString("tool_input.file_path")
			if filePath == "" {
				return nil
			}

			// A rewritten file's cached validation results no longer hold.
			err = h.Store.Update(func(doc *models.Session) error {
				ps, ok := doc.Plugins[h.Plugin]
				if !ok {
					return nil
				}
				delete(ps.ValidationsPassed, filePath)
				return nil
			})
			if err != nil {
				h.Journal.ReportWarning("VALIDATION_CACHE_RESET_FAILED", err.Error(),
					map[string]string{"file_path": filePath})
			}

			h.Log.Debug("validation cache reset for " + filePath)
			return nil
		},
	}
}

// newHookPromptCmd creates the UserPromptSubmit handler: records prompt
// activity in the plugin's custom data.
func newHookPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "prompt",
		Short:         "UserPromptSubmit hook — tracks prompt activity",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := lifecycle.New(resolvePluginName(cmd), "prompt")
			if err != nil {
				slog.Error("prompt init failed", "error", err)
				return nil
			}

			input := h.Input()
			if input.Prompt == "" {
				return nil
			}

			count := 0
			if v, ok := h.Store.GetCustomData(h.Plugin, "prompt_count"); ok {
				if f, ok := v.(float64); ok {
					count = int(f)
				}
			}
			if err := h.Store.SetCustomData(h.Plugin, "prompt_count", count+1); err != nil {
				h.Journal.ReportWarning("PROMPT_COUNT_UPDATE_FAILED", err.Error(), nil)
			}

			h.Log.Debug(fmt.Sprintf("prompt %d observed", count+1))
			return nil
		},
	}
}

// newHookStopCmd creates the Stop handler: approves termination unless a
// plugin has flagged unfinished work in custom data.
func newHookStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "stop",
		Short:         "Stop hook — approves or blocks session termination",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := lifecycle.New(resolvePluginName(cmd), "stop")
			if err != nil {
				slog.Error("stop init failed", "error", err)
				return nil
			}

			h.Input()

			if reason, ok := h.Store.GetCustomData(h.Plugin, "block_stop_reason"); ok {
				if msg, ok := reason.(string); ok && msg != "" {
					return h.RespondStop(false, msg)
				}
			}
			return h.RespondStop(true, "")
		},
	}
}

// newHookSessionEndCmd creates the SessionEnd handler: removes this
// session's artifacts unless log retention is requested.
func newHookSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "session-end",
		Short:         "SessionEnd hook — session teardown",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := lifecycle.New(resolvePluginName(cmd), "session-end")
			if err != nil {
				slog.Error("session-end init failed", "error", err)
				return nil
			}

			h.Input()
			h.Log.Info("session ending")

			if app.KeepLogs() {
				h.Log.Info("log retention requested; artifacts preserved")
				return nil
			}

			if err := h.Store.Delete(); err != nil {
				h.Journal.ReportWarning("SESSION_DELETE_FAILED", err.Error(), nil)
				return nil
			}
			_ = os.Remove(h.Store.LogPath())
			_ = os.Remove(h.Store.JournalPath())
			return nil
		},
	}
}
