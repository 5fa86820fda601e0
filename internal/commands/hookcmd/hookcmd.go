// Package hookcmd provides hook installation and uninstallation commands.
// This package is separate from the main commands package to allow
// independent evolution of hook lifecycle management.
package hookcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dotcommander/hookstate/internal/output"
)

const hookstateCommandFallback = "hookstate"

//nolint:gochecknoglobals // sync.Once singleton cache for hook definitions; required by the sync.Once pattern
var (
	hookstateHooksOnce  sync.Once
	hookstateHooksCache map[string]hookEntry
)

type hookHandler struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

type hookEntry struct {
	Matcher string        `json:"matcher"`
	Hooks   []hookHandler `json:"hooks"`
}

func claudeSettingsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "settings.json")
}

func projectClaudeSettingsPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".", ".claude", "settings.json")
	}
	return filepath.Join(wd, ".claude", "settings.json")
}

func resolveClaudeSettingsPath(projectScoped bool) string {
	if projectScoped {
		return projectClaudeSettingsPath()
	}
	return claudeSettingsPath()
}

func hookstateExecutable() string {
	exe, err := os.Executable()
	if err != nil || strings.TrimSpace(exe) == "" {
		return hookstateCommandFallback
	}
	return exe
}

func buildHookstateCommand(subcommand string) string {
	exe := hookstateExecutable()
	if exe == hookstateCommandFallback {
		return fmt.Sprintf("hookstate hook %s", subcommand)
	}
	return fmt.Sprintf("%q hook %s", exe, subcommand)
}

func hookstateHooks() map[string]hookEntry {
	hookstateHooksOnce.Do(func() {
		hookstateHooksCache = buildHookstateHooks()
	})
	return hookstateHooksCache
}

func buildHookstateHooks() map[string]hookEntry {
	return map[string]hookEntry{
		"SessionStart": {
			Matcher: "startup|resume|clear|compact",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildHookstateCommand("session-start"),
				Timeout: 3000,
			}},
		},
		"PreToolUse": {
			Matcher: "Write|Edit|MultiEdit|NotebookEdit|Read",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildHookstateCommand("pre-tool-use"),
				Timeout: 3000,
			}},
		},
		"PostToolUse": {
			Matcher: "Write|Edit|MultiEdit|NotebookEdit",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildHookstateCommand("post-tool-use"),
				Timeout: 2000,
			}},
		},
		"UserPromptSubmit": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildHookstateCommand("prompt"),
				Timeout: 2000,
			}},
		},
		"Stop": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildHookstateCommand("stop"),
				Timeout: 2000,
			}},
		},
		"SessionEnd": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildHookstateCommand("session-end"),
				Timeout: 5000,
			}},
		},
	}
}

func hookstateHookEventNames() []string {
	events := make([]string, 0, len(hookstateHooks()))
	for name := range hookstateHooks() {
		events = append(events, name)
	}
	sort.Strings(events)
	return events
}

func readSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// HasHookstateHook checks if a hooks array already contains a hookstate hook command.
func HasHookstateHook(entries []any) bool {
	for _, entry := range entries {
		entryMap, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		hooks, ok := entryMap["hooks"].([]any)
		if !ok {
			continue
		}
		for _, h := range hooks {
			hMap, ok := h.(map[string]any)
			if !ok {
				continue
			}
			cmd, _ := hMap["command"].(string)
			if IsHookstateCommand(cmd) {
				return true
			}
		}
	}
	return false
}

// IsHookstateCommand checks if a command string is a hookstate hook command.
func IsHookstateCommand(command string) bool {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return false
	}
	parts := strings.Fields(cmd)
	if len(parts) < 3 {
		return false
	}

	execToken := strings.Trim(parts[0], "\"'")
	if filepath.Base(execToken) != "hookstate" {
		return false
	}
	if parts[1] != "hook" {
		return false
	}

	sub := parts[2]
	switch sub {
	case "session-start", "pre-tool-use", "post-tool-use", "prompt", "stop", "session-end":
		return true
	default:
		return false
	}
}

func hookEntryEqual(a, b map[string]any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

type installOutcome int

const (
	hookInstalled installOutcome = iota
	hookUpdated
	hookSkipped
)

func upsertHookstateEntry(existing []any, newEntry map[string]any) ([]any, installOutcome) {
	var kept []any
	hadHookstate := false
	matchingHookstate := false

	for _, currentEntry := range existing {
		entryObj, ok := currentEntry.(map[string]any)
		if !ok {
			kept = append(kept, currentEntry)
			continue
		}
		hooks, ok := entryObj["hooks"].([]any)
		if !ok {
			kept = append(kept, currentEntry)
			continue
		}
		isHookstate := false
		for _, h := range hooks {
			hMap, ok := h.(map[string]any)
			if !ok {
				continue
			}
			cmd, _ := hMap["command"].(string)
			if IsHookstateCommand(cmd) {
				isHookstate = true
				break
			}
		}
		if isHookstate {
			hadHookstate = true
			if hookEntryEqual(entryObj, newEntry) {
				matchingHookstate = true
			}
			continue
		}
		kept = append(kept, currentEntry)
	}

	kept = append(kept, newEntry)
	entries := kept
	if matchingHookstate {
		return entries, hookSkipped
	}
	if hadHookstate {
		return entries, hookUpdated
	}
	return entries, hookInstalled
}

// NewInstallCmd creates the hook install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install hookstate hooks into Claude Code settings",
		Long:  "Upserts hookstate handler entries into ~/.claude/settings.json (or ./.claude/settings.json with --project).",
		RunE: func(cmd *cobra.Command, args []string) error {
			type result struct {
				Message   string   `json:"message"`
				Path      string   `json:"path"`
				Installed []string `json:"installed"`
				Updated   []string `json:"updated,omitempty"`
				Skipped   []string `json:"skipped"`
			}

			projectScoped, _ := cmd.Flags().GetBool("project")
			path := resolveClaudeSettingsPath(projectScoped)

			settings, err := readSettings(path)
			if err != nil {
				return err
			}

			hooksObj, _ := settings["hooks"].(map[string]any)
			if hooksObj == nil {
				hooksObj = map[string]any{}
			}

			var installed []string
			var updated []string
			var skipped []string

			for eventName, entry := range hookstateHooks() {
				existing, _ := hooksObj[eventName].([]any)

				entryJSON, _ := json.Marshal(entry)
				var entryMap map[string]any
				_ = json.Unmarshal(entryJSON, &entryMap)

				entries, outcome := upsertHookstateEntry(existing, entryMap)
				hooksObj[eventName] = entries

				switch outcome {
				case hookInstalled:
					installed = append(installed, eventName)
				case hookUpdated:
					updated = append(updated, eventName)
				case hookSkipped:
					skipped = append(skipped, eventName)
				}
			}

			settings["hooks"] = hooksObj
			if err := writeSettings(path, settings); err != nil {
				return err
			}

			sort.Strings(installed)
			sort.Strings(updated)
			sort.Strings(skipped)

			resp := result{Path: path, Installed: installed, Updated: updated, Skipped: skipped}
			switch {
			case len(installed) > 0:
				resp.Message = fmt.Sprintf("hooks installed (%s). Run 'hookstate doctor' to verify.", strings.Join(installed, ", "))
			case len(updated) > 0:
				resp.Message = fmt.Sprintf("hooks updated (%s)", strings.Join(updated, ", "))
			default:
				resp.Message = "hooks already installed"
			}
			return output.PrintSuccess(resp)
		},
	}

	cmd.Flags().Bool("project", false, "Install hooks in ./.claude/settings.json")

	return cmd
}

// NewUninstallCmd creates the hook uninstall command.
//
//nolint:gocognit // settings traversal mirrors the nested settings.json shape
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove hookstate hooks from Claude Code settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			type result struct {
				Path    string   `json:"path"`
				Removed []string `json:"removed"`
			}

			projectScoped, _ := cmd.Flags().GetBool("project")
			path := resolveClaudeSettingsPath(projectScoped)

			settings, err := readSettings(path)
			if err != nil {
				return err
			}

			hooksObj, _ := settings["hooks"].(map[string]any)
			if hooksObj == nil {
				return output.PrintSuccess(result{Path: path, Removed: []string{}})
			}

			var removed []string

			for _, eventName := range hookstateHookEventNames() {
				entries, ok := hooksObj[eventName].([]any)
				if !ok {
					continue
				}

				var kept []any
				for _, entry := range entries {
					entryMap, ok := entry.(map[string]any)
					if !ok {
						kept = append(kept, entry)
						continue
					}
					hooks, ok := entryMap["hooks"].([]any)
					if !ok {
						kept = append(kept, entry)
						continue
					}

					isHookstate := false
					for _, h := range hooks {
						hMap, ok := h.(map[string]any)
						if !ok {
							continue
						}
						cmd, _ := hMap["command"].(string)
						if IsHookstateCommand(cmd) {
							isHookstate = true
							break
						}
					}

					if !isHookstate {
						kept = append(kept, entry)
					}
				}

				if len(kept) != len(entries) {
					removed = append(removed, eventName)
				}

				if len(kept) == 0 {
					delete(hooksObj, eventName)
				} else {
					hooksObj[eventName] = kept
				}
			}

			settings["hooks"] = hooksObj
			if err := writeSettings(path, settings); err != nil {
				return err
			}

			return output.PrintSuccess(result{Path: path, Removed: removed})
		},
	}

	cmd.Flags().Bool("project", false, "Uninstall hooks from ./.claude/settings.json")

	return cmd
}
