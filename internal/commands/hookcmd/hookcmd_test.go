package hookcmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsHookstateCommand(t *testing.T) {
	valid := []string{
		"hookstate hook pre-tool-use",
		"hookstate hook session-start",
		"hookstate hook session-end",
		`"/usr/local/bin/hookstate" hook post-tool-use`,
		"/home/dev/go/bin/hookstate hook stop",
		"  hookstate hook prompt  ",
	}
	for _, cmd := range valid {
		require.True(t, IsHookstateCommand(cmd), "command %q must match", cmd)
	}

	invalid := []string{
		"",
		"hookstate",
		"hookstate hook",
		"hookstate hook unknown-sub",
		"othertool hook pre-tool-use",
		"hookstate run pre-tool-use",
		"/usr/bin/hookstate-evil hook stop",
	}
	for _, cmd := range invalid {
		require.False(t, IsHookstateCommand(cmd), "command %q must not match", cmd)
	}
}

func TestHasHookstateHook(t *testing.T) {
	entries := []any{
		map[string]any{
			"matcher": "Write|Edit",
			"hooks": []any{
				map[string]any{"type": "command", "command": "prettier --check"},
			},
		},
	}
	require.False(t, HasHookstateHook(entries))

	entries = append(entries, map[string]any{
		"matcher": "",
		"hooks": []any{
			map[string]any{"type": "command", "command": "hookstate hook stop"},
		},
	})
	require.True(t, HasHookstateHook(entries))

	// Malformed entries are skipped, not fatal.
	require.False(t, HasHookstateHook([]any{"not-an-object", 42, map[string]any{"hooks": "nope"}}))
}

func entryAsMap(t *testing.T, e hookEntry) map[string]any {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestUpsertHookstateEntry(t *testing.T) {
	ours := entryAsMap(t, hookEntry{
		Matcher: "Write|Edit",
		Hooks:   []hookHandler{{Type: "command", Command: "hookstate hook pre-tool-use", Timeout: 3000}},
	})
	foreign := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "audit-bash.sh"},
		},
	}

	// Fresh install keeps foreign entries and appends ours.
	entries, outcome := upsertHookstateEntry([]any{foreign}, ours)
	require.Equal(t, hookInstalled, outcome)
	require.Len(t, entries, 2)
	require.Equal(t, foreign, entries[0])

	// Re-running with the identical entry is a no-op.
	entries, outcome = upsertHookstateEntry(entries, ours)
	require.Equal(t, hookSkipped, outcome)
	require.Len(t, entries, 2)

	// A changed definition replaces the stale one instead of stacking.
	changed := entryAsMap(t, hookEntry{
		Matcher: "Write|Edit|MultiEdit",
		Hooks:   []hookHandler{{Type: "command", Command: "hookstate hook pre-tool-use", Timeout: 5000}},
	})
	entries, outcome = upsertHookstateEntry(entries, changed)
	require.Equal(t, hookUpdated, outcome)
	require.Len(t, entries, 2)
	require.Equal(t, changed, entries[1])
}

func TestHookstateHooks_CoverLifecycle(t *testing.T) {
	hooks := hookstateHooks()
	for _, event := range []string{"SessionStart", "PreToolUse", "PostToolUse", "UserPromptSubmit", "Stop", "SessionEnd"} {
		entry, ok := hooks[event]
		require.True(t, ok, "event %s must be registered", event)
		require.Len(t, entry.Hooks, 1)
		require.Equal(t, "command", entry.Hooks[0].Type)
		require.True(t, IsHookstateCommand(entry.Hooks[0].Command), "command %q must be recognizable", entry.Hooks[0].Command)
		require.Greater(t, entry.Hooks[0].Timeout, 0)
	}

	require.Equal(t,
		[]string{"PostToolUse", "PreToolUse", "SessionEnd", "SessionStart", "Stop", "UserPromptSubmit"},
		hookstateHookEventNames())
}

func TestReadWriteSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")

	// Absent file reads as an empty document.
	settings, err := readSettings(path)
	require.NoError(t, err)
	require.Empty(t, settings)

	settings["hooks"] = map[string]any{"Stop": []any{}}
	require.NoError(t, writeSettings(path, settings))

	again, err := readSettings(path)
	require.NoError(t, err)
	require.Contains(t, again, "hooks")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte('\n'), data[len(data)-1])
}

func TestReadSettings_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := readSettings(path)
	require.Error(t, err)
}
