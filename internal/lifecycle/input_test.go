package lifecycle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func parseTestPayload(t *testing.T, raw string) *Payload {
	t.Helper()
	return readPayload(strings.NewReader(raw), nil)
}

func TestReadPayload_KnownFields(t *testing.T) {
	p := parseTestPayload(t, `{
		"cwd": "/work",
		"session_id": "abc",
		"hook_event_name": "PreToolUse",
		"tool_name": "Edit",
		"tool_input": {"file_path": "src/a.ts", "old_string": "x"},
		"source": "startup"
	}`)

	require.Equal(t, "/work", p.CWD)
	require.Equal(t, "abc", p.SessionID)
	require.Equal(t, "PreToolUse", p.HookEventName)
	require.Equal(t, "Edit", p.ToolName)
	require.Equal(t, "startup", p.Source)
}

func TestPayloadGet_DottedPaths(t *testing.T) {
	p := parseTestPayload(t, `{
		"tool_input": {
			"file_path": "src/a.ts",
			"count": 3,
			"force": true,
			"opts": {"deep": {"flag": false}}
		}
	}`)

	require.Equal(t, "src/a.ts", p.GetString("tool_input.file_path"))
	require.Equal(t, 3, p.GetInt("tool_input.count"))
	require.True(t, p.GetBool("tool_input.force"))

	v, ok := p.Get("tool_input.opts.deep.flag")
	require.True(t, ok)
	require.Equal(t, false, v)

	m := p.GetMap("tool_input.opts")
	require.NotNil(t, m)
	require.Contains(t, m, "deep")
}

func TestPayloadGet_AbsentIsNotAnError(t *testing.T) {
	p := parseTestPayload(t, `{"tool_input": {"file_path": "a"}}`)

	_, ok := p.Get("tool_input.missing")
	require.False(t, ok)
	_, ok = p.Get("no.such.path")
	require.False(t, ok)
	// Traversing through a non-object yields absent, not a panic.
	_, ok = p.Get("tool_input.file_path.deeper")
	require.False(t, ok)

	require.Empty(t, p.GetString("tool_input.missing"))
	require.Zero(t, p.GetInt("tool_input.file_path")) // wrong type
	require.False(t, p.GetBool("absent"))
	require.Nil(t, p.GetMap("absent"))
}

func TestReadPayload_MalformedInputDegrades(t *testing.T) {
	p := parseTestPayload(t, `{broken`)
	require.NotNil(t, p)
	require.NotNil(t, p.Raw)
	_, ok := p.Get("anything")
	require.False(t, ok)

	empty := parseTestPayload(t, "")
	require.NotNil(t, empty.Raw)
}

func TestPayloadGet_NilReceiver(t *testing.T) {
	var p *Payload
	_, ok := p.Get("x")
	require.False(t, ok)
}
