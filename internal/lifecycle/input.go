package lifecycle

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/dotcommander/hookstate/internal/logging"
)

// maxStdinBytes caps stdin reads. Hook payloads are small JSON objects;
// 1 MB is generous headroom that prevents unbounded allocation.
const maxStdinBytes = 1 << 20

// Payload is the JSON document the host sends on stdin. Known fields are
// typed; the Raw map preserves everything for dotted-path lookups.
type Payload struct {
	CWD           string          `json:"cwd"`
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name"`
	Prompt        string          `json:"prompt"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolResponse  json.RawMessage `json:"tool_response"`
	Source        string          `json:"source"`
	Reason        string          `json:"reason"`
	Raw           map[string]any  `json:"-"`
}

// readPayload consumes the entire stream once. A malformed or empty
// payload yields an empty Payload, never an error: absent input is a
// degraded default, not a failure.
func readPayload(r io.Reader, log *logging.Logger) *Payload {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes))
	if err != nil {
		return &Payload{Raw: map[string]any{}}
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil && len(data) > 0 {
		log.Warn("hook stdin unmarshal failed: " + err.Error())
	}
	// Intentional double-unmarshal: struct tags handle known fields while
	// the Raw map serves dotted-path queries over unknown fields. Payloads
	// are <1 KB so the cost is negligible.
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	if raw == nil {
		raw = map[string]any{}
	}
	p.Raw = raw
	return &p
}

// Get resolves a dotted path (e.g. "tool_input.file_path") against the
// payload. Absent is not an error; the second return is false.
func (p *Payload) Get(path string) (any, bool) {
	if p == nil || path == "" {
		return nil, false
	}
	var current any = p.Raw
	for _, seg := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the string at path, or "" when absent or not a string.
func (p *Payload) GetString(path string) string {
	v, ok := p.Get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetBool returns the bool at path, or false when absent or not a bool.
func (p *Payload) GetBool(path string) bool {
	v, ok := p.Get(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// GetInt returns the number at path truncated to int, or 0 when absent.
// JSON numbers decode as float64, hence the conversion.
func (p *Payload) GetInt(path string) int {
	v, ok := p.Get(path)
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}

// GetMap returns the object at path, or nil when absent or not an object.
func (p *Payload) GetMap(path string) map[string]any {
	v, ok := p.Get(path)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}
