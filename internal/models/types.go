package models

// Session is the global, multi-writer document describing one logical host
// work session. One document exists per host process id; it lives in the
// temp-file namespace and is intentionally ephemeral.
type Session struct {
	SessionID string                  `json:"session_id"`
	PID       int                     `json:"pid"`
	StartedAt string                  `json:"started_at"`
	Plugins   map[string]*PluginState `json:"plugins"`
	Metadata  SessionMetadata         `json:"metadata"`
}

// SessionMetadata records the sibling artifact paths and detected platform
// so any plugin's hook can find the shared log and journal.
type SessionMetadata struct {
	LogFile      string `json:"log_file"`
	ErrorJournal string `json:"error_journal"`
	Platform     string `json:"platform"`
}

// PluginState is the portion of a session owned by one plugin. Created on
// first reference, never removed except by whole-session deletion.
type PluginState struct {
	Plugin               string                     `json:"plugin"`
	StartedAt            string                     `json:"started_at"`
	RecommendationsShown map[string]bool            `json:"recommendations_shown"`
	ValidationsPassed    map[string]map[string]bool `json:"validations_passed"`
	CustomData           map[string]any             `json:"custom_data"`
}

// NewPluginState returns a PluginState with all sub-maps allocated so
// accessors never have to nil-check individual maps.
func NewPluginState(plugin, startedAt string) *PluginState {
	return &PluginState{
		Plugin:               plugin,
		StartedAt:            startedAt,
		RecommendationsShown: map[string]bool{},
		ValidationsPassed:    map[string]map[string]bool{},
		CustomData:           map[string]any{},
	}
}
