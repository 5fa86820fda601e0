package lifecycle

import (
	"encoding/json"
)

// Permission decisions for pending tool actions.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
	PermissionAsk   = "ask"
)

// permissionOutput is the PreToolUse response shape.
type permissionOutput struct {
	HookSpecificOutput permissionSpecific `json:"hookSpecificOutput"`
}

type permissionSpecific struct {
	HookEventName            string         `json:"hookEventName"`
	PermissionDecision       string         `json:"permissionDecision"`
	PermissionDecisionReason string         `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any `json:"updatedInput,omitempty"`
}

// blockOutput is the block/continue shape shared by PostToolUse and Stop.
type blockOutput struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Continue *bool  `json:"continue,omitempty"`
}

// contextOutput injects additional conversational context.
type contextOutput struct {
	HookSpecificOutput contextSpecific `json:"hookSpecificOutput"`
}

type contextSpecific struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// RespondPermission serializes an allow/deny/ask decision for a pending
// tool action, with an optional reason and optional modified input.
func (h *Hook) RespondPermission(decision, reason string, updatedInput map[string]any) error {
	if reason != "" {
		h.Log.Info("permission " + decision + ": " + reason)
	}
	return h.emit(permissionOutput{
		HookSpecificOutput: permissionSpecific{
			HookEventName:            "PreToolUse",
			PermissionDecision:       decision,
			PermissionDecisionReason: reason,
			UpdatedInput:             updatedInput,
		},
	})
}

// RespondBlock blocks the completed action with a reason the host relays
// to the model.
func (h *Hook) RespondBlock(reason string) error {
	h.Log.Info("blocked: " + reason)
	return h.emit(blockOutput{Decision: "block", Reason: reason})
}

// RespondContinue lets the action proceed, optionally noting why.
func (h *Hook) RespondContinue(reason string) error {
	cont := true
	return h.emit(blockOutput{Continue: &cont, Reason: reason})
}

// RespondStop approves or denies session termination. An empty reason
// with approve=true emits the minimal allow shape.
func (h *Hook) RespondStop(approve bool, reason string) error {
	if approve {
		return h.RespondContinue(reason)
	}
	h.Log.Info("stop blocked: " + reason)
	return h.emit(blockOutput{Decision: "block", Reason: reason})
}

// RespondStartupContext injects additional context at session start. The
// context is echoed into the session log, which is why ad hoc stdout
// writes are discouraged: they bypass this echo.
func (h *Hook) RespondStartupContext(additionalContext string) error {
	if additionalContext != "" {
		h.Log.Info("startup context injected (" + h.HookName + ")")
	}
	return h.emit(contextOutput{
		HookSpecificOutput: contextSpecific{
			HookEventName:     "SessionStart",
			AdditionalContext: additionalContext,
		},
	})
}

// RespondContext injects additional context for an arbitrary hook event.
func (h *Hook) RespondContext(eventName, additionalContext string) error {
	if additionalContext != "" {
		h.Log.Info("context injected (" + eventName + ")")
	}
	return h.emit(contextOutput{
		HookSpecificOutput: contextSpecific{
			HookEventName:     eventName,
			AdditionalContext: additionalContext,
		},
	})
}

func (h *Hook) emit(v any) error {
	return json.NewEncoder(h.stdout).Encode(v)
}
