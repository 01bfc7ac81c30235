package schema

import "encoding/json"

// Action tags a wire envelope. The set is closed; dispatchers switch
// exhaustively over it and ignore anything else.
type Action string

const (
	// ActionOpenOverlay opens the overlay editor on a tab.
	ActionOpenOverlay Action = "OPEN_OVERLAY"
	// ActionCloseOverlay is posted by the embedded editor to request
	// teardown.
	ActionCloseOverlay Action = "CLOSE_OVERLAY"
	// ActionStartCapture arms the in-page capture surface.
	ActionStartCapture Action = "START_CAPTURE"
	// ActionCaptureArea carries a finalized capture rectangle.
	ActionCaptureArea Action = "CAPTURE_AREA"
	// ActionGetMetadata asks a page for its metadata.
	ActionGetMetadata Action = "GET_METADATA"
	// ActionGetSelection asks a page for its text selection.
	ActionGetSelection Action = "GET_SELECTION"
	// ActionRelayToPage forwards an envelope into a page.
	ActionRelayToPage Action = "RELAY_TO_PAGE"
	// ActionGetNoteState reads a tab's draft state.
	ActionGetNoteState Action = "GET_NOTE_STATE"
	// ActionUpdateNoteState merges a patch into a tab's draft state.
	ActionUpdateNoteState Action = "UPDATE_NOTE_STATE"
	// ActionCloseTab clears a tab's draft state.
	ActionCloseTab Action = "CLOSE_TAB"
	// ActionSaveNote submits a draft to the note backend.
	ActionSaveNote Action = "SAVE_NOTE"
	// ActionLogin starts the interactive login flow.
	ActionLogin Action = "LOGIN"
	// ActionLogout destroys the stored session.
	ActionLogout Action = "LOGOUT"
	// ActionGetSession reads the current session.
	ActionGetSession Action = "GET_SESSION"
	// ActionSyncSession pushes a session from the companion surface.
	ActionSyncSession Action = "SYNC_SESSION"
	// ActionSyncAck acknowledges a session push.
	ActionSyncAck Action = "SYNC_ACK"
	// ActionGetShortcuts reads the effective shortcut settings.
	ActionGetShortcuts Action = "GET_SHORTCUTS"
	// ActionSetShortcuts stores shortcut overrides.
	ActionSetShortcuts Action = "SET_SHORTCUTS"
)

// Envelope is the one-shot message exchanged between contexts. Payload
// is the JSON encoding of the request struct matching the action.
type Envelope struct {
	Action  Action          `json:"action"`
	TabID   TabID           `json:"tabId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result is the uniform response shape returned across any message
// boundary. Handlers never raise; failures arrive as Success=false.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// OK wraps a payload into a successful result. Marshal failures are
// reported as a failed result rather than raised.
func OK(payload any) Result {
	if payload == nil {
		return Result{Success: true}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Fail(err)
	}
	return Result{Success: true, Data: data}
}

// Fail wraps an error into a failed result.
func Fail(err error) Result {
	if err == nil {
		return Result{Success: false, Error: "unknown error"}
	}
	return Result{Success: false, Error: err.Error()}
}
