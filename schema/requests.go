package schema

// Overlay lifecycle.

// OpenOverlayRequest describes a request to open the overlay editor on
// a tab.
type OpenOverlayRequest struct {
	TabID TabID    `json:"tabId"`
	Mode  ViewMode `json:"mode"`
}

// OpenOverlayResponse reports the overlay status after the open.
type OpenOverlayResponse struct {
	Status string `json:"status"`
}

// Capture flow.

// StartCaptureRequest asks the page to arm the region-capture surface.
type StartCaptureRequest struct {
	TabID TabID `json:"tabId"`
}

// StartCaptureResponse reports that the capture surface was armed.
type StartCaptureResponse struct{}

// CaptureAreaRequest carries a finalized device-pixel capture
// rectangle from the page.
type CaptureAreaRequest struct {
	TabID   TabID      `json:"tabId"`
	Area    DeviceRect `json:"area"`
	PageURL string     `json:"pageUrl"`
}

// CaptureAreaResponse reports completion of the screenshot-and-crop
// continuation.
type CaptureAreaResponse struct{}

// Page queries.

// GetMetadataRequest asks the page for its metadata.
type GetMetadataRequest struct {
	TabID TabID `json:"tabId"`
}

// GetMetadataResponse reports the page metadata.
type GetMetadataResponse struct {
	Page PageMetadata `json:"page"`
}

// GetSelectionRequest asks the page for the current text selection.
type GetSelectionRequest struct {
	TabID TabID `json:"tabId"`
}

// GetSelectionResponse reports the selected text.
type GetSelectionResponse struct {
	Text string `json:"text"`
}

// RelayToPageRequest forwards an arbitrary envelope into a page.
type RelayToPageRequest struct {
	TabID   TabID    `json:"tabId"`
	Message Envelope `json:"message"`
}

// RelayToPageResponse reports the page's reply.
type RelayToPageResponse struct {
	Reply Result `json:"reply"`
}

// Note state.

// GetNoteStateRequest reads a tab's draft note state.
type GetNoteStateRequest struct {
	TabID TabID `json:"tabId"`
}

// GetNoteStateResponse reports the draft state, nil when absent.
type GetNoteStateResponse struct {
	State *TabNoteState `json:"state,omitempty"`
}

// UpdateNoteStateRequest merges a patch into a tab's draft state.
type UpdateNoteStateRequest struct {
	TabID TabID     `json:"tabId"`
	Patch NotePatch `json:"patch"`
}

// UpdateNoteStateResponse reports the merged state.
type UpdateNoteStateResponse struct {
	State TabNoteState `json:"state"`
}

// CloseTabRequest destroys a tab's draft state when the tab closes.
type CloseTabRequest struct {
	TabID TabID `json:"tabId"`
}

// CloseTabResponse reports completion of the cleanup.
type CloseTabResponse struct{}

// SaveNoteRequest submits the overlay's draft to the note backend.
type SaveNoteRequest struct {
	TabID TabID     `json:"tabId"`
	Note  NoteDraft `json:"note"`
}

// SaveNoteResponse reports the saved note's backend identifier.
type SaveNoteResponse struct {
	NoteID string `json:"noteId"`
}

// Session.

// LoginRequest starts the interactive login flow.
type LoginRequest struct{}

// LoginResponse reports the established session.
type LoginResponse struct {
	Session Session `json:"session"`
}

// LogoutRequest destroys the stored session.
type LogoutRequest struct{}

// LogoutResponse reports completion of the logout.
type LogoutResponse struct{}

// GetSessionRequest reads the current session, refreshing near expiry.
type GetSessionRequest struct{}

// GetSessionResponse reports the session, nil when signed out.
type GetSessionResponse struct {
	Session *Session `json:"session,omitempty"`
}

// SyncSessionRequest pushes a session in from the companion surface.
type SyncSessionRequest struct {
	Session Session `json:"session"`
}

// SyncSessionResponse acknowledges receipt so the sender stops
// retrying.
type SyncSessionResponse struct {
	Acked bool `json:"acked"`
}

// Shortcuts.

// GetShortcutsRequest reads the effective shortcut settings.
type GetShortcutsRequest struct{}

// GetShortcutsResponse reports settings with defaults applied.
type GetShortcutsResponse struct {
	Settings ShortcutSettings `json:"settings"`
}

// SetShortcutsRequest stores shortcut overrides.
type SetShortcutsRequest struct {
	Settings ShortcutSettings `json:"settings"`
}

// SetShortcutsResponse reports the effective settings after the write.
type SetShortcutsResponse struct {
	Settings ShortcutSettings `json:"settings"`
}
