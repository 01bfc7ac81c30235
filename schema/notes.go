package schema

import "time"

// PageMetadata describes the page a clip came from.
type PageMetadata struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Preview     string `json:"preview,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// CaptureAsset is a cropped screenshot together with the device-pixel
// rectangle it was cropped from. It belongs to the tab's note state
// until the note is saved or discarded.
type CaptureAsset struct {
	ID   string     `json:"id"`
	PNG  []byte     `json:"png"`
	Rect DeviceRect `json:"rect"`
}

// TabNoteState is the draft capture/note for one tab. At most one live
// state exists per tab; it is destroyed when the tab closes.
type TabNoteState struct {
	Body      string        `json:"body,omitempty"`
	SourceURL string        `json:"source_url,omitempty"`
	Capture   *CaptureAsset `json:"capture,omitempty"`
	Page      PageMetadata  `json:"page,omitempty"`
	Mode      ViewMode      `json:"mode,omitempty"`
	Loading   bool          `json:"loading,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NotePatch is a partial TabNoteState merged over the stored value.
// Nil fields leave the stored field untouched.
type NotePatch struct {
	Body      *string       `json:"body,omitempty"`
	SourceURL *string       `json:"source_url,omitempty"`
	Capture   *CaptureAsset `json:"capture,omitempty"`
	Page      *PageMetadata `json:"page,omitempty"`
	Mode      *ViewMode     `json:"mode,omitempty"`
	Loading   *bool         `json:"loading,omitempty"`
}

// Apply merges the patch over the state and returns the result.
func (p NotePatch) Apply(state TabNoteState) TabNoteState {
	if p.Body != nil {
		state.Body = *p.Body
	}
	if p.SourceURL != nil {
		state.SourceURL = *p.SourceURL
	}
	if p.Capture != nil {
		state.Capture = p.Capture
	}
	if p.Page != nil {
		state.Page = *p.Page
	}
	if p.Mode != nil {
		state.Mode = *p.Mode
	}
	if p.Loading != nil {
		state.Loading = *p.Loading
	}
	return state
}

// NoteDraft is the payload of a save request as submitted by the
// overlay editor.
type NoteDraft struct {
	Body      string        `json:"body,omitempty"`
	SourceURL string        `json:"source_url,omitempty"`
	Mode      ViewMode      `json:"mode,omitempty"`
	Capture   *CaptureAsset `json:"capture,omitempty"`
	Page      PageMetadata  `json:"page,omitempty"`
}
