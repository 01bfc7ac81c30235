package schema

// NoteChange reports a write to one tab's note slot. State is nil when
// the slot was cleared.
type NoteChange struct {
	TabID TabID
	State *TabNoteState
}

// SessionChange reports a write to the session slot. Session is nil
// after logout or a failed refresh.
type SessionChange struct {
	Session *Session
}

// ShortcutsChange reports a write to the shortcut-settings slot.
type ShortcutsChange struct {
	Settings ShortcutSettings
}
