package schema

import "fmt"

// TabID identifies a browser tab. Tab identifiers are assigned by the
// browser and stay stable for the lifetime of the tab.
type TabID int

// String renders the tab id for log fields and store keys.
func (id TabID) String() string {
	return fmt.Sprintf("%d", int(id))
}

// ViewMode selects which editor surface the overlay presents.
type ViewMode string

const (
	// ModeMenu shows the action menu.
	ModeMenu ViewMode = "menu"
	// ModeText edits a text clip.
	ModeText ViewMode = "text"
	// ModeImage edits an image clip.
	ModeImage ViewMode = "image"
	// ModeCapture edits a screen-region capture.
	ModeCapture ViewMode = "capture"
	// ModeBookmark edits a page bookmark.
	ModeBookmark ViewMode = "bookmark"
)

// Valid reports whether the mode is one of the closed set.
func (m ViewMode) Valid() bool {
	switch m {
	case ModeMenu, ModeText, ModeImage, ModeCapture, ModeBookmark:
		return true
	}
	return false
}

// ShortcutAction names a user-bindable action.
type ShortcutAction string

const (
	// ShortcutOpenMenu opens the overlay menu.
	ShortcutOpenMenu ShortcutAction = "open_menu"
	// ShortcutClipSelection clips the current text selection.
	ShortcutClipSelection ShortcutAction = "clip_selection"
	// ShortcutStartCapture starts a screen-region capture.
	ShortcutStartCapture ShortcutAction = "start_capture"
	// ShortcutBookmarkPage bookmarks the current page.
	ShortcutBookmarkPage ShortcutAction = "bookmark_page"
)

// ShortcutActions lists the closed set of bindable actions.
func ShortcutActions() []ShortcutAction {
	return []ShortcutAction{
		ShortcutOpenMenu,
		ShortcutClipSelection,
		ShortcutStartCapture,
		ShortcutBookmarkPage,
	}
}

// ShortcutSettings maps bindable actions to key-combination strings.
type ShortcutSettings map[ShortcutAction]string
