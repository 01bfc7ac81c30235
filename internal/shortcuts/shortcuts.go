package shortcuts

import "pkt.systems/webclip/schema"

// Defaults returns the built-in key bindings, supplied whenever the
// persisted slot is absent or misses an action.
func Defaults() schema.ShortcutSettings {
	return schema.ShortcutSettings{
		schema.ShortcutOpenMenu:      "Alt+W",
		schema.ShortcutClipSelection: "Alt+S",
		schema.ShortcutStartCapture:  "Alt+A",
		schema.ShortcutBookmarkPage:  "Alt+D",
	}
}

// Merge overlays stored overrides on the defaults, dropping bindings
// for actions outside the closed set.
func Merge(overrides schema.ShortcutSettings) schema.ShortcutSettings {
	merged := Defaults()
	for _, action := range schema.ShortcutActions() {
		if combo, ok := overrides[action]; ok && combo != "" {
			merged[action] = combo
		}
	}
	return merged
}
