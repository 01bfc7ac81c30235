package tabstate

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/internal/eventbus"
	"pkt.systems/webclip/internal/kvstore"
	"pkt.systems/webclip/schema"
)

const (
	sessionKey   = "session"
	shortcutsKey = "shortcuts"
)

func noteKey(tabID schema.TabID) string {
	return "note:" + tabID.String()
}

// Store holds the persisted cross-context slots: one draft-note slot
// per tab, one session slot, one shortcut-settings slot. Every write
// fans a change notification out on the matching bus; subscribers
// filter by tab at the subscription boundary.
type Store struct {
	kv        *kvstore.Store
	notes     *eventbus.Bus[schema.TabID, schema.NoteChange]
	sessions  *eventbus.Bus[string, schema.SessionChange]
	shortcuts *eventbus.Bus[string, schema.ShortcutsChange]
	log       pslog.Logger
	now       func() time.Time
}

// New constructs the store on top of a slot store.
func New(kv *kvstore.Store, logger pslog.Logger) *Store {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Store{
		kv:        kv,
		notes:     eventbus.New[schema.TabID, schema.NoteChange](logger),
		sessions:  eventbus.New[string, schema.SessionChange](logger),
		shortcuts: eventbus.New[string, schema.ShortcutsChange](logger),
		log:       logger,
		now:       time.Now,
	}
}

// Get returns the tab's draft state, nil when the slot is empty.
func (s *Store) Get(tabID schema.TabID) (*schema.TabNoteState, error) {
	var state schema.TabNoteState
	ok, err := s.kv.Get(noteKey(tabID), &state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Set replaces the tab's slot wholesale, stamping the current time
// when the caller left the timestamp zero.
func (s *Store) Set(tabID schema.TabID, state schema.TabNoteState) (schema.TabNoteState, error) {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = s.now()
	}
	if err := s.kv.Set(noteKey(tabID), state); err != nil {
		return schema.TabNoteState{}, err
	}
	s.notes.Publish(tabID, schema.NoteChange{TabID: tabID, State: &state})
	return state, nil
}

// Update merges the patch into the current slot value, or into an
// empty state when the slot is absent, and stamps a fresh timestamp.
// The merge is not atomic across processes; the coordinator is the
// sole writer during a capture flow.
func (s *Store) Update(tabID schema.TabID, patch schema.NotePatch) (schema.TabNoteState, error) {
	current, err := s.Get(tabID)
	if err != nil {
		return schema.TabNoteState{}, err
	}
	var state schema.TabNoteState
	if current != nil {
		state = *current
	}
	state = patch.Apply(state)
	state.UpdatedAt = s.now()
	if err := s.kv.Set(noteKey(tabID), state); err != nil {
		return schema.TabNoteState{}, err
	}
	s.notes.Publish(tabID, schema.NoteChange{TabID: tabID, State: &state})
	return state, nil
}

// Clear deletes the tab's slot, typically on tab close.
func (s *Store) Clear(tabID schema.TabID) error {
	if err := s.kv.Delete(noteKey(tabID)); err != nil {
		return err
	}
	s.notes.Publish(tabID, schema.NoteChange{TabID: tabID})
	return nil
}

// SubscribeNote delivers changes to one tab's slot.
func (s *Store) SubscribeNote(tabID schema.TabID) (<-chan schema.NoteChange, func()) {
	return s.notes.Subscribe(tabID)
}

// SubscribeAllNotes delivers changes to every tab's slot; the popup
// uses this to track the active tab without re-subscribing.
func (s *Store) SubscribeAllNotes() (<-chan schema.NoteChange, func()) {
	return s.notes.SubscribeAll()
}

// Session returns the stored session, nil when signed out.
func (s *Store) Session() (*schema.Session, error) {
	var session schema.Session
	ok, err := s.kv.Get(sessionKey, &session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// SetSession writes or, when nil, deletes the session slot.
func (s *Store) SetSession(session *schema.Session) error {
	if session == nil {
		if err := s.kv.Delete(sessionKey); err != nil {
			return err
		}
		s.sessions.Publish(sessionKey, schema.SessionChange{})
		return nil
	}
	if err := s.kv.Set(sessionKey, session); err != nil {
		return err
	}
	s.sessions.Publish(sessionKey, schema.SessionChange{Session: session})
	return nil
}

// SubscribeSession delivers session slot changes.
func (s *Store) SubscribeSession() (<-chan schema.SessionChange, func()) {
	return s.sessions.Subscribe(sessionKey)
}

// Shortcuts returns the stored shortcut overrides, nil when the slot
// is absent. Defaults are applied by the caller.
func (s *Store) Shortcuts() (schema.ShortcutSettings, error) {
	var settings schema.ShortcutSettings
	ok, err := s.kv.Get(shortcutsKey, &settings)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return settings, nil
}

// SetShortcuts stores shortcut overrides.
func (s *Store) SetShortcuts(settings schema.ShortcutSettings) error {
	if err := s.kv.Set(shortcutsKey, settings); err != nil {
		return err
	}
	s.shortcuts.Publish(shortcutsKey, schema.ShortcutsChange{Settings: settings})
	return nil
}

// SubscribeShortcuts delivers shortcut-settings changes.
func (s *Store) SubscribeShortcuts() (<-chan schema.ShortcutsChange, func()) {
	return s.shortcuts.Subscribe(shortcutsKey)
}
