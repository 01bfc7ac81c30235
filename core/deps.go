package core

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/internal/screenshot"
	"pkt.systems/webclip/internal/tabstate"
	"pkt.systems/webclip/schema"
)

// PageDirectory delivers one-shot envelopes into page contexts and
// injects content scripts into tabs whose pages have no listener yet.
// Send returns schema.ErrNoReceiver when the tab exists but nothing is
// listening.
type PageDirectory interface {
	Send(ctx context.Context, tabID schema.TabID, env schema.Envelope) (schema.Result, error)
	Inject(ctx context.Context, tabID schema.TabID, files []string) error
}

// ManifestSource lists the content-script files the extension
// manifest declares for injection.
type ManifestSource interface {
	ContentScripts() ([]string, error)
}

// SessionRelay is the session slot owner the router delegates to.
type SessionRelay interface {
	Login(ctx context.Context) (schema.Session, error)
	Logout() error
	GetValid(ctx context.Context) (*schema.Session, error)
	AcceptSync(session schema.Session) (schema.SyncSessionResponse, error)
}

// NoteBackend stores finished notes remotely.
type NoteBackend interface {
	CreateNote(ctx context.Context, session schema.Session, note schema.NoteDraft) (noteID string, err error)
}

// ServiceDeps captures the router's injected dependencies. Handlers
// receive everything through here; nothing hides in process-wide
// globals, so tests substitute fakes freely.
type ServiceDeps struct {
	Store    *tabstate.Store
	Pages    PageDirectory
	Manifest ManifestSource
	Screens  screenshot.Source
	Sessions SessionRelay
	Backend  NoteBackend
	Logger   pslog.Logger
}

// Config tunes router behavior.
type Config struct {
	// SettleDelay is the fixed wait after content-script injection
	// before the one retry. Listener registration cannot be observed
	// directly, so this is a settle delay, not a readiness poll.
	SettleDelay time.Duration
}

// DefaultSettleDelay is used when Config leaves SettleDelay zero.
const DefaultSettleDelay = 500 * time.Millisecond
