package overlay

import (
	"fmt"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// MountID is the fixed identifier tagging the overlay's mount point in
// a page. One mount point exists per page at most.
const MountID = "webclip-overlay-frame"

// MountSpec describes the embedded editor document to mount.
type MountSpec struct {
	// URL points at the packaged editor document, with the tab id in
	// the query so the editor can resolve its note slot.
	URL string
	// Position is the fixed layout position of the mount point.
	Position string
}

// Host is the page surface the manager mounts into. Detach functions
// returned by the listener hooks must be safe to call once.
type Host interface {
	HasMount(id string) bool
	CreateMount(id string, spec MountSpec) error
	RemoveMount(id string)
	OnEscape(fn func()) (detach func())
	OnMessage(fn func(env schema.Envelope)) (detach func())
}

// Manager owns the single overlay mount point of one page. Mount is
// idempotent; close, whether by the editor's cross-context close
// signal or by Escape, tears down the mount and every listener so
// repeated open/close cycles leak nothing.
type Manager struct {
	host    Host
	docURL  string
	onClose func(tabID schema.TabID)
	log     pslog.Logger

	mu       sync.Mutex
	mounted  bool
	tabID    schema.TabID
	detaches []func()
}

// Config assembles a Manager.
type Config struct {
	Host Host
	// DocURL is the packaged editor document location.
	DocURL string
	// OnClose, when set, is invoked after a teardown completes.
	OnClose func(tabID schema.TabID)
	Logger  pslog.Logger
}

// New constructs a Manager with nothing mounted.
func New(cfg Config) *Manager {
	return &Manager{
		host:    cfg.Host,
		docURL:  cfg.DocURL,
		onClose: cfg.OnClose,
		log:     cfg.Logger,
	}
}

// Mount creates the overlay mount point for the tab. A second call
// while the overlay is open is a no-op: it must not duplicate the
// mount or reset the editor's state.
func (m *Manager) Mount(tabID schema.TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mounted || m.host.HasMount(MountID) {
		if m.log != nil {
			m.log.Debug("overlay mount skipped", "tab", tabID)
		}
		return nil
	}
	spec := MountSpec{
		URL:      fmt.Sprintf("%s?tabId=%d", m.docURL, int(tabID)),
		Position: "top-right",
	}
	if err := m.host.CreateMount(MountID, spec); err != nil {
		return err
	}
	m.mounted = true
	m.tabID = tabID
	m.detaches = append(m.detaches,
		m.host.OnEscape(m.handleEscape),
		m.host.OnMessage(m.handleMessage),
	)
	if m.log != nil {
		m.log.Debug("overlay mounted", "tab", tabID)
	}
	return nil
}

// Mounted reports whether the overlay is currently open.
func (m *Manager) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Close tears down the mount point and detaches listeners. Closing a
// closed overlay is a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	tabID := m.tabID
	detaches := m.detaches
	m.detaches = nil
	m.mounted = false
	m.tabID = 0
	m.mu.Unlock()

	m.host.RemoveMount(MountID)
	for _, detach := range detaches {
		detach()
	}
	if m.log != nil {
		m.log.Debug("overlay closed", "tab", tabID)
	}
	if m.onClose != nil {
		m.onClose(tabID)
	}
}

func (m *Manager) handleEscape() {
	m.Close()
}

func (m *Manager) handleMessage(env schema.Envelope) {
	if env.Action != schema.ActionCloseOverlay {
		return
	}
	m.Close()
}
