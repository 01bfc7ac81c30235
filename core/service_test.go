package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"pkt.systems/webclip/internal/kvstore"
	"pkt.systems/webclip/internal/tabstate"
	"pkt.systems/webclip/schema"
)

type fakePages struct {
	mu        sync.Mutex
	sends     []schema.Envelope
	injected  [][]string
	sendFn    func(call int, env schema.Envelope) (schema.Result, error)
	injectErr error
}

func (f *fakePages) Send(_ context.Context, _ schema.TabID, env schema.Envelope) (schema.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.sends)
	f.sends = append(f.sends, env)
	if f.sendFn != nil {
		return f.sendFn(call, env)
	}
	return schema.OK(nil), nil
}

func (f *fakePages) Inject(_ context.Context, _ schema.TabID, files []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected = append(f.injected, files)
	return f.injectErr
}

func (f *fakePages) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeManifest struct {
	files []string
	err   error
}

func (f fakeManifest) ContentScripts() ([]string, error) {
	return f.files, f.err
}

type fakeScreens struct {
	png       []byte
	err       error
	onCapture func()
}

func (f *fakeScreens) CaptureViewport(_ context.Context, _ schema.TabID) ([]byte, error) {
	if f.onCapture != nil {
		f.onCapture()
	}
	return f.png, f.err
}

type fakeRelay struct {
	session      *schema.Session
	validErr     error
	loginSession schema.Session
	loginErr     error
	loggedOut    bool
	synced       []schema.Session
}

func (f *fakeRelay) Login(context.Context) (schema.Session, error) {
	return f.loginSession, f.loginErr
}

func (f *fakeRelay) Logout() error {
	f.loggedOut = true
	return nil
}

func (f *fakeRelay) GetValid(context.Context) (*schema.Session, error) {
	return f.session, f.validErr
}

func (f *fakeRelay) AcceptSync(session schema.Session) (schema.SyncSessionResponse, error) {
	if session.AccessToken == "" {
		return schema.SyncSessionResponse{}, schema.ErrInvalidRequest
	}
	f.synced = append(f.synced, session)
	return schema.SyncSessionResponse{Acked: true}, nil
}

type fakeBackend struct {
	noteID string
	err    error
	notes  []schema.NoteDraft
}

func (f *fakeBackend) CreateNote(_ context.Context, _ schema.Session, note schema.NoteDraft) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.notes = append(f.notes, note)
	return f.noteID, nil
}

func newTestStore(t *testing.T) *tabstate.Store {
	t.Helper()
	kv, err := kvstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("kvstore: %v", err)
	}
	return tabstate.New(kv, nil)
}

func newTestService(t *testing.T, deps ServiceDeps) (Service, *tabstate.Store) {
	t.Helper()
	store := newTestStore(t)
	deps.Store = store
	if deps.Pages == nil {
		deps.Pages = &fakePages{}
	}
	svc, err := NewService(Config{SettleDelay: time.Millisecond}, deps)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func noSleep(t *testing.T) {
	t.Helper()
	prev := settleSleep
	settleSleep = func(time.Duration) {}
	t.Cleanup(func() { settleSleep = prev })
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestOpenOverlayUpdatesModeAndNotifiesPage(t *testing.T) {
	pages := &fakePages{sendFn: func(int, schema.Envelope) (schema.Result, error) {
		return schema.OK(schema.OpenOverlayResponse{Status: "open"}), nil
	}}
	svc, store := newTestService(t, ServiceDeps{Pages: pages})

	resp, err := svc.OpenOverlay(context.Background(), schema.OpenOverlayRequest{TabID: 7, Mode: schema.ModeText})
	if err != nil {
		t.Fatalf("OpenOverlay: %v", err)
	}
	if resp.Status != "open" {
		t.Fatalf("status = %q, want open", resp.Status)
	}
	state, err := store.Get(7)
	if err != nil || state == nil {
		t.Fatalf("state after open: %v, %v", state, err)
	}
	if state.Mode != schema.ModeText {
		t.Fatalf("mode = %q, want %q", state.Mode, schema.ModeText)
	}
	if pages.sends[0].Action != schema.ActionOpenOverlay {
		t.Fatalf("action = %q, want %q", pages.sends[0].Action, schema.ActionOpenOverlay)
	}
}

func TestOpenOverlayDefaultsToMenuMode(t *testing.T) {
	svc, store := newTestService(t, ServiceDeps{})
	if _, err := svc.OpenOverlay(context.Background(), schema.OpenOverlayRequest{TabID: 3}); err != nil {
		t.Fatalf("OpenOverlay: %v", err)
	}
	state, _ := store.Get(3)
	if state == nil || state.Mode != schema.ModeMenu {
		t.Fatalf("mode = %v, want menu", state)
	}
}

func TestOpenOverlayRejectsInvalidMode(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})
	_, err := svc.OpenOverlay(context.Background(), schema.OpenOverlayRequest{TabID: 3, Mode: "sideways"})
	if !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestSendToPageInjectsAndRetriesOnce(t *testing.T) {
	noSleep(t)
	pages := &fakePages{sendFn: func(call int, _ schema.Envelope) (schema.Result, error) {
		if call == 0 {
			return schema.Result{}, schema.ErrNoReceiver
		}
		return schema.OK(nil), nil
	}}
	svc, _ := newTestService(t, ServiceDeps{
		Pages:    pages,
		Manifest: fakeManifest{files: []string{"content.js", "overlay.js"}},
	})

	if _, err := svc.StartCapture(context.Background(), schema.StartCaptureRequest{TabID: 5}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if got := pages.sendCount(); got != 2 {
		t.Fatalf("send count = %d, want 2", got)
	}
	if len(pages.injected) != 1 {
		t.Fatalf("inject count = %d, want 1", len(pages.injected))
	}
	if len(pages.injected[0]) != 2 || pages.injected[0][0] != "content.js" {
		t.Fatalf("injected files = %v", pages.injected[0])
	}
}

func TestSendToPageRetryFailurePropagates(t *testing.T) {
	noSleep(t)
	pages := &fakePages{sendFn: func(int, schema.Envelope) (schema.Result, error) {
		return schema.Result{}, schema.ErrNoReceiver
	}}
	svc, _ := newTestService(t, ServiceDeps{
		Pages:    pages,
		Manifest: fakeManifest{files: []string{"content.js"}},
	})

	_, err := svc.StartCapture(context.Background(), schema.StartCaptureRequest{TabID: 5})
	if !errors.Is(err, schema.ErrNoReceiver) {
		t.Fatalf("err = %v, want ErrNoReceiver", err)
	}
	if got := pages.sendCount(); got != 2 {
		t.Fatalf("send count = %d, want exactly 2 (one retry)", got)
	}
	if len(pages.injected) != 1 {
		t.Fatalf("inject count = %d, want 1", len(pages.injected))
	}
}

func TestSendToPageInjectionFailure(t *testing.T) {
	noSleep(t)
	pages := &fakePages{
		sendFn: func(int, schema.Envelope) (schema.Result, error) {
			return schema.Result{}, schema.ErrNoReceiver
		},
		injectErr: errors.New("tab is chrome://settings"),
	}
	svc, _ := newTestService(t, ServiceDeps{
		Pages:    pages,
		Manifest: fakeManifest{files: []string{"content.js"}},
	})

	_, err := svc.StartCapture(context.Background(), schema.StartCaptureRequest{TabID: 5})
	if !errors.Is(err, schema.ErrInjectionFailed) {
		t.Fatalf("err = %v, want ErrInjectionFailed", err)
	}
	if got := pages.sendCount(); got != 1 {
		t.Fatalf("send count = %d, want 1 (no retry after failed injection)", got)
	}
}

func TestCaptureAreaFlow(t *testing.T) {
	noSleep(t)
	screens := &fakeScreens{png: encodePNG(t, 100, 100)}
	svc, store := newTestService(t, ServiceDeps{Screens: screens})

	var loadingAtShot bool
	screens.onCapture = func() {
		state, err := store.Get(9)
		if err != nil || state == nil {
			t.Fatalf("state at screenshot time: %v, %v", state, err)
		}
		loadingAtShot = state.Loading
	}

	area := schema.DeviceRect{X: 10, Y: 10, Width: 40, Height: 30}
	_, err := svc.CaptureArea(context.Background(), schema.CaptureAreaRequest{
		TabID:   9,
		Area:    area,
		PageURL: "https://example.com/article",
	})
	if err != nil {
		t.Fatalf("CaptureArea: %v", err)
	}
	if !loadingAtShot {
		t.Fatalf("loading flag was not set before the screenshot")
	}
	state, _ := store.Get(9)
	if state == nil {
		t.Fatalf("no state after capture")
	}
	if state.Loading {
		t.Fatalf("loading still set after capture")
	}
	if state.Mode != schema.ModeCapture {
		t.Fatalf("mode = %q, want capture", state.Mode)
	}
	if state.SourceURL != "https://example.com/article" {
		t.Fatalf("source url = %q", state.SourceURL)
	}
	if state.Capture == nil || state.Capture.ID == "" {
		t.Fatalf("capture asset missing: %+v", state.Capture)
	}
	if state.Capture.Rect != area {
		t.Fatalf("asset rect = %+v, want %+v", state.Capture.Rect, area)
	}
	img, err := png.Decode(bytes.NewReader(state.Capture.PNG))
	if err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Fatalf("asset size = %v, want 40x30", img.Bounds())
	}
}

func TestCaptureAreaScreenshotFailureClearsLoading(t *testing.T) {
	noSleep(t)
	screens := &fakeScreens{err: errors.New("browser gone")}
	svc, store := newTestService(t, ServiceDeps{Screens: screens})

	_, err := svc.CaptureArea(context.Background(), schema.CaptureAreaRequest{
		TabID: 4,
		Area:  schema.DeviceRect{X: 0, Y: 0, Width: 20, Height: 20},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	state, _ := store.Get(4)
	if state == nil {
		t.Fatalf("no state after failed capture")
	}
	if state.Loading {
		t.Fatalf("loading flag left set after failure")
	}
	if state.Capture != nil {
		t.Fatalf("unexpected capture asset after failure")
	}
}

func TestCaptureAreaRejectsEmptyRect(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{Screens: &fakeScreens{}})
	_, err := svc.CaptureArea(context.Background(), schema.CaptureAreaRequest{TabID: 4})
	if !errors.Is(err, schema.ErrEmptyCapture) {
		t.Fatalf("err = %v, want ErrEmptyCapture", err)
	}
}

func TestSaveNoteWithoutSession(t *testing.T) {
	backend := &fakeBackend{noteID: "n-1"}
	svc, _ := newTestService(t, ServiceDeps{
		Sessions: &fakeRelay{},
		Backend:  backend,
	})

	_, err := svc.SaveNote(context.Background(), schema.SaveNoteRequest{TabID: 2, Note: schema.NoteDraft{Body: "hi"}})
	if !errors.Is(err, schema.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if len(backend.notes) != 0 {
		t.Fatalf("backend called without a session")
	}
}

func TestSaveNoteClearsDraft(t *testing.T) {
	backend := &fakeBackend{noteID: "n-42"}
	relay := &fakeRelay{session: &schema.Session{AccessToken: "tok"}}
	svc, store := newTestService(t, ServiceDeps{Sessions: relay, Backend: backend})

	if _, err := store.Set(2, schema.TabNoteState{Body: "draft"}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	resp, err := svc.SaveNote(context.Background(), schema.SaveNoteRequest{TabID: 2, Note: schema.NoteDraft{Body: "draft"}})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if resp.NoteID != "n-42" {
		t.Fatalf("note id = %q", resp.NoteID)
	}
	state, err := store.Get(2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state != nil {
		t.Fatalf("draft not cleared after save: %+v", state)
	}
}

func TestGetMetadataProxiesPage(t *testing.T) {
	pages := &fakePages{sendFn: func(_ int, env schema.Envelope) (schema.Result, error) {
		if env.Action != schema.ActionGetMetadata {
			t.Fatalf("action = %q", env.Action)
		}
		return schema.OK(schema.GetMetadataResponse{Page: schema.PageMetadata{Title: "Example"}}), nil
	}}
	svc, _ := newTestService(t, ServiceDeps{Pages: pages})

	resp, err := svc.GetMetadata(context.Background(), schema.GetMetadataRequest{TabID: 1})
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if resp.Page.Title != "Example" {
		t.Fatalf("title = %q", resp.Page.Title)
	}
}

func TestGetMetadataPageFailureBecomesError(t *testing.T) {
	pages := &fakePages{sendFn: func(int, schema.Envelope) (schema.Result, error) {
		return schema.Fail(errors.New("page broke")), nil
	}}
	svc, _ := newTestService(t, ServiceDeps{Pages: pages})

	_, err := svc.GetMetadata(context.Background(), schema.GetMetadataRequest{TabID: 1})
	if err == nil || err.Error() != "page broke" {
		t.Fatalf("err = %v, want page broke", err)
	}
}

func TestCloseTabClearsSlot(t *testing.T) {
	svc, store := newTestService(t, ServiceDeps{})
	if _, err := store.Set(6, schema.TabNoteState{Body: "x"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CloseTab(context.Background(), schema.CloseTabRequest{TabID: 6}); err != nil {
		t.Fatalf("CloseTab: %v", err)
	}
	state, _ := store.Get(6)
	if state != nil {
		t.Fatalf("slot not cleared: %+v", state)
	}
}

func TestShortcutsRoundTripWithDefaults(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})

	resp, err := svc.GetShortcuts(context.Background(), schema.GetShortcutsRequest{})
	if err != nil {
		t.Fatalf("GetShortcuts: %v", err)
	}
	if resp.Settings[schema.ShortcutOpenMenu] == "" {
		t.Fatalf("no default for open_menu: %v", resp.Settings)
	}

	set, err := svc.SetShortcuts(context.Background(), schema.SetShortcutsRequest{
		Settings: schema.ShortcutSettings{schema.ShortcutClipSelection: "Ctrl+Shift+S"},
	})
	if err != nil {
		t.Fatalf("SetShortcuts: %v", err)
	}
	if set.Settings[schema.ShortcutClipSelection] != "Ctrl+Shift+S" {
		t.Fatalf("override not applied: %v", set.Settings)
	}
	if set.Settings[schema.ShortcutOpenMenu] == "" {
		t.Fatalf("default dropped by override: %v", set.Settings)
	}

	again, err := svc.GetShortcuts(context.Background(), schema.GetShortcutsRequest{})
	if err != nil {
		t.Fatalf("GetShortcuts: %v", err)
	}
	if again.Settings[schema.ShortcutClipSelection] != "Ctrl+Shift+S" {
		t.Fatalf("override not persisted: %v", again.Settings)
	}
}

func TestSessionOperationsDelegate(t *testing.T) {
	relay := &fakeRelay{
		loginSession: schema.Session{AccessToken: "fresh"},
		session:      &schema.Session{AccessToken: "fresh"},
	}
	svc, _ := newTestService(t, ServiceDeps{Sessions: relay})

	login, err := svc.Login(context.Background(), schema.LoginRequest{})
	if err != nil || login.Session.AccessToken != "fresh" {
		t.Fatalf("Login: %+v, %v", login, err)
	}
	got, err := svc.GetSession(context.Background(), schema.GetSessionRequest{})
	if err != nil || got.Session == nil || got.Session.AccessToken != "fresh" {
		t.Fatalf("GetSession: %+v, %v", got, err)
	}
	sync, err := svc.SyncSession(context.Background(), schema.SyncSessionRequest{
		Session: schema.Session{AccessToken: "pushed"},
	})
	if err != nil || !sync.Acked {
		t.Fatalf("SyncSession: %+v, %v", sync, err)
	}
	if _, err := svc.Logout(context.Background(), schema.LogoutRequest{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !relay.loggedOut {
		t.Fatalf("logout did not reach the relay")
	}
}
