package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pkt.systems/pslog"
	"pkt.systems/webclip/internal/logx"
	"pkt.systems/webclip/internal/screenshot"
	"pkt.systems/webclip/internal/shortcuts"
	"pkt.systems/webclip/internal/tabstate"
	"pkt.systems/webclip/schema"
)

// service implements the coordinator behavior.
type service struct {
	cfg      Config
	store    *tabstate.Store
	pages    PageDirectory
	manifest ManifestSource
	screens  screenshot.Source
	sessions SessionRelay
	backend  NoteBackend
	logger   pslog.Logger
}

var settleSleep = time.Sleep

// NewService constructs the coordinator service.
func NewService(cfg Config, deps ServiceDeps) (Service, error) {
	if deps.Store == nil {
		return nil, errors.New("tab-state store is required")
	}
	if deps.Pages == nil {
		return nil, errors.New("page directory is required")
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:      cfg,
		store:    deps.Store,
		pages:    deps.Pages,
		manifest: deps.Manifest,
		screens:  deps.Screens,
		sessions: deps.Sessions,
		backend:  deps.Backend,
		logger:   logger,
	}, nil
}

func (s *service) OpenOverlay(ctx context.Context, req schema.OpenOverlayRequest) (schema.OpenOverlayResponse, error) {
	if req.TabID == 0 {
		return schema.OpenOverlayResponse{}, schema.ErrInvalidTab
	}
	mode := req.Mode
	if mode == "" {
		mode = schema.ModeMenu
	}
	if !mode.Valid() {
		return schema.OpenOverlayResponse{}, schema.ErrInvalidRequest
	}
	log := logx.WithTab(ctx, req.TabID)
	if _, err := s.store.Update(req.TabID, schema.NotePatch{Mode: &mode}); err != nil {
		return schema.OpenOverlayResponse{}, err
	}
	res, err := s.sendToPage(ctx, req.TabID, schema.Envelope{
		Action:  schema.ActionOpenOverlay,
		TabID:   req.TabID,
		Payload: mustJSON(schema.OpenOverlayRequest{TabID: req.TabID, Mode: mode}),
	})
	if err != nil {
		log.Warn("overlay open failed", "err", err)
		return schema.OpenOverlayResponse{}, err
	}
	var resp schema.OpenOverlayResponse
	decodeResult(res, &resp)
	log.Debug("overlay open ok", "mode", mode, "status", resp.Status)
	return resp, nil
}

func (s *service) StartCapture(ctx context.Context, req schema.StartCaptureRequest) (schema.StartCaptureResponse, error) {
	if req.TabID == 0 {
		return schema.StartCaptureResponse{}, schema.ErrInvalidTab
	}
	log := logx.WithTab(ctx, req.TabID)
	_, err := s.sendToPage(ctx, req.TabID, schema.Envelope{
		Action: schema.ActionStartCapture,
		TabID:  req.TabID,
	})
	if err != nil {
		log.Warn("capture arm failed", "err", err)
		return schema.StartCaptureResponse{}, err
	}
	log.Debug("capture armed")
	return schema.StartCaptureResponse{}, nil
}

// CaptureArea is the router-side continuation of a finalized drag:
// mark the slot loading and reopen the overlay for progress feedback,
// screenshot the full viewport at device resolution, crop to the
// rectangle, then store the asset with loading cleared. The loading
// write is sequenced strictly before the screenshot and the asset
// write strictly after the crop; the whole flow runs inside this one
// handler invocation, so no competing flow's write lands in between.
func (s *service) CaptureArea(ctx context.Context, req schema.CaptureAreaRequest) (schema.CaptureAreaResponse, error) {
	if req.TabID == 0 {
		return schema.CaptureAreaResponse{}, schema.ErrInvalidTab
	}
	if req.Area.Empty() {
		return schema.CaptureAreaResponse{}, schema.ErrEmptyCapture
	}
	if s.screens == nil {
		return schema.CaptureAreaResponse{}, errors.New("screenshot source not configured")
	}
	log := logx.WithTab(ctx, req.TabID)

	loading := true
	mode := schema.ModeCapture
	if _, err := s.store.Update(req.TabID, schema.NotePatch{
		Loading:   &loading,
		Mode:      &mode,
		SourceURL: &req.PageURL,
	}); err != nil {
		return schema.CaptureAreaResponse{}, err
	}
	if _, err := s.sendToPage(ctx, req.TabID, schema.Envelope{
		Action:  schema.ActionOpenOverlay,
		TabID:   req.TabID,
		Payload: mustJSON(schema.OpenOverlayRequest{TabID: req.TabID, Mode: mode}),
	}); err != nil {
		// Progress feedback only; the capture itself still runs.
		log.Warn("overlay open for capture failed", "err", err)
	}

	shot, err := s.screens.CaptureViewport(ctx, req.TabID)
	if err != nil {
		s.clearLoading(req.TabID, log)
		log.Warn("screenshot failed", "err", err)
		return schema.CaptureAreaResponse{}, fmt.Errorf("screenshot: %w", err)
	}
	cropped, err := screenshot.Crop(shot, req.Area)
	if err != nil {
		s.clearLoading(req.TabID, log)
		log.Warn("crop failed", "err", err)
		return schema.CaptureAreaResponse{}, fmt.Errorf("crop: %w", err)
	}

	done := false
	asset := &schema.CaptureAsset{
		ID:   uuid.NewString(),
		PNG:  cropped,
		Rect: req.Area,
	}
	if _, err := s.store.Update(req.TabID, schema.NotePatch{
		Loading: &done,
		Capture: asset,
	}); err != nil {
		return schema.CaptureAreaResponse{}, err
	}
	log.Debug("capture stored", "asset", asset.ID, "bytes", len(cropped))
	return schema.CaptureAreaResponse{}, nil
}

func (s *service) clearLoading(tabID schema.TabID, log pslog.Logger) {
	loading := false
	if _, err := s.store.Update(tabID, schema.NotePatch{Loading: &loading}); err != nil {
		log.Warn("loading flag clear failed", "err", err)
	}
}

func (s *service) GetMetadata(ctx context.Context, req schema.GetMetadataRequest) (schema.GetMetadataResponse, error) {
	if req.TabID == 0 {
		return schema.GetMetadataResponse{}, schema.ErrInvalidTab
	}
	res, err := s.sendToPage(ctx, req.TabID, schema.Envelope{
		Action: schema.ActionGetMetadata,
		TabID:  req.TabID,
	})
	if err != nil {
		return schema.GetMetadataResponse{}, err
	}
	if !res.Success {
		return schema.GetMetadataResponse{}, errors.New(res.Error)
	}
	var resp schema.GetMetadataResponse
	decodeResult(res, &resp)
	return resp, nil
}

func (s *service) GetSelection(ctx context.Context, req schema.GetSelectionRequest) (schema.GetSelectionResponse, error) {
	if req.TabID == 0 {
		return schema.GetSelectionResponse{}, schema.ErrInvalidTab
	}
	res, err := s.sendToPage(ctx, req.TabID, schema.Envelope{
		Action: schema.ActionGetSelection,
		TabID:  req.TabID,
	})
	if err != nil {
		return schema.GetSelectionResponse{}, err
	}
	if !res.Success {
		return schema.GetSelectionResponse{}, errors.New(res.Error)
	}
	var resp schema.GetSelectionResponse
	decodeResult(res, &resp)
	return resp, nil
}

func (s *service) RelayToPage(ctx context.Context, req schema.RelayToPageRequest) (schema.RelayToPageResponse, error) {
	if req.TabID == 0 {
		return schema.RelayToPageResponse{}, schema.ErrInvalidTab
	}
	env := req.Message
	env.TabID = req.TabID
	res, err := s.sendToPage(ctx, req.TabID, env)
	if err != nil {
		return schema.RelayToPageResponse{}, err
	}
	return schema.RelayToPageResponse{Reply: res}, nil
}

func (s *service) GetNoteState(ctx context.Context, req schema.GetNoteStateRequest) (schema.GetNoteStateResponse, error) {
	if req.TabID == 0 {
		return schema.GetNoteStateResponse{}, schema.ErrInvalidTab
	}
	state, err := s.store.Get(req.TabID)
	if err != nil {
		return schema.GetNoteStateResponse{}, err
	}
	return schema.GetNoteStateResponse{State: state}, nil
}

func (s *service) UpdateNoteState(ctx context.Context, req schema.UpdateNoteStateRequest) (schema.UpdateNoteStateResponse, error) {
	if req.TabID == 0 {
		return schema.UpdateNoteStateResponse{}, schema.ErrInvalidTab
	}
	state, err := s.store.Update(req.TabID, req.Patch)
	if err != nil {
		return schema.UpdateNoteStateResponse{}, err
	}
	return schema.UpdateNoteStateResponse{State: state}, nil
}

func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	if req.TabID == 0 {
		return schema.CloseTabResponse{}, schema.ErrInvalidTab
	}
	if err := s.store.Clear(req.TabID); err != nil {
		return schema.CloseTabResponse{}, err
	}
	logx.WithTab(ctx, req.TabID).Debug("tab slot cleared")
	return schema.CloseTabResponse{}, nil
}

func (s *service) SaveNote(ctx context.Context, req schema.SaveNoteRequest) (schema.SaveNoteResponse, error) {
	if req.TabID == 0 {
		return schema.SaveNoteResponse{}, schema.ErrInvalidTab
	}
	if s.sessions == nil || s.backend == nil {
		return schema.SaveNoteResponse{}, schema.ErrUnauthorized
	}
	log := logx.WithTab(ctx, req.TabID)
	session, err := s.sessions.GetValid(ctx)
	if err != nil {
		return schema.SaveNoteResponse{}, err
	}
	if session == nil {
		return schema.SaveNoteResponse{}, schema.ErrUnauthorized
	}
	noteID, err := s.backend.CreateNote(ctx, *session, req.Note)
	if err != nil {
		log.Warn("note save failed", "err", err)
		return schema.SaveNoteResponse{}, err
	}
	if err := s.store.Clear(req.TabID); err != nil {
		log.Warn("draft clear after save failed", "err", err)
	}
	log.Info("note saved", "note", noteID)
	return schema.SaveNoteResponse{NoteID: noteID}, nil
}

func (s *service) Login(ctx context.Context, _ schema.LoginRequest) (schema.LoginResponse, error) {
	if s.sessions == nil {
		return schema.LoginResponse{}, schema.ErrLoginFailed
	}
	session, err := s.sessions.Login(ctx)
	if err != nil {
		return schema.LoginResponse{}, err
	}
	return schema.LoginResponse{Session: session}, nil
}

func (s *service) Logout(ctx context.Context, _ schema.LogoutRequest) (schema.LogoutResponse, error) {
	if s.sessions == nil {
		return schema.LogoutResponse{}, nil
	}
	if err := s.sessions.Logout(); err != nil {
		return schema.LogoutResponse{}, err
	}
	return schema.LogoutResponse{}, nil
}

func (s *service) GetSession(ctx context.Context, _ schema.GetSessionRequest) (schema.GetSessionResponse, error) {
	if s.sessions == nil {
		return schema.GetSessionResponse{}, nil
	}
	session, err := s.sessions.GetValid(ctx)
	if err != nil {
		return schema.GetSessionResponse{}, err
	}
	return schema.GetSessionResponse{Session: session}, nil
}

func (s *service) SyncSession(ctx context.Context, req schema.SyncSessionRequest) (schema.SyncSessionResponse, error) {
	if s.sessions == nil {
		return schema.SyncSessionResponse{}, schema.ErrInvalidRequest
	}
	return s.sessions.AcceptSync(req.Session)
}

func (s *service) GetShortcuts(ctx context.Context, _ schema.GetShortcutsRequest) (schema.GetShortcutsResponse, error) {
	stored, err := s.store.Shortcuts()
	if err != nil {
		return schema.GetShortcutsResponse{}, err
	}
	return schema.GetShortcutsResponse{Settings: shortcuts.Merge(stored)}, nil
}

func (s *service) SetShortcuts(ctx context.Context, req schema.SetShortcutsRequest) (schema.SetShortcutsResponse, error) {
	if err := s.store.SetShortcuts(req.Settings); err != nil {
		return schema.SetShortcutsResponse{}, err
	}
	return schema.SetShortcutsResponse{Settings: shortcuts.Merge(req.Settings)}, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func decodeResult(res schema.Result, out any) {
	if len(res.Data) == 0 {
		return
	}
	_ = json.Unmarshal(res.Data, out)
}
