package core

import (
	"context"

	"pkt.systems/webclip/schema"
)

// Service is the coordinator's transport-agnostic API. Every message a
// context can send maps to one method; handlers never panic across the
// boundary and never rely on in-memory state surviving between calls —
// the coordinator may be torn down and restarted between any two
// requests.
type Service interface {
	OpenOverlay(ctx context.Context, req schema.OpenOverlayRequest) (schema.OpenOverlayResponse, error)
	StartCapture(ctx context.Context, req schema.StartCaptureRequest) (schema.StartCaptureResponse, error)
	CaptureArea(ctx context.Context, req schema.CaptureAreaRequest) (schema.CaptureAreaResponse, error)
	GetMetadata(ctx context.Context, req schema.GetMetadataRequest) (schema.GetMetadataResponse, error)
	GetSelection(ctx context.Context, req schema.GetSelectionRequest) (schema.GetSelectionResponse, error)
	RelayToPage(ctx context.Context, req schema.RelayToPageRequest) (schema.RelayToPageResponse, error)
	GetNoteState(ctx context.Context, req schema.GetNoteStateRequest) (schema.GetNoteStateResponse, error)
	UpdateNoteState(ctx context.Context, req schema.UpdateNoteStateRequest) (schema.UpdateNoteStateResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	SaveNote(ctx context.Context, req schema.SaveNoteRequest) (schema.SaveNoteResponse, error)
	Login(ctx context.Context, req schema.LoginRequest) (schema.LoginResponse, error)
	Logout(ctx context.Context, req schema.LogoutRequest) (schema.LogoutResponse, error)
	GetSession(ctx context.Context, req schema.GetSessionRequest) (schema.GetSessionResponse, error)
	SyncSession(ctx context.Context, req schema.SyncSessionRequest) (schema.SyncSessionResponse, error)
	GetShortcuts(ctx context.Context, req schema.GetShortcutsRequest) (schema.GetShortcutsResponse, error)
	SetShortcuts(ctx context.Context, req schema.SetShortcutsRequest) (schema.SetShortcutsResponse, error)
}
