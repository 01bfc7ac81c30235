package core

import (
	"context"
	"encoding/json"
	"fmt"

	"pkt.systems/webclip/internal/logx"
	"pkt.systems/webclip/schema"
)

// Dispatch routes a wire envelope to the matching Service method and
// wraps the outcome in a Result. The second return reports whether the
// action was addressed to the coordinator at all; actions that belong
// to other contexts, and unknown actions, return handled=false so the
// caller leaves the channel open for whoever owns them. Panics in
// handlers are converted to failed results instead of crossing the
// message boundary.
func Dispatch(ctx context.Context, svc Service, env schema.Envelope) (res schema.Result, handled bool) {
	defer func() {
		if r := recover(); r != nil {
			logx.Ctx(ctx).Error("handler panic", "action", env.Action, "panic", r)
			res = schema.Fail(fmt.Errorf("internal error: %v", r))
			handled = true
		}
	}()
	switch env.Action {
	case schema.ActionOpenOverlay:
		var req schema.OpenOverlayRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.OpenOverlay(ctx, req)
		return toResult(resp, err), true
	case schema.ActionStartCapture:
		var req schema.StartCaptureRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.StartCapture(ctx, req)
		return toResult(resp, err), true
	case schema.ActionCaptureArea:
		var req schema.CaptureAreaRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.CaptureArea(ctx, req)
		return toResult(resp, err), true
	case schema.ActionGetMetadata:
		var req schema.GetMetadataRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.GetMetadata(ctx, req)
		return toResult(resp, err), true
	case schema.ActionGetSelection:
		var req schema.GetSelectionRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.GetSelection(ctx, req)
		return toResult(resp, err), true
	case schema.ActionRelayToPage:
		var req schema.RelayToPageRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.RelayToPage(ctx, req)
		return toResult(resp, err), true
	case schema.ActionGetNoteState:
		var req schema.GetNoteStateRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.GetNoteState(ctx, req)
		return toResult(resp, err), true
	case schema.ActionUpdateNoteState:
		var req schema.UpdateNoteStateRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.UpdateNoteState(ctx, req)
		return toResult(resp, err), true
	case schema.ActionCloseTab:
		var req schema.CloseTabRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.CloseTab(ctx, req)
		return toResult(resp, err), true
	case schema.ActionSaveNote:
		var req schema.SaveNoteRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		fillTab(&req.TabID, env)
		resp, err := svc.SaveNote(ctx, req)
		return toResult(resp, err), true
	case schema.ActionLogin:
		resp, err := svc.Login(ctx, schema.LoginRequest{})
		return toResult(resp, err), true
	case schema.ActionLogout:
		resp, err := svc.Logout(ctx, schema.LogoutRequest{})
		return toResult(resp, err), true
	case schema.ActionGetSession:
		resp, err := svc.GetSession(ctx, schema.GetSessionRequest{})
		return toResult(resp, err), true
	case schema.ActionSyncSession:
		var req schema.SyncSessionRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		resp, err := svc.SyncSession(ctx, req)
		return toResult(resp, err), true
	case schema.ActionGetShortcuts:
		resp, err := svc.GetShortcuts(ctx, schema.GetShortcutsRequest{})
		return toResult(resp, err), true
	case schema.ActionSetShortcuts:
		var req schema.SetShortcutsRequest
		if err := decodePayload(env, &req); err != nil {
			return schema.Fail(err), true
		}
		resp, err := svc.SetShortcuts(ctx, req)
		return toResult(resp, err), true
	case schema.ActionCloseOverlay, schema.ActionSyncAck:
		// Owned by the page and companion contexts respectively.
		return schema.Result{}, false
	default:
		return schema.Result{}, false
	}
}

func decodePayload(env schema.Envelope, out any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	return nil
}

// fillTab lets senders address a tab on the envelope instead of
// repeating it in the payload.
func fillTab(tabID *schema.TabID, env schema.Envelope) {
	if *tabID == 0 {
		*tabID = env.TabID
	}
}

func toResult(payload any, err error) schema.Result {
	if err != nil {
		return schema.Fail(err)
	}
	return schema.OK(payload)
}
