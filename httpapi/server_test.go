package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pkt.systems/webclip/core"
	"pkt.systems/webclip/internal/kvstore"
	"pkt.systems/webclip/internal/tabstate"
	"pkt.systems/webclip/schema"
)

type okPages struct{}

func (okPages) Send(context.Context, schema.TabID, schema.Envelope) (schema.Result, error) {
	return schema.OK(nil), nil
}

func (okPages) Inject(context.Context, schema.TabID, []string) error {
	return nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	kv, err := kvstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("kvstore: %v", err)
	}
	svc, err := core.NewService(core.Config{}, core.ServiceDeps{
		Store: tabstate.New(kv, nil),
		Pages: okPages{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, nil).Handler()
}

func postMessage(t *testing.T, handler http.Handler, env schema.Envelope) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMessageEndpointRoutesEnvelope(t *testing.T) {
	handler := newTestHandler(t)

	body := "from http"
	payload, _ := json.Marshal(schema.UpdateNoteStateRequest{
		TabID: 12,
		Patch: schema.NotePatch{Body: &body},
	})
	rec := postMessage(t, handler, schema.Envelope{
		Action:  schema.ActionUpdateNoteState,
		Payload: payload,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res schema.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestMessageEndpointIgnoresForeignAction(t *testing.T) {
	handler := newTestHandler(t)
	rec := postMessage(t, handler, schema.Envelope{Action: schema.ActionCloseOverlay})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestMessageEndpointRejectsBadJSON(t *testing.T) {
	handler := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/message", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
