package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/core"
	"pkt.systems/webclip/internal/version"
	"pkt.systems/webclip/schema"
)

const shutdownTimeout = 5 * time.Second

// maxEnvelopeBytes bounds a posted envelope; capture rectangles and
// patches are small, only responses carry image payloads.
const maxEnvelopeBytes = 1 << 20

// Server exposes the coordinator over HTTP. Extension surfaces post
// wire envelopes to /v1/message and receive the uniform result shape.
type Server struct {
	svc core.Service
	log pslog.Logger
}

// New constructs a Server around the coordinator service.
func New(svc core.Service, logger pslog.Logger) *Server {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{svc: svc, log: logger}
}

// Handler returns the routed HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/message", s.handleMessage)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	return withRequestLogging(mux)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var env schema.Envelope
	body := http.MaxBytesReader(w, r.Body, maxEnvelopeBytes)
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, schema.Fail(schema.ErrInvalidRequest))
		return
	}
	res, handled := core.Dispatch(r.Context(), s.svc, env)
	if !handled {
		// Addressed to another context; leave the channel open.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"module":  version.Module(),
		"version": version.Current(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
