package pagescript

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/webclip/internal/capture"
	"pkt.systems/webclip/internal/metadata"
	"pkt.systems/webclip/internal/overlay"
	"pkt.systems/webclip/schema"
)

// Script is the page-context message handler: the counterpart the
// coordinator talks to inside one tab. It owns the tab's overlay
// manager and capture pipeline and answers page queries from the live
// document.
type Script struct {
	tabID     schema.TabID
	pageURL   string
	document  func() string
	selection func() string
	overlay   *overlay.Manager
	pipeline  *capture.Pipeline
	log       pslog.Logger
}

// Config assembles a Script.
type Config struct {
	TabID   schema.TabID
	PageURL string
	// Document returns the page's current HTML for metadata extraction.
	Document func() string
	// Selection returns the page's current text selection.
	Selection func() string
	Overlay   *overlay.Manager
	Pipeline  *capture.Pipeline
	Logger    pslog.Logger
}

// New constructs a Script.
func New(cfg Config) *Script {
	return &Script{
		tabID:     cfg.TabID,
		pageURL:   cfg.PageURL,
		document:  cfg.Document,
		selection: cfg.Selection,
		overlay:   cfg.Overlay,
		pipeline:  cfg.Pipeline,
		log:       cfg.Logger,
	}
}

// Pipeline exposes the capture pipeline so the host's pointer and key
// hooks can drive the drag gesture.
func (s *Script) Pipeline() *capture.Pipeline {
	return s.pipeline
}

// HandlePage answers one envelope addressed to this page. The second
// return reports whether the action belongs to the page context at
// all; coordinator-owned actions are left alone.
func (s *Script) HandlePage(ctx context.Context, env schema.Envelope) (schema.Result, bool) {
	switch env.Action {
	case schema.ActionOpenOverlay:
		if err := s.overlay.Mount(s.tabID); err != nil {
			if s.log != nil {
				s.log.Warn("overlay mount failed", "tab", s.tabID, "err", err)
			}
			return schema.Fail(err), true
		}
		return schema.OK(schema.OpenOverlayResponse{Status: "open"}), true
	case schema.ActionCloseOverlay:
		s.overlay.Close()
		return schema.OK(nil), true
	case schema.ActionStartCapture:
		if err := s.pipeline.Arm(); err != nil {
			return schema.Fail(err), true
		}
		return schema.OK(schema.StartCaptureResponse{}), true
	case schema.ActionGetMetadata:
		page := metadata.Extract(s.pageURL, s.document())
		return schema.OK(schema.GetMetadataResponse{Page: page}), true
	case schema.ActionGetSelection:
		return schema.OK(schema.GetSelectionResponse{Text: s.selection()}), true
	default:
		return schema.Result{}, false
	}
}
