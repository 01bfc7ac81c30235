package capture

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// MinRegionSize is the smallest accepted selection dimension in page
// pixels. Anything smaller is treated as an accidental click.
const MinRegionSize = 10

// settleFrames is how many frame callbacks finalize waits for, so the
// selection surface is out of the rendered frame before the
// full-viewport screenshot is taken.
const settleFrames = 2

// State is the pipeline's drag state.
type State int

const (
	// Idle means no capture surface is present.
	Idle State = iota
	// Arming means the transparent surface is inserted and the cursor
	// hidden, waiting for a pointer-down.
	Arming
	// Dragging means a selection rectangle is being sized.
	Dragging
)

// Surface is the in-page selection UI. Insert adds the transparent
// full-viewport layer and hides the cursor; Remove undoes both.
type Surface interface {
	Insert() error
	SetRect(rect schema.Rect)
	Remove()
}

// FrameWaiter blocks until n rendered frames have passed.
type FrameWaiter interface {
	WaitFrames(ctx context.Context, n int) error
}

// Sender posts the finalized capture-area message to the coordinator.
type Sender interface {
	SendCaptureArea(ctx context.Context, req schema.CaptureAreaRequest) error
}

// Pipeline turns a drag gesture into a device-pixel capture rectangle.
// It runs entirely in the page context; all side effects go through
// the Surface, FrameWaiter, and Sender ports.
type Pipeline struct {
	tabID      schema.TabID
	pageURL    string
	pixelRatio float64
	surface    Surface
	frames     FrameWaiter
	sender     Sender
	log        pslog.Logger

	state  State
	anchor schema.Point
	rect   schema.Rect
}

// Config assembles a Pipeline.
type Config struct {
	TabID      schema.TabID
	PageURL    string
	PixelRatio float64
	Surface    Surface
	Frames     FrameWaiter
	Sender     Sender
	Logger     pslog.Logger
}

// New constructs an idle pipeline.
func New(cfg Config) *Pipeline {
	ratio := cfg.PixelRatio
	if ratio < 1 {
		ratio = 1
	}
	return &Pipeline{
		tabID:      cfg.TabID,
		pageURL:    cfg.PageURL,
		pixelRatio: ratio,
		surface:    cfg.Surface,
		frames:     cfg.Frames,
		sender:     cfg.Sender,
		log:        cfg.Logger,
		state:      Idle,
	}
}

// State returns the current drag state.
func (p *Pipeline) State() State {
	return p.state
}

// Rect returns the current selection rectangle. It is only meaningful
// while dragging.
func (p *Pipeline) Rect() schema.Rect {
	return p.rect
}

// Arm inserts the capture surface. Arming an already-armed pipeline is
// a no-op.
func (p *Pipeline) Arm() error {
	if p.state != Idle {
		return nil
	}
	if err := p.surface.Insert(); err != nil {
		return err
	}
	p.state = Arming
	if p.log != nil {
		p.log.Debug("capture armed", "tab", p.tabID)
	}
	return nil
}

// PointerDown anchors a zero-size selection at the pointer position.
// Ignored unless armed.
func (p *Pipeline) PointerDown(at schema.Point) {
	if p.state != Arming {
		return
	}
	p.anchor = at
	p.rect = schema.Rect{X: at.X, Y: at.Y}
	p.surface.SetRect(p.rect)
	p.state = Dragging
}

// PointerMove grows or repositions the selection. The rectangle is
// normalized from the min/max of anchor and pointer, so width and
// height never go negative. Ignored unless dragging.
func (p *Pipeline) PointerMove(at schema.Point) {
	if p.state != Dragging {
		return
	}
	p.rect = schema.RectBetween(p.anchor, at)
	p.surface.SetRect(p.rect)
}

// PointerUp finalizes the selection. Selections under MinRegionSize in
// either dimension are discarded silently; otherwise the rectangle is
// converted to device pixels, the surface is removed from the rendered
// frame, and the capture-area message is sent. Ignored unless
// dragging.
func (p *Pipeline) PointerUp(ctx context.Context, at schema.Point) error {
	if p.state != Dragging {
		return nil
	}
	rect := schema.RectBetween(p.anchor, at)
	p.surface.Remove()
	p.state = Idle
	p.rect = schema.Rect{}
	if rect.Width < MinRegionSize || rect.Height < MinRegionSize {
		if p.log != nil {
			p.log.Debug("capture discarded", "tab", p.tabID, "w", rect.Width, "h", rect.Height)
		}
		return nil
	}
	device := rect.ToDevice(p.pixelRatio)
	if err := p.frames.WaitFrames(ctx, settleFrames); err != nil {
		return err
	}
	if p.log != nil {
		p.log.Debug("capture finalized", "tab", p.tabID, "x", device.X, "y", device.Y, "w", device.Width, "h", device.Height)
	}
	return p.sender.SendCaptureArea(ctx, schema.CaptureAreaRequest{
		TabID:   p.tabID,
		Area:    device,
		PageURL: p.pageURL,
	})
}

// Cancel aborts the gesture from any armed or dragging state: surface
// removed, cursor restored, no message sent. Escape maps here.
func (p *Pipeline) Cancel() {
	if p.state == Idle {
		return
	}
	p.surface.Remove()
	p.state = Idle
	p.rect = schema.Rect{}
	if p.log != nil {
		p.log.Debug("capture cancelled", "tab", p.tabID)
	}
}
