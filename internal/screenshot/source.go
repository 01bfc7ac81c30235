package screenshot

import (
	"context"

	"pkt.systems/webclip/schema"
)

// Source produces a full-viewport screenshot of one tab as PNG bytes
// at device resolution. Screenshot capture is not scoped to any
// selection overlay; callers must get their UI out of the rendered
// frame before asking.
type Source interface {
	CaptureViewport(ctx context.Context, tabID schema.TabID) ([]byte, error)
}
