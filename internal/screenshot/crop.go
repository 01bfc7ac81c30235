package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"pkt.systems/webclip/schema"
)

// Crop cuts the device-pixel rectangle out of a PNG screenshot. The
// rectangle is clamped to the screenshot bounds; an empty intersection
// is an error. The crop draws the source region into an off-screen
// RGBA sized to the rectangle and re-encodes it as PNG.
func Crop(screenshot []byte, rect schema.DeviceRect) ([]byte, error) {
	if rect.Empty() {
		return nil, schema.ErrEmptyCapture
	}
	src, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	region := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)
	region = region.Intersect(src.Bounds())
	if region.Empty() {
		return nil, schema.ErrEmptyCapture
	}
	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), src, region.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
