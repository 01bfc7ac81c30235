package schema

import "math"

// Point is a position in page (CSS) pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in page (CSS) pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectBetween returns the normalized rectangle spanned by two corner
// points. Width and height are never negative.
func RectBetween(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

// DeviceRect is a rectangle in device pixels, the unit screenshots are
// taken in.
type DeviceRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToDevice scales the page-pixel rectangle by the device pixel ratio,
// component-wise. Ratios below 1 are treated as 1.
func (r Rect) ToDevice(pixelRatio float64) DeviceRect {
	if pixelRatio < 1 {
		pixelRatio = 1
	}
	return DeviceRect{
		X:      int(math.Round(r.X * pixelRatio)),
		Y:      int(math.Round(r.Y * pixelRatio)),
		Width:  int(math.Round(r.Width * pixelRatio)),
		Height: int(math.Round(r.Height * pixelRatio)),
	}
}

// Empty reports whether the rectangle has no area.
func (r DeviceRect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}
