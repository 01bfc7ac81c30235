package screenshot

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"pkt.systems/webclip/schema"
)

func testScreenshot(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestCropExtractsRegion(t *testing.T) {
	shot := testScreenshot(t, 200, 150)
	out, err := Crop(shot, schema.DeviceRect{X: 20, Y: 30, Width: 50, Height: 40})
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 40 {
		t.Fatalf("crop size %dx%d, want 50x40", bounds.Dx(), bounds.Dy())
	}
	r, g, _, _ := img.At(0, 0).RGBA()
	if uint8(r>>8) != 20 || uint8(g>>8) != 30 {
		t.Fatalf("crop origin wrong: r=%d g=%d", r>>8, g>>8)
	}
}

func TestCropClampsToBounds(t *testing.T) {
	shot := testScreenshot(t, 100, 100)
	out, err := Crop(shot, schema.DeviceRect{X: 80, Y: 80, Width: 50, Height: 50})
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Fatalf("clamped crop size %dx%d, want 20x20", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestCropRejectsEmptyRegion(t *testing.T) {
	shot := testScreenshot(t, 100, 100)
	if _, err := Crop(shot, schema.DeviceRect{X: 10, Y: 10}); !errors.Is(err, schema.ErrEmptyCapture) {
		t.Fatalf("expected ErrEmptyCapture for zero size, got %v", err)
	}
	if _, err := Crop(shot, schema.DeviceRect{X: 500, Y: 500, Width: 10, Height: 10}); !errors.Is(err, schema.ErrEmptyCapture) {
		t.Fatalf("expected ErrEmptyCapture outside bounds, got %v", err)
	}
}

func TestCropRejectsGarbageInput(t *testing.T) {
	if _, err := Crop([]byte("not a png"), schema.DeviceRect{Width: 10, Height: 10}); err == nil {
		t.Fatalf("expected decode error")
	}
}
