package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// SmearPNG returns a small PNG that decodes as a valid upload.
func SmearPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(150 + x), G: uint8(60 + y), B: 170, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}
