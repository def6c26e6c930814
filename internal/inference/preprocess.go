package inference

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Model input geometry.
const (
	InputSize = 128
	Channels  = 3
	InputLen  = InputSize * InputSize * Channels
)

// Preprocess decodes raw image bytes into the model's input layout: an opaque
// RGB image resized to 128x128, flattened row-major HWC, scaled to [0,1].
func Preprocess(raw []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: image.ErrFormat}
	}

	opaque := toOpaque(img)

	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), opaque, opaque.Bounds(), draw.Src, nil)

	out := make([]float32, 0, InputLen)
	for y := 0; y < InputSize; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+InputSize*4]
		for x := 0; x < InputSize; x++ {
			p := row[x*4 : x*4+4]
			out = append(out, float32(p[0])/255, float32(p[1])/255, float32(p[2])/255)
		}
	}
	return out, nil
}

// toOpaque drops the alpha channel and keeps the stored colour values.
func toOpaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	var dst *image.NRGBA
	if src, ok := img.(*image.NRGBA); ok {
		dst = &image.NRGBA{
			Pix:    append([]uint8(nil), src.Pix...),
			Stride: src.Stride,
			Rect:   src.Rect,
		}
	} else {
		dst = image.NewNRGBA(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
