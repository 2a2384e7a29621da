// Package bitmap converts between engine render buffers and Go images.
//
// Engines paint ARGB32 pixels: one 32-bit word 0xAARRGGBB per pixel, stored in
// host byte order, with premultiplied alpha. On little-endian hosts the bytes
// of a pixel therefore read B, G, R, A.
package bitmap

import (
	"fmt"
	"image"

	"golang.org/x/sys/cpu"

	"github.com/potatoqualitee/aitools/tools/lokit/engine"
	"github.com/potatoqualitee/aitools/tools/lokit/permute"
)

// BGRAToARGB reorders the bytes of a little-endian ARGB32 pixel into
// A, R, G, B order.
var BGRAToARGB = []int{3, 2, 1, 0}

var (
	// nativeToRGBA maps host-order ARGB32 bytes to image.RGBA byte order.
	nativeToRGBA []int
	// rgbaToNative is its inverse.
	rgbaToNative []int
)

func init() {
	if cpu.IsBigEndian {
		nativeToRGBA = []int{1, 2, 3, 0}
	} else {
		nativeToRGBA = []int{2, 1, 0, 3}
	}
	rgbaToNative = permute.Inverse(nativeToRGBA)
}

// ARGB32 is a tightly packed, row-major render buffer.
type ARGB32 struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a zeroed buffer for width×height pixels.
func New(width, height int) *ARGB32 {
	return &ARGB32{
		Width:  width,
		Height: height,
		Pix:    make([]byte, engine.BufferSize(width, height)),
	}
}

// RGBA returns a copy of the buffer as an *image.RGBA.
func (b *ARGB32) RGBA() (*image.RGBA, error) {
	if len(b.Pix) != engine.BufferSize(b.Width, b.Height) {
		return nil, fmt.Errorf("buffer holds %d bytes, want %d for %dx%d", len(b.Pix), engine.BufferSize(b.Width, b.Height), b.Width, b.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	permute.Apply(img.Pix, nativeToRGBA)
	return img, nil
}

// ARGB returns a copy of the pixels with every pixel's bytes in A, R, G, B
// order regardless of host byte order.
func (b *ARGB32) ARGB() []byte {
	out := append([]byte(nil), b.Pix...)
	if !cpu.IsBigEndian {
		permute.Apply(out, BGRAToARGB)
	}
	return out
}

// PutRGBA writes img into dst as host-order ARGB32 pixels. dst must hold
// exactly the bytes of img's bounds.
func PutRGBA(dst []byte, img *image.RGBA) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if len(dst) < engine.BufferSize(w, h) {
		return fmt.Errorf("buffer holds %d bytes, want %d for %dx%d", len(dst), engine.BufferSize(w, h), w, h)
	}
	rowBytes := engine.BytesPerPixel * w
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[:rowBytes])
	}
	permute.Apply(dst[:engine.BufferSize(w, h)], rgbaToNative)
	return nil
}
