package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// PixelBuffer is an interleaved 8-bit RGBA raster.
//
// Pix holds Width*Height*4 bytes in row-major order with channels ordered
// R, G, B, A. Color values are non-premultiplied, matching image.NRGBA.
//
// A PixelBuffer is owned by exactly one pipeline stage at a time. Stages that
// change pixel content work on a Clone so earlier stages stay reusable.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a zeroed buffer. Dimensions below 1 are raised to 1.
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// FromImage copies any image.Image into a new PixelBuffer.
//
// The conversion goes through imaging.Clone, which always yields a tightly
// packed *image.NRGBA anchored at (0,0), so the returned Pix can be used
// directly as the interleaved buffer.
func FromImage(img image.Image) *PixelBuffer {
	return fromNRGBA(imaging.Clone(img))
}

// fromNRGBA wraps an NRGBA produced by the imaging package without copying.
func fromNRGBA(img *image.NRGBA) *PixelBuffer {
	b := img.Bounds()
	return &PixelBuffer{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    img.Pix,
	}
}

// Clone returns an independent deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Pixels returns the pixel count.
func (b *PixelBuffer) Pixels() int {
	return b.Width * b.Height
}

// NRGBA exposes the buffer as an *image.NRGBA sharing the same backing array.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// At returns the RGBA bytes of pixel (x, y). It panics when out of range.
func (b *PixelBuffer) At(x, y int) (r, g, bl, a uint8) {
	p := (y*b.Width + x) * 4
	return b.Pix[p], b.Pix[p+1], b.Pix[p+2], b.Pix[p+3]
}

// Set writes the RGBA bytes of pixel (x, y). It panics when out of range.
func (b *PixelBuffer) Set(x, y int, r, g, bl, a uint8) {
	p := (y*b.Width + x) * 4
	b.Pix[p], b.Pix[p+1], b.Pix[p+2], b.Pix[p+3] = r, g, bl, a
}

// Equal reports whether two buffers have identical dimensions and bytes.
func (b *PixelBuffer) Equal(o *PixelBuffer) bool {
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}
