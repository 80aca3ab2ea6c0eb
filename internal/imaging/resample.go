package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Filter selects the resampling kernel used when a buffer changes size.
type Filter int

const (
	// Smooth resamples with a bilinear kernel.
	Smooth Filter = iota
	// Nearest keeps hard pixel edges.
	Nearest
)

// String returns "smooth" or "nearest".
func (f Filter) String() string {
	if f == Nearest {
		return "nearest"
	}
	return "smooth"
}

func (f Filter) kernel() imaging.ResampleFilter {
	if f == Nearest {
		return imaging.NearestNeighbor
	}
	return imaging.Linear
}

// ScaleSource renders the source image at the requested export size.
//
// Resizing uses the Lanczos kernel. When the size already matches, the image
// is only converted to a packed buffer.
func ScaleSource(img image.Image, width, height int) *PixelBuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return FromImage(img)
	}
	return fromNRGBA(imaging.Resize(img, width, height, imaging.Lanczos))
}

// Resample returns a copy of buf at width x height. The input is never
// modified; when the size is unchanged the result is a plain Clone.
func Resample(buf *PixelBuffer, width, height int, f Filter) *PixelBuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if buf.Width == width && buf.Height == height {
		return buf.Clone()
	}
	return fromNRGBA(imaging.Resize(buf.NRGBA(), width, height, f.kernel()))
}
