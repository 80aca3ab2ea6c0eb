package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// Surface is the display collaborator a render hands its preview to.
type Surface interface {
	// Region reports the available drawing area in pixels.
	Region() (width, height int)

	// Draw presents buf scaled to drawW x drawH. nearest selects hard-edged
	// scaling instead of smooth interpolation.
	Draw(buf *PixelBuffer, drawW, drawH int, nearest bool) error
}

// ImageSurface is an in-memory Surface. Each Draw replaces the current frame
// with the preview composited over white at the requested draw size.
//
// ImageSurface is safe for concurrent use.
type ImageSurface struct {
	mu      sync.Mutex
	width   int
	height  int
	frame   *image.NRGBA
	nearest bool
}

// NewImageSurface creates a surface with the given drawing region.
func NewImageSurface(width, height int) *ImageSurface {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &ImageSurface{width: width, height: height}
}

// Region implements Surface.
func (s *ImageSurface) Region() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// SetRegion changes the drawing region used by later renders.
func (s *ImageSurface) SetRegion(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

// Draw implements Surface.
func (s *ImageSurface) Draw(buf *PixelBuffer, drawW, drawH int, nearest bool) error {
	if drawW < 1 || drawH < 1 {
		return fmt.Errorf("invalid draw size %dx%d", drawW, drawH)
	}

	filter := Smooth
	if nearest {
		filter = Nearest
	}

	scaled := imaging.Resize(buf.NRGBA(), drawW, drawH, filter.kernel())
	bg := imaging.New(drawW, drawH, color.White)
	frame := imaging.Overlay(bg, scaled, image.Pt(0, 0), 1.0)

	s.mu.Lock()
	s.frame = frame
	s.nearest = nearest
	s.mu.Unlock()
	return nil
}

// Frame returns the last drawn frame, or nil before the first Draw.
func (s *ImageSurface) Frame() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Nearest reports whether the last frame was drawn with nearest scaling.
func (s *ImageSurface) Nearest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nearest
}

// PNGBase64 encodes the last frame as a base64 PNG.
func (s *ImageSurface) PNGBase64() (string, error) {
	frame := s.Frame()
	if frame == nil {
		return "", fmt.Errorf("nothing drawn yet")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Save writes the last frame to path as PNG.
func (s *ImageSurface) Save(path string) error {
	frame := s.Frame()
	if frame == nil {
		return fmt.Errorf("nothing drawn yet")
	}
	if err := imgio.Save(path, frame, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}
