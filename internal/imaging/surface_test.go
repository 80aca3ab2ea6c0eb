package imaging

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestImageSurface_Region(t *testing.T) {
	s := NewImageSurface(0, 50)
	if w, h := s.Region(); w != 1 || h != 50 {
		t.Errorf("Region: got %dx%d, want 1x50", w, h)
	}
	s.SetRegion(320, 240)
	if w, h := s.Region(); w != 320 || h != 240 {
		t.Errorf("Region after SetRegion: got %dx%d, want 320x240", w, h)
	}
}

func TestImageSurface_Draw(t *testing.T) {
	s := NewImageSurface(100, 100)
	if s.Frame() != nil {
		t.Fatal("Frame should be nil before Draw")
	}
	if _, err := s.PNGBase64(); err == nil {
		t.Error("PNGBase64 should fail before Draw")
	}

	buf := NewPixelBuffer(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			buf.Set(x, y, 255, 0, 0, 255)
		}
	}
	// transparent pixel composites over white
	buf.Set(1, 1, 0, 0, 0, 0)

	if err := s.Draw(buf, 8, 8, true); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	frame := s.Frame()
	if frame.Bounds().Dx() != 8 || frame.Bounds().Dy() != 8 {
		t.Fatalf("frame size: %v", frame.Bounds())
	}
	if !s.Nearest() {
		t.Error("Nearest should report the last draw mode")
	}
	if c := frame.NRGBAAt(0, 0); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("red pixel: got %v", c)
	}
	if c := frame.NRGBAAt(7, 7); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("transparent pixel should show white, got %v", c)
	}

	if err := s.Draw(buf, 0, 8, false); err == nil {
		t.Error("Draw should reject an empty size")
	}
}

func TestImageSurface_Export(t *testing.T) {
	s := NewImageSurface(10, 10)
	if err := s.Draw(NewPixelBuffer(3, 3), 6, 4, false); err != nil {
		t.Fatal(err)
	}

	b64, err := s.PNGBase64()
	if err != nil {
		t.Fatalf("PNGBase64 failed: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if cfg.Width != 6 || cfg.Height != 4 {
		t.Errorf("PNG size: got %dx%d, want 6x4", cfg.Width, cfg.Height)
	}

	path := filepath.Join(t.TempDir(), "preview.png")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.DecodeConfig(f); err != nil {
		t.Errorf("saved file is not a PNG: %v", err)
	}
}
