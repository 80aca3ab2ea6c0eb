package pipeline

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
	"github.com/ironsheep/posterize-mcp/internal/posterize"
)

// createGradientImage creates a test image with a smooth color gradient
func createGradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / max(1, width-1)),
				G: uint8(y * 255 / max(1, height-1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// recordingSurface captures Draw calls
type recordingSurface struct {
	w, h    int
	draws   int
	lastBuf *imaging.PixelBuffer
	lastW   int
	lastH   int
	nearest bool
	err     error
}

func (s *recordingSurface) Region() (int, int) { return s.w, s.h }

func (s *recordingSurface) Draw(buf *imaging.PixelBuffer, drawW, drawH int, nearest bool) error {
	s.draws++
	s.lastBuf = buf
	s.lastW, s.lastH = drawW, drawH
	s.nearest = nearest
	return s.err
}

func paletteSettings() posterize.Settings {
	s := posterize.DefaultSettings()
	s.Mode = posterize.ModePalette
	s.PaletteN = 8
	s.DitherType = posterize.DitherDiffusion
	s.DitherStrength = 0.3
	return s
}

func TestRender_NoSource(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	_, err := o.Render(posterize.DefaultSettings(), false)
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestRender_FirstRenderBuildsEverything(t *testing.T) {
	surface := &recordingSurface{w: 400, h: 300}
	o := NewOrchestrator(DefaultOptions(), surface)
	o.SetSource(createGradientImage(64, 48))

	res, err := o.Render(paletteSettings(), false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := Rebuilt{Stage0: true, Stage1: true, Palette: true, Stage2: true}
	if res.Rebuilt != want {
		t.Errorf("Rebuilt = %+v, want %+v", res.Rebuilt, want)
	}
	if res.ExportWidth != 64 || res.ExportHeight != 48 {
		t.Errorf("export = %dx%d", res.ExportWidth, res.ExportHeight)
	}
	if res.Stage2.Width != 64 || res.Stage2.Height != 48 {
		t.Errorf("stage2 = %dx%d", res.Stage2.Width, res.Stage2.Height)
	}
	if len(o.Palette()) != 8 || res.PaletteSize != 8 {
		t.Errorf("palette size = %d (result %d), want 8", len(o.Palette()), res.PaletteSize)
	}
	if surface.draws != 1 || surface.lastBuf != res.Preview {
		t.Error("preview was not drawn")
	}
	if surface.lastW != 384 || surface.lastH != 288 {
		t.Errorf("draw size = %dx%d, want 384x288", surface.lastW, surface.lastH)
	}
}

func TestRender_DitherEditReusesStage1AndPalette(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(80, 60))

	s := paletteSettings()
	if _, err := o.Render(s, false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	before := o.State()

	s.DitherStrength = 0.9
	res, err := o.Render(s, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	after := o.State()

	if after.Stage1 != before.Stage1 {
		t.Error("stage1 was rebuilt for a dither-only edit")
	}
	if &after.Palette[0] != &before.Palette[0] {
		t.Error("palette was rebuilt for a dither-only edit")
	}
	if after.Stage2 == before.Stage2 {
		t.Error("stage2 should be rebuilt")
	}
	if after.Stage2.Equal(before.Stage2) {
		t.Error("stage2 pixels should differ")
	}
	if res.Rebuilt != (Rebuilt{Stage2: true}) {
		t.Errorf("Rebuilt = %+v", res.Rebuilt)
	}
}

func TestRender_IdenticalSettingsReuseStage2(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(40, 40))

	s := posterize.DefaultSettings()
	first, err := o.Render(s, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	second, err := o.Render(s, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if first.Stage2 != second.Stage2 {
		t.Error("stage2 should be reused")
	}
	if second.Rebuilt != (Rebuilt{}) {
		t.Errorf("Rebuilt = %+v, want nothing", second.Rebuilt)
	}
	if first.CacheKey != second.CacheKey {
		t.Error("cache key changed")
	}
}

func TestRender_ForcePalette(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(40, 40))

	s := paletteSettings()
	if _, err := o.Render(s, false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	before := o.State()

	res, err := o.Render(s, true)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	after := o.State()

	if !res.Rebuilt.Stage2 || res.Rebuilt.Stage1 {
		t.Errorf("Rebuilt = %+v", res.Rebuilt)
	}
	if after.Stage2 == before.Stage2 {
		t.Error("force should produce a new stage2 buffer")
	}
	if !after.Stage2.Equal(before.Stage2) {
		t.Error("forced rebuild with equal settings should give equal pixels")
	}
}

func TestRender_BlockEditRebuildsPalette(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(64, 64))

	s := paletteSettings()
	if _, err := o.Render(s, false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	s.BlockStrength = 1
	res, err := o.Render(s, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !res.Rebuilt.Stage1 || !res.Rebuilt.Palette || !res.Rebuilt.Stage2 {
		t.Errorf("Rebuilt = %+v", res.Rebuilt)
	}
	if res.Rebuilt.Stage0 {
		t.Error("stage0 should be reused when dimensions are unchanged")
	}
}

func TestRender_BitsModeDropsPalette(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(32, 32))

	s := paletteSettings()
	res, err := o.Render(s, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if res.PaletteSize != s.PaletteN {
		t.Errorf("PaletteSize = %d, want %d", res.PaletteSize, s.PaletteN)
	}

	s.Mode = posterize.ModeBits
	res, err = o.Render(s, false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if o.Palette() != nil {
		t.Error("bits mode should not keep a palette")
	}
	if res.PaletteSize != 0 {
		t.Errorf("bits mode PaletteSize = %d, want 0", res.PaletteSize)
	}
}

func TestRender_StagesDoNotAlias(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(32, 32))

	s := posterize.DefaultSettings()
	s.Bits = 1
	if _, err := o.Render(s, false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	st := o.State()
	if &st.Stage1.Pix[0] == &st.Stage2.Pix[0] {
		t.Fatal("stage1 and stage2 share pixels")
	}
	if st.Stage1.Equal(st.Stage2) {
		t.Error("1-bit quantization of a gradient should change pixels")
	}
}

func TestRender_PreviewCap(t *testing.T) {
	opts := DefaultOptions()
	opts.PreviewCap = 100
	surface := &recordingSurface{w: 50, h: 50}
	o := NewOrchestrator(opts, surface)
	o.SetSource(createGradientImage(40, 10))

	res, err := o.Render(posterize.DefaultSettings(), false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !res.Capped {
		t.Fatal("expected capped preview")
	}
	if res.Preview.Width != 20 || res.Preview.Height != 5 {
		t.Errorf("preview = %dx%d, want 20x5", res.Preview.Width, res.Preview.Height)
	}
	if res.Stage2.Width != 40 || res.Stage2.Height != 10 {
		t.Error("export buffer must stay full size")
	}
}

func TestRender_NearestFlag(t *testing.T) {
	surface := &recordingSurface{w: 100, h: 100}
	o := NewOrchestrator(DefaultOptions(), surface)
	o.SetSource(createGradientImage(10, 10))

	s := posterize.DefaultSettings()
	s.BlockSize = 4
	s.BlockStrength = 0.95
	if _, err := o.Render(s, false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !surface.nearest {
		t.Error("strong blocks should draw with nearest scaling")
	}
}

func TestRender_SurfaceError(t *testing.T) {
	surface := &recordingSurface{w: 10, h: 10, err: errors.New("gone")}
	o := NewOrchestrator(DefaultOptions(), surface)
	o.SetSource(createGradientImage(10, 10))

	res, err := o.Render(posterize.DefaultSettings(), false)
	if err == nil {
		t.Fatal("expected draw error")
	}
	if res == nil || res.Stage2 == nil {
		t.Error("result should still be returned")
	}
}

func TestSetSource_ResetsCache(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), nil)
	o.SetSource(createGradientImage(20, 20))
	if _, err := o.Render(posterize.DefaultSettings(), false); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	o.SetSource(createGradientImage(30, 10))
	if st := o.State(); st.Stage1 != nil || st.Stage2 != nil {
		t.Error("SetSource should clear cached stages")
	}
	res, err := o.Render(posterize.DefaultSettings(), false)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if res.ExportWidth != 30 || res.ExportHeight != 10 {
		t.Errorf("export = %dx%d, want 30x10", res.ExportWidth, res.ExportHeight)
	}
}
