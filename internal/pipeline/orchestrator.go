package pipeline

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
	"github.com/ironsheep/posterize-mcp/internal/posterize"
)

// ErrNoSource is returned by Render before any source image is set.
var ErrNoSource = errors.New("no source image loaded")

// Options tunes an Orchestrator. Zero fields take the defaults.
type Options struct {
	// PreviewCap is the largest preview in pixels.
	PreviewCap int
	// PaletteSamples is the fixed median-cut sample budget.
	PaletteSamples int
	// MaxUpscale bounds the display fit factor.
	MaxUpscale float64
	// Seed drives random dithering. Every stage2 rebuild restarts the
	// generator from Seed, so equal settings render equal pixels.
	Seed uint64
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		PreviewCap:     DefaultPreviewCap,
		PaletteSamples: posterize.DefaultSampleBudget,
		MaxUpscale:     DefaultMaxUpscale,
		Seed:           1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PreviewCap <= 0 {
		o.PreviewCap = d.PreviewCap
	}
	if o.PaletteSamples <= 0 {
		o.PaletteSamples = d.PaletteSamples
	}
	if o.MaxUpscale <= 0 {
		o.MaxUpscale = d.MaxUpscale
	}
	return o
}

// Rebuilt records which cached stages a render recomputed.
type Rebuilt struct {
	Stage0  bool `json:"stage0"`
	Stage1  bool `json:"stage1"`
	Palette bool `json:"palette"`
	Stage2  bool `json:"stage2"`
}

// Result is the outcome of one Render.
//
// Stage2 and Preview are shared with the orchestrator's cache. They are never
// mutated after Render returns, but a later Render may replace them; hold on
// to them only as long as the CacheKey they came with is current.
type Result struct {
	Stage2       *imaging.PixelBuffer
	Preview      *imaging.PixelBuffer
	Dims         Preview
	ExportWidth  int
	ExportHeight int
	Capped       bool
	Nearest      bool
	Elapsed      time.Duration
	CacheKey     string
	Settings     posterize.Settings
	Rebuilt      Rebuilt
	// PaletteSize is the number of palette entries stage2 was quantized
	// against, zero in bits mode.
	PaletteSize int
}

// ElapsedMs returns the pipeline time rounded to whole milliseconds.
func (r *Result) ElapsedMs() int64 {
	return r.Elapsed.Round(time.Millisecond).Milliseconds()
}

// State is a snapshot of the cached buffers and their keys.
type State struct {
	Stage1     *imaging.PixelBuffer
	Stage2     *imaging.PixelBuffer
	Palette    posterize.Palette
	Stage1Key  string
	PaletteKey string
	Stage2Key  string
	CacheKey   string
}

// Orchestrator owns every cached pipeline buffer and turns Settings into
// rendered output.
//
// Stages run in a fixed order: export-size scale (stage0), block filter and
// optional grayscale (stage1), palette (palette mode only), then dither and
// quantize (stage2). Each stage works on its own copy, so any earlier stage
// can be reused when only later settings change.
//
// An Orchestrator is not safe for concurrent use. Callers serialize access.
type Orchestrator struct {
	opts    Options
	surface imaging.Surface

	source image.Image
	srcW   int
	srcH   int

	stage0    *imaging.PixelBuffer
	stage0Key string

	st State
}

// NewOrchestrator creates an orchestrator that draws previews onto surface.
// surface may be nil, in which case nothing is drawn and the preview fits a
// region equal to its own size.
func NewOrchestrator(opts Options, surface imaging.Surface) *Orchestrator {
	return &Orchestrator{opts: opts.withDefaults(), surface: surface}
}

// SetSource replaces the source image and drops every cached stage.
func (o *Orchestrator) SetSource(img image.Image) {
	o.source = img
	o.srcW, o.srcH = 0, 0
	if img != nil {
		b := img.Bounds()
		o.srcW, o.srcH = b.Dx(), b.Dy()
	}
	o.stage0 = nil
	o.stage0Key = ""
	o.st = State{}
}

// HasSource reports whether a source image is set.
func (o *Orchestrator) HasSource() bool {
	return o.source != nil
}

// SourceSize returns the source dimensions, or 0x0 without a source.
func (o *Orchestrator) SourceSize() (int, int) {
	return o.srcW, o.srcH
}

// State returns the current cache snapshot.
func (o *Orchestrator) State() State {
	return o.st
}

// Palette returns the cached palette. It is nil in bits mode.
func (o *Orchestrator) Palette() posterize.Palette {
	return o.st.Palette
}

// Render runs the pipeline for s, reusing every cached stage whose inputs
// did not change, then draws the preview.
//
// forcePalette rebuilds stage2 from the cached stage1 even when its key
// matches. The palette itself is still only rebuilt when its key changed.
//
// Settings are clamped before use. The only error before the pipeline runs
// is ErrNoSource; a failing Surface is reported after the caches are
// updated, alongside a complete Result.
func (o *Orchestrator) Render(s posterize.Settings, forcePalette bool) (*Result, error) {
	if o.source == nil {
		return nil, ErrNoSource
	}
	s = s.Clamp()
	start := time.Now()

	w, h := ComputeExportDimensions(o.srcW, o.srcH, s)
	var rebuilt Rebuilt

	if k := stage0Key(w, h); o.stage0 == nil || k != o.stage0Key {
		o.stage0 = imaging.ScaleSource(o.source, w, h)
		o.stage0Key = k
		rebuilt.Stage0 = true
	}

	if k := stage1Key(w, h, s); o.st.Stage1 == nil || k != o.st.Stage1Key {
		stage1 := o.stage0.Clone()
		posterize.BlockAverage(stage1, s.BlockSize, s.BlockStrength)
		if s.BW {
			posterize.Grayscale(stage1)
		}
		o.st.Stage1 = stage1
		o.st.Stage1Key = k
		o.st.Palette = nil
		o.st.PaletteKey = ""
		rebuilt.Stage1 = true
	}

	rebuilt.Palette = o.ensurePalette(s)

	k2 := stage2Key(o.st.Stage1Key, o.st.PaletteKey, s)
	if forcePalette || rebuilt.Stage1 || rebuilt.Palette || o.st.Stage2 == nil || k2 != o.st.Stage2Key {
		stage2 := o.st.Stage1.Clone()
		q := posterize.NewQuantizer(s, o.st.Palette)
		posterize.Dither(stage2, q, s.DitherType, s.DitherStrength, posterize.NewRand(o.opts.Seed))
		o.st.Stage2 = stage2
		o.st.Stage2Key = k2
		rebuilt.Stage2 = true
	}
	o.st.CacheKey = CacheKey(w, h, s)
	elapsed := time.Since(start)

	res := &Result{
		Stage2:       o.st.Stage2,
		ExportWidth:  w,
		ExportHeight: h,
		Nearest:      s.NearestUpscale(),
		Elapsed:      elapsed,
		CacheKey:     o.st.CacheKey,
		Settings:     s,
		Rebuilt:      rebuilt,
		PaletteSize:  len(o.st.Palette),
	}

	regionW, regionH := o.region(w, h)
	res.Dims = ComputePreview(w, h, o.opts.PreviewCap, regionW, regionH, o.opts.MaxUpscale)
	res.Capped = res.Dims.Capped
	res.Preview = o.st.Stage2
	if res.Capped {
		res.Preview = imaging.Resample(o.st.Stage2, res.Dims.Width, res.Dims.Height, imaging.Smooth)
	}

	Logger().Debug("render",
		"key", res.CacheKey,
		"export", fmt.Sprintf("%dx%d", w, h),
		"stage0", rebuilt.Stage0,
		"stage1", rebuilt.Stage1,
		"palette", rebuilt.Palette,
		"stage2", rebuilt.Stage2,
		"force", forcePalette,
		"elapsed", elapsed)

	if o.surface != nil {
		if err := o.surface.Draw(res.Preview, res.Dims.DrawWidth, res.Dims.DrawHeight, res.Nearest); err != nil {
			return res, fmt.Errorf("failed to draw preview: %w", err)
		}
	}
	return res, nil
}

// ensurePalette makes the cached palette match s, reporting whether it was
// rebuilt. Bits mode drops the palette.
func (o *Orchestrator) ensurePalette(s posterize.Settings) bool {
	if s.Mode != posterize.ModePalette {
		o.st.Palette = nil
		o.st.PaletteKey = ""
		return false
	}
	stage1 := o.st.Stage1
	k := paletteKey(stage1.Width, stage1.Height, s.PaletteN, o.opts.PaletteSamples, s.BW)
	if k == o.st.PaletteKey && o.st.Palette != nil {
		return false
	}
	o.st.Palette = posterize.BuildPalette(stage1, s.PaletteN, o.opts.PaletteSamples)
	o.st.PaletteKey = k
	return true
}

// region is the display area a preview is fit into.
func (o *Orchestrator) region(w, h int) (int, int) {
	if o.surface == nil {
		p := ComputePreview(w, h, o.opts.PreviewCap, 1, 1, 1)
		return p.Width, p.Height
	}
	return o.surface.Region()
}
