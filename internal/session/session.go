package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
	"github.com/ironsheep/posterize-mcp/internal/pipeline"
	"github.com/ironsheep/posterize-mcp/internal/posterize"
	"github.com/ironsheep/posterize-mcp/internal/prefs"
	"github.com/ironsheep/posterize-mcp/internal/schedule"
)

var (
	// ErrNoExport is returned when nothing has been rendered yet.
	ErrNoExport = errors.New("nothing rendered yet")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Preferences is the persistent state a session reads and writes on export.
type Preferences interface {
	Flag(name string) (bool, error)
	SetFlag(name string, value bool) error
	RecordExport(rec prefs.ExportRecord) error
}

// Options configures a Session.
type Options struct {
	// RenderDelay is the quiet period before a RequestRender burst runs.
	RenderDelay time.Duration
	// EncodeDelay is the quiet period before a size estimate is encoded.
	EncodeDelay time.Duration
	// Mime selects the export encoding.
	Mime string
	// Pipeline tunes the orchestrator.
	Pipeline pipeline.Options
}

// DefaultOptions returns the interactive defaults.
func DefaultOptions() Options {
	return Options{
		RenderDelay: 80 * time.Millisecond,
		EncodeDelay: 220 * time.Millisecond,
		Mime:        imaging.MimeJPEG,
		Pipeline:    pipeline.DefaultOptions(),
	}
}

// Estimate is an encoded export and its size, tagged with the render it was
// encoded from.
type Estimate struct {
	CacheKey     string   `json:"cache_key"`
	Bytes        int      `json:"bytes"`
	Size         string   `json:"size"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Mime         string   `json:"mime"`
	Quality      float64  `json:"quality"`
	SourceBytes  int64    `json:"source_bytes"`
	ReductionPct *float64 `json:"reduction_pct,omitempty"`
	Error        string   `json:"error,omitempty"`

	blob []byte
	gen  uint64
}

// Blob returns the encoded bytes, or nil when encoding failed.
func (e *Estimate) Blob() []byte {
	return e.blob
}

func newEstimate(gen uint64, res *pipeline.Result, blob []byte, encErr error, mime string, sourceBytes int64) *Estimate {
	e := &Estimate{
		gen:         gen,
		CacheKey:    res.CacheKey,
		Width:       res.ExportWidth,
		Height:      res.ExportHeight,
		Mime:        mime,
		Quality:     res.Settings.Quality,
		SourceBytes: sourceBytes,
		Size:        "-",
	}
	if encErr != nil || blob == nil {
		if encErr != nil {
			e.Error = encErr.Error()
		}
		return e
	}
	e.blob = blob
	e.Bytes = len(blob)
	e.Size = FormatBytes(float64(len(blob)))
	if pct, ok := Reduction(int64(len(blob)), sourceBytes); ok {
		e.ReductionPct = &pct
	}
	return e
}

// ExportResult describes a written export file.
type ExportResult struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Bytes     int    `json:"bytes"`
	Size      string `json:"size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CacheKey  string `json:"cache_key"`
	Reused    bool   `json:"reused_estimate"`
	FirstSave bool   `json:"first_save"`
}

// Session ties a source image, the render pipeline, the size estimator and
// export together. All methods are safe for concurrent use.
type Session struct {
	opts    Options
	decoder imaging.Decoder
	encoder imaging.Encoder
	prefs   Preferences

	mu         sync.Mutex
	orch       *pipeline.Orchestrator
	source     *imaging.Source
	gen        uint64
	settings   posterize.Settings
	last       *pipeline.Result
	lastErr    error
	estimate   *Estimate
	estimateCh chan struct{}
	closed     bool

	renders  *schedule.Debouncer[bool]
	encodes  *schedule.Debouncer[struct{}]
	onRender func(*pipeline.Result, error)
}

// New creates a session. surface and p may be nil.
func New(opts Options, decoder imaging.Decoder, encoder imaging.Encoder, surface imaging.Surface, p Preferences) *Session {
	d := DefaultOptions()
	if opts.RenderDelay <= 0 {
		opts.RenderDelay = d.RenderDelay
	}
	if opts.EncodeDelay <= 0 {
		opts.EncodeDelay = d.EncodeDelay
	}
	if opts.Mime == "" {
		opts.Mime = d.Mime
	}

	s := &Session{
		opts:       opts,
		decoder:    decoder,
		encoder:    encoder,
		prefs:      p,
		orch:       pipeline.NewOrchestrator(opts.Pipeline, surface),
		settings:   posterize.DefaultSettings(),
		estimateCh: make(chan struct{}),
	}
	s.renders = schedule.NewDebouncer(opts.RenderDelay, s.runDebouncedRender, func(prev, next bool) bool {
		return prev || next
	})
	s.encodes = schedule.NewDebouncer(opts.EncodeDelay, func(ctx context.Context, _ struct{}) {
		s.runEstimate(ctx)
	}, nil)
	return s
}

// OnRender registers a callback for renders started by RequestRender.
func (s *Session) OnRender(fn func(*pipeline.Result, error)) {
	s.mu.Lock()
	s.onRender = fn
	s.mu.Unlock()
}

// Load decodes path and makes it the source. Cached stages, the last result
// and any estimate are dropped, and an estimate still encoding for the old
// source is cancelled. A failed load leaves the previous source in place.
func (s *Session) Load(path string) (*imaging.Source, error) {
	src, err := s.decoder.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.source = src
	s.gen++
	s.orch.SetSource(src.Image)
	s.last = nil
	s.lastErr = nil
	s.estimate = nil
	s.encodes.Cancel()
	s.notifyLocked()

	pipeline.Logger().Info("source loaded", "path", src.Path, "width", src.Width, "height", src.Height, "bytes", src.Bytes)
	return src, nil
}

// Source returns the current source, or nil.
func (s *Session) Source() *imaging.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// SuggestedFilename names an export of res from the current source.
func (s *Session) SuggestedFilename(res *pipeline.Result) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := ""
	if s.source != nil {
		name = s.source.Name
	}
	return posterize.BuildFilename(name, res.Settings, imaging.ExtensionForMime(s.opts.Mime))
}

// Settings returns the settings of the latest render request.
func (s *Session) Settings() posterize.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Render runs the pipeline now and schedules a size estimate.
func (s *Session) Render(settings posterize.Settings, forcePalette bool) (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderLocked(settings, forcePalette)
}

// RequestRender records settings and renders once requests have been quiet
// for RenderDelay. forcePalette requests in one burst are combined, so a
// forced request is never lost to a later unforced one.
func (s *Session) RequestRender(settings posterize.Settings, forcePalette bool) {
	s.mu.Lock()
	s.settings = settings.Clamp()
	s.mu.Unlock()
	s.renders.Trigger(forcePalette)
}

// FlushRender runs a pending RequestRender immediately.
func (s *Session) FlushRender() bool {
	return s.renders.Flush()
}

// LastResult returns the most recent render and its error.
func (s *Session) LastResult() (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

func (s *Session) runDebouncedRender(_ context.Context, force bool) {
	s.mu.Lock()
	res, err := s.renderLocked(s.settings, force)
	cb := s.onRender
	s.mu.Unlock()

	if err != nil {
		pipeline.Logger().Warn("debounced render failed", "err", err)
	}
	if cb != nil {
		cb(res, err)
	}
}

func (s *Session) renderLocked(settings posterize.Settings, force bool) (*pipeline.Result, error) {
	if s.closed {
		return nil, ErrClosed
	}
	s.settings = settings.Clamp()

	res, err := s.orch.Render(s.settings, force)
	if res == nil {
		if errors.Is(err, pipeline.ErrNoSource) {
			err = fmt.Errorf("%w: %w", ErrNoExport, err)
		}
		s.lastErr = err
		return nil, err
	}

	prevKey := ""
	if s.last != nil {
		prevKey = s.last.CacheKey
	}
	s.last = res
	s.lastErr = err
	if res.CacheKey != prevKey {
		s.notifyLocked()
	}
	s.encodes.Trigger(struct{}{})
	return res, err
}

// notifyLocked wakes WaitEstimate callers.
func (s *Session) notifyLocked() {
	close(s.estimateCh)
	s.estimateCh = make(chan struct{})
}

// freshEstimateLocked returns the estimate if it matches the last render.
func (s *Session) freshEstimateLocked() *Estimate {
	if s.estimate == nil || s.last == nil {
		return nil
	}
	if s.estimate.gen != s.gen || s.estimate.CacheKey != s.last.CacheKey {
		return nil
	}
	return s.estimate
}

// currentLocked reports whether res is still the last render of the source
// loaded as gen. Equal cache keys alone do not identify a render: two
// sources of the same size share them.
func (s *Session) currentLocked(gen uint64, res *pipeline.Result) bool {
	return gen == s.gen && s.last != nil && s.last.CacheKey == res.CacheKey
}

// runEstimate encodes the latest stage2 outside the lock. A result whose
// render or source has been superseded meanwhile is dropped.
func (s *Session) runEstimate(ctx context.Context) {
	s.mu.Lock()
	res := s.last
	gen := s.gen
	var srcBytes int64
	if s.source != nil {
		srcBytes = s.source.Bytes
	}
	fresh := s.freshEstimateLocked() != nil
	mime := s.opts.Mime
	s.mu.Unlock()

	if res == nil || fresh {
		return
	}

	start := time.Now()
	blob, err := s.encoder.Encode(ctx, res.Stage2, res.Settings.Quality, mime)
	if ctx.Err() != nil {
		pipeline.Logger().Debug("estimate superseded", "key", res.CacheKey)
		return
	}
	est := newEstimate(gen, res, blob, err, mime, srcBytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen, res) {
		pipeline.Logger().Debug("discarding stale estimate", "key", res.CacheKey)
		return
	}
	if err != nil {
		pipeline.Logger().Warn("estimate encode failed", "err", err)
	}
	s.estimate = est
	s.notifyLocked()
	pipeline.Logger().Debug("estimate", "key", res.CacheKey, "bytes", est.Bytes, "elapsed", time.Since(start))
}

// Estimate returns the size estimate for the last render if it is ready.
func (s *Session) Estimate() (*Estimate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.freshEstimateLocked()
	return e, e != nil
}

// WaitEstimate blocks until the estimate for the last render is ready.
func (s *Session) WaitEstimate(ctx context.Context) (*Estimate, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		if s.last == nil {
			s.mu.Unlock()
			return nil, ErrNoExport
		}
		if e := s.freshEstimateLocked(); e != nil {
			s.mu.Unlock()
			return e, nil
		}
		ch := s.estimateCh
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}

// PaletteReport describes the current palette against the last render. In
// bits mode the report is empty.
func (s *Session) PaletteReport() (*posterize.PaletteReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, ErrNoExport
	}
	return posterize.DescribePalette(s.orch.Palette(), s.last.Stage2), nil
}

// Export writes the last render into dir, named from the source name and
// settings. A pending RequestRender runs first. A fresh estimate blob is
// written as is; otherwise the buffer is encoded now.
func (s *Session) Export(ctx context.Context, dir string) (*ExportResult, error) {
	s.renders.Flush()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	res := s.last
	src := s.source
	gen := s.gen
	est := s.freshEstimateLocked()
	mime := s.opts.Mime
	s.mu.Unlock()

	if res == nil || src == nil {
		return nil, ErrNoExport
	}

	var blob []byte
	reused := false
	if est != nil && est.blob != nil && est.Width == res.ExportWidth && est.Height == res.ExportHeight {
		blob = est.blob
		reused = true
	} else {
		var err error
		blob, err = s.encoder.Encode(ctx, res.Stage2, res.Settings.Quality, mime)
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		if len(blob) == 0 {
			return nil, fmt.Errorf("failed to encode export: encoder returned no data")
		}
		s.mu.Lock()
		if s.currentLocked(gen, res) {
			s.estimate = newEstimate(gen, res, blob, nil, mime, src.Bytes)
			s.notifyLocked()
		}
		s.mu.Unlock()
	}

	name := posterize.BuildFilename(src.Name, res.Settings, imaging.ExtensionForMime(mime))
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	out := &ExportResult{
		Path:     path,
		Name:     name,
		Bytes:    len(blob),
		Size:     FormatBytes(float64(len(blob))),
		Width:    res.ExportWidth,
		Height:   res.ExportHeight,
		CacheKey: res.CacheKey,
		Reused:   reused,
	}

	if s.prefs != nil {
		used, err := s.prefs.Flag(prefs.SavePickerFlag)
		if err != nil {
			pipeline.Logger().Warn("failed to read save flag", "err", err)
		} else if !used {
			if err := s.prefs.SetFlag(prefs.SavePickerFlag, true); err != nil {
				pipeline.Logger().Warn("failed to write save flag", "err", err)
			}
			out.FirstSave = true
		}
		rec := prefs.ExportRecord{
			Name:     name,
			Path:     path,
			Bytes:    int64(len(blob)),
			Width:    res.ExportWidth,
			Height:   res.ExportHeight,
			CacheKey: res.CacheKey,
		}
		if err := s.prefs.RecordExport(rec); err != nil {
			pipeline.Logger().Warn("failed to record export", "err", err)
		}
	}

	pipeline.Logger().Info("exported", "path", path, "bytes", len(blob), "reused", reused)
	return out, nil
}

// Close stops pending renders and estimates. It is safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.notifyLocked()
	s.mu.Unlock()

	s.renders.Stop()
	s.encodes.Stop()
	return nil
}
