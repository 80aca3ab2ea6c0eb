package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrDecode marks a source image that could not be opened or decoded.
// A failed load is terminal for that attempt; the pipeline never runs on it.
var ErrDecode = errors.New("source image could not be decoded")

// Decoder loads source images for the pipeline.
type Decoder interface {
	Load(path string) (*Source, error)
}

// Source is a decoded source image plus the metadata the pipeline reports.
type Source struct {
	// Image is the decoded pixel data.
	Image image.Image

	// Width and Height are the decoded dimensions in pixels.
	Width  int
	Height int

	// Bytes is the size of the original file on disk.
	Bytes int64

	// Name is the original filename without directory or extension,
	// used only to name exports. Defaults to "image".
	Name string

	// Format is the decoder name reported by image.Decode ("png", "jpeg", ...).
	Format string

	// Path is the path the image was loaded from.
	Path string
}

// SourceInfo is the JSON-friendly summary of a Source.
type SourceInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	Name          string `json:"name"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	HasAlpha      bool   `json:"has_alpha"`
}

// Info summarizes the source for reporting.
//
// HasAlpha is derived from the decoded Go image type: RGBA and NRGBA
// variants carry alpha, everything else (YCbCr, Gray, Paletted) is reported
// as opaque.
func (s *Source) Info() SourceInfo {
	hasAlpha := false
	switch s.Image.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
	}
	return SourceInfo{
		Width:         s.Width,
		Height:        s.Height,
		Format:        s.Format,
		Name:          s.Name,
		FileSizeBytes: s.Bytes,
		HasAlpha:      hasAlpha,
	}
}

// ImageCache provides thread-safe caching of decoded source images.
//
// Sources are keyed by the exact path string passed to Load. Once decoded,
// later Load calls for the same path return the cached Source without disk
// I/O. Cached sources stay in memory until Evict or Clear is called.
//
// ImageCache implements Decoder.
type ImageCache struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewImageCache creates an empty cache ready for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{
		sources: make(map[string]*Source),
	}
}

// Load returns the cached Source for path or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP.
//
// # Errors
//
// Any failure to stat, open or decode the file is returned wrapped together
// with ErrDecode, so callers can test for it with errors.Is.
func (c *ImageCache) Load(path string) (*Source, error) {
	c.mu.RLock()
	if src, ok := c.sources[path]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	src, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sources[path] = src
	c.mu.Unlock()

	return src, nil
}

// Clear removes all sources from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.sources = make(map[string]*Source)
	c.mu.Unlock()
}

// Evict removes a single path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sources, path)
	c.mu.Unlock()
}

// Len reports the number of cached sources.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

func decodeFile(path string) (*Source, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w: %w", ErrDecode, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w: %w", ErrDecode, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w: %w", ErrDecode, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("failed to decode image: %w: empty bounds %v", ErrDecode, bounds)
	}

	return &Source{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Bytes:  stat.Size(),
		Name:   BaseName(path),
		Format: format,
		Path:   path,
	}, nil
}

// BaseName strips the directory and the last extension from a filename.
// An empty result becomes "image".
func BaseName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "image"
	}
	return name
}
