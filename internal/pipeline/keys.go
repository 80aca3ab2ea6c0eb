package pipeline

import (
	"fmt"
	"strconv"

	"github.com/ironsheep/posterize-mcp/internal/posterize"
)

// Cache keys are plain strings so they log readably. Each tier folds in only
// the settings that change its output.

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// stage0Key identifies the source scaled to export size.
func stage0Key(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}

// stage1Key covers the block filter and grayscale.
func stage1Key(w, h int, s posterize.Settings) string {
	return fmt.Sprintf("%dx%d|blk%d-%s|bw%d", w, h, s.BlockSize, fmtFloat(s.BlockStrength), bit(s.BW))
}

// paletteKey excludes every dither field so dither edits reuse the palette.
// A stage1 rebuild clears the cached palette key, so block edits still
// rebuild the palette.
func paletteKey(w, h, n, samples int, bw bool) string {
	return fmt.Sprintf("%dx%d|n%d|fixed%d|bw%d", w, h, n, samples, bit(bw))
}

// stage2Key covers everything that feeds quantization.
func stage2Key(stage1, palette string, s posterize.Settings) string {
	return fmt.Sprintf("%s|%s|m%s|b%d|d%s-%s|bw%d",
		stage1, palette, s.Mode, s.Bits, s.DitherType, fmtFloat(s.DitherStrength), bit(s.BW))
}

// CacheKey identifies one render result: export dimensions plus every
// setting. Estimates and exports are tagged with it so stale results can be
// recognized.
func CacheKey(w, h int, s posterize.Settings) string {
	return fmt.Sprintf("%dx%d|q%s|sc%s|bw%d|m%s|b%d|pn%d|dt%s|ds%s|ks%d|kst%s",
		w, h, fmtFloat(s.Quality), fmtFloat(s.Scale), bit(s.BW), s.Mode, s.Bits, s.PaletteN,
		s.DitherType, fmtFloat(s.DitherStrength), s.BlockSize, fmtFloat(s.BlockStrength))
}
