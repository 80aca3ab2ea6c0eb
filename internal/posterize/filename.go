package posterize

import (
	"fmt"
	"strings"
)

// BuildFilenameSuffix encodes the settings into an export name suffix, e.g.
//
//	q45_s15_rgb_pal16_ddiffusion85_blk8-25
//
// The suffix is for naming only and is never parsed back.
func BuildFilenameSuffix(s Settings) string {
	s = s.Clamp()

	color := "rgb"
	if s.BW {
		color = "bw"
	}

	reduce := fmt.Sprintf("b%d", s.Bits)
	if s.Mode == ModePalette {
		reduce = fmt.Sprintf("pal%d", s.PaletteN)
	}

	return strings.Join([]string{
		fmt.Sprintf("q%d", percent(s.Quality)),
		fmt.Sprintf("s%d", percent(s.Scale)),
		color,
		reduce,
		fmt.Sprintf("d%s%d", s.DitherType, percent(s.DitherStrength)),
		fmt.Sprintf("blk%d-%d", s.BlockSize, percent(s.BlockStrength)),
	}, "_")
}

// BuildFilename joins a source base name, the settings suffix and ext.
// An empty base becomes "image" and an empty ext becomes ".jpg".
func BuildFilename(base string, s Settings, ext string) string {
	if base == "" {
		base = "image"
	}
	if ext == "" {
		ext = ".jpg"
	}
	return base + "_" + BuildFilenameSuffix(s) + ext
}

func percent(v float64) int {
	return int(roundHalfUp(v * 100))
}
