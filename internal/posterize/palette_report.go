package posterize

import (
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-359 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// PaletteEntry describes one palette color and how much of the output
// image it covers.
type PaletteEntry struct {
	Index      int      `json:"index"`      // Position in the palette (Nearest tie-break order)
	Hex        string   `json:"hex"`        // Hex format "#rrggbb"
	RGB        RGBColor `json:"rgb"`        // RGB components
	HSL        HSLColor `json:"hsl"`        // HSL representation
	Percentage float64  `json:"percentage"` // Share of output pixels using this color (0-100)
}

// PaletteReport lists a palette's colors, most used first.
type PaletteReport struct {
	Colors []PaletteEntry `json:"colors"`
	Pixels int            `json:"pixels"` // Pixels counted for Percentage
}

// DescribePalette reports every palette color with its usage in out.
//
// Parameters:
//   - p: The palette that produced out.
//   - out: The quantized output. May be nil, in which case every
//     Percentage is zero and entries keep palette order.
//
// # Counting
//
// Each output pixel is attributed to the palette color Nearest to it, so
// colors that appear twice in p share no pixels with their later twin.
// Entries are sorted by Percentage descending; ties keep palette order.
func DescribePalette(p Palette, out *imaging.PixelBuffer) *PaletteReport {
	counts := make([]int, len(p))
	total := 0
	if out != nil && len(p) > 0 {
		index := make(map[RGB]int, len(p))
		for i := len(p) - 1; i >= 0; i-- {
			index[p[i]] = i
		}
		data := out.Pix
		for i := 0; i+3 < len(data); i += 4 {
			c := RGB{data[i], data[i+1], data[i+2]}
			idx, ok := index[c]
			if !ok {
				idx, ok = index[p.Nearest(float64(c.R), float64(c.G), float64(c.B))]
			}
			if ok {
				counts[idx]++
			}
			total++
		}
	}

	entries := make([]PaletteEntry, len(p))
	for i, c := range p {
		e := PaletteEntry{
			Index: i,
			Hex:   toColorful(c).Hex(),
			RGB:   RGBColor{R: c.R, G: c.G, B: c.B},
			HSL:   rgbToHSL(c),
		}
		if total > 0 {
			e.Percentage = float64(counts[i]) / float64(total) * 100
		}
		entries[i] = e
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percentage > entries[j].Percentage
	})

	return &PaletteReport{Colors: entries, Pixels: total}
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// rgbToHSL converts to integer HSL, rounded half up. Hue is in degrees,
// saturation and lightness in percent.
func rgbToHSL(c RGB) HSLColor {
	h, s, l := toColorful(c).Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return HSLColor{
		H: int(roundHalfUp(h)) % 360,
		S: int(roundHalfUp(s * 100)),
		L: int(roundHalfUp(l * 100)),
	}
}
