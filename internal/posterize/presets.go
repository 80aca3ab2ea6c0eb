package posterize

import "sort"

// PresetScale is the export scale every preset applies.
const PresetScale = 0.15

var presets = map[string]Settings{
	"tiny":   {Quality: 0.22, Mode: ModeBits, Bits: 5, PaletteN: 32, DitherType: DitherDiffusion, DitherStrength: 0.70, BlockSize: 8, BlockStrength: 0.35},
	"web":    {Quality: 0.35, Mode: ModePalette, Bits: 5, PaletteN: 48, DitherType: DitherOrdered, DitherStrength: 0.60, BlockSize: 12, BlockStrength: 0.20},
	"fax":    {Quality: 0.55, BW: true, Mode: ModeBits, Bits: 2, PaletteN: 2, DitherType: DitherOrdered, DitherStrength: 0.90, BlockSize: 10, BlockStrength: 0.10},
	"poster": {Quality: 0.45, Mode: ModePalette, Bits: 5, PaletteN: 16, DitherType: DitherDiffusion, DitherStrength: 0.85, BlockSize: 8, BlockStrength: 0.25},
	"pixel":  {Quality: 0.70, Mode: ModePalette, Bits: 5, PaletteN: 32, DitherType: DitherNone, DitherStrength: 0, BlockSize: 10, BlockStrength: 1.00},
	"news":   {Quality: 0.38, BW: true, Mode: ModePalette, Bits: 4, PaletteN: 8, DitherType: DitherOrdered, DitherStrength: 0.85, BlockSize: 6, BlockStrength: 0.15},
	"glitch": {Quality: 0.42, Mode: ModePalette, Bits: 5, PaletteN: 12, DitherType: DitherRandom, DitherStrength: 0.55, BlockSize: 16, BlockStrength: 0.70},
}

// Preset returns the named preset with PresetScale applied.
func Preset(name string) (Settings, bool) {
	s, ok := presets[name]
	if !ok {
		return Settings{}, false
	}
	s.Scale = PresetScale
	return s, true
}

// PresetNames lists the available presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
