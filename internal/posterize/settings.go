package posterize

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how colors are reduced.
type Mode int

const (
	// ModeBits quantizes each channel to 2^bits evenly spaced levels.
	ModeBits Mode = iota
	// ModePalette maps every pixel to the nearest median-cut palette color.
	ModePalette
)

// String returns "bits" or "palette".
func (m Mode) String() string {
	if m == ModePalette {
		return "palette"
	}
	return "bits"
}

// ParseMode maps a name onto a Mode. Unknown names fall back to ModeBits.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "palette") {
		return ModePalette
	}
	return ModeBits
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	*m = ParseMode(string(b))
	return nil
}

// DitherType selects the dithering algorithm applied before quantization.
type DitherType int

const (
	DitherNone DitherType = iota
	DitherOrdered
	DitherRandom
	DitherDiffusion
)

// String returns the canonical name used in cache keys and filenames.
func (d DitherType) String() string {
	switch d {
	case DitherOrdered:
		return "ordered"
	case DitherRandom:
		return "random"
	case DitherDiffusion:
		return "diffusion"
	default:
		return "none"
	}
}

// ParseDitherType maps a name onto a DitherType.
//
// Accepted names are none, ordered (ordered8), random and diffusion
// (fs, floyd-steinberg). Anything else is DitherNone.
func ParseDitherType(s string) DitherType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ordered", "ordered8", "bayer":
		return DitherOrdered
	case "random", "noise":
		return DitherRandom
	case "diffusion", "fs", "floyd-steinberg", "floydsteinberg":
		return DitherDiffusion
	default:
		return DitherNone
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DitherType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DitherType) UnmarshalText(b []byte) error {
	*d = ParseDitherType(string(b))
	return nil
}

// Documented ranges for every numeric Settings field.
const (
	MinQuality        = 0.05
	MaxQuality        = 0.95
	MinScale          = 0.10
	MaxScale          = 1.00
	MinBits           = 1
	MaxBits           = 8
	MinPaletteN       = 2
	MaxPaletteN       = 256
	MinDitherStrength = 0.0
	MaxDitherStrength = 1.0
	MinBlockSize      = 1
	MaxBlockSize      = 32
	MinBlockStrength  = 0.0
	MaxBlockStrength  = 1.0
)

// Settings is an immutable snapshot of every knob a render consumes.
type Settings struct {
	Quality        float64    `json:"quality"`
	Scale          float64    `json:"scale"`
	BW             bool       `json:"bw"`
	Mode           Mode       `json:"mode"`
	Bits           int        `json:"bits"`
	PaletteN       int        `json:"palette_n"`
	DitherType     DitherType `json:"dither_type"`
	DitherStrength float64    `json:"dither_strength"`
	BlockSize      int        `json:"block_size"`
	BlockStrength  float64    `json:"block_strength"`
}

// DefaultSettings returns a mild full-size bit-depth reduction.
func DefaultSettings() Settings {
	return Settings{
		Quality:        0.60,
		Scale:          1.00,
		Mode:           ModeBits,
		Bits:           5,
		PaletteN:       32,
		DitherType:     DitherNone,
		DitherStrength: 0.50,
		BlockSize:      8,
		BlockStrength:  0,
	}
}

// Clamp returns a copy with every field forced into its documented range.
// Out-of-range values are never rejected. NaN takes the lower bound and
// infinities take the matching bound.
func (s Settings) Clamp() Settings {
	s.Quality = clampFloat(s.Quality, MinQuality, MaxQuality)
	s.Scale = clampFloat(s.Scale, MinScale, MaxScale)
	s.Bits = clampInt(s.Bits, MinBits, MaxBits)
	s.PaletteN = clampInt(s.PaletteN, MinPaletteN, MaxPaletteN)
	s.DitherStrength = clampFloat(s.DitherStrength, MinDitherStrength, MaxDitherStrength)
	s.BlockSize = clampInt(s.BlockSize, MinBlockSize, MaxBlockSize)
	s.BlockStrength = clampFloat(s.BlockStrength, MinBlockStrength, MaxBlockStrength)
	if s.Mode != ModePalette {
		s.Mode = ModeBits
	}
	if s.DitherType < DitherNone || s.DitherType > DitherDiffusion {
		s.DitherType = DitherNone
	}
	return s
}

// NearestUpscale reports whether previews of these settings should be
// scaled with nearest-neighbor so strong block structure stays crisp.
func (s Settings) NearestUpscale() bool {
	return s.BlockStrength >= 0.9 && s.BlockSize >= 4
}

// String renders the settings compactly for logs.
func (s Settings) String() string {
	return fmt.Sprintf("q=%g sc=%g bw=%t mode=%s bits=%d pal=%d dither=%s/%g block=%d/%g",
		s.Quality, s.Scale, s.BW, s.Mode, s.Bits, s.PaletteN,
		s.DitherType, s.DitherStrength, s.BlockSize, s.BlockStrength)
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp rounds x.5 toward positive infinity.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// clampByte rounds and clamps a channel value into [0,255].
func clampByte(v float64) uint8 {
	v = roundHalfUp(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// clamp255 clamps without rounding.
func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
