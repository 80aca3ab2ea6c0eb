package posterize

// QuantizeBits snaps v onto one of 2^bits evenly spaced levels in [0,255].
//
//	step = 255 / (2^bits - 1)
//	out  = round(round(v / step) * step)
//
// bits is clamped to [1,8]. The result is idempotent: quantizing an output
// again returns it unchanged.
func QuantizeBits(v float64, bits int) uint8 {
	bits = clampInt(bits, MinBits, MaxBits)
	levels := 1 << bits
	step := 255 / float64(levels-1)
	return clampByte(roundHalfUp(v/step) * step)
}

// Quantizer maps an (optionally dithered) color onto the output color set.
type Quantizer struct {
	Mode    Mode
	Bits    int
	BW      bool
	Palette Palette
}

// NewQuantizer builds the quantizer for s. palette is only consulted in
// ModePalette.
func NewQuantizer(s Settings, palette Palette) Quantizer {
	q := Quantizer{Mode: s.Mode, Bits: s.Bits, BW: s.BW}
	if s.Mode == ModePalette {
		q.Palette = palette
	}
	return q
}

// Quantize returns the output color for a possibly fractional input.
//
// In bits mode with BW set only r is quantized and broadcast, since the
// grayscale stage already made the channels equal.
func (q Quantizer) Quantize(r, g, b float64) (uint8, uint8, uint8) {
	if q.Mode == ModePalette {
		c := q.Palette.Nearest(r, g, b)
		return c.R, c.G, c.B
	}
	if q.BW {
		v := QuantizeBits(r, q.Bits)
		return v, v, v
	}
	return QuantizeBits(r, q.Bits), QuantizeBits(g, q.Bits), QuantizeBits(b, q.Bits)
}
