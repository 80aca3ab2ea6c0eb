package posterize

import (
	"testing"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
)

func TestQuantizeBits_Idempotent(t *testing.T) {
	for bits := 1; bits <= 8; bits++ {
		for v := 0; v <= 255; v++ {
			q := QuantizeBits(float64(v), bits)
			if again := QuantizeBits(float64(q), bits); again != q {
				t.Fatalf("bits=%d v=%d: %d requantized to %d", bits, v, q, again)
			}
		}
	}
}

func TestQuantizeBits_Levels(t *testing.T) {
	tests := []struct {
		v    float64
		bits int
		want uint8
	}{
		{0, 1, 0},
		{127, 1, 0},
		{128, 1, 255},
		{255, 1, 255},
		{100, 2, 85},
		{128, 2, 170},
		{37, 8, 37},
		{300, 4, 255},
		{-5, 4, 0},
	}

	for _, tt := range tests {
		if got := QuantizeBits(tt.v, tt.bits); got != tt.want {
			t.Errorf("QuantizeBits(%g, %d) = %d, want %d", tt.v, tt.bits, got, tt.want)
		}
	}
}

func TestQuantizeBits_LevelCount(t *testing.T) {
	for bits := 1; bits <= 8; bits++ {
		seen := make(map[uint8]bool)
		for v := 0; v <= 255; v++ {
			seen[QuantizeBits(float64(v), bits)] = true
		}
		if len(seen) != 1<<bits {
			t.Errorf("bits=%d: %d distinct levels, want %d", bits, len(seen), 1<<bits)
		}
	}
}

func TestDither_SolidRedOneBit(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 1
	buf := solidBuffer(100, 100, 255, 0, 0)

	Dither(buf, NewQuantizer(s, nil), DitherNone, 0, nil)

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			r, g, b, a := buf.At(x, y)
			if r != 255 || g != 0 || b != 0 || a != 255 {
				t.Fatalf("pixel (%d,%d) = (%d,%d,%d,%d), want (255,0,0,255)", x, y, r, g, b, a)
			}
		}
	}
}

func TestDither_ZeroStrengthMatchesNone(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 2
	q := NewQuantizer(s, nil)

	for _, dt := range []DitherType{DitherOrdered, DitherRandom, DitherDiffusion} {
		t.Run(dt.String(), func(t *testing.T) {
			plain := gradientBuffer(40, 30)
			Dither(plain, q, DitherNone, 1, nil)

			zero := gradientBuffer(40, 30)
			Dither(zero, q, dt, 0, NewRand(7))

			if !plain.Equal(zero) {
				t.Error("strength 0 should take the undithered path")
			}
		})
	}
}

func TestDither_OutputLevels(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 1
	q := NewQuantizer(s, nil)

	for _, dt := range []DitherType{DitherNone, DitherOrdered, DitherRandom, DitherDiffusion} {
		t.Run(dt.String(), func(t *testing.T) {
			buf := gradientBuffer(33, 17)
			Dither(buf, q, dt, 1, NewRand(3))
			for i, v := range buf.Pix {
				if i%4 == 3 {
					if v != 255 {
						t.Fatalf("alpha at %d changed to %d", i, v)
					}
					continue
				}
				if v != 0 && v != 255 {
					t.Fatalf("byte %d = %d, want 0 or 255", i, v)
				}
			}
		})
	}
}

func TestDither_Deterministic(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 2
	q := NewQuantizer(s, nil)

	for _, dt := range []DitherType{DitherOrdered, DitherRandom, DitherDiffusion} {
		t.Run(dt.String(), func(t *testing.T) {
			a := gradientBuffer(50, 20)
			b := gradientBuffer(50, 20)
			Dither(a, q, dt, 0.8, NewRand(11))
			Dither(b, q, dt, 0.8, NewRand(11))
			if !a.Equal(b) {
				t.Error("same input and seed produced different output")
			}
		})
	}
}

func TestDither_RandomSeedMatters(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 1
	q := NewQuantizer(s, nil)

	a := solidBuffer(32, 32, 128, 128, 128)
	b := solidBuffer(32, 32, 128, 128, 128)
	Dither(a, q, DitherRandom, 1, NewRand(1))
	Dither(b, q, DitherRandom, 1, NewRand(2))
	if a.Equal(b) {
		t.Error("different seeds produced identical noise")
	}
}

func TestDither_OrderedPattern(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 1
	q := NewQuantizer(s, nil)

	buf := solidBuffer(16, 16, 128, 128, 128)
	Dither(buf, q, DitherOrdered, 1, nil)

	// The matrix tiles every 8 pixels.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r0, _, _, _ := buf.At(x, y)
			r1, _, _, _ := buf.At(x+8, y+8)
			if r0 != r1 {
				t.Fatalf("(%d,%d) and (%d,%d) differ", x, y, x+8, y+8)
			}
		}
	}

	// Threshold 0 pushes 128 down by 32, threshold 63 pushes it up by 32.
	if r, _, _, _ := buf.At(0, 0); r != 0 {
		t.Errorf("(0,0) = %d, want 0", r)
	}
	if r, _, _, _ := buf.At(7, 0); r != 255 {
		t.Errorf("(7,0) = %d, want 255", r)
	}
}

func TestDither_DiffusionPreservesMean(t *testing.T) {
	s := DefaultSettings()
	s.Bits = 1
	q := NewQuantizer(s, nil)

	buf := solidBuffer(32, 32, 100, 100, 100)
	Dither(buf, q, DitherDiffusion, 1, nil)

	sum := 0
	for i := 0; i < len(buf.Pix); i += 4 {
		sum += int(buf.Pix[i])
	}
	mean := float64(sum) / float64(buf.Pixels())
	if mean < 84 || mean > 116 {
		t.Errorf("mean after diffusion = %.1f, want near 100", mean)
	}
}

func TestDiffusionWeights(t *testing.T) {
	w := DiffusionWeights()
	if sum := w[0] + w[1] + w[2] + w[3]; sum != 1.0 {
		t.Errorf("weights sum to %v, want exactly 1", sum)
	}
	if w[0] != 7.0/16 || w[1] != 3.0/16 || w[2] != 5.0/16 || w[3] != 1.0/16 {
		t.Errorf("unexpected weights %v", w)
	}
}

func TestDither_PaletteMode(t *testing.T) {
	s := DefaultSettings()
	s.Mode = ModePalette
	src := gradientBuffer(40, 40)
	p := BuildPalette(src, 6, DefaultSampleBudget)
	q := NewQuantizer(s, p)

	allowed := make(map[RGB]bool)
	for _, c := range p {
		allowed[c] = true
	}

	for _, dt := range []DitherType{DitherNone, DitherOrdered, DitherDiffusion} {
		t.Run(dt.String(), func(t *testing.T) {
			buf := src.Clone()
			Dither(buf, q, dt, 0.7, nil)
			for i := 0; i < len(buf.Pix); i += 4 {
				c := RGB{buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]}
				if !allowed[c] {
					t.Fatalf("pixel %d color %v not in palette", i/4, c)
				}
			}
		})
	}
}

func TestQuantizer_BWBroadcastsRed(t *testing.T) {
	q := Quantizer{Mode: ModeBits, Bits: 1, BW: true}
	r, g, b := q.Quantize(200, 0, 0)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("got (%d,%d,%d), want (255,255,255)", r, g, b)
	}
}

func TestNewQuantizer_BitsIgnoresPalette(t *testing.T) {
	s := DefaultSettings()
	q := NewQuantizer(s, Palette{{1, 2, 3}})
	if q.Palette != nil {
		t.Error("bits mode quantizer should not carry a palette")
	}
}

func BenchmarkDitherDiffusion(b *testing.B) {
	s := DefaultSettings()
	q := NewQuantizer(s, nil)
	src := imaging.NewPixelBuffer(640, 480)
	for i := 0; i < b.N; i++ {
		buf := src.Clone()
		Dither(buf, q, DitherDiffusion, 1, nil)
	}
}
