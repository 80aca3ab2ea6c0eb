package posterize

import (
	"math/rand/v2"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
)

// bayer8 is the 8x8 ordered dither matrix, thresholds 0..63.
var bayer8 = [8][8]int{
	{0, 48, 12, 60, 3, 51, 15, 63},
	{32, 16, 44, 28, 35, 19, 47, 31},
	{8, 56, 4, 52, 11, 59, 7, 55},
	{40, 24, 36, 20, 43, 27, 39, 23},
	{2, 50, 14, 62, 1, 49, 13, 61},
	{34, 18, 46, 30, 33, 17, 45, 29},
	{10, 58, 6, 54, 9, 57, 5, 53},
	{42, 26, 38, 22, 41, 25, 37, 21},
}

// Floyd-Steinberg weights in sixteenths: right, below-left, below, below-right.
const (
	fsRight      = 7.0 / 16
	fsBelowLeft  = 3.0 / 16
	fsBelow      = 5.0 / 16
	fsBelowRight = 1.0 / 16
)

// NewRand returns the generator used for random dithering. The same seed
// always yields the same noise.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Dither quantizes buf in place, perturbing each input by the chosen
// dither before it reaches q.
//
// DitherNone, or any strength <= 0, quantizes raw values. rng drives
// DitherRandom; nil uses NewRand(1). Alpha is untouched.
func Dither(buf *imaging.PixelBuffer, q Quantizer, t DitherType, strength float64, rng *rand.Rand) {
	if t == DitherNone || strength <= 0 {
		quantizePlain(buf, q)
		return
	}

	switch t {
	case DitherOrdered:
		ditherOrdered(buf, q, strength)
	case DitherRandom:
		if rng == nil {
			rng = NewRand(1)
		}
		ditherRandom(buf, q, strength, rng)
	default:
		ditherDiffusion(buf, q, strength)
	}
}

func quantizePlain(buf *imaging.PixelBuffer, q Quantizer) {
	data := buf.Pix
	for p := 0; p+3 < len(data); p += 4 {
		data[p], data[p+1], data[p+2] = q.Quantize(float64(data[p]), float64(data[p+1]), float64(data[p+2]))
	}
}

// applyOffset adds amt to all three channels, clamps, then quantizes.
func applyOffset(data []uint8, p int, q Quantizer, amt float64) {
	r := clamp255(float64(data[p]) + amt)
	g := clamp255(float64(data[p+1]) + amt)
	b := clamp255(float64(data[p+2]) + amt)
	data[p], data[p+1], data[p+2] = q.Quantize(r, g, b)
}

func ditherOrdered(buf *imaging.PixelBuffer, q Quantizer, strength float64) {
	w, h, data := buf.Width, buf.Height, buf.Pix
	for y := 0; y < h; y++ {
		row := &bayer8[y&7]
		for x := 0; x < w; x++ {
			t := float64(row[x&7])/63 - 0.5
			applyOffset(data, (y*w+x)*4, q, t*64*strength)
		}
	}
}

// ditherRandom draws one offset per pixel, uniform in [-32,32) * strength.
func ditherRandom(buf *imaging.PixelBuffer, q Quantizer, strength float64, rng *rand.Rand) {
	data := buf.Pix
	for p := 0; p+3 < len(data); p += 4 {
		applyOffset(data, p, q, (rng.Float64()-0.5)*64*strength)
	}
}

// ditherDiffusion is Floyd-Steinberg error diffusion in strict row-major
// order. Error planes are (w+1) x (h+1) float32 so the right and
// below-right writes never need bounds checks.
func ditherDiffusion(buf *imaging.PixelBuffer, q Quantizer, strength float64) {
	w, h, data := buf.Width, buf.Height, buf.Pix
	w1 := w + 1
	er := make([]float32, w1*(h+1))
	eg := make([]float32, w1*(h+1))
	eb := make([]float32, w1*(h+1))

	spread := func(plane []float32, i int, e, weight float64) {
		plane[i] = float32(float64(plane[i]) + e*weight)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w1 + x
			p := (y*w + x) * 4

			r := clamp255(float64(data[p]) + float64(er[idx]))
			g := clamp255(float64(data[p+1]) + float64(eg[idx]))
			b := clamp255(float64(data[p+2]) + float64(eb[idx]))

			outR, outG, outB := q.Quantize(r, g, b)
			data[p], data[p+1], data[p+2] = outR, outG, outB

			eR := (r - float64(outR)) * strength
			eG := (g - float64(outG)) * strength
			eB := (b - float64(outB)) * strength

			spread(er, idx+1, eR, fsRight)
			spread(eg, idx+1, eG, fsRight)
			spread(eb, idx+1, eB, fsRight)

			if y+1 < h {
				d := (y+1)*w1 + x
				if x > 0 {
					spread(er, d-1, eR, fsBelowLeft)
					spread(eg, d-1, eG, fsBelowLeft)
					spread(eb, d-1, eB, fsBelowLeft)
				}
				spread(er, d, eR, fsBelow)
				spread(eg, d, eG, fsBelow)
				spread(eb, d, eB, fsBelow)
				spread(er, d+1, eR, fsBelowRight)
				spread(eg, d+1, eG, fsBelowRight)
				spread(eb, d+1, eB, fsBelowRight)
			}
		}
	}
}

// DiffusionWeights returns the right, below-left, below and below-right
// error fractions used by DitherDiffusion. They sum to exactly 1.
func DiffusionWeights() [4]float64 {
	return [4]float64{fsRight, fsBelowLeft, fsBelow, fsBelowRight}
}
