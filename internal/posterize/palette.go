package posterize

import (
	"sort"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
)

// DefaultSampleBudget is the fixed number of pixels the palette builder
// samples regardless of image size.
const DefaultSampleBudget = 4096

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) channel(ch int) uint8 {
	switch ch {
	case 0:
		return c.R
	case 1:
		return c.G
	default:
		return c.B
	}
}

// Palette is an ordered list of colors. Order only matters as the
// tie-break for Nearest.
type Palette []RGB

// Nearest returns the palette color closest to (r, g, b) by squared
// Euclidean distance. The first color reaching the minimum wins ties.
// An empty palette yields black.
func (p Palette) Nearest(r, g, b float64) RGB {
	if len(p) == 0 {
		return RGB{}
	}
	best := 0
	bestD := -1.0
	for i, c := range p {
		dr := r - float64(c.R)
		dg := g - float64(c.G)
		db := b - float64(c.B)
		d := dr*dr + dg*dg + db*db
		if bestD < 0 || d < bestD {
			bestD = d
			best = i
		}
	}
	return p[best]
}

// box is a contiguous range [start, end) of the sample slice plus its
// per-channel bounds.
type box struct {
	start, end int
	lo, hi     [3]uint8
}

func makeBox(samples []RGB, start, end int) box {
	b := box{start: start, end: end, lo: [3]uint8{255, 255, 255}}
	for _, c := range samples[start:end] {
		for ch := 0; ch < 3; ch++ {
			v := c.channel(ch)
			if v < b.lo[ch] {
				b.lo[ch] = v
			}
			if v > b.hi[ch] {
				b.hi[ch] = v
			}
		}
	}
	return b
}

func (b box) span(ch int) int {
	return int(b.hi[ch]) - int(b.lo[ch])
}

// widest returns the channel with the largest range, checking R, then G,
// then B so exact ties resolve in that order.
func (b box) widest() int {
	r, g, bl := b.span(0), b.span(1), b.span(2)
	if r >= g && r >= bl {
		return 0
	}
	if g >= bl {
		return 1
	}
	return 2
}

func (b box) maxSpan() int {
	return max(b.span(0), b.span(1), b.span(2))
}

// sampleColors takes up to budget pixels at a fixed stride over the
// flattened pixel index.
func sampleColors(buf *imaging.PixelBuffer, budget int) []RGB {
	n := buf.Pixels()
	take := n
	if budget > 0 && budget < n {
		take = budget
	}
	stride := max(1, n/take)

	samples := make([]RGB, 0, take)
	for i := 0; i < n && len(samples) < take; i += stride {
		p := i * 4
		samples = append(samples, RGB{buf.Pix[p], buf.Pix[p+1], buf.Pix[p+2]})
	}
	return samples
}

// BuildPalette derives up to n colors from buf with median cut.
//
// At most budget pixels are sampled (budget <= 0 samples every pixel).
// Starting from one box holding every sample, the box with the widest
// channel range among boxes holding at least two samples is sorted on that
// channel and split at its midpoint, until n boxes exist or nothing can be
// split. Each box contributes the rounded mean of its samples.
//
// The result is deterministic: the same buffer, n and budget always give
// the same colors in the same order. Fewer than n colors come back when the
// samples run out.
func BuildPalette(buf *imaging.PixelBuffer, n, budget int) Palette {
	if n < 1 {
		n = 1
	}
	samples := sampleColors(buf, budget)
	boxes := []box{makeBox(samples, 0, len(samples))}

	for len(boxes) < n {
		best, bestSpan := -1, -1
		for i, b := range boxes {
			if b.end-b.start < 2 {
				continue
			}
			if m := b.maxSpan(); m > bestSpan {
				bestSpan = m
				best = i
			}
		}
		if best < 0 {
			break
		}

		b := boxes[best]
		ch := b.widest()
		sub := samples[b.start:b.end]
		sort.SliceStable(sub, func(i, j int) bool {
			return sub[i].channel(ch) < sub[j].channel(ch)
		})

		mid := b.start + (b.end-b.start)/2
		left := makeBox(samples, b.start, mid)
		right := makeBox(samples, mid, b.end)

		boxes = append(boxes, box{})
		copy(boxes[best+2:], boxes[best+1:])
		boxes[best] = left
		boxes[best+1] = right
	}

	palette := make(Palette, len(boxes))
	for i, b := range boxes {
		palette[i] = meanColor(samples[b.start:b.end])
	}
	return palette
}

// meanColor averages a set of samples. An empty set yields black; the
// splitting rule never produces one.
func meanColor(samples []RGB) RGB {
	if len(samples) == 0 {
		return RGB{}
	}
	var sr, sg, sb int
	for _, c := range samples {
		sr += int(c.R)
		sg += int(c.G)
		sb += int(c.B)
	}
	cnt := float64(len(samples))
	return RGB{
		R: clampByte(float64(sr) / cnt),
		G: clampByte(float64(sg) / cnt),
		B: clampByte(float64(sb) / cnt),
	}
}
