package posterize

import "github.com/ironsheep/posterize-mcp/internal/imaging"

// BlockAverage pulls every pixel toward the mean color of its tile.
//
// The buffer is split into non-overlapping size x size tiles; tiles on the
// right and bottom edges are clipped to the buffer. For each tile the mean of
// R, G and B is taken over the tile's pixels and every channel becomes
//
//	round(old + (mean - old) * strength)
//
// Alpha is untouched. strength <= 0 or size <= 1 leaves buf unchanged.
// buf is modified in place.
func BlockAverage(buf *imaging.PixelBuffer, size int, strength float64) {
	if strength <= 0 || size <= 1 {
		return
	}
	if strength > 1 {
		strength = 1
	}

	w, h, data := buf.Width, buf.Height, buf.Pix
	for by := 0; by < h; by += size {
		yMax := min(h, by+size)
		for bx := 0; bx < w; bx += size {
			xMax := min(w, bx+size)

			var sr, sg, sb, cnt int
			for y := by; y < yMax; y++ {
				for x := bx; x < xMax; x++ {
					p := (y*w + x) * 4
					sr += int(data[p])
					sg += int(data[p+1])
					sb += int(data[p+2])
					cnt++
				}
			}

			ar := float64(sr) / float64(cnt)
			ag := float64(sg) / float64(cnt)
			ab := float64(sb) / float64(cnt)

			for y := by; y < yMax; y++ {
				for x := bx; x < xMax; x++ {
					p := (y*w + x) * 4
					data[p] = blend(data[p], ar, strength)
					data[p+1] = blend(data[p+1], ag, strength)
					data[p+2] = blend(data[p+2], ab, strength)
				}
			}
		}
	}
}

func blend(v uint8, mean, strength float64) uint8 {
	old := float64(v)
	return clampByte(old + (mean-old)*strength)
}

// Grayscale replaces R, G and B with the BT.601 luma
// round(0.299R + 0.587G + 0.114B). Alpha is untouched. buf is modified in
// place.
func Grayscale(buf *imaging.PixelBuffer) {
	data := buf.Pix
	for p := 0; p+3 < len(data); p += 4 {
		y := clampByte(0.299*float64(data[p]) + 0.587*float64(data[p+1]) + 0.114*float64(data[p+2]))
		data[p], data[p+1], data[p+2] = y, y, y
	}
}
