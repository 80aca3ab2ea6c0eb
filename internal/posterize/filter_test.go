package posterize

import (
	"testing"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
)

// solidBuffer creates a buffer filled with one opaque color
func solidBuffer(w, h int, r, g, b uint8) *imaging.PixelBuffer {
	buf := imaging.NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, r, g, b, 255)
		}
	}
	return buf
}

// gradientBuffer creates a buffer whose colors vary along both axes
func gradientBuffer(w, h int) *imaging.PixelBuffer {
	buf := imaging.NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, uint8(x*255/max(1, w-1)), uint8(y*255/max(1, h-1)), uint8((x+y)*7), 255)
		}
	}
	return buf
}

func TestBlockAverage_NoOp(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		strength float64
	}{
		{"zero strength", 8, 0},
		{"negative strength", 8, -1},
		{"size one", 1, 1},
		{"size zero", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := gradientBuffer(17, 9)
			orig := buf.Clone()
			BlockAverage(buf, tt.size, tt.strength)
			if !buf.Equal(orig) {
				t.Error("buffer changed")
			}
		})
	}
}

func TestBlockAverage_Blend(t *testing.T) {
	buf := imaging.NewPixelBuffer(2, 2)
	buf.Set(0, 0, 0, 0, 0, 255)
	buf.Set(1, 0, 10, 0, 0, 255)
	buf.Set(0, 1, 20, 0, 0, 255)
	buf.Set(1, 1, 30, 0, 0, 255)

	BlockAverage(buf, 2, 0.5)

	// mean 15: 0 -> 7.5 -> 8, 10 -> 12.5 -> 13, 20 -> 17.5 -> 18, 30 -> 22.5 -> 23
	want := [][2]int{{0, 8}, {1, 13}, {2, 18}, {3, 23}}
	for _, w := range want {
		if got := buf.Pix[w[0]*4]; int(got) != w[1] {
			t.Errorf("pixel %d: R = %d, want %d", w[0], got, w[1])
		}
	}
}

func TestBlockAverage_ClippedEdgeTile(t *testing.T) {
	buf := imaging.NewPixelBuffer(3, 1)
	buf.Set(0, 0, 0, 0, 0, 255)
	buf.Set(1, 0, 100, 0, 0, 255)
	buf.Set(2, 0, 50, 0, 0, 200)

	BlockAverage(buf, 2, 1)

	for x, want := range []uint8{50, 50, 50} {
		if r, _, _, _ := buf.At(x, 0); r != want {
			t.Errorf("x=%d: R = %d, want %d", x, r, want)
		}
	}
	if _, _, _, a := buf.At(2, 0); a != 200 {
		t.Errorf("alpha changed: %d", a)
	}
}

func TestGrayscale(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    uint8
	}{
		{"red", 255, 0, 0, 76},
		{"green", 0, 255, 0, 150},
		{"blue", 0, 0, 255, 29},
		{"white", 255, 255, 255, 255},
		{"black", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := solidBuffer(2, 2, tt.r, tt.g, tt.b)
			Grayscale(buf)
			r, g, b, a := buf.At(1, 1)
			if r != tt.want || g != tt.want || b != tt.want {
				t.Errorf("got (%d,%d,%d), want %d", r, g, b, tt.want)
			}
			if a != 255 {
				t.Errorf("alpha changed: %d", a)
			}
		})
	}
}
