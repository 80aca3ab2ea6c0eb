package session

import (
	"math"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "-"},
		{math.Inf(1), "-"},
		{0, "0.0 KB"},
		{512, "0.5 KB"},
		{2048, "2.0 KB"},
		{1024*1024 - 1, "1024.0 KB"},
		{1024 * 1024, "1.00 MB"},
		{3.5 * 1024 * 1024, "3.50 MB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReduction(t *testing.T) {
	pct, ok := Reduction(250, 1000)
	if !ok || pct != 75 {
		t.Errorf("Reduction(250, 1000) = %v, %v", pct, ok)
	}

	pct, ok = Reduction(2000, 1000)
	if !ok || pct != -100 {
		t.Errorf("larger output should be a negative reduction, got %v", pct)
	}

	if _, ok := Reduction(10, 0); ok {
		t.Error("unknown source size should not report a reduction")
	}
}

func TestCapNote(t *testing.T) {
	if got := CapNote(false, 10, 10, 10, 10); got != "" {
		t.Errorf("uncapped note = %q", got)
	}
	want := "Preview capped to 1265x949. Export stays 4000x3000."
	if got := CapNote(true, 1265, 949, 4000, 3000); got != want {
		t.Errorf("CapNote() = %q, want %q", got, want)
	}
}
