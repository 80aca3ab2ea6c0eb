package session

import (
	"fmt"
	"math"
)

// FormatBytes renders a size as "12.3 KB" below one megabyte and "1.23 MB"
// above. Non-finite sizes render as "-".
func FormatBytes(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "-"
	}
	kb := n / 1024
	if kb < 1024 {
		return fmt.Sprintf("%.1f KB", kb)
	}
	return fmt.Sprintf("%.2f MB", kb/1024)
}

// Reduction returns the percentage saved by blobBytes relative to
// sourceBytes. ok is false when the source size is unknown.
func Reduction(blobBytes, sourceBytes int64) (pct float64, ok bool) {
	if sourceBytes <= 0 {
		return 0, false
	}
	return 100 * (1 - float64(blobBytes)/float64(sourceBytes)), true
}

// CapNote describes a capped preview, or returns "" when the preview shows
// the export at full size.
func CapNote(capped bool, previewW, previewH, exportW, exportH int) string {
	if !capped {
		return ""
	}
	return fmt.Sprintf("Preview capped to %dx%d. Export stays %dx%d.", previewW, previewH, exportW, exportH)
}
