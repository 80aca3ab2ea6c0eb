package pipeline

import (
	"math"

	"github.com/ironsheep/posterize-mcp/internal/posterize"
)

// DefaultPreviewCap is the largest preview, in pixels, drawn from an export
// buffer. Larger exports are downsampled for display only.
const DefaultPreviewCap = 1_200_000

// DefaultMaxUpscale bounds how far a small preview is enlarged to fill the
// display region.
const DefaultMaxUpscale = 6.0

// ComputeExportDimensions returns round(srcW*scale) x round(srcH*scale),
// each at least 1. The scale is clamped first.
func ComputeExportDimensions(srcW, srcH int, s posterize.Settings) (int, int) {
	scale := s.Clamp().Scale
	return max(1, roundInt(float64(srcW)*scale)), max(1, roundInt(float64(srcH)*scale))
}

// Preview describes how an export buffer is shown.
type Preview struct {
	Width      int     `json:"preview_width"`  // Preview buffer width
	Height     int     `json:"preview_height"` // Preview buffer height
	DrawWidth  int     `json:"draw_width"`     // Size on the display surface
	DrawHeight int     `json:"draw_height"`
	Capped     bool    `json:"capped"` // Preview was reduced below export size
	Ratio      float64 `json:"ratio"`  // Cap ratio, 1 when not capped
	Fit        float64 `json:"fit"`    // Display scale applied to the preview
}

// ComputePreview sizes the preview for an export of exportW x exportH.
//
// When the export has more than capPixels pixels both sides shrink by
// sqrt(capPixels / exportPixels), each rounded independently. The preview is
// then fit into regionW x regionH by
//
//	fit = min(regionW/previewW, regionH/previewH, maxUpscale)
//
// capPixels <= 0 and maxUpscale <= 0 select the defaults.
func ComputePreview(exportW, exportH, capPixels, regionW, regionH int, maxUpscale float64) Preview {
	if capPixels <= 0 {
		capPixels = DefaultPreviewCap
	}
	if maxUpscale <= 0 {
		maxUpscale = DefaultMaxUpscale
	}
	regionW = max(1, regionW)
	regionH = max(1, regionH)

	p := Preview{Width: exportW, Height: exportH, Ratio: 1}

	exportPx := exportW * exportH
	if exportPx > capPixels {
		p.Ratio = math.Sqrt(float64(capPixels) / float64(exportPx))
		p.Width = max(1, roundInt(float64(exportW)*p.Ratio))
		p.Height = max(1, roundInt(float64(exportH)*p.Ratio))
		p.Capped = true
	}

	p.Fit = min(float64(regionW)/float64(p.Width), float64(regionH)/float64(p.Height), maxUpscale)
	p.DrawWidth = max(1, roundInt(float64(p.Width)*p.Fit))
	p.DrawHeight = max(1, roundInt(float64(p.Height)*p.Fit))
	return p
}

func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}
