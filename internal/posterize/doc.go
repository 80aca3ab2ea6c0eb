// Package posterize holds the pure pixel kernels behind the poster effect.
//
// Every kernel works on an imaging.PixelBuffer in place and is deterministic
// for a given input: the same pixels and settings always give the same
// output. The kernels are
//
//   - BlockAverage: pull each pixel toward its tile mean
//   - Grayscale: BT.601 luma
//   - BuildPalette: median-cut palette from a fixed sample budget
//   - Dither: ordered, random or Floyd-Steinberg dither ahead of a Quantizer
//
// # Settings
//
// Settings is the value type every render consumes. Out-of-range values are
// clamped by Settings.Clamp, never rejected. Presets and the export filename
// suffix are derived from it as well.
//
// # Thread Safety
//
// Nothing in this package keeps state. Distinct buffers may be processed
// concurrently; a single buffer must not be shared between calls in flight.
package posterize
