// Package imaging provides the raster plumbing around the posterize pipeline.
//
// This package owns everything that touches pixels without deciding what
// they should become: decoding source files, the interleaved PixelBuffer the
// pipeline stages pass along, resampling between sizes, encoding finished
// buffers into export blobs and presenting previews on a display surface.
//
// # Pixel Layout
//
// A PixelBuffer stores non-premultiplied 8-bit RGBA in row-major order, the
// same layout as image.NRGBA, so buffers convert to and from the standard
// library and the disintegration/imaging package without copying:
//   - Pix[(y*Width+x)*4+0]: red
//   - Pix[(y*Width+x)*4+1]: green
//   - Pix[(y*Width+x)*4+2]: blue
//   - Pix[(y*Width+x)*4+3]: alpha
//
// # Collaborators
//
// The pipeline depends on three small interfaces defined here:
//   - Decoder: loads a Source from a path (ImageCache)
//   - Encoder: turns a buffer into a blob for a mime type (BlobEncoder)
//   - Surface: receives the preview at its draw size (ImageSurface)
//
// # Thread Safety
//
// ImageCache and ImageSurface are safe for concurrent use. PixelBuffer is
// not; a buffer belongs to one pipeline stage at a time.
//
// # Error Handling
//
// Load failures wrap ErrDecode so callers can test for them with errors.Is.
// Encoding errors are returned as is and never retried.
//
// # Performance Considerations
//
// For repeated renders of the same image, use ImageCache to avoid redundant
// disk reads. Large images may consume significant memory when cached.
// Consider using Evict() or Clear() to manage memory for long-running processes.
package imaging
