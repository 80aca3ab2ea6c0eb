package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/zstd"
)

// Supported export mime types.
const (
	MimeJPEG    = "image/jpeg"
	MimePNG     = "image/png"
	MimeRawZstd = "application/x-rgba+zstd"
)

// Encoder turns a finished buffer into an opaque blob.
//
// quality is in [0.05, 0.95]; encoders that have no quality knob may map it
// onto another setting or ignore it. Implementations should return promptly
// once ctx is cancelled.
type Encoder interface {
	Encode(ctx context.Context, buf *PixelBuffer, quality float64, mime string) ([]byte, error)
}

// BlobEncoder implements Encoder for MimeJPEG, MimePNG and MimeRawZstd.
type BlobEncoder struct{}

// Encode dispatches on mime.
//
// JPEG quality is round(quality*100). PNG ignores quality. The raw format is
// an 8 byte header (big-endian uint32 width and height) followed by the RGBA
// bytes, compressed with zstd at a level chosen from quality.
func (BlobEncoder) Encode(ctx context.Context, buf *PixelBuffer, quality float64, mime string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch mime {
	case MimeJPEG:
		return encodeImage(buf, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality)))
	case MimePNG:
		return encodeImage(buf, imaging.PNG)
	case MimeRawZstd:
		return encodeRawZstd(buf, quality)
	default:
		return nil, fmt.Errorf("unsupported mime type: %s", mime)
	}
}

// ExtensionForMime returns the file extension, including the dot, used when
// naming an export of the given mime type.
func ExtensionForMime(mime string) string {
	switch mime {
	case MimePNG:
		return ".png"
	case MimeRawZstd:
		return ".rgba.zst"
	default:
		return ".jpg"
	}
}

func jpegQuality(q float64) int {
	v := int(math.Floor(q*100 + 0.5))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func encodeImage(buf *PixelBuffer, format imaging.Format, opts ...imaging.EncodeOption) ([]byte, error) {
	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.NRGBA(), format, opts...); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return out.Bytes(), nil
}

func zstdLevel(q float64) zstd.EncoderLevel {
	switch {
	case q < 0.35:
		return zstd.SpeedFastest
	case q < 0.65:
		return zstd.SpeedDefault
	case q < 0.85:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func encodeRawZstd(buf *PixelBuffer, quality float64) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(quality)), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()

	raw := make([]byte, 8, 8+len(buf.Pix))
	binary.BigEndian.PutUint32(raw[0:4], uint32(buf.Width))
	binary.BigEndian.PutUint32(raw[4:8], uint32(buf.Height))
	raw = append(raw, buf.Pix...)

	return enc.EncodeAll(raw, nil), nil
}

// DecodeRawZstd reverses the MimeRawZstd encoding.
func DecodeRawZstd(blob []byte) (*PixelBuffer, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress raw buffer: %w", err)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("raw buffer too short: %d bytes", len(raw))
	}

	w := int(binary.BigEndian.Uint32(raw[0:4]))
	h := int(binary.BigEndian.Uint32(raw[4:8]))
	if w < 1 || h < 1 || len(raw)-8 != w*h*4 {
		return nil, fmt.Errorf("raw buffer size mismatch: %dx%d with %d bytes", w, h, len(raw)-8)
	}

	pix := make([]uint8, w*h*4)
	copy(pix, raw[8:])
	return &PixelBuffer{Width: w, Height: h, Pix: pix}, nil
}
