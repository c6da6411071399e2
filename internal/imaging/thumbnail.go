package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality matches the quality most camera pipelines write with.
const DefaultJPEGQuality = 95

// ThumbnailResult contains a downscaled copy of an image.
type ThumbnailResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeJPEG writes img to w as a JPEG. Alpha is dropped; quality outside
// 1..100 falls back to DefaultJPEGQuality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

// Thumbnail scales img down to fit inside maxSide×maxSide, preserving its
// aspect ratio, and returns it as base64 JPEG. Images already small enough
// are encoded unchanged.
func Thumbnail(img image.Image, maxSide int) (*ThumbnailResult, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size: %d", maxSide)
	}

	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img, DefaultJPEGQuality); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &ThumbnailResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/jpeg",
	}, nil
}
