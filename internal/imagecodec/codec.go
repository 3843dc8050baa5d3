// Package imagecodec turns captured or uploaded photos into the base64 PNG
// payload the inference API accepts.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rahul4469/visionai/internal/models"
)

// MIMEType is the media type of every encoded payload.
const MIMEType = "image/png"

// Encode serializes img as PNG and returns it base64 encoded.
// Identical pixels always give identical output.
func Encode(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// MaxPixels bounds width*height of an image EncodeReader will decode.
var MaxPixels = 40_000_000

// EncodeReader decodes a JPEG, PNG, WebP or BMP image from r and re-encodes it.
// It also returns the name of the source format. The header is checked
// against MaxPixels before any pixel data is allocated.
func EncodeReader(r io.Reader) (string, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrUndecodableImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", "", fmt.Errorf("%w: empty %dx%d image", models.ErrUndecodableImage, cfg.Width, cfg.Height)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(MaxPixels) {
		return "", "", fmt.Errorf("%w: %dx%d", models.ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrUndecodableImage, err)
	}
	encoded, err := Encode(img)
	if err != nil {
		return "", format, err
	}
	return encoded, format, nil
}

// DataURI wraps a base64 PNG payload for embedding in a chat message.
func DataURI(encoded string) string {
	return "data:" + MIMEType + ";base64," + encoded
}
