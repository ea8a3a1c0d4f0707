// Package imagestore persists fragment pixel data under session-scoped names.
package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"puzzled/internal/types"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Codec encodes fragments for storage.
type Codec struct {
	Name        string
	Ext         string
	ContentType string
	quality     int
}

// NewCodec returns the codec for name ("png" or "jpeg"). quality is only
// used by jpeg.
func NewCodec(name string, quality int) (Codec, error) {
	switch name {
	case "", "png":
		return Codec{Name: "png", Ext: ".png", ContentType: "image/png"}, nil
	case "jpeg", "jpg":
		if quality < 1 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		return Codec{Name: "jpeg", Ext: ".jpg", ContentType: "image/jpeg", quality: quality}, nil
	default:
		return Codec{}, fmt.Errorf("unknown codec %q", name)
	}
}

// PNG is the lossless default codec.
func PNG() Codec {
	c, _ := NewCodec("png", 0)
	return c
}

// Encode writes img in the codec's format.
func (c Codec) Encode(w io.Writer, img image.Image) error {
	if c.Name == "jpeg" {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: c.quality})
	}
	return png.Encode(w, img)
}

// EncodeBytes encodes img into a fresh buffer.
func (c Codec) EncodeBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes any registered format: png, jpeg, gif (when linked),
// bmp, tiff and webp.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode image: %v", types.ErrPrecondition, err)
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (image.Image, error) {
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	return img, err
}
