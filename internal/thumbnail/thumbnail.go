// Package thumbnail scales images to a fixed width.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	_ "image/gif"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxPixels caps the decoded size of an original. 40M RGBA pixels is
// about 160MB of memory.
const MaxPixels = 40_000_000

var (
	ErrInvalidWidth = errors.New("width must be positive")
	ErrTooLarge     = errors.New("image dimensions exceed limit")
)

// Decode reads the image header first and refuses images whose declared
// dimensions exceed MaxPixels before any pixel data is allocated.
func Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Encode writes img scaled to width. JPEG input stays JPEG; everything
// else is written as PNG. img is only read, so one decoded image can feed
// several concurrent Encode calls.
func Encode(dst io.Writer, img image.Image, format string, width int) error {
	if width <= 0 {
		return ErrInvalidWidth
	}

	out := Scale(img, width)

	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(dst, out, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(dst, out)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s thumbnail: %w", format, err)
	}
	return nil
}

// Resize decodes src and writes it scaled to width, keeping the aspect ratio.
func Resize(dst io.Writer, src io.Reader, width int) error {
	if width <= 0 {
		return ErrInvalidWidth
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	img, format, err := Decode(data)
	if err != nil {
		return err
	}
	return Encode(dst, img, format, width)
}

// Scale returns img resized to width with a proportional height of at least 1.
func Scale(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := 1
	if b.Dx() > 0 {
		height = (b.Dy()*width + b.Dx()/2) / b.Dx()
	}
	if height < 1 {
		height = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Over, nil)
	return out
}
