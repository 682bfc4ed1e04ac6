// encode.go — PNG, JPEG and BMP writers.
package generator

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

// Encode writes img to w in the format named by ext.
func Encode(w io.Writer, ext string, img image.Image) error {
	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(w, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case ".bmp":
		err = bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", strings.TrimPrefix(strings.ToLower(ext), "."), err)
	}
	return nil
}

// ContentType returns the MIME type for an output extension.
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".bmp":
		return "image/bmp"
	}
	return "image/png"
}
