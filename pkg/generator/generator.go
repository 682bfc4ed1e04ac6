// Package generator moves images in and out of the renderer: decoding
// source photos, scaling them to the working canvas, and encoding the
// finished sign as PNG, JPEG or BMP.
//
// All output follows one pipeline: resolve an image.Image first, then
// encode it in the format named by the file extension.
package generator

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions no encoder handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

// JPEGQuality is the quality used for .jpg/.jpeg output.
const JPEGQuality = 92

// Config holds parameters for output generation.
type Config struct {
	Width  int         // Pixel width of a placeholder (default: 1200)
	Height int         // Pixel height of a placeholder (default: 800)
	Color  string      // Hex "#rrggbb" or "random", placeholder only
	Image  image.Image // Rendered image; overrides Width/Height/Color
}

// Generate writes an output file. The format is inferred from the extension:
//   - ".png" → PNG
//   - ".jpg", ".jpeg" → JPEG (quality 92)
//   - ".bmp" → 24-bit BMP
//
// If cfg.Image is nil, a solid-color image is created from cfg.Color/Width/Height.
func Generate(output string, cfg Config) error {
	img, err := resolveImage(cfg)
	if err != nil {
		return err
	}

	ext := filepath.Ext(output)
	if !Supported(ext) {
		return fmt.Errorf("%w %q: use .png, .jpg or .bmp", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := Encode(f, ext, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GenerateToWriter writes an image to w in the format named by ext.
// This is useful for in-memory generation (HTTP responses, WASM).
func GenerateToWriter(w io.Writer, ext string, cfg Config) error {
	img, err := resolveImage(cfg)
	if err != nil {
		return err
	}
	return Encode(w, ext, img)
}

// Supported reports whether ext names an output format.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return true
	}
	return false
}

// resolveImage returns the image from config, creating a solid-color
// placeholder if none is provided.
func resolveImage(cfg Config) (image.Image, error) {
	if cfg.Image != nil {
		return cfg.Image, nil
	}

	w := cfg.Width
	if w <= 0 {
		w = 1200
	}
	h := cfg.Height
	if h <= 0 {
		h = 800
	}

	c, err := ParseColor(cfg.Color)
	if err != nil {
		return nil, err
	}
	return NewSolidImage(w, h, c), nil
}
