// color.go — Color parsing for placeholders and solid image creation.
package generator

import (
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/xob0t/signstencil/pkg/colors"
)

// ParseColor parses a color string. Accepts "#rrggbb", "random", or "".
// Empty string is treated as "random".
func ParseColor(s string) (color.RGBA, error) {
	if s == "" || s == "random" {
		buf := make([]byte, 3)
		if _, err := rand.Read(buf); err != nil {
			return color.RGBA{}, fmt.Errorf("random color: %w", err)
		}
		return color.RGBA{buf[0], buf[1], buf[2], 255}, nil
	}

	c, err := colors.ParseHex(s)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{c.R, c.G, c.B, 255}, nil
}

// NewSolidImage creates a uniform solid-color image using draw.Draw (O(1) fill).
func NewSolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// NewSplitImage creates an image whose left half is a and right half is b.
// Handy as a synthetic background with a known bright and dark region.
func NewSplitImage(w, h int, a, b color.RGBA) *image.RGBA {
	img := NewSolidImage(w, h, a)
	draw.Draw(img, image.Rect(w/2, 0, w, h), &image.Uniform{b}, image.Point{}, draw.Src)
	return img
}
