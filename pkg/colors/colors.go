// Package colors provides the color science used by the sign renderer:
// hex parsing, relative luminance, WCAG contrast ratios and pixel sampling
// over image regions.
package colors

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an opaque 8-bit sRGB color.
type RGB struct {
	R, G, B uint8
}

// Common colors.
var (
	White = RGB{255, 255, 255}
	Black = RGB{0, 0, 0}
)

// ParseHex parses "#rrggbb" (the leading '#' is optional).
func ParseHex(s string) (RGB, error) {
	s = "#" + strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 7 {
		return RGB{}, fmt.Errorf("invalid color %q: expected 6-char hex", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

// MustHex is ParseHex for compile-time constants. It panics on bad input.
func MustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromColor converts any color.Color, un-premultiplying alpha.
func FromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{n.R, n.G, n.B}
}

// Hex returns the lower-case "#rrggbb" form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c RGB) String() string { return c.Hex() }

// MarshalText encodes c as "#rrggbb".
func (c RGB) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

// UnmarshalText decodes "#rrggbb".
func (c *RGB) UnmarshalText(b []byte) (err error) {
	*c, err = ParseHex(string(b))
	return err
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{c.R, c.G, c.B, 255}.RGBA()
}

// WithAlpha returns c as a non-premultiplied color with the given opacity in [0, 1].
func (c RGB) WithAlpha(opacity float64) color.NRGBA {
	a := math.Round(clamp01(opacity) * 255)
	return color.NRGBA{c.R, c.G, c.B, uint8(a)}
}

func linearize(v uint8) float64 {
	f := float64(v) / 255
	if f <= 0.03928 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}

// Luminance returns the relative luminance of c in [0, 1].
func Luminance(c RGB) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between a and b, in [1, 21].
// The ratio is symmetric.
func ContrastRatio(a, b RGB) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// Outline returns the neutral outline color for text filled with c:
// translucent black over light fills, translucent white over dark ones.
func Outline(c RGB) color.NRGBA {
	if Luminance(c) > 0.5 {
		return Black.WithAlpha(0.7)
	}
	return White.WithAlpha(0.7)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
