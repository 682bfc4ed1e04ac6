// Package surface abstracts the 2D raster target a sign is drawn on.
// The renderer only talks to Surface, so any backend that can fill a
// rounded rectangle, set and measure text, and hand back pixels will do.
package surface

import (
	"image"
	"image/color"

	"github.com/xob0t/signstencil/pkg/layout"
)

// Font selects a face: CSS-style weight and a size in canvas pixels.
type Font struct {
	Weight int
	Size   float64
}

// TextPaint describes how a string is painted.
type TextPaint struct {
	Fill   color.Color
	Stroke color.Color // nil: no outline
	Shadow bool        // soft drop shadow, 50% black offset (+3,+3)
}

// Shadow constants shared by backends.
const (
	ShadowOffset = 3
	ShadowBlur   = 8
	ShadowAlpha  = 0.5
)

// Surface is a drawing target.
type Surface interface {
	Bounds() image.Rectangle
	// DrawImage paints img over the whole surface, scaling if the sizes
	// differ.
	DrawImage(img image.Image)
	FillRoundedRect(r layout.Rect, radius float64, c color.Color, opacity float64) error
	SetFont(f Font) error
	// MeasureText returns the advance width of s in the current font.
	MeasureText(s string) float64
	// DrawText paints s with its left edge at x and its baseline at y.
	DrawText(s string, x, y float64, p TextPaint) error
	// Pixels returns a read-only view of region, clipped to the surface.
	Pixels(region image.Rectangle) image.Image
	Image() *image.RGBA
	Close() error
}

// Measurer adapts a surface to layout.Measurer for one font weight. Each
// call switches the surface font; font errors measure as zero width.
func Measurer(s Surface, weight int) layout.Measurer {
	return layout.MeasureFunc(func(text string, px float64) float64 {
		if err := s.SetFont(Font{Weight: weight, Size: px}); err != nil {
			return 0
		}
		return s.MeasureText(text)
	})
}

// Backend creates a blank surface of the given size.
type Backend interface {
	Name() string
	NewSurface(w, h int) (Surface, error)
}

// SoftwareBackend builds Software surfaces.
type SoftwareBackend struct {
	Fonts *FontManager
}

func (SoftwareBackend) Name() string { return "software" }

func (b SoftwareBackend) NewSurface(w, h int) (Surface, error) {
	return NewSoftware(w, h, b.Fonts), nil
}
