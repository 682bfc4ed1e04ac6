package render

import (
	"image"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/layout"
	"github.com/xob0t/signstencil/pkg/surface"
	"github.com/xob0t/signstencil/pkg/template"
)

// DefaultMinContrast is the WCAG AA threshold for body text.
const DefaultMinContrast = 4.5

// TextColor is the outcome of contrast resolution for one text box.
type TextColor struct {
	Color   colors.RGB `json:"color"`
	Against colors.RGB `json:"against"` // colour the ratio was measured against
	Ratio   float64    `json:"ratio"`
	Fixed   bool       `json:"fixed,omitempty"`   // author colour, no check made
	Swapped bool       `json:"swapped,omitempty"` // foreground failed, other colour used
}

// ResolveTextColor picks the fill for a text box drawn in rect.
//
// A fixed box colour wins. Otherwise the palette foreground is checked
// against the palette background, or, for free boxes, against the darkest
// pixel of sample under rect. Below minContrast the palette background is
// used instead if it passes; if neither passes, the better of the two.
func ResolveTextColor(tb template.TextBox, rect layout.Rect, p Palette, sample image.Image, minContrast float64) TextColor {
	if tb.Color != "" {
		c, err := colors.ParseHex(tb.Color)
		if err == nil {
			return TextColor{Color: c, Fixed: true}
		}
		surface.Logger().Warn("ignoring malformed text colour", "slot", tb.Slot, "err", err)
	}
	if minContrast <= 0 {
		minContrast = DefaultMinContrast
	}

	against := p.Background
	if tb.IsFree() {
		against = colors.ExtractExtremes(sample, rect.Image()).Dark
	}

	fg, bg := p.Foreground, p.Background
	fgRatio := colors.ContrastRatio(fg, against)
	if fgRatio >= minContrast {
		return TextColor{Color: fg, Against: against, Ratio: fgRatio}
	}

	bgRatio := colors.ContrastRatio(bg, against)
	if bgRatio >= minContrast || bgRatio > fgRatio {
		return TextColor{Color: bg, Against: against, Ratio: bgRatio, Swapped: true}
	}
	return TextColor{Color: fg, Against: against, Ratio: fgRatio}
}
