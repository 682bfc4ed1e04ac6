package render

import (
	"image"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/surface"
	"github.com/xob0t/signstencil/pkg/template"
)

// Palette is the resolved colour triple of one render.
type Palette struct {
	Background colors.RGB `json:"background"`
	Foreground colors.RGB `json:"foreground"`
	Accent     colors.RGB `json:"accent"`
}

// BrandAccent fills the contact pill in every mode.
var BrandAccent = colors.MustHex("#0891b2")

var (
	LightPalette = Palette{Background: colors.White, Foreground: colors.MustHex("#111827"), Accent: BrandAccent}
	DarkPalette  = Palette{Background: colors.MustHex("#111827"), Foreground: colors.White, Accent: BrandAccent}
)

// ResolvePalette picks the colours for one render. A light or dark
// override always wins. Under auto the template decides: a fixed triple
// is used verbatim, a light or dark tag selects that palette, and auto
// samples the canvas, taking its darkest pixel as background and its
// lightest as foreground.
func ResolvePalette(s surface.Surface, spec *template.Spec, override template.PaletteMode) Palette {
	switch override.Resolved() {
	case template.PaletteLight:
		return LightPalette
	case template.PaletteDark:
		return DarkPalette
	}

	if spec.Palette.IsFixed() {
		return fixedPalette(spec.ID, spec.Palette.Fixed)
	}
	switch spec.Palette.Mode.Resolved() {
	case template.PaletteLight:
		return LightPalette
	case template.PaletteDark:
		return DarkPalette
	}

	if s == nil {
		return LightPalette
	}
	return AutoPalette(s.Pixels(s.Bounds()))
}

// AutoPalette derives a palette from img: its darkest sampled pixel is the
// background and its lightest the foreground.
func AutoPalette(img image.Image) Palette {
	ex := colors.NeutralExtremes
	if img != nil {
		ex = colors.ExtractExtremes(img, img.Bounds())
	}
	return Palette{Background: ex.Dark, Foreground: ex.Light, Accent: BrandAccent}
}

// fixedPalette parses a template's fixed triple. Malformed entries fall
// back to the light palette's colour for that role.
func fixedPalette(id string, f *template.FixedPalette) Palette {
	p := LightPalette
	parse := func(role, hex string, dst *colors.RGB) {
		if hex == "" {
			return
		}
		c, err := colors.ParseHex(hex)
		if err != nil {
			surface.Logger().Warn("malformed palette colour", "template", id, "role", role, "err", err)
			return
		}
		*dst = c
	}
	parse("background", f.Background, &p.Background)
	parse("foreground", f.Foreground, &p.Foreground)
	parse("accent", f.Accent, &p.Accent)
	return p
}
