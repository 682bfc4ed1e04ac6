// fonts.go - Font management with custom TTF support and embedded Go fonts.
// Weights map onto Go Regular, Go Medium and Go Bold unless a custom font is
// given, in which case the custom font serves every weight.
package surface

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type weightClass int

const (
	classRegular weightClass = iota
	classMedium
	classBold
)

func classOf(weight int) weightClass {
	switch {
	case weight >= 700:
		return classBold
	case weight >= 500:
		return classMedium
	}
	return classRegular
}

// FontManager resolves a CSS-style weight to parsed font data. It is
// immutable after construction and safe to share between renders.
type FontManager struct {
	data   [3][]byte
	parsed [3]*opentype.Font
	custom string
}

// NewFontManager loads the embedded Go fonts. If customPath names a
// readable TTF it replaces all three weights; an unreadable or invalid
// custom font is logged and ignored.
func NewFontManager(customPath string) (*FontManager, error) {
	fm := &FontManager{}
	embedded := [3][]byte{goregular.TTF, gomedium.TTF, gobold.TTF}

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err == nil {
			var parsed *opentype.Font
			if parsed, err = opentype.Parse(data); err == nil {
				for i := range fm.data {
					fm.data[i], fm.parsed[i] = data, parsed
				}
				fm.custom = customPath
				return fm, nil
			}
		}
		Logger().Warn("could not load custom font, using default", "path", customPath, "err", err)
	}

	for i, data := range embedded {
		parsed, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		fm.data[i], fm.parsed[i] = data, parsed
	}
	return fm, nil
}

// Custom returns the path of the custom font in use, or "".
func (fm *FontManager) Custom() string { return fm.custom }

// Data returns the raw TTF bytes serving weight.
func (fm *FontManager) Data(weight int) []byte { return fm.data[classOf(weight)] }

// GetFace returns a face for weight at size pixels. dpi <= 0 means 72, at
// which one point equals one pixel.
func (fm *FontManager) GetFace(weight int, size, dpi float64) (font.Face, error) {
	if dpi <= 0 {
		dpi = 72
	}

	face, err := opentype.NewFace(fm.parsed[classOf(weight)], &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
