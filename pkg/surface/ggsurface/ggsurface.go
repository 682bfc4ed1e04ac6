// Package ggsurface implements surface.Surface on top of github.com/gogpu/gg.
// gg has no text blur, so the drop shadow is a hard offset copy of the
// glyphs at the shared shadow alpha.
package ggsurface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/xob0t/signstencil/pkg/layout"
	"github.com/xob0t/signstencil/pkg/surface"
)

// Surface draws through a gg.Context. It is not safe for concurrent use.
type Surface struct {
	dc      *gg.Context
	fonts   *surface.FontManager
	sources map[int]*text.FontSource // keyed by weight class representative
	hasFont bool
}

// New returns a transparent w×h surface.
func New(w, h int, fonts *surface.FontManager) *Surface {
	return &Surface{
		dc:      gg.NewContext(w, h),
		fonts:   fonts,
		sources: make(map[int]*text.FontSource),
	}
}

// Backend builds gg surfaces for the renderer.
type Backend struct {
	Fonts *surface.FontManager
}

func (Backend) Name() string { return "gg" }

func (b Backend) NewSurface(w, h int) (surface.Surface, error) {
	return New(w, h, b.Fonts), nil
}

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.dc.Width(), s.dc.Height())
}

func (s *Surface) DrawImage(img image.Image) {
	w, h := float64(s.dc.Width()), float64(s.dc.Height())
	if u, ok := img.(*image.Uniform); ok {
		s.dc.SetColor(u.C)
		s.dc.DrawRectangle(0, 0, w, h)
		if err := s.dc.Fill(); err != nil {
			surface.Logger().Warn("gg fill failed", "err", err)
		}
		return
	}
	s.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBicubic,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})
}

func (s *Surface) FillRoundedRect(r layout.Rect, radius float64, c color.Color, opacity float64) error {
	if r.Empty() || opacity <= 0 {
		return nil
	}
	s.dc.SetColor(withOpacity(c, opacity))
	s.dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, radius)
	return s.dc.Fill()
}

func withOpacity(c color.Color, opacity float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * min(1, opacity)))
	return n
}

// weightKey collapses weights onto the classes the font manager serves.
func weightKey(weight int) int {
	switch {
	case weight >= 700:
		return 700
	case weight >= 500:
		return 500
	}
	return 400
}

func (s *Surface) SetFont(f surface.Font) error {
	if s.fonts == nil {
		return surface.ErrNoFont
	}
	key := weightKey(f.Weight)
	src, ok := s.sources[key]
	if !ok {
		var err error
		src, err = text.NewFontSource(s.fonts.Data(key))
		if err != nil {
			return fmt.Errorf("gg font source: %w", err)
		}
		s.sources[key] = src
	}
	s.dc.SetFont(src.Face(f.Size))
	s.hasFont = true
	return nil
}

func (s *Surface) MeasureText(str string) float64 {
	w, _ := s.dc.MeasureString(str)
	return w
}

func (s *Surface) DrawText(str string, x, y float64, p surface.TextPaint) error {
	if !s.hasFont {
		return surface.ErrNoFont
	}
	if p.Shadow {
		s.dc.SetRGBA(0, 0, 0, surface.ShadowAlpha)
		s.dc.DrawString(str, x+surface.ShadowOffset, y+surface.ShadowOffset)
	}
	if p.Stroke != nil {
		s.dc.SetColor(p.Stroke)
		for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			s.dc.DrawString(str, x+d[0], y+d[1])
		}
	}
	fill := p.Fill
	if fill == nil {
		fill = color.Black
	}
	s.dc.SetColor(fill)
	s.dc.DrawString(str, x, y)
	return nil
}

func (s *Surface) Pixels(region image.Rectangle) image.Image {
	img := s.Image()
	return img.SubImage(region.Intersect(img.Bounds()))
}

// Image returns a snapshot of the context pixels.
func (s *Surface) Image() *image.RGBA {
	img := s.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

func (s *Surface) Close() error {
	errs := []error{s.dc.Close()}
	for k, src := range s.sources {
		errs = append(errs, src.Close())
		delete(s.sources, k)
	}
	return errors.Join(errs...)
}
