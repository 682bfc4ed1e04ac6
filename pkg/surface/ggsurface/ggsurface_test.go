package ggsurface

import (
	"image"
	"image/color"
	"testing"

	"github.com/xob0t/signstencil/pkg/layout"
	"github.com/xob0t/signstencil/pkg/surface"
)

func newSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	fm, err := surface.NewFontManager("")
	if err != nil {
		t.Fatal(err)
	}
	s := New(w, h, fm)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImplementsSurface(t *testing.T) {
	var _ surface.Surface = (*Surface)(nil)
	var _ surface.Backend = Backend{}
}

func TestFillRoundedRect(t *testing.T) {
	s := newSurface(t, 100, 60)
	s.DrawImage(image.NewUniform(color.White))
	if err := s.FillRoundedRect(layout.Rect{X: 10, Y: 10, W: 80, H: 40}, 8, color.Black, 1); err != nil {
		t.Fatal(err)
	}
	img := s.Image()
	if got := img.RGBAAt(50, 30); got.R > 10 {
		t.Errorf("inside pixel = %v, want black", got)
	}
	if got := img.RGBAAt(2, 2); got.R < 245 {
		t.Errorf("outside pixel = %v, want white", got)
	}
}

func TestTextMeasureAndDraw(t *testing.T) {
	s := newSurface(t, 300, 80)
	if err := s.DrawText("x", 0, 0, surface.TextPaint{}); err != surface.ErrNoFont {
		t.Errorf("DrawText before SetFont = %v", err)
	}
	if err := s.SetFont(surface.Font{Weight: 700, Size: 32}); err != nil {
		t.Fatal(err)
	}
	big := s.MeasureText("SIGN")
	s.SetFont(surface.Font{Weight: 700, Size: 16})
	if small := s.MeasureText("SIGN"); small <= 0 || small >= big {
		t.Errorf("widths 16px=%v 32px=%v", small, big)
	}

	s.SetFont(surface.Font{Weight: 700, Size: 32})
	s.DrawText("SIGN", 10, 50, surface.TextPaint{Fill: color.White})
	img := s.Image()
	painted := false
	for y := 20; y < 52 && !painted; y++ {
		for x := 10; x < 10+int(big); x++ {
			if img.RGBAAt(x, y).A > 200 {
				painted = true
				break
			}
		}
	}
	if !painted {
		t.Error("no text pixels painted")
	}
}
