// software.go - Pure Go surface over *image.RGBA.
// Shapes are rasterised with golang.org/x/image/vector, text is set with
// golang.org/x/image/font faces from the FontManager.
package surface

import (
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/xob0t/signstencil/pkg/layout"
)

// ErrNoFont is returned by text operations before SetFont succeeds.
var ErrNoFont = errors.New("surface: no font set")

type faceKey struct {
	class weightClass
	size  float64
}

// Software is a CPU surface. It is not safe for concurrent use.
type Software struct {
	img   *image.RGBA
	fonts *FontManager
	faces map[faceKey]font.Face
	face  font.Face
}

// NewSoftware returns a transparent w×h surface.
func NewSoftware(w, h int, fonts *FontManager) *Software {
	return &Software{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		fonts: fonts,
		faces: make(map[faceKey]font.Face),
	}
}

func (s *Software) Bounds() image.Rectangle { return s.img.Bounds() }

func (s *Software) DrawImage(src image.Image) {
	b := s.img.Bounds()
	if u, ok := src.(*image.Uniform); ok {
		draw.Draw(s.img, b, u, image.Point{}, draw.Src)
		return
	}
	if src.Bounds().Size() == b.Size() {
		draw.Draw(s.img, b, src, src.Bounds().Min, draw.Src)
		return
	}
	draw.CatmullRom.Scale(s.img, b, src, src.Bounds(), draw.Src, nil)
}

// FillRoundedRect fills r with quadratic corners of the given radius.
func (s *Software) FillRoundedRect(r layout.Rect, radius float64, c color.Color, opacity float64) error {
	if r.Empty() || opacity <= 0 {
		return nil
	}
	b := s.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	roundedRectPath(z, r, radius)
	z.Draw(s.img, b, image.NewUniform(withOpacity(c, opacity)), image.Point{})
	return nil
}

// pathBuilder is the subset of vector.Rasterizer used to trace a shape.
type pathBuilder interface {
	MoveTo(x, y float32)
	LineTo(x, y float32)
	QuadTo(bx, by, cx, cy float32)
	ClosePath()
}

func roundedRectPath(p pathBuilder, r layout.Rect, radius float64) {
	x, y := float32(r.X), float32(r.Y)
	w, h := float32(r.W), float32(r.H)
	rad := float32(max(0, radius))

	p.MoveTo(x+rad, y)
	p.LineTo(x+w-rad, y)
	p.QuadTo(x+w, y, x+w, y+rad)
	p.LineTo(x+w, y+h-rad)
	p.QuadTo(x+w, y+h, x+w-rad, y+h)
	p.LineTo(x+rad, y+h)
	p.QuadTo(x, y+h, x, y+h-rad)
	p.LineTo(x, y+rad)
	p.QuadTo(x, y, x+rad, y)
	p.ClosePath()
}

func withOpacity(c color.Color, opacity float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * min(1, opacity)))
	return n
}

func (s *Software) SetFont(f Font) error {
	if s.fonts == nil {
		return ErrNoFont
	}
	key := faceKey{class: classOf(f.Weight), size: f.Size}
	if face, ok := s.faces[key]; ok {
		s.face = face
		return nil
	}
	face, err := s.fonts.GetFace(f.Weight, f.Size, 72)
	if err != nil {
		return err
	}
	s.faces[key] = face
	s.face = face
	return nil
}

func (s *Software) MeasureText(text string) float64 {
	if s.face == nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(s.face, text))
}

// DrawText paints text at (x, y), y being the baseline. Shadow and outline
// are painted first, the fill last.
func (s *Software) DrawText(text string, x, y float64, p TextPaint) error {
	if s.face == nil {
		return ErrNoFont
	}
	if p.Shadow {
		s.drawShadow(text, x+ShadowOffset, y+ShadowOffset)
	}
	if p.Stroke != nil {
		for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			s.drawString(s.img, text, x+d[0], y+d[1], p.Stroke)
		}
	}
	fill := p.Fill
	if fill == nil {
		fill = color.Black
	}
	s.drawString(s.img, text, x, y, fill)
	return nil
}

func (s *Software) drawString(dst draw.Image, text string, x, y float64, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)},
	}
	d.DrawString(text)
}

// drawShadow renders the glyph coverage into an alpha mask, blurs it and
// composites it in translucent black with its baseline at (x, y).
func (s *Software) drawShadow(text string, x, y float64) {
	bounds, _ := font.BoundString(s.face, text)
	pad := ShadowBlur
	minX := int(math.Floor(x+fixedToFloat(bounds.Min.X))) - pad
	minY := int(math.Floor(y+fixedToFloat(bounds.Min.Y))) - pad
	maxX := int(math.Ceil(x+fixedToFloat(bounds.Max.X))) + pad
	maxY := int(math.Ceil(y+fixedToFloat(bounds.Max.Y))) + pad
	area := image.Rect(minX, minY, maxX, maxY)
	if area.Intersect(s.img.Bounds()).Empty() {
		return
	}

	mask := image.NewAlpha(area)
	s.drawString(mask, text, x, y, color.Opaque)
	boxBlur(mask, ShadowBlur/2)
	boxBlur(mask, ShadowBlur/2)

	shadow := image.NewUniform(color.NRGBA{A: uint8(math.Round(255 * ShadowAlpha))})
	draw.DrawMask(s.img, area, shadow, image.Point{}, mask, area.Min, draw.Over)
}

// boxBlur applies one horizontal and one vertical box pass of radius r.
func boxBlur(m *image.Alpha, r int) {
	if r <= 0 {
		return
	}
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]uint8, len(m.Pix))
	blurPass(m.Pix, tmp, w, h, 1, m.Stride, r)
	blurPass(tmp, m.Pix, h, w, m.Stride, 1, r)
}

// blurPass blurs n lines of length l. step walks along a line, lineStep
// moves to the next line.
func blurPass(src, dst []uint8, l, n, step, lineStep, r int) {
	window := 2*r + 1
	for line := 0; line < n; line++ {
		base := line * lineStep
		sum := 0
		for i := -r; i <= r; i++ {
			if i >= 0 && i < l {
				sum += int(src[base+i*step])
			}
		}
		for i := 0; i < l; i++ {
			dst[base+i*step] = uint8(sum / window)
			if out := i - r; out >= 0 {
				sum -= int(src[base+out*step])
			}
			if in := i + r + 1; in < l {
				sum += int(src[base+in*step])
			}
		}
	}
}

func (s *Software) Pixels(region image.Rectangle) image.Image {
	return s.img.SubImage(region.Intersect(s.img.Bounds()))
}

func (s *Software) Image() *image.RGBA { return s.img }

// Close releases cached font faces.
func (s *Software) Close() error {
	var errs []error
	for k, face := range s.faces {
		errs = append(errs, face.Close())
		delete(s.faces, k)
	}
	s.face = nil
	return errors.Join(errs...)
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
