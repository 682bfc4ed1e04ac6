// Package layout holds the pure geometry of a sign: where each shape lands
// on the canvas and how text is sized and wrapped inside a rectangle.
// Nothing here draws; the renderer feeds the results to a surface.
package layout

import (
	"fmt"
	"image"
	"math"

	"github.com/xob0t/signstencil/pkg/template"
)

// Rect is an axis-aligned box in canvas pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Size is a canvas size in pixels.
type Size struct {
	W, H float64
}

// Inset shrinks r by p on every side. Negative sizes are kept so callers
// can see that the padding ate the whole box.
func (r Rect) Inset(p float64) Rect {
	return Rect{X: r.X + p, Y: r.Y + p, W: r.W - 2*p, H: r.H - 2*p}
}

// CenterX returns the horizontal midpoint.
func (r Rect) CenterX() float64 { return r.X + r.W/2 }

// CenterY returns the vertical midpoint.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Empty reports whether r covers no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Image returns the integer rectangle covering r.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f)", r.X, r.Y, r.W, r.H)
}

// ── Arena ──

// Arena stores shape rectangles with an id index.
// One arena lives for exactly one render.
type Arena struct {
	rects []Rect
	index map[string]int
}

// NewArena returns an arena sized for n shapes.
func NewArena(n int) *Arena {
	return &Arena{
		rects: make([]Rect, 0, n),
		index: make(map[string]int, n),
	}
}

// Put appends the rectangle for id. A second Put for the same id fails.
func (a *Arena) Put(id string, r Rect) error {
	if _, ok := a.index[id]; ok {
		return fmt.Errorf("shape %q already placed", id)
	}
	a.index[id] = len(a.rects)
	a.rects = append(a.rects, r)
	return nil
}

// Get returns the rectangle placed for id.
func (a *Arena) Get(id string) (Rect, bool) {
	if a == nil {
		return Rect{}, false
	}
	i, ok := a.index[id]
	if !ok {
		return Rect{}, false
	}
	return a.rects[i], true
}

// Len returns the number of placed shapes.
func (a *Arena) Len() int { return len(a.rects) }

// ── Placement ──

// ResolveWidth converts a shape width to canvas pixels. Percentages scale
// against the canvas width; pixel values are authored at the reference
// width and multiplied by scale.
func ResolveWidth(l template.Length, canvas Size, scale float64) float64 {
	if l.Percent {
		return l.Value / 100 * canvas.W
	}
	return l.Value * scale
}

// PlaceShape computes the rectangle of s on a canvas. Height, offsets and
// pixel widths are multiplied by scale. A shape with a parent already in
// the arena is centred under it and placed directly below it; otherwise
// the anchor decides.
func PlaceShape(s template.Shape, canvas Size, scale float64, arena *Arena) Rect {
	w := ResolveWidth(s.Width, canvas, scale)
	h := s.Height * scale
	offX, offY := s.OffsetX*scale, s.OffsetY*scale

	if s.Parent != "" {
		if p, ok := arena.Get(s.Parent); ok {
			return Rect{
				X: p.X + (p.W-w)/2 + offX,
				Y: p.Y + p.H + offY,
				W: w,
				H: h,
			}
		}
	}

	x, y := anchorOrigin(s.Anchor, canvas, w, h)
	return Rect{X: x + offX, Y: y + offY, W: w, H: h}
}

func anchorOrigin(a template.Anchor, c Size, w, h float64) (x, y float64) {
	switch a {
	case template.AnchorTop:
		return (c.W - w) / 2, 0
	case template.AnchorBottom:
		return (c.W - w) / 2, c.H - h
	case template.AnchorLeft:
		return 0, (c.H - h) / 2
	case template.AnchorRight:
		return c.W - w, (c.H - h) / 2
	case template.AnchorBottomRight:
		return c.W - w, c.H - h
	case template.AnchorTopRight:
		return c.W - w, 0
	case template.AnchorCenter:
		return (c.W - w) / 2, (c.H - h) / 2
	}
	// Unset anchor: offsets are absolute.
	return 0, 0
}

// CornerRadius returns the drawn corner radius of s inside r. Bars and
// boxes use the declared radius; a pill with no radius rounds its ends
// fully. Radii larger than half the short side are not clamped.
func CornerRadius(s template.Shape, r Rect, scale float64) float64 {
	switch s.Kind {
	case template.KindPill:
		if s.Radius <= 0 {
			return r.H / 2
		}
		return s.Radius * scale
	case template.KindBar, template.KindBox:
		return s.Radius * scale
	}
	return 0
}
