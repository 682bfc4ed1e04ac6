// Package render composes a sign: it paints the photo, resolves the
// palette, places and fills the template's shapes in declaration order,
// then fits, colours and draws each text box inside its container.
//
// A Renderer holds no per-render state and is safe for concurrent use.
// Every call gets its own surface, shape arena and font faces.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/layout"
	"github.com/xob0t/signstencil/pkg/surface"
	"github.com/xob0t/signstencil/pkg/template"
)

var (
	// ErrNoImage is returned when there is no background to render over.
	ErrNoImage = errors.New("render: no background image")
	// ErrNoTemplate is returned for a nil template.
	ErrNoTemplate = errors.New("render: no template")
)

// SetLogger configures logging for render and surface. Silent by default.
func SetLogger(l *slog.Logger) { surface.SetLogger(l) }

// Options are the tunable constants of a Renderer.
type Options struct {
	ReferenceWidth int     // canvas width templates are authored at
	MinContrast    float64 // minimum text/background contrast ratio
	Layout         layout.Options
}

// DefaultOptions returns the stock constants.
func DefaultOptions() Options {
	return Options{
		ReferenceWidth: template.ReferenceWidth,
		MinContrast:    DefaultMinContrast,
		Layout:         layout.DefaultOptions(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReferenceWidth <= 0 {
		o.ReferenceWidth = d.ReferenceWidth
	}
	if o.MinContrast <= 0 {
		o.MinContrast = d.MinContrast
	}
	if o.Layout.OrphanRatio <= 0 {
		o.Layout.OrphanRatio = d.Layout.OrphanRatio
	}
	if o.Layout.LineHeight <= 0 {
		o.Layout.LineHeight = d.Layout.LineHeight
	}
	if o.Layout.GlyphAdvance <= 0 {
		o.Layout.GlyphAdvance = d.Layout.GlyphAdvance
	}
	return o
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBackend selects the surface backend. The default is the software
// backend over the renderer's fonts.
func WithBackend(b surface.Backend) Option {
	return func(r *Renderer) { r.backend = b }
}

// WithLogger sets a per-renderer logger instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithOptions overrides the tunable constants. Zero fields keep defaults.
func WithOptions(o Options) Option {
	return func(r *Renderer) { r.opts = o.withDefaults() }
}

// Renderer draws templates.
type Renderer struct {
	backend surface.Backend
	logger  *slog.Logger
	opts    Options
}

// New returns a Renderer that sets text with fonts.
func New(fonts *surface.FontManager, opts ...Option) *Renderer {
	r := &Renderer{
		backend: surface.SoftwareBackend{Fonts: fonts},
		opts:    DefaultOptions(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Options returns the effective constants.
func (r *Renderer) Options() Options { return r.opts }

// Backend returns the surface backend in use.
func (r *Renderer) Backend() surface.Backend { return r.backend }

func (r *Renderer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return surface.Logger()
}

// ── Trace ──

// Trace records what a render decided, element by element.
type Trace struct {
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Scale   float64      `json:"scale"`
	Palette Palette      `json:"palette"`
	Shapes  []ShapeTrace `json:"shapes"`
	Texts   []TextTrace  `json:"texts"`
}

// ShapeTrace is one placed shape.
type ShapeTrace struct {
	ID      string      `json:"id"`
	Rect    layout.Rect `json:"rect"`
	Radius  float64     `json:"radius"`
	Fill    colors.RGB  `json:"fill"`
	Opacity float64     `json:"opacity"`
}

// TextTrace is one text box. Skipped is set when nothing was drawn.
type TextTrace struct {
	Slot      template.Slot `json:"slot"`
	Area      string        `json:"area"`
	Skipped   string        `json:"skipped,omitempty"`
	Text      string        `json:"text,omitempty"`
	Rect      layout.Rect   `json:"rect"`
	Size      float64       `json:"size"`
	PixelSize float64       `json:"pixelSize"`
	Lines     []string      `json:"lines,omitempty"`
	Overflow  bool          `json:"overflow,omitempty"`
	Color     TextColor     `json:"color"`
	Effects   Effects       `json:"effects"`
}

// Shape returns the trace of the shape with id.
func (t *Trace) Shape(id string) (ShapeTrace, bool) {
	for _, s := range t.Shapes {
		if s.ID == id {
			return s, true
		}
	}
	return ShapeTrace{}, false
}

// Text returns the trace of the box bound to slot.
func (t *Trace) Text(slot template.Slot) (TextTrace, bool) {
	for _, tt := range t.Texts {
		if tt.Slot == slot {
			return tt, true
		}
	}
	return TextTrace{}, false
}

// ── Rendering ──

// Render draws spec over bg and returns the composited image. The canvas
// is bg scaled to at most ReferenceWidth pixels wide.
func (r *Renderer) Render(ctx context.Context, bg image.Image, spec *template.Spec, texts template.Texts, adj template.Adjustments) (*image.RGBA, error) {
	img, _, err := r.RenderWithTrace(ctx, bg, spec, texts, adj)
	return img, err
}

// RenderWithTrace is Render that also returns the per-element trace.
func (r *Renderer) RenderWithTrace(ctx context.Context, bg image.Image, spec *template.Spec, texts template.Texts, adj template.Adjustments) (*image.RGBA, *Trace, error) {
	if bg == nil || bg.Bounds().Empty() {
		return nil, nil, ErrNoImage
	}
	if spec == nil {
		return nil, nil, ErrNoTemplate
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	scaled := generator.ScaleToWidth(bg, r.opts.ReferenceWidth)
	b := scaled.Bounds()
	s, err := r.backend.NewSurface(b.Dx(), b.Dy())
	if err != nil {
		return nil, nil, fmt.Errorf("create %s surface: %w", r.backend.Name(), err)
	}
	defer s.Close()

	trace, err := r.Draw(ctx, s, scaled, spec, texts, adj)
	if err != nil {
		return nil, trace, err
	}
	r.log().Debug("rendered",
		"template", spec.ID,
		"backend", r.backend.Name(),
		"width", b.Dx(), "height", b.Dy(),
		"elapsed", time.Since(start))
	return s.Image(), trace, nil
}

// Draw paints spec onto s, covering it with bg first. A nil surface is a
// silent no-op. Per-element problems are logged and skipped; only a
// missing background, a nil template or a cancelled context fail the call.
func (r *Renderer) Draw(ctx context.Context, s surface.Surface, bg image.Image, spec *template.Spec, texts template.Texts, adj template.Adjustments) (*Trace, error) {
	if s == nil {
		return &Trace{}, nil
	}
	if bg == nil {
		return nil, ErrNoImage
	}
	if spec == nil {
		return nil, ErrNoTemplate
	}
	log := r.log().With("template", spec.ID)
	if err := template.Validate(spec); err != nil {
		log.Warn("template has structural problems, drawing what it can", "err", err)
	}

	s.DrawImage(bg)
	b := s.Bounds()
	sample := snapshot(s.Pixels(b))
	scale := float64(b.Dx()) / float64(r.opts.ReferenceWidth)
	canvas := layout.Rect{W: float64(b.Dx()), H: float64(b.Dy())}
	trace := &Trace{Width: b.Dx(), Height: b.Dy(), Scale: scale}

	if err := ctx.Err(); err != nil {
		return trace, err
	}
	pal := ResolvePalette(s, spec, adj.Palette)
	trace.Palette = pal
	log.Debug("palette resolved", "bg", pal.Background, "fg", pal.Foreground, "accent", pal.Accent)

	if err := ctx.Err(); err != nil {
		return trace, err
	}
	arena := layout.NewArena(len(spec.Shapes))
	size := layout.Size{W: canvas.W, H: canvas.H}
	for _, sh := range spec.Shapes {
		st, ok := r.drawShape(s, sh, size, scale, arena, pal, log)
		if ok {
			trace.Shapes = append(trace.Shapes, st)
		}
	}
	log.Debug("shapes placed", "placed", arena.Len(), "declared", len(spec.Shapes))

	if err := ctx.Err(); err != nil {
		return trace, err
	}
	for _, tb := range spec.Text {
		trace.Texts = append(trace.Texts, r.drawText(s, tb, texts.Get(tb.Slot), canvas, arena, pal, sample, scale, adj, log))
	}
	return trace, nil
}

func (r *Renderer) drawShape(s surface.Surface, sh template.Shape, canvas layout.Size, scale float64, arena *layout.Arena, pal Palette, log *slog.Logger) (ShapeTrace, bool) {
	fill := pal.Background
	switch sh.Kind {
	case template.KindBar, template.KindBox:
	case template.KindPill:
		if sh.ID == template.PhoneShapeID {
			fill = pal.Accent
		}
	default:
		log.Warn("skipping shape of unknown kind", "shape", sh.ID, "kind", sh.Kind)
		return ShapeTrace{}, false
	}

	rect := layout.PlaceShape(sh, canvas, scale, arena)
	if sh.Parent != "" {
		if _, ok := arena.Get(sh.Parent); !ok {
			log.Warn("parent not placed, using anchor", "shape", sh.ID, "parent", sh.Parent)
		}
	}
	if err := arena.Put(sh.ID, rect); err != nil {
		log.Warn("shape id reused, later references see the first", "shape", sh.ID)
	}

	radius := layout.CornerRadius(sh, rect, scale)
	if err := s.FillRoundedRect(rect, radius, fill, sh.Alpha()); err != nil {
		log.Warn("shape fill failed", "shape", sh.ID, "err", err)
	}
	return ShapeTrace{ID: sh.ID, Rect: rect, Radius: radius, Fill: fill, Opacity: sh.Alpha()}, true
}

func (r *Renderer) drawText(s surface.Surface, tb template.TextBox, content string, canvas layout.Rect, arena *layout.Arena, pal Palette, sample image.Image, scale float64, adj template.Adjustments, log *slog.Logger) TextTrace {
	tt := TextTrace{Slot: tb.Slot, Area: tb.Area}
	if strings.TrimSpace(content) == "" {
		tt.Skipped = "empty"
		return tt
	}

	container := canvas
	if !tb.IsFree() {
		rect, ok := arena.Get(tb.Area)
		if !ok {
			log.Warn("text area names no shape, skipped", "slot", tb.Slot, "area", tb.Area)
			tt.Skipped = "unknown area"
			return tt
		}
		container = rect
	}

	eff := EffectsFor(tb, adj)
	text := content
	if eff.Upper {
		text = cases.Upper(language.Und).String(content)
	}
	rect := container.Inset(tb.Padding * scale)
	weight := tb.FontWeight()

	fit := layout.FitText(surface.Measurer(s, weight), text, layout.BoxFor(tb, rect.W), scale, r.opts.Layout)
	tc := ResolveTextColor(tb, rect, pal, sample, r.opts.MinContrast)
	tt.Text, tt.Rect, tt.Effects, tt.Color = text, rect, eff, tc
	tt.Size, tt.PixelSize, tt.Lines, tt.Overflow = fit.Size, fit.PixelSize, fit.Lines, fit.Overflow
	if fit.Overflow {
		log.Debug("text overflows at minimum size", "slot", tb.Slot, "lines", len(fit.Lines), "maxLines", tb.MaxLines)
	}

	if err := s.SetFont(surface.Font{Weight: weight, Size: fit.PixelSize}); err != nil {
		log.Warn("font unavailable, text skipped", "slot", tb.Slot, "err", err)
		tt.Skipped = "font"
		return tt
	}
	paint := surface.TextPaint{Fill: tc.Color, Shadow: eff.Shadow}
	if eff.Stroke {
		paint.Stroke = colors.Outline(tc.Color)
	}

	var err error
	switch tb.Orientation {
	case template.Vertical:
		err = r.drawVertical(s, tb, text, rect, fit.PixelSize, paint)
	case template.Horizontal, "":
		err = r.drawLines(s, tb, fit, rect, paint)
	default:
		tt.Skipped = "unknown orientation"
		log.Warn("text orientation unknown, skipped", "slot", tb.Slot, "orientation", tb.Orientation)
	}
	if err != nil {
		log.Warn("text draw failed", "slot", tb.Slot, "err", err)
	}
	return tt
}

func (r *Renderer) drawLines(s surface.Surface, tb template.TextBox, fit layout.Fit, rect layout.Rect, paint surface.TextPaint) error {
	ys := layout.Baselines(rect, len(fit.Lines), fit.PixelSize, tb.VAlign, r.opts.Layout)
	ax := layout.AnchorX(rect, tb.Align)
	var errs []error
	for i, line := range fit.Lines {
		x := layout.LineX(ax, s.MeasureText(line), tb.Align)
		errs = append(errs, s.DrawText(line, x, ys[i], paint))
	}
	return errors.Join(errs...)
}

// drawVertical stacks the glyphs of text top to bottom, each centred on
// the alignment anchor.
func (r *Renderer) drawVertical(s surface.Surface, tb template.TextBox, text string, rect layout.Rect, px float64, paint surface.TextPaint) error {
	runes := []rune(text)
	ys := layout.VerticalRun(rect, len(runes), px, r.opts.Layout)
	ax := layout.AnchorX(rect, tb.Align)
	var errs []error
	for i, ru := range runes {
		if unicode.IsSpace(ru) {
			continue
		}
		g := string(ru)
		errs = append(errs, s.DrawText(g, ax-s.MeasureText(g)/2, ys[i], paint))
	}
	return errors.Join(errs...)
}

// snapshot copies img so later drawing cannot change it.
func snapshot(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
