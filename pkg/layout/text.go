// text.go — Font-size search, greedy word wrap and line positioning.
package layout

import (
	"math"
	"strings"

	"github.com/xob0t/signstencil/pkg/template"
)

// Measurer reports the advance width of text set at px pixels.
type Measurer interface {
	Measure(text string, px float64) float64
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(text string, px float64) float64

func (f MeasureFunc) Measure(text string, px float64) float64 { return f(text, px) }

// Options are the tunable constants of the text engine.
type Options struct {
	// OrphanRatio: a two-line wrap is rebalanced when the first line is
	// wider than OrphanRatio times the width of " "+lastWord.
	OrphanRatio float64
	// LineHeight is the line pitch as a multiple of the font size.
	LineHeight float64
	// GlyphAdvance is the per-glyph pitch of vertical text.
	GlyphAdvance float64
}

// DefaultOptions returns the stock constants.
func DefaultOptions() Options {
	return Options{OrphanRatio: 3, LineHeight: 1.2, GlyphAdvance: 1.1}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.OrphanRatio <= 0 {
		o.OrphanRatio = d.OrphanRatio
	}
	if o.LineHeight <= 0 {
		o.LineHeight = d.LineHeight
	}
	if o.GlyphAdvance <= 0 {
		o.GlyphAdvance = d.GlyphAdvance
	}
	return o
}

// Wrap breaks text into lines no wider than maxWidth at px. Words are
// added greedily; a word that alone exceeds maxWidth gets its own line.
// A two-line result whose second line is a lone word is rebalanced so the
// last two words share line 2, provided the first line is much wider than
// that word and the new second line still fits.
func Wrap(m Measurer, text string, px, maxWidth float64, opts Options) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if m.Measure(candidate, px) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	lines = append(lines, current)

	n := len(words)
	if len(lines) == 2 && n > 2 && lines[1] == words[n-1] {
		last := words[n-1]
		if m.Measure(lines[0], px) > opts.OrphanRatio*m.Measure(" "+last, px) {
			second := words[n-2] + " " + last
			if m.Measure(second, px) <= maxWidth {
				lines = []string{strings.Join(words[:n-2], " "), second}
			}
		}
	}
	return lines
}

// FitBox bounds a font-size search. Sizes are in reference units.
type FitBox struct {
	Width    float64 // writable width in canvas pixels
	MinSize  float64
	MaxSize  float64
	MaxLines int
}

// BoxFor builds the search bounds of a text box over a writable width.
func BoxFor(tb template.TextBox, width float64) FitBox {
	return FitBox{Width: width, MinSize: tb.MinSize, MaxSize: tb.MaxSize, MaxLines: tb.MaxLines}
}

// Fit is the result of a font-size search.
type Fit struct {
	Size      float64 // reference units, within [MinSize, MaxSize]
	PixelSize float64 // Size * scale
	Lines     []string
	Overflow  bool // true when even MinSize needs more than MaxLines
}

// FitText searches from MaxSize down in steps of one reference unit for
// the largest size whose wrap has at most MaxLines lines. When no size
// qualifies the text is set at MinSize anyway and Overflow is reported.
// MaxSize is clamped to template.MaxFontSize.
func FitText(m Measurer, text string, box FitBox, scale float64, opts Options) Fit {
	minSize := min(box.MinSize, box.MaxSize)
	maxSize := min(box.MaxSize, template.MaxFontSize)
	if !(maxSize >= minSize) {
		maxSize = minSize
	}
	steps := 0
	if maxSize > minSize {
		steps = int(math.Ceil(maxSize - minSize))
	}
	for i := 0; ; i++ {
		size := maxSize - float64(i)
		last := i >= steps || size <= minSize
		if last {
			size = minSize
		}
		px := size * scale
		lines := Wrap(m, text, px, box.Width, opts)
		if len(lines) <= box.MaxLines || last {
			return Fit{
				Size:      size,
				PixelSize: px,
				Lines:     lines,
				Overflow:  len(lines) > box.MaxLines,
			}
		}
	}
}

// ── Positioning ──

// AnchorX returns the alignment anchor inside r: the left edge, the
// centre or the right edge.
func AnchorX(r Rect, a template.Align) float64 {
	switch a {
	case template.AlignLeft:
		return r.X
	case template.AlignRight:
		return r.X + r.W
	}
	return r.CenterX()
}

// LineX returns the left edge of a line of the given width drawn at the
// anchor x with alignment a.
func LineX(x, width float64, a template.Align) float64 {
	switch a {
	case template.AlignLeft:
		return x
	case template.AlignRight:
		return x - width
	}
	return x - width/2
}

// Baselines returns the baseline y of each of n lines set at px inside r.
func Baselines(r Rect, n int, px float64, v template.VAlign, opts Options) []float64 {
	opts = opts.withDefaults()
	pitch := px * opts.LineHeight
	total := float64(n) * pitch

	var start float64
	switch v.Resolved() {
	case template.VAlignTop:
		start = r.Y + px
	case template.VAlignBottom:
		start = r.Y + r.H - total + px
	default:
		start = r.Y + (r.H-total)/2 + px
	}

	ys := make([]float64, n)
	for i := range ys {
		ys[i] = start + float64(i)*pitch
	}
	return ys
}

// VerticalRun returns the baselines of n stacked glyphs set at px, with
// the run centred vertically in r.
func VerticalRun(r Rect, n int, px float64, opts Options) []float64 {
	opts = opts.withDefaults()
	pitch := px * opts.GlyphAdvance
	start := r.Y + (r.H-float64(n)*pitch)/2 + px

	ys := make([]float64, n)
	for i := range ys {
		ys[i] = start + float64(i)*pitch
	}
	return ys
}
