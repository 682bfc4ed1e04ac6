package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/layout"
	"github.com/xob0t/signstencil/pkg/surface"
	"github.com/xob0t/signstencil/pkg/surface/ggsurface"
	"github.com/xob0t/signstencil/pkg/template"
)

var grey = color.RGBA{128, 128, 128, 255}

func newRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	fm, err := surface.NewFontManager("")
	if err != nil {
		t.Fatal(err)
	}
	return New(fm, opts...)
}

func builtin(t *testing.T, id string) *template.Spec {
	t.Helper()
	s, err := template.DefaultCatalog().Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func brightRegion(img *image.RGBA, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R > 240 && c.G > 240 && c.B > 240 {
				return true
			}
		}
	}
	return false
}

// Top bar spans the canvas at 96px; the title is upper-cased and set
// left/top inside the bar.
func TestRenderTopBar(t *testing.T) {
	r := newRenderer(t)
	bg := generator.NewSolidImage(1200, 900, grey)
	texts := template.Texts{Title: "acme pizza", Subtitle: "since 1990", Phone: "(11) 555-0100"}
	adj := template.Adjustments{Upper: true, Palette: template.PaletteDark}

	img, trace, err := r.RenderWithTrace(context.Background(), bg, builtin(t, "tarja-superior-solida"), texts, adj)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 1200, 900) {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	bar, ok := trace.Shape("banner")
	if !ok || bar.Rect != (layout.Rect{X: 0, Y: 0, W: 1200, H: 96}) {
		t.Errorf("banner = %+v", bar)
	}
	if trace.Palette != DarkPalette {
		t.Errorf("palette = %+v", trace.Palette)
	}

	title, _ := trace.Text(template.SlotTitle)
	if title.Text != "ACME PIZZA" || len(title.Lines) != 1 {
		t.Errorf("title = %q lines %q", title.Text, title.Lines)
	}
	if title.Rect.X != 40 || title.Rect.Y != 40 {
		t.Errorf("title rect = %v", title.Rect)
	}
	if title.Color.Color != colors.White {
		t.Errorf("title colour = %v", title.Color.Color)
	}
	if title.Size < 32 || title.Size > 56 {
		t.Errorf("title size %v outside [32, 56]", title.Size)
	}

	if !brightRegion(img, image.Rect(40, 50, 600, 96)) {
		t.Error("no title pixels inside the bar")
	}
	if brightRegion(img, image.Rect(0, 50, 38, 96)) {
		t.Error("left-aligned title leaked left of the padding")
	}
	if brightRegion(img, image.Rect(0, 120, 1200, 900)) {
		t.Error("text drawn outside the bar")
	}
}

// An empty phone string still draws the pill, but no text in it.
func TestRenderEmptyPhoneKeepsPill(t *testing.T) {
	r := newRenderer(t)
	bg := generator.NewSolidImage(1200, 900, grey)
	texts := template.Texts{Title: "Bella", Subtitle: "forno a lenha"}

	img, trace, err := r.RenderWithTrace(context.Background(), bg, builtin(t, "telefone-destaque"), texts, template.DefaultAdjustments())
	if err != nil {
		t.Fatal(err)
	}
	pill, ok := trace.Shape(template.PhoneShapeID)
	if !ok {
		t.Fatal("phone pill not drawn")
	}
	if pill.Rect != (layout.Rect{X: 860, Y: 800, W: 300, H: 60}) || pill.Fill != BrandAccent {
		t.Errorf("pill = %+v", pill)
	}
	c := img.RGBAAt(1010, 830)
	if diff(c.R, BrandAccent.R) > 1 || diff(c.G, BrandAccent.G) > 1 || diff(c.B, BrandAccent.B) > 1 {
		t.Errorf("pill centre = %v, want accent %v", c, BrandAccent)
	}
	phone, _ := trace.Text(template.SlotPhone)
	if phone.Skipped != "empty" {
		t.Errorf("phone trace = %+v", phone)
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// A free title over a bright photo swaps away from a light foreground.
func TestRenderFreeTitleOverBrightPhoto(t *testing.T) {
	r := newRenderer(t)
	bg := generator.NewSolidImage(1200, 800, color.RGBA{250, 250, 245, 255})
	spec := &template.Spec{
		ID:      "hero",
		Palette: template.ModePalette(template.PaletteDark),
		Text: []template.TextBox{
			{Slot: template.SlotTitle, Area: template.AreaFree, Align: template.AlignCenter, MaxLines: 2, MinSize: 40, MaxSize: 80, Weight: 800, Padding: 80},
		},
	}
	adj := template.Adjustments{Palette: template.PaletteAuto}

	_, trace, err := r.RenderWithTrace(context.Background(), bg, spec, template.Texts{Title: "Grand Opening"}, adj)
	if err != nil {
		t.Fatal(err)
	}
	title, _ := trace.Text(template.SlotTitle)
	if !title.Color.Swapped || title.Color.Color == DarkPalette.Foreground {
		t.Fatalf("title colour = %+v, want a swap away from white", title.Color)
	}
	if title.Color.Ratio < DefaultMinContrast {
		t.Errorf("ratio %.2f below threshold", title.Color.Ratio)
	}
}

func TestResolveTextColorSamplesRegion(t *testing.T) {
	img := generator.NewSplitImage(200, 100, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255})
	tb := template.TextBox{Slot: template.SlotTitle, Area: template.AreaFree}

	left := ResolveTextColor(tb, layout.Rect{X: 0, Y: 0, W: 90, H: 100}, DarkPalette, img, 0)
	if !left.Swapped || left.Color != DarkPalette.Background {
		t.Errorf("over white: %+v", left)
	}
	right := ResolveTextColor(tb, layout.Rect{X: 110, Y: 0, W: 90, H: 100}, DarkPalette, img, 0)
	if right.Swapped || right.Color != colors.White {
		t.Errorf("over black: %+v", right)
	}

	tb.Color = "#ff0000"
	if got := ResolveTextColor(tb, layout.Rect{W: 90, H: 100}, DarkPalette, img, 0); !got.Fixed || got.Color != colors.MustHex("#ff0000") {
		t.Errorf("fixed colour: %+v", got)
	}
}

func TestResolveTextColorBestEffort(t *testing.T) {
	grey1, grey2 := colors.MustHex("#777777"), colors.MustHex("#888888")
	tests := []struct {
		name string
		p    Palette
	}{
		{"both fail", Palette{Background: grey1, Foreground: grey2}},
		{"fg passes", Palette{Background: colors.Black, Foreground: colors.White}},
		{"fg fails against own bg", Palette{Background: colors.White, Foreground: colors.MustHex("#eeeeee")}},
		{"identical", Palette{Background: grey1, Foreground: grey1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := template.TextBox{Slot: template.SlotTitle, Area: "banner"}
			got := ResolveTextColor(tb, layout.Rect{}, tt.p, nil, 4.5)
			fg := colors.ContrastRatio(tt.p.Foreground, tt.p.Background)
			bg := colors.ContrastRatio(tt.p.Background, tt.p.Background)
			best := math.Max(fg, bg)
			if math.Abs(got.Ratio-best) > 1e-9 && got.Ratio < 4.5 {
				t.Errorf("ratio %.3f, best available %.3f", got.Ratio, best)
			}
		})
	}
}

func TestResolvePalette(t *testing.T) {
	img := generator.NewSplitImage(100, 50, color.RGBA{250, 240, 230, 255}, color.RGBA{20, 10, 5, 255})
	s := surface.NewSoftware(100, 50, nil)
	s.DrawImage(img)

	auto := &template.Spec{ID: "a", Palette: template.ModePalette(template.PaletteAuto)}
	if got := ResolvePalette(s, auto, template.PaletteLight); got != LightPalette {
		t.Errorf("light override = %+v", got)
	}
	if got := ResolvePalette(s, auto, template.PaletteDark); got != DarkPalette {
		t.Errorf("dark override = %+v", got)
	}
	got := ResolvePalette(s, auto, template.PaletteAuto)
	want := Palette{Background: colors.RGB{R: 20, G: 10, B: 5}, Foreground: colors.RGB{R: 250, G: 240, B: 230}, Accent: BrandAccent}
	if got != want {
		t.Errorf("auto = %+v, want %+v", got, want)
	}

	// A light or dark tag on the template selects that palette without
	// sampling the photo.
	tagged := &template.Spec{ID: "d", Palette: template.ModePalette(template.PaletteDark)}
	if got := ResolvePalette(s, tagged, template.PaletteAuto); got != DarkPalette {
		t.Errorf("dark tag = %+v, want the dark palette", got)
	}
	tagged.Palette = template.ModePalette(template.PaletteLight)
	if got := ResolvePalette(s, tagged, template.PaletteAuto); got != LightPalette {
		t.Errorf("light tag = %+v, want the light palette", got)
	}

	fixed := &template.Spec{ID: "f", Palette: template.Palette{Fixed: &template.FixedPalette{Background: "#1f2937", Foreground: "#fbbf24"}}}
	got = ResolvePalette(s, fixed, template.PaletteAuto)
	if got.Background != colors.MustHex("#1f2937") || got.Foreground != colors.MustHex("#fbbf24") || got.Accent != BrandAccent {
		t.Errorf("fixed = %+v", got)
	}
	if got := ResolvePalette(s, fixed, template.PaletteDark); got != DarkPalette {
		t.Errorf("override should beat a fixed palette, got %+v", got)
	}
}

func TestEffective(t *testing.T) {
	for _, c := range []struct{ cap, perm, want bool }{
		{true, true, true}, {true, false, false}, {false, true, false}, {false, false, false},
	} {
		if got := Effective(c.cap, c.perm); got != c.want {
			t.Errorf("Effective(%v, %v) = %v", c.cap, c.perm, got)
		}
	}
	tb := template.TextBox{Upper: true, Shadow: true}
	got := EffectsFor(tb, template.Adjustments{Upper: false, Shadow: true, Stroke: true})
	if got != (Effects{Shadow: true}) {
		t.Errorf("EffectsFor = %+v", got)
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := newRenderer(t)
	bg := generator.NewSplitImage(900, 600, color.RGBA{240, 200, 160, 255}, color.RGBA{30, 60, 90, 255})
	texts := template.Texts{Title: "Padaria Pao Quente", Subtitle: "desde 1987", Phone: "(11) 5555-0100"}
	adj := template.Adjustments{Upper: true, Shadow: true, Stroke: true, Palette: template.PaletteAuto}

	for _, spec := range template.Builtin() {
		t.Run(spec.ID, func(t *testing.T) {
			a, err := r.Render(context.Background(), bg, &spec, texts, adj)
			if err != nil {
				t.Fatal(err)
			}
			b, err := r.Render(context.Background(), bg, &spec, texts, adj)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(a.Pix, b.Pix) {
				t.Error("renders differ")
			}
		})
	}
}

func TestRenderFontSizesInRange(t *testing.T) {
	r := newRenderer(t)
	bg := generator.NewSolidImage(1600, 1000, grey)
	texts := template.Texts{
		Title:    "Mercadinho Sao Jorge Hortifruti e Acougue",
		Subtitle: "aberto todos os dias das sete as vinte e duas",
		Phone:    "(21) 99999-0000",
	}
	for _, spec := range template.Builtin() {
		_, trace, err := r.RenderWithTrace(context.Background(), bg, &spec, texts, template.DefaultAdjustments())
		if err != nil {
			t.Fatal(err)
		}
		for i, tt := range trace.Texts {
			if tt.Skipped != "" {
				continue
			}
			box := spec.Text[i]
			if tt.Size < box.MinSize || tt.Size > box.MaxSize {
				t.Errorf("%s/%s: size %v outside [%v, %v]", spec.ID, tt.Slot, tt.Size, box.MinSize, box.MaxSize)
			}
			if !tt.Overflow && len(tt.Lines) > box.MaxLines {
				t.Errorf("%s/%s: %d lines without overflow", spec.ID, tt.Slot, len(tt.Lines))
			}
		}
	}
}

func TestRenderGeometry(t *testing.T) {
	r := newRenderer(t)
	bg := generator.NewSolidImage(2400, 1600, grey)
	texts := template.Texts{Title: "Loja"}

	_, trace, err := r.RenderWithTrace(context.Background(), bg, builtin(t, "caixa-de-info"), texts, template.DefaultAdjustments())
	if err != nil {
		t.Fatal(err)
	}
	if trace.Width != 1200 || trace.Height != 800 || trace.Scale != 1 {
		t.Fatalf("canvas = %dx%d scale %v", trace.Width, trace.Height, trace.Scale)
	}
	box, _ := trace.Shape("banner")
	if math.Abs(box.Rect.CenterX()-600) > 1e-9 || math.Abs(box.Rect.CenterY()-400) > 1e-9 {
		t.Errorf("centre-anchored box at %v", box.Rect)
	}

	small := generator.NewSolidImage(600, 400, grey)
	_, trace, err = r.RenderWithTrace(context.Background(), small, builtin(t, "tarja-lateral-esquerda"), texts, template.DefaultAdjustments())
	if err != nil {
		t.Fatal(err)
	}
	if trace.Scale != 0.5 {
		t.Fatalf("scale = %v, want 0.5", trace.Scale)
	}
	banner, _ := trace.Shape("banner")
	pill, _ := trace.Shape(template.PhoneShapeID)
	if want := banner.Rect.Y + banner.Rect.H - 40*0.5; math.Abs(pill.Rect.Y-want) > 1e-9 {
		t.Errorf("pill y = %v, want %v", pill.Rect.Y, want)
	}
	if math.Abs(pill.Rect.CenterX()-banner.Rect.CenterX()) > 1e-9 {
		t.Errorf("pill not centred under banner")
	}
}

func TestRenderSkipsUnknownArea(t *testing.T) {
	r := newRenderer(t)
	spec := &template.Spec{
		ID: "ghost",
		Shapes: []template.Shape{
			{ID: "bar", Kind: template.KindBar, Anchor: template.AnchorTop, Width: template.Pct(100), Height: 80},
		},
		Text: []template.TextBox{
			{Slot: template.SlotTitle, Area: "nowhere", Align: template.AlignCenter, MaxLines: 1, MinSize: 20, MaxSize: 30},
			{Slot: template.SlotPhone, Area: "bar", Align: template.AlignCenter, MaxLines: 1, MinSize: 20, MaxSize: 30},
		},
	}
	_, trace, err := r.RenderWithTrace(context.Background(), generator.NewSolidImage(400, 300, grey), spec,
		template.Texts{Title: "Lost", Phone: "123"}, template.DefaultAdjustments())
	if err != nil {
		t.Fatal(err)
	}
	if tt, _ := trace.Text(template.SlotTitle); tt.Skipped != "unknown area" {
		t.Errorf("title = %+v", tt)
	}
	if tt, _ := trace.Text(template.SlotPhone); tt.Skipped != "" || len(tt.Lines) != 1 {
		t.Errorf("phone = %+v", tt)
	}
}

func TestRenderErrors(t *testing.T) {
	r := newRenderer(t)
	spec := builtin(t, "slogan-inferior")

	if _, err := r.Render(context.Background(), nil, spec, template.Texts{}, template.DefaultAdjustments()); !errors.Is(err, ErrNoImage) {
		t.Errorf("nil image err = %v", err)
	}
	bg := generator.NewSolidImage(100, 100, grey)
	if _, err := r.Render(context.Background(), bg, nil, template.Texts{}, template.DefaultAdjustments()); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("nil template err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, bg, spec, template.Texts{Title: "x"}, template.DefaultAdjustments()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}

func TestDrawNilSurfaceIsNoop(t *testing.T) {
	r := newRenderer(t)
	trace, err := r.Draw(context.Background(), nil, nil, nil, template.Texts{}, template.Adjustments{})
	if err != nil || trace == nil || len(trace.Shapes) != 0 {
		t.Errorf("Draw(nil) = %+v, %v", trace, err)
	}
}

func TestRenderWithGGBackend(t *testing.T) {
	fm, err := surface.NewFontManager("")
	if err != nil {
		t.Fatal(err)
	}
	r := New(fm, WithBackend(ggsurface.Backend{Fonts: fm}))
	if r.Backend().Name() != "gg" {
		t.Fatalf("backend = %s", r.Backend().Name())
	}
	img, trace, err := r.RenderWithTrace(context.Background(), generator.NewSolidImage(600, 400, grey),
		builtin(t, "adesivo-vitrine"), template.Texts{Title: "Promo", Phone: "555"}, template.DefaultAdjustments())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 600 || len(trace.Shapes) != 2 {
		t.Errorf("bounds %v, shapes %d", img.Bounds(), len(trace.Shapes))
	}
}

func TestWithOptions(t *testing.T) {
	r := newRenderer(t, WithOptions(Options{ReferenceWidth: 600, MinContrast: 7}))
	o := r.Options()
	if o.ReferenceWidth != 600 || o.MinContrast != 7 || o.Layout.LineHeight != 1.2 {
		t.Errorf("options = %+v", o)
	}
}
