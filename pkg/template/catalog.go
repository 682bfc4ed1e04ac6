// catalog.go — Built-in sign templates and catalog lookup.
package template

import (
	"errors"
	"fmt"

	"github.com/sahilm/fuzzy"
)

// ErrUnknownTemplate is returned when a catalog lookup misses.
var ErrUnknownTemplate = errors.New("unknown template")

// PhoneShapeID is the shape id that designates the contact pill. A pill with
// this id is filled with the palette accent instead of the background.
const PhoneShapeID = "phone-pill"

func opacity(v float64) *float64 { return &v }

// Builtin returns fresh copies of the hand-authored preset templates.
func Builtin() []Spec {
	return []Spec{
		{
			ID:          "centralizado-premium",
			Name:        "Centralizado",
			Description: "Centered banner with a contact pill on its right",
			Palette:     ModePalette(PaletteAuto),
			Shapes: []Shape{
				{ID: "banner", Kind: KindBar, Anchor: AnchorCenter, Width: Px(800), Height: 72, Radius: 12, Opacity: opacity(0.8)},
				{ID: PhoneShapeID, Kind: KindPill, Anchor: AnchorCenter, Width: Px(220), Height: 40, Radius: 20, OffsetX: 270},
			},
			Text: []TextBox{
				{Slot: SlotTitle, Area: "banner", Align: AlignCenter, VAlign: VAlignTop, MaxLines: 2, MinSize: 24, MaxSize: 48, Weight: 700, Upper: true, Padding: 10},
				{Slot: SlotSubtitle, Area: "banner", Align: AlignCenter, VAlign: VAlignBottom, MaxLines: 1, MinSize: 16, MaxSize: 20, Weight: 400, Padding: 16},
				{Slot: SlotPhone, Area: PhoneShapeID, Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 16, MaxSize: 18, Weight: 600},
			},
		},
		{
			ID:          "tarja-superior-solida",
			Name:        "Tarja Superior",
			Description: "Solid full-width bar across the top",
			Palette:     ModePalette(PaletteDark),
			Shapes: []Shape{
				{ID: "banner", Kind: KindBar, Anchor: AnchorTop, Width: Pct(100), Height: 96, Opacity: opacity(0.95)},
			},
			Text: []TextBox{
				{Slot: SlotTitle, Area: "banner", Align: AlignLeft, VAlign: VAlignTop, MaxLines: 1, MinSize: 32, MaxSize: 56, Weight: 800, Upper: true, Padding: 40},
				{Slot: SlotSubtitle, Area: "banner", Align: AlignLeft, VAlign: VAlignBottom, MaxLines: 1, MinSize: 16, MaxSize: 20, Weight: 400, Padding: 40},
				{Slot: SlotPhone, Area: "banner", Align: AlignRight, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 18, MaxSize: 22, Weight: 600, Padding: 40},
			},
		},
		{
			ID:          "tarja-lateral-esquerda",
			Name:        "Lateral",
			Description: "Tall side panel with vertical title and a pill beneath",
			Palette:     ModePalette(PaletteAuto),
			Shapes: []Shape{
				{ID: "banner", Kind: KindBox, Anchor: AnchorLeft, Width: Pct(30), Height: 650, Radius: 16, Opacity: opacity(0.9)},
				{ID: PhoneShapeID, Kind: KindPill, Anchor: AnchorBottom, Parent: "banner", Width: Px(240), Height: 44, Radius: 22, OffsetY: -40},
			},
			Text: []TextBox{
				{Slot: SlotTitle, Area: "banner", Orientation: Vertical, Align: AlignLeft, VAlign: VAlignTop, MaxLines: 2, MinSize: 40, MaxSize: 80, Weight: 700, Upper: true, Padding: 40},
				{Slot: SlotPhone, Area: PhoneShapeID, Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 16, MaxSize: 20, Weight: 600},
				{Slot: SlotSubtitle, Area: "banner", Align: AlignLeft, VAlign: VAlignBottom, MaxLines: 2, MinSize: 18, MaxSize: 22, Padding: 40},
			},
		},
		{
			ID:          "telefone-destaque",
			Name:        "Telefone Destaque",
			Description: "Free hero title with a large contact pill bottom-right",
			Palette:     ModePalette(PaletteLight),
			Shapes: []Shape{
				{ID: PhoneShapeID, Kind: KindPill, Anchor: AnchorBottomRight, Width: Px(300), Height: 60, Radius: 30, Opacity: opacity(1), OffsetX: -40, OffsetY: -40},
			},
			Text: []TextBox{
				{Slot: SlotTitle, Area: AreaFree, Align: AlignLeft, VAlign: VAlignMiddle, MaxLines: 2, MinSize: 60, MaxSize: 120, Weight: 800, Upper: true, Padding: 80, Shadow: true},
				{Slot: SlotPhone, Area: PhoneShapeID, Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 20, MaxSize: 28, Weight: 700},
				{Slot: SlotSubtitle, Area: AreaFree, Align: AlignLeft, VAlign: VAlignTop, MaxLines: 2, MinSize: 24, MaxSize: 32, Padding: 80, Shadow: true},
			},
		},
		{
			ID:          "slogan-inferior",
			Name:        "Slogan Inferior",
			Description: "Free centered title with a slogan bar along the bottom",
			Palette:     ModePalette(PaletteAuto),
			Shapes: []Shape{
				{ID: "banner", Kind: KindBar, Anchor: AnchorBottom, Width: Pct(100), Height: 80, Opacity: opacity(0.85)},
			},
			Text: []TextBox{
				{Slot: SlotSubtitle, Area: "banner", Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 24, MaxSize: 40, Weight: 700, Upper: true},
				{Slot: SlotTitle, Area: AreaFree, Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 2, MinSize: 50, MaxSize: 100, Weight: 800, Padding: 120, Shadow: true},
				{Slot: SlotPhone, Area: AreaFree, Align: AlignRight, VAlign: VAlignTop, MaxLines: 1, MinSize: 18, MaxSize: 22, Weight: 500, Padding: 40, Shadow: true},
			},
		},
		{
			ID:          "caixa-de-info",
			Name:        "Caixa de Info",
			Description: "Centered info card",
			Palette:     ModePalette(PaletteDark),
			Shapes: []Shape{
				{ID: "banner", Kind: KindBox, Anchor: AnchorCenter, Width: Px(600), Height: 250, Radius: 20, Opacity: opacity(0.75)},
			},
			Text: []TextBox{
				{Slot: SlotTitle, Area: "banner", Align: AlignCenter, VAlign: VAlignTop, MaxLines: 2, MinSize: 40, MaxSize: 64, Weight: 700, Upper: true, Padding: 40},
				{Slot: SlotSubtitle, Area: "banner", Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 18, MaxSize: 24, Padding: 10},
				{Slot: SlotPhone, Area: "banner", Align: AlignCenter, VAlign: VAlignBottom, MaxLines: 1, MinSize: 20, MaxSize: 28, Weight: 600, Padding: 40},
			},
		},
		{
			ID:          "adesivo-vitrine",
			Name:        "Adesivo Vitrine",
			Description: "Window sticker: title pill over a contact pill",
			Palette:     ModePalette(PaletteLight),
			Shapes: []Shape{
				{ID: "title-pill", Kind: KindPill, Anchor: AnchorCenter, Width: Px(500), Height: 100, Radius: 50, Opacity: opacity(0.9), OffsetY: -30},
				{ID: PhoneShapeID, Kind: KindPill, Anchor: AnchorCenter, Width: Px(280), Height: 50, Radius: 25, Opacity: opacity(0.9), OffsetY: 70},
			},
			Text: []TextBox{
				{Slot: SlotTitle, Area: "title-pill", Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 40, MaxSize: 70, Weight: 800, Upper: true},
				{Slot: SlotSubtitle, Area: AreaFree, Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 16, MaxSize: 20, Padding: 130, Shadow: true, Color: "#FFFFFF"},
				{Slot: SlotPhone, Area: PhoneShapeID, Align: AlignCenter, VAlign: VAlignMiddle, MaxLines: 1, MinSize: 18, MaxSize: 22, Weight: 600},
			},
		},
	}
}

// Catalog is an ordered, id-indexed set of templates.
type Catalog struct {
	specs []Spec
	index map[string]int
}

// NewCatalog builds a catalog from specs. Later specs replace earlier ones
// with the same id, keeping the earlier position.
func NewCatalog(specs ...Spec) *Catalog {
	c := &Catalog{index: make(map[string]int, len(specs))}
	for _, s := range specs {
		c.Add(s)
	}
	return c
}

// DefaultCatalog returns a catalog of the built-in templates.
func DefaultCatalog() *Catalog {
	return NewCatalog(Builtin()...)
}

// Add inserts or replaces a template.
func (c *Catalog) Add(s Spec) {
	if i, ok := c.index[s.ID]; ok {
		c.specs[i] = s
		return
	}
	c.index[s.ID] = len(c.specs)
	c.specs = append(c.specs, s)
}

// Get returns the template with the given id. A miss wraps
// ErrUnknownTemplate and names the closest ids, if any.
func (c *Catalog) Get(id string) (*Spec, error) {
	if i, ok := c.index[id]; ok {
		s := c.specs[i]
		return &s, nil
	}
	if hints := c.Suggest(id, 3); len(hints) > 0 {
		return nil, fmt.Errorf("%w %q (did you mean %v?)", ErrUnknownTemplate, id, hints)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownTemplate, id)
}

// List returns the templates in insertion order.
func (c *Catalog) List() []Spec {
	out := make([]Spec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.specs) }

// Suggest returns up to n template ids that fuzzily match query, best first.
// Both ids and display names are searched.
func (c *Catalog) Suggest(query string, n int) []string {
	if query == "" || n <= 0 {
		return nil
	}
	keys := make([]string, 0, 2*len(c.specs))
	owner := make([]int, 0, 2*len(c.specs))
	for i, s := range c.specs {
		keys = append(keys, s.ID, s.Name)
		owner = append(owner, i, i)
	}

	var out []string
	seen := make(map[int]bool)
	for _, m := range fuzzy.Find(query, keys) {
		i := owner[m.Index]
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, c.specs[i].ID)
		if len(out) == n {
			break
		}
	}
	return out
}
