// Package template holds the declarative sign-template model: specs, shapes,
// text boxes, the built-in catalog, loaders and the validation pass.
package template

import (
	"fmt"
	"slices"
)

// ReferenceWidth is the canvas width, in pixels, against which every size,
// padding and offset in a Spec is authored.
const ReferenceWidth = 1200

// MaxFontSize caps a text box's maxSize, in reference units.
const MaxFontSize = 1000

// ── Spec ──

// Spec is the declarative description of one sign layout.
// Shapes are drawn in declaration order and may only reference earlier
// shapes as parents. Text boxes are drawn after all shapes.
type Spec struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Palette     Palette   `json:"palette" yaml:"palette"`
	Shapes      []Shape   `json:"shapes" yaml:"shapes"`
	Text        []TextBox `json:"text" yaml:"text"`
}

// Shape is a decorative container drawn over the photo.
type Shape struct {
	ID      string    `json:"id" yaml:"id"`
	Kind    ShapeKind `json:"kind" yaml:"kind"`
	Anchor  Anchor    `json:"anchor" yaml:"anchor"`
	Parent  string    `json:"parent,omitempty" yaml:"parent,omitempty"`
	Width   Length    `json:"width" yaml:"width"`
	Height  float64   `json:"height" yaml:"height"`
	Radius  float64   `json:"radius,omitempty" yaml:"radius,omitempty"`
	Opacity *float64  `json:"opacity,omitempty" yaml:"opacity,omitempty"` // nil = 1
	OffsetX float64   `json:"offsetX,omitempty" yaml:"offsetX,omitempty"`
	OffsetY float64   `json:"offsetY,omitempty" yaml:"offsetY,omitempty"`
}

// Alpha returns the fill opacity clamped to [0, 1].
func (s Shape) Alpha() float64 {
	if s.Opacity == nil {
		return 1
	}
	return max(0, min(1, *s.Opacity))
}

// TextBox binds one content slot to a container.
type TextBox struct {
	Slot        Slot        `json:"id" yaml:"id"`
	Area        string      `json:"area" yaml:"area"` // AreaFree or a shape id
	Align       Align       `json:"align" yaml:"align"`
	VAlign      VAlign      `json:"verticalAlign,omitempty" yaml:"verticalAlign,omitempty"`
	Orientation Orientation `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	MaxLines    int         `json:"maxLines" yaml:"maxLines"`
	MinSize     float64     `json:"minSize" yaml:"minSize"`
	MaxSize     float64     `json:"maxSize" yaml:"maxSize"`
	Weight      int         `json:"weight,omitempty" yaml:"weight,omitempty"`
	Upper       bool        `json:"upper,omitempty" yaml:"upper,omitempty"`
	Shadow      bool        `json:"shadow,omitempty" yaml:"shadow,omitempty"`
	Stroke      bool        `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Padding     float64     `json:"padding" yaml:"padding"`
	Color       string      `json:"color,omitempty" yaml:"color,omitempty"`
}

// AreaFree places a text box directly over the photo, using the whole canvas.
const AreaFree = "free"

// IsFree reports whether the box is drawn over the photo rather than a shape.
func (tb TextBox) IsFree() bool { return tb.Area == AreaFree }

// FontWeight returns the declared weight, defaulting to 400.
func (tb TextBox) FontWeight() int {
	if tb.Weight <= 0 {
		return 400
	}
	return tb.Weight
}

// ── Content ──

// Texts carries the three editable strings.
type Texts struct {
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	Phone    string `json:"phone" yaml:"phone"`
}

// Get returns the string bound to slot.
func (t Texts) Get(slot Slot) string {
	switch slot {
	case SlotTitle:
		return t.Title
	case SlotSubtitle:
		return t.Subtitle
	case SlotPhone:
		return t.Phone
	}
	return ""
}

// Adjustments are the user-level toggles applied on top of a template.
// Per-box flags declare what an element can do; these declare what is
// permitted.
type Adjustments struct {
	Upper   bool        `json:"isUpper" yaml:"isUpper"`
	Shadow  bool        `json:"hasShadow" yaml:"hasShadow"`
	Stroke  bool        `json:"hasStroke" yaml:"hasStroke"`
	Palette PaletteMode `json:"palette" yaml:"palette"`
}

// DefaultAdjustments mirrors the editor's initial state.
func DefaultAdjustments() Adjustments {
	return Adjustments{Upper: true, Shadow: true, Palette: PaletteAuto}
}

// ── Tagged unions ──

// ShapeKind selects the corner-rounding convention of a shape.
type ShapeKind string

const (
	KindBar  ShapeKind = "bar"
	KindPill ShapeKind = "pill"
	KindBox  ShapeKind = "box"
)

// Anchor is a named reference position used to place a shape.
type Anchor string

const (
	AnchorTop         Anchor = "top"
	AnchorBottom      Anchor = "bottom"
	AnchorLeft        Anchor = "left"
	AnchorRight       Anchor = "right"
	AnchorCenter      Anchor = "center"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorTopRight    Anchor = "top-right"
)

// Align is horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// VAlign is vertical text alignment. The zero value means middle.
type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignMiddle VAlign = "middle"
	VAlignBottom VAlign = "bottom"
)

// Orientation selects between wrapped lines and a stacked glyph run.
// The zero value means horizontal.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Slot names one of the three editable strings.
type Slot string

const (
	SlotTitle    Slot = "title"
	SlotSubtitle Slot = "subtitle"
	SlotPhone    Slot = "phone"
)

// PaletteMode is a palette tag. The zero value means auto.
type PaletteMode string

const (
	PaletteAuto  PaletteMode = "auto"
	PaletteLight PaletteMode = "light"
	PaletteDark  PaletteMode = "dark"
)

var (
	shapeKinds   = []ShapeKind{KindBar, KindPill, KindBox}
	anchors      = []Anchor{AnchorTop, AnchorBottom, AnchorLeft, AnchorRight, AnchorCenter, AnchorBottomRight, AnchorTopRight}
	aligns       = []Align{AlignLeft, AlignCenter, AlignRight}
	valigns      = []VAlign{VAlignTop, VAlignMiddle, VAlignBottom}
	orientations = []Orientation{Horizontal, Vertical}
	slots        = []Slot{SlotTitle, SlotSubtitle, SlotPhone}
	paletteModes = []PaletteMode{PaletteAuto, PaletteLight, PaletteDark}
)

// parseEnum accepts s if it names one of allowed. Empty input yields def.
func parseEnum[T ~string](what, s string, def T, allowed []T) (T, error) {
	if s == "" {
		return def, nil
	}
	if v := T(s); slices.Contains(allowed, v) {
		return v, nil
	}
	return def, fmt.Errorf("unknown %s %q (want one of %v)", what, s, allowed)
}

func (k *ShapeKind) UnmarshalText(b []byte) (err error) {
	*k, err = parseEnum("shape kind", string(b), "", shapeKinds)
	if err == nil && *k == "" {
		err = fmt.Errorf("shape kind is required")
	}
	return err
}

func (a *Anchor) UnmarshalText(b []byte) (err error) {
	*a, err = parseEnum("anchor", string(b), AnchorCenter, anchors)
	return err
}

func (a *Align) UnmarshalText(b []byte) (err error) {
	*a, err = parseEnum("align", string(b), AlignCenter, aligns)
	return err
}

func (v *VAlign) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum("vertical align", string(b), VAlignMiddle, valigns)
	return err
}

func (o *Orientation) UnmarshalText(b []byte) (err error) {
	*o, err = parseEnum("orientation", string(b), Horizontal, orientations)
	return err
}

func (s *Slot) UnmarshalText(b []byte) (err error) {
	*s, err = parseEnum("text slot", string(b), "", slots)
	if err == nil && *s == "" {
		err = fmt.Errorf("text slot is required")
	}
	return err
}

func (m *PaletteMode) UnmarshalText(b []byte) (err error) {
	*m, err = parseEnum("palette", string(b), PaletteAuto, paletteModes)
	return err
}

// ParsePaletteMode parses a user-supplied palette tag.
func ParsePaletteMode(s string) (PaletteMode, error) {
	return parseEnum("palette", s, PaletteAuto, paletteModes)
}

// Resolved returns the effective vertical alignment.
func (v VAlign) Resolved() VAlign {
	if v == "" {
		return VAlignMiddle
	}
	return v
}

// Resolved returns the effective palette mode.
func (m PaletteMode) Resolved() PaletteMode {
	if m == "" {
		return PaletteAuto
	}
	return m
}
