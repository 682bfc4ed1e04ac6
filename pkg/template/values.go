// values.go — Union-valued fields: palettes and lengths.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ── Palette ──

// FixedPalette is an explicit color triple ("#rrggbb").
type FixedPalette struct {
	Background string `json:"background" yaml:"background"`
	Foreground string `json:"foreground" yaml:"foreground"`
	Accent     string `json:"accent,omitempty" yaml:"accent,omitempty"`
}

// Palette is either a mode tag or a fixed color triple. Exactly one of Mode
// and Fixed is meaningful: a non-nil Fixed wins.
type Palette struct {
	Mode  PaletteMode
	Fixed *FixedPalette
}

// ModePalette returns a tag-only palette.
func ModePalette(m PaletteMode) Palette { return Palette{Mode: m} }

// IsFixed reports whether the palette carries explicit colors.
func (p Palette) IsFixed() bool { return p.Fixed != nil }

func (p Palette) String() string {
	if p.Fixed != nil {
		return fmt.Sprintf("fixed(%s/%s)", p.Fixed.Background, p.Fixed.Foreground)
	}
	return string(p.Mode.Resolved())
}

// fixedAliases accepts the short bg/fg keys used by hand-written templates.
type fixedAliases struct {
	Background string `json:"background" yaml:"background"`
	Foreground string `json:"foreground" yaml:"foreground"`
	Accent     string `json:"accent" yaml:"accent"`
	BG         string `json:"bg" yaml:"bg"`
	FG         string `json:"fg" yaml:"fg"`
}

func (a fixedAliases) palette() (*FixedPalette, error) {
	fp := &FixedPalette{
		Background: firstNonEmpty(a.Background, a.BG),
		Foreground: firstNonEmpty(a.Foreground, a.FG),
		Accent:     a.Accent,
	}
	if fp.Background == "" || fp.Foreground == "" {
		return nil, fmt.Errorf("fixed palette needs background and foreground")
	}
	return fp, nil
}

func (p *Palette) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Palette{}
		return p.Mode.UnmarshalText([]byte(s))
	}
	var a fixedAliases
	if err := json.Unmarshal(b, &a); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	fp, err := a.palette()
	if err != nil {
		return err
	}
	*p = Palette{Fixed: fp}
	return nil
}

func (p Palette) MarshalJSON() ([]byte, error) {
	if p.Fixed != nil {
		return json.Marshal(p.Fixed)
	}
	return json.Marshal(string(p.Mode.Resolved()))
}

func (p *Palette) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*p = Palette{}
		return p.Mode.UnmarshalText([]byte(n.Value))
	}
	var a fixedAliases
	if err := n.Decode(&a); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	fp, err := a.palette()
	if err != nil {
		return err
	}
	*p = Palette{Fixed: fp}
	return nil
}

func (p Palette) MarshalYAML() (any, error) {
	if p.Fixed != nil {
		return p.Fixed, nil
	}
	return string(p.Mode.Resolved()), nil
}

// ── Length ──

// Length is a shape width: pixels at the reference width, or a percentage
// of the actual canvas width.
type Length struct {
	Value   float64
	Percent bool
}

// Px returns an absolute length at the reference width.
func Px(v float64) Length { return Length{Value: v} }

// Pct returns a percentage-of-canvas length.
func Pct(v float64) Length { return Length{Value: v, Percent: true} }

// ParseLength parses "240", "240px" or "30%".
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	num := strings.TrimSuffix(strings.TrimSuffix(s, "%"), "px")
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	return Length{Value: v, Percent: pct}, nil
}

func (l Length) String() string {
	if l.Percent {
		return strconv.FormatFloat(l.Value, 'f', -1, 64) + "%"
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64)
}

func (l *Length) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseLength(s)
		if err != nil {
			return err
		}
		*l = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("width: %w", err)
	}
	*l = Px(f)
	return nil
}

func (l Length) MarshalJSON() ([]byte, error) {
	if l.Percent {
		return json.Marshal(l.String())
	}
	return json.Marshal(l.Value)
}

func (l *Length) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("width: expected number or percentage, got %s", n.Tag)
	}
	v, err := ParseLength(n.Value)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l Length) MarshalYAML() (any, error) {
	if l.Percent {
		return l.String(), nil
	}
	return l.Value, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
