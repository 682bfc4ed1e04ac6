// validator.go — Build-time validation of template specs.
package template

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Issue is a single structural problem found in a spec.
type Issue struct {
	Template string
	Element  string
	Problem  string
}

func (i *Issue) Error() string {
	if i.Element == "" {
		return fmt.Sprintf("template %q: %s", i.Template, i.Problem)
	}
	return fmt.Sprintf("template %q: %s: %s", i.Template, i.Element, i.Problem)
}

// Validate checks the structural invariants a renderer relies on:
// unique shape ids, parents that name an earlier shape, sane font-size
// bounds and at most one box per text slot. All problems are returned
// joined; use errors.As with *Issue to inspect them.
func Validate(s *Spec) error {
	var errs []error
	add := func(elem, format string, args ...any) {
		errs = append(errs, &Issue{Template: s.ID, Element: elem, Problem: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(s.ID) == "" {
		add("", "missing id")
	}

	seen := make(map[string]bool, len(s.Shapes))
	for i, sh := range s.Shapes {
		elem := fmt.Sprintf("shape[%d] %q", i, sh.ID)
		switch {
		case sh.ID == "":
			add(elem, "missing id")
		case sh.ID == AreaFree:
			add(elem, "id %q is reserved", AreaFree)
		case seen[sh.ID]:
			add(elem, "duplicate id")
		}
		switch sh.Kind {
		case KindBar, KindPill, KindBox:
		default:
			add(elem, "unknown kind %q", sh.Kind)
		}
		if sh.Anchor == "" && sh.Parent == "" {
			add(elem, "needs an anchor or a parent")
		}
		if sh.Parent != "" {
			switch {
			case sh.Parent == sh.ID:
				add(elem, "cannot be its own parent")
			case !seen[sh.Parent]:
				add(elem, "parent %q must be declared earlier", sh.Parent)
			}
		}
		if sh.Width.Value < 0 || sh.Height < 0 {
			add(elem, "negative size")
		}
		if sh.Width.Percent && sh.Width.Value > 100 {
			add(elem, "width %s exceeds the canvas", sh.Width)
		}
		seen[sh.ID] = true
	}

	slotsSeen := make(map[Slot]bool, len(s.Text))
	for i, tb := range s.Text {
		elem := fmt.Sprintf("text[%d] %q", i, tb.Slot)
		if slotsSeen[tb.Slot] {
			add(elem, "duplicate slot")
		}
		slotsSeen[tb.Slot] = true
		if tb.Area == "" {
			add(elem, "missing area")
		}
		if tb.MaxLines < 1 {
			add(elem, "maxLines must be at least 1")
		}
		if tb.MinSize <= 0 {
			add(elem, "minSize must be positive")
		}
		if math.IsNaN(tb.MinSize) || math.IsNaN(tb.MaxSize) || tb.MaxSize > MaxFontSize {
			add(elem, "font sizes must be finite and at most %v", float64(MaxFontSize))
		}
		if tb.MinSize > tb.MaxSize {
			add(elem, "minSize %v exceeds maxSize %v", tb.MinSize, tb.MaxSize)
		}
		if tb.Padding < 0 {
			add(elem, "negative padding")
		}
	}

	return errors.Join(errs...)
}

// Warnings lists soft problems that do not stop rendering: text boxes whose
// area names no shape are skipped at render time.
func Warnings(s *Spec) []string {
	ids := make(map[string]bool, len(s.Shapes))
	for _, sh := range s.Shapes {
		ids[sh.ID] = true
	}

	var warnings []string
	for _, tb := range s.Text {
		if tb.Area != "" && !tb.IsFree() && !ids[tb.Area] {
			warnings = append(warnings, fmt.Sprintf("text %q references unknown area %q (skipped)", tb.Slot, tb.Area))
		}
		if tb.Color != "" && !isHex(tb.Color) {
			warnings = append(warnings, fmt.Sprintf("text %q has malformed color %q", tb.Slot, tb.Color))
		}
	}
	if p := s.Palette.Fixed; p != nil {
		for _, c := range []string{p.Background, p.Foreground, p.Accent} {
			if c != "" && !isHex(c) {
				warnings = append(warnings, fmt.Sprintf("palette color %q is malformed", c))
			}
		}
	}
	return warnings
}

func isHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// FormatSchema returns a human-readable description of a template.
func FormatSchema(s *Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Template: %s (%s)\n", s.Name, s.ID)
	if s.Description != "" {
		b.WriteString(s.Description + "\n")
	}
	fmt.Fprintf(&b, "Palette: %s\n\nShapes:\n", s.Palette)
	for _, sh := range s.Shapes {
		where := string(sh.Anchor)
		if sh.Parent != "" {
			where = "below " + sh.Parent
		}
		fmt.Fprintf(&b, "  [%s] %-4s %-14s %sx%v\n", sh.ID, sh.Kind, where, sh.Width, sh.Height)
	}
	b.WriteString("\nText:\n")
	for _, tb := range s.Text {
		fmt.Fprintf(&b, "  %-9s in %-12s %s/%s, %d line(s), %v-%vpx\n",
			tb.Slot+":", tb.Area, tb.Align, tb.VAlign.Resolved(), tb.MaxLines, tb.MinSize, tb.MaxSize)
	}
	return b.String()
}
