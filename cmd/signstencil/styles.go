package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/render"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// table renders rows as left-aligned columns; the first row is the header.
func table(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for n, r := range rows {
		cells := make([]string, len(r))
		for i, cell := range r {
			st := lipgloss.NewStyle().Width(widths[i] + 2)
			switch {
			case n == 0:
				st = st.Inherit(headerStyle)
			case i == 0:
				st = st.Inherit(idStyle)
			}
			cells[i] = st.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteByte('\n')
	}
	return b.String()
}

// swatch renders c as a coloured block followed by its hex code.
func swatch(c colors.RGB) string {
	block := lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("    ")
	return block + " " + c.Hex()
}

func printTrace(w io.Writer, t *render.Trace) {
	fmt.Fprintf(w, "%s %dx%d scale %.3f\n", headerStyle.Render("canvas"), t.Width, t.Height, t.Scale)
	fmt.Fprintf(w, "%s bg %s  fg %s  accent %s\n", headerStyle.Render("palette"),
		swatch(t.Palette.Background), swatch(t.Palette.Foreground), swatch(t.Palette.Accent))

	rows := [][]string{{"SHAPE", "RECT", "RADIUS", "FILL", "OPACITY"}}
	for _, s := range t.Shapes {
		rows = append(rows, []string{s.ID, s.Rect.String(), fmt.Sprintf("%.1f", s.Radius), s.Fill.Hex(), fmt.Sprintf("%.2f", s.Opacity)})
	}
	fmt.Fprint(w, table(rows))

	rows = [][]string{{"SLOT", "AREA", "SIZE", "LINES", "COLOR", "RATIO"}}
	for _, tt := range t.Texts {
		if tt.Skipped != "" {
			rows = append(rows, []string{string(tt.Slot), tt.Area, mutedStyle.Render("skipped: " + tt.Skipped), "", "", ""})
			continue
		}
		lines := strings.Join(tt.Lines, " / ")
		if tt.Overflow {
			lines += warnStyle.Render(" (overflow)")
		}
		ratio := fmt.Sprintf("%.2f", tt.Color.Ratio)
		if tt.Color.Fixed {
			ratio = "fixed"
		}
		rows = append(rows, []string{string(tt.Slot), tt.Area, fmt.Sprintf("%gpx", tt.Size), lines, tt.Color.Color.Hex(), ratio})
	}
	fmt.Fprint(w, table(rows))
}
