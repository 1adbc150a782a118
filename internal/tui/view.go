package tui

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yshklarov/percolator/internal/render"
)

const halfBlock = "▀"

// cellKey identifies the style of one terminal cell: the upper and lower
// pixel colors.
type cellKey struct{ top, bottom color.RGBA }

// latticeView draws lattice snapshots as half-block characters, two sites
// per terminal cell, sampling when the lattice exceeds the area.
type latticeView struct {
	buf    []byte
	styles map[cellKey]lipgloss.Style
}

func newLatticeView() *latticeView {
	return &latticeView{styles: make(map[cellKey]lipgloss.Style)}
}

// stride returns how many sites each drawn pixel covers along both axes.
func stride(w, h, cols, rows int) int {
	if cols <= 0 || rows <= 0 {
		return 0
	}
	s := max((w+cols-1)/cols, (h+2*rows-1)/(2*rows), 1)
	return s
}

func (v *latticeView) style(k cellKey) lipgloss.Style {
	if st, ok := v.styles[k]; ok {
		return st
	}
	st := lipgloss.NewStyle().
		Foreground(lipgloss.Color(render.Hex(k.top))).
		Background(lipgloss.Color(render.Hex(k.bottom)))
	v.styles[k] = st
	return st
}

// Render returns src drawn into at most cols x rows cells.
func (v *latticeView) Render(src render.Source, showClusters bool, cols, rows int) string {
	w, h := src.Width(), src.Height()
	s := stride(w, h, cols, rows)
	if s == 0 {
		return ""
	}
	v.buf = render.Pixels(v.buf, src, showClusters)
	at := func(x, y int) color.RGBA {
		i := 4 * (y*w + x)
		return color.RGBA{v.buf[i], v.buf[i+1], v.buf[i+2], v.buf[i+3]}
	}
	background := color.RGBA{A: 0xff}

	var b strings.Builder
	for y := 0; y < h; y += 2 * s {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < w; x += s {
			k := cellKey{top: at(x, y), bottom: background}
			if y+s < h {
				k.bottom = at(x, y+s)
			}
			b.WriteString(v.style(k).Render(halfBlock))
		}
	}
	return b.String()
}
