//go:build ebiten

package ui

import (
	"fmt"
	"image/color"

	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type sizeProvider interface {
	ClusterSizes() ([]engine.SizeCount, bool)
}

// Overlay draws the help text and the cluster size histogram on top of
// the lattice view.
type Overlay struct {
	sizes    sizeProvider
	showHelp bool
	showHist bool
	cached   []engine.SizeCount
	pixel    *ebiten.Image
}

// NewOverlay constructs an overlay reading histograms from sizes.
func NewOverlay(sizes sizeProvider) *Overlay {
	o := &Overlay{sizes: sizes}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles the overlay layers and refreshes the histogram. A
// histogram that is being recomputed keeps the previous one on screen.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeySlash) {
		o.showHelp = !o.showHelp
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		o.showHist = !o.showHist
	}
	if o.showHist {
		if sizes, ok := o.sizes.ClusterSizes(); ok {
			o.cached = sizes
		}
	}
}

// Draw renders the enabled layers into a side x side area.
func (o *Overlay) Draw(screen *ebiten.Image, side int) {
	if o.showHist {
		o.drawHistogram(screen, side)
	}
	if o.showHelp {
		o.drawRect(screen, 8, 8, 300, float64(len(helpLines)*statusLine+16), color.RGBA{A: 200})
		for i, line := range helpLines {
			drawText(screen, line, 16, 16+i*statusLine, labelColor)
		}
	}
}

func (o *Overlay) drawHistogram(screen *ebiten.Image, side int) {
	const (
		barWidth = 6
		maxBars  = 48
	)
	height := side / 3
	bars := histogramBars(o.cached, maxBars, height-24)
	if len(bars) == 0 {
		return
	}
	left := 8.0
	bottom := float64(side - 8)
	o.drawRect(screen, left, bottom-float64(height), float64(len(bars)*barWidth+16), float64(height), color.RGBA{A: 200})
	for i, b := range bars {
		c := render.ClusterColor(i)
		x := left + 8 + float64(i*barWidth)
		o.drawRect(screen, x, bottom-8-float64(b.Height), barWidth-1, float64(b.Height), c)
	}
	largest := bars[0]
	drawText(screen, fmt.Sprintf("largest %d (x%d)", largest.Size, largest.Count), int(left)+8, int(bottom)-height+4, labelColor)
}

func (o *Overlay) drawRect(dst *ebiten.Image, x, y, w, h float64, c color.Color) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	dst.DrawImage(o.pixel, op)
}
