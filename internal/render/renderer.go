//go:build ebiten

package render

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter keeps a single RGBA image in sync with a lattice snapshot.
type GridPainter struct {
	w, h    int
	img     *ebiten.Image
	buf     []byte
	version uint64
}

// NewGridPainter allocates a painter for a w*h lattice.
func NewGridPainter(w, h int) *GridPainter {
	gp := &GridPainter{}
	gp.resize(w, h)
	return gp
}

func (gp *GridPainter) resize(w, h int) {
	if gp.img != nil {
		gp.img.Deallocate()
	}
	gp.w, gp.h = w, h
	gp.img = ebiten.NewImage(w, h)
	gp.version = 0
}

// Upload repaints the image from src when version differs from the last
// upload. The image is reallocated if the lattice dimensions changed.
func (gp *GridPainter) Upload(src Source, version uint64, showClusters bool) {
	if src == nil {
		return
	}
	if src.Width() != gp.w || src.Height() != gp.h {
		gp.resize(src.Width(), src.Height())
	}
	if version != 0 && version == gp.version {
		return
	}
	gp.buf = Pixels(gp.buf, src, showClusters)
	gp.img.WritePixels(gp.buf)
	gp.version = version
}

// Invalidate forces the next Upload to repaint.
func (gp *GridPainter) Invalidate() { gp.version = 0 }

// Blit draws the current image into dst scaled to fit a side x side square.
func (gp *GridPainter) Blit(dst *ebiten.Image, side int) {
	if gp.w == 0 || gp.h == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(side)/float64(gp.w), float64(side)/float64(gp.h))
	op.Filter = ebiten.FilterNearest
	dst.DrawImage(gp.img, op)
}

// Size returns the dimensions of the underlying image.
func (gp *GridPainter) Size() (int, int) { return gp.w, gp.h }
