// Package render maps lattice snapshots to RGBA pixels.
package render

import (
	"fmt"
	"image/color"

	"github.com/yshklarov/percolator/internal/lattice"
)

// Site colors, indexed by lattice.Status.
var palette = [...]color.RGBA{
	lattice.Closed:  {0x20, 0x20, 0x20, 0xff},
	lattice.Open:    {0xff, 0xff, 0xff, 0xff},
	lattice.Flooded: {0x00, 0x4c, 0xff, 0xff},
	lattice.Fresh:   {0x2c, 0xcd, 0xff, 0xff},
}

// clusterStep is added to the packed RGBA value for each successive
// cluster, starting from the flooded color for the largest one.
const clusterStep uint32 = 0x09315700

// Source is a lattice view a painter can draw; *engine.Snapshot satisfies it.
type Source interface {
	Width() int
	Height() int
	Sites() []lattice.Status
	Clusters() []lattice.Cluster
}

// StatusColor returns the color used for a site status.
func StatusColor(s lattice.Status) color.RGBA {
	if int(s) >= len(palette) {
		return palette[lattice.Open]
	}
	return palette[s]
}

// ClusterColor returns the color of the i-th cluster, largest first.
func ClusterColor(i int) color.RGBA {
	base := palette[lattice.Flooded]
	v := uint32(base.R)<<24 | uint32(base.G)<<16 | uint32(base.B)<<8 | uint32(base.A)
	v += uint32(i) * clusterStep
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// fillStatusRGBA converts site statuses into RGBA pixels in buf.
func fillStatusRGBA(buf []byte, sites []lattice.Status) {
	for i, s := range sites {
		c := StatusColor(s)
		base := i * 4
		buf[base+0] = c.R
		buf[base+1] = c.G
		buf[base+2] = c.B
		buf[base+3] = c.A
	}
}

// overlayClusters paints every cluster site with its cluster color.
func overlayClusters(buf []byte, width int, clusters []lattice.Cluster) {
	for i, cl := range clusters {
		c := ClusterColor(i)
		for _, p := range cl {
			base := (p.Y*width + p.X) * 4
			buf[base+0] = c.R
			buf[base+1] = c.G
			buf[base+2] = c.B
			buf[base+3] = c.A
		}
	}
}

// Pixels renders src into buf, growing it as needed, and returns it. With
// showClusters set, cluster sites take their cluster colors.
func Pixels(buf []byte, src Source, showClusters bool) []byte {
	n := 4 * src.Width() * src.Height()
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	fillStatusRGBA(buf, src.Sites())
	if showClusters {
		overlayClusters(buf, src.Width(), src.Clusters())
	}
	return buf
}
