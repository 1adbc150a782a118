package render

import (
	"image/color"
	"testing"

	"github.com/yshklarov/percolator/internal/core"
	"github.com/yshklarov/percolator/internal/lattice"
)

type fakeSource struct {
	w, h     int
	sites    []lattice.Status
	clusters []lattice.Cluster
}

func (f fakeSource) Width() int                  { return f.w }
func (f fakeSource) Height() int                 { return f.h }
func (f fakeSource) Sites() []lattice.Status     { return f.sites }
func (f fakeSource) Clusters() []lattice.Cluster { return f.clusters }

func pixelAt(buf []byte, i int) color.RGBA {
	return color.RGBA{buf[4*i], buf[4*i+1], buf[4*i+2], buf[4*i+3]}
}

func TestPixelsMapStatuses(t *testing.T) {
	src := fakeSource{w: 2, h: 2, sites: []lattice.Status{lattice.Closed, lattice.Open, lattice.Flooded, lattice.Fresh}}
	buf := Pixels(nil, src, false)
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	for i, s := range src.sites {
		if got := pixelAt(buf, i); got != StatusColor(s) {
			t.Fatalf("pixel %d = %v, want %v", i, got, StatusColor(s))
		}
	}
	if StatusColor(lattice.Status(42)) != StatusColor(lattice.Open) {
		t.Fatal("unknown status should render as open")
	}
}

func TestPixelsReusesBuffer(t *testing.T) {
	src := fakeSource{w: 1, h: 1, sites: []lattice.Status{lattice.Open}}
	buf := make([]byte, 0, 64)
	out := Pixels(buf, src, false)
	if &out[0] != &buf[:1][0] {
		t.Fatal("buffer with enough capacity was reallocated")
	}
}

func TestClusterOverlay(t *testing.T) {
	src := fakeSource{
		w: 3, h: 1,
		sites: []lattice.Status{lattice.Open, lattice.Closed, lattice.Open},
		clusters: []lattice.Cluster{
			{core.Coord{X: 2, Y: 0}},
			{core.Coord{X: 0, Y: 0}},
		},
	}
	buf := Pixels(nil, src, true)
	if got := pixelAt(buf, 2); got != StatusColor(lattice.Flooded) {
		t.Fatalf("largest cluster = %v, want flooded color", got)
	}
	if got := pixelAt(buf, 0); got != ClusterColor(1) || got == ClusterColor(0) {
		t.Fatalf("second cluster = %v", got)
	}
	if got := pixelAt(buf, 1); got != StatusColor(lattice.Closed) {
		t.Fatalf("closed site = %v", got)
	}
}

func TestHex(t *testing.T) {
	if got := Hex(StatusColor(lattice.Flooded)); got != "#004cff" {
		t.Fatalf("Hex = %s", got)
	}
}
