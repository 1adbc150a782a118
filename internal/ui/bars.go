package ui

import (
	"math"

	"github.com/yshklarov/percolator/internal/engine"
)

// bar is one column of the cluster size histogram.
type bar struct {
	Size   int
	Count  int
	Height int
}

// histogramBars turns a size histogram into at most maxBars columns, the
// largest clusters first. Heights are log-scaled counts in [1, height].
func histogramBars(sizes []engine.SizeCount, maxBars, height int) []bar {
	if len(sizes) > maxBars {
		sizes = sizes[:maxBars]
	}
	top := 0
	for _, sc := range sizes {
		top = max(top, sc.Count)
	}
	if top == 0 || height <= 0 {
		return nil
	}
	out := make([]bar, len(sizes))
	scale := math.Log1p(float64(top))
	for i, sc := range sizes {
		h := int(math.Round(float64(height) * math.Log1p(float64(sc.Count)) / scale))
		out[i] = bar{Size: sc.Size, Count: sc.Count, Height: max(h, 1)}
	}
	return out
}

// helpLines lists the key bindings shown by the help overlay.
var helpLines = []string{
	"G      regenerate",
	"P      percolate",
	"N      flow one step",
	"F      start/stop flow",
	"C      clear percolation",
	"M      toggle mode (flow/clusters)",
	"A      toggle auto-percolate",
	"L      toggle auto-flow",
	"K      toggle auto-find",
	"D      toggle flow direction",
	"H      cluster histogram",
	"?      this help",
	"Q      quit",
}
