package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/metrics"
)

// summary is what one run reports.
type summary struct {
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Measure     string                `json:"measure"`
	Mode        string                `json:"mode"`
	Generation  uint64                `json:"generation"`
	OpenSites   int                   `json:"open_sites"`
	Flooded     int                   `json:"flooded_sites"`
	Percolates  bool                  `json:"percolates"`
	Clusters    int                   `json:"clusters"`
	Largest     float64               `json:"largest_cluster_percent"`
	Sizes       []engine.SizeCount    `json:"cluster_sizes,omitempty"`
	Errors      []string              `json:"errors,omitempty"`
	Timings     []metrics.TimingStats `json:"timings,omitempty"`
	ElapsedMs   float64               `json:"elapsed_ms"`
	latticeText string
}

func summarize(snap *engine.Snapshot, eng *engine.Engine, mode string) summary {
	s := summary{
		Width:      snap.Width(),
		Height:     snap.Height(),
		Measure:    eng.Measure().Name(),
		Mode:       mode,
		Generation: snap.Generation,
		Clusters:   snap.NumClusters(),
	}
	for _, st := range snap.Sites() {
		switch st {
		case lattice.Open:
			s.OpenSites++
		case lattice.Flooded, lattice.Fresh:
			s.OpenSites++
			s.Flooded++
		}
	}
	if mode == "flow" {
		s.Percolates = snap.Percolates()
	}
	if s.Clusters > 0 {
		s.Largest = eng.LargestClusterShare()
		if sizes, ok := eng.ClusterSizes(); ok {
			s.Sizes = sizes
		}
	}
	for _, err := range eng.Errors() {
		s.Errors = append(s.Errors, err.Error())
	}
	s.Timings = metrics.AllStats()
	return s
}

// latticeText draws the snapshot with one character per site.
func latticeText(snap *engine.Snapshot) string {
	var b strings.Builder
	for y := 0; y < snap.Height(); y++ {
		for x := 0; x < snap.Width(); x++ {
			switch snap.Status(x, y) {
			case lattice.Closed:
				b.WriteByte('#')
			case lattice.Open:
				b.WriteByte('.')
			case lattice.Fresh:
				b.WriteByte('*')
			default:
				b.WriteByte('~')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (s summary) writeText(w io.Writer) {
	fmt.Fprintf(w, "lattice     %dx%d (%s, generation %d)\n", s.Width, s.Height, s.Measure, s.Generation)
	fmt.Fprintf(w, "open sites  %d of %d\n", s.OpenSites, s.Width*s.Height)
	if s.Mode == "flow" {
		fmt.Fprintf(w, "flooded     %d\n", s.Flooded)
		fmt.Fprintf(w, "percolates  %t\n", s.Percolates)
	} else {
		fmt.Fprintf(w, "clusters    %d (largest %.2f%% of sites)\n", s.Clusters, s.Largest)
		for i, sc := range s.Sizes {
			if i == 5 {
				fmt.Fprintf(w, "            ...\n")
				break
			}
			fmt.Fprintf(w, "            %d x %d sites\n", sc.Count, sc.Size)
		}
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "error       %s\n", e)
	}
	fmt.Fprintf(w, "elapsed     %.1f ms\n", s.ElapsedMs)
	if s.latticeText != "" {
		fmt.Fprint(w, "\n"+s.latticeText)
	}
}
