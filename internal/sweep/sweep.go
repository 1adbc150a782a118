// Package sweep estimates percolation statistics over a range of open
// probabilities by filling many independent Bernoulli lattices.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/metrics"
	pcore "github.com/yshklarov/percolator/pkg/core"
)

// Options describes one sweep.
type Options struct {
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Probabilities []float64 `json:"probabilities"`
	Trials        int       `json:"trials"`
	Workers       int       `json:"workers"`
	Seed          int64     `json:"seed"`
	// Torus applies to cluster search. Top-to-bottom crossing always
	// ignores the vertical wrap.
	Torus lattice.Torus `json:"torus"`

	// OnPoint, if set, is called once per finished probability, from the
	// worker goroutine that computed it.
	OnPoint func(Point) `json:"-"`
}

// Point summarizes the trials at one probability.
type Point struct {
	P                      float64 `json:"p"`
	Trials                 int     `json:"trials"`
	Percolated             int     `json:"percolated"`
	PercolationProbability float64 `json:"percolation_probability"`
	LargestMean            float64 `json:"largest_cluster_mean"`
	LargestStdDev          float64 `json:"largest_cluster_stddev"`
	ClustersMean           float64 `json:"clusters_mean"`
}

// Result is a completed sweep.
type Result struct {
	Options Options       `json:"options"`
	Points  []Point       `json:"points"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Validate reports every invalid option.
func (o Options) Validate() error {
	var errs []error
	if o.Width < 1 || o.Height < 1 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", o.Width, o.Height))
	}
	if o.Trials < 1 {
		errs = append(errs, fmt.Errorf("trials must be positive, got %d", o.Trials))
	}
	if len(o.Probabilities) == 0 {
		errs = append(errs, errors.New("no probabilities to sweep"))
	}
	for _, p := range o.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("probability %g outside [0,1]", p))
		}
	}
	return errors.Join(errs...)
}

// Range returns from, from+step, ... up to and including to, within a
// small tolerance.
func Range(from, to, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g", step)
	}
	if to < from {
		return nil, fmt.Errorf("empty range [%g,%g]", from, to)
	}
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out, nil
}

// Run performs the sweep. Trials draw their seeds from Seed in a fixed
// order, so the result does not depend on Workers. Cancelling ctx stops
// all workers and returns ctx's error.
func Run(ctx context.Context, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	start := time.Now()

	rng := pcore.NewRNG(opts.Seed)
	seeds := make([][]uint64, len(opts.Probabilities))
	for i := range seeds {
		seeds[i] = make([]uint64, opts.Trials)
		for t := range seeds[i] {
			seeds[i][t] = rng.Seed()
		}
	}

	points := make([]Point, len(opts.Probabilities))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, p := range opts.Probabilities {
		g.Go(func() error {
			pt, err := runPoint(ctx, opts, p, seeds[i])
			if err != nil {
				return err
			}
			points[i] = pt
			if opts.OnPoint != nil {
				opts.OnPoint(pt)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Options: opts, Points: points, Elapsed: time.Since(start)}, nil
}

// runPoint runs every trial at probability p on one reused lattice.
func runPoint(ctx context.Context, opts Options, p float64, seeds []uint64) (Point, error) {
	lat, err := lattice.New(opts.Width, opts.Height, 0)
	if err != nil {
		return Point{}, err
	}
	lat.SetFlowDirection(lattice.FlowTop)
	// Crossing is measured without the vertical wrap: with it the top
	// entryways touch the bottom row directly.
	crossing := lattice.Torus{X: opts.Torus.X}
	abort := lattice.Abort(func() bool { return ctx.Err() != nil })
	area := float64(opts.Width * opts.Height)

	largest := make([]float64, len(seeds))
	clusters := make([]float64, len(seeds))
	pt := Point{P: p, Trials: len(seeds)}
	for t, seed := range seeds {
		stop := metrics.Timer(metrics.Fill)
		ok := lat.Fill(lattice.Bernoulli{P: p, Seed: seed}, abort)
		stop()
		if !ok {
			return Point{}, ctx.Err()
		}

		stop = metrics.Timer(metrics.FlowFully)
		lat.SetTorus(crossing)
		lat.FlowFully(abort)
		stop()
		if ctx.Err() != nil {
			return Point{}, ctx.Err()
		}
		if lat.Percolates() {
			pt.Percolated++
		}

		stop = metrics.Timer(metrics.FindClusters)
		lat.SetTorus(opts.Torus)
		ok = lat.FindClusters(abort)
		stop()
		if !ok {
			return Point{}, ctx.Err()
		}
		maxSize := 0
		for _, s := range lat.ClusterSizes() {
			maxSize = max(maxSize, s)
		}
		largest[t] = float64(maxSize) / area
		clusters[t] = float64(lat.NumClusters())
	}

	pt.PercolationProbability = float64(pt.Percolated) / float64(pt.Trials)
	if len(largest) > 1 {
		pt.LargestMean, pt.LargestStdDev = stat.MeanStdDev(largest, nil)
	} else {
		pt.LargestMean = largest[0]
	}
	pt.ClustersMean = stat.Mean(clusters, nil)
	return pt, nil
}
