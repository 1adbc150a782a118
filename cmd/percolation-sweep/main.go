package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	json "github.com/goccy/go-json"

	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/metrics"
	"github.com/yshklarov/percolator/internal/store"
	"github.com/yshklarov/percolator/internal/sweep"
)

func main() {
	width := flag.Int("width", 100, "lattice width in sites")
	height := flag.Int("height", 100, "lattice height in sites")
	from := flag.Float64("from", 0.50, "first probability")
	to := flag.Float64("to", 0.70, "last probability")
	step := flag.Float64("step", 0.01, "probability increment")
	trials := flag.Int("trials", 50, "lattices per probability")
	workers := flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	seed := flag.Int64("seed", 1, "seed for the per-trial fills")
	torusX := flag.Bool("torus-x", false, "join the left and right columns")
	torusY := flag.Bool("torus-y", false, "join the top and bottom rows for cluster search")
	dbPath := flag.String("db", "", "SQLite database to append results to")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Parse()

	ps, err := sweep.Range(*from, *to, *step)
	if err != nil {
		log.Fatal(err)
	}
	opts := sweep.Options{
		Width: *width, Height: *height,
		Probabilities: ps,
		Trials:        *trials,
		Workers:       *workers,
		Seed:          *seed,
		Torus:         lattice.Torus{X: *torusX, Y: *torusY},
	}
	if !*asJSON {
		fmt.Printf("Sweeping %d probabilities on %dx%d (%d trials, %d workers)\n", len(ps), *width, *height, *trials, *workers)
		opts.OnPoint = func(p sweep.Point) {
			fmt.Printf("  p=%.4f done\n", p.P)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := sweep.Run(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}

	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			log.Fatal(err)
		}
		id, err := s.SaveSweep(ctx, res)
		s.Close()
		if err != nil {
			log.Fatal(err)
		}
		if !*asJSON {
			fmt.Printf("Saved sweep %d to %s\n", id, *dbPath)
		}
	}

	if *asJSON {
		out := struct {
			sweep.Result
			Timings []metrics.TimingStats `json:"timings"`
		}{res, metrics.AllStats()}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatal(err)
		}
		return
	}

	fmt.Printf("\n%-8s %-10s %-22s %-10s (elapsed %s)\n", "p", "P(perc)", "largest cluster", "clusters", res.Elapsed.Round(time.Millisecond))
	for _, pt := range res.Points {
		fmt.Printf("%-8.4f %-10.3f %.4f ± %-13.4f %-10.1f\n", pt.P, pt.PercolationProbability, pt.LargestMean, pt.LargestStdDev, pt.ClustersMean)
	}
}
