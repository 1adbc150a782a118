package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	json "github.com/goccy/go-json"

	"github.com/yshklarov/percolator/internal/config"
	"github.com/yshklarov/percolator/internal/debug"
	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/session"
	"github.com/yshklarov/percolator/internal/watch"
)

const pollInterval = 5 * time.Millisecond

var errTimeout = errors.New("timed out waiting for percolation")

func main() {
	fs := flag.NewFlagSet("percolate", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	printLattice := fs.Bool("print", false, "draw the lattice, one character per site")
	timeout := fs.Duration("timeout", time.Minute, "give up waiting for a run after this long")
	watchConfig := fs.Bool("watch", false, "re-run whenever the -config file changes")
	cfg, path, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if *watchConfig && path == "" {
		log.Fatal("-watch requires -config")
	}

	eng, err := cfg.NewEngine()
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()
	sess := session.New(eng, cfg.SessionOptions())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &runner{eng: eng, sess: sess, asJSON: *asJSON, print: *printLattice, timeout: *timeout}
	if err := r.run(ctx); err != nil {
		log.Fatal(err)
	}
	if !*watchConfig {
		return
	}

	w, err := watch.New(path, watch.WithOnError(func(err error) { log.Printf("watch: %v", err) }))
	if err != nil {
		log.Fatal(err)
	}
	if err := w.Start(); err != nil {
		log.Fatal(err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Changed():
			next, err := config.LoadFrom(path)
			if err == nil {
				next, err = config.Overlay(next, fs)
			}
			if err == nil {
				err = next.Apply(eng)
			}
			if err != nil {
				log.Printf("config %s: %v", path, err)
				continue
			}
			debug.Log("config reloaded from %s", path)
			if mode, err := session.ParseMode(next.Mode); err == nil {
				sess.SetMode(mode)
			}
			if err := r.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Print(err)
			}
		}
	}
}

type runner struct {
	eng     *engine.Engine
	sess    *session.Session
	asJSON  bool
	print   bool
	timeout time.Duration
	lastGen uint64
}

// run percolates the newest lattice, waits for a finished copy of a fill
// newer than the last one reported and prints the summary.
func (r *runner) run(ctx context.Context) error {
	start := time.Now()
	if r.sess.Mode() == session.ModeClusters {
		r.eng.FindClusters()
	} else {
		r.eng.FlowFully()
	}
	snap, err := r.waitDone(ctx)
	if err != nil {
		return err
	}
	r.lastGen = snap.Generation
	s := summarize(snap, r.eng, r.sess.Mode().String())
	s.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000
	if r.print {
		s.latticeText = latticeText(snap)
	}
	if r.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	s.writeText(os.Stdout)
	return nil
}

func (r *runner) waitDone(ctx context.Context) (*engine.Snapshot, error) {
	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if snap, ok := r.eng.Snapshot(r.timeout); ok && snap.Done() && snap.Generation > r.lastGen {
			return snap, nil
		}
		if r.eng.HasErrors() && !r.eng.DonePercolation() {
			if _, busy := r.eng.Busy(); !busy {
				return nil, fmt.Errorf("engine failed: %v", r.eng.Errors())
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errTimeout
		case <-ticker.C:
		}
	}
}
