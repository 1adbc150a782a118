package engine

import (
	"time"

	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/metrics"
)

// Snapshot is an owned copy of the lattice taken between phases. Nothing
// else references it once returned.
type Snapshot struct {
	// Version counts snapshots published by this engine.
	Version uint64
	// Generation counts completed fills; it changes only when the lattice
	// was refilled.
	Generation uint64
	TakenAt    time.Time

	lat *lattice.Lattice
}

// Width returns the number of columns.
func (s *Snapshot) Width() int { return s.lat.Width() }

// Height returns the number of rows.
func (s *Snapshot) Height() int { return s.lat.Height() }

// Status returns the status of the site at (x, y).
func (s *Snapshot) Status(x, y int) lattice.Status { return s.lat.Status(x, y) }

// Sites returns the row-major site statuses.
func (s *Snapshot) Sites() []lattice.Status { return s.lat.Sites() }

// Clusters returns the clusters, largest first.
func (s *Snapshot) Clusters() []lattice.Cluster { return s.lat.Clusters() }

// NumClusters returns the number of clusters.
func (s *Snapshot) NumClusters() int { return s.lat.NumClusters() }

// Done reports whether flooding had finished when the copy was taken.
func (s *Snapshot) Done() bool { return s.lat.DonePercolation() }

// Percolates reports whether the flood had reached the bottom row.
func (s *Snapshot) Percolates() bool { return s.lat.Percolates() }

// Lattice returns the copied lattice. The snapshot owns it exclusively, so
// the caller may read or modify it freely.
func (s *Snapshot) Lattice() *lattice.Lattice { return s.lat }

// Snapshot hands over the pending copy if one is ready. Otherwise it asks the
// worker for a copy when the lattice changed since the last one, and returns
// false; the copy is available to a later call.
//
// If a copy is being taken right now, the call returns false immediately
// unless callers have been waiting longer than timeout since the last
// delivery, in which case it blocks until that copy is done.
func (e *Engine) Snapshot(timeout time.Duration) (*Snapshot, bool) {
	if e.closed.Load() {
		return nil, false
	}
	if !e.snapMu.TryLock() {
		since := e.waitSince.Load()
		if since == 0 || time.Since(time.Unix(0, since)) < timeout {
			e.markWaiting()
			return nil, false
		}
		e.snapMu.Lock()
	}
	defer e.snapMu.Unlock()

	if s := e.pending; s != nil {
		e.pending = nil
		e.waitSince.Store(0)
		return s, true
	}
	if e.changed.Load() {
		e.reqMu.Lock()
		e.req.snapshot = true
		e.reqMu.Unlock()
		e.signal()
	}
	e.markWaiting()
	return nil, false
}

func (e *Engine) markWaiting() {
	e.waitSince.CompareAndSwap(0, time.Now().UnixNano())
}

func (e *Engine) dropPendingSnapshot() {
	e.snapMu.Lock()
	e.pending = nil
	e.snapMu.Unlock()
}

// publishIfRequested copies the lattice into the pending slot when a
// consumer asked for it. No copy is taken while a fill or reset is queued or
// when the last fill did not complete. Runs on the worker.
func (e *Engine) publishIfRequested() {
	e.reqMu.Lock()
	ready := e.req.snapshot && e.req.gen == genNone && e.complete && e.lat != nil
	if ready {
		e.req.snapshot = false
	}
	e.reqMu.Unlock()
	if !ready {
		return
	}

	defer metrics.Timer(metrics.SnapshotCopy)()
	e.snapMu.Lock()
	defer e.snapMu.Unlock()

	e.gridMu.Lock()
	copied := e.lat.Clone()
	gen := e.generation
	e.changed.Store(false)
	e.gridMu.Unlock()

	e.version++
	e.pending = &Snapshot{
		Version:    e.version,
		Generation: gen,
		TakenAt:    time.Now(),
		lat:        copied,
	}
	e.stats.published.Add(1)
	e.logEvent(LogLevelTrace, "snapshot_published", map[string]any{
		"version": e.version,
		"width":   copied.Width(),
		"height":  copied.Height(),
	})
}
