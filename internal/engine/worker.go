package engine

import (
	"sync/atomic"
	"time"

	"github.com/yshklarov/percolator/internal/debug"
	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/metrics"
)

func (e *Engine) run() {
	defer close(e.workerEnd)
	for e.ctx.Err() == nil {
		ph, flag := e.next()
		if ph == phaseIdle {
			e.publishIfRequested()
			e.idle()
			continue
		}
		start := time.Now()
		perr := safeCompute(ph.String(), func() error { return e.runPhase(ph, flag) })
		flag.Store(false)
		e.stats.phasesRun.Add(1)
		e.recordError(perr)
		e.logEvent(LogLevelTrace, "phase_done", map[string]any{
			"phase":       ph.String(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})
	}
}

// next takes the highest-priority intent and marks its phase running while
// still holding the intent lock, so a superseding request always either
// coalesces into the pending intent or aborts the phase.
func (e *Engine) next() (phase, *atomic.Bool) {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	ph := e.req.take()
	flag := e.flagFor(ph)
	if flag != nil {
		flag.Store(true)
	}
	return ph, flag
}

func (e *Engine) flagFor(ph phase) *atomic.Bool {
	switch ph {
	case phaseReset:
		return &e.runReset
	case phaseFill:
		return &e.runFill
	case phaseFlowFully, phaseFindClusters:
		return &e.runPercolation
	case phaseEntryways, phaseStep:
		return &e.runGeneric
	}
	return nil
}

func (e *Engine) idle() {
	t := time.NewTimer(e.idlePoll)
	defer t.Stop()
	select {
	case <-e.wake:
	case <-e.ctx.Done():
	case <-t.C:
	}
}

func (e *Engine) abortFor(flag *atomic.Bool) lattice.Abort {
	return func() bool { return !flag.Load() || e.closed.Load() }
}

func (e *Engine) runPhase(ph phase, flag *atomic.Bool) error {
	switch ph {
	case phaseReset:
		e.reset(flag)
	case phaseEntryways:
		e.entryways(flag)
	case phaseFill:
		return e.fill(flag)
	case phaseFlowFully:
		e.flowFully(flag)
	case phaseFindClusters:
		e.findClusters(flag)
	case phaseStep:
		e.step(flag)
	}
	return nil
}

// withLattice runs fn with the grid lock held. fn is skipped when no
// completely filled lattice exists.
func (e *Engine) withLattice(fn func(l *lattice.Lattice)) bool {
	e.gridMu.Lock()
	defer e.gridMu.Unlock()
	if e.lat == nil || !e.complete {
		return false
	}
	e.changed.Store(true)
	fn(e.lat)
	e.publishState()
	return true
}

// publishState exposes lattice-derived queries. Caller holds gridMu. While
// a fill or reset is queued the queries keep describing that pending
// lattice, not the one the worker just finished with.
func (e *Engine) publishState() {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	if e.lat == nil || e.req.gen != genNone {
		e.clearState()
		return
	}
	e.numClusters.Store(int64(e.lat.NumClusters()))
	e.done.Store(e.lat.DonePercolation())
}

// clearState reports an unpercolated lattice without clusters. Caller holds
// reqMu.
func (e *Engine) clearState() {
	e.numClusters.Store(0)
	e.done.Store(false)
}

func (e *Engine) percolationPending() bool {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	return e.req.percolationPending()
}

// finish publishes a requested snapshot after a phase that ran to the end,
// and counts one that did not.
func (e *Engine) finish(ph phase, flag *atomic.Bool) {
	if !flag.Load() {
		e.stats.cancelled.Add(1)
		e.logEvent(LogLevelDebug, "phase_cancelled", map[string]any{"phase": ph.String()})
		return
	}
	e.publishIfRequested()
}

func (e *Engine) reset(flag *atomic.Bool) {
	if !e.withLattice(func(l *lattice.Lattice) { l.ResetPercolation() }) {
		return
	}
	e.clearClusterSizes()
	// Publishing here would flash an un-flooded lattice before the queued
	// percolation lands.
	if e.percolationPending() {
		return
	}
	e.finish(phaseReset, flag)
}

func (e *Engine) entryways(flag *atomic.Bool) {
	cfg := e.currentSettings()
	if !e.withLattice(func(l *lattice.Lattice) {
		l.SetFlowDirection(cfg.direction)
		l.FloodEntryways()
	}) {
		return
	}
	e.finish(phaseEntryways, flag)
}

func (e *Engine) fill(flag *atomic.Bool) error {
	defer metrics.Timer(metrics.Fill)()
	cfg := e.currentSettings()
	e.dropPendingSnapshot()

	var allocErr error
	ok := func() bool {
		e.gridMu.Lock()
		defer e.gridMu.Unlock()
		e.changed.Store(true)
		e.complete = false
		if e.lat == nil || e.lat.Size() != cfg.size {
			e.lat = nil
			l, err := lattice.New(cfg.size.W, cfg.size.H, cfg.maxSites)
			if err != nil {
				allocErr = err
				l = lattice.MustNew(1, 1)
			}
			e.lat = l
			debug.Log("allocated %dx%d lattice", e.lat.Width(), e.lat.Height())
		}
		e.lat.SetFlowDirection(cfg.direction)
		e.lat.SetTorus(cfg.torus)
		done := e.lat.Fill(cfg.measure, e.abortFor(flag))
		if done {
			e.complete = true
			e.generation++
		}
		e.publishState()
		return done
	}()
	e.clearClusterSizes()

	// Same as reset: hold the snapshot until queued percolation has run.
	if !ok || !e.percolationPending() {
		e.finish(phaseFill, flag)
	}
	return allocErr
}

func (e *Engine) flowFully(flag *atomic.Bool) {
	defer metrics.Timer(metrics.FlowFully)()
	cfg := e.currentSettings()
	if !e.withLattice(func(l *lattice.Lattice) {
		l.SetFlowDirection(cfg.direction)
		l.SetTorus(cfg.torus)
		l.FlowFully(e.abortFor(flag))
	}) {
		return
	}
	e.finish(phaseFlowFully, flag)
}

func (e *Engine) findClusters(flag *atomic.Bool) {
	defer metrics.Timer(metrics.FindClusters)()
	cfg := e.currentSettings()
	var sizes []int
	var area int
	if !e.withLattice(func(l *lattice.Lattice) {
		l.SetTorus(cfg.torus)
		if l.FindClusters(e.abortFor(flag)) {
			l.SortClusters()
			sizes = l.ClusterSizes()
		}
		area = l.Size().Area()
	}) {
		return
	}
	e.finish(phaseFindClusters, flag)
	if sizes != nil {
		e.computeClusterSizes(sizes, area)
	} else {
		e.clearClusterSizes()
	}
}

func (e *Engine) step(flag *atomic.Bool) {
	defer metrics.Timer(metrics.FlowStep)()
	cfg := e.currentSettings()
	var flowed bool
	if !e.withLattice(func(l *lattice.Lattice) {
		l.SetFlowDirection(cfg.direction)
		l.SetTorus(cfg.torus)
		flowed = l.FlowOneStep(e.abortFor(flag))
	}) {
		return
	}
	e.finish(phaseStep, flag)
	if !flowed && e.IsFlowing() {
		e.autoStopFlow()
	}
}
