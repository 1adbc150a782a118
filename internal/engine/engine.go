// Package engine runs a lattice behind a non-blocking control surface.
//
// Every request method only records an intent and returns. A single worker
// goroutine owns the lattice and drains intents in a fixed priority order:
// reset, flood entryways, fill, flow fully, find clusters, single step.
// Each phase polls a running flag that newer requests of the same kind
// clear, so stale work is abandoned at the next site. An optional pacer
// goroutine feeds steps at a configured rate. Consumers read the lattice
// only through owned Snapshot copies.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yshklarov/percolator/internal/core"
	"github.com/yshklarov/percolator/internal/debug"
	"github.com/yshklarov/percolator/internal/lattice"
)

const (
	// MinFlowSpeed and MaxFlowSpeed bound the pacer rate in steps per second.
	MinFlowSpeed = 1.0
	MaxFlowSpeed = 5000.0

	defaultFlowSpeed = 10.0
	defaultIdlePoll  = 8 * time.Millisecond
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithFlowDirection sets the initial entryway rule.
func WithFlowDirection(d lattice.FlowDirection) Option {
	return func(e *Engine) { e.cfg.direction = d }
}

// WithTorus sets the initial wraparound configuration.
func WithTorus(t lattice.Torus) Option {
	return func(e *Engine) { e.cfg.torus = t }
}

// WithFlowSpeed sets the initial pacer rate.
func WithFlowSpeed(stepsPerSecond float64) Option {
	return func(e *Engine) { e.cfg.speed = clampSpeed(stepsPerSecond) }
}

// WithMaxSites caps width*height; larger fills fail with
// lattice.ErrTooLarge. Zero means no cap.
func WithMaxSites(n int) Option {
	return func(e *Engine) { e.cfg.maxSites = n }
}

// WithIdlePoll sets how long the idle worker sleeps between polls.
func WithIdlePoll(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.idlePoll = d
		}
	}
}

// WithLogLevel overrides PERCOLATOR_LOG_LEVEL.
func WithLogLevel(l LogLevel) Option {
	return func(e *Engine) { e.logLevel = l }
}

type settings struct {
	size      core.Size
	measure   lattice.Measure
	direction lattice.FlowDirection
	torus     lattice.Torus
	speed     float64
	maxSites  int
}

type counters struct {
	phasesRun  atomic.Uint64
	cancelled  atomic.Uint64
	coalesced  atomic.Uint64
	published  atomic.Uint64
	pacerSteps atomic.Uint64
	errors     atomic.Uint64
}

// Metrics is a point-in-time copy of the engine counters.
type Metrics struct {
	PhasesRun          uint64 `json:"phases_run"`
	PhasesCancelled    uint64 `json:"phases_cancelled"`
	CoalescedRequests  uint64 `json:"coalesced_requests"`
	SnapshotsPublished uint64 `json:"snapshots_published"`
	PacerSteps         uint64 `json:"pacer_steps"`
	Errors             uint64 `json:"errors"`
}

// Engine supervises one lattice. All methods are safe for concurrent use
// and return without waiting for the worker, except StopFlow and Close.
type Engine struct {
	cfgMu sync.Mutex
	cfg   settings

	reqMu sync.Mutex
	req   intents
	wake  chan struct{}

	runReset       atomic.Bool
	runFill        atomic.Bool
	runPercolation atomic.Bool
	runGeneric     atomic.Bool
	runSizes       atomic.Bool

	// Owned by the worker; gridMu is held while a phase mutates lat and
	// while a snapshot copies it.
	gridMu     sync.Mutex
	lat        *lattice.Lattice
	complete   bool
	generation uint64

	changed     atomic.Bool
	numClusters atomic.Int64
	done        atomic.Bool

	snapMu    sync.Mutex
	pending   *Snapshot
	waitSince atomic.Int64
	version   uint64

	sizesMu    sync.Mutex
	sizes      []SizeCount
	maxCluster atomic.Int64
	totalSites atomic.Int64

	flowMu  sync.Mutex // serializes StartFlow and StopFlow
	pacerMu sync.Mutex
	pacer   *pacer

	errMu sync.Mutex
	errs  []PhaseError

	stats    counters
	idlePoll time.Duration
	logLevel LogLevel

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	workerEnd chan struct{}
}

// New starts an engine for a width×height lattice filled by m and requests
// the first fill. A nil measure opens every site.
func New(width, height int, m lattice.Measure, opts ...Option) *Engine {
	if m == nil {
		m = lattice.AllOpen{}
	}
	e := &Engine{
		cfg: settings{
			size:    clampSize(width, height),
			measure: m,
			speed:   defaultFlowSpeed,
		},
		wake:      make(chan struct{}, 1),
		idlePoll:  envDurationMilliseconds("PERCOLATOR_IDLE_POLL_MS", defaultIdlePoll),
		logLevel:  envLogLevel("PERCOLATOR_LOG_LEVEL", LogLevelWarn),
		workerEnd: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.logEvent(LogLevelInfo, "engine_start", map[string]any{
		"width":   e.cfg.size.W,
		"height":  e.cfg.size.H,
		"measure": m.Name(),
	})
	go e.run()
	e.Fill()
	return e
}

// Close stops the pacer and the worker, waits for both, then releases the
// lattice. Later calls do nothing.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		defer debug.LogEnterExit("engine.Close")()
		e.StopFlow()
		e.closed.Store(true)
		e.cancel()
		e.signal()
		<-e.workerEnd

		e.gridMu.Lock()
		e.lat = nil
		e.gridMu.Unlock()
		e.snapMu.Lock()
		e.pending = nil
		e.snapMu.Unlock()
		e.logEvent(LogLevelInfo, "engine_stop", nil)
	})
}

func clampSize(w, h int) core.Size {
	return core.Size{W: max(w, 1), H: max(h, 1)}
}

func clampSpeed(s float64) float64 {
	return min(max(s, MinFlowSpeed), MaxFlowSpeed)
}

// SetSize records the dimensions for the next fill.
func (e *Engine) SetSize(width, height int) {
	e.cfgMu.Lock()
	e.cfg.size = clampSize(width, height)
	e.cfgMu.Unlock()
}

// Size returns the configured dimensions, which may differ from the lattice
// until the next fill completes.
func (e *Engine) Size() core.Size {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg.size
}

// SetMeasure records the fill rule for the next fill. Nil is ignored.
func (e *Engine) SetMeasure(m lattice.Measure) {
	if m == nil {
		return
	}
	e.cfgMu.Lock()
	e.cfg.measure = m
	e.cfgMu.Unlock()
}

// Measure returns the configured fill rule.
func (e *Engine) Measure() lattice.Measure {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg.measure
}

// SetFlowDirection changes the entryway rule for later phases.
func (e *Engine) SetFlowDirection(d lattice.FlowDirection) {
	e.cfgMu.Lock()
	e.cfg.direction = d
	e.cfgMu.Unlock()
}

// FlowDirection returns the configured entryway rule.
func (e *Engine) FlowDirection() lattice.FlowDirection {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg.direction
}

// SetTorus changes the wraparound configuration for later phases.
func (e *Engine) SetTorus(t lattice.Torus) {
	e.cfgMu.Lock()
	e.cfg.torus = t
	e.cfgMu.Unlock()
}

// Torus returns the configured wraparound.
func (e *Engine) Torus() lattice.Torus {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg.torus
}

// SetFlowSpeed sets the pacer rate, clamped to [MinFlowSpeed, MaxFlowSpeed].
// A running pacer picks it up on its next tick.
func (e *Engine) SetFlowSpeed(stepsPerSecond float64) {
	e.cfgMu.Lock()
	e.cfg.speed = clampSpeed(stepsPerSecond)
	e.cfgMu.Unlock()
}

// FlowSpeed returns the pacer rate in steps per second.
func (e *Engine) FlowSpeed() float64 {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg.speed
}

func (e *Engine) currentSettings() settings {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg
}

// request runs fn under the intent lock and wakes the worker.
func (e *Engine) request(name string, fn func(q *intents) bool) {
	if e.closed.Load() {
		return
	}
	e.reqMu.Lock()
	coalesced := fn(&e.req)
	e.reqMu.Unlock()
	if coalesced {
		e.stats.coalesced.Add(1)
		e.logEvent(LogLevelDebug, "coalesce", map[string]any{"request": name})
	}
	e.signal()
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Fill replaces the lattice with a freshly filled one using the current
// size and measure. It supersedes every pending request and aborts any
// phase still working on the old lattice.
func (e *Engine) Fill() {
	e.request("fill", func(q *intents) bool {
		e.runFill.Store(false)
		e.runReset.Store(false)
		e.runPercolation.Store(false)
		e.runGeneric.Store(false)
		e.clearState()
		return q.requestFill()
	})
}

// FloodEntryways floods the open entryways. If a fill is pending it runs
// after that fill.
func (e *Engine) FloodEntryways() {
	e.request("flood_entryways", func(q *intents) bool {
		return q.requestEntryways()
	})
}

// FlowSteps queues n single flow steps.
func (e *Engine) FlowSteps(n int) {
	if n <= 0 {
		return
	}
	e.request("flow_steps", func(q *intents) bool {
		q.requestSteps(uint64(n))
		return false
	})
}

// FlowFully floods everything reachable from the entryways. It replaces a
// pending FindClusters and restarts a running percolation phase.
func (e *Engine) FlowFully() {
	e.request("flow_fully", func(q *intents) bool {
		e.runPercolation.Store(false)
		return q.requestPercolation(percFlowFully)
	})
}

// FindClusters decomposes the open sites into clusters. It replaces a
// pending FlowFully and restarts a running percolation phase.
func (e *Engine) FindClusters() {
	e.request("find_clusters", func(q *intents) bool {
		e.runPercolation.Store(false)
		return q.requestPercolation(percFindClusters)
	})
}

// ResetPercolation stops the pacer and un-floods the lattice, dropping
// pending percolation work and steps.
func (e *Engine) ResetPercolation() {
	e.StopFlow()
	e.request("reset", func(q *intents) bool {
		e.runPercolation.Store(false)
		e.runGeneric.Store(false)
		e.clearState()
		return q.requestReset()
	})
}

// Abort cancels the running phase and drops every pending request. An
// active pacer keeps running.
func (e *Engine) Abort() {
	e.reqMu.Lock()
	e.runReset.Store(false)
	e.runFill.Store(false)
	e.runPercolation.Store(false)
	e.runGeneric.Store(false)
	e.req.clear()
	e.reqMu.Unlock()
	e.logEvent(LogLevelDebug, "abort", nil)
}

// DonePercolation reports whether the last completed phase left a begun
// lattice with an empty frontier.
func (e *Engine) DonePercolation() bool { return e.done.Load() }

// NumClusters returns the cluster count after the last completed phase.
func (e *Engine) NumClusters() int { return int(e.numClusters.Load()) }

// PendingSteps returns the number of queued single steps.
func (e *Engine) PendingSteps() uint64 {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	return e.req.steps
}

// Busy returns a label for the phase in progress, if any.
func (e *Engine) Busy() (string, bool) {
	switch {
	case e.runSizes.Load():
		return "Computing cluster sizes", true
	case e.runFill.Load():
		return "Filling lattice", true
	case e.runPercolation.Load():
		return "Computing percolation", true
	case e.runReset.Load():
		return "Resetting lattice", true
	case e.runGeneric.Load():
		return "Computing", true
	}
	return "", false
}

// Metrics returns the engine counters.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		PhasesRun:          e.stats.phasesRun.Load(),
		PhasesCancelled:    e.stats.cancelled.Load(),
		CoalescedRequests:  e.stats.coalesced.Load(),
		SnapshotsPublished: e.stats.published.Load(),
		PacerSteps:         e.stats.pacerSteps.Load(),
		Errors:             e.stats.errors.Load(),
	}
}
