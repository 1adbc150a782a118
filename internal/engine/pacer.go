package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yshklarov/percolator/internal/core"
)

const (
	minPacerTick = 8 * time.Millisecond
	maxPacerTick = 100 * time.Millisecond
)

type pacer struct {
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	stopping atomic.Bool
}

func newPacer() *pacer {
	return &pacer{stop: make(chan struct{}), done: make(chan struct{})}
}

func (p *pacer) signal() {
	p.once.Do(func() {
		p.stopping.Store(true)
		close(p.stop)
	})
}

// StartFlow starts queueing steps at the configured flow speed, replacing a
// pacer that is already running.
func (e *Engine) StartFlow() {
	if e.closed.Load() {
		return
	}
	e.flowMu.Lock()
	defer e.flowMu.Unlock()
	e.stopFlowLocked()

	p := newPacer()
	e.pacerMu.Lock()
	e.pacer = p
	e.pacerMu.Unlock()
	go e.runPacer(p)
}

// StopFlow stops the pacer and waits for it to exit. No step is queued by
// the pacer after StopFlow returns.
func (e *Engine) StopFlow() {
	e.flowMu.Lock()
	defer e.flowMu.Unlock()
	e.stopFlowLocked()
}

func (e *Engine) stopFlowLocked() {
	e.pacerMu.Lock()
	p := e.pacer
	e.pacer = nil
	e.pacerMu.Unlock()
	if p == nil {
		return
	}
	p.signal()
	<-p.done
	e.logEvent(LogLevelInfo, "pacer_stop", nil)
}

// IsFlowing reports whether a pacer is running and has not been told to
// stop.
func (e *Engine) IsFlowing() bool {
	e.pacerMu.Lock()
	defer e.pacerMu.Unlock()
	return e.pacer != nil && !e.pacer.stopping.Load()
}

// autoStopFlow tells the pacer to stop without waiting for it; the worker
// calls it when a step floods nothing.
func (e *Engine) autoStopFlow() {
	e.pacerMu.Lock()
	p := e.pacer
	e.pacerMu.Unlock()
	if p == nil {
		return
	}
	p.signal()
	e.reqMu.Lock()
	e.req.steps = 0
	e.reqMu.Unlock()
	e.logEvent(LogLevelDebug, "pacer_autostop", nil)
}

// queuePacerSteps adds n steps unless p has been told to stop. The check
// runs under the intent lock so it cannot interleave with autoStopFlow
// zeroing the queue.
func (e *Engine) queuePacerSteps(p *pacer, n int) bool {
	queued := false
	e.request("flow_steps", func(q *intents) bool {
		if p.stopping.Load() {
			return false
		}
		q.requestSteps(uint64(n))
		queued = true
		return false
	})
	if queued {
		e.stats.pacerSteps.Add(uint64(n))
	}
	return queued
}

func (e *Engine) runPacer(p *pacer) {
	defer close(p.done)
	clock := core.NewFixedStep(e.FlowSpeed(), time.Now())
	e.logEvent(LogLevelInfo, "pacer_start", map[string]any{"speed": e.FlowSpeed()})
	for {
		if p.stopping.Load() {
			return
		}
		clock.SetRate(e.FlowSpeed())
		if n := clock.Due(time.Now()); n > 0 {
			e.queuePacerSteps(p, n)
		}
		t := time.NewTimer(min(max(clock.Interval(), minPacerTick), maxPacerTick))
		select {
		case <-p.stop:
			t.Stop()
			return
		case <-e.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
