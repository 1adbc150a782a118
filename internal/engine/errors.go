package engine

import (
	"fmt"
	"runtime/debug"
	"time"
)

// PhaseError records a failed worker phase. Cancellation is never reported
// as a PhaseError.
type PhaseError struct {
	Phase string // "fill", "flow_fully", "find_clusters", ...
	Cause error
	Time  time.Time
}

func (e PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Cause)
}

func (e PhaseError) Unwrap() error {
	return e.Cause
}

// safeCompute runs fn and converts a returned error or a panic into a
// PhaseError.
func safeCompute(phase string, fn func() error) (result *PhaseError) {
	defer func() {
		if r := recover(); r != nil {
			result = &PhaseError{
				Phase: phase,
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:  time.Now(),
			}
		}
	}()
	if err := fn(); err != nil {
		return &PhaseError{Phase: phase, Cause: err, Time: time.Now()}
	}
	return nil
}

func (e *Engine) recordError(err *PhaseError) {
	if err == nil {
		return
	}
	e.errMu.Lock()
	e.errs = append(e.errs, *err)
	e.errMu.Unlock()
	e.stats.errors.Add(1)
	e.logEvent(LogLevelError, "phase_error", map[string]any{
		"phase": err.Phase,
		"error": err.Cause.Error(),
	})
}

// Errors drains the error queue, oldest first.
func (e *Engine) Errors() []PhaseError {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	out := e.errs
	e.errs = nil
	return out
}

// HasErrors reports whether the error queue is non-empty.
func (e *Engine) HasErrors() bool {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return len(e.errs) > 0
}
