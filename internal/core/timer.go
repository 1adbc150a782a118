package core

import "time"

// FixedStep converts elapsed wall time into a whole number of steps at a
// configurable rate. The reference tick advances by exactly the steps
// handed out, so fractional remainders carry over and the rate never drifts.
type FixedStep struct {
	step time.Duration
	ref  time.Time
}

// NewFixedStep constructs a FixedStep targeting the given steps per second,
// with its reference tick at now.
func NewFixedStep(stepsPerSecond float64, now time.Time) *FixedStep {
	fs := &FixedStep{ref: now}
	fs.SetRate(stepsPerSecond)
	return fs
}

// SetRate changes the step rate. Non-positive rates fall back to one step
// per second.
func (f *FixedStep) SetRate(stepsPerSecond float64) {
	if stepsPerSecond <= 0 {
		stepsPerSecond = 1
	}
	step := time.Duration(float64(time.Second) / stepsPerSecond)
	if step < time.Microsecond {
		step = time.Microsecond
	}
	f.step = step
}

// Interval returns the duration of one step.
func (f *FixedStep) Interval() time.Duration { return f.step }

// Due returns the number of whole steps elapsed between the reference tick
// and now, and advances the reference by that many intervals.
func (f *FixedStep) Due(now time.Time) int {
	elapsed := now.Sub(f.ref)
	if elapsed < f.step {
		return 0
	}
	n := int(elapsed / f.step)
	f.ref = f.ref.Add(time.Duration(n) * f.step)
	return n
}
