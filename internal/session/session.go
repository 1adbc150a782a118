// Package session drives an engine the way the interactive front ends do:
// it owns the percolation mode, the automatic follow-up toggles and the
// seed used when the lattice is regenerated.
package session

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/yshklarov/percolator/internal/core"
	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/lattice"
	pcore "github.com/yshklarov/percolator/pkg/core"
)

// MaxSide bounds the lattice side length accepted by SetSize.
const MaxSide = 8000

// Mode selects what percolating means.
type Mode int

const (
	// ModeFlow floods from the entryways.
	ModeFlow Mode = iota
	// ModeClusters decomposes the open sites into clusters.
	ModeClusters
)

func (m Mode) String() string {
	if m == ModeClusters {
		return "clusters"
	}
	return "flow"
}

// ParseMode accepts "flow" or "clusters".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "flow":
		return ModeFlow, nil
	case "clusters":
		return ModeClusters, nil
	}
	return ModeFlow, fmt.Errorf("unknown mode %q", s)
}

// Engine is the part of *engine.Engine a session drives.
type Engine interface {
	SetSize(width, height int)
	Size() core.Size
	SetMeasure(m lattice.Measure)
	Measure() lattice.Measure
	SetFlowDirection(d lattice.FlowDirection)
	SetFlowSpeed(stepsPerSecond float64)
	FlowSpeed() float64
	Fill()
	FloodEntryways()
	FlowSteps(n int)
	FlowFully()
	FindClusters()
	ResetPercolation()
	StartFlow()
	StopFlow()
	IsFlowing() bool
	DonePercolation() bool
	NumClusters() int
	Busy() (string, bool)
	LargestClusterShare() float64
}

var _ Engine = (*engine.Engine)(nil)

// Options seeds a session's toggles.
type Options struct {
	Mode          Mode
	AutoPercolate bool
	AutoFind      bool
	AutoFlow      bool
	Seed          int64
}

// Session is safe for concurrent use.
type Session struct {
	mu  sync.Mutex
	eng Engine
	rng *pcore.RNG

	mode          Mode
	autoPercolate bool
	autoFind      bool
	autoFlow      bool
}

// New wraps eng. It does not touch the engine until a method is called.
func New(eng Engine, opts Options) *Session {
	s := &Session{
		eng:           eng,
		rng:           pcore.NewRNG(opts.Seed),
		mode:          opts.Mode,
		autoPercolate: opts.AutoPercolate,
		autoFind:      opts.AutoFind,
		autoFlow:      opts.AutoFlow,
	}
	if s.autoFlow {
		s.autoPercolate = false
	}
	return s
}

// Start runs the automatic follow-ups for the initial lattice.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUp()
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches modes and clears any percolation. Entering flow mode
// with auto-flow on starts the flow again.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == s.mode {
		return
	}
	s.mode = m
	s.eng.ResetPercolation()
	s.followUp()
}

// AutoPercolate reports whether every new lattice is flooded fully.
func (s *Session) AutoPercolate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoPercolate
}

// SetAutoPercolate toggles auto-percolation. Turning it on turns auto-flow
// off and percolates right away.
func (s *Session) SetAutoPercolate(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPercolate = on
	if on {
		s.autoFlow = false
		s.percolate()
	}
}

// AutoFind reports whether every new lattice is split into clusters.
func (s *Session) AutoFind() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoFind
}

// SetAutoFind toggles automatic cluster finding.
func (s *Session) SetAutoFind(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoFind = on
	if on {
		s.percolate()
	}
}

// AutoFlow reports whether every new lattice starts flowing.
func (s *Session) AutoFlow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoFlow
}

// SetAutoFlow toggles automatic flow. Turning it on turns auto-percolate
// off.
func (s *Session) SetAutoFlow(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoFlow = on
	if !on {
		s.eng.StopFlow()
		return
	}
	s.autoPercolate = false
	if s.mode == ModeFlow {
		s.eng.StartFlow()
	}
}

// Percolate floods fully or finds clusters, depending on the mode.
func (s *Session) Percolate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percolate()
}

func (s *Session) percolate() {
	s.eng.StopFlow()
	if s.eng.DonePercolation() {
		return
	}
	if s.mode == ModeClusters {
		s.eng.FindClusters()
		return
	}
	s.eng.FlowFully()
}

// Step stops the flow and advances one step.
func (s *Session) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.StopFlow()
	s.eng.FlowSteps(1)
}

// BeginFlow starts the pacer in flow mode.
func (s *Session) BeginFlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeFlow {
		s.eng.StartFlow()
	}
}

// PauseFlow stops the pacer.
func (s *Session) PauseFlow() {
	s.eng.StopFlow()
}

// Clear un-floods the lattice and turns off the mode's automatic
// percolation. Auto-flow restarts the flow from the entryways.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.ResetPercolation()
	if s.mode == ModeClusters {
		s.autoFind = false
		return
	}
	s.autoPercolate = false
	if s.autoFlow {
		s.eng.StartFlow()
	}
}

// Regenerate refills the lattice, drawing a new seed for random measures,
// and runs the mode's automatic follow-up.
func (s *Session) Regenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regenerate()
}

func (s *Session) regenerate() {
	s.eng.SetMeasure(lattice.Reseed(s.eng.Measure(), s.rng.Seed()))
	s.refill()
}

// refill fills with the current measure and triggers follow-ups.
func (s *Session) refill() {
	s.eng.StopFlow()
	s.eng.Fill()
	s.followUp()
}

func (s *Session) followUp() {
	switch {
	case s.mode == ModeFlow && s.autoFlow:
		s.eng.StartFlow()
	case s.mode == ModeFlow && s.autoPercolate:
		s.eng.FlowFully()
	case s.mode == ModeClusters && s.autoFind:
		s.eng.FindClusters()
	}
}

// SetSize resizes to a side×side lattice, clamped to [1, MaxSide], and
// regenerates it. An unchanged size is ignored.
func (s *Session) SetSize(side int) {
	side = min(max(side, 1), MaxSide)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sz := s.eng.Size(); sz.W == side && sz.H == side {
		return
	}
	s.eng.SetSize(side, side)
	s.regenerate()
}

// SetProbability switches to a Bernoulli measure with open probability p,
// clamped to [0, 1], and regenerates.
func (s *Session) SetProbability(p float64) {
	p = min(max(p, 0), 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.eng.Measure().(lattice.Bernoulli); ok && b.P == p {
		return
	}
	s.eng.SetMeasure(lattice.Bernoulli{P: p})
	s.regenerate()
}

// SetMeasureKind switches to the registered measure kind with default
// parameters, keeping p for Bernoulli measures.
func (s *Session) SetMeasureKind(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	params := map[string]string{}
	if b, ok := s.eng.Measure().(lattice.Bernoulli); ok {
		params["p"] = strconv.FormatFloat(b.P, 'g', -1, 64)
	}
	m, err := lattice.ParseMeasure(kind, params)
	if err != nil {
		return err
	}
	if m == s.eng.Measure() {
		return nil
	}
	s.eng.SetMeasure(m)
	s.regenerate()
	return nil
}

// SetFlowDirection changes the entryways and floods the new ones.
func (s *Session) SetFlowDirection(d lattice.FlowDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.SetFlowDirection(d)
	s.eng.FloodEntryways()
}

// Side returns the current lattice side length.
func (s *Session) Side() int { return s.eng.Size().W }

// Probability returns the open probability of a Bernoulli measure.
func (s *Session) Probability() (float64, bool) {
	b, ok := s.eng.Measure().(lattice.Bernoulli)
	return b.P, ok
}

// FlowSpeed returns the pacer rate in steps per second.
func (s *Session) FlowSpeed() float64 { return s.eng.FlowSpeed() }

// SetFlowSpeed sets the pacer rate.
func (s *Session) SetFlowSpeed(stepsPerSecond float64) {
	s.eng.SetFlowSpeed(stepsPerSecond)
}

// Status returns the values a front end displays.
func (s *Session) Status() core.ParameterSnapshot {
	s.mu.Lock()
	mode, autoPercolate, autoFind, autoFlow := s.mode, s.autoPercolate, s.autoFind, s.autoFlow
	s.mu.Unlock()

	size := s.eng.Size()
	busy, _ := s.eng.Busy()
	lat := core.ParameterGroup{
		Name: "Lattice",
		Params: []core.Parameter{
			{Key: "size", Label: "Size", Type: core.ParamTypeText, Value: fmt.Sprintf("%dx%d", size.W, size.H)},
			{Key: "measure", Label: "Measure", Type: core.ParamTypeText, Value: describeMeasure(s.eng.Measure())},
		},
	}
	perc := core.ParameterGroup{
		Name: "Percolation",
		Params: []core.Parameter{
			{Key: "mode", Label: "Mode", Type: core.ParamTypeText, Value: mode.String()},
			{Key: "auto_percolate", Label: "Auto-percolate", Type: core.ParamTypeBool, Value: strconv.FormatBool(autoPercolate)},
			{Key: "auto_find", Label: "Auto-find", Type: core.ParamTypeBool, Value: strconv.FormatBool(autoFind)},
			{Key: "auto_flow", Label: "Auto-flow", Type: core.ParamTypeBool, Value: strconv.FormatBool(autoFlow)},
			{Key: "flowing", Label: "Flowing", Type: core.ParamTypeBool, Value: strconv.FormatBool(s.eng.IsFlowing())},
			{Key: "speed", Label: "Flow speed", Type: core.ParamTypeFloat, Value: strconv.FormatFloat(s.eng.FlowSpeed(), 'f', 1, 64)},
			{Key: "done", Label: "Done", Type: core.ParamTypeBool, Value: strconv.FormatBool(s.eng.DonePercolation())},
			{Key: "busy", Label: "Busy", Type: core.ParamTypeText, Value: busy},
		},
	}
	if mode == ModeClusters {
		perc.Params = append(perc.Params,
			core.Parameter{Key: "clusters", Label: "Clusters", Type: core.ParamTypeText, Value: clusterLabel(s.eng.NumClusters())},
			core.Parameter{Key: "largest_share", Label: "Largest cluster", Type: core.ParamTypeFloat, Value: strconv.FormatFloat(s.eng.LargestClusterShare(), 'f', 2, 64) + "%"},
		)
	}
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{lat, perc}}
}

func describeMeasure(m lattice.Measure) string {
	if b, ok := m.(lattice.Bernoulli); ok {
		return fmt.Sprintf("bernoulli p=%.6f", b.P)
	}
	return m.Name()
}

func clusterLabel(n int) string {
	if n == 1 {
		return "Found 1 cluster"
	}
	return fmt.Sprintf("Found %d clusters", n)
}
