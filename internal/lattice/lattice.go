// Package lattice implements site percolation on a rectangular grid: filling
// sites from a measure, flooding from entryways one breadth-first step at a
// time, and decomposing the open sites into clusters.
//
// A Lattice is not safe for concurrent use. Long-running operations accept an
// Abort callback and stop at the next site or frontier site once it returns
// true; an aborted lattice is always valid, merely incomplete.
package lattice

import (
	"errors"
	"fmt"

	"github.com/yshklarov/percolator/internal/core"
)

// Status is the state of a single site.
type Status uint8

const (
	Closed Status = iota
	Open
	Flooded
	// Fresh marks sites flooded by the most recent step. The set of Fresh
	// sites is exactly the frontier.
	Fresh
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Flooded:
		return "flooded"
	case Fresh:
		return "fresh"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// FlowDirection selects which border sites act as entryways.
type FlowDirection int

const (
	FlowTop FlowDirection = iota
	FlowAllSides
)

func (d FlowDirection) String() string {
	if d == FlowAllSides {
		return "all_sides"
	}
	return "top"
}

// ParseFlowDirection accepts "top" or "all_sides".
func ParseFlowDirection(s string) (FlowDirection, error) {
	switch s {
	case "", "top":
		return FlowTop, nil
	case "all_sides", "all-sides", "all":
		return FlowAllSides, nil
	}
	return FlowTop, fmt.Errorf("unknown flow direction %q", s)
}

// Torus enables wraparound adjacency independently per axis. X joins the
// left and right columns, Y joins the top and bottom rows.
type Torus struct {
	X bool `yaml:"x" json:"x"`
	Y bool `yaml:"y" json:"y"`
}

// Cluster is one maximal 4-connected component of open sites.
type Cluster []core.Coord

// Abort reports whether a running operation should stop. A nil Abort never
// stops.
type Abort func() bool

func (a Abort) requested() bool { return a != nil && a() }

var (
	// ErrInvalidSize is returned for non-positive dimensions.
	ErrInvalidSize = errors.New("lattice: invalid size")
	// ErrTooLarge is returned when a lattice cannot be allocated.
	ErrTooLarge = errors.New("lattice: not enough memory")
)

// Lattice is a width×height grid of sites together with its flood frontier
// and cluster decomposition.
type Lattice struct {
	sites     *core.Grid[Status]
	direction FlowDirection
	torus     Torus
	begun     bool

	frontier []core.Coord
	next     []core.Coord

	clusters []Cluster
	current  Cluster
}

// New allocates a closed lattice. maxSites bounds width*height when
// positive.
func New(width, height, maxSites int) (l *Lattice, err error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	area := width * height
	if area/width != height || (maxSites > 0 && area > maxSites) {
		return nil, fmt.Errorf("%w for %dx%d lattice", ErrTooLarge, width, height)
	}
	defer func() {
		// makeslice panics rather than returning an error.
		if r := recover(); r != nil {
			l = nil
			err = fmt.Errorf("%w for %dx%d lattice: %v", ErrTooLarge, width, height, r)
		}
	}()
	return &Lattice{sites: core.NewGrid[Status](width, height)}, nil
}

// MustNew is New without a size cap, panicking on error. Intended for tests
// and small fixed lattices.
func MustNew(width, height int) *Lattice {
	l, err := New(width, height, 0)
	if err != nil {
		panic(err)
	}
	return l
}

// Width returns the number of columns.
func (l *Lattice) Width() int { return l.sites.W }

// Height returns the number of rows.
func (l *Lattice) Height() int { return l.sites.H }

// Size returns the lattice dimensions.
func (l *Lattice) Size() core.Size { return l.sites.Size() }

// FlowDirection returns the configured entryway rule.
func (l *Lattice) FlowDirection() FlowDirection { return l.direction }

// SetFlowDirection changes the entryway rule used by the next
// FloodEntryways.
func (l *Lattice) SetFlowDirection(d FlowDirection) { l.direction = d }

// Torus returns the wraparound configuration.
func (l *Lattice) Torus() Torus { return l.torus }

// SetTorus changes the wraparound configuration.
func (l *Lattice) SetTorus(t Torus) { l.torus = t }

// Status returns the status of the site at (x, y).
func (l *Lattice) Status(x, y int) Status { return l.sites.At(x, y) }

// SetStatus overwrites the status of the site at (x, y). It does not touch
// the frontier; use it to build fixtures before flooding begins.
func (l *Lattice) SetStatus(x, y int, s Status) { l.sites.Set(x, y, s) }

// IsOpen reports whether (x, y) is open and not flooded.
func (l *Lattice) IsOpen(x, y int) bool { return l.sites.At(x, y) == Open }

// IsFlooded reports whether (x, y) is flooded or freshly flooded.
func (l *Lattice) IsFlooded(x, y int) bool {
	s := l.sites.At(x, y)
	return s == Flooded || s == Fresh
}

// IsFresh reports whether (x, y) is part of the current frontier.
func (l *Lattice) IsFresh(x, y int) bool { return l.sites.At(x, y) == Fresh }

// Sites returns a copy of the row-major site statuses.
func (l *Lattice) Sites() []Status {
	out := make([]Status, len(l.sites.Cells()))
	copy(out, l.sites.Cells())
	return out
}

// Frontier returns the current frontier. The slice must not be modified.
func (l *Lattice) Frontier() []core.Coord { return l.frontier }

// Begun reports whether flooding has started since the last fill or reset.
func (l *Lattice) Begun() bool { return l.begun }

// DonePercolation reports whether flooding has started and the frontier is
// exhausted.
func (l *Lattice) DonePercolation() bool {
	return l.begun && len(l.frontier) == 0
}

// CountOpenOrFlooded returns the number of sites that are not closed.
func (l *Lattice) CountOpenOrFlooded() int {
	n := 0
	for _, s := range l.sites.Cells() {
		if s != Closed {
			n++
		}
	}
	return n
}

// Percolates reports whether any site in the bottom row is flooded.
func (l *Lattice) Percolates() bool {
	y := l.sites.H - 1
	for x := 0; x < l.sites.W; x++ {
		if l.IsFlooded(x, y) {
			return true
		}
	}
	return false
}

// ResetPercolation turns every flooded site back to open and clears the
// frontier, the clusters and the begun flag.
func (l *Lattice) ResetPercolation() {
	cells := l.sites.Cells()
	for i, s := range cells {
		if s == Flooded || s == Fresh {
			cells[i] = Open
		}
	}
	l.clearClusters()
	l.frontier = l.frontier[:0]
	l.begun = false
}

// Clone returns a deep copy that shares no storage with l.
func (l *Lattice) Clone() *Lattice {
	c := &Lattice{
		sites:     l.sites.Clone(),
		direction: l.direction,
		torus:     l.torus,
		begun:     l.begun,
		frontier:  append([]core.Coord(nil), l.frontier...),
		current:   append(Cluster(nil), l.current...),
	}
	if len(l.clusters) > 0 {
		c.clusters = make([]Cluster, len(l.clusters))
		for i, cl := range l.clusters {
			c.clusters[i] = append(Cluster(nil), cl...)
		}
	}
	return c
}

func (l *Lattice) clearClusters() {
	l.clusters = nil
	l.current = l.current[:0]
}
