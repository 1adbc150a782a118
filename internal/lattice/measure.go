package lattice

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	pcore "github.com/yshklarov/percolator/pkg/core"
)

// Threshold is the site percolation threshold of the square lattice.
const Threshold = 0.59274605

// Measure decides the initial status of each site. Implementations are
// comparable values, so two measures can be tested for equality with ==.
type Measure interface {
	Name() string
	StatusAt(x, y int) Status
}

// AllOpen opens every site.
type AllOpen struct{}

func (AllOpen) Name() string             { return "open" }
func (AllOpen) StatusAt(_, _ int) Status { return Open }

// Checkerboard opens the sites whose coordinates sum to an odd number.
type Checkerboard struct{}

func (Checkerboard) Name() string { return "checkerboard" }

func (Checkerboard) StatusAt(x, y int) Status {
	if (x+y)%2 != 0 {
		return Open
	}
	return Closed
}

// Dots closes the sites where every Period-th row meets every Period-th
// column.
type Dots struct {
	Period int
}

func (Dots) Name() string { return "dots" }

func (m Dots) StatusAt(x, y int) Status {
	p := m.Period
	if p <= 0 {
		p = 5
	}
	if x%p != 0 || y%p != 0 {
		return Open
	}
	return Closed
}

// Diagonals closes every Period-th anti-diagonal.
type Diagonals struct {
	Period int
}

func (Diagonals) Name() string { return "diagonals" }

func (m Diagonals) StatusAt(x, y int) Status {
	p := m.Period
	if p <= 0 {
		p = 10
	}
	if (x+y)%p != 0 {
		return Open
	}
	return Closed
}

// Bernoulli opens each site independently with probability P. The outcome
// for a site depends only on Seed and its coordinates.
type Bernoulli struct {
	P    float64
	Seed uint64
}

func (Bernoulli) Name() string { return "bernoulli" }

func (m Bernoulli) StatusAt(x, y int) Status {
	if pcore.SiteUnit(m.Seed, x, y) < m.P {
		return Open
	}
	return Closed
}

// Reseed returns a copy of m using seed when m is random, and m otherwise.
func Reseed(m Measure, seed uint64) Measure {
	if b, ok := m.(Bernoulli); ok {
		b.Seed = seed
		return b
	}
	return m
}

// ErrUnknownMeasure is returned by ParseMeasure for unregistered kinds.
var ErrUnknownMeasure = errors.New("lattice: unknown measure")

// MeasureFactory builds a measure from string parameters.
type MeasureFactory func(params map[string]string) (Measure, error)

var measures = map[string]MeasureFactory{
	"open":         func(map[string]string) (Measure, error) { return AllOpen{}, nil },
	"checkerboard": func(map[string]string) (Measure, error) { return Checkerboard{}, nil },
	"dots": func(params map[string]string) (Measure, error) {
		p, err := intParam(params, "period", 5)
		return Dots{Period: p}, err
	},
	"diagonals": func(params map[string]string) (Measure, error) {
		p, err := intParam(params, "period", 10)
		return Diagonals{Period: p}, err
	},
	"bernoulli": func(params map[string]string) (Measure, error) {
		m := Bernoulli{P: Threshold}
		if v, ok := params["p"]; ok {
			p, err := strconv.ParseFloat(v, 64)
			if err != nil || p < 0 || p > 1 {
				return nil, fmt.Errorf("bernoulli: p must be in [0,1], got %q", v)
			}
			m.P = p
		}
		if v, ok := params["seed"]; ok {
			seed, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bernoulli: invalid seed %q", v)
			}
			m.Seed = seed
		}
		return m, nil
	},
}

// MeasureKinds lists the registered kinds in sorted order.
func MeasureKinds() []string {
	kinds := make([]string, 0, len(measures))
	for k := range measures {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ParseMeasure builds the measure registered under kind.
func ParseMeasure(kind string, params map[string]string) (Measure, error) {
	f, ok := measures[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownMeasure, kind)
	}
	return f(params)
}

func intParam(params map[string]string, key string, fallback int) (int, error) {
	v, ok := params[key]
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
