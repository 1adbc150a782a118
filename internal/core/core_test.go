package core

import (
	"testing"
	"time"
)

func TestGridCloneIndependent(t *testing.T) {
	g := NewGrid[int](3, 2)
	g.Set(2, 1, 7)
	c := g.Clone()
	g.Set(2, 1, 9)
	if c.At(2, 1) != 7 {
		t.Fatalf("clone shares storage: got %d", c.At(2, 1))
	}
	if c.Size() != (Size{W: 3, H: 2}) {
		t.Fatalf("clone size %+v", c.Size())
	}
}

func TestNewGridClampsDimensions(t *testing.T) {
	g := NewGrid[bool](0, -3)
	if g.W != 1 || g.H != 1 || len(g.Cells()) != 1 {
		t.Fatalf("expected 1x1 grid, got %dx%d", g.W, g.H)
	}
}

func TestFixedStepCarriesRemainder(t *testing.T) {
	start := time.Unix(0, 0)
	fs := NewFixedStep(10, start) // 100ms per step

	if n := fs.Due(start.Add(50 * time.Millisecond)); n != 0 {
		t.Fatalf("expected 0 steps after 50ms, got %d", n)
	}
	if n := fs.Due(start.Add(250 * time.Millisecond)); n != 2 {
		t.Fatalf("expected 2 steps after 250ms, got %d", n)
	}
	// The 50ms remainder carries into the next call.
	if n := fs.Due(start.Add(300 * time.Millisecond)); n != 1 {
		t.Fatalf("expected remainder to yield 1 step at 300ms, got %d", n)
	}
}

func TestFixedStepRateChange(t *testing.T) {
	start := time.Unix(0, 0)
	fs := NewFixedStep(0, start)
	if fs.Interval() != time.Second {
		t.Fatalf("non-positive rate should default to 1/s, got %v", fs.Interval())
	}
	fs.SetRate(1000)
	if n := fs.Due(start.Add(10 * time.Millisecond)); n != 10 {
		t.Fatalf("expected 10 steps, got %d", n)
	}
}
