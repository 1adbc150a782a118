package lattice

import (
	"slices"
	"testing"
)

// fromRows builds a lattice from rows of '#' (closed) and '.' (open).
func fromRows(rows ...string) *Lattice {
	l := MustNew(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if c == '.' {
				l.SetStatus(x, y, Open)
			}
		}
	}
	return l
}

func countStatus(l *Lattice, s Status) int {
	n := 0
	for _, v := range l.Sites() {
		if v == s {
			n++
		}
	}
	return n
}

func TestNewRejectsBadSizes(t *testing.T) {
	if _, err := New(0, 5, 0); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := New(10, 10, 50); err == nil {
		t.Fatal("expected error when exceeding maxSites")
	}
	l, err := New(1, 1, 1)
	if err != nil {
		t.Fatalf("1x1 lattice: %v", err)
	}
	if l.Width() != 1 || l.Height() != 1 {
		t.Fatalf("got %dx%d", l.Width(), l.Height())
	}
}

func TestFillThenNotDone(t *testing.T) {
	l := MustNew(4, 4)
	l.Fill(AllOpen{}, nil)
	l.FlowFully(nil)
	if !l.DonePercolation() {
		t.Fatal("expected done after flowing fully")
	}
	if !l.Fill(AllOpen{}, nil) {
		t.Fatal("fill without abort should complete")
	}
	if l.DonePercolation() {
		t.Fatal("fill must clear the begun flag")
	}
	if l.NumClusters() != 0 || len(l.Frontier()) != 0 {
		t.Fatal("fill must clear clusters and frontier")
	}
}

func TestFillAbortStopsEarly(t *testing.T) {
	l := MustNew(5, 5)
	calls := 0
	done := l.Fill(AllOpen{}, func() bool {
		calls++
		return calls > 7
	})
	if done {
		t.Fatal("aborted fill reported completion")
	}
	if got := countStatus(l, Open); got != 7 {
		t.Fatalf("expected 7 sites filled before abort, got %d", got)
	}
}

func TestResetPercolationIdempotent(t *testing.T) {
	l := MustNew(6, 6)
	l.Fill(Checkerboard{}, nil)
	before := l.Sites()
	l.FlowFully(nil)
	l.ResetPercolation()
	first := l.Sites()
	l.ResetPercolation()
	if !slices.Equal(first, l.Sites()) {
		t.Fatal("second reset changed the lattice")
	}
	if !slices.Equal(before, first) {
		t.Fatal("reset did not restore the filled lattice")
	}
	if l.Begun() || l.DonePercolation() {
		t.Fatal("reset must clear begun")
	}
}

func TestFloodEntrywaysTop(t *testing.T) {
	const w = 7
	l := MustNew(w, 5)
	l.Fill(AllOpen{}, nil)
	if !l.FloodEntryways() {
		t.Fatal("expected entryways to flood something")
	}
	if got := countStatus(l, Fresh); got != w {
		t.Fatalf("expected %d fresh sites, got %d", w, got)
	}
	for x := 0; x < w; x++ {
		if !l.IsFresh(x, 0) {
			t.Fatalf("top site (%d,0) not fresh", x)
		}
	}
	if l.FloodEntryways() {
		t.Fatal("second call should flood nothing new")
	}
	if len(l.Frontier()) != w {
		t.Fatalf("frontier grew on repeated call: %d", len(l.Frontier()))
	}
}

func TestFloodEntrywaysAllSidesNoDuplicates(t *testing.T) {
	cases := []struct{ w, h, want int }{
		{5, 4, 14},
		{1, 1, 1},
		{1, 4, 4},
		{4, 1, 4},
		{2, 2, 4},
	}
	for _, c := range cases {
		l := MustNew(c.w, c.h)
		l.SetFlowDirection(FlowAllSides)
		l.Fill(AllOpen{}, nil)
		l.FloodEntryways()
		if got := len(l.Frontier()); got != c.want {
			t.Fatalf("%dx%d: frontier %d, want %d", c.w, c.h, got, c.want)
		}
		if got := countStatus(l, Fresh); got != c.want {
			t.Fatalf("%dx%d: fresh %d, want %d", c.w, c.h, got, c.want)
		}
	}
}

func TestFlowOneStepBeforeBegunFloodsEntryways(t *testing.T) {
	l := MustNew(3, 3)
	l.Fill(AllOpen{}, nil)
	if !l.FlowOneStep(nil) {
		t.Fatal("first step should flood the top row")
	}
	if !l.Begun() || countStatus(l, Fresh) != 3 {
		t.Fatal("first step should behave like FloodEntryways")
	}
	l.FlowOneStep(nil)
	for x := 0; x < 3; x++ {
		if l.Status(x, 0) != Flooded || l.Status(x, 1) != Fresh {
			t.Fatalf("column %d: rows are %v/%v", x, l.Status(x, 0), l.Status(x, 1))
		}
	}
}

func TestFlowFullyAllOpenAllSides(t *testing.T) {
	l := MustNew(9, 6)
	l.SetFlowDirection(FlowAllSides)
	l.Fill(AllOpen{}, nil)
	l.FlowFully(nil)
	if !l.DonePercolation() {
		t.Fatal("expected done")
	}
	if got := countStatus(l, Flooded); got != 9*6 {
		t.Fatalf("expected every site flooded, got %d", got)
	}
}

func TestFlowFullyAllClosed(t *testing.T) {
	l := MustNew(5, 5)
	l.Fill(Bernoulli{P: 0}, nil)
	l.FlowFully(nil)
	if !l.DonePercolation() {
		t.Fatal("all-closed lattice should be done immediately")
	}
	if countStatus(l, Flooded)+countStatus(l, Fresh) != 0 {
		t.Fatal("nothing should be flooded")
	}
}

func TestFlowRespectsWalls(t *testing.T) {
	l := fromRows(
		"..#..",
		"..#..",
		"#####",
		".....",
	)
	l.FlowFully(nil)
	if l.Percolates() {
		t.Fatal("wall should stop the flow")
	}
	if got := countStatus(l, Flooded); got != 8 {
		t.Fatalf("expected 8 flooded sites above the wall, got %d", got)
	}
}

func TestFlowAbortCarriesFrontier(t *testing.T) {
	l := MustNew(6, 6)
	l.Fill(AllOpen{}, nil)
	l.FloodEntryways()
	calls := 0
	l.FlowOneStep(func() bool {
		calls++
		return calls > 2
	})
	// Two sites processed; four unvisited top-row sites carry over.
	for _, p := range l.Frontier() {
		if !l.IsFresh(p.X, p.Y) {
			t.Fatalf("frontier site %v is %v", p, l.Status(p.X, p.Y))
		}
	}
	if got, want := countStatus(l, Fresh), len(l.Frontier()); got != want {
		t.Fatalf("fresh sites %d != frontier %d", got, want)
	}
	l.FlowFully(nil)
	if got := countStatus(l, Flooded); got != 36 {
		t.Fatalf("resumed flow flooded %d sites, want 36", got)
	}
}

func TestTorusVerticalWrap(t *testing.T) {
	l := fromRows(
		"#.#",
		"###",
		"#.#",
	)
	l.FlowFully(nil)
	if l.IsFlooded(1, 2) {
		t.Fatal("bottom site should not flood without torus")
	}

	l.ResetPercolation()
	l.SetTorus(Torus{Y: true})
	l.FlowFully(nil)
	if !l.IsFlooded(1, 2) {
		t.Fatal("vertical torus should carry the flow to the bottom row")
	}
}

func TestTorusThinLatticesDoNotDuplicate(t *testing.T) {
	cases := []struct {
		w, h int
		dir  FlowDirection
	}{
		{1, 1, FlowTop},
		{1, 5, FlowTop},
		{5, 1, FlowTop},
		{2, 1, FlowAllSides},
		{1, 2, FlowAllSides},
		{2, 2, FlowTop},
	}
	for _, c := range cases {
		l := MustNew(c.w, c.h)
		l.SetTorus(Torus{X: true, Y: true})
		l.SetFlowDirection(c.dir)
		l.Fill(AllOpen{}, nil)
		total := 0
		steps := 0
		for l.FlowOneStep(nil) {
			total += len(l.Frontier())
			steps++
			if steps > c.w*c.h+1 {
				t.Fatalf("%dx%d: flow did not terminate", c.w, c.h)
			}
		}
		if total != c.w*c.h {
			t.Fatalf("%dx%d: frontiers covered %d sites, want %d", c.w, c.h, total, c.w*c.h)
		}
		if got := countStatus(l, Flooded); got != c.w*c.h {
			t.Fatalf("%dx%d: %d flooded", c.w, c.h, got)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := MustNew(4, 4)
	l.Fill(AllOpen{}, nil)
	l.FindClusters(nil)
	c := l.Clone()
	l.Fill(Bernoulli{P: 0}, nil)
	if c.NumClusters() != 1 || len(c.Clusters()[0]) != 16 {
		t.Fatal("clone lost its clusters")
	}
	if c.Status(0, 0) != Flooded {
		t.Fatalf("clone sites changed: %v", c.Status(0, 0))
	}
}
