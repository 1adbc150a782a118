package lattice

import "github.com/yshklarov/percolator/internal/core"

// Fill assigns every site the status chosen by m, in row-major order. It
// clears the frontier, the clusters and the begun flag first. It returns
// false if abort stopped it before the last site.
func (l *Lattice) Fill(m Measure, abort Abort) bool {
	l.clearClusters()
	l.frontier = l.frontier[:0]
	l.begun = false
	w, h := l.sites.W, l.sites.H
	cells := l.sites.Cells()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if abort.requested() {
				return false
			}
			cells[y*w+x] = m.StatusAt(x, y)
		}
	}
	return true
}

// FloodEntryways floods every open entryway and adds it to the frontier.
// Entryways are the top row for FlowTop, or the whole border for
// FlowAllSides. It returns true if anything was newly flooded.
func (l *Lattice) FloodEntryways() bool {
	l.begun = true
	w, h := l.sites.W, l.sites.H
	flooded := false
	flood := func(x, y int) {
		if l.sites.At(x, y) == Open {
			l.sites.Set(x, y, Fresh)
			l.frontier = append(l.frontier, core.Coord{X: x, Y: y})
			flooded = true
		}
	}

	switch l.direction {
	case FlowAllSides:
		for x := 0; x < w; x++ {
			flood(x, 0)
			flood(x, h-1)
		}
		for y := 1; y < h-1; y++ {
			flood(0, y)
			flood(w-1, y)
		}
	default:
		for x := 0; x < w; x++ {
			flood(x, 0)
		}
	}
	return flooded
}

// FlowOneStep advances the flood by one breadth-first step: every frontier
// site becomes Flooded and its open neighbours become the new frontier. If
// flooding has not begun it floods the entryways instead. It returns true
// if the new frontier is non-empty.
//
// When aborted, frontier sites not yet visited stay Fresh and remain in the
// frontier, so a later step continues where this one stopped.
func (l *Lattice) FlowOneStep(abort Abort) bool {
	if !l.begun {
		return l.FloodEntryways()
	}
	next := l.next[:0]
	for i, p := range l.frontier {
		if abort.requested() {
			next = append(next, l.frontier[i:]...)
			break
		}
		l.sites.Set(p.X, p.Y, Flooded)
		next = l.spread(p, next)
	}
	l.frontier, l.next = next, l.frontier[:0]
	return len(l.frontier) > 0
}

// spread floods the open 4-neighbours of p and appends them to next.
func (l *Lattice) spread(p core.Coord, next []core.Coord) []core.Coord {
	w, h := l.sites.W, l.sites.H
	try := func(x, y int) {
		if l.sites.At(x, y) == Open {
			l.sites.Set(x, y, Fresh)
			next = append(next, core.Coord{X: x, Y: y})
		}
	}

	switch {
	case p.Y > 0:
		try(p.X, p.Y-1)
	case l.torus.Y:
		try(p.X, h-1)
	}
	switch {
	case p.Y < h-1:
		try(p.X, p.Y+1)
	case l.torus.Y:
		try(p.X, 0)
	}
	switch {
	case p.X > 0:
		try(p.X-1, p.Y)
	case l.torus.X:
		try(w-1, p.Y)
	}
	switch {
	case p.X < w-1:
		try(p.X+1, p.Y)
	case l.torus.X:
		try(0, p.Y)
	}
	return next
}

// FlowFully repeats FlowOneStep until the frontier is empty or abort
// returns true.
func (l *Lattice) FlowFully(abort Abort) {
	l.flowFully(false, abort)
}

func (l *Lattice) flowFully(track bool, abort Abort) {
	if !l.begun {
		l.FloodEntryways()
	}
	if track {
		for {
			l.current = append(l.current, l.frontier...)
			if abort.requested() || !l.FlowOneStep(abort) {
				return
			}
		}
	}
	for !abort.requested() && l.FlowOneStep(abort) {
	}
}
