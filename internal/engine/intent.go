package engine

// phase identifies one unit of work the worker can run against the lattice.
type phase uint8

const (
	phaseIdle phase = iota
	phaseReset
	phaseEntryways
	phaseFill
	phaseFlowFully
	phaseFindClusters
	phaseStep
)

func (p phase) String() string {
	switch p {
	case phaseReset:
		return "reset"
	case phaseEntryways:
		return "flood_entryways"
	case phaseFill:
		return "fill"
	case phaseFlowFully:
		return "flow_fully"
	case phaseFindClusters:
		return "find_clusters"
	case phaseStep:
		return "flow_step"
	default:
		return "idle"
	}
}

// generation is the pending whole-lattice request. A fill implies a reset.
type generation uint8

const (
	genNone generation = iota
	genReset
	genFill
)

// percolation is the pending full-lattice computation. Flowing fully and
// finding clusters exclude each other.
type percolation uint8

const (
	percNone percolation = iota
	percFlowFully
	percFindClusters
)

// intents holds coalesced requests. It is guarded by Engine.reqMu.
type intents struct {
	gen       generation
	percolate percolation
	entryways bool
	steps     uint64
	snapshot  bool
}

// requestFill supersedes every other pending lattice request.
func (q *intents) requestFill() (coalesced bool) {
	coalesced = q.gen == genFill
	q.gen = genFill
	q.entryways = false
	q.percolate = percNone
	q.steps = 0
	return coalesced
}

// requestReset is absorbed by a pending fill.
func (q *intents) requestReset() (coalesced bool) {
	q.percolate = percNone
	q.steps = 0
	if q.gen != genNone {
		return true
	}
	q.gen = genReset
	return false
}

func (q *intents) requestEntryways() (coalesced bool) {
	coalesced = q.entryways
	q.entryways = true
	return coalesced
}

func (q *intents) requestPercolation(p percolation) (coalesced bool) {
	coalesced = q.percolate == p
	q.percolate = p
	return coalesced
}

func (q *intents) requestSteps(n uint64) {
	q.steps += n
}

// clear drops every pending lattice request but keeps a snapshot request.
func (q *intents) clear() {
	*q = intents{snapshot: q.snapshot}
}

// percolationPending reports whether work that would change the display
// right after a fill or reset is queued.
func (q *intents) percolationPending() bool {
	return q.percolate != percNone || q.steps > 0
}

// take removes and returns the highest-priority pending phase. Entryways
// requested while a fill is pending wait for that fill, so they apply to the
// new lattice.
func (q *intents) take() phase {
	switch {
	case q.gen == genReset:
		q.gen = genNone
		return phaseReset
	case q.entryways && q.gen != genFill:
		q.entryways = false
		return phaseEntryways
	case q.gen == genFill:
		q.gen = genNone
		return phaseFill
	case q.percolate == percFlowFully:
		q.percolate = percNone
		q.steps = 0
		return phaseFlowFully
	case q.percolate == percFindClusters:
		q.percolate = percNone
		return phaseFindClusters
	case q.steps > 0:
		q.steps--
		return phaseStep
	}
	return phaseIdle
}
