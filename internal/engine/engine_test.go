package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yshklarov/percolator/internal/core"
	"github.com/yshklarov/percolator/internal/lattice"
)

const waitFor = 5 * time.Second

// middleRowClosed closes row 1 and opens everything else.
type middleRowClosed struct{}

func (middleRowClosed) Name() string { return "middle-row" }

func (middleRowClosed) StatusAt(_, y int) lattice.Status {
	if y == 1 {
		return lattice.Closed
	}
	return lattice.Open
}

type panicMeasure struct{}

func (panicMeasure) Name() string { return "panic" }

func (panicMeasure) StatusAt(_, _ int) lattice.Status { panic("measure exploded") }

func newEngine(t *testing.T, w, h int, m lattice.Measure, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithIdlePoll(time.Millisecond), WithLogLevel(LogLevelNone)}, opts...)
	e := New(w, h, m, opts...)
	t.Cleanup(e.Close)
	return e
}

// waitSnapshot polls until a snapshot satisfying accept arrives.
func waitSnapshot(t *testing.T, e *Engine, accept func(*Snapshot) bool) *Snapshot {
	t.Helper()
	var got *Snapshot
	require.Eventually(t, func() bool {
		s, ok := e.Snapshot(50 * time.Millisecond)
		if ok && (accept == nil || accept(s)) {
			got = s
			return true
		}
		return false
	}, waitFor, time.Millisecond)
	return got
}

func count(s *Snapshot, want lattice.Status) int {
	n := 0
	for _, st := range s.Sites() {
		if st == want {
			n++
		}
	}
	return n
}

func TestNewFillsAndPublishes(t *testing.T) {
	e := newEngine(t, 8, 6, lattice.AllOpen{})
	s := waitSnapshot(t, e, nil)
	require.Equal(t, 8, s.Width())
	require.Equal(t, 6, s.Height())
	require.Equal(t, 48, count(s, lattice.Open))
	require.False(t, s.Done())
	require.Equal(t, uint64(1), s.Generation)

	// Nothing changed, so nothing new is published.
	require.Never(t, func() bool {
		_, ok := e.Snapshot(0)
		return ok
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestTwoFillsPublishOnlyTheLatest(t *testing.T) {
	e := newEngine(t, 3000, 3000, lattice.Bernoulli{P: 0.5, Seed: 1})
	e.SetSize(40, 30)
	e.SetMeasure(lattice.Checkerboard{})
	e.Fill()

	s := waitSnapshot(t, e, nil)
	require.Equal(t, 40, s.Width())
	require.Equal(t, 30, s.Height())
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			require.Equal(t, lattice.Checkerboard{}.StatusAt(x, y), s.Status(x, y), "site (%d,%d)", x, y)
		}
	}
	require.Never(t, func() bool {
		_, ok := e.Snapshot(0)
		return ok
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestSnapshotDimensionsFollowCompletedFill(t *testing.T) {
	e := newEngine(t, 10, 10, lattice.AllOpen{})
	waitSnapshot(t, e, nil)

	e.SetSize(20, 5)
	e.FlowFully()
	s := waitSnapshot(t, e, func(s *Snapshot) bool { return s.Done() })
	require.Equal(t, 10, s.Width(), "size change without fill must not be visible")
	require.Equal(t, 10, s.Height())
	require.Equal(t, core.Size{W: 20, H: 5}, e.Size())

	e.Fill()
	s = waitSnapshot(t, e, nil)
	require.Equal(t, 20, s.Width())
	require.Equal(t, 5, s.Height())
}

func TestAllocationFailureUsesPlaceholder(t *testing.T) {
	e := newEngine(t, 10, 10, lattice.AllOpen{}, WithMaxSites(50))
	require.Eventually(t, e.HasErrors, waitFor, time.Millisecond)

	errs := e.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, "fill", errs[0].Phase)
	require.ErrorIs(t, errs[0], lattice.ErrTooLarge)
	require.False(t, e.HasErrors(), "Errors drains the queue")

	s := waitSnapshot(t, e, nil)
	require.Equal(t, 1, s.Width())
	require.Equal(t, 1, s.Height())

	e.SetSize(5, 5)
	e.Fill()
	s = waitSnapshot(t, e, func(s *Snapshot) bool { return s.Width() == 5 })
	require.Equal(t, 5, s.Height())
}

func TestPanickingPhaseIsRecorded(t *testing.T) {
	e := newEngine(t, 4, 4, panicMeasure{})
	require.Eventually(t, e.HasErrors, waitFor, time.Millisecond)
	errs := e.Errors()
	require.Equal(t, "fill", errs[0].Phase)
	require.Contains(t, errs[0].Error(), "measure exploded")

	e.SetMeasure(lattice.AllOpen{})
	e.Fill()
	s := waitSnapshot(t, e, nil)
	require.Equal(t, 16, count(s, lattice.Open))
}

func TestFlowFullyAllSides(t *testing.T) {
	e := newEngine(t, 12, 9, lattice.AllOpen{}, WithFlowDirection(lattice.FlowAllSides))
	e.FlowFully()
	require.Eventually(t, e.DonePercolation, waitFor, time.Millisecond)
	s := waitSnapshot(t, e, func(s *Snapshot) bool { return s.Done() })
	require.Equal(t, 12*9, count(s, lattice.Flooded))
}

func TestFloodEntrywaysAppliesToPendingFill(t *testing.T) {
	e := newEngine(t, 6, 4, lattice.AllOpen{})
	e.SetSize(7, 4)
	e.Fill()
	e.FloodEntryways()
	s := waitSnapshot(t, e, func(s *Snapshot) bool { return count(s, lattice.Fresh) > 0 })
	require.Equal(t, 7, s.Width())
	require.Equal(t, 7, count(s, lattice.Fresh))
}

func TestFindClustersMiddleRowClosed(t *testing.T) {
	e := newEngine(t, 3, 3, middleRowClosed{})
	e.FindClusters()
	require.Eventually(t, func() bool {
		sizes, ok := e.ClusterSizes()
		return ok && len(sizes) > 0
	}, waitFor, time.Millisecond)
	require.Equal(t, 2, e.NumClusters())
	sizes, _ := e.ClusterSizes()
	require.Equal(t, []SizeCount{{Size: 3, Count: 2}}, sizes)
	require.InDelta(t, 100.0/3, e.LargestClusterShare(), 1e-9)

	e.SetTorus(lattice.Torus{Y: true})
	e.FindClusters()
	require.Eventually(t, func() bool {
		sizes, ok := e.ClusterSizes()
		return ok && len(sizes) == 1 && sizes[0] == SizeCount{Size: 6, Count: 1}
	}, waitFor, time.Millisecond)
	require.Equal(t, 1, e.NumClusters())

	s := waitSnapshot(t, e, func(s *Snapshot) bool { return s.NumClusters() == 1 })
	require.Len(t, s.Clusters()[0], 6)
}

func TestResetPercolationUnfloods(t *testing.T) {
	e := newEngine(t, 6, 6, lattice.AllOpen{})
	e.FlowFully()
	waitSnapshot(t, e, func(s *Snapshot) bool { return s.Done() })

	e.ResetPercolation()
	s := waitSnapshot(t, e, func(s *Snapshot) bool { return count(s, lattice.Open) == 36 })
	require.False(t, s.Done())
	require.False(t, e.DonePercolation())
}

func TestStopFlowQueuesNothingAfterward(t *testing.T) {
	e := newEngine(t, 300, 300, lattice.AllOpen{}, WithFlowSpeed(2000))
	e.StartFlow()
	require.True(t, e.IsFlowing())
	require.Eventually(t, func() bool { return e.Metrics().PacerSteps > 0 }, waitFor, time.Millisecond)

	e.StopFlow()
	require.False(t, e.IsFlowing())
	enqueued := e.Metrics().PacerSteps
	pending := e.PendingSteps()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, enqueued, e.Metrics().PacerSteps)
	require.LessOrEqual(t, e.PendingSteps(), pending)
}

func TestPacerStopsItselfWhenFlowEnds(t *testing.T) {
	e := newEngine(t, 5, 5, lattice.AllOpen{}, WithFlowSpeed(MaxFlowSpeed))
	e.StartFlow()
	require.Eventually(t, func() bool {
		return !e.IsFlowing() && e.DonePercolation()
	}, waitFor, time.Millisecond)
	e.StopFlow()
	require.Eventually(t, func() bool { return e.PendingSteps() == 0 }, waitFor, time.Millisecond)
}

func TestResetStopsFlow(t *testing.T) {
	e := newEngine(t, 50, 50, lattice.AllOpen{}, WithFlowSpeed(1))
	e.StartFlow()
	e.ResetPercolation()
	require.False(t, e.IsFlowing())
	require.Zero(t, e.PendingSteps())
}

func TestBusyLabelAndAbort(t *testing.T) {
	e := newEngine(t, 4000, 4000, lattice.Bernoulli{P: 0.5, Seed: 3})
	require.Eventually(t, func() bool {
		label, busy := e.Busy()
		return busy && label == "Filling lattice"
	}, waitFor, 100*time.Microsecond)

	e.FlowFully()
	e.Abort()
	require.Eventually(t, func() bool {
		_, busy := e.Busy()
		return !busy
	}, waitFor, time.Millisecond)
	require.Zero(t, e.PendingSteps())

	// The aborted fill left an incomplete lattice, which is never published.
	require.Never(t, func() bool {
		_, ok := e.Snapshot(0)
		return ok
	}, 100*time.Millisecond, 5*time.Millisecond)
	require.Positive(t, e.Metrics().PhasesCancelled)

	e.SetSize(5, 5)
	e.Fill()
	s := waitSnapshot(t, e, nil)
	require.Equal(t, 5, s.Width())
}

func TestSnapshotIsIndependent(t *testing.T) {
	e := newEngine(t, 4, 4, lattice.AllOpen{})
	s := waitSnapshot(t, e, nil)
	s.Lattice().SetStatus(0, 0, lattice.Closed)

	e.FlowSteps(1)
	next := waitSnapshot(t, e, nil)
	require.Equal(t, lattice.Fresh, next.Status(0, 0))
	require.Greater(t, next.Version, s.Version)
}

func TestFlowSpeedClamped(t *testing.T) {
	e := newEngine(t, 2, 2, nil)
	e.SetFlowSpeed(0)
	require.Equal(t, MinFlowSpeed, e.FlowSpeed())
	e.SetFlowSpeed(1e9)
	require.Equal(t, MaxFlowSpeed, e.FlowSpeed())
	require.Equal(t, lattice.Measure(lattice.AllOpen{}), e.Measure())
}

func TestCloseIsIdempotentAndIgnoresLaterRequests(t *testing.T) {
	e := New(3, 3, lattice.AllOpen{}, WithLogLevel(LogLevelNone))
	e.Close()
	e.Close()
	e.Fill()
	e.FlowFully()
	e.StartFlow()
	require.False(t, e.IsFlowing())
	_, ok := e.Snapshot(time.Second)
	require.False(t, ok)
}

func TestHistogramOrdersBySizeDescending(t *testing.T) {
	got := histogram([]int{1, 4, 1, 2, 4, 1})
	require.Equal(t, []SizeCount{{4, 2}, {2, 1}, {1, 3}}, got)
	require.Empty(t, histogram(nil))
}

func TestSafeComputeWrapsErrorsAndPanics(t *testing.T) {
	cause := errors.New("boom")
	perr := safeCompute("fill", func() error { return cause })
	require.NotNil(t, perr)
	require.ErrorIs(t, *perr, cause)
	require.Equal(t, "fill failed: boom", perr.Error())

	perr = safeCompute("flow_step", func() error { panic("bad") })
	require.NotNil(t, perr)
	require.Equal(t, "flow_step", perr.Phase)
	require.Contains(t, perr.Cause.Error(), "panic: bad")

	require.Nil(t, safeCompute("reset", func() error { return nil }))
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"none": LogLevelNone, "ERROR": LogLevelError, "warning": LogLevelWarn,
		"3": LogLevelInfo, " debug ": LogLevelDebug, "trace": LogLevelTrace, "bogus": LogLevelWarn,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestFillAndResetClearDoneImmediately(t *testing.T) {
	e := newEngine(t, 20, 20, lattice.AllOpen{})
	e.FlowFully()
	require.Eventually(t, e.DonePercolation, waitFor, time.Millisecond)

	e.Fill()
	require.False(t, e.DonePercolation())
	require.Zero(t, e.NumClusters())

	e.FindClusters()
	require.Eventually(t, func() bool { return e.NumClusters() == 1 && e.DonePercolation() }, waitFor, time.Millisecond)

	e.ResetPercolation()
	require.False(t, e.DonePercolation())
	require.Zero(t, e.NumClusters())
	require.Never(t, e.DonePercolation, 50*time.Millisecond, time.Millisecond)
}

func TestStoppedPacerQueuesNoSteps(t *testing.T) {
	e := newEngine(t, 10, 10, lattice.AllOpen{})
	p := newPacer()
	p.signal()
	require.False(t, e.queuePacerSteps(p, 5))
	require.Zero(t, e.PendingSteps())
	require.Zero(t, e.Metrics().PacerSteps)

	require.True(t, e.queuePacerSteps(newPacer(), 3))
	require.Equal(t, uint64(3), e.Metrics().PacerSteps)
}
