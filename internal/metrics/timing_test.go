package metrics

import (
	"testing"
	"time"
)

func TestRecordTracksMinMaxAvg(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(6 * time.Millisecond)

	s := m.Stats()
	if s.Count != 3 {
		t.Fatalf("count = %d, want 3", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 6 || s.AvgMs != 4 || s.TotalMs != 12 {
		t.Fatalf("unexpected stats %+v", s)
	}
	m.Reset()
	if m.Count() != 0 || m.Stats().MaxMs != 0 {
		t.Fatalf("reset left data: %+v", m.Stats())
	}
}

func TestDisabledIgnoresSamples(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)
	m := newTimingMetric("off")
	m.Record(time.Second)
	Timer(m)()
	if m.Count() != 0 {
		t.Fatalf("count = %d, want 0", m.Count())
	}
}

func TestAllStatsSkipsEmpty(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()
	FlowStep.Record(time.Microsecond)
	stats := AllStats()
	if len(stats) != 1 || stats[0].Name != "flow_step" {
		t.Fatalf("AllStats = %+v", stats)
	}
}
