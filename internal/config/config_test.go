package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/session"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	m, err := cfg.LatticeMeasure()
	require.NoError(t, err)
	require.Equal(t, lattice.Measure(lattice.Bernoulli{P: lattice.Threshold, Seed: 1}), m)
}

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "percolator.yaml")
	doc := `
width: 64
height: 48
measure:
  kind: diagonals
  period: 4
flow:
  direction: all_sides
torus:
  y: true
mode: clusters
auto_find: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Width)
	require.Equal(t, 48, cfg.Height)
	require.Equal(t, lattice.Torus{Y: true}, cfg.Torus)
	require.Equal(t, 10.0, cfg.Flow.Speed, "unset keys keep their defaults")
	require.True(t, cfg.AutoFind)

	m, err := cfg.LatticeMeasure()
	require.NoError(t, err)
	require.Equal(t, lattice.Measure(lattice.Diagonals{Period: 4}), m)

	opts := cfg.SessionOptions()
	require.Equal(t, session.ModeClusters, opts.Mode)
	require.True(t, opts.AutoFind)
}

func TestLoadFromRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: [1, 2"), 0o644))
	_, err := LoadFrom(path)
	require.ErrorContains(t, err, "parsing config")
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Width = 99
	cfg.Measure = MeasureConfig{Kind: "dots", Period: 3}
	require.NoError(t, SaveTo(cfg, path))
	got, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 0
	cfg.Measure.Kind = "hexagons"
	cfg.Flow.Direction = "sideways"
	cfg.Flow.Speed = 0
	cfg.Mode = "dance"
	cfg.MaxSites = -1
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"out of range", "hexagons", "sideways", "flow speed", "dance", "max_sites"} {
		require.ErrorContains(t, err, want)
	}
	require.ErrorIs(t, err, lattice.ErrUnknownMeasure)
}

func TestParseFlagsWithoutFile(t *testing.T) {
	cfg, path, err := Parse(newFlagSet(), []string{"-width", "12", "-measure", "checkerboard", "-torus-x"})
	require.NoError(t, err)
	require.Empty(t, path)
	require.Equal(t, 12, cfg.Width)
	require.Equal(t, 30, cfg.Height)
	require.True(t, cfg.Torus.X)
	require.Equal(t, "checkerboard", cfg.Measure.Kind)
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: 50\nheight: 40\nflow:\n  speed: 200\n  direction: top\n"), 0o644))

	cfg, gotPath, err := Parse(newFlagSet(), []string{"-config", path, "-height", "7", "-auto-flow"})
	require.NoError(t, err)
	require.Equal(t, path, gotPath)
	require.Equal(t, 50, cfg.Width, "file value kept")
	require.Equal(t, 7, cfg.Height, "explicit flag wins")
	require.Equal(t, 200.0, cfg.Flow.Speed)
	require.True(t, cfg.AutoFlow)
}

func TestParseReportsInvalidValues(t *testing.T) {
	_, _, err := Parse(newFlagSet(), []string{"-p", "1.5"})
	require.Error(t, err)
}

func TestApplyRefillsEngine(t *testing.T) {
	e := engine.New(3, 3, lattice.AllOpen{}, engine.WithIdlePoll(time.Millisecond), engine.WithLogLevel(engine.LogLevelNone))
	defer e.Close()

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 9, 4
	cfg.Measure = MeasureConfig{Kind: "checkerboard"}
	cfg.Flow = FlowConfig{Direction: "all_sides", Speed: 123}
	cfg.Torus = lattice.Torus{X: true}
	require.NoError(t, cfg.Apply(e))

	require.Equal(t, lattice.FlowAllSides, e.FlowDirection())
	require.Equal(t, lattice.Torus{X: true}, e.Torus())
	require.Equal(t, 123.0, e.FlowSpeed())
	require.Eventually(t, func() bool {
		s, ok := e.Snapshot(0)
		return ok && s.Width() == 9 && s.Height() == 4 && s.Status(0, 0) == lattice.Closed
	}, 5*time.Second, time.Millisecond)

	bad := cfg
	bad.Width = -1
	require.Error(t, bad.Apply(e))
	require.Equal(t, 9, e.Size().W, "invalid config must not touch the engine")
}

func TestNewEngineUsesOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flow.Direction = "all_sides"
	cfg.Flow.Speed = 42
	e, err := cfg.NewEngine(engine.WithLogLevel(engine.LogLevelNone))
	require.NoError(t, err)
	defer e.Close()
	require.Equal(t, lattice.FlowAllSides, e.FlowDirection())
	require.Equal(t, 42.0, e.FlowSpeed())

	cfg.Mode = "bogus"
	_, err = cfg.NewEngine()
	require.Error(t, err)
}
