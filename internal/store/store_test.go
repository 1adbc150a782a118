package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/sweep"
)

func sampleResult() sweep.Result {
	return sweep.Result{
		Options: sweep.Options{
			Width: 20, Height: 10, Probabilities: []float64{0.6, 0.5}, Trials: 4, Workers: 2, Seed: 42,
			Torus: lattice.Torus{X: true},
		},
		Points: []sweep.Point{
			{P: 0.6, Trials: 4, Percolated: 3, PercolationProbability: 0.75, LargestMean: 0.5, LargestStdDev: 0.1, ClustersMean: 7},
			{P: 0.5, Trials: 4, Percolated: 1, PercolationProbability: 0.25, LargestMean: 0.2, LargestStdDev: 0.05, ClustersMean: 12},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestSaveAndLoadSweep(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "sweeps.db"))
	require.NoError(t, err)
	defer s.Close()

	res := sampleResult()
	id, err := s.SaveSweep(ctx, res)
	require.NoError(t, err)
	require.Positive(t, id)

	recs, err := s.Sweeps(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	require.Equal(t, id, rec.ID)
	require.Equal(t, 20, rec.Width)
	require.Equal(t, int64(42), rec.Seed)
	require.Equal(t, 1500*time.Millisecond, rec.Elapsed)
	require.Equal(t, res.Options.Probabilities, rec.Options.Probabilities)
	require.True(t, rec.Options.Torus.X)

	pts, err := s.Points(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []sweep.Point{res.Points[1], res.Points[0]}, pts)
}

func TestSweepsNewestFirstAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sweeps.db")

	s, err := Open(path)
	require.NoError(t, err)
	first, err := s.SaveSweep(ctx, sampleResult())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	second, err := s.SaveSweep(ctx, sampleResult())
	require.NoError(t, err)

	recs, err := s.Sweeps(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, second, recs[0].ID)
	require.Equal(t, first, recs[1].ID)
}

func TestDuplicatePointRollsBack(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "sweeps.db"))
	require.NoError(t, err)
	defer s.Close()

	res := sampleResult()
	res.Points = append(res.Points, res.Points[0])
	_, err = s.SaveSweep(ctx, res)
	require.Error(t, err)

	recs, err := s.Sweeps(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)
}
