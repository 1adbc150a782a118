package lattice

import (
	"slices"

	"github.com/yshklarov/percolator/internal/core"
)

// FindClusters un-floods the lattice and then decomposes its open sites into
// clusters by flooding from each still-open site in row-major order.
// Clusters are therefore listed in seed-scan order. If abort stops it, the
// partial cluster list is discarded and false is returned.
func (l *Lattice) FindClusters(abort Abort) bool {
	l.ResetPercolation()
	l.begun = true
	w, h := l.sites.W, l.sites.H
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if abort.requested() {
				l.abandonClusters()
				return false
			}
			if l.sites.At(x, y) != Open {
				continue
			}
			l.frontier = append(l.frontier[:0], core.Coord{X: x, Y: y})
			l.sites.Set(x, y, Fresh)
			l.flowFully(true, abort)
			if abort.requested() {
				l.abandonClusters()
				return false
			}
			l.clusters = append(l.clusters, l.current)
			l.current = nil
		}
	}
	l.frontier = l.frontier[:0]
	return true
}

func (l *Lattice) abandonClusters() {
	l.clusters = nil
	l.current = nil
}

// SortClusters orders clusters by descending size. Equal-sized clusters keep
// their scan order.
func (l *Lattice) SortClusters() {
	slices.SortStableFunc(l.clusters, func(a, b Cluster) int {
		return len(b) - len(a)
	})
}

// NumClusters returns the number of clusters found by the last FindClusters.
func (l *Lattice) NumClusters() int { return len(l.clusters) }

// Clusters returns the cluster list. The slices must not be modified.
func (l *Lattice) Clusters() []Cluster { return l.clusters }

// ClusterSizes returns the size of every cluster, in cluster order.
func (l *Lattice) ClusterSizes() []int {
	sizes := make([]int, len(l.clusters))
	for i, c := range l.clusters {
		sizes[i] = len(c)
	}
	return sizes
}
