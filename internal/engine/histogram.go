package engine

import "slices"

// SizeCount is one histogram bucket: Count clusters of Size sites each.
type SizeCount struct {
	Size  int `json:"size"`
	Count int `json:"count"`
}

// histogram buckets cluster sizes, largest size first.
func histogram(sizes []int) []SizeCount {
	counts := make(map[int]int)
	for _, s := range sizes {
		counts[s]++
	}
	out := make([]SizeCount, 0, len(counts))
	for s, c := range counts {
		out = append(out, SizeCount{Size: s, Count: c})
	}
	slices.SortFunc(out, func(a, b SizeCount) int { return b.Size - a.Size })
	return out
}

func (e *Engine) computeClusterSizes(sizes []int, area int) {
	e.sizesMu.Lock()
	defer e.sizesMu.Unlock()
	e.runSizes.Store(true)
	defer e.runSizes.Store(false)

	e.sizes = histogram(sizes)
	largest := 0
	if len(e.sizes) > 0 {
		largest = e.sizes[0].Size
	}
	e.maxCluster.Store(int64(largest))
	e.totalSites.Store(int64(area))
}

func (e *Engine) clearClusterSizes() {
	e.sizesMu.Lock()
	e.sizes = nil
	e.maxCluster.Store(0)
	e.sizesMu.Unlock()
}

// ClusterSizes returns the histogram of the last completed cluster search.
// It returns false instead of waiting while the histogram is being rebuilt.
func (e *Engine) ClusterSizes() ([]SizeCount, bool) {
	if !e.sizesMu.TryLock() {
		return nil, false
	}
	defer e.sizesMu.Unlock()
	return slices.Clone(e.sizes), true
}

// LargestClusterShare returns the largest cluster as a percentage of all
// sites, or zero before any cluster search.
func (e *Engine) LargestClusterShare() float64 {
	total := e.totalSites.Load()
	if total == 0 {
		return 0
	}
	return 100 * float64(e.maxCluster.Load()) / float64(total)
}
