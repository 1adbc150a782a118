package core

import "math/rand/v2"

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Seed draws a fresh seed for a random site measure.
func (r *RNG) Seed() uint64 {
	return r.r.Uint64()
}

// SiteUnit maps (seed, x, y) to a uniform value in [0, 1). The result depends
// only on its arguments, so sites can be generated in any order.
func SiteUnit(seed uint64, x, y int) float64 {
	h := mix64(seed ^ mix64(uint64(uint32(x))<<32|uint64(uint32(y))))
	return float64(h>>11) / (1 << 53)
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
