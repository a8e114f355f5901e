// rng.go
package qmeasure

import (
	"math"
	"math/rand/v2"
)

// RandomSource yields uniform draws in [0,1). Every component that samples
// outcomes takes one of these so tests and state replay can inject a
// deterministic generator instead of the process-global stream.
type RandomSource interface {
	Float64() float64
}

type pcgSource struct {
	r *rand.Rand
}

func (s *pcgSource) Float64() float64 {
	return s.r.Float64()
}

// NewSeededSource returns a PCG-backed source that replays the same draw
// sequence for the same pair of seed words.
func NewSeededSource(seed1, seed2 uint64) RandomSource {
	return &pcgSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewSource returns a source seeded from the process-global generator,
// suitable for interactive (non-replayed) use.
func NewSource() RandomSource {
	return NewSeededSource(rand.Uint64(), rand.Uint64())
}

// sourceFromSeed derives a deterministic sub-generator from a stored outcome
// seed in (0,1). The same seed always yields the same sequence, which is what
// lets a whole outcome batch be persisted as a single float.
func sourceFromSeed(seed float64) RandomSource {
	bits := math.Float64bits(seed)
	return NewSeededSource(bits, bits^0x9e3779b97f4a7c15)
}
