package sampler

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmpty is returned when sampling from a population with no occupied slots.
	ErrEmpty = errors.New("no occupied slots")

	// ErrInvalidBatchSize is returned for a batch size <= 0.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// Source supplies randomness. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Population is the set of occupied slots.
type Population interface {
	Len() int
	// Select returns the occupied slot of the given rank in [0, Len()).
	Select(rank int) (uint32, error)
}

// Priorities is the weighted index over slots.
type Priorities interface {
	Total() float64
	Weight(idx uint32) float64
	Priority(idx uint32) float64
	Find(u float64) (uint32, bool)
	Update(idx uint32, priority float64) error
}

// Sampler draws n slots and their normalized importance weights.
type Sampler interface {
	Name() string
	Sample(src Source, n int, beta float64) (idxs []uint32, weights []float64, err error)
}

func checkBatch(pop Population, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBatchSize, n)
	}
	size := pop.Len()
	if size == 0 {
		return 0, ErrEmpty
	}
	return size, nil
}

// importanceWeights converts draw probabilities into (N*P)^-beta weights
// normalized by their maximum. probs is overwritten.
func importanceWeights(probs []float64, size int, beta float64) []float64 {
	maxW := 0.0
	for i, p := range probs {
		w := 1.0
		if beta != 0 && p > 0 {
			w = math.Pow(float64(size)*p, -beta)
		}
		probs[i] = w
		if w > maxW {
			maxW = w
		}
	}
	if maxW > 0 {
		for i := range probs {
			probs[i] /= maxW
		}
	}
	return probs
}

func uniformDraw(src Source, pop Population, size int) (uint32, error) {
	return pop.Select(src.IntN(size))
}
