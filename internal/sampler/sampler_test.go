package sampler

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/hupe1980/replay/internal/sumtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slots is an ordered population of occupied slot indices.
type slots []uint32

func (s slots) Len() int { return len(s) }

func (s slots) Select(rank int) (uint32, error) {
	if rank < 0 || rank >= len(s) {
		return 0, errors.New("rank out of range")
	}
	return s[rank], nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 1024))
}

func newTree(t *testing.T, alpha float64, priorities ...float64) (*sumtree.Tree, slots) {
	t.Helper()
	tree, err := sumtree.New(len(priorities), alpha)
	require.NoError(t, err)
	pop := make(slots, 0, len(priorities))
	for i, p := range priorities {
		require.NoError(t, tree.Update(uint32(i), p))
		pop = append(pop, uint32(i))
	}
	return tree, pop
}

func TestUniform(t *testing.T) {
	t.Run("errors", func(t *testing.T) {
		s := NewUniform(slots{})
		_, _, err := s.Sample(newRand(), 4, 0.4)
		assert.ErrorIs(t, err, ErrEmpty)

		s = NewUniform(slots{1})
		_, _, err = s.Sample(newRand(), 0, 0.4)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	})

	t.Run("distribution", func(t *testing.T) {
		s := NewUniform(slots{3, 5, 7, 9})
		assert.Equal(t, "uniform", s.Name())

		idxs, weights, err := s.Sample(newRand(), 40000, 0.4)
		require.NoError(t, err)
		require.Len(t, idxs, 40000)

		counts := map[uint32]int{}
		for i, idx := range idxs {
			counts[idx]++
			assert.Equal(t, 1.0, weights[i])
		}
		require.Len(t, counts, 4)
		for _, c := range counts {
			assert.InDelta(t, 0.25, float64(c)/40000, 0.02)
		}
	})
}

func TestPrioritized_DominantRecord(t *testing.T) {
	tree, pop := newTree(t, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 100)
	s, err := NewPrioritized(pop, tree, 0)
	require.NoError(t, err)

	idxs, _, err := s.Sample(newRand(), 10000, 0.4)
	require.NoError(t, err)

	last := 0
	for _, idx := range idxs {
		if idx == 9 {
			last++
		}
	}
	assert.Greater(t, float64(last)/10000, 0.8)
}

func TestPrioritized_BiasConvergence(t *testing.T) {
	priorities := []float64{0.5, 1, 2, 4, 8}
	tree, pop := newTree(t, 1, priorities...)
	s, err := NewPrioritized(pop, tree, 0)
	require.NoError(t, err)

	const draws = 200000
	idxs, _, err := s.Sample(newRand(), draws, 0)
	require.NoError(t, err)

	counts := make([]int, len(priorities))
	for _, idx := range idxs {
		counts[idx]++
	}
	for i, p := range priorities {
		assert.InDelta(t, p/15.5, float64(counts[i])/draws, 0.01, "slot %d", i)
		assert.InDelta(t, p/15.5, s.Probability(uint32(i)), 1e-12)
	}
}

func TestPrioritized_Weights(t *testing.T) {
	tree, pop := newTree(t, 1, 1, 3)
	s, err := NewPrioritized(pop, tree, 0)
	require.NoError(t, err)

	idxs, weights, err := s.Sample(newRand(), 256, 1)
	require.NoError(t, err)

	var seen [2]bool
	maxW := 0.0
	for i, idx := range idxs {
		seen[idx] = true
		maxW = math.Max(maxW, weights[i])
		switch idx {
		case 0:
			assert.InDelta(t, 1, weights[i], 1e-12)
		case 1:
			// (2*0.75)^-1 / (2*0.25)^-1
			assert.InDelta(t, 1.0/3, weights[i], 1e-12)
		}
	}
	require.True(t, seen[0] && seen[1])
	assert.InDelta(t, 1, maxW, 1e-12)

	t.Run("beta zero", func(t *testing.T) {
		_, weights, err := s.Sample(newRand(), 16, 0)
		require.NoError(t, err)
		for _, w := range weights {
			assert.Equal(t, 1.0, w)
		}
	})
}

func TestPrioritized_UniformMixing(t *testing.T) {
	tree, pop := newTree(t, 1, 1, 1, 1, 97)

	t.Run("floor probability", func(t *testing.T) {
		s, err := NewPrioritized(pop, tree, 0.4)
		require.NoError(t, err)
		assert.InDelta(t, 0.4/4+0.6*0.01, s.Probability(0), 1e-12)
		assert.InDelta(t, 0.4/4+0.6*0.97, s.Probability(3), 1e-12)

		const draws = 100000
		idxs, _, err := s.Sample(newRand(), draws, 0.5)
		require.NoError(t, err)
		low := 0
		for _, idx := range idxs {
			if idx == 0 {
				low++
			}
		}
		assert.InDelta(t, s.Probability(0), float64(low)/draws, 0.01)
	})

	t.Run("fully uniform", func(t *testing.T) {
		s, err := NewPrioritized(pop, tree, 1)
		require.NoError(t, err)
		_, weights, err := s.Sample(newRand(), 64, 1)
		require.NoError(t, err)
		for _, w := range weights {
			assert.InDelta(t, 1, w, 1e-12)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, u := range []float64{-0.1, 1.1, math.NaN()} {
			_, err := NewPrioritized(pop, tree, u)
			assert.Error(t, err)
		}
	})
}

func TestPrioritized_Errors(t *testing.T) {
	tree, err := sumtree.New(4, 1)
	require.NoError(t, err)

	s, err := NewPrioritized(slots{}, tree, 0)
	require.NoError(t, err)
	_, _, err = s.Sample(newRand(), 1, 0.4)
	assert.ErrorIs(t, err, ErrEmpty)
	_, _, err = s.Sample(newRand(), -1, 0.4)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
	assert.Zero(t, s.Probability(0))
}
