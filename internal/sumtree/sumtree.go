package sumtree

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidPriority is returned for zero, negative, NaN or infinite priorities.
	ErrInvalidPriority = errors.New("priority must be positive and finite")

	// ErrOutOfRange is returned for slot indices outside [0, capacity).
	ErrOutOfRange = errors.New("slot out of range")
)

// Tree is a sum-tree over slot priorities. It is not safe for concurrent use.
type Tree struct {
	alpha    float64
	capacity int
	leaves   int       // power of two >= capacity
	nodes    []float64 // 1-based heap layout, len == 2*leaves
	raw      []float64 // raw (unsharpened) priority per slot, 0 when empty
	max      float64
}

// New creates a tree for capacity slots with the given sharpening exponent.
func New(capacity int, alpha float64) (*Tree, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("alpha must be a finite non-negative number, got %v", alpha)
	}

	leaves := nextPow2(capacity)
	return &Tree{
		alpha:    alpha,
		capacity: capacity,
		leaves:   leaves,
		nodes:    make([]float64, 2*leaves),
		raw:      make([]float64, capacity),
	}, nil
}

// Update sets the priority of idx and refreshes its ancestors.
func (t *Tree) Update(idx uint32, priority float64) error {
	if int(idx) >= t.capacity {
		return fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	if !(priority > 0) || math.IsInf(priority, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidPriority, priority)
	}

	t.raw[idx] = priority
	if priority > t.max {
		t.max = priority
	}
	t.set(idx, t.sharpen(priority))
	return nil
}

// Clear zeroes the weight of idx so that it can no longer be drawn.
// The running maximum is not lowered.
func (t *Tree) Clear(idx uint32) {
	if int(idx) >= t.capacity {
		return
	}
	t.raw[idx] = 0
	t.set(idx, 0)
}

// Reset zeroes every leaf. The running maximum is kept.
func (t *Tree) Reset() {
	clear(t.nodes)
	clear(t.raw)
}

// Total returns the sum of all leaf weights.
func (t *Tree) Total() float64 {
	return t.nodes[1]
}

// Priority returns the raw priority of idx (0 if empty).
func (t *Tree) Priority(idx uint32) float64 {
	if int(idx) >= t.capacity {
		return 0
	}
	return t.raw[idx]
}

// Weight returns the sharpened leaf weight of idx (0 if empty).
func (t *Tree) Weight(idx uint32) float64 {
	if int(idx) >= t.capacity {
		return 0
	}
	return t.nodes[t.leaves+int(idx)]
}

// MaxPriority returns the largest raw priority ever passed to Update.
func (t *Tree) MaxPriority() float64 {
	return t.max
}

// Find maps a uniform draw u in [0, 1) to a slot with probability
// proportional to its weight. ok is false when the tree is empty.
func (t *Tree) Find(u float64) (idx uint32, ok bool) {
	total := t.Total()
	if total <= 0 {
		return 0, false
	}

	target := u * total
	i := 1
	for i < t.leaves {
		left := 2 * i
		if target < t.nodes[left] || t.nodes[left+1] <= 0 {
			i = left
		} else {
			target -= t.nodes[left]
			i = left + 1
		}
	}

	// Rounding can land on an empty leaf next to the boundary; fall back to
	// the nearest non-empty leaf.
	if t.nodes[i] <= 0 {
		return t.firstNonEmpty()
	}
	return uint32(i - t.leaves), true
}

// Sum returns the sum of all leaf weights computed leaf by leaf.
// It is used to audit Total.
func (t *Tree) Sum() float64 {
	var sum float64
	for _, w := range t.nodes[t.leaves : t.leaves+t.capacity] {
		sum += w
	}
	return sum
}

func (t *Tree) set(idx uint32, weight float64) {
	i := t.leaves + int(idx)
	t.nodes[i] = weight
	for i > 1 {
		i /= 2
		t.nodes[i] = t.nodes[2*i] + t.nodes[2*i+1]
	}
}

func (t *Tree) sharpen(priority float64) float64 {
	if t.alpha == 1 {
		return priority
	}
	return math.Pow(priority, t.alpha)
}

func (t *Tree) firstNonEmpty() (uint32, bool) {
	i := 1
	for i < t.leaves {
		if t.nodes[2*i] > 0 {
			i = 2 * i
		} else if t.nodes[2*i+1] > 0 {
			i = 2*i + 1
		} else {
			return 0, false
		}
	}
	if t.nodes[i] <= 0 {
		return 0, false
	}
	return uint32(i - t.leaves), true
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
