package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/replay/metadata"
	"github.com/hupe1980/replay/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns, as a float64, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float64 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) []model.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([]model.Vector, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// Priorities returns n priorities drawn uniformly from [lo, hi).
func (r *RNG) Priorities(n int, lo, hi float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = lo + r.rand.Float64()*(hi-lo)
	}
	return out
}

// ParetoPriorities returns n heavy-tailed priorities (Pareto with scale 1
// and the given shape), the typical shape of absolute TD errors.
func (r *RNG) ParetoPriorities(n int, shape float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		u := 1 - r.rand.Float64() // (0, 1]
		out[i] = math.Pow(u, -1/shape)
	}
	return out
}

// StepShape describes the vector sizes of generated steps.
type StepShape struct {
	Obs int
	Act int
	// Extra adds a small typed side-channel document to every step.
	Extra bool
}

// Step generates a single non-terminal step.
func (r *RNG) Step(shape StepShape) model.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step(shape, 0)
}

// Trajectory generates length steps whose last step is terminal.
// Step i carries reward i and, with shape.Extra, an "t" entry of i.
func (r *RNG) Trajectory(length int, shape StepShape) []model.Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := make([]model.Step, length)
	for i := range steps {
		steps[i] = r.step(shape, i)
	}
	if length > 0 {
		steps[length-1].Terminal = true
	}
	return steps
}

func (r *RNG) step(shape StepShape, t int) model.Step {
	s := model.Step{
		X:     r.vector(shape.Obs),
		A:     r.vector(shape.Act),
		R:     model.Reward(float64(t)),
		Gamma: 0.99,
	}
	if shape.Extra {
		s.Extra = metadata.Document{
			"t":     metadata.Int(int64(t)),
			"noise": metadata.Float(r.rand.Float64()),
		}
	}
	return s
}

func (r *RNG) vector(n int) model.Vector {
	if n <= 0 {
		return nil
	}
	v := make(model.Vector, n)
	for i := range v {
		v[i] = r.rand.Float32()
	}
	return v
}
