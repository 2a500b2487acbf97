package sampler

// Uniform ignores priorities; every occupied slot is equally likely.
type Uniform struct {
	pop Population
}

// NewUniform creates a uniform sampler over pop.
func NewUniform(pop Population) *Uniform {
	return &Uniform{pop: pop}
}

// Name implements Sampler.
func (s *Uniform) Name() string { return "uniform" }

// Sample implements Sampler. All weights are 1.
func (s *Uniform) Sample(src Source, n int, _ float64) ([]uint32, []float64, error) {
	size, err := checkBatch(s.pop, n)
	if err != nil {
		return nil, nil, err
	}

	idxs := make([]uint32, n)
	weights := make([]float64, n)
	for i := range idxs {
		idx, err := uniformDraw(src, s.pop, size)
		if err != nil {
			return nil, nil, err
		}
		idxs[i] = idx
		weights[i] = 1
	}
	return idxs, weights, nil
}
