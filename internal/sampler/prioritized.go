package sampler

import "fmt"

// Prioritized draws slots proportionally to their priority weight.
//
// With a uniform probability u > 0 each draw is taken uniformly with
// probability u, so the effective draw probability of slot i is
//
//	P(i) = u/N + (1-u) * w_i/total
//
// and importance weights are computed from that mixture.
type Prioritized struct {
	pop         Population
	prio        Priorities
	uniformProb float64
}

// NewPrioritized creates a prioritized sampler. uniformProb must be in [0, 1].
func NewPrioritized(pop Population, prio Priorities, uniformProb float64) (*Prioritized, error) {
	if !(uniformProb >= 0 && uniformProb <= 1) {
		return nil, fmt.Errorf("uniform probability must be in [0, 1], got %v", uniformProb)
	}
	return &Prioritized{pop: pop, prio: prio, uniformProb: uniformProb}, nil
}

// Name implements Sampler.
func (s *Prioritized) Name() string { return "prioritized" }

// Sample implements Sampler.
func (s *Prioritized) Sample(src Source, n int, beta float64) ([]uint32, []float64, error) {
	size, err := checkBatch(s.pop, n)
	if err != nil {
		return nil, nil, err
	}

	total := s.prio.Total()
	u := s.uniformProb
	if total <= 0 {
		// Nothing carries weight; degrade to uniform draws.
		u = 1
	}

	idxs := make([]uint32, n)
	probs := make([]float64, n)
	for i := range idxs {
		var idx uint32
		if u > 0 && (u >= 1 || src.Float64() < u) {
			idx, err = uniformDraw(src, s.pop, size)
			if err != nil {
				return nil, nil, err
			}
		} else {
			var ok bool
			idx, ok = s.prio.Find(src.Float64())
			if !ok {
				return nil, nil, ErrEmpty
			}
		}

		idxs[i] = idx
		probs[i] = s.probability(idx, size, total, u)
	}

	return idxs, importanceWeights(probs, size, beta), nil
}

// Probability returns the draw probability of idx under the current state.
func (s *Prioritized) Probability(idx uint32) float64 {
	size := s.pop.Len()
	if size == 0 {
		return 0
	}
	total := s.prio.Total()
	u := s.uniformProb
	if total <= 0 {
		u = 1
	}
	return s.probability(idx, size, total, u)
}

func (s *Prioritized) probability(idx uint32, size int, total, u float64) float64 {
	p := u / float64(size)
	if u < 1 {
		p += (1 - u) * s.prio.Weight(idx) / total
	}
	return p
}
