package sampler

import (
	"fmt"
	"math"
)

// Chain resolves n-step links between stored records.
type Chain interface {
	// Lookup returns the slot holding the live record eid.
	Lookup(eid uint64) (uint32, error)
	// PrevEID returns the trajectory predecessor recorded for slot idx.
	PrevEID(idx uint32) (uint64, bool)
	// NextEID returns the n_eid link stored in slot idx.
	NextEID(idx uint32) (uint64, bool)
}

// Sequence is prioritized sequence experience replay: sampling works like
// Prioritized, and every insert pushes a decayed copy of its priority
// backwards along the chain of records that link to it.
type Sequence struct {
	*Prioritized

	decay float64
	depth int
}

// NewSequence creates a sequence sampler that propagates priorities up to
// depth hops with the given per-hop decay.
func NewSequence(pop Population, prio Priorities, uniformProb, decay float64, depth int) (*Sequence, error) {
	p, err := NewPrioritized(pop, prio, uniformProb)
	if err != nil {
		return nil, err
	}
	if !(decay > 0 && decay <= 1) {
		return nil, fmt.Errorf("trace decay must be in (0, 1], got %v", decay)
	}
	if depth < 0 {
		return nil, fmt.Errorf("trace depth must be non-negative, got %d", depth)
	}

	return &Sequence{
		Prioritized: p,
		decay:       decay,
		depth:       depth,
	}, nil
}

// Name implements Sampler.
func (s *Sequence) Name() string { return "sequence" }

// Propagate boosts the ancestors of the record eid stored at idx with
// priority p. At hop distance d an ancestor's priority becomes
// max(current, p*decay^d). The walk follows back-links and stops after
// depth hops, at an evicted ancestor, or at one whose n_eid no longer points
// along the chain. It returns the number of priorities raised.
func (s *Sequence) Propagate(chain Chain, eid uint64, idx uint32, p float64) int {
	boosted := 0
	cur, curIdx := eid, idx
	for d := 1; d <= s.depth; d++ {
		prev, ok := chain.PrevEID(curIdx)
		if !ok {
			break
		}
		prevIdx, err := chain.Lookup(prev)
		if err != nil {
			break
		}
		if next, ok := chain.NextEID(prevIdx); !ok || next != cur {
			break
		}

		want := p * math.Pow(s.decay, float64(d))
		if want > s.prio.Priority(prevIdx) {
			if err := s.prio.Update(prevIdx, want); err != nil {
				break
			}
			boosted++
		}
		cur, curIdx = prev, prevIdx
	}
	return boosted
}
