package alloc

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrNotFound is returned when an EID or slot holds no live mapping.
	ErrNotFound = errors.New("not found")

	// ErrOutOfRange is returned for slot indices outside [0, capacity).
	ErrOutOfRange = errors.New("slot out of range")
)

// Allocator owns the EID <-> slot mapping and the eviction order.
// It is not safe for concurrent use.
type Allocator struct {
	capacity uint32
	assigned uint64 // total Assign calls, never reset
	last     uint32

	eidToIdx map[uint64]uint32
	idxToEID []uint64
	live     *bitset.BitSet
}

// New creates an allocator for a ring of the given capacity.
func New(capacity int) (*Allocator, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	return &Allocator{
		capacity: uint32(capacity),
		eidToIdx: make(map[uint64]uint32, capacity),
		idxToEID: make([]uint64, capacity),
		live:     bitset.New(uint(capacity)),
	}, nil
}

// Cap returns the ring capacity.
func (a *Allocator) Cap() int {
	return int(a.capacity)
}

// Len returns the number of live slots.
func (a *Allocator) Len() int {
	return int(a.live.Count())
}

// Full reports whether the ring has wrapped at least once.
// The transition is permanent; deleting slots does not undo it.
func (a *Allocator) Full() bool {
	return a.assigned >= uint64(a.capacity)
}

// NextIdx returns the slot the next record must be written into.
func (a *Allocator) NextIdx() uint32 {
	if !a.Full() {
		return uint32(a.assigned)
	}
	return (a.last + 1) % a.capacity
}

// Assign maps eid onto idx. If idx held a live EID, that EID is evicted and
// returned with evicted == true.
func (a *Allocator) Assign(eid uint64, idx uint32) (prev uint64, evicted bool, err error) {
	if idx >= a.capacity {
		return 0, false, fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}

	if a.live.Test(uint(idx)) {
		prev = a.idxToEID[idx]
		evicted = true
		delete(a.eidToIdx, prev)
	}

	a.idxToEID[idx] = eid
	a.eidToIdx[eid] = idx
	a.live.Set(uint(idx))
	a.last = idx
	a.assigned++

	return prev, evicted, nil
}

// Lookup returns the slot holding eid.
func (a *Allocator) Lookup(eid uint64) (uint32, error) {
	idx, ok := a.eidToIdx[eid]
	if !ok {
		return 0, fmt.Errorf("%w: eid %d", ErrNotFound, eid)
	}
	return idx, nil
}

// EIDAt returns the live EID stored at idx.
func (a *Allocator) EIDAt(idx uint32) (uint64, error) {
	if idx >= a.capacity {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	if !a.live.Test(uint(idx)) {
		return 0, fmt.Errorf("%w: slot %d", ErrNotFound, idx)
	}
	return a.idxToEID[idx], nil
}

// IsLive reports whether idx currently holds a live EID.
func (a *Allocator) IsLive(idx uint32) bool {
	return idx < a.capacity && a.live.Test(uint(idx))
}

// Release drops the mapping held by idx, if any.
// The ring position is unaffected: the freed slot is refilled when the ring
// reaches it again.
func (a *Allocator) Release(idx uint32) (uint64, bool) {
	if !a.IsLive(idx) {
		return 0, false
	}
	eid := a.idxToEID[idx]
	delete(a.eidToIdx, eid)
	a.live.Clear(uint(idx))
	return eid, true
}

// ForEach calls fn for every live (eid, idx) pair in slot order until fn
// returns false.
func (a *Allocator) ForEach(fn func(eid uint64, idx uint32) bool) {
	for i, ok := a.live.NextSet(0); ok; i, ok = a.live.NextSet(i + 1) {
		if !fn(a.idxToEID[i], uint32(i)) {
			return
		}
	}
}

// Reset drops every mapping. The assignment counter is kept.
func (a *Allocator) Reset() {
	a.live.ClearAll()
	clear(a.eidToIdx)
}
