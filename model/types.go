package model

import (
	"fmt"
	"slices"

	"github.com/hupe1980/replay/metadata"
)

// EID is a stable, user-facing experience identifier.
// Invariant: strictly increasing per table and never reused.
type EID uint64

// String returns a string representation of the EID.
func (e EID) String() string {
	return fmt.Sprintf("EID(%d)", uint64(e))
}

// Vector is an opaque fixed-shape numeric field (observation or action).
type Vector []float32

// Clone returns a copy of the vector. A nil vector stays nil.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	return slices.Clone(v)
}

// Reward returns a pointer to r, for populating the nullable reward fields.
func Reward(r float64) *float64 {
	return &r
}

// Step is a single timestep as produced by the environment-interaction loop.
type Step struct {
	// X is the observation.
	X Vector
	// A is the action taken.
	A Vector
	// R is the reward. Nil marks a last-step placeholder without reward.
	R *float64
	// Gamma is the discount applied when bootstrapping from the successor.
	Gamma float64
	// Terminal marks the final step of a trajectory.
	Terminal bool
	// Extra is an optional typed side-channel.
	Extra metadata.Document
}

// Record is a stored step.
//
// If Terminal is true, NEID and NX are both nil. Otherwise they reference the
// successor record once it has been inserted (possibly several steps ahead
// for n-step bootstrapping).
type Record struct {
	EID      EID
	X        Vector
	A        Vector
	R        *float64
	Gamma    float64
	Terminal bool
	Extra    metadata.Document
	NEID     *EID
	NX       Vector
}

// HasNext reports whether the record has been linked to a successor.
func (r Record) HasNext() bool {
	return r.NEID != nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.X = r.X.Clone()
	c.A = r.A.Clone()
	c.NX = r.NX.Clone()
	c.Extra = r.Extra.Clone()
	if r.R != nil {
		c.R = Reward(*r.R)
	}
	if r.NEID != nil {
		neid := *r.NEID
		c.NEID = &neid
	}
	return c
}

// Batch is a columnar bundle of sampled records. All columns have equal length.
//
// R holds 0 where HasR is false. NX holds nil for records without a successor.
type Batch struct {
	X        []Vector
	A        []Vector
	R        []float64
	HasR     []bool
	Gamma    []float64
	Terminal []bool
	EID      []EID
	NX       []Vector
	Extra    []metadata.Document
}

// NewBatch creates an empty batch with room for n records.
func NewBatch(n int) Batch {
	return Batch{
		X:        make([]Vector, 0, n),
		A:        make([]Vector, 0, n),
		R:        make([]float64, 0, n),
		HasR:     make([]bool, 0, n),
		Gamma:    make([]float64, 0, n),
		Terminal: make([]bool, 0, n),
		EID:      make([]EID, 0, n),
		NX:       make([]Vector, 0, n),
		Extra:    make([]metadata.Document, 0, n),
	}
}

// Append adds rec as the next row of the batch. The record is not copied.
func (b *Batch) Append(rec Record) {
	b.X = append(b.X, rec.X)
	b.A = append(b.A, rec.A)
	if rec.R != nil {
		b.R = append(b.R, *rec.R)
		b.HasR = append(b.HasR, true)
	} else {
		b.R = append(b.R, 0)
		b.HasR = append(b.HasR, false)
	}
	b.Gamma = append(b.Gamma, rec.Gamma)
	b.Terminal = append(b.Terminal, rec.Terminal)
	b.EID = append(b.EID, rec.EID)
	b.NX = append(b.NX, rec.NX)
	b.Extra = append(b.Extra, rec.Extra)
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int {
	return len(b.EID)
}
