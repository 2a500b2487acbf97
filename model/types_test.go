package model

import (
	"testing"

	"github.com/hupe1980/replay/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordClone(t *testing.T) {
	neid := EID(8)
	rec := Record{
		EID:   7,
		X:     Vector{1, 2},
		A:     Vector{0},
		R:     Reward(1.5),
		Gamma: 0.99,
		Extra: metadata.Document{"env": metadata.String("grid")},
		NEID:  &neid,
		NX:    Vector{3, 4},
	}

	c := rec.Clone()
	require.Equal(t, rec, c)

	c.X[0] = 42
	*c.R = -1
	*c.NEID = 99
	assert.Equal(t, float32(1), rec.X[0])
	assert.Equal(t, 1.5, *rec.R)
	assert.Equal(t, EID(8), *rec.NEID)
	assert.True(t, rec.HasNext())
	assert.False(t, Record{}.HasNext())
	assert.Nil(t, Vector(nil).Clone())
}

func TestBatchAppend(t *testing.T) {
	b := NewBatch(2)
	b.Append(Record{EID: 1, X: Vector{1}, R: Reward(2), Gamma: 0.9})
	b.Append(Record{EID: 2, X: Vector{2}, Terminal: true})

	require.Equal(t, 2, b.Len())
	assert.Equal(t, []EID{1, 2}, b.EID)
	assert.Equal(t, []float64{2, 0}, b.R)
	assert.Equal(t, []bool{true, false}, b.HasR)
	assert.Equal(t, []bool{false, true}, b.Terminal)
	assert.Equal(t, []Vector{nil, nil}, b.NX)
	assert.Equal(t, "EID(2)", b.EID[1].String())
}
