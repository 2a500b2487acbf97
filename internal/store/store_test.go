package store

import (
	"testing"

	"github.com/hupe1980/replay/internal/compress"
	"github.com/hupe1980/replay/metadata"
	"github.com/hupe1980/replay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(eid uint64, x float32) model.Record {
	return model.Record{
		EID:   model.EID(eid),
		X:     model.Vector{x, x + 1},
		A:     model.Vector{1},
		R:     model.Reward(float64(x)),
		Gamma: 0.99,
		Extra: metadata.Document{"step": metadata.Int(int64(eid))},
	}
}

func TestStore_SetGet(t *testing.T) {
	for _, c := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			s := New(4, c)

			rec := record(1, 0.5)
			e, err := s.Encode(rec)
			require.NoError(t, err)
			require.NoError(t, s.Set(2, e))

			got, err := s.Get(2)
			require.NoError(t, err)
			assert.Equal(t, rec, got)
			assert.Equal(t, 1, s.Len())
			assert.Equal(t, e.Size(), s.Bytes())

			// Copy-out: mutating the result does not touch the store.
			got.X[0] = 42
			got.Extra["step"] = metadata.Int(-1)
			again, err := s.Get(2)
			require.NoError(t, err)
			assert.Equal(t, rec, again)
		})
	}
}

func TestStore_EncodeCopiesInput(t *testing.T) {
	s := New(1, compress.None)

	rec := record(1, 1)
	e, err := s.Encode(rec)
	require.NoError(t, err)
	rec.X[0] = 99
	rec.Extra["step"] = metadata.Int(99)
	require.NoError(t, s.Set(0, e))

	got, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.X[0])
	assert.True(t, got.Extra["step"].Equal(metadata.Int(1)))
}

func TestStore_Delete(t *testing.T) {
	s := New(2, compress.None)

	e, err := s.Encode(record(1, 1))
	require.NoError(t, err)
	require.NoError(t, s.Set(0, e))

	size, ok := s.Delete(0)
	require.True(t, ok)
	assert.Equal(t, e.Size(), size)
	assert.Equal(t, int64(0), s.Bytes())

	_, err = s.Get(0)
	assert.ErrorIs(t, err, ErrEmptySlot)
	_, err = s.EIDAt(0)
	assert.ErrorIs(t, err, ErrEmptySlot)

	_, ok = s.Delete(0)
	assert.False(t, ok)

	_, err = s.Get(7)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, s.Set(7, e), ErrOutOfRange)
}

func TestStore_Overwrite(t *testing.T) {
	s := New(1, compress.None)

	first, err := s.Encode(record(1, 1))
	require.NoError(t, err)
	require.NoError(t, s.Set(0, first))

	second, err := s.Encode(model.Record{EID: 2, X: model.Vector{1, 2, 3, 4, 5, 6, 7, 8}})
	require.NoError(t, err)
	require.NoError(t, s.Set(0, second))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, second.Size(), s.Bytes())

	eid, err := s.EIDAt(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), eid)
}

func TestStore_Link(t *testing.T) {
	s := New(3, compress.LZ4)

	a, err := s.Encode(record(1, 1))
	require.NoError(t, err)
	require.NoError(t, s.Set(0, a))

	b, err := s.Encode(record(2, 5))
	require.NoError(t, err)
	require.NoError(t, s.Set(1, b))

	assert.Equal(t, int64(len(b.XBlock())), s.LinkGrowth(0, b.XBlock()))
	ok, err := s.Link(0, 2, b.XBlock())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.Size()+b.Size()+int64(len(b.XBlock())), s.Bytes(), "the NX copy is accounted to the predecessor")
	assert.Equal(t, s.Bytes()-b.Size(), s.SizeAt(0))
	assert.Zero(t, s.LinkGrowth(0, b.XBlock()), "relinking to a same-sized block adds nothing")

	require.NoError(t, s.SetPrev(1, 1))
	peid, ok := s.PrevEID(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), peid)
	_, ok = s.PrevEID(0)
	assert.False(t, ok)

	got, err := s.Get(0)
	require.NoError(t, err)
	require.NotNil(t, got.NEID)
	assert.Equal(t, model.EID(2), *got.NEID)
	assert.Equal(t, model.Vector{5, 6}, got.NX)

	neid, ok := s.NextEID(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), neid)

	_, ok = s.NextEID(1)
	assert.False(t, ok)

	term := record(3, 9)
	term.Terminal = true
	te, err := s.Encode(term)
	require.NoError(t, err)
	require.NoError(t, s.Set(2, te))

	assert.Zero(t, s.LinkGrowth(2, b.XBlock()))
	ok, err = s.Link(2, 4, b.XBlock())
	require.NoError(t, err)
	assert.False(t, ok, "terminal records are never linked")

	_, err = s.Link(5, 1, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestStore_GetBatchPreservesOrder(t *testing.T) {
	s := New(3, compress.None)
	for i := uint32(0); i < 3; i++ {
		e, err := s.Encode(record(uint64(10+i), float32(i)))
		require.NoError(t, err)
		require.NoError(t, s.Set(i, e))
	}

	b, err := s.GetBatch([]uint32{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []model.EID{12, 10, 12}, b.EID)
	assert.Equal(t, []float64{2, 0, 2}, b.R)

	// Duplicates are independent copies.
	b.X[0][0] = 77
	assert.Equal(t, float32(2), b.X[2][0])

	_, err = s.GetBatch([]uint32{0, 5})
	assert.Error(t, err)
}

func TestStore_Select(t *testing.T) {
	s := New(8, compress.None)
	for _, idx := range []uint32{1, 4, 6} {
		e, err := s.Encode(record(uint64(idx), 0))
		require.NoError(t, err)
		require.NoError(t, s.Set(idx, e))
	}

	for rank, want := range []uint32{1, 4, 6} {
		got, err := s.Select(rank)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := s.Select(3)
	assert.ErrorIs(t, err, ErrOutOfRange)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Occupied(1))
}

func TestStore_LinkedBlockOutlivesSuccessor(t *testing.T) {
	s := New(2, compress.None)

	a, err := s.Encode(record(1, 1))
	require.NoError(t, err)
	require.NoError(t, s.Set(0, a))

	big := make(model.Vector, 1000)
	big[0] = 7
	b, err := s.Encode(model.Record{EID: 2, X: big})
	require.NoError(t, err)
	require.NoError(t, s.Set(1, b))

	_, err = s.Link(0, 2, b.XBlock())
	require.NoError(t, err)

	_, ok := s.Delete(1)
	require.True(t, ok)

	got, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, big, got.NX)
	assert.Equal(t, s.SizeAt(0), s.Bytes())
	assert.Greater(t, s.Bytes(), int64(4000))
}
