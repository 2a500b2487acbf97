package compress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	random := make([]float32, 256)
	for i := range random {
		random[i] = rng.Float32()
	}
	// Frame-like data with long runs compresses well.
	frame := make([]float32, 1024)
	for i := 512; i < 600; i++ {
		frame[i] = 1
	}

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			for _, v := range [][]float32{random, frame, {}, {3.5}} {
				block, err := EncodeVector(v, typ)
				require.NoError(t, err)

				got, err := DecodeVector(block, typ)
				require.NoError(t, err)
				assert.Equal(t, v, got)
			}
		})
	}
}

func TestCompressionShrinksRuns(t *testing.T) {
	frame := make([]float32, 4096)

	raw, err := EncodeVector(frame, None)
	require.NoError(t, err)

	for _, typ := range []Type{LZ4, ZSTD} {
		block, err := EncodeVector(frame, typ)
		require.NoError(t, err)
		assert.Less(t, len(block), len(raw)/4, typ.String())
	}
}

func TestNilVector(t *testing.T) {
	block, err := EncodeVector(nil, ZSTD)
	require.NoError(t, err)
	assert.Nil(t, block)

	v, err := DecodeVector(nil, ZSTD)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCorruptBlock(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2}, None)
	assert.ErrorIs(t, err, ErrCorrupt)

	block, err := EncodeVector(make([]float32, 1024), LZ4)
	require.NoError(t, err)
	_, err = DecodeVector(block[:len(block)-4], LZ4)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = EncodeVector([]float32{1}, Type(9))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{None, LZ4, ZSTD} {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("snappy")
	assert.Error(t, err)
}
