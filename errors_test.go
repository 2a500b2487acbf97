package replay

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/replay/internal/alloc"
	"github.com/hupe1980/replay/internal/resource"
	"github.com/hupe1980/replay/internal/sampler"
	"github.com/hupe1980/replay/internal/store"
	"github.com/hupe1980/replay/internal/sumtree"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"allocator not found", fmt.Errorf("wrap: %w", alloc.ErrNotFound), ErrNotFound},
		{"empty population", sampler.ErrEmpty, ErrEmptyTable},
		{"memory", resource.ErrMemoryLimitExceeded, ErrMemoryLimitExceeded},
		{"batch size", sampler.ErrInvalidBatchSize, ErrInvalidArgument},
		{"slot range", alloc.ErrOutOfRange, ErrInvalidArgument},
		{"priority", sumtree.ErrInvalidPriority, ErrInvalidArgument},
		{"empty slot", store.ErrEmptySlot, ErrInconsistentState},
		{"public passthrough", ErrClosed, ErrClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.in, "cause is preserved")
		})
	}

	other := errors.New("other")
	assert.Same(t, other, translateError(other))
}

func TestTypedErrors(t *testing.T) {
	err := newInvalidPriority(-2)
	var ip *ErrInvalidPriority
	assert.ErrorAs(t, err, &ip)
	assert.Equal(t, -2.0, ip.Priority)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, sumtree.ErrInvalidPriority)
	assert.Contains(t, err.Error(), "-2")

	err = newStaleEID(7, alloc.ErrNotFound)
	var se *ErrStaleEID
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, EID(7), se.EID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, alloc.ErrNotFound)
	assert.Same(t, err, translateError(err))

	assert.ErrorIs(t, inconsistent("slot %d", 3), ErrInconsistentState)
}
