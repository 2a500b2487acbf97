package replay

import (
	"errors"
	"fmt"

	"github.com/hupe1980/replay/internal/alloc"
	"github.com/hupe1980/replay/internal/resource"
	"github.com/hupe1980/replay/internal/sampler"
	"github.com/hupe1980/replay/internal/store"
	"github.com/hupe1980/replay/internal/sumtree"
)

var (
	// ErrNotFound is returned for an EID or slot that was evicted, deleted or
	// never assigned. Callers can skip the item; the table is unaffected.
	ErrNotFound = errors.New("not found")

	// ErrEmptyTable is returned when sampling from a table with no records.
	ErrEmptyTable = errors.New("table is empty")

	// ErrInvalidArgument is returned for invalid configuration or call
	// arguments. The table remains usable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInconsistentState signals a mismatch between the slot allocator, the
	// record store and the priority index. It indicates a bug.
	ErrInconsistentState = errors.New("inconsistent state")

	// ErrClosed is returned by operations on a closed table.
	ErrClosed = errors.New("table is closed")

	// ErrMemoryLimitExceeded is returned when an Add would exceed the
	// configured memory limit. The table is left unchanged.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")
)

// ErrInvalidPriority indicates a zero, negative, NaN or infinite priority.
//
// It matches ErrInvalidArgument with errors.Is.
type ErrInvalidPriority struct {
	Priority float64
	cause    error
}

func (e *ErrInvalidPriority) Error() string {
	return fmt.Sprintf("invalid priority: %v", e.Priority)
}

func (e *ErrInvalidPriority) Unwrap() error { return e.cause }

// ErrStaleEID indicates an EID whose record is no longer stored.
//
// It matches ErrNotFound with errors.Is.
type ErrStaleEID struct {
	EID   EID
	cause error
}

func (e *ErrStaleEID) Error() string {
	return fmt.Sprintf("stale eid: %d", uint64(e.EID))
}

func (e *ErrStaleEID) Unwrap() error { return e.cause }

func newInvalidPriority(p float64) error {
	return &ErrInvalidPriority{
		Priority: p,
		cause:    fmt.Errorf("%w: %w", ErrInvalidArgument, sumtree.ErrInvalidPriority),
	}
}

func newStaleEID(eid EID, err error) error {
	return &ErrStaleEID{EID: eid, cause: fmt.Errorf("%w: %w", ErrNotFound, err)}
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already public.
	for _, sentinel := range []error{
		ErrNotFound, ErrEmptyTable, ErrInvalidArgument,
		ErrInconsistentState, ErrClosed, ErrMemoryLimitExceeded,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	// Not found unification.
	if errors.Is(err, alloc.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, sampler.ErrEmpty) {
		return fmt.Errorf("%w: %w", ErrEmptyTable, err)
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrMemoryLimitExceeded, err)
	}

	// Argument normalization.
	if errors.Is(err, sampler.ErrInvalidBatchSize) ||
		errors.Is(err, alloc.ErrOutOfRange) ||
		errors.Is(err, sumtree.ErrOutOfRange) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if errors.Is(err, sumtree.ErrInvalidPriority) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	// The allocator said the slot is live but the store disagrees.
	if errors.Is(err, store.ErrEmptySlot) || errors.Is(err, store.ErrOutOfRange) {
		return fmt.Errorf("%w: %w", ErrInconsistentState, err)
	}

	return err
}
