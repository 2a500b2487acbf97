package replay

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/replay/internal/alloc"
	"github.com/hupe1980/replay/internal/resource"
	"github.com/hupe1980/replay/internal/sampler"
	"github.com/hupe1980/replay/internal/store"
	"github.com/hupe1980/replay/internal/sumtree"
	"github.com/hupe1980/replay/model"
)

type (
	// EID is a stable experience identifier.
	EID = model.EID
	// Step is a timestep to add.
	Step = model.Step
	// Record is a stored step with its n-step link.
	Record = model.Record
	// Batch is a columnar bundle of sampled records.
	Batch = model.Batch
)

// Table is a fixed-capacity prioritized experience replay buffer.
//
// Records are written into a ring of slots; once full, every Add evicts
// the oldest record regardless of its priority. All methods are safe for
// concurrent use and each call is applied atomically.
type Table struct {
	mu     sync.Mutex
	closed bool

	alloc   *alloc.Allocator
	store   *store.Store
	tree    *sumtree.Tree
	sampler sampler.Sampler
	seq     *sampler.Sequence // nil unless SamplerSequence
	res     *resource.Controller
	rng     *rand.Rand

	nextEID   uint64
	pending   []uint64 // EIDs waiting for their lag successor, oldest first
	evictions uint64

	opts    options
	metrics MetricsCollector
	logger  *Logger
}

// New creates a table holding at most capacity records.
func New(capacity int, optFns ...Option) (*Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidArgument, capacity)
	}
	if uint64(capacity) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidArgument, capacity, uint64(math.MaxUint32))
	}

	opts := applyOptions(optFns)
	if err := opts.validate(); err != nil {
		return nil, err
	}

	a, err := alloc.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	tree, err := sumtree.New(capacity, opts.alpha)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	t := &Table{
		alloc:   a,
		store:   store.New(capacity, opts.compression),
		tree:    tree,
		res:     resource.NewController(resource.Config{MemoryLimitBytes: opts.memoryLimit}),
		rng:     rand.New(opts.src),
		pending: make([]uint64, 0, opts.lag),
		opts:    opts,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}

	switch opts.sampler {
	case SamplerUniform:
		t.sampler = sampler.NewUniform(t.store)
	case SamplerPrioritized:
		t.sampler, err = sampler.NewPrioritized(t.store, t.tree, opts.uniformProbability)
	case SamplerSequence:
		t.seq, err = sampler.NewSequence(t.store, t.tree, opts.uniformProbability,
			opts.traceDecay, opts.traceDepth)
		t.sampler = t.seq
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return t, nil
}

// Add stores step and returns its EID.
//
// The record is primed with the largest priority seen so far (or the
// configured default for the very first record) unless WithPriority is
// given. The record inserted lag steps earlier is linked to it. A terminal
// step also links every record still waiting for a successor and starts a
// new trajectory.
func (t *Table) Add(ctx context.Context, step Step, optFns ...AddOption) (EID, error) {
	start := time.Now()

	var opts addOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	t.mu.Lock()
	eid, idx, err := t.add(ctx, step, opts)
	t.mu.Unlock()

	err = translateError(err)
	t.metrics.RecordAdd(time.Since(start), err)
	t.logger.LogAdd(ctx, eid, idx, err)
	return eid, err
}

func (t *Table) add(ctx context.Context, step Step, opts addOptions) (EID, uint32, error) {
	if t.closed {
		return 0, 0, ErrClosed
	}
	if opts.hasPriority && !validPriority(opts.priority) {
		return 0, 0, newInvalidPriority(opts.priority)
	}

	eid := t.nextEID
	idx := t.alloc.NextIdx()

	entry, err := t.store.Encode(Record{
		EID:      EID(eid),
		X:        step.X,
		A:        step.A,
		R:        step.R,
		Gamma:    step.Gamma,
		Terminal: step.Terminal,
		Extra:    step.Extra,
	})
	if err != nil {
		return 0, 0, err
	}

	// Linked predecessors store their own copy of the new observation.
	targets := t.linkTargets(step.Terminal, opts)
	growth := int64(0)
	for _, from := range targets {
		if fidx, err := t.alloc.Lookup(from); err == nil && fidx != idx {
			growth += t.store.LinkGrowth(fidx, entry.XBlock())
		}
	}

	// Reserve before mutating anything so a failure leaves the table intact.
	if err := t.res.Adjust(t.store.SizeAt(idx), entry.Size()+growth); err != nil {
		return 0, 0, err
	}

	prev, evicted, err := t.alloc.Assign(eid, idx)
	if err != nil {
		return 0, 0, err
	}
	if err := t.store.Set(idx, entry); err != nil {
		return 0, 0, err
	}

	priority := t.initialPriority(opts)
	if err := t.tree.Update(idx, priority); err != nil {
		return 0, 0, err
	}
	t.nextEID++

	if evicted {
		t.evictions++
		t.metrics.RecordEviction()
		t.logger.LogEviction(ctx, EID(prev), idx)
	}

	for _, from := range targets {
		t.link(from, eid, idx, entry.XBlock())
	}

	switch {
	case opts.hasLink, opts.noLag:
	case step.Terminal:
		t.pending = t.pending[:0]
	default:
		if len(t.pending) == t.opts.lag {
			t.pending = append(t.pending[:0], t.pending[1:]...)
		}
		t.pending = append(t.pending, eid)
	}

	if t.seq != nil {
		t.seq.Propagate(chain{t}, eid, idx, priority)
	}

	if t.opts.consistencyChecks {
		if err := t.check(); err != nil {
			return EID(eid), idx, err
		}
	}
	return EID(eid), idx, nil
}

func (t *Table) initialPriority(opts addOptions) float64 {
	if opts.hasPriority {
		return opts.priority
	}
	if p := t.tree.MaxPriority(); p > 0 {
		return p
	}
	return t.opts.defaultPriority
}

// linkTargets returns the EIDs the next record links from, oldest first.
func (t *Table) linkTargets(terminal bool, opts addOptions) []uint64 {
	switch {
	case opts.hasLink:
		return opts.linkFrom
	case opts.noLag:
		return nil
	case terminal:
		return t.pending
	case len(t.pending) == t.opts.lag:
		return t.pending[:1]
	}
	return nil
}

// link points the live record from at its successor to, stored in slot
// toIdx. The first predecessor linked becomes the successor's back-link.
// Evicted predecessors and terminal records are left alone.
func (t *Table) link(from, to uint64, toIdx uint32, nx []byte) {
	idx, err := t.alloc.Lookup(from)
	if err != nil {
		return
	}
	linked, err := t.store.Link(idx, to, nx)
	if err != nil || !linked {
		return
	}
	if _, ok := t.store.PrevEID(toIdx); !ok {
		_ = t.store.SetPrev(toIdx, from)
	}
}

// SampleResult is a sampled batch. Weights and EIDs are parallel to the
// batch rows.
type SampleResult struct {
	Batch   Batch
	Weights []float64
	EIDs    []EID
}

// Sample draws batchSize records with replacement.
//
// Weights are importance-sampling corrections (N*P(i))^-beta normalized so
// the largest is 1. Pass the EIDs back to UpdatePriorities after computing
// new priorities.
func (t *Table) Sample(ctx context.Context, batchSize int, optFns ...SampleOption) (SampleResult, error) {
	start := time.Now()

	var opts sampleOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	beta := t.opts.beta
	if opts.hasBeta {
		beta = opts.beta
	}

	t.mu.Lock()
	res, err := t.sample(batchSize, beta)
	t.mu.Unlock()

	err = translateError(err)
	t.metrics.RecordSample(batchSize, time.Since(start), err)
	t.logger.LogSample(ctx, batchSize, beta, err)
	return res, err
}

func (t *Table) sample(batchSize int, beta float64) (SampleResult, error) {
	if t.closed {
		return SampleResult{}, ErrClosed
	}
	if batchSize <= 0 {
		return SampleResult{}, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidArgument, batchSize)
	}
	if !finite(beta) || beta < 0 {
		return SampleResult{}, fmt.Errorf("%w: beta must be a finite non-negative number, got %v", ErrInvalidArgument, beta)
	}
	if t.store.Len() == 0 {
		return SampleResult{}, ErrEmptyTable
	}

	idxs, weights, err := t.sampler.Sample(t.rng, batchSize, beta)
	if err != nil {
		return SampleResult{}, err
	}

	batch, err := t.store.GetBatch(idxs)
	if err != nil {
		return SampleResult{}, err
	}

	return SampleResult{
		Batch:   batch,
		Weights: weights,
		EIDs:    slices.Clone(batch.EID),
	}, nil
}

// UpdatePriorities sets new priorities for previously sampled records.
//
// Every priority must be positive and finite; otherwise nothing is applied
// and an error matching ErrInvalidArgument is returned. EIDs evicted since
// sampling are skipped without error. It returns the number of priorities
// applied.
func (t *Table) UpdatePriorities(ctx context.Context, eids []EID, priorities []float64) (int, error) {
	start := time.Now()

	t.mu.Lock()
	applied, err := t.updatePriorities(eids, priorities)
	t.mu.Unlock()

	err = translateError(err)
	skipped := 0
	if err == nil {
		skipped = len(eids) - applied
	}
	t.metrics.RecordUpdatePriorities(len(eids), skipped, time.Since(start))
	t.logger.LogUpdatePriorities(ctx, len(eids), skipped, err)
	return applied, err
}

func (t *Table) updatePriorities(eids []EID, priorities []float64) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if len(eids) != len(priorities) {
		return 0, fmt.Errorf("%w: %d eids but %d priorities", ErrInvalidArgument, len(eids), len(priorities))
	}
	for _, p := range priorities {
		if !validPriority(p) {
			return 0, newInvalidPriority(p)
		}
	}

	applied := 0
	for i, eid := range eids {
		idx, err := t.alloc.Lookup(uint64(eid))
		if err != nil {
			continue
		}
		if err := t.tree.Update(idx, priorities[i]); err != nil {
			return applied, err
		}
		applied++
	}

	if t.opts.consistencyChecks {
		if err := t.check(); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

// Get returns a copy of the record with the given EID.
func (t *Table) Get(eid EID) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Record{}, ErrClosed
	}
	idx, err := t.lookup(eid)
	if err != nil {
		return Record{}, err
	}
	rec, err := t.store.Get(idx)
	return rec, translateError(err)
}

// Priority returns the current raw priority of eid.
func (t *Table) Priority(eid EID) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}
	idx, err := t.lookup(eid)
	if err != nil {
		return 0, err
	}
	return t.tree.Priority(idx), nil
}

// Slot returns the physical slot holding eid.
func (t *Table) Slot(eid EID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}
	idx, err := t.lookup(eid)
	if err != nil {
		return 0, err
	}
	return int(idx), nil
}

func (t *Table) lookup(eid EID) (uint32, error) {
	idx, err := t.alloc.Lookup(uint64(eid))
	if err != nil {
		return 0, newStaleEID(eid, err)
	}
	return idx, nil
}

// Len returns the number of stored records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alloc.Len()
}

// Cap returns the capacity.
func (t *Table) Cap() int {
	return t.alloc.Cap()
}

// Delete evicts the record in slot idx. The slot is refilled when the ring
// reaches it again.
func (t *Table) Delete(ctx context.Context, idx int) error {
	start := time.Now()

	t.mu.Lock()
	eid, err := t.delete(idx)
	t.mu.Unlock()

	err = translateError(err)
	t.metrics.RecordDelete(time.Since(start), err)
	t.logger.LogDelete(ctx, idx, eid, err)
	return err
}

func (t *Table) delete(idx int) (EID, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if idx < 0 || idx >= t.alloc.Cap() {
		return 0, fmt.Errorf("%w: slot %d out of range [0, %d)", ErrInvalidArgument, idx, t.alloc.Cap())
	}

	slot := uint32(idx)
	eid, ok := t.alloc.Release(slot)
	if !ok {
		return 0, fmt.Errorf("%w: slot %d is empty", ErrNotFound, idx)
	}
	size, ok := t.store.Delete(slot)
	if !ok {
		return EID(eid), inconsistent("slot %d live in allocator but empty in store", idx)
	}
	t.res.ReleaseMemory(size)
	t.tree.Clear(slot)

	if t.opts.consistencyChecks {
		if err := t.check(); err != nil {
			return EID(eid), err
		}
	}
	return EID(eid), nil
}

// EndTrajectory drops the records still waiting for a lag successor without
// linking them. Use it when an episode is cut off without a terminal step.
func (t *Table) EndTrajectory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = t.pending[:0]
}

// Stats describes the state of a table.
type Stats struct {
	Len           int
	Cap           int
	Full          bool
	NextEID       EID
	Pending       int
	TotalPriority float64
	MaxPriority   float64
	Evictions     uint64
	MemoryBytes   int64
	MemoryLimit   int64
	Sampler       string
	Compression   string
}

// Stats returns a snapshot of the table state.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		Len:           t.alloc.Len(),
		Cap:           t.alloc.Cap(),
		Full:          t.alloc.Full(),
		NextEID:       EID(t.nextEID),
		Pending:       len(t.pending),
		TotalPriority: t.tree.Total(),
		MaxPriority:   t.tree.MaxPriority(),
		Evictions:     t.evictions,
		MemoryBytes:   t.res.MemoryUsage(),
		MemoryLimit:   t.res.MemoryLimit(),
		Sampler:       t.sampler.Name(),
		Compression:   t.opts.compression.String(),
	}
}

// Check verifies that the slot allocator, the record store and the priority
// index agree. A non-nil error matches ErrInconsistentState.
func (t *Table) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.check()
}

func (t *Table) check() error {
	if n, m := t.alloc.Len(), t.store.Len(); n != m {
		return inconsistent("allocator holds %d records, store holds %d", n, m)
	}

	var err error
	t.alloc.ForEach(func(eid uint64, idx uint32) bool {
		stored, e := t.store.EIDAt(idx)
		switch {
		case e != nil:
			err = inconsistent("slot %d live in allocator but empty in store", idx)
		case stored != eid:
			err = inconsistent("slot %d maps to eid %d but stores eid %d", idx, eid, stored)
		case t.tree.Priority(idx) <= 0:
			err = inconsistent("slot %d is live but has no priority", idx)
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	for i := 0; i < t.alloc.Cap(); i++ {
		idx := uint32(i)
		live := t.alloc.IsLive(idx)
		if live != t.store.Occupied(idx) {
			return inconsistent("slot %d live=%v in allocator but occupied=%v in store", idx, live, !live)
		}
		if !live {
			if w := t.tree.Weight(idx); w != 0 {
				return inconsistent("empty slot %d carries weight %v", idx, w)
			}
			continue
		}
		eid, err := t.alloc.EIDAt(idx)
		if err != nil {
			return inconsistent("slot %d: %v", idx, err)
		}
		if back, err := t.alloc.Lookup(eid); err != nil || back != idx {
			return inconsistent("slot %d holds eid %d which maps back to slot %d", idx, eid, back)
		}
	}

	total, sum := t.tree.Total(), t.tree.Sum()
	if math.Abs(total-sum) > 1e-9*math.Max(1, sum) {
		return inconsistent("priority total %v does not match leaf sum %v", total, sum)
	}

	if used, held := t.res.MemoryUsage(), t.store.Bytes(); used != held {
		return inconsistent("accounted %d bytes, store holds %d", used, held)
	}
	return nil
}

func validPriority(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

// chain exposes the n-step links of a table to priority propagation.
type chain struct{ t *Table }

func (c chain) Lookup(eid uint64) (uint32, error) { return c.t.alloc.Lookup(eid) }

func (c chain) PrevEID(idx uint32) (uint64, bool) { return c.t.store.PrevEID(idx) }

func (c chain) NextEID(idx uint32) (uint64, bool) { return c.t.store.NextEID(idx) }
