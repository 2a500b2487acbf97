package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/replay/internal/compress"
	"github.com/hupe1980/replay/metadata"
	"github.com/hupe1980/replay/model"
)

var (
	// ErrEmptySlot is returned when reading a slot that holds no record.
	ErrEmptySlot = errors.New("slot is empty")

	// ErrOutOfRange is returned for slot indices outside [0, capacity).
	ErrOutOfRange = errors.New("slot out of range")
)

// entryOverhead approximates the fixed per-record footprint in bytes.
const entryOverhead = 96

// Entry is an encoded record ready to be placed into a slot.
// Entries are produced by Store.Encode and are immutable.
type Entry struct {
	eid      uint64
	x        []byte
	a        []byte
	r        float64
	hasR     bool
	gamma    float64
	terminal bool
	extra    metadata.Document

	hasNext bool
	neid    uint64
	nx      []byte

	// back-link to the record whose n_eid points here
	hasPrev bool
	peid    uint64

	size int64
}

// EID returns the experience id of the entry.
func (e Entry) EID() uint64 { return e.eid }

// Size returns the number of bytes the entry accounts for, including its
// NX block.
func (e Entry) Size() int64 { return e.size }

// XBlock returns the encoded observation block.
func (e Entry) XBlock() []byte { return e.x }

// Store is an array of record slots. It is not safe for concurrent use.
type Store struct {
	slots       []Entry
	occupied    *roaring.Bitmap
	compression compress.Type
	bytes       int64
}

// New creates a store with capacity slots.
func New(capacity int, compression compress.Type) *Store {
	return &Store{
		slots:       make([]Entry, capacity),
		occupied:    roaring.New(),
		compression: compression,
	}
}

// Len returns the number of occupied slots.
func (s *Store) Len() int {
	return int(s.occupied.GetCardinality())
}

// Bytes returns the accounted size of all stored entries.
func (s *Store) Bytes() int64 {
	return s.bytes
}

// Encode converts a record into an Entry. Vector and side-channel data are
// copied, so the caller may reuse rec afterwards.
func (s *Store) Encode(rec model.Record) (Entry, error) {
	x, err := compress.EncodeVector(rec.X, s.compression)
	if err != nil {
		return Entry{}, fmt.Errorf("encode x: %w", err)
	}
	a, err := compress.EncodeVector(rec.A, s.compression)
	if err != nil {
		return Entry{}, fmt.Errorf("encode a: %w", err)
	}

	e := Entry{
		eid:      uint64(rec.EID),
		x:        x,
		a:        a,
		gamma:    rec.Gamma,
		terminal: rec.Terminal,
		extra:    rec.Extra.Clone(),
	}
	if rec.R != nil {
		e.r = *rec.R
		e.hasR = true
	}
	if rec.NEID != nil && !rec.Terminal {
		e.hasNext = true
		e.neid = uint64(*rec.NEID)
		e.nx, err = compress.EncodeVector(rec.NX, s.compression)
		if err != nil {
			return Entry{}, fmt.Errorf("encode nx: %w", err)
		}
	}
	e.size = entryOverhead + int64(len(x)+len(a)+len(e.nx)+e.extra.Size())
	return e, nil
}

// Set places e into idx, replacing any previous occupant as a unit.
func (s *Store) Set(idx uint32, e Entry) error {
	if int(idx) >= len(s.slots) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	if s.occupied.Contains(idx) {
		s.bytes -= s.slots[idx].size
	}
	s.slots[idx] = e
	s.occupied.Add(idx)
	s.bytes += e.size
	return nil
}

// Get returns a decoded copy of the record at idx.
func (s *Store) Get(idx uint32) (model.Record, error) {
	e, err := s.entry(idx)
	if err != nil {
		return model.Record{}, err
	}
	return s.decode(e)
}

// GetBatch gathers the records at idxs into a columnar batch, preserving
// the order of idxs. Duplicate indices produce independent copies.
func (s *Store) GetBatch(idxs []uint32) (model.Batch, error) {
	b := model.NewBatch(len(idxs))
	for _, idx := range idxs {
		rec, err := s.Get(idx)
		if err != nil {
			return model.Batch{}, err
		}
		b.Append(rec)
	}
	return b, nil
}

// Delete clears idx so that later reads fail with ErrEmptySlot.
// It returns the accounted size of the removed entry.
func (s *Store) Delete(idx uint32) (int64, bool) {
	if int(idx) >= len(s.slots) || !s.occupied.Contains(idx) {
		return 0, false
	}
	size := s.slots[idx].size
	s.slots[idx] = Entry{}
	s.occupied.Remove(idx)
	s.bytes -= size
	return size, true
}

// LinkGrowth returns how many bytes Link(idx, _, nxBlock) would add to the
// store. It is zero for empty slots and terminal records.
func (s *Store) LinkGrowth(idx uint32, nxBlock []byte) int64 {
	e, err := s.entry(idx)
	if err != nil || e.terminal {
		return 0
	}
	return int64(len(nxBlock) - len(e.nx))
}

// Link points the record at idx to its successor and stores a private copy
// of nxBlock with it. Terminal records are never linked; ok reports whether
// the link was applied.
func (s *Store) Link(idx uint32, neid uint64, nxBlock []byte) (bool, error) {
	e, err := s.entry(idx)
	if err != nil {
		return false, err
	}
	if e.terminal {
		return false, nil
	}
	growth := int64(len(nxBlock) - len(e.nx))
	e.hasNext = true
	e.neid = neid
	e.nx = bytes.Clone(nxBlock)
	e.size += growth
	s.bytes += growth
	return true, nil
}

// SetPrev records peid as the trajectory predecessor of the record at idx.
func (s *Store) SetPrev(idx uint32, peid uint64) error {
	e, err := s.entry(idx)
	if err != nil {
		return err
	}
	e.hasPrev = true
	e.peid = peid
	return nil
}

// PrevEID returns the predecessor recorded at idx, if any.
func (s *Store) PrevEID(idx uint32) (uint64, bool) {
	if int(idx) >= len(s.slots) || !s.occupied.Contains(idx) {
		return 0, false
	}
	e := s.slots[idx]
	return e.peid, e.hasPrev
}

// NextEID returns the successor EID recorded at idx, if any.
func (s *Store) NextEID(idx uint32) (uint64, bool) {
	if int(idx) >= len(s.slots) || !s.occupied.Contains(idx) {
		return 0, false
	}
	e := s.slots[idx]
	return e.neid, e.hasNext
}

// EIDAt returns the EID of the record stored at idx.
func (s *Store) EIDAt(idx uint32) (uint64, error) {
	e, err := s.entry(idx)
	if err != nil {
		return 0, err
	}
	return e.eid, nil
}

// SizeAt returns the accounted size of the entry at idx, or 0 if empty.
func (s *Store) SizeAt(idx uint32) int64 {
	if int(idx) >= len(s.slots) || !s.occupied.Contains(idx) {
		return 0
	}
	return s.slots[idx].size
}

// Occupied reports whether idx holds a record.
func (s *Store) Occupied(idx uint32) bool {
	return s.occupied.Contains(idx)
}

// Select returns the occupied slot with the given rank (0-based, in slot order).
func (s *Store) Select(rank int) (uint32, error) {
	if rank < 0 || rank >= s.Len() {
		return 0, fmt.Errorf("%w: rank %d", ErrOutOfRange, rank)
	}
	return s.occupied.Select(uint32(rank))
}

// Reset empties every slot.
func (s *Store) Reset() {
	clear(s.slots)
	s.occupied.Clear()
	s.bytes = 0
}

func (s *Store) entry(idx uint32) (*Entry, error) {
	if int(idx) >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	if !s.occupied.Contains(idx) {
		return nil, fmt.Errorf("%w: %d", ErrEmptySlot, idx)
	}
	return &s.slots[idx], nil
}

func (s *Store) decode(e *Entry) (model.Record, error) {
	x, err := compress.DecodeVector(e.x, s.compression)
	if err != nil {
		return model.Record{}, fmt.Errorf("decode x: %w", err)
	}
	a, err := compress.DecodeVector(e.a, s.compression)
	if err != nil {
		return model.Record{}, fmt.Errorf("decode a: %w", err)
	}

	rec := model.Record{
		EID:      model.EID(e.eid),
		X:        x,
		A:        a,
		Gamma:    e.gamma,
		Terminal: e.terminal,
		Extra:    e.extra.Clone(),
	}
	if e.hasR {
		rec.R = model.Reward(e.r)
	}
	if e.hasNext {
		neid := model.EID(e.neid)
		rec.NEID = &neid
		rec.NX, err = compress.DecodeVector(e.nx, s.compression)
		if err != nil {
			return model.Record{}, fmt.Errorf("decode nx: %w", err)
		}
	}
	return rec, nil
}
