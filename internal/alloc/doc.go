// Package alloc maps logical experience ids onto physical ring-buffer slots.
//
// Slots are handed out in order 0, 1, 2, ... until capacity is reached and
// then wrap around, so the slot returned by NextIdx always holds the oldest
// surviving EID once the ring is full. Assigning a slot that still holds a
// live EID evicts that EID: later lookups for it fail with ErrNotFound
// instead of resolving to the new occupant.
//
// Live slots are tracked in a dense bitset; EID lookups use a hash map.
package alloc
