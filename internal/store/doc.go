// Package store holds timestep records in fixed physical slots.
//
// The store has no notion of priorities or eviction order: it only keeps one
// record per slot and hands out copies. Vector fields are kept as immutable
// encoded blocks (see internal/compress), which lets a predecessor's NX share
// the block of its successor's X without duplicating memory.
//
// Occupied slots are tracked in a Roaring bitmap. Besides membership, the
// bitmap provides rank/select, which uniform samplers use to draw an occupied
// slot in O(log n) without scanning.
package store
