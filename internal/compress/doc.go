// Package compress encodes numeric vectors into self-describing blocks.
//
// Block format: [Count uint32][CompressedSize uint32][Data...]
//
// Count is the number of float32 elements. If CompressedSize == 0 the payload
// is stored uncompressed (either because compression was disabled or because
// it did not pay off). Blocks are immutable once produced and may be shared
// between records.
package compress
