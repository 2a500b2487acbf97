package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores vectors as raw little-endian float32.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD uses ZSTD block compression (better ratio).
	ZSTD Type = 2
)

// String returns the name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType parses a compression name as returned by Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unknown compression %q", s)
	}
}

var (
	// ErrCorrupt is returned when a block cannot be decoded.
	ErrCorrupt = errors.New("corrupt vector block")
	// ErrUnknownType is returned for an unsupported compression type.
	ErrUnknownType = errors.New("unknown compression type")
)

const headerSize = 8

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// EncodeVector encodes v into a block.
//
// A nil vector encodes to a nil block so that absent fields stay absent.
func EncodeVector(v []float32, t Type) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	raw := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(f))
	}

	var compressed []byte
	var err error

	switch t {
	case None:
	case LZ4:
		compressed, err = compressLZ4(raw)
	case ZSTD:
		compressed = compressZSTD(raw)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(raw))*0.9 {
		block := make([]byte, headerSize+len(raw))
		binary.LittleEndian.PutUint32(block[0:], uint32(len(v)))
		binary.LittleEndian.PutUint32(block[4:], 0)
		copy(block[headerSize:], raw)
		return block, nil
	}

	block := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint32(block[0:], uint32(len(v)))
	binary.LittleEndian.PutUint32(block[4:], uint32(len(compressed)))
	copy(block[headerSize:], compressed)
	return block, nil
}

// DecodeVector decodes a block produced by EncodeVector with the same type.
// The returned slice is freshly allocated.
func DecodeVector(block []byte, t Type) ([]float32, error) {
	if block == nil {
		return nil, nil
	}
	if len(block) < headerSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}

	count := binary.LittleEndian.Uint32(block[0:])
	compressedSize := binary.LittleEndian.Uint32(block[4:])
	rawSize := 4 * int(count)

	var raw []byte
	if compressedSize == 0 {
		if len(block) < headerSize+rawSize {
			return nil, fmt.Errorf("%w: block data too small", ErrCorrupt)
		}
		raw = block[headerSize : headerSize+rawSize]
	} else {
		if len(block) < headerSize+int(compressedSize) {
			return nil, fmt.Errorf("%w: compressed block data too small", ErrCorrupt)
		}
		data := block[headerSize : headerSize+int(compressedSize)]

		var err error
		switch t {
		case LZ4:
			raw, err = decompressLZ4(data, rawSize)
		case ZSTD:
			raw, err = decompressZSTD(data, rawSize)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
		}
		if err != nil {
			return nil, err
		}
	}

	v := make([]float32, count)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return v, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return compressed[:n], nil
}

func compressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

func decompressLZ4(data []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
	}
	return out, nil
}

func decompressZSTD(data []byte, size int) ([]byte, error) {
	dec := getZstdDecoder()
	defer putZstdDecoder(dec)

	out, err := dec.DecodeAll(data, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
	}
	return out, nil
}
