// Package codec converts embedding vectors to and from the byte representation
// held by a store. Vectors are stored as 32-bit floats and round-trip
// bit-exactly: a cached vector is numerically identical to the provider's
// output, not merely close.
//
// Layout: 4-byte magic "emb1", uint32 little-endian dimension, then
// dimension float32 little-endian values.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var magic = [4]byte{'e', 'm', 'b', '1'}

// ErrCorrupt marks bytes that are present but do not parse as a vector.
// This is a distinct condition from an absent entry: silently recomputing
// would mask systematic corruption.
var ErrCorrupt = errors.New("corrupt embedding bytes")

const headerLen = len(magic) + 4

// Marshal serializes vec. The result is self-describing enough for Unmarshal
// to reject truncated or foreign bytes.
func Marshal(vec []float32) []byte {
	buf := make([]byte, headerLen+4*len(vec))
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[len(magic):], uint32(len(vec)))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[headerLen+i*4:], math.Float32bits(f))
	}
	return buf
}

// Unmarshal parses bytes produced by Marshal. Any structural mismatch returns
// an error wrapping ErrCorrupt.
func Unmarshal(b []byte) ([]float32, error) {
	if len(b) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrCorrupt, len(b), headerLen)
	}
	if [4]byte(b[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, b[:4])
	}
	dim := binary.LittleEndian.Uint32(b[len(magic):])
	if want := headerLen + 4*int(dim); len(b) != want {
		return nil, fmt.Errorf("%w: %d bytes for dimension %d, want %d", ErrCorrupt, len(b), dim, want)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[headerLen+i*4:]))
	}
	return vec, nil
}
