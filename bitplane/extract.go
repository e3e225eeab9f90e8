package bitplane

import (
	"errors"
	"fmt"

	"github.com/hupe1980/unpackqa/ndarray"
)

// ErrNoBits is returned when a flag is extracted with an empty bit list.
var ErrNoBits = errors.New("bitplane: empty bit index list")

// ErrBitIndex is returned when a bit index falls outside the plane.
type ErrBitIndex struct {
	Index   int
	NumBits int
}

func (e *ErrBitIndex) Error() string {
	return fmt.Sprintf("bitplane: bit index %d out of range [0, %d)", e.Index, e.NumBits)
}

// ExtractInto writes the flag described by bitIndices for every source
// element into dst[i*stride+offset].
//
// A single index copies that bit unchanged. With several indices the result
// is reassembled little-endian by list position: bitIndices[0] becomes bit 0
// of the value, bitIndices[1] bit 1, and so on, regardless of the magnitude
// of the indices themselves. len(bitIndices) must not exceed the width of M.
func ExtractInto[M ndarray.Unsigned](p *Plane, bitIndices []int, dst []M, stride, offset int) error {
	if len(bitIndices) == 0 {
		return ErrNoBits
	}
	for _, b := range bitIndices {
		if b < 0 || b >= p.numBits {
			return &ErrBitIndex{Index: b, NumBits: p.numBits}
		}
	}

	n := p.Size()
	if n == 0 {
		return nil
	}
	if last := (n-1)*stride + offset; last >= len(dst) {
		return fmt.Errorf("bitplane: destination holds %d values, need %d", len(dst), last+1)
	}

	if len(bitIndices) == 1 {
		b := bitIndices[0]
		for i := 0; i < n; i++ {
			dst[i*stride+offset] = M(p.bits[i*p.numBits+b])
		}
		return nil
	}

	for i := 0; i < n; i++ {
		row := p.bits[i*p.numBits : (i+1)*p.numBits]
		var v M
		for pos, b := range bitIndices {
			v |= M(row[b]) << uint(pos)
		}
		dst[i*stride+offset] = v
	}
	return nil
}

// Extract returns the flag described by bitIndices as a new array shaped like
// the source, using the smallest unsigned type that holds the flag's values.
func Extract(p *Plane, bitIndices []int) (*ndarray.Array, error) {
	shape := p.SourceShape()
	switch ndarray.UnsignedFor(len(bitIndices)) {
	case ndarray.Uint8:
		return extractAs[uint8](p, bitIndices, shape)
	case ndarray.Uint16:
		return extractAs[uint16](p, bitIndices, shape)
	case ndarray.Uint32:
		return extractAs[uint32](p, bitIndices, shape)
	default:
		return extractAs[uint64](p, bitIndices, shape)
	}
}

func extractAs[M uint8 | uint16 | uint32 | uint64](p *Plane, bitIndices []int, shape []int) (*ndarray.Array, error) {
	dst := make([]M, p.Size())
	if err := ExtractInto(p, bitIndices, dst, 1, 0); err != nil {
		return nil, err
	}
	return ndarray.New(dst, shape...)
}
