package bitplane

import (
	"fmt"
	"slices"

	"github.com/hupe1980/unpackqa/ndarray"
)

// Plane is the bit-plane expansion of an integer array.
//
// Element i of the source occupies bits[i*numBits : (i+1)*numBits], least
// significant bit first. Every entry is 0 or 1.
type Plane struct {
	shape   []int
	numBits int
	bits    []uint8
}

// Expand converts values into a bit-plane with numBits entries per element.
//
// shape describes values (row-major); an empty shape means 1-D. The caller
// guarantees every value fits in numBits bits: Expand performs no range check
// and signed values are expanded from their two's complement bit pattern.
func Expand[T ndarray.Integer](values []T, shape []int, numBits int) *Plane {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	if numBits < 0 {
		numBits = 0
	}

	bits := make([]uint8, len(values)*numBits)

	// One full pass per bit. bits is zeroed, so only set positions are written.
	for b := 0; b < numBits; b++ {
		mask := uint64(1) << uint(b)
		for i, v := range values {
			if uint64(v)&mask != 0 {
				bits[i*numBits+b] = 1
			}
		}
	}

	return &Plane{
		shape:   slices.Clone(shape),
		numBits: numBits,
		bits:    bits,
	}
}

// ExpandArray expands an integer ndarray.Array.
func ExpandArray(a *ndarray.Array, numBits int) (*Plane, error) {
	shape := a.Shape()
	switch v := a.Data().(type) {
	case []int8:
		return Expand(v, shape, numBits), nil
	case []int16:
		return Expand(v, shape, numBits), nil
	case []int32:
		return Expand(v, shape, numBits), nil
	case []int64:
		return Expand(v, shape, numBits), nil
	case []uint8:
		return Expand(v, shape, numBits), nil
	case []uint16:
		return Expand(v, shape, numBits), nil
	case []uint32:
		return Expand(v, shape, numBits), nil
	case []uint64:
		return Expand(v, shape, numBits), nil
	default:
		return nil, fmt.Errorf("bitplane: cannot expand %s array", a.DType())
	}
}

// Shape returns the plane shape: the source shape plus a trailing bit axis.
func (p *Plane) Shape() []int {
	return append(slices.Clone(p.shape), p.numBits)
}

// SourceShape returns the shape of the expanded array.
func (p *Plane) SourceShape() []int { return slices.Clone(p.shape) }

// NumBits returns the length of the trailing bit axis.
func (p *Plane) NumBits() int { return p.numBits }

// Size returns the number of source elements.
func (p *Plane) Size() int {
	if p.numBits == 0 {
		n := 1
		for _, d := range p.shape {
			n *= d
		}
		return n
	}
	return len(p.bits) / p.numBits
}

// Bit returns bit b of source element i.
func (p *Plane) Bit(i, b int) uint8 {
	return p.bits[i*p.numBits+b]
}

// Bits returns the flat backing slice. It must not be modified.
func (p *Plane) Bits() []uint8 { return p.bits }

// Array returns the plane as a Uint8 array of shape Shape().
func (p *Plane) Array() *ndarray.Array {
	return ndarray.MustNew(slices.Clone(p.bits), p.Shape()...)
}

// Value reassembles source element i from its bits.
func (p *Plane) Value(i int) uint64 {
	var v uint64
	row := p.bits[i*p.numBits : (i+1)*p.numBits]
	for b, bit := range row {
		v |= uint64(bit) << uint(b)
	}
	return v
}
