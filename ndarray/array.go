package ndarray

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrShapeMismatch is returned when the shape does not describe the data length.
	ErrShapeMismatch = errors.New("shape does not match data length")

	// ErrNegativeDim is returned for a shape with a negative dimension.
	ErrNegativeDim = errors.New("negative dimension")
)

// Array is an immutable row-major N-dimensional array.
//
// The zero value is not usable; construct arrays with New.
type Array struct {
	dtype DType
	shape []int
	data  any // []T matching dtype
	size  int
}

// New creates an Array over data with the given shape.
//
// If no shape is given, the array is one-dimensional with len(data) elements.
// The data slice is retained, not copied; callers must not modify it afterwards.
func New[T Number](data []T, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}

	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: %v", ErrNegativeDim, shape)
		}
		size *= d
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v holds %d elements, got %d", ErrShapeMismatch, shape, size, len(data))
	}

	return &Array{
		dtype: dtypeOf[T](),
		shape: slices.Clone(shape),
		data:  data,
		size:  size,
	}, nil
}

// MustNew is like New but panics on error. Intended for tests and static tables.
func MustNew[T Number](data []T, shape ...int) *Array {
	a, err := New(data, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

// Zeros allocates a zero-filled array of the given type and shape.
func Zeros(dtype DType, shape ...int) (*Array, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: %v", ErrNegativeDim, shape)
		}
		size *= d
	}

	switch dtype {
	case Int8:
		return New(make([]int8, size), shape...)
	case Int16:
		return New(make([]int16, size), shape...)
	case Int32:
		return New(make([]int32, size), shape...)
	case Int64:
		return New(make([]int64, size), shape...)
	case Uint8:
		return New(make([]uint8, size), shape...)
	case Uint16:
		return New(make([]uint16, size), shape...)
	case Uint32:
		return New(make([]uint32, size), shape...)
	case Uint64:
		return New(make([]uint64, size), shape...)
	case Float32:
		return New(make([]float32, size), shape...)
	case Float64:
		return New(make([]float64, size), shape...)
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the total number of elements.
func (a *Array) Size() int { return a.size }

// Data returns the backing slice as an untyped value ([]T for the array's dtype).
func (a *Array) Data() any { return a.data }

// Values returns the backing slice when T matches the array's dtype.
func Values[T Number](a *Array) ([]T, bool) {
	v, ok := a.data.([]T)
	return v, ok
}

// Index converts coordinates to a flat row-major offset.
func (a *Array) Index(coords ...int) (int, error) {
	if len(coords) != len(a.shape) {
		return 0, fmt.Errorf("index rank %d does not match array rank %d", len(coords), len(a.shape))
	}
	off := 0
	for i, c := range coords {
		if c < 0 || c >= a.shape[i] {
			return 0, fmt.Errorf("index %d out of bounds for axis %d with size %d", c, i, a.shape[i])
		}
		off = off*a.shape[i] + c
	}
	return off, nil
}

// Uint64 returns the flat element i converted to uint64.
//
// Negative signed values wrap and floats are truncated; use Int64 or Float64
// when the sign or fraction matters.
func (a *Array) Uint64(i int) uint64 {
	switch v := a.data.(type) {
	case []int8:
		return uint64(v[i])
	case []int16:
		return uint64(v[i])
	case []int32:
		return uint64(v[i])
	case []int64:
		return uint64(v[i])
	case []uint8:
		return uint64(v[i])
	case []uint16:
		return uint64(v[i])
	case []uint32:
		return uint64(v[i])
	case []uint64:
		return v[i]
	case []float32:
		return uint64(v[i])
	case []float64:
		return uint64(v[i])
	}
	panic(fmt.Sprintf("ndarray: unsupported backing type %T", a.data))
}

// Int64 returns the flat element i converted to int64.
func (a *Array) Int64(i int) int64 {
	switch v := a.data.(type) {
	case []int8:
		return int64(v[i])
	case []int16:
		return int64(v[i])
	case []int32:
		return int64(v[i])
	case []int64:
		return v[i]
	case []uint8:
		return int64(v[i])
	case []uint16:
		return int64(v[i])
	case []uint32:
		return int64(v[i])
	case []uint64:
		return int64(v[i])
	case []float32:
		return int64(v[i])
	case []float64:
		return int64(v[i])
	}
	panic(fmt.Sprintf("ndarray: unsupported backing type %T", a.data))
}

// Float64 returns the flat element i converted to float64.
func (a *Array) Float64(i int) float64 {
	switch v := a.data.(type) {
	case []float32:
		return float64(v[i])
	case []float64:
		return v[i]
	}
	if a.dtype.IsSigned() {
		return float64(a.Int64(i))
	}
	return float64(a.Uint64(i))
}

// At returns the element at the given coordinates as uint64.
func (a *Array) At(coords ...int) (uint64, error) {
	i, err := a.Index(coords...)
	if err != nil {
		return 0, err
	}
	return a.Uint64(i), nil
}

// Uint64s returns a copy of all elements converted to uint64.
func (a *Array) Uint64s() []uint64 {
	out := make([]uint64, a.size)
	for i := range out {
		out[i] = a.Uint64(i)
	}
	return out
}

// Equal reports whether a and b have the same dtype, shape and elements.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !slices.Equal(a.shape, b.shape) {
		return false
	}
	for i := 0; i < a.size; i++ {
		if a.dtype == Float32 || a.dtype == Float64 {
			if math.Float64bits(a.Float64(i)) != math.Float64bits(b.Float64(i)) {
				return false
			}
			continue
		}
		if a.Uint64(i) != b.Uint64(i) {
			return false
		}
	}
	return true
}

// String returns a compact description such as "uint16[2 3]".
func (a *Array) String() string {
	return fmt.Sprintf("%s%v", a.dtype, a.shape)
}
