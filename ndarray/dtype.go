package ndarray

import "fmt"

// DType identifies the element type of an Array.
type DType uint8

const (
	Invalid DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var dtypeNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

// String returns the lowercase Go name of the element type.
func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// IsInteger reports whether d is a signed or unsigned integer type.
func (d DType) IsInteger() bool {
	return d >= Int8 && d <= Uint64
}

// IsSigned reports whether d is a signed integer type.
func (d DType) IsSigned() bool {
	return d >= Int8 && d <= Int64
}

// IsValid reports whether d names a supported element type.
func (d DType) IsValid() bool {
	return d > Invalid && d <= Float64
}

// Size returns the element size in bytes, or 0 for an invalid type.
func (d DType) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// UnsignedFor returns the smallest unsigned type that holds bits-wide values.
func UnsignedFor(bits int) DType {
	switch {
	case bits <= 8:
		return Uint8
	case bits <= 16:
		return Uint16
	case bits <= 32:
		return Uint32
	default:
		return Uint64
	}
}

// Integer is the set of integer element types.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Unsigned is the set of unsigned integer element types.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Number is the set of element types an Array can hold.
type Number interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// dtypeOf maps a Go element type to its DType.
func dtypeOf[T Number]() DType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}
