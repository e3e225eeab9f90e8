package unpackqa

import (
	"github.com/hupe1980/unpackqa/ndarray"
)

// validate rejects non-integer arrays and values outside 0..maxValue.
// The maximum is checked before the minimum.
func validate(qa *ndarray.Array, maxValue uint64) error {
	if qa == nil {
		return ErrNilArray
	}
	if !qa.DType().IsInteger() {
		return &ErrInvalidType{DType: qa.DType()}
	}
	if qa.Size() == 0 {
		return nil
	}

	switch v := qa.Data().(type) {
	case []int8:
		return checkSigned(v, maxValue)
	case []int16:
		return checkSigned(v, maxValue)
	case []int32:
		return checkSigned(v, maxValue)
	case []int64:
		return checkSigned(v, maxValue)
	case []uint8:
		return checkUnsigned(v, maxValue)
	case []uint16:
		return checkUnsigned(v, maxValue)
	case []uint32:
		return checkUnsigned(v, maxValue)
	case []uint64:
		return checkUnsigned(v, maxValue)
	}
	return &ErrInvalidType{DType: qa.DType()}
}

func checkSigned[T int8 | int16 | int32 | int64](vals []T, maxValue uint64) error {
	lo, hi := int64(vals[0]), int64(vals[0])
	for _, v := range vals[1:] {
		x := int64(v)
		lo = min(lo, x)
		hi = max(hi, x)
	}
	if hi >= 0 && uint64(hi) > maxValue {
		return &ErrValueOutOfRange{Bound: BoundMax, Min: lo, Max: uint64(hi), MaxValue: maxValue}
	}
	if lo < 0 {
		return &ErrValueOutOfRange{Bound: BoundMin, Min: lo, MaxValue: maxValue}
	}
	return nil
}

func checkUnsigned[T uint8 | uint16 | uint32 | uint64](vals []T, maxValue uint64) error {
	var hi uint64
	for _, v := range vals {
		hi = max(hi, uint64(v))
	}
	if hi > maxValue {
		return &ErrValueOutOfRange{Bound: BoundMax, Max: hi, MaxValue: maxValue}
	}
	return nil
}
