package unpackqa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/unpackqa/ndarray"
)

var (
	// ErrUnknownFlag is wrapped by ErrInvalidFlagName.
	ErrUnknownFlag = errors.New("invalid flag name")

	// ErrNoFlags is returned when a Named selector lists no flags.
	ErrNoFlags = errors.New("no flags requested")

	// ErrType is wrapped by ErrInvalidType.
	ErrType = errors.New("qa should be an integer array")

	// ErrRange is wrapped by ErrValueOutOfRange.
	ErrRange = errors.New("qa value out of range")

	// ErrInvalidProduct is returned for an unusable product definition.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrNilArray is returned when the QA array is nil.
	ErrNilArray = errors.New("qa array is nil")
)

// ErrInvalidFlagName indicates requested flags that are not in the product registry.
type ErrInvalidFlagName struct {
	Product string
	Names   []string
}

func (e *ErrInvalidFlagName) Error() string {
	return fmt.Sprintf("invalid flag name passed: %s not in registry of product %q",
		strings.Join(e.Names, ", "), e.Product)
}

func (e *ErrInvalidFlagName) Unwrap() error { return ErrUnknownFlag }

// ErrInvalidType indicates a QA array whose element type is not an integer.
type ErrInvalidType struct {
	DType ndarray.DType
}

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("qa should be an int-like array, got %s", e.DType)
}

func (e *ErrInvalidType) Unwrap() error { return ErrType }

// Bound names the edge of the valid range that was violated.
type Bound uint8

const (
	// BoundMax means a value was larger than the product's max value.
	BoundMax Bound = iota
	// BoundMin means a value was negative.
	BoundMin
)

func (b Bound) String() string {
	if b == BoundMin {
		return "min"
	}
	return "max"
}

// ErrValueOutOfRange indicates QA values outside 0..MaxValue.
//
// For BoundMax, Max holds the observed maximum. For BoundMin, Min holds the
// observed minimum.
type ErrValueOutOfRange struct {
	Bound    Bound
	Min      int64
	Max      uint64
	MaxValue uint64
}

func (e *ErrValueOutOfRange) Error() string {
	if e.Bound == BoundMin {
		return fmt.Sprintf("qa has values smaller than the valid range: min value was %d and the valid range is 0-%d",
			e.Min, e.MaxValue)
	}
	return fmt.Sprintf("qa has values larger than the valid range: max value was %d and the valid range is 0-%d",
		e.Max, e.MaxValue)
}

func (e *ErrValueOutOfRange) Unwrap() error { return ErrRange }
