// Package ndarray provides a minimal immutable N-dimensional array used for
// QA rasters and decoded flag masks.
//
// Arrays are row-major and carry a runtime DType so that callers can hand in
// rasters of any element type and have non-integer data rejected before
// decoding:
//
//	qa, err := ndarray.New([]uint16{21824, 21952, 22280, 54596}, 2, 2)
//	if err != nil { ... }
//
//	qa.Shape()     // [2 2]
//	qa.DType()     // uint16
//	qa.Uint64(3)   // 54596
//
// Typed access to the backing data is available through Values:
//
//	vals, ok := ndarray.Values[uint16](qa)
package ndarray
