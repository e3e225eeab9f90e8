// Package unpackqa decodes bit-packed quality assurance (QA) rasters into
// per-flag masks.
//
// Remote-sensing products pack several independent quality flags into one
// integer per pixel. A Product describes such a layer: its bit width and an
// ordered registry of flags, each flag naming one or more bit positions.
// An Unpacker decodes arrays of that product:
//
//	u, err := unpackqa.New(products.Landsat8C2QAPixel)
//	if err != nil { ... }
//
//	qa, _ := ndarray.New([]uint16{21824, 21952, 55052}, 3)
//
//	// One array with a trailing flag axis: shape [3, n_flags].
//	stacked, err := u.UnpackToArray(ctx, qa, unpackqa.All())
//
//	// One mask per flag, in the requested order.
//	masks, err := u.UnpackToDict(ctx, qa, unpackqa.Named("cloud", "cloud_confidence"))
//	cloud, _ := masks.Get("cloud")
//
// Single-bit flags decode to 0 or 1. Multi-bit flags decode to the integer
// formed by their bits, where the first bit listed in the flag definition is
// the least significant bit of the result.
//
// # Validation
//
// Inputs must be integer arrays with every value in 0..2^NBits-1. Violations
// are reported as *ErrInvalidType or *ErrValueOutOfRange before any decoding
// takes place; unknown flag names are reported as *ErrInvalidFlagName.
//
// # Large rasters
//
// The bit-plane expansion needs NBits bytes per pixel. Arrays are therefore
// decoded in tiles (WithTileSize), optionally in parallel (WithWorkers) and
// within a memory budget (WithResourceController).
package unpackqa
