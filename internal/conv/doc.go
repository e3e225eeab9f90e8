// Package conv provides bounds-checked integer conversions.
//
// Used where sizes come from untrusted input (container headers) or must
// fit a narrower index type (roaring pixel indices).
package conv
