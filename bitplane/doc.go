// Package bitplane expands integer arrays into per-bit planes and extracts
// named flags from them.
//
// Expand turns an array of shape S into a 0/1 plane of shape S + (numBits,),
// bit 0 being the least significant. ExtractInto and Extract slice single-bit
// flags out of the plane and reassemble multi-bit groups in list order.
package bitplane
