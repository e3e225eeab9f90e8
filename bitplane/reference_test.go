package bitplane

import (
	"fmt"
	"strings"
)

// referenceBits unpacks a single value by formatting it as a fixed-width
// binary string and reversing it, so that index 0 is the least significant
// bit. It is slow and only used to cross-check Expand.
func referenceBits(v uint64, numBits int) []uint8 {
	s := fmt.Sprintf("%0*b", numBits, v)
	s = s[len(s)-numBits:]

	out := make([]uint8, numBits)
	for i := range numBits {
		if s[numBits-1-i] == '1' {
			out[i] = 1
		}
	}
	return out
}

// referenceString is the human-readable form used in failure messages.
func referenceString(bits []uint8) string {
	var sb strings.Builder
	for i := len(bits) - 1; i >= 0; i-- {
		sb.WriteByte('0' + bits[i])
	}
	return sb.String()
}
