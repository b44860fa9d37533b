package insts

import "fmt"

// ExtractBits returns word masked to the inclusive bit range [start, end].
// The bits stay in place. It panics if start > end or end > 31.
func ExtractBits(word uint32, start, end uint) uint32 {
	if start > end || end > 31 {
		panic(fmt.Sprintf("insts: invalid bit range [%d, %d]", start, end))
	}

	mask := uint32((uint64(1)<<(end-start+1))-1) << start
	return word & mask
}

// ShiftToEnd returns bits [start, end] of word shifted down to bit 0.
func ShiftToEnd(word uint32, start, end uint) uint32 {
	return ExtractBits(word, start, end) >> start
}
