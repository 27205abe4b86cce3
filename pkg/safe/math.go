package safe

import (
	"math"
)

// AddU64 performs uint64 addition and panics on overflow.
func AddU64(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		panic("CORE_SAFE_ADD_OVERFLOW")
	}
	return a + b
}

// SubU64 performs uint64 subtraction and panics on underflow.
// Balance debits go through here: a caller that skipped its balance
// check halts instead of wrapping into a huge positive value.
func SubU64(a, b uint64) uint64 {
	if b > a {
		panic("CORE_SAFE_SUB_UNDERFLOW")
	}
	return a - b
}

// MulU64 performs uint64 multiplication and panics on overflow.
func MulU64(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		panic("CORE_SAFE_MUL_OVERFLOW")
	}
	return a * b
}
