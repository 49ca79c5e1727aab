// Package conv provides checked integer conversions for the extraction kernel.
//
// Index columns arrive as 32- or 64-bit integers and are treated as int64.
// Capture group lookups need an int, which is narrower on 32-bit platforms,
// so narrowing reports failure instead of wrapping silently.
package conv

import "math"

// GroupIndex narrows a non-negative int64 group index to int.
// ok is false when idx does not fit, which callers treat as an
// out-of-range group.
//
//go:inline
func GroupIndex(idx int64) (n int, ok bool) {
	if idx < 0 || uint64(idx) > uint64(math.MaxInt) {
		return 0, false
	}
	return int(idx), true
}

// SaturatingAdd returns a+b, clamped to math.MaxInt.
// Both operands must be non-negative.
//
//go:inline
func SaturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// SaturatingMul returns a*b, clamped to math.MaxInt.
// Both operands must be non-negative.
func SaturatingMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

// Scale returns floor(n * factor) for a non-negative n and a factor in [0, 1].
//
//go:inline
func Scale(n int, factor float64) int {
	return int(float64(n) * factor)
}
