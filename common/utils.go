package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds value up to the next multiple of alignment. Alignment must be a power of two.
//
// Parameters:
//   - value: the value to align
//   - alignment: the required alignment
//
// Returns:
//   - uint64: value rounded up to a multiple of alignment
func AlignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// Clamp limits v to the closed range [lo, hi].
func Clamp[T int | uint32 | float32 | float64](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
