package errors

import (
	"fmt"
	"math"
)

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FirstNonFinite returns the index of the first NaN or Inf in values, or -1.
func FirstNonFinite(values []float64) int {
	for i, v := range values {
		if !IsFinite(v) {
			return i
		}
	}
	return -1
}

// CheckMatrix checks all values in a matrix and returns a ValueError naming
// the first NaN or Inf entry.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := matrix.At(i, j); !IsFinite(v) {
				return NewValueError(operation, fmt.Sprintf("non-finite value %v at (%d, %d)", v, i, j))
			}
		}
	}
	return nil
}

// ClipValue clips a value to the range [min, max]. NaN is returned unchanged.
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SanitizeScalar returns value when it is finite, otherwise penalty and an
// overflow error describing the substitution.
func SanitizeScalar(operation string, value, penalty float64, evaluation int) (float64, error) {
	if IsFinite(value) {
		return value, nil
	}
	return penalty, NewNumericOverflowError(operation, value, penalty, evaluation)
}
