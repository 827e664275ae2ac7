package domain

import "math"

// QuantityEpsilon absorbs float rounding in quantity arithmetic.
// All quantity comparisons against zero go through these helpers.
const QuantityEpsilon = 1e-9

// QuantityIsZero reports whether q is zero within epsilon tolerance.
func QuantityIsZero(q float64) bool {
	return math.Abs(q) <= QuantityEpsilon
}

// QuantityIsNegative reports whether q is meaningfully below zero,
// beyond what rounding noise can explain.
func QuantityIsNegative(q float64) bool {
	return q < -QuantityEpsilon
}

// ValidRate reports whether r is usable as an FX rate or price:
// positive, finite, and not NaN.
func ValidRate(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}
