package errors

import (
	"math"
)

// CheckNumericalStability checks a vector (a sample row, a response column)
// for NaN or Inf and returns a NumericalInstabilityError if found. Kernel
// weights and local least-squares solves silently propagate non-finite
// inputs, so the estimators validate at the fit boundary instead.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}
