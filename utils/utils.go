package utils

import "math"

// FormatFloat rounds f to the given count of decimal digits.
func FormatFloat(f float64, digits int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	pow := math.Pow(10, float64(digits))
	return math.Round(f*pow) / pow
}
