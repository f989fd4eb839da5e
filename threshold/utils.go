package threshold

import "sort"

// upperTailFraction returns the fraction of values in the ascending sorted
// slice that are >= v.
func upperTailFraction(sorted []float64, v float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := sort.SearchFloat64s(sorted, v)
	return float64(len(sorted)-idx) / float64(len(sorted))
}
