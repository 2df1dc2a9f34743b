package aggregate

import (
	"math"
	"strconv"
)

// Percentile returns the q-th quantile (q in [0, 1]) of sorted, which must be
// in ascending order. Values between order statistics are linearly
// interpolated at rank q*(n-1). Returns 0 for an empty slice.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := clamp01(q) * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)

	a, b := sorted[lo], sorted[hi]
	// Interpolate from the nearer end so frac 0 and 1 return a and b exactly.
	if frac >= 0.5 {
		return b - (b-a)*(1-frac)
	}
	return a + (b-a)*frac
}

// Round rounds v to the given number of decimal places using the exact binary
// value of v, so Round(2.675, 2) is 2.67 (2.675 is stored as 2.67499...).
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// mean returns the arithmetic mean of xs, summed in slice order.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
