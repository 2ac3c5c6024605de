package algo

import (
	"math"
	"slices"
)

// DefaultHDIProb is the credible mass used for every interval unless overridden.
const DefaultHDIProb = 0.95

// HDI returns the narrowest interval holding mass of the samples.
// It returns NaN bounds for an empty sample.
func HDI(samples []float64, mass float64) (lower, upper float64) {
	n := len(samples)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	inc := int(math.Floor(mass * float64(n)))
	nIntervals := n - inc
	if inc <= 0 || nIntervals <= 0 {
		return sorted[0], sorted[n-1]
	}

	best := 0
	bestWidth := math.Inf(1)
	for i := range nIntervals {
		if w := sorted[i+inc] - sorted[i]; w < bestWidth {
			bestWidth = w
			best = i
		}
	}
	return sorted[best], sorted[best+inc]
}

// ExcludesZero reports whether zero lies strictly outside [lower, upper].
func ExcludesZero(lower, upper float64) bool {
	return lower > 0 || upper < 0
}

// ClampIndex rounds x and clamps it to [0, n-1].
func ClampIndex(x float64, n int) int {
	if n <= 0 || math.IsNaN(x) {
		return 0
	}
	return min(max(int(math.Round(x)), 0), n-1)
}
