// Package algo holds the pure numerical routines behind change-point
// inference: segment assignment, interval estimates, convergence statistics,
// information criteria and covariate standardization.
package algo

import (
	"math"
	"sort"
)

// Bounds is a half-open index range [Start, End).
type Bounds struct {
	Start int
	End   int
}

// Len returns the number of observations in the range.
func (b Bounds) Len() int {
	return b.End - b.Start
}

// ChangePointIndex maps a normalized position p in (0,1) to an observation
// index in [0, n-1].
func ChangePointIndex(p float64, n int) int {
	if n <= 1 {
		return 0
	}
	idx := int(math.Floor(p * float64(n-1)))
	return min(max(idx, 0), n-1)
}

// ChangePointsFromProbs discretizes and sorts normalized positions.
func ChangePointsFromProbs(probs []float64, n int) []int {
	cps := make([]int, len(probs))
	for i, p := range probs {
		cps[i] = ChangePointIndex(p, n)
	}
	sort.Ints(cps)
	return cps
}

// AssignSegments returns s(t) for every t in [0, n). An observation belongs to
// segment 0 before the first change point and to segment i+1 at or after change
// point i but before change point i+1. cps must be sorted.
func AssignSegments(cps []int, n int) []int {
	seg := make([]int, n)
	s := 0
	for t := range n {
		for s < len(cps) && cps[s] <= t {
			s++
		}
		seg[t] = s
	}
	return seg
}

// SegmentBounds returns the m+1 half-open ranges induced by sorted change points.
// The ranges are contiguous, pairwise disjoint and cover [0, n). Duplicate
// change points produce empty ranges.
func SegmentBounds(cps []int, n int) []Bounds {
	bounds := make([]Bounds, len(cps)+1)
	start := 0
	for i, cp := range cps {
		end := min(max(cp, start), n)
		bounds[i] = Bounds{Start: start, End: end}
		start = end
	}
	bounds[len(cps)] = Bounds{Start: start, End: n}
	return bounds
}
