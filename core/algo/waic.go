package algo

import (
	"errors"
	"math"

	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// pWAICWarnLevel flags observations whose posterior log-likelihood variance
// makes the WAIC approximation unreliable.
const pWAICWarnLevel = 0.4

// ErrPointwiseMismatch is returned when two WAIC results cover different data.
var ErrPointwiseMismatch = errors.New("pointwise WAIC lengths differ")

// WAICAccumulator computes WAIC in one pass over posterior draws, holding
// O(n) state instead of the full draws-by-observations log-likelihood matrix.
type WAICAccumulator struct {
	max    []float64
	sumExp []float64
	mean   []float64
	m2     []float64
	count  int
}

// NewWAICAccumulator returns an accumulator for n observations.
func NewWAICAccumulator(n int) *WAICAccumulator {
	a := &WAICAccumulator{
		max:    make([]float64, n),
		sumExp: make([]float64, n),
		mean:   make([]float64, n),
		m2:     make([]float64, n),
	}
	for i := range a.max {
		a.max[i] = math.Inf(-1)
	}
	return a
}

// Add folds the pointwise log-likelihood of one draw into the running sums.
func (a *WAICAccumulator) Add(ll []float64) {
	a.count++
	k := float64(a.count)
	for i, v := range ll {
		switch {
		case math.IsInf(a.max[i], -1):
			a.max[i] = v
			a.sumExp[i] = 1
		case v > a.max[i]:
			a.sumExp[i] = a.sumExp[i]*math.Exp(a.max[i]-v) + 1
			a.max[i] = v
		default:
			a.sumExp[i] += math.Exp(v - a.max[i])
		}
		delta := v - a.mean[i]
		a.mean[i] += delta / k
		a.m2[i] += delta * (v - a.mean[i])
	}
}

// Result returns WAIC on the deviance scale.
func (a *WAICAccumulator) Result() schema.WAIC {
	n := len(a.max)
	lppd := make([]float64, n)
	pw := make([]float64, n)
	if a.count == 0 {
		return finishWAIC(lppd, pw)
	}
	logS := math.Log(float64(a.count))
	for i := range n {
		lppd[i] = a.max[i] + math.Log(a.sumExp[i]) - logS
		pw[i] = a.m2[i] / float64(a.count)
	}
	return finishWAIC(lppd, pw)
}

// WAIC computes the criterion from a full draws-by-observations log-likelihood matrix.
func WAIC(ll [][]float64) schema.WAIC {
	if len(ll) == 0 {
		return finishWAIC(nil, nil)
	}
	n := len(ll[0])
	lppd := make([]float64, n)
	pw := make([]float64, n)
	col := make([]float64, len(ll))
	logS := math.Log(float64(len(ll)))
	for i := range n {
		for s, row := range ll {
			col[s] = row[i]
		}
		lppd[i] = floats.LogSumExp(col) - logS
		_, pw[i] = stat.PopMeanVariance(col, nil)
	}
	return finishWAIC(lppd, pw)
}

func finishWAIC(lppd, pw []float64) schema.WAIC {
	n := len(lppd)
	pointwise := make([]float64, n)
	out := schema.WAIC{Pointwise: pointwise}
	for i := range n {
		pointwise[i] = -2 * (lppd[i] - pw[i])
		out.LPPD += lppd[i]
		out.PWAIC += pw[i]
		if pw[i] > pWAICWarnLevel {
			out.Warning = true
		}
	}
	out.WAIC = floats.Sum(pointwise)
	if n > 0 {
		_, v := stat.PopMeanVariance(pointwise, nil)
		out.SE = math.Sqrt(float64(n) * v)
	}
	return out
}

// DifferenceSE returns the standard error of the WAIC difference a - b from
// pointwise contributions.
func DifferenceSE(a, b schema.WAIC) (float64, error) {
	if len(a.Pointwise) != len(b.Pointwise) {
		return math.NaN(), ErrPointwiseMismatch
	}
	n := len(a.Pointwise)
	if n == 0 {
		return 0, nil
	}
	diff := make([]float64, n)
	floats.SubTo(diff, a.Pointwise, b.Pointwise)
	_, v := stat.PopMeanVariance(diff, nil)
	return math.Sqrt(float64(n) * v), nil
}
