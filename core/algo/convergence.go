package algo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minDraws is the shortest trajectory for which R-hat and ESS are defined.
const minDraws = 4

// DefaultRHatThreshold is the conventional convergence cut-off.
const DefaultRHatThreshold = 1.05

// RHat returns the rank-normalized split R-hat of a set of chains: the larger
// of the bulk and folded-tail statistics. It returns NaN when the chains are
// too short, ragged, non-finite or constant.
func RHat(chains [][]float64) float64 {
	if !validChains(chains) {
		return math.NaN()
	}
	split := splitChains(chains)
	bulk := rhat(zScale(split))

	folded := make([][]float64, len(split))
	median := pooledMedian(split)
	for c, chain := range split {
		folded[c] = make([]float64, len(chain))
		for i, x := range chain {
			folded[c][i] = math.Abs(x - median)
		}
	}
	tail := rhat(zScale(folded))

	if math.IsNaN(bulk) || math.IsNaN(tail) {
		return math.NaN()
	}
	return math.Max(bulk, tail)
}

// ESS returns the rank-normalized bulk effective sample size of a set of chains.
func ESS(chains [][]float64) float64 {
	if !validChains(chains) {
		return math.NaN()
	}
	return ess(zScale(splitChains(chains)))
}

func validChains(chains [][]float64) bool {
	if len(chains) == 0 {
		return false
	}
	n := len(chains[0])
	if n < minDraws {
		return false
	}
	first := chains[0][0]
	constant := true
	for _, chain := range chains {
		if len(chain) != n {
			return false
		}
		for _, x := range chain {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
			if x != first {
				constant = false
			}
		}
	}
	return !constant
}

// splitChains halves every chain, dropping the middle draw of odd lengths.
func splitChains(chains [][]float64) [][]float64 {
	half := len(chains[0]) / 2
	split := make([][]float64, 0, 2*len(chains))
	for _, chain := range chains {
		split = append(split, chain[:half], chain[len(chain)-half:])
	}
	return split
}

// zScale replaces every value by the normal quantile of its pooled average rank.
func zScale(chains [][]float64) [][]float64 {
	type entry struct {
		v    float64
		c, i int
	}
	var entries []entry
	for c, chain := range chains {
		for i, x := range chain {
			entries = append(entries, entry{x, c, i})
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].v < entries[b].v })

	size := float64(len(entries))
	out := make([][]float64, len(chains))
	for c, chain := range chains {
		out[c] = make([]float64, len(chain))
	}
	for lo := 0; lo < len(entries); {
		hi := lo
		for hi+1 < len(entries) && entries[hi+1].v == entries[lo].v {
			hi++
		}
		rank := float64(lo+hi)/2 + 1
		z := distuv.UnitNormal.Quantile((rank - 0.375) / (size + 0.25))
		for k := lo; k <= hi; k++ {
			out[entries[k].c][entries[k].i] = z
		}
		lo = hi + 1
	}
	return out
}

func pooledMedian(chains [][]float64) float64 {
	var pooled []float64
	for _, chain := range chains {
		pooled = append(pooled, chain...)
	}
	sort.Float64s(pooled)
	n := len(pooled)
	if n%2 == 1 {
		return pooled[n/2]
	}
	return (pooled[n/2-1] + pooled[n/2]) / 2
}

func rhat(chains [][]float64) float64 {
	n := float64(len(chains[0]))
	means := make([]float64, len(chains))
	within := 0.0
	for c, chain := range chains {
		m, v := stat.MeanVariance(chain, nil)
		means[c] = m
		within += v
	}
	within /= float64(len(chains))
	between := n * stat.Variance(means, nil)
	if within <= 0 || math.IsNaN(within) {
		return math.NaN()
	}
	return math.Sqrt((between/within + n - 1) / n)
}

// ess implements Geyer's initial monotone sequence estimator over split chains.
func ess(chains [][]float64) float64 {
	m := len(chains)
	n := len(chains[0])
	nf := float64(n)

	centered := make([][]float64, m)
	means := make([]float64, m)
	for c, chain := range chains {
		means[c] = stat.Mean(chain, nil)
		centered[c] = make([]float64, n)
		for i, x := range chain {
			centered[c][i] = x - means[c]
		}
	}
	// mean biased autocovariance across chains at a lag
	acov := func(lag int) float64 {
		total := 0.0
		for _, chain := range centered {
			s := 0.0
			for i := 0; i+lag < n; i++ {
				s += chain[i] * chain[i+lag]
			}
			total += s / nf
		}
		return total / float64(m)
	}

	meanVar := acov(0) * nf / (nf - 1)
	varPlus := meanVar * (nf - 1) / nf
	if m > 1 {
		varPlus += stat.Variance(means, nil)
	}
	if varPlus <= 0 {
		return math.NaN()
	}

	rho := make([]float64, n)
	rho[0] = 1
	rhoEven := 1.0
	rhoOdd := 1 - (meanVar-acov(1))/varPlus
	rho[1] = rhoOdd

	t := 1
	for t < n-3 && rhoEven+rhoOdd > 0 {
		rhoEven = 1 - (meanVar-acov(t+1))/varPlus
		rhoOdd = 1 - (meanVar-acov(t+2))/varPlus
		if rhoEven+rhoOdd >= 0 {
			rho[t+1] = rhoEven
			rho[t+2] = rhoOdd
		}
		t += 2
	}
	maxT := t - 2
	if rhoEven > 0 {
		rho[maxT+1] = rhoEven
	}

	for t = 1; t <= maxT-2; t += 2 {
		if rho[t+1]+rho[t+2] > rho[t-1]+rho[t] {
			rho[t+1] = (rho[t-1] + rho[t]) / 2
			rho[t+2] = rho[t+1]
		}
	}

	total := float64(m * n)
	tau := -1.0
	for i := 0; i <= maxT; i++ {
		tau += 2 * rho[i]
	}
	tau += rho[maxT+1]
	tau = math.Max(tau, 1/math.Log10(total))
	return total / tau
}
