package algo

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func iidChains(seed uint64, chains, draws int, offsets ...float64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 7))
	out := make([][]float64, chains)
	for c := range out {
		out[c] = make([]float64, draws)
		shift := 0.0
		if c < len(offsets) {
			shift = offsets[c]
		}
		for d := range out[c] {
			out[c][d] = rng.NormFloat64() + shift
		}
	}
	return out
}

func ar1Chains(seed uint64, chains, draws int, phi float64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 11))
	out := make([][]float64, chains)
	for c := range out {
		out[c] = make([]float64, draws)
		x := 0.0
		for d := range out[c] {
			x = phi*x + rng.NormFloat64()
			out[c][d] = x
		}
	}
	return out
}

func TestRHat(t *testing.T) {
	t.Run("well mixed chains", func(t *testing.T) {
		r := RHat(iidChains(1, 4, 1000))
		assert.Less(t, r, 1.01)
		assert.Greater(t, r, 0.99)
	})

	t.Run("single chain is split", func(t *testing.T) {
		r := RHat(iidChains(2, 1, 1000))
		assert.False(t, math.IsNaN(r))
		assert.Less(t, r, 1.02)
	})

	t.Run("disagreeing chains", func(t *testing.T) {
		r := RHat(iidChains(3, 2, 500, 0, 5))
		assert.Greater(t, r, 1.5)
	})

	t.Run("different spread is caught by the tail statistic", func(t *testing.T) {
		chains := iidChains(4, 2, 1000)
		for i := range chains[1] {
			chains[1][i] *= 10
		}
		assert.Greater(t, RHat(chains), DefaultRHatThreshold)
	})

	t.Run("undefined cases", func(t *testing.T) {
		assert.True(t, math.IsNaN(RHat(nil)))
		assert.True(t, math.IsNaN(RHat([][]float64{{1, 2, 3}})))
		assert.True(t, math.IsNaN(RHat([][]float64{{2, 2, 2, 2}, {2, 2, 2, 2}})))
		assert.True(t, math.IsNaN(RHat([][]float64{{1, 2, 3, 4}, {1, 2, 3}})))
		assert.True(t, math.IsNaN(RHat([][]float64{{1, 2, math.NaN(), 4}})))
	})
}

func TestESS(t *testing.T) {
	t.Run("independent draws", func(t *testing.T) {
		e := ESS(iidChains(5, 4, 1000))
		assert.Greater(t, e, 2500.0)
		assert.Less(t, e, 6000.0)
	})

	t.Run("autocorrelated draws", func(t *testing.T) {
		e := ESS(ar1Chains(6, 4, 1000, 0.9))
		assert.Less(t, e, 1000.0)
		assert.Greater(t, e, 20.0)
	})

	t.Run("stronger correlation means fewer effective draws", func(t *testing.T) {
		weak := ESS(ar1Chains(7, 2, 1000, 0.3))
		strong := ESS(ar1Chains(7, 2, 1000, 0.95))
		assert.Greater(t, weak, strong)
	})

	t.Run("undefined cases", func(t *testing.T) {
		assert.True(t, math.IsNaN(ESS(nil)))
		assert.True(t, math.IsNaN(ESS([][]float64{{3, 3, 3, 3, 3}})))
	})
}
