package algo

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLikMatrix(seed uint64, draws, n int, spread float64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 3))
	ll := make([][]float64, draws)
	for s := range ll {
		ll[s] = make([]float64, n)
		for i := range ll[s] {
			ll[s][i] = -1 - 0.1*float64(i%5) + spread*rng.NormFloat64()
		}
	}
	return ll
}

func TestWAIC_AccumulatorMatchesBatch(t *testing.T) {
	ll := logLikMatrix(1, 400, 30, 0.2)

	batch := WAIC(ll)
	acc := NewWAICAccumulator(30)
	for _, row := range ll {
		acc.Add(row)
	}
	streamed := acc.Result()

	assert.InDelta(t, batch.WAIC, streamed.WAIC, 1e-9)
	assert.InDelta(t, batch.SE, streamed.SE, 1e-9)
	assert.InDelta(t, batch.PWAIC, streamed.PWAIC, 1e-9)
	assert.InDelta(t, batch.LPPD, streamed.LPPD, 1e-9)
	require.Len(t, streamed.Pointwise, 30)
	for i := range batch.Pointwise {
		assert.InDelta(t, batch.Pointwise[i], streamed.Pointwise[i], 1e-9)
	}
}

func TestWAIC_DevianceScale(t *testing.T) {
	// Constant log-likelihood: lppd equals the constant and p_waic is zero.
	ll := [][]float64{{-2, -3}, {-2, -3}, {-2, -3}}
	w := WAIC(ll)
	assert.InDelta(t, -5, w.LPPD, 1e-12)
	assert.InDelta(t, 0, w.PWAIC, 1e-12)
	assert.InDelta(t, 10, w.WAIC, 1e-12)
	assert.InDelta(t, math.Sqrt(2*1.0), w.SE, 1e-12)
	assert.False(t, w.Warning)
}

func TestWAIC_Warning(t *testing.T) {
	assert.False(t, WAIC(logLikMatrix(2, 200, 10, 0.1)).Warning)
	assert.True(t, WAIC(logLikMatrix(2, 200, 10, 2)).Warning)
}

func TestWAIC_Empty(t *testing.T) {
	w := WAIC(nil)
	assert.Equal(t, 0.0, w.WAIC)
	assert.Equal(t, 0.0, NewWAICAccumulator(0).Result().WAIC)
}

func TestDifferenceSE(t *testing.T) {
	a := schema.WAIC{Pointwise: []float64{1, 2, 3, 4}}
	b := schema.WAIC{Pointwise: []float64{1, 2, 3, 4}}
	se, err := DifferenceSE(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, se)

	c := schema.WAIC{Pointwise: []float64{0, 2, 3, 6}}
	se, err = DifferenceSE(a, c)
	require.NoError(t, err)
	// diff = {1, 0, 0, -2}, population variance = 1.1875
	assert.InDelta(t, math.Sqrt(4*1.1875), se, 1e-12)

	_, err = DifferenceSE(a, schema.WAIC{Pointwise: []float64{1}})
	assert.ErrorIs(t, err, ErrPointwiseMismatch)
}
