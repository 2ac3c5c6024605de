package sampler

import (
	"context"
	"math"
	"testing"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

// gaussTarget is an independent standard normal in every coordinate.
type gaussTarget struct {
	kinds []model.CoordKind
}

func (g gaussTarget) Dim() int                       { return len(g.kinds) }
func (g gaussTarget) Coordinates() []model.CoordKind { return g.kinds }
func (g gaussTarget) Initial(int) []float64          { return make([]float64, len(g.kinds)) }

func (g gaussTarget) LogDensity(z []float64) float64 {
	lp := 0.0
	for _, x := range z {
		lp -= x * x / 2
	}
	return lp
}

// logisticTarget is the logit image of a Uniform(0,1) variable.
type logisticTarget struct{}

func (logisticTarget) Dim() int                       { return 1 }
func (logisticTarget) Coordinates() []model.CoordKind { return []model.CoordKind{model.CoordChangepoint} }
func (logisticTarget) Initial(int) []float64          { return []float64{0} }
func (logisticTarget) LogDensity(z []float64) float64 { return logLogistic(z[0]) }

func pooled(trace *model.Trace, dim int) []float64 {
	var out []float64
	for _, chain := range trace.Draws {
		for _, x := range chain {
			out = append(out, x[dim])
		}
	}
	return out
}

func TestMetropolis_RecoversNormal(t *testing.T) {
	s := NewMetropolis(zerolog.Nop())
	target := gaussTarget{kinds: []model.CoordKind{model.CoordLocation, model.CoordScale}}
	opts := schema.SampleOptions{Draws: 4000, Tune: 500, Chains: 2, Seed: 42}

	trace, err := s.Sample(context.Background(), target, opts)
	require.NoError(t, err)
	require.Len(t, trace.Draws, 2)
	require.Len(t, trace.Stats, 2)

	for dim := range 2 {
		mean, std := stat.MeanStdDev(pooled(trace, dim), nil)
		assert.InDelta(t, 0, mean, 0.15, "dim %d", dim)
		assert.InDelta(t, 1, std, 0.15, "dim %d", dim)
	}
	for c, st := range trace.Stats {
		assert.Equal(t, c, st.Chain)
		assert.Greater(t, st.AcceptRate, 0.1)
		assert.Less(t, st.AcceptRate, 0.9)
	}
}

func TestMetropolis_ChangepointCoordinate(t *testing.T) {
	s := NewMetropolis(zerolog.Nop())
	opts := schema.SampleOptions{Draws: 4000, Tune: 200, Chains: 2, Seed: 9}

	trace, err := s.Sample(context.Background(), logisticTarget{}, opts)
	require.NoError(t, err)

	probs := pooled(trace, 0)
	for i, z := range probs {
		probs[i] = 1 / (1 + math.Exp(-z))
	}
	mean, std := stat.MeanStdDev(probs, nil)
	assert.InDelta(t, 0.5, mean, 0.05)
	assert.InDelta(t, math.Sqrt(1.0/12), std, 0.05)
}

func TestMetropolis_Deterministic(t *testing.T) {
	target := gaussTarget{kinds: []model.CoordKind{model.CoordChangepoint, model.CoordLocation}}
	opts := schema.SampleOptions{Draws: 50, Tune: 100, Chains: 3, Seed: 7}

	parallel, err := NewMetropolis(zerolog.Nop()).Sample(context.Background(), target, opts)
	require.NoError(t, err)

	opts.Workers = 1
	serial, err := NewMetropolis(zerolog.Nop()).Sample(context.Background(), target, opts)
	require.NoError(t, err)
	assert.Equal(t, parallel.Draws, serial.Draws)

	opts.Seed = 8
	other, err := NewMetropolis(zerolog.Nop()).Sample(context.Background(), target, opts)
	require.NoError(t, err)
	assert.NotEqual(t, parallel.Draws, other.Draws)

	// Chains are seeded independently.
	assert.NotEqual(t, parallel.Draws[0], parallel.Draws[1])
}

func TestMetropolis_Options(t *testing.T) {
	s := NewMetropolis(zerolog.Nop())
	target := gaussTarget{kinds: []model.CoordKind{model.CoordLocation}}

	_, err := s.Sample(context.Background(), target, schema.SampleOptions{Chains: 0})
	assert.ErrorIs(t, err, model.ErrInvalidOptions)

	trace, err := s.Sample(context.Background(), target, schema.SampleOptions{Chains: 2, Tune: 10})
	require.NoError(t, err)
	assert.Len(t, trace.Draws, 2)
	assert.Empty(t, trace.Draws[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Sample(ctx, target, schema.SampleOptions{Chains: 1, Draws: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepFactor(t *testing.T) {
	tests := []struct {
		rate     float64
		expected float64
	}{
		{0, 0.1},
		{0.01, 0.5},
		{0.1, 0.9},
		{0.3, 1},
		{0.6, 1.1},
		{0.8, 2},
		{0.99, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, stepFactor(tt.rate), "rate %v", tt.rate)
	}
}

func TestStub(t *testing.T) {
	target := gaussTarget{kinds: []model.CoordKind{model.CoordLocation, model.CoordScale}}

	stub := &Stub{}
	trace, err := stub.Sample(context.Background(), target, schema.SampleOptions{Chains: 2, Draws: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.Calls())
	require.Len(t, trace.Draws, 2)
	assert.Equal(t, []float64{0, 0}, trace.Draws[1][2])

	stub = &Stub{Point: func(c, d int) []float64 { return []float64{float64(c), float64(d)} }}
	trace, err = stub.Sample(context.Background(), target, schema.SampleOptions{Chains: 2, Draws: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, trace.Draws[1][2])

	stub = &Stub{Err: assert.AnError}
	_, err = stub.Sample(context.Background(), target, schema.SampleOptions{Chains: 1, Draws: 1})
	assert.ErrorIs(t, err, assert.AnError)
}
