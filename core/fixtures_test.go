package core

import (
	"context"
	"testing"
	"time"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/core/sampler"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/require"
)

// stepDataset returns n daily returns whose mean jumps from -0.05 to 0.05 at
// index shift, with one alternating covariate already standardized.
func stepDataset(n, shift int) *schema.Dataset {
	noise := []float64{0.01, 0.01, -0.01, -0.01}
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := &schema.Dataset{TargetName: "Returns", CovariateNames: []string{"Noise"}}
	for t := range n {
		mean := -0.05
		if t >= shift {
			mean = 0.05
		}
		x := 1.0
		if t%2 == 1 {
			x = -1
		}
		ds.Dates = append(ds.Dates, start.AddDate(0, 0, t))
		ds.Target = append(ds.Target, mean+noise[t%4])
		ds.Covariates = append(ds.Covariates, []float64{x})
	}
	return ds
}

// jitter is a small deterministic perturbation that keeps every trajectory
// non-constant.
func jitter(chain, draw int) float64 {
	return 0.001 * float64((chain+2*draw)%3-1)
}

// pointFit fits kind over ds with a stub sampler that returns point(c, d) as
// every draw, so posterior summaries are known in advance.
func pointFit(t *testing.T, kind schema.ModelKind, ds *schema.Dataset, opts schema.SampleOptions, point func(chain, draw int) model.Params) *schema.FitResult {
	t.Helper()
	m := 0
	if p := point(0, 0); p.Probs != nil {
		m = len(p.Probs)
	}
	mdl, err := model.New(kind, m, ds)
	require.NoError(t, err)
	require.NoError(t, mdl.Build())

	stub := &sampler.Stub{Point: func(c, d int) []float64 { return model.Unconstrain(point(c, d)) }}
	_, err = mdl.Fit(context.Background(), stub, opts)
	require.NoError(t, err)
	fit, err := mdl.Result()
	require.NoError(t, err)
	return fit
}

// stepPoint places one change point at index 10 of a 21-observation series,
// segment locations at -0.05 and 0.05, and sigmas at sigma.
func stepPoint(kind schema.ModelKind, sigma float64) func(chain, draw int) model.Params {
	return func(c, d int) model.Params {
		p := model.Params{
			Probs:    []float64{0.52 + jitter(c, d)},
			Location: []float64{-0.05 + jitter(c, d), 0.05 - jitter(c, d)},
			Sigmas:   []float64{sigma, sigma},
		}
		if kind == schema.EventKind {
			p.Coefficients = []float64{0.02 + jitter(c, d)}
		}
		return p
	}
}

var testSampleOptions = schema.SampleOptions{Draws: 30, Chains: 2, Seed: 7}

func testModelOptions() contract.ModelOptions {
	return contract.ModelOptions{
		NChangepoints: 1,
		HDIProb:       0.95,
		RHatThreshold: 1.05,
		MinESS:        10,
		PPCDraws:      20,
	}
}

func testConfig() *contract.Config {
	return &contract.Config{
		DateColumn:   schema.DefaultDateColumn,
		TargetColumn: schema.DefaultTargetColumn,
		Kind:         schema.EventKind,
		Model:        testModelOptions(),
		Sample:       testSampleOptions,
		Precision:    3,
		Width:        120,
		Output:       schema.CSVOut,
	}
}

func ptr(v float64) *float64 { return &v }
