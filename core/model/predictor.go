package model

import (
	"fmt"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/mat"
)

// predictor builds the per-observation location from segment parameters.
type predictor interface {
	kind() schema.ModelKind
	location() string
	coefficients() int
	mean(mu, loc []float64, bounds []algo.Bounds, beta []float64)
}

type basicPredictor struct{}

func (basicPredictor) kind() schema.ModelKind { return schema.BasicKind }
func (basicPredictor) location() string       { return schema.VarSegmentMeans }
func (basicPredictor) coefficients() int      { return 0 }

func (basicPredictor) mean(mu, loc []float64, bounds []algo.Bounds, _ []float64) {
	fillSegments(mu, loc, bounds)
}

// eventPredictor adds a shared linear covariate effect to per-segment intercepts.
type eventPredictor struct {
	x *mat.Dense
	k int
}

func newEventPredictor(data *schema.Dataset) (eventPredictor, error) {
	n, k := data.Len(), data.NumCovariates()
	if k == 0 {
		return eventPredictor{}, nil
	}
	if len(data.Covariates) != n {
		return eventPredictor{}, fmt.Errorf("%w: %d covariate rows for %d observations",
			ErrInvalidOptions, len(data.Covariates), n)
	}
	flat := make([]float64, 0, n*k)
	for t, row := range data.Covariates {
		if len(row) != k {
			return eventPredictor{}, fmt.Errorf("%w: covariate row %d has %d values, want %d",
				ErrInvalidOptions, t, len(row), k)
		}
		flat = append(flat, row...)
	}
	return eventPredictor{x: mat.NewDense(n, k, flat), k: k}, nil
}

func (eventPredictor) kind() schema.ModelKind { return schema.EventKind }
func (eventPredictor) location() string       { return schema.VarSegmentIntercepts }
func (p eventPredictor) coefficients() int    { return p.k }

func (p eventPredictor) mean(mu, loc []float64, bounds []algo.Bounds, beta []float64) {
	if p.k == 0 {
		fillSegments(mu, loc, bounds)
		return
	}
	xb := mat.NewVecDense(len(mu), mu)
	xb.MulVec(p.x, mat.NewVecDense(p.k, beta))
	for i, b := range bounds {
		for t := b.Start; t < b.End; t++ {
			mu[t] += loc[i]
		}
	}
}

func fillSegments(mu, loc []float64, bounds []algo.Bounds) {
	for i, b := range bounds {
		for t := b.Start; t < b.End; t++ {
			mu[t] = loc[i]
		}
	}
}

func predictorFor(kind schema.ModelKind, data *schema.Dataset) (predictor, error) {
	if kind == schema.EventKind {
		return newEventPredictor(data)
	}
	return basicPredictor{}, nil
}
