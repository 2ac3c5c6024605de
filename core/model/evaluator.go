package model

import (
	"fmt"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/stat/distuv"
)

// Evaluator recomputes observation-level quantities for stored posterior
// draws. It needs only the dataset, so it also serves fits restored from a
// store or a results file.
type Evaluator struct {
	kind schema.ModelKind
	data *schema.Dataset
	pred predictor
}

// NewEvaluator returns an evaluator for fits of kind over data.
func NewEvaluator(kind schema.ModelKind, data *schema.Dataset) (*Evaluator, error) {
	if data.Len() == 0 {
		return nil, ErrNoObservations
	}
	pred, err := predictorFor(kind, data)
	if err != nil {
		return nil, err
	}
	return &Evaluator{kind: kind, data: data, pred: pred}, nil
}

// Draw reads the natural parameters of one pooled draw.
func (e *Evaluator) Draw(post *schema.Posterior, idx int) (Params, error) {
	p := Params{
		Probs:    post.Value(schema.VarChangepointProbs, idx),
		Location: post.Value(e.pred.location(), idx),
		Sigmas:   post.Value(schema.VarSegmentSigmas, idx),
	}
	if p.Location == nil || p.Sigmas == nil {
		return p, fmt.Errorf("%w: posterior has no %s draw %d", ErrNotFitted, e.pred.location(), idx)
	}
	cps := post.Value(schema.VarChangepoints, idx)
	p.Changepoints = make([]int, len(cps))
	for i, v := range cps {
		p.Changepoints[i] = algo.ClampIndex(v, e.data.Len())
	}
	if k := e.pred.coefficients(); k > 0 {
		p.Coefficients = post.Value(schema.VarEventCoefficients, idx)
		if len(p.Coefficients) != k {
			return p, fmt.Errorf("%w: %d coefficients in draw %d, want %d",
				ErrInvalidOptions, len(p.Coefficients), idx, k)
		}
	}
	if len(p.Sigmas) != len(p.Changepoints)+1 || len(p.Location) != len(p.Sigmas) {
		return p, fmt.Errorf("%w: inconsistent segment dimensions in draw %d", ErrInvalidOptions, idx)
	}
	return p, nil
}

// Moments returns the per-observation mean and standard deviation implied by
// one pooled draw.
func (e *Evaluator) Moments(post *schema.Posterior, idx int) (mu, sigma []float64, err error) {
	p, err := e.Draw(post, idx)
	if err != nil {
		return nil, nil, err
	}
	n := e.data.Len()
	bounds := algo.SegmentBounds(p.Changepoints, n)
	mu = make([]float64, n)
	sigma = make([]float64, n)
	e.pred.mean(mu, p.Location, bounds, p.Coefficients)
	for i, b := range bounds {
		for t := b.Start; t < b.End; t++ {
			sigma[t] = p.Sigmas[i]
		}
	}
	return mu, sigma, nil
}

// LogLik returns the pointwise log-likelihood of the observed target under one
// pooled draw.
func (e *Evaluator) LogLik(post *schema.Posterior, idx int) ([]float64, error) {
	mu, sigma, err := e.Moments(post, idx)
	if err != nil {
		return nil, err
	}
	ll := make([]float64, len(mu))
	for t, y := range e.data.Target {
		ll[t] = distuv.Normal{Mu: mu[t], Sigma: sigma[t]}.LogProb(y)
	}
	return ll, nil
}

// WAIC streams every posterior draw through a WAIC accumulator. It fails on
// the first draw that cannot be read.
func (e *Evaluator) WAIC(post *schema.Posterior) (schema.WAIC, error) {
	acc := algo.NewWAICAccumulator(e.data.Len())
	for idx := range post.TotalDraws() {
		ll, err := e.LogLik(post, idx)
		if err != nil {
			return schema.WAIC{}, fmt.Errorf("failed to compute WAIC: %w", err)
		}
		acc.Add(ll)
	}
	return acc.Result(), nil
}
