package model

import (
	"fmt"
	"math"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prior scales.
const (
	LocationPriorSD    = 0.1
	SigmaPriorSD       = 0.1
	CoefficientPriorSD = 0.05
)

// minInitSigma keeps the initial scale away from zero on constant series.
const minInitSigma = 1e-4

var (
	locationPrior    = distuv.Normal{Mu: 0, Sigma: LocationPriorSD}
	sigmaPrior       = distuv.Normal{Mu: 0, Sigma: SigmaPriorSD}
	coefficientPrior = distuv.Normal{Mu: 0, Sigma: CoefficientPriorSD}
)

// CoordKind tells a sampler which block an unconstrained coordinate belongs to.
type CoordKind int

const (
	CoordChangepoint CoordKind = iota
	CoordLocation
	CoordScale
	CoordCoefficient
)

// Target is an unnormalized log density over an unconstrained parameter
// vector. Implementations are safe for concurrent use.
type Target interface {
	Dim() int
	LogDensity(z []float64) float64
	// Initial returns a deterministic starting point for a chain.
	Initial(chain int) []float64
	Coordinates() []CoordKind
}

// Params is one point of the model in its natural parameterization.
type Params struct {
	Probs        []float64
	Changepoints []int
	Location     []float64
	Sigmas       []float64
	Coefficients []float64
}

// target lays out the unconstrained vector as
// [logit probs (m) | locations (m+1) | log sigmas (m+1) | coefficients (k)].
type target struct {
	y         []float64
	m, k      int
	pred      predictor
	initSigma float64
}

func newTarget(y []float64, m int, pred predictor) *target {
	_, std := stat.PopMeanStdDev(y, nil)
	if !finite(std) || std < minInitSigma {
		std = minInitSigma
	}
	return &target{y: y, m: m, k: pred.coefficients(), pred: pred, initSigma: std}
}

func (t *target) Dim() int { return 3*t.m + 2 + t.k }

func (t *target) Coordinates() []CoordKind {
	kinds := make([]CoordKind, 0, t.Dim())
	for range t.m {
		kinds = append(kinds, CoordChangepoint)
	}
	for range t.m + 1 {
		kinds = append(kinds, CoordLocation)
	}
	for range t.m + 1 {
		kinds = append(kinds, CoordScale)
	}
	for range t.k {
		kinds = append(kinds, CoordCoefficient)
	}
	return kinds
}

// Initial places change points evenly, locations at zero, sigmas at the data
// standard deviation and coefficients at zero.
func (t *target) Initial(int) []float64 {
	p := Params{
		Probs:        make([]float64, t.m),
		Location:     make([]float64, t.m+1),
		Sigmas:       make([]float64, t.m+1),
		Coefficients: make([]float64, t.k),
	}
	for i := range p.Probs {
		p.Probs[i] = float64(i+1) / float64(t.m+1)
	}
	for i := range p.Sigmas {
		p.Sigmas[i] = t.initSigma
	}
	return Unconstrain(p)
}

// Unconstrain maps natural parameters to the sampler's space.
func Unconstrain(p Params) []float64 {
	z := make([]float64, 0, len(p.Probs)+len(p.Location)+len(p.Sigmas)+len(p.Coefficients))
	for _, q := range p.Probs {
		z = append(z, math.Log(q)-math.Log1p(-q))
	}
	z = append(z, p.Location...)
	for _, s := range p.Sigmas {
		z = append(z, math.Log(s))
	}
	return append(z, p.Coefficients...)
}

func (t *target) constrain(z []float64) Params {
	m, n := t.m, len(t.y)
	p := Params{
		Probs:        make([]float64, m),
		Location:     z[m : 2*m+1],
		Sigmas:       make([]float64, m+1),
		Coefficients: z[3*m+2 : 3*m+2+t.k],
	}
	for i := range m {
		p.Probs[i] = sigmoid(z[i])
	}
	for i := range m + 1 {
		p.Sigmas[i] = math.Exp(z[2*m+1+i])
	}
	p.Changepoints = algo.ChangePointsFromProbs(p.Probs, n)
	return p
}

// LogDensity is the log posterior up to a constant, including the Jacobians
// of the logit and log transforms.
func (t *target) LogDensity(z []float64) float64 {
	if len(z) != t.Dim() {
		return math.Inf(-1)
	}
	p := t.constrain(z)
	m := t.m

	lp := 0.0
	for i := range m {
		// Beta(1,1) is flat; only the logit Jacobian remains.
		lp += -softplus(-z[i]) - softplus(z[i])
	}
	for _, loc := range p.Location {
		lp += locationPrior.LogProb(loc)
	}
	for i, s := range p.Sigmas {
		lp += math.Ln2 + sigmaPrior.LogProb(s) + z[2*m+1+i]
	}
	for _, b := range p.Coefficients {
		lp += coefficientPrior.LogProb(b)
	}
	if !finite(lp) {
		return math.Inf(-1)
	}

	bounds := algo.SegmentBounds(p.Changepoints, len(t.y))
	mu := make([]float64, len(t.y))
	t.pred.mean(mu, p.Location, bounds, p.Coefficients)
	for i, b := range bounds {
		lik := distuv.Normal{Mu: 0, Sigma: p.Sigmas[i]}
		for obs := b.Start; obs < b.End; obs++ {
			lp += lik.LogProb(t.y[obs] - mu[obs])
		}
	}
	if !finite(lp) {
		return math.Inf(-1)
	}
	return lp
}

// posterior converts a raw trace to named variables in the natural space.
func (t *target) posterior(trace *Trace, opts schema.SampleOptions) (*schema.Posterior, error) {
	if trace == nil || len(trace.Draws) != opts.Chains {
		return nil, fmt.Errorf("sampler returned %d chains, want %d", chainCount(trace), opts.Chains)
	}
	m, k := t.m, t.k
	vars := []schema.Variable{
		{Name: schema.VarChangepointProbs, Dim: m},
		{Name: schema.VarChangepoints, Dim: m, Deterministic: true},
		{Name: t.pred.location(), Dim: m + 1},
		{Name: schema.VarSegmentSigmas, Dim: m + 1},
	}
	if t.pred.kind() == schema.EventKind {
		vars = append(vars, schema.Variable{Name: schema.VarEventCoefficients, Dim: k})
	}
	for v := range vars {
		vars[v].Values = make([][][]float64, opts.Chains)
	}

	for c, chain := range trace.Draws {
		if len(chain) != opts.Draws {
			return nil, fmt.Errorf("sampler returned %d draws for chain %d, want %d", len(chain), c, opts.Draws)
		}
		for v := range vars {
			vars[v].Values[c] = make([][]float64, len(chain))
		}
		for d, z := range chain {
			if len(z) != t.Dim() {
				return nil, fmt.Errorf("sampler returned a point of dimension %d, want %d", len(z), t.Dim())
			}
			p := t.constrain(z)
			cps := make([]float64, m)
			for i, cp := range p.Changepoints {
				cps[i] = float64(cp)
			}
			vars[0].Values[c][d] = p.Probs
			vars[1].Values[c][d] = cps
			vars[2].Values[c][d] = append([]float64(nil), p.Location...)
			vars[3].Values[c][d] = p.Sigmas
			if len(vars) > 4 {
				vars[4].Values[c][d] = append([]float64(nil), p.Coefficients...)
			}
		}
	}

	return &schema.Posterior{
		Chains:    opts.Chains,
		Draws:     opts.Draws,
		Variables: vars,
		Stats:     trace.Stats,
	}, nil
}

func chainCount(trace *Trace) int {
	if trace == nil {
		return 0
	}
	return len(trace.Draws)
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// softplus returns log(1 + exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}
