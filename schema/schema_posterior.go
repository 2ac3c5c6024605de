package schema

import "time"

// Variable holds every realized value of one posterior variable.
// Values is indexed [chain][draw][dim].
type Variable struct {
	Name          string        `json:"name"`
	Dim           int           `json:"dim"`
	Deterministic bool          `json:"deterministic,omitempty"`
	Values        [][][]float64 `json:"values"`
}

// ChainStats records sampler behavior for one chain.
type ChainStats struct {
	Chain      int     `json:"chain"`
	AcceptRate float64 `json:"accept_rate"`
	DurationMs int64   `json:"duration_ms"`
}

// Posterior is the sample collection produced by one fit. It is never mutated
// after the fit that produced it returns.
type Posterior struct {
	Chains    int          `json:"chains"`
	Draws     int          `json:"draws"`
	Variables []Variable   `json:"variables"`
	Stats     []ChainStats `json:"stats,omitempty"`
}

// Variable looks up a variable by name.
func (p *Posterior) Variable(name string) (*Variable, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Variables {
		if p.Variables[i].Name == name {
			return &p.Variables[i], true
		}
	}
	return nil, false
}

// ChainSeries returns the per-chain trajectories of one dimension of a variable.
func (p *Posterior) ChainSeries(name string, dim int) [][]float64 {
	v, ok := p.Variable(name)
	if !ok || dim < 0 || dim >= v.Dim {
		return nil
	}
	series := make([][]float64, len(v.Values))
	for c, chain := range v.Values {
		series[c] = make([]float64, len(chain))
		for d, draw := range chain {
			series[c][d] = draw[dim]
		}
	}
	return series
}

// Pooled returns one dimension of a variable with all chains concatenated.
func (p *Posterior) Pooled(name string, dim int) []float64 {
	series := p.ChainSeries(name, dim)
	if series == nil {
		return nil
	}
	pooled := make([]float64, 0, p.Chains*p.Draws)
	for _, chain := range series {
		pooled = append(pooled, chain...)
	}
	return pooled
}

// Mean returns the posterior mean of every dimension of a variable.
func (p *Posterior) Mean(name string) []float64 {
	v, ok := p.Variable(name)
	if !ok {
		return nil
	}
	mean := make([]float64, v.Dim)
	count := 0
	for _, chain := range v.Values {
		for _, draw := range chain {
			for j, x := range draw {
				mean[j] += x
			}
			count++
		}
	}
	if count == 0 {
		return mean
	}
	for j := range mean {
		mean[j] /= float64(count)
	}
	return mean
}

// Value returns the realized vector of a variable at a pooled draw index.
func (p *Posterior) Value(name string, pooled int) []float64 {
	v, ok := p.Variable(name)
	if !ok || p.Draws == 0 {
		return nil
	}
	c, d := pooled/p.Draws, pooled%p.Draws
	if c >= len(v.Values) {
		return nil
	}
	return v.Values[c][d]
}

// TotalDraws returns chains times draws.
func (p *Posterior) TotalDraws() int {
	if p == nil {
		return 0
	}
	return p.Chains * p.Draws
}

// SampleOptions configures one posterior sampling run.
type SampleOptions struct {
	Draws   int    `json:"draws" validate:"gte=0"`
	Tune    int    `json:"tune" validate:"gte=0"`
	Chains  int    `json:"chains" validate:"gte=1"`
	Seed    uint64 `json:"seed"`
	Workers int    `json:"workers" validate:"gte=0"`
}

// WAIC is the widely applicable information criterion on the deviance scale.
type WAIC struct {
	WAIC      float64   `json:"waic"`
	SE        float64   `json:"waic_se"`
	PWAIC     float64   `json:"p_waic"`
	LPPD      float64   `json:"lppd"`
	Pointwise []float64 `json:"pointwise,omitempty"`
	Warning   bool      `json:"warning"`
}

// FitResult bundles a posterior with its WAIC and the inputs that produced it.
type FitResult struct {
	Kind           ModelKind     `json:"kind"`
	NChangepoints  int           `json:"n_changepoints"`
	Options        SampleOptions `json:"options"`
	CovariateNames []string      `json:"covariate_names,omitempty"`
	Posterior      *Posterior    `json:"posterior"`
	WAIC           WAIC          `json:"waic"`
	Fingerprint    string        `json:"fingerprint,omitempty"`
	FittedAt       time.Time     `json:"fitted_at"`
}

// Results is the unit of comparison and persistence: both fits over one dataset.
type Results struct {
	RunID     int64                   `json:"run_id,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	Dataset   *Dataset                `json:"dataset"`
	Models    map[ModelKey]*FitResult `json:"models"`
}

// Fit returns the fit stored under key, or nil.
func (r *Results) Fit(key ModelKey) *FitResult {
	if r == nil || r.Models == nil {
		return nil
	}
	return r.Models[key]
}
