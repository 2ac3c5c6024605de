// Package model defines the Bayesian change-point models over a return series
// and the contract between a model and the sampler that explores it.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/schema"
)

var (
	// ErrNotBuilt is returned when a model is used before Build.
	ErrNotBuilt = errors.New("model structure not built")
	// ErrNotFitted is returned when posterior output is requested before Fit.
	ErrNotFitted = errors.New("model not fitted")
	// ErrFitInProgress is returned when Fit is called on a model that is already fitting.
	ErrFitInProgress = errors.New("fit already in progress")
	// ErrInvalidOptions is returned for out-of-range model or sampling options.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrNoObservations is returned when building over an empty dataset.
	ErrNoObservations = errors.New("no observations")
)

// State is the lifecycle stage of a model.
type State int

const (
	Unbuilt State = iota
	Built
	Fitted
	Diagnosed
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Fitted:
		return "fitted"
	case Diagnosed:
		return "diagnosed"
	default:
		return "unbuilt"
	}
}

// Trace is the raw sampler output: Draws[chain][draw] is a point in the
// unconstrained parameter space of the target.
type Trace struct {
	Draws [][][]float64
	Stats []schema.ChainStats
}

// Sampler draws from a target density. Implementations must run chains
// independently and honor ctx cancellation by returning its error with no trace.
type Sampler interface {
	Sample(ctx context.Context, target Target, opts schema.SampleOptions) (*Trace, error)
}

// Model is a change-point model of one kind over one dataset. The two kinds
// share change-point priors, segment assignment and likelihood, and differ
// only in their predictor.
type Model struct {
	kind schema.ModelKind
	m    int
	data *schema.Dataset

	fitMu sync.Mutex

	mu        sync.RWMutex
	state     State
	target    *target
	posterior *schema.Posterior
	opts      schema.SampleOptions
	fittedAt  time.Time
}

// New returns an unbuilt model with m change points.
func New(kind schema.ModelKind, m int, data *schema.Dataset) (*Model, error) {
	if kind != schema.BasicKind && kind != schema.EventKind {
		return nil, fmt.Errorf("%w: unknown model kind %q", ErrInvalidOptions, kind)
	}
	if m < 0 {
		return nil, fmt.Errorf("%w: number of change points must be non-negative, got %d", ErrInvalidOptions, m)
	}
	return &Model{kind: kind, m: m, data: data}, nil
}

// Kind returns the predictor variant.
func (m *Model) Kind() schema.ModelKind { return m.kind }

// NumChangepoints returns m.
func (m *Model) NumChangepoints() int { return m.m }

// State returns the current lifecycle stage.
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Build constructs the model structure over the dataset.
func (m *Model) Build() error {
	n := m.data.Len()
	if n == 0 {
		return ErrNoObservations
	}
	pred, err := predictorFor(m.kind, m.data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = newTarget(m.data.Target, m.m, pred)
	if m.state == Unbuilt {
		m.state = Built
	}
	return nil
}

// Target returns the density the sampler explores.
func (m *Model) Target() (Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.target == nil {
		return nil, ErrNotBuilt
	}
	return m.target, nil
}

// Fit samples the posterior. A second Fit on the same model while one is
// running fails with ErrFitInProgress. No convergence check is made here.
func (m *Model) Fit(ctx context.Context, sampler Sampler, opts schema.SampleOptions) (*schema.Posterior, error) {
	if !m.fitMu.TryLock() {
		return nil, ErrFitInProgress
	}
	defer m.fitMu.Unlock()

	m.mu.RLock()
	t := m.target
	m.mu.RUnlock()
	if t == nil {
		return nil, ErrNotBuilt
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	trace, err := sampler.Sample(ctx, t, opts)
	if err != nil {
		return nil, fmt.Errorf("sampling %s model: %w", m.kind, err)
	}
	post, err := t.posterior(trace, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.posterior = post
	m.opts = opts
	m.fittedAt = time.Now().UTC()
	m.state = Fitted
	return post, nil
}

// Restore installs a previously computed fit, moving a built model to Fitted.
func (m *Model) Restore(fit *schema.FitResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.target == nil {
		return ErrNotBuilt
	}
	if fit == nil || fit.Posterior == nil {
		return ErrNotFitted
	}
	if fit.Kind != m.kind || fit.NChangepoints != m.m {
		return fmt.Errorf("%w: fit is %s with %d change points, model is %s with %d",
			ErrInvalidOptions, fit.Kind, fit.NChangepoints, m.kind, m.m)
	}
	m.posterior = fit.Posterior
	m.opts = fit.Options
	m.fittedAt = fit.FittedAt
	m.state = Fitted
	return nil
}

// Posterior returns the sample collection of the last fit.
func (m *Model) Posterior() (*schema.Posterior, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.posterior == nil {
		return nil, ErrNotFitted
	}
	return m.posterior, nil
}

// ChangePoints returns the rounded posterior-mean change-point indices.
func (m *Model) ChangePoints() ([]int, error) {
	post, err := m.Posterior()
	if err != nil {
		return nil, err
	}
	return MeanChangePoints(post, m.data.Len()), nil
}

// Result bundles the posterior with its WAIC.
func (m *Model) Result() (*schema.FitResult, error) {
	post, err := m.Posterior()
	if err != nil {
		return nil, err
	}
	ev, err := NewEvaluator(m.kind, m.data)
	if err != nil {
		return nil, err
	}
	waic, err := ev.WAIC(post)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return &schema.FitResult{
		Kind:           m.kind,
		NChangepoints:  m.m,
		Options:        m.opts,
		CovariateNames: m.covariateNames(),
		Posterior:      post,
		WAIC:           waic,
		FittedAt:       m.fittedAt,
	}, nil
}

// MarkDiagnosed records that diagnostics were produced for the current fit.
func (m *Model) MarkDiagnosed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state < Fitted {
		return ErrNotFitted
	}
	m.state = Diagnosed
	return nil
}

func (m *Model) covariateNames() []string {
	if m.kind != schema.EventKind {
		return nil
	}
	return m.data.CovariateNames
}

// ValidateOptions checks the preconditions of Fit.
func ValidateOptions(opts schema.SampleOptions) error {
	switch {
	case opts.Chains < 1:
		return fmt.Errorf("%w: chains must be at least 1, got %d", ErrInvalidOptions, opts.Chains)
	case opts.Draws < 0:
		return fmt.Errorf("%w: draws must be non-negative, got %d", ErrInvalidOptions, opts.Draws)
	case opts.Tune < 0:
		return fmt.Errorf("%w: tune must be non-negative, got %d", ErrInvalidOptions, opts.Tune)
	case opts.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidOptions, opts.Workers)
	}
	return nil
}

// MeanChangePoints rounds the posterior mean of the sorted change points and
// clamps each to [0, n-1].
func MeanChangePoints(post *schema.Posterior, n int) []int {
	mean := post.Mean(schema.VarChangepoints)
	cps := make([]int, len(mean))
	for i, v := range mean {
		cps[i] = algo.ClampIndex(v, n)
	}
	return cps
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
