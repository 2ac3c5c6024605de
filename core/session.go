package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMissingFit is returned when a report needs a fit that has not been produced.
	ErrMissingFit = errors.New("model fit missing")
	// ErrEmptyDataset is returned when no usable observation remains.
	ErrEmptyDataset = errors.New("dataset has no complete observations")
)

// Session fits the basic and event models over one prepared dataset and
// holds their results. It replaces any process-wide model state: every
// command or tool call builds its own session.
type Session struct {
	data    *schema.Dataset
	opts    contract.ModelOptions
	sample  schema.SampleOptions
	sampler model.Sampler
	cache   contract.CacheStore
	logger  zerolog.Logger

	mu     sync.Mutex
	models map[schema.ModelKind]*model.Model
	fits   map[schema.ModelKey]*schema.FitResult
}

// NewSession returns a session over data. cache may be nil to disable the
// fit cache.
func NewSession(data *schema.Dataset, cfg *contract.Config, sampler model.Sampler, cache contract.CacheStore, logger zerolog.Logger) (*Session, error) {
	if data.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: no sampler", model.ErrInvalidOptions)
	}
	if err := model.ValidateOptions(cfg.Sample); err != nil {
		return nil, err
	}
	return &Session{
		data:    data,
		opts:    cfg.Model,
		sample:  cfg.Sample,
		sampler: sampler,
		cache:   cache,
		logger:  logger,
		models:  make(map[schema.ModelKind]*model.Model),
		fits:    make(map[schema.ModelKey]*schema.FitResult),
	}, nil
}

// Dataset returns the prepared dataset.
func (s *Session) Dataset() *schema.Dataset { return s.data }

// RunBasic fits the basic model.
func (s *Session) RunBasic(ctx context.Context) (*schema.FitResult, error) {
	return s.Run(ctx, schema.BasicKind)
}

// RunEvent fits the event-augmented model.
func (s *Session) RunEvent(ctx context.Context) (*schema.FitResult, error) {
	return s.Run(ctx, schema.EventKind)
}

// Run builds and fits one model kind, or restores it from the fit cache.
// A successful run replaces the previous fit of that kind.
func (s *Session) Run(ctx context.Context, kind schema.ModelKind) (*schema.FitResult, error) {
	log := s.logger.With().Str("kind", string(kind)).Int("n_changepoints", s.opts.NChangepoints).Logger()

	m, err := model.New(kind, s.opts.NChangepoints, s.data)
	if err != nil {
		return nil, err
	}
	if err := m.Build(); err != nil {
		return nil, fmt.Errorf("building %s model: %w", kind, err)
	}

	key, err := Fingerprint(s.data, kind, s.opts.NChangepoints, s.sample)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %s model: %w", kind, err)
	}

	fit := checkCacheHit(s.cache, key)
	if fit != nil {
		if err := m.Restore(fit); err != nil {
			log.Warn().Err(err).Msg("Discarding unusable cached fit")
			fit = nil
		} else {
			log.Info().Str("fingerprint", key[:12]).Msg("Restored fit from cache")
		}
	}

	if fit == nil {
		start := time.Now()
		log.Info().Int("draws", s.sample.Draws).Int("tune", s.sample.Tune).Int("chains", s.sample.Chains).Msg("Sampling posterior")
		if _, err := m.Fit(ctx, s.sampler, s.sample); err != nil {
			return nil, err
		}
		if fit, err = m.Result(); err != nil {
			return nil, err
		}
		fit.Fingerprint = key
		log.Info().Dur("duration", time.Since(start)).Float64("waic", fit.WAIC.WAIC).Msg("Fit complete")
		if err := storeFit(s.cache, key, fit); err != nil {
			log.Warn().Err(err).Msg("Failed to cache fit")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[kind] = m
	s.fits[kind.Key()] = fit
	return fit, nil
}

// RunAll fits both models concurrently. The two fits use independent model
// instances and share only the read-only dataset.
func (s *Session) RunAll(ctx context.Context) (*schema.Results, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range []schema.ModelKind{schema.BasicKind, schema.EventKind} {
		g.Go(func() error {
			_, err := s.Run(gctx, kind)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.Results(), nil
}

// Fit returns the current fit of kind, or nil.
func (s *Session) Fit(kind schema.ModelKind) *schema.FitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fits[kind.Key()]
}

// Model returns the model instance behind the current fit of kind, or nil.
func (s *Session) Model(kind schema.ModelKind) *model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.models[kind]
}

// Compare compares the current basic and event fits.
func (s *Session) Compare() (schema.Comparison, error) {
	return Compare(s.Fit(schema.BasicKind), s.Fit(schema.EventKind))
}

// Diagnose reports on the current fit of kind and marks its model diagnosed.
func (s *Session) Diagnose(kind schema.ModelKind) (*schema.DiagnosticsReport, error) {
	fit := s.Fit(kind)
	if fit == nil {
		return nil, fmt.Errorf("%w: %s model", ErrMissingFit, kind)
	}
	var cmp *schema.Comparison
	if c, err := s.Compare(); err == nil {
		cmp = &c
	}
	report, err := Diagnose(fit, s.data, s.opts, cmp)
	if err != nil {
		return nil, err
	}
	if m := s.Model(kind); m != nil {
		if err := m.MarkDiagnosed(); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Results returns the fits produced so far over the session dataset.
func (s *Session) Results() *schema.Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &schema.Results{
		CreatedAt: time.Now().UTC(),
		Dataset:   s.data,
		Models:    maps.Clone(s.fits),
	}
}
