package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// GetChangePointsResults returns the change points of the selected fit.
func GetChangePointsResults(_ context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.ChangePoint, error) {
	results, fit, err := loadFit(cfg, mgr, cfg.Kind)
	if err != nil {
		return nil, err
	}
	return ChangePoints(fit, results.Dataset, cfg.Model.HDIProb)
}

// GetEventCoefficientsResults returns the covariate effects of the event fit.
// Only the event model has coefficients, so cfg.Kind is ignored.
func GetEventCoefficientsResults(_ context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.EventCoefficient, error) {
	_, fit, err := loadFit(cfg, mgr, schema.EventKind)
	if err != nil {
		return nil, err
	}
	return EventCoefficients(fit, cfg.Model.HDIProb)
}

// GetSegmentsResults returns the regimes of the selected fit.
func GetSegmentsResults(_ context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.Segment, error) {
	results, fit, err := loadFit(cfg, mgr, cfg.Kind)
	if err != nil {
		return nil, err
	}
	return Segments(fit, results.Dataset)
}

// GetDiagnosticsResults returns the diagnostic report of the selected fit,
// with the WAIC comparison when both fits are stored.
func GetDiagnosticsResults(_ context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.DiagnosticsReport, error) {
	results, fit, err := loadFit(cfg, mgr, cfg.Kind)
	if err != nil {
		return nil, err
	}
	return Diagnose(fit, results.Dataset, cfg.Model, compareResults(results))
}

// GetComparisonResults returns the WAIC comparison of the stored fits.
func GetComparisonResults(_ context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.Comparison, error) {
	results, err := LoadResults(cfg, mgr)
	if err != nil {
		return schema.Comparison{}, err
	}
	return Compare(results.Fit(schema.BasicModelKey), results.Fit(schema.EventModelKey))
}

// GetStatusResults returns which fits are stored and how they converged.
// Missing results are a status, not an error.
func GetStatusResults(_ context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.ModelStatus, error) {
	results, err := LoadResults(cfg, mgr)
	if err != nil && !errors.Is(err, contract.ErrNoResults) {
		return schema.ModelStatus{}, err
	}
	return Status(results, cfg.Model), nil
}

// loadFit loads results and selects the fit of kind.
func loadFit(cfg *contract.Config, mgr contract.CacheManager, kind schema.ModelKind) (*schema.Results, *schema.FitResult, error) {
	results, err := LoadResults(cfg, mgr)
	if err != nil {
		return nil, nil, err
	}
	fit := results.Fit(kind.Key())
	if fit == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingFit, kind.Key())
	}
	return results, fit, nil
}
