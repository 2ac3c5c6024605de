// Package core runs the change-point models and derives every report from
// their posteriors: change points, event effects, segments, convergence,
// posterior predictive checks and WAIC comparison.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/oilshock/brentcp/core/sampler"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/internal/dataset"
	"github.com/oilshock/brentcp/internal/outwriter"
	"github.com/oilshock/brentcp/schema"
)

// ExecutorFunc defines the function signature for executing the commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteRun loads and prepares the data file, fits both models, records the
// run and prints the resulting model status.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	results, err := RunModels(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintStatus(Status(results, cfg.Model), cfg, time.Since(start))
}

// RunModels fits both models over the configured data file, records the run
// in the result store and writes the results file when one is configured.
func RunModels(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.Results, error) {
	start := time.Now()
	logger := loggerFrom(ctx)

	data, err := LoadDataset(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("observations", data.Len()).Int("dropped", data.DroppedRows).
		Strs("covariates", data.CovariateNames).Msg("Prepared dataset")

	var cache contract.CacheStore
	if mgr != nil {
		cache = mgr.GetFitStore()
	}
	session, err := NewSession(data, cfg, sampler.NewMetropolis(logger), cache, logger)
	if err != nil {
		return nil, err
	}
	results, err := session.RunAll(ctx)
	if err != nil {
		return nil, err
	}

	if mgr != nil && mgr.GetResultStore() != nil {
		runID, err := recordRun(mgr.GetResultStore(), cfg, results, start)
		switch {
		case err == nil:
			results.RunID = runID
		case runID > 0:
			contract.LogWarn(fmt.Sprintf("Run %d is incomplete", runID), err)
		default:
			contract.LogWarn("Failed to record run", err)
		}
	}
	if cfg.ResultsFile != "" {
		if err := contract.WriteResultsFile(cfg.ResultsFile, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ExecuteChangePoints prints the change points of the selected fit.
func ExecuteChangePoints(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	cps, err := GetChangePointsResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintChangePoints(cps, cfg, time.Since(start))
}

// ExecuteCoefficients prints the event coefficients of the event fit.
func ExecuteCoefficients(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	coefs, err := GetEventCoefficientsResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintEventCoefficients(coefs, cfg, time.Since(start))
}

// ExecuteSegments prints the regimes of the selected fit.
func ExecuteSegments(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	segs, err := GetSegmentsResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintSegments(segs, cfg, time.Since(start))
}

// ExecuteDiagnostics prints the full diagnostic report of the selected fit.
func ExecuteDiagnostics(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	report, err := GetDiagnosticsResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintDiagnostics(report, cfg, time.Since(start))
}

// ExecuteCompare prints the WAIC comparison of the stored fits.
func ExecuteCompare(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	cmp, err := GetComparisonResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintComparison(cmp, cfg, time.Since(start))
}

// ExecuteStatus prints which fits are stored and how they converged.
func ExecuteStatus(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	status, err := GetStatusResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintStatus(status, cfg, time.Since(start))
}

// ExecuteSimulate writes a synthetic series with known change points as CSV.
func ExecuteSimulate(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	rows := dataset.Simulate(cfg.Simulate, cfg.EventColumns, cfg.Sample.Seed)
	file, err := contract.SelectOutputFile(cfg.OutputFile)
	if err != nil {
		return err
	}
	if cfg.OutputFile != "" {
		defer func() { _ = file.Close() }()
	}
	return dataset.WriteCSV(file, rows, cfg.DateColumn, cfg.TargetColumn, cfg.EventColumns)
}

// LoadDataset reads the configured data file and prepares it for fitting.
func LoadDataset(cfg *contract.Config) (*schema.Dataset, error) {
	raw, err := dataset.LoadCSV(cfg.DataPath, cfg.DateColumn, cfg.TargetColumn, cfg.EventColumns)
	if err != nil {
		return nil, err
	}
	return PrepareDataset(raw, cfg.TargetColumn, cfg.EventColumns)
}
