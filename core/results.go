package core

import (
	"fmt"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// LoadResults returns the results the report commands read from: the
// --results-file when set, otherwise the selected run of the result store.
func LoadResults(cfg *contract.Config, mgr contract.CacheManager) (*schema.Results, error) {
	if cfg.ResultsFile != "" {
		return contract.ReadResultsFile(cfg.ResultsFile)
	}
	var store contract.ResultStore
	if mgr != nil {
		store = mgr.GetResultStore()
	}
	if store == nil {
		return nil, fmt.Errorf("%w: no result store configured", contract.ErrNoResults)
	}
	return store.LoadResults(cfg.RunID)
}

// runConfigParams is the configuration recorded alongside a run.
func runConfigParams(cfg *contract.Config) map[string]any {
	return map[string]any{
		"data_path":      cfg.DataPath,
		"target_column":  cfg.TargetColumn,
		"event_columns":  cfg.EventColumns,
		"n_changepoints": cfg.Model.NChangepoints,
		"samples":        cfg.Sample.Draws,
		"tune":           cfg.Sample.Tune,
		"chains":         cfg.Sample.Chains,
		"seed":           cfg.Sample.Seed,
		"hdi_prob":       cfg.Model.HDIProb,
		"rhat_threshold": cfg.Model.RHatThreshold,
	}
}

// recordRun stores results as a new run and returns its ID. Partial failures
// after the run is created are reported but do not undo it.
func recordRun(store contract.ResultStore, cfg *contract.Config, results *schema.Results, start time.Time) (int64, error) {
	runID, err := store.BeginRun(start, runConfigParams(cfg), results.Dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run: %w", err)
	}
	for _, key := range []schema.ModelKey{schema.BasicModelKey, schema.EventModelKey} {
		fit := results.Fit(key)
		if fit == nil {
			continue
		}
		summary, err := Summarize(fit, cfg.Model.HDIProb)
		if err != nil {
			return runID, err
		}
		conv := Convergence(summary, cfg.Model.RHatThreshold, cfg.Model.MinESS)
		if err := store.RecordFit(runID, fit, conv, summary); err != nil {
			return runID, fmt.Errorf("failed to record %s: %w", key, err)
		}
	}
	if err := store.EndRun(runID, time.Now(), compareResults(results)); err != nil {
		return runID, fmt.Errorf("failed to end run %d: %w", runID, err)
	}
	return runID, nil
}
