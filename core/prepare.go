package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/schema"
)

// PrepareDataset turns raw rows into a model-ready dataset. Rows with a
// non-finite target or covariate are dropped, then every covariate column is
// standardized on the retained rows. Dates, target and covariates stay aligned.
func PrepareDataset(raw []schema.RawObservation, targetName string, covNames []string) (*schema.Dataset, error) {
	k := len(covNames)
	target := make([]float64, len(raw))
	covariates := make([][]float64, len(raw))
	for t, obs := range raw {
		if len(obs.Covariates) != k {
			return nil, fmt.Errorf("row %d has %d covariates, want %d", t, len(obs.Covariates), k)
		}
		target[t] = obs.Target
		covariates[t] = obs.Covariates
	}

	keep := algo.CompleteRows(target, covariates)
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: %d rows read, none complete", ErrEmptyDataset, len(raw))
	}

	ds := &schema.Dataset{
		Dates:       make([]time.Time, len(keep)),
		Target:      make([]float64, len(keep)),
		TargetName:  targetName,
		DroppedRows: len(raw) - len(keep),
	}
	if k > 0 {
		ds.CovariateNames = slices.Clone(covNames)
		ds.Covariates = make([][]float64, len(keep))
	}
	for i, t := range keep {
		ds.Dates[i] = raw[t].Date
		ds.Target[i] = raw[t].Target
		if k > 0 {
			ds.Covariates[i] = slices.Clone(raw[t].Covariates)
		}
	}
	algo.StandardizeColumns(ds.Covariates)
	return ds, nil
}
