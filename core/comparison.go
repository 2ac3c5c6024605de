package core

import (
	"fmt"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/schema"
)

// Compare ranks the basic and event fits by WAIC on the deviance scale.
// The difference is basic minus event, so a positive difference favors the
// event model. Ties keep the basic model.
func Compare(basic, event *schema.FitResult) (schema.Comparison, error) {
	if basic == nil || event == nil {
		return schema.Comparison{}, ErrMissingFit
	}
	diffSE, err := algo.DifferenceSE(basic.WAIC, event.WAIC)
	if err != nil {
		return schema.Comparison{}, fmt.Errorf("comparing fits: %w", err)
	}

	cmp := schema.Comparison{
		BasicWAIC:    basic.WAIC.WAIC,
		BasicWAICSE:  basic.WAIC.SE,
		EventWAIC:    event.WAIC.WAIC,
		EventWAICSE:  event.WAIC.SE,
		Difference:   basic.WAIC.WAIC - event.WAIC.WAIC,
		DifferenceSE: diffSE,
		Preferred:    schema.BasicModelKey,
		Warning:      basic.WAIC.Warning || event.WAIC.Warning,
	}
	if event.WAIC.WAIC < basic.WAIC.WAIC {
		cmp.Preferred = schema.EventModelKey
	}
	return cmp, nil
}

// compareResults compares the two fits of results when both exist.
func compareResults(results *schema.Results) *schema.Comparison {
	cmp, err := Compare(results.Fit(schema.BasicModelKey), results.Fit(schema.EventModelKey))
	if err != nil {
		return nil
	}
	return &cmp
}
