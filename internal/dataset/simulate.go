package dataset

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// simBaseSigma is the daily volatility of the calm regimes.
	simBaseSigma = 0.02
	// simEventRate is the chance of an active event indicator on a given day.
	simEventRate = 0.1
)

// simStart is the first simulated trading day.
var simStart = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// Simulate generates a return series over weekdays with regime changes at
// opts.Breaks. Regime j has mean j*opts.Shift, and every other regime has
// doubled volatility. The first covariate is a 0/1 event indicator that adds
// opts.Effect to the return; the others are pure noise.
func Simulate(opts contract.SimulateOptions, covNames []string, seed uint64) []schema.RawObservation {
	rng := rand.New(rand.NewPCG(seed, uint64(len(covNames))))
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	event := distuv.Bernoulli{P: simEventRate, Src: rng}

	breaks := slices.Clone(opts.Breaks)
	slices.Sort(breaks)

	rows := make([]schema.RawObservation, opts.Observations)
	date := simStart
	regime := 0
	for t := range rows {
		for regime < len(breaks) && breaks[regime] <= t {
			regime++
		}
		sigma := simBaseSigma
		if regime%2 == 1 {
			sigma *= 2
		}

		covs := make([]float64, len(covNames))
		for j := range covs {
			if j == 0 {
				covs[j] = event.Rand()
			} else {
				covs[j] = noise.Rand()
			}
		}
		y := float64(regime)*opts.Shift + sigma*noise.Rand()
		if len(covs) > 0 {
			y += opts.Effect * covs[0]
		}

		rows[t] = schema.RawObservation{Date: date, Target: y, Covariates: covs}
		date = nextWeekday(date)
	}
	return rows
}

func nextWeekday(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
