package core

import (
	"math"
	"math/rand/v2"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ppcStream separates the replication RNG from the sampler chains that share
// the same seed.
const ppcStream = 0x9e3779b97f4a7c15

// PosteriorPredictive simulates replicated series from up to draws evenly
// spaced posterior draws and compares them with the observed target.
// P-values are the share of replicates whose statistic is at least the
// observed one. Residuals are y minus the replicate average.
func PosteriorPredictive(fit *schema.FitResult, data *schema.Dataset, draws int, seed uint64) (*schema.PPCReport, error) {
	post, err := fitPosterior(fit)
	if err != nil {
		return nil, err
	}
	ev, err := model.NewEvaluator(fit.Kind, data)
	if err != nil {
		return nil, err
	}
	total := post.TotalDraws()
	draws = min(max(draws, 1), total)
	n := data.Len()
	rng := rand.New(rand.NewPCG(seed, ppcStream))

	obsMean, obsStd := stat.PopMeanStdDev(data.Target, nil)
	expected := make([]float64, n)
	yrep := make([]float64, n)
	repMeans := make([]float64, 0, draws)
	repStds := make([]float64, 0, draws)
	var geMean, geStd int

	for r := range draws {
		mu, sigma, err := ev.Moments(post, r*total/draws)
		if err != nil {
			return nil, err
		}
		for t := range n {
			yrep[t] = mu[t] + sigma[t]*rng.NormFloat64()
		}
		floats.Add(expected, yrep)
		m, s := stat.PopMeanStdDev(yrep, nil)
		repMeans = append(repMeans, m)
		repStds = append(repStds, s)
		if m >= obsMean {
			geMean++
		}
		if s >= obsStd {
			geStd++
		}
	}
	floats.Scale(1/float64(draws), expected)

	residuals := make([]float64, n)
	floats.SubTo(residuals, data.Target, expected)
	resMean, resStd := stat.PopMeanStdDev(residuals, nil)

	return &schema.PPCReport{
		Replicates:     draws,
		ObservedMean:   obsMean,
		ObservedStd:    obsStd,
		ReplicatedMean: stat.Mean(repMeans, nil),
		ReplicatedStd:  stat.Mean(repStds, nil),
		PValueMean:     float64(geMean) / float64(draws),
		PValueStd:      float64(geStd) / float64(draws),
		ResidualMean:   resMean,
		ResidualStd:    resStd,
		RMSE:           math.Sqrt(floats.Dot(residuals, residuals) / float64(n)),
	}, nil
}
