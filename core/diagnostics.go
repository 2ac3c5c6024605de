package core

import (
	"fmt"
	"math"

	"github.com/oilshock/brentcp/core/algo"
	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"gonum.org/v1/gonum/stat"
)

// Summarize reports mean, standard deviation, HDI, R-hat and bulk ESS for
// every dimension of every posterior variable, in posterior order.
func Summarize(fit *schema.FitResult, hdiProb float64) ([]schema.ParameterSummary, error) {
	post, err := fitPosterior(fit)
	if err != nil {
		return nil, err
	}
	var out []schema.ParameterSummary
	for _, v := range post.Variables {
		for j := range v.Dim {
			series := post.ChainSeries(v.Name, j)
			pooled := post.Pooled(v.Name, j)
			if len(pooled) == 0 {
				continue
			}
			mean, sd := stat.MeanStdDev(pooled, nil)
			if len(pooled) < 2 {
				sd = 0
			}
			lo, hi := algo.HDI(pooled, hdiProb)
			out = append(out, schema.ParameterSummary{
				Name:    fmt.Sprintf("%s[%d]", v.Name, j),
				Mean:    mean,
				SD:      sd,
				HDILow:  lo,
				HDIHigh: hi,
				RHat:    definedOrNil(algo.RHat(series)),
				ESS:     definedOrNil(algo.ESS(series)),
			})
		}
	}
	return out, nil
}

// ChangePoints reports each change point at its rounded posterior-mean index
// with the HDI of its index, both clamped to the series and mapped to dates.
func ChangePoints(fit *schema.FitResult, data *schema.Dataset, hdiProb float64) ([]schema.ChangePoint, error) {
	post, err := fitPosterior(fit)
	if err != nil {
		return nil, err
	}
	n := data.Len()
	if n == 0 {
		return nil, ErrEmptyDataset
	}
	means := model.MeanChangePoints(post, n)
	cps := make([]schema.ChangePoint, len(means))
	for i, idx := range means {
		lo, hi := algo.HDI(post.Pooled(schema.VarChangepoints, i), hdiProb)
		loIdx, hiIdx := algo.ClampIndex(lo, n), algo.ClampIndex(hi, n)
		cps[i] = schema.ChangePoint{
			ID:          i + 1,
			Date:        data.DateAt(idx),
			TimeIndex:   idx,
			HDILowDate:  data.DateAt(loIdx),
			HDIHighDate: data.DateAt(hiIdx),
			HDILow:      loIdx,
			HDIHigh:     hiIdx,
		}
	}
	return cps, nil
}

// EventCoefficients reports the shared covariate effects of an event fit.
// A coefficient is significant when its HDI excludes zero.
func EventCoefficients(fit *schema.FitResult, hdiProb float64) ([]schema.EventCoefficient, error) {
	post, err := fitPosterior(fit)
	if err != nil {
		return nil, err
	}
	if fit.Kind != schema.EventKind {
		return nil, fmt.Errorf("%w: %s fit has no event coefficients", ErrMissingFit, fit.Kind)
	}
	means := post.Mean(schema.VarEventCoefficients)
	coefs := make([]schema.EventCoefficient, len(means))
	for j, mean := range means {
		lo, hi := algo.HDI(post.Pooled(schema.VarEventCoefficients, j), hdiProb)
		name := fmt.Sprintf("beta[%d]", j)
		if j < len(fit.CovariateNames) {
			name = fit.CovariateNames[j]
		}
		coefs[j] = schema.EventCoefficient{
			Feature:     name,
			Mean:        mean,
			HDILow:      lo,
			HDIHigh:     hi,
			Significant: algo.ExcludesZero(lo, hi),
		}
	}
	return coefs, nil
}

// Segments rebuilds the regimes induced by the rounded posterior-mean change
// points. Each segment carries the posterior-mean location and sigma next to
// the raw statistics of the target it covers.
func Segments(fit *schema.FitResult, data *schema.Dataset) ([]schema.Segment, error) {
	post, err := fitPosterior(fit)
	if err != nil {
		return nil, err
	}
	n := data.Len()
	if n == 0 {
		return nil, ErrEmptyDataset
	}
	bounds := algo.SegmentBounds(model.MeanChangePoints(post, n), n)
	locations := post.Mean(fit.Kind.MeanVariable())
	sigmas := post.Mean(schema.VarSegmentSigmas)
	if len(locations) != len(bounds) || len(sigmas) != len(bounds) {
		return nil, fmt.Errorf("%w: %d segments but %d locations and %d sigmas",
			model.ErrInvalidOptions, len(bounds), len(locations), len(sigmas))
	}

	segs := make([]schema.Segment, len(bounds))
	for i, b := range bounds {
		first := min(b.Start, n-1)
		seg := schema.Segment{
			ID:           i,
			StartIndex:   b.Start,
			EndIndex:     b.End,
			StartDate:    data.DateAt(first),
			EndDate:      data.DateAt(first),
			Observations: b.Len(),
			ModelMean:    locations[i],
			ModelSigma:   sigmas[i],
		}
		if b.Len() > 0 {
			last := b.End - 1
			seg.EndDate = data.DateAt(last)
			seg.DurationDays = int(data.Dates[last].Sub(data.Dates[b.Start]).Hours() / 24)
			mean, std := stat.PopMeanStdDev(data.Target[b.Start:b.End], nil)
			seg.RawMean, seg.RawStd = &mean, &std
		}
		segs[i] = seg
	}
	return segs, nil
}

// Convergence reduces a parameter summary to its worst case. A fit converges
// when the largest defined R-hat is below threshold; a fit whose R-hat is
// undefined everywhere does not.
func Convergence(summary []schema.ParameterSummary, threshold, minESS float64) schema.ConvergenceReport {
	report := schema.ConvergenceReport{Threshold: threshold, MinESS: minESS}
	for _, p := range summary {
		if p.RHat != nil && (report.RHatMax == nil || *p.RHat > *report.RHatMax) {
			v := *p.RHat
			report.RHatMax, report.RHatMaxParam = &v, p.Name
		}
		if p.ESS != nil && (report.ESSMin == nil || *p.ESS < *report.ESSMin) {
			v := *p.ESS
			report.ESSMin, report.ESSMinParam = &v, p.Name
		}
	}
	report.Converged = report.RHatMax != nil && *report.RHatMax < threshold
	report.ESSSufficient = report.ESSMin != nil && *report.ESSMin >= minESS
	return report
}

// Diagnose builds the full diagnostic view of one fit. cmp may be nil.
func Diagnose(fit *schema.FitResult, data *schema.Dataset, opts contract.ModelOptions, cmp *schema.Comparison) (*schema.DiagnosticsReport, error) {
	summary, err := Summarize(fit, opts.HDIProb)
	if err != nil {
		return nil, err
	}
	report := &schema.DiagnosticsReport{
		Model:       fit.Kind.Key(),
		WAIC:        fit.WAIC,
		Convergence: Convergence(summary, opts.RHatThreshold, opts.MinESS),
		Summary:     summary,
		Comparison:  cmp,
	}
	report.WAIC.Pointwise = nil
	if opts.PPCDraws > 0 {
		ppc, err := PosteriorPredictive(fit, data, opts.PPCDraws, fit.Options.Seed)
		if err != nil {
			return nil, err
		}
		report.PPC = ppc
	}
	return report, nil
}

// Status reports which fits exist in results, their WAIC comparison and the
// convergence of the event fit.
func Status(results *schema.Results, opts contract.ModelOptions) schema.ModelStatus {
	status := schema.ModelStatus{
		BasicFitted: results.Fit(schema.BasicModelKey) != nil,
		EventFitted: results.Fit(schema.EventModelKey) != nil,
	}
	if results != nil {
		status.Observations = results.Dataset.Len()
	}
	status.ModelsFitted = status.BasicFitted || status.EventFitted
	status.Comparison = compareResults(results)
	if status.EventFitted {
		if summary, err := Summarize(results.Fit(schema.EventModelKey), opts.HDIProb); err == nil {
			conv := Convergence(summary, opts.RHatThreshold, opts.MinESS)
			status.Convergence = &conv
		}
	}
	return status
}

func fitPosterior(fit *schema.FitResult) (*schema.Posterior, error) {
	if fit == nil {
		return nil, ErrMissingFit
	}
	if fit.Posterior == nil || fit.Posterior.TotalDraws() == 0 {
		return nil, fmt.Errorf("%w: %s fit has no draws", model.ErrNotFitted, fit.Kind)
	}
	return fit.Posterior, nil
}

func definedOrNil(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}
