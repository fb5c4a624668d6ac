package anova

import (
	"fmt"
	"math"

	"idstat/adapters/stats/art"
	"idstat/adapters/stats/design"
	"idstat/adapters/stats/dist"
	"idstat/adapters/stats/rank"
	"idstat/domain/core"
	"idstat/domain/sample"
	"idstat/domain/stats"
)

// relativeZero treats sums of squares below this fraction of the total as zero.
const relativeZero = 1e-12

// RankANOVA fits sum-coded Type III models on rank columns.
type RankANOVA struct {
	aligner *art.Aligner
	dists   *dist.StatisticalDistributions
}

// NewRankANOVA creates a new rank ANOVA
func NewRankANOVA() *RankANOVA {
	return &RankANOVA{
		aligner: art.NewAligner(),
		dists:   dist.NewDistributions(),
	}
}

// FitFactor tests factor on its aligned rank column with the single-term
// model rank ~ factor. SS(term) is RSS(intercept only) − RSS(intercept + term),
// and the partial effect size is taken against the residual of this model.
func (a *RankANOVA) FitFactor(column stats.AlignedColumn, f *design.Factorial) stats.EffectResult {
	factor := column.Factor
	y := column.Ranks
	if len(y) != f.N {
		return stats.SkippedEffect(factor, stats.WarningInsufficientSample,
			fmt.Errorf("%w: column has %d ranks for %d observations", core.ErrInvalidSample, len(y), f.N))
	}

	term := f.Term(factor)
	full := []design.Term{design.Intercept(f.N), term}
	reduced := []design.Term{design.Intercept(f.N)}
	return a.typeIII(factor, y, full, reduced, term.DF())
}

// typeIII compares the full model against the model with one term removed.
func (a *RankANOVA) typeIII(factor stats.Factor, y []float64, full, reduced []design.Term, df int) stats.EffectResult {
	total := design.TotalSS(y)
	if total <= 0 {
		result := stats.SkippedEffect(factor, stats.WarningZeroVariance,
			fmt.Errorf("%w: rank column is constant", core.ErrZeroVariance))
		result.Flags = append(result.Flags, stats.WarningUndefinedEffectSize)
		return result
	}

	fullFit, err := design.OLS(y, full...)
	if err != nil {
		return stats.SkippedEffect(factor, stats.WarningDesignSingular, err)
	}
	dfRes := fullFit.DFResidual()
	if dfRes <= 0 || df <= 0 {
		return stats.SkippedEffect(factor, stats.WarningInsufficientSample,
			fmt.Errorf("%w: %d residual degrees of freedom", core.ErrInsufficientSample, dfRes))
	}

	reducedFit, err := design.OLS(y, reduced...)
	if err != nil {
		return stats.SkippedEffect(factor, stats.WarningDesignSingular, err)
	}

	ss := reducedFit.RSS - fullFit.RSS
	if ss < relativeZero*total {
		ss = 0
	}
	rss := fullFit.RSS
	if rss < relativeZero*total {
		rss = 0
	}

	result := stats.EffectResult{
		Factor:        factor,
		DF:            df,
		DFResidual:    dfRes,
		SumSq:         ss,
		SumSqResidual: rss,
		PValue:        1.0,
	}

	switch {
	case ss+rss == 0:
		result.Flags = append(result.Flags, stats.WarningUndefinedEffectSize)
		return result
	case rss == 0:
		// Exact fit: F is unbounded and the effect size would reach 1.
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("%v: residual sum of squares is zero", core.ErrZeroVariance)
		result.Flags = append(result.Flags, stats.WarningZeroResidualVariance)
		return result
	}

	msTerm := ss / float64(df)
	msRes := rss / float64(dfRes)
	result.FValue = msTerm / msRes
	result.PValue = a.dists.FTestPValue(result.FValue, df, dfRes)
	result.PartialEffectSize = partialEffectSize(ss, rss)
	return result
}

// partialEffectSize returns SS/(SS+RSS), 0 when both are zero.
func partialEffectSize(ss, rss float64) float64 {
	denom := ss + rss
	if denom <= 0 || math.IsNaN(denom) {
		return 0
	}
	return ss / denom
}

// RunART aligns and tests every factor of s. A factor whose alignment or fit
// fails is recorded as skipped; the other factors still run.
func (a *RankANOVA) RunART(s *sample.Sample) stats.ANOVARunResult {
	result := newRunResult(s, stats.DesignART)

	f, err := design.NewFactorial(s)
	if err != nil {
		for _, factor := range stats.Factors() {
			result.SetEffect(stats.SkippedEffect(factor, stats.WarningDesignSingular, err))
		}
		return result
	}

	values := s.Values()
	for _, factor := range stats.Factors() {
		column, err := a.aligner.AlignWith(f, values, factor)
		if err != nil {
			result.SetEffect(stats.SkippedEffect(factor, flagFor(err), err))
			continue
		}
		result.SetEffect(a.FitFactor(column, f))
	}
	return result
}

// RunRankType3 ranks the raw values once and tests every term of the full
// factorial model with all other terms present.
func (a *RankANOVA) RunRankType3(s *sample.Sample) stats.ANOVARunResult {
	result := newRunResult(s, stats.DesignRankType3)

	f, err := design.NewFactorial(s)
	if err != nil {
		for _, factor := range stats.Factors() {
			result.SetEffect(stats.SkippedEffect(factor, stats.WarningDesignSingular, err))
		}
		return result
	}

	ranks := rank.AverageRanks(s.Values())
	for _, factor := range stats.Factors() {
		result.SetEffect(a.typeIII(factor, ranks, f.Full(), f.Without(factor), f.Term(factor).DF()))
	}
	return result
}

// Run dispatches on variant.
func (a *RankANOVA) Run(s *sample.Sample, variant stats.DesignVariant) (stats.ANOVARunResult, error) {
	switch variant {
	case stats.DesignART:
		return a.RunART(s), nil
	case stats.DesignRankType3:
		return a.RunRankType3(s), nil
	}
	return stats.ANOVARunResult{}, fmt.Errorf("unknown design variant %q", variant)
}

func newRunResult(s *sample.Sample, variant stats.DesignVariant) stats.ANOVARunResult {
	return stats.ANOVARunResult{
		Metric:        s.Metric(),
		Languages:     s.Languages(),
		Domains:       s.Domains(),
		SampleCap:     s.SampleCap(),
		DesignVariant: variant,
		N:             s.Len(),
	}
}

func flagFor(err error) stats.WarningCode {
	switch {
	case core.IsDesignSingular(err):
		return stats.WarningDesignSingular
	case core.IsInsufficientSample(err):
		return stats.WarningInsufficientSample
	}
	return stats.WarningZeroVariance
}
