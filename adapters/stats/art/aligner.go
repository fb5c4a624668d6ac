package art

import (
	"fmt"

	"idstat/adapters/stats/design"
	"idstat/adapters/stats/rank"
	"idstat/domain/sample"
	"idstat/domain/stats"
)

// Aligner performs the Aligned Rank Transform. For the factor under test it
// regresses the metric value on every other effect of the full factorial
// model, takes the residual, and ranks the residual column once over the
// whole sample.
//
//	language:    value ~ domain + language:domain
//	domain:      value ~ language + language:domain
//	interaction: value ~ language + domain
type Aligner struct{}

// NewAligner creates a new aligner
func NewAligner() *Aligner {
	return &Aligner{}
}

// Align produces the aligned column of factor. A singular excluded-effect
// design fails with core.ErrDesignSingular; no term is dropped to recover.
func (a *Aligner) Align(s *sample.Sample, factor stats.Factor) (stats.AlignedColumn, error) {
	f, err := design.NewFactorial(s)
	if err != nil {
		return stats.AlignedColumn{}, fmt.Errorf("align %s: %w", factor, err)
	}
	return a.AlignWith(f, s.Values(), factor)
}

// AlignWith aligns values against a prebuilt factorial design.
func (a *Aligner) AlignWith(f *design.Factorial, values []float64, factor stats.Factor) (stats.AlignedColumn, error) {
	fit, err := design.OLS(values, f.Without(factor)...)
	if err != nil {
		return stats.AlignedColumn{}, fmt.Errorf("align %s: %w", factor, err)
	}
	return stats.AlignedColumn{
		Factor:    factor,
		Residuals: fit.Residuals,
		Ranks:     rank.AverageRanks(fit.Residuals),
	}, nil
}

// AlignAll aligns every factor. Failures are returned per factor so that the
// remaining factors can still be tested.
func (a *Aligner) AlignAll(s *sample.Sample) (map[stats.Factor]stats.AlignedColumn, map[stats.Factor]error) {
	columns := make(map[stats.Factor]stats.AlignedColumn, 3)
	failures := make(map[stats.Factor]error)

	f, err := design.NewFactorial(s)
	if err != nil {
		for _, factor := range stats.Factors() {
			failures[factor] = fmt.Errorf("align %s: %w", factor, err)
		}
		return columns, failures
	}

	values := s.Values()
	for _, factor := range stats.Factors() {
		col, err := a.AlignWith(f, values, factor)
		if err != nil {
			failures[factor] = err
			continue
		}
		columns[factor] = col
	}
	return columns, failures
}
