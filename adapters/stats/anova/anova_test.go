package anova

import (
	"testing"

	"idstat/adapters/stats/design"
	"idstat/domain/sample"
	"idstat/domain/stats"
	"idstat/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoByTwo(t *testing.T) (*sample.Sample, *design.Factorial) {
	t.Helper()
	s, err := sample.New("m", nil, nil, 0, []sample.Observation{
		{Value: 1, Language: "a", Domain: "x"},
		{Value: 2, Language: "a", Domain: "y"},
		{Value: 3, Language: "b", Domain: "x"},
		{Value: 4, Language: "b", Domain: "y"},
	})
	require.NoError(t, err)
	f, err := design.NewFactorial(s)
	require.NoError(t, err)
	return s, f
}

func TestFitFactorEqualGroupMeansGivesZeroEffect(t *testing.T) {
	_, f := twoByTwo(t)
	col := stats.AlignedColumn{Factor: stats.FactorLanguage, Ranks: []float64{1, 4, 2, 3}}

	result := NewRankANOVA().FitFactor(col, f)
	assert.False(t, result.Skipped)
	assert.Equal(t, 0.0, result.SumSq)
	assert.Equal(t, 0.0, result.PartialEffectSize)
	assert.Equal(t, 0.0, result.FValue)
	assert.Equal(t, 1.0, result.PValue)
	assert.Equal(t, 1, result.DF)
	assert.Equal(t, 2, result.DFResidual)
}

func TestFitFactorZeroVarianceColumn(t *testing.T) {
	_, f := twoByTwo(t)
	col := stats.AlignedColumn{Factor: stats.FactorDomain, Ranks: []float64{2.5, 2.5, 2.5, 2.5}}

	result := NewRankANOVA().FitFactor(col, f)
	assert.True(t, result.Skipped)
	assert.True(t, result.HasFlag(stats.WarningZeroVariance))
	assert.True(t, result.HasFlag(stats.WarningUndefinedEffectSize))
	assert.Equal(t, 0.0, result.PartialEffectSize)
	assert.Equal(t, 1.0, result.PValue)
}

func TestFitFactorExactFitIsSkipped(t *testing.T) {
	_, f := twoByTwo(t)
	col := stats.AlignedColumn{Factor: stats.FactorLanguage, Ranks: []float64{1.5, 1.5, 3.5, 3.5}}

	result := NewRankANOVA().FitFactor(col, f)
	assert.True(t, result.Skipped)
	assert.True(t, result.HasFlag(stats.WarningZeroResidualVariance))
	assert.Less(t, result.PartialEffectSize, 1.0)
}

func TestFitFactorKnownValues(t *testing.T) {
	// a:{1,2} b:{3,4}: SS = 4, RSS = 1, F = 4/(1/2) = 8
	_, f := twoByTwo(t)
	col := stats.AlignedColumn{Factor: stats.FactorLanguage, Ranks: []float64{1, 2, 3, 4}}

	result := NewRankANOVA().FitFactor(col, f)
	require.False(t, result.Skipped)
	assert.InDelta(t, 4.0, result.SumSq, 1e-9)
	assert.InDelta(t, 1.0, result.SumSqResidual, 1e-9)
	assert.InDelta(t, 8.0, result.FValue, 1e-9)
	assert.InDelta(t, 0.8, result.PartialEffectSize, 1e-9)
	assert.Greater(t, result.PValue, 0.0)
	assert.Less(t, result.PValue, 1.0)
}

func TestPartialEffectSizeBounds(t *testing.T) {
	a := NewRankANOVA()
	for seed := int64(1); seed <= 10; seed++ {
		cfg := testkit.DefaultMetricConfig()
		cfg.Seed = seed
		cfg.LogNormal = seed%2 == 0
		cfg.LanguageShift = map[string]float64{"c": float64(seed % 3)}
		s := testkit.MustSample(cfg)

		for _, variant := range []stats.DesignVariant{stats.DesignART, stats.DesignRankType3} {
			result, err := a.Run(s, variant)
			require.NoError(t, err)
			for _, factor := range stats.Factors() {
				e := result.Effect(factor)
				assert.GreaterOrEqual(t, e.PartialEffectSize, 0.0)
				assert.Less(t, e.PartialEffectSize, 1.0)
				assert.GreaterOrEqual(t, e.PValue, 0.0)
				assert.LessOrEqual(t, e.PValue, 1.0)
			}
		}
	}
}

// Every language sees the same noise draws within a domain, so the only
// structure is the domain shift.
func TestARTDomainShiftWithoutLanguageEffect(t *testing.T) {
	cfg := testkit.DefaultMetricConfig()
	cfg.DomainShift = map[string]float64{"ml": 2}
	cfg.SharedNoise = true
	s := testkit.MustSample(cfg)

	result := NewRankANOVA().RunART(s)
	assert.Equal(t, stats.DesignART, result.DesignVariant)
	assert.Equal(t, 240, result.N)

	require.False(t, result.Domain.Skipped)
	assert.Less(t, result.Domain.PValue, 0.01)
	assert.Equal(t, 1, result.Domain.DF)
	assert.Equal(t, 238, result.Domain.DFResidual)

	require.False(t, result.Language.Skipped)
	assert.Greater(t, result.Language.PValue, 0.05)
	assert.Equal(t, 3, result.Language.DF)

	require.False(t, result.Interaction.Skipped)
	assert.Greater(t, result.Interaction.PValue, 0.05)
	assert.Equal(t, 3, result.Interaction.DF)
}

func TestARTRepeatedSeededRuns(t *testing.T) {
	const runs = 20
	a := NewRankANOVA()

	var languageF float64
	falsePositives := 0
	for seed := int64(100); seed < 100+runs; seed++ {
		cfg := testkit.DefaultMetricConfig()
		cfg.DomainShift = map[string]float64{"ml": 2}
		cfg.Seed = seed
		result := a.RunART(testkit.MustSample(cfg))

		assert.Less(t, result.Domain.PValue, 0.01, "seed %d", seed)
		languageF += result.Language.FValue
		if result.Language.PValue < 0.05 {
			falsePositives++
		}
	}

	// Under no language effect F centers near 1.
	meanF := languageF / runs
	assert.Greater(t, meanF, 0.3)
	assert.Less(t, meanF, 2.0)
	assert.LessOrEqual(t, falsePositives, 4)
}

func TestRankType3SharedNoise(t *testing.T) {
	cfg := testkit.DefaultMetricConfig()
	cfg.DomainShift = map[string]float64{"ml": 2}
	cfg.SharedNoise = true
	s := testkit.MustSample(cfg)

	result := NewRankANOVA().RunRankType3(s)
	assert.Equal(t, stats.DesignRankType3, result.DesignVariant)
	assert.Less(t, result.Domain.PValue, 0.01)
	assert.Greater(t, result.Language.PValue, 0.05)
	// full model: 240 - 8 parameters
	assert.Equal(t, 232, result.Domain.DFResidual)
}

func TestRunSingleDomainSkipsEveryFactor(t *testing.T) {
	cfg := testkit.DefaultMetricConfig()
	cfg.Domains = []string{"db"}
	s := testkit.MustSample(cfg)

	result := NewRankANOVA().RunART(s)
	for _, factor := range stats.Factors() {
		e := result.Effect(factor)
		assert.True(t, e.Skipped, "factor %s", factor)
		assert.True(t, e.HasFlag(stats.WarningDesignSingular))
		assert.Equal(t, factor, e.Factor)
		assert.NotEmpty(t, e.SkipReason)
	}
}

func TestRunUnknownVariant(t *testing.T) {
	s := testkit.MustSample(testkit.DefaultMetricConfig())
	_, err := NewRankANOVA().Run(s, stats.DesignVariant("typ2"))
	assert.Error(t, err)
}
