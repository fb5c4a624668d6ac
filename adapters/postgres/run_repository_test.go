package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/stats"
)

func TestFilterClause(t *testing.T) {
	where, args := filterClause(run.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = filterClause(run.Filter{StudyID: "s1", Metric: "Term_Entropy", SampleCap: 6300, Limit: 5})
	assert.Equal(t, " WHERE study_id = $1 AND lower(metric) = lower($2) AND sample_cap = $3", where)
	assert.Equal(t, []interface{}{"s1", "Term_Entropy", 6300}, args)
	assert.Equal(t, " LIMIT 5", limitClause(run.Filter{Limit: 5}))
	assert.Empty(t, limitClause(run.Filter{}))

	where, args = filterClause(run.Filter{SampleCap: 8400})
	assert.Equal(t, " WHERE sample_cap = $1", where)
	assert.Equal(t, []interface{}{8400}, args)
}

func TestANOVARowRoundTrip(t *testing.T) {
	result := stats.ANOVARunResult{
		Metric:        "term_entropy",
		Languages:     []string{"c", "java"},
		Domains:       []string{"db", "ml"},
		SampleCap:     6300,
		DesignVariant: stats.DesignART,
		N:             120,
		Language:      stats.EffectResult{Factor: stats.FactorLanguage, FValue: 1.2, PValue: 0.3, DF: 1, DFResidual: 116, PartialEffectSize: 0.01},
		Domain:        stats.EffectResult{Factor: stats.FactorDomain, FValue: 40, PValue: 1e-8, DF: 1, DFResidual: 116, PartialEffectSize: 0.25},
		Interaction:   stats.SkippedEffect(stats.FactorInteraction, stats.WarningDesignSingular, core.NewDesignSingularError("interaction")),
	}
	record := run.NewANOVARecord("study", "r0/term_entropy/cap6300/db+ml", result, run.Fingerprint{Seed: 4})

	row, err := toANOVARow(record)
	require.NoError(t, err)
	assert.Equal(t, 1.2, row.LangFValue)
	assert.Equal(t, 0.25, row.DomainES)
	assert.Equal(t, 1.0, row.InteractP)
	assert.Equal(t, 116, row.DFResidual)

	back, err := row.record()
	require.NoError(t, err)
	assert.Equal(t, record.Result(), back.Result())
	assert.Equal(t, int64(4), back.Fingerprint.Seed)
	assert.True(t, back.Interaction.HasFlag(stats.WarningDesignSingular))
}

func TestDeviationRow(t *testing.T) {
	rec := run.DeviationRecord{
		ID:          core.NewRunID(),
		StudyID:     "study",
		Metric:      "term_entropy",
		Domains:     []string{"db"},
		Comparison:  stats.ComparisonLanguageVsRest,
		GroupLabel:  "haskell",
		PValue:      0.001,
		CliffsDelta: -0.4,
		CreatedAt:   core.Now(),
	}
	back := toDeviationRow(rec).record()
	assert.Equal(t, rec.GroupLabel, back.GroupLabel)
	assert.Equal(t, rec.Comparison, back.Comparison)
	assert.Equal(t, rec.CliffsDelta, back.CliffsDelta)
	assert.True(t, rec.CreatedAt.Time().Equal(back.CreatedAt.Time()))
}
