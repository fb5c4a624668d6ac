package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/stats"
)

func openStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func anovaRecord(study core.StudyID, metric string, sampleCap int, at time.Time) run.ANOVARecord {
	rec := run.NewANOVARecord(study, core.NewUnitID(0, metric, sampleCap, []string{"db", "ml"}), stats.ANOVARunResult{
		Metric:        metric,
		Languages:     []string{"c", "java"},
		Domains:       []string{"db", "ml"},
		SampleCap:     sampleCap,
		DesignVariant: stats.DesignART,
		N:             40,
		Language:      stats.EffectResult{Factor: stats.FactorLanguage, FValue: 0.5, PValue: 0.48, DF: 1, DFResidual: 38},
		Domain:        stats.EffectResult{Factor: stats.FactorDomain, FValue: 12, PValue: 0.001, DF: 1, DFResidual: 38},
		Interaction:   stats.EffectResult{Factor: stats.FactorInteraction, FValue: 0.1, PValue: 0.75, DF: 1, DFResidual: 38},
	}, run.Fingerprint{Seed: 42})
	rec.CreatedAt = core.NewTimestamp(at)
	return rec
}

func TestRecordAndListANOVA(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordANOVA(ctx, anovaRecord("study-a", "term_entropy", 6300, base.Add(2*time.Second))))
	require.NoError(t, store.RecordANOVA(ctx, anovaRecord("study-a", "term_entropy", 8400, base)))
	require.NoError(t, store.RecordANOVA(ctx, anovaRecord("study-a", "median_id_length", 6300, base.Add(time.Second))))
	require.NoError(t, store.RecordANOVA(ctx, anovaRecord("study-b", "term_entropy", 6300, base)))

	all, err := store.ListANOVA(ctx, run.Filter{StudyID: "study-a"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 8400, all[0].SampleCap, "oldest first")
	assert.Equal(t, "median_id_length", all[1].Metric)
	assert.Equal(t, 0.001, all[0].Domain.PValue)
	assert.Equal(t, int64(42), all[0].Fingerprint.Seed)

	filtered, err := store.ListANOVA(ctx, run.Filter{Metric: "TERM_ENTROPY", SampleCap: 6300})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	limited, err := store.ListANOVA(ctx, run.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecordDeviationsAndFailures(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	records := run.NewDeviationRecords("study-a", "unit-1", stats.DeviationRunResult{
		Metric:     "term_entropy",
		Domains:    []string{"db"},
		SampleCap:  6300,
		Comparison: stats.ComparisonLanguageVsRest,
		Results: []stats.DeviationResult{
			{GroupLabel: "c", PValue: 0.01, AdjustedPValue: 0.02, CliffsDelta: 0.3, Significant: true},
			{GroupLabel: "java", PValue: 0.5, AdjustedPValue: 0.5, CliffsDelta: -0.02},
		},
	})
	require.NoError(t, store.RecordDeviations(ctx, records))
	require.NoError(t, store.RecordDeviations(ctx, nil))

	got, err := store.ListDeviations(ctx, run.Filter{StudyID: "study-a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	labels := []string{got[0].GroupLabel, got[1].GroupLabel}
	assert.ElementsMatch(t, []string{"c", "java"}, labels)

	failure := run.FailureRecord{
		ID:        core.NewRunID(),
		StudyID:   "study-a",
		UnitID:    "unit-2",
		Metric:    "term_entropy",
		SampleCap: 6300,
		Stage:     run.StageSample,
		Error:     "metric not found",
		CreatedAt: core.Now(),
	}
	require.NoError(t, store.RecordFailure(ctx, failure))
	failures, err := store.ListFailures(ctx, run.Filter{})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, run.StageSample, failures[0].Stage)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.True(t, core.IsValidationError(err))
}

func TestOpenPersistent(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.RecordANOVA(context.Background(), anovaRecord("s", "term_entropy", 1, time.Now())))
	require.NoError(t, store.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.ListANOVA(context.Background(), run.Filter{StudyID: "s"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCancelledContext(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.RecordANOVA(ctx, anovaRecord("s", "m", 1, time.Now())), context.Canceled)
}
