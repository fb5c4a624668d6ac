package app

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idstat/adapters/memory"
	"idstat/adapters/rng"
	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/sample"
	"idstat/domain/stats"
	"idstat/internal/metrics"
	"idstat/internal/plan"
	"idstat/internal/testkit"
	"idstat/ports"
)

const (
	shiftedMetric = "median_id_length"
	flatMetric    = "term_entropy"
)

func population() map[string][]sample.Observation {
	shifted := testkit.DefaultMetricConfig()
	shifted.DomainShift = map[string]float64{"ml": 2}
	shifted.SharedNoise = true

	flat := testkit.DefaultMetricConfig()
	flat.Metric = flatMetric
	flat.Seed = 7

	return map[string][]sample.Observation{
		shiftedMetric: testkit.NewMetricDataGenerator(shifted).Generate(),
		flatMetric:    testkit.NewMetricDataGenerator(flat).Generate(),
	}
}

func testUnit(metric string, rep int) plan.Unit {
	cfg := testkit.DefaultMetricConfig()
	return plan.Unit{
		ID:          core.NewUnitID(rep, metric, 60, cfg.Domains),
		Repetition:  rep,
		Metric:      metric,
		Languages:   cfg.Languages,
		Domains:     cfg.Domains,
		SampleCap:   60,
		Variants:    []stats.DesignVariant{stats.DesignART, stats.DesignRankType3},
		Comparisons: []stats.Comparison{stats.ComparisonLanguageVsRest, stats.ComparisonCellPairwise},
	}
}

func newService(t *testing.T, recorder ports.RunRecorder, collector *metrics.Collector) *AnalysisService {
	t.Helper()
	svc, err := NewAnalysisService(
		testkit.NewInMemorySampleProvider(population()),
		recorder,
		rng.NewSeededAdapter(),
		stats.DefaultSettings(),
		nil,
		collector,
	)
	require.NoError(t, err)
	return svc
}

func TestRunUnitRecordsEveryStage(t *testing.T) {
	store := memory.NewRunStore()
	collector := metrics.NewCollector()
	svc := newService(t, store, collector)
	studyID := core.NewStudyID()

	result, err := svc.RunUnit(context.Background(), studyID, testUnit(shiftedMetric, 0))
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, 240, result.N)
	require.Len(t, result.ANOVA, 2)
	require.Len(t, result.Deviations, 2)

	art := result.ANOVA[0]
	assert.Equal(t, stats.DesignART, art.DesignVariant)
	assert.Greater(t, art.Language.PValue, 0.05)
	assert.Less(t, art.Domain.PValue, 0.01)

	ctx := context.Background()
	records, err := store.ListANOVA(ctx, run.Filter{StudyID: studyID})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, result.UnitID, records[0].UnitID)
	assert.Equal(t, result.Seed, records[0].Fingerprint.Seed)

	deviations, err := store.ListDeviations(ctx, run.Filter{StudyID: studyID, Metric: shiftedMetric})
	require.NoError(t, err)
	// 4 languages vs rest plus C(8,2) cell pairs
	assert.Len(t, deviations, 4+28)

	count, err := testutil.GatherAndCount(collector.Registry(), "idstat_units_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunUnitIsDeterministic(t *testing.T) {
	svc := newService(t, memory.NewRunStore(), nil)
	studyID := core.StudyID("study-fixed")
	unit := testUnit(flatMetric, 3)
	unit.SampleCap = 40

	first, err := svc.RunUnit(context.Background(), studyID, unit)
	require.NoError(t, err)
	second, err := svc.RunUnit(context.Background(), studyID, unit)
	require.NoError(t, err)

	assert.Equal(t, first.Seed, second.Seed)
	assert.Equal(t, 160, first.N)
	assert.Equal(t, first.ANOVA, second.ANOVA)
}

func TestRunUnitRecordsSamplingFailure(t *testing.T) {
	store := memory.NewRunStore()
	svc := newService(t, store, nil)
	studyID := core.NewStudyID()

	result, err := svc.RunUnit(context.Background(), studyID, testUnit("num_single_letter_ids", 0))
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, run.StageSample, result.Failures[0].Stage)
	assert.Empty(t, result.ANOVA)

	failures, err := store.ListFailures(context.Background(), run.Filter{StudyID: studyID})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "metric")
}

func TestRunUnitKeepsResultsWhenRecorderFails(t *testing.T) {
	svc := newService(t, testkit.FailingRecorder{Err: stderrors.New("disk full")}, nil)

	result, err := svc.RunUnit(context.Background(), core.NewStudyID(), testUnit(shiftedMetric, 0))
	require.NoError(t, err)
	assert.Len(t, result.ANOVA, 2)
	assert.Len(t, result.Deviations, 2)
	require.Len(t, result.Failures, 4)
	for _, f := range result.Failures {
		assert.Equal(t, run.StageRecord, f.Stage)
		assert.Contains(t, f.Error, "disk full")
	}
}

func TestRunUnitRecordsUnknownVariant(t *testing.T) {
	store := memory.NewRunStore()
	svc := newService(t, store, nil)
	unit := testUnit(shiftedMetric, 0)
	unit.Variants = []stats.DesignVariant{"anova2", stats.DesignART}
	unit.Comparisons = nil

	result, err := svc.RunUnit(context.Background(), core.NewStudyID(), unit)
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, run.StageANOVA, result.Failures[0].Stage)
	assert.Len(t, result.ANOVA, 1)
}

func TestRunUnitStopsOnCancel(t *testing.T) {
	svc := newService(t, memory.NewRunStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunUnit(ctx, core.NewStudyID(), testUnit(shiftedMetric, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAnalysisServiceValidatesSettings(t *testing.T) {
	settings := stats.DefaultSettings()
	settings.Alpha = 2
	_, err := NewAnalysisService(nil, nil, nil, settings, nil, nil)
	assert.True(t, core.IsValidationError(err))
}

func TestRunUnitSeedIgnoresStudyID(t *testing.T) {
	svc := newService(t, memory.NewRunStore(), nil)
	unit := testUnit(flatMetric, 0)
	unit.SampleCap = 40

	first, err := svc.RunUnit(context.Background(), core.NewStudyID(), unit)
	require.NoError(t, err)
	second, err := svc.RunUnit(context.Background(), core.NewStudyID(), unit)
	require.NoError(t, err)

	assert.NotEqual(t, first.StudyID, second.StudyID)
	assert.Equal(t, first.Seed, second.Seed)
	assert.Equal(t, first.ANOVA, second.ANOVA)
}
