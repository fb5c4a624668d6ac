package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idstat/domain/core"
	"idstat/domain/sample"
	"idstat/internal/testkit"
	"idstat/ports"
)

func TestSampleQuery(t *testing.T) {
	query, err := sampleQuery(DefaultObservationView, "term_entropy")
	require.NoError(t, err)
	assert.Contains(t, query, `SELECT "term_entropy" AS value, language, domain`)
	assert.Contains(t, query, `FROM "observations"`)
	assert.Contains(t, query, "language = ANY($1)")
	assert.Contains(t, query, "domain = ANY($2)")
	assert.Contains(t, query, "ORDER BY id")
}

func TestSampleQueryRejectsUnsafeMetric(t *testing.T) {
	for _, metric := range []string{"", "term_entropy; DROP TABLE repos", "Term", "language", "id"} {
		_, err := sampleQuery(DefaultObservationView, metric)
		assert.ErrorIs(t, err, core.ErrMetricNotFound, metric)
	}
}

func TestNewSampleRepositoryValidatesView(t *testing.T) {
	_, err := NewSampleRepository(nil, "obs; --", 4)
	assert.True(t, core.IsValidationError(err))

	repo, err := NewSampleRepository(nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultObservationView, repo.view)
}

func TestPopulationKeyIgnoresOrder(t *testing.T) {
	a := populationKey("term_entropy", []string{"java", "c"}, []string{"ml", "db"})
	b := populationKey("term_entropy", []string{"c", "java"}, []string{"db", "ml"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, populationKey("median_id_length", []string{"c", "java"}, []string{"db", "ml"}))
}

func TestSampleServesCachedPopulation(t *testing.T) {
	repo, err := NewSampleRepository(nil, "", 4)
	require.NoError(t, err)

	cfg := testkit.DefaultMetricConfig()
	population := testkit.NewMetricDataGenerator(cfg).Generate()
	repo.cache.Add(populationKey(cfg.Metric, cfg.Languages, cfg.Domains), population)

	req := ports.SampleRequest{
		Metric:         cfg.Metric,
		Languages:      cfg.Languages,
		Domains:        cfg.Domains,
		PerLanguageCap: 25,
		Seed:           9,
	}
	first, err := repo.Sample(context.Background(), req)
	require.NoError(t, err)
	second, err := repo.Sample(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, first, 4*25)
	assert.Equal(t, first, second)

	s, err := sample.New(cfg.Metric, cfg.Languages, cfg.Domains, 25, first)
	require.NoError(t, err)
	for _, n := range s.CountsByLanguage() {
		assert.Equal(t, 25, n)
	}

	repo.Purge()
	assert.Equal(t, 0, repo.cache.Len())
}
