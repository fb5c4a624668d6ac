package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/sample"
	"idstat/domain/stats"
	"idstat/ports"
)

func fixtureObservations() map[string][]sample.Observation {
	obs := make(map[string][]sample.Observation)
	for i := 0; i < 10; i++ {
		for _, lang := range []string{"c", "java", "python"} {
			for _, domain := range []string{"web", "game"} {
				obs["term_entropy"] = append(obs["term_entropy"], sample.Observation{
					Value: float64(i) + 0.5, Language: lang, Domain: domain,
				})
			}
		}
	}
	obs["median_id_length"] = []sample.Observation{
		{Value: 7, Language: "c", Domain: "web"},
		{Value: 9, Language: "java", Domain: "game"},
	}
	return obs
}

func TestExportObservationsRoundTripsThroughProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.xlsx")
	require.NoError(t, ExportObservations(path, fixtureObservations()))

	p := NewWorkbookSampleProvider(DefaultConfig(path), nil)
	metrics, err := p.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"median_id_length", "term_entropy"}, metrics)

	got, err := p.Sample(context.Background(), ports.SampleRequest{
		Metric:         "term_entropy",
		Languages:      []string{"c", "java"},
		Domains:        []string{"web"},
		PerLanguageCap: 4,
		Seed:           3,
	})
	require.NoError(t, err)
	require.Len(t, got, 8)
	counts := map[string]int{}
	for _, o := range got {
		assert.Equal(t, "web", o.Domain)
		counts[o.Language]++
	}
	assert.Equal(t, map[string]int{"c": 4, "java": 4}, counts)

	again, err := p.Sample(context.Background(), ports.SampleRequest{
		Metric: "term_entropy", Languages: []string{"c", "java"}, Domains: []string{"web"}, PerLanguageCap: 4, Seed: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestProviderUnknownMetric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.xlsx")
	require.NoError(t, ExportObservations(path, fixtureObservations()))

	_, err := NewWorkbookSampleProvider(DefaultConfig(path), nil).Sample(context.Background(), ports.SampleRequest{Metric: "nope"})
	assert.ErrorIs(t, err, core.ErrMetricNotFound)
}

func TestProviderWideCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.csv")
	content := "ID,Language,Domain,term_entropy,median_id_length\n" +
		"1,c,web,1.5,7\n" +
		"2,java,web,2.5,\n" +
		"3,python,game,NaN,11\n" +
		"4,,game,3,4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewWorkbookSampleProvider(Config{FilePath: path}, nil)
	metrics, err := p.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"median_id_length", "term_entropy"}, metrics)

	got, err := p.Sample(context.Background(), ports.SampleRequest{Metric: "term_entropy"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []sample.Observation{
		{Value: 1.5, Language: "c", Domain: "web"},
		{Value: 2.5, Language: "java", Domain: "web"},
	}, got)
	assert.Equal(t, 4, p.skipped)
}

func TestObservationsRequiresLabelColumns(t *testing.T) {
	_, _, err := Observations(&ExcelData{Headers: []string{"language", "value"}}, DefaultConfig(""))
	assert.ErrorIs(t, err, core.ErrInvalidSettings)
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "missing.xlsx"), "", nil).ReadData()
	assert.Error(t, err)
}

func TestExportRunsWritesSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.xlsx")
	anova := []run.ANOVARecord{{
		StudyID: "s1", UnitID: "r0/term_entropy/cap60/web", Metric: "term_entropy",
		DesignVariant: stats.DesignART, SampleCap: 60, Domains: []string{"web"}, N: 120,
		Language: stats.EffectResult{FValue: 3.2, PValue: 0.01, DF: 3, DFResidual: 112},
	}}
	deviations := []run.DeviationRecord{
		{StudyID: "s1", Metric: "term_entropy", GroupLabel: "c", PValue: 0.2},
		{StudyID: "s1", Metric: "term_entropy", GroupLabel: "java", PValue: 0.001, Significant: true},
	}
	failures := []run.FailureRecord{{StudyID: "s1", Metric: "term_entropy", Stage: run.StageSample, Error: "boom"}}

	require.NoError(t, ExportRuns(path, anova, deviations, failures))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"ANOVA", "Deviations", "Failures"}, f.GetSheetList())

	rows, err := f.GetRows("ANOVA")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "lang_f", rows[0][7])
	assert.Equal(t, "term_entropy", rows[1][2])
	assert.Equal(t, "art", rows[1][3])

	rows, err = f.GetRows("Deviations")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "java", rows[2][4])

	rows, err = f.GetRows("Failures")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "boom", rows[1][6])
}
