package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idstat/adapters/excel"
	"idstat/domain/sample"
	"idstat/domain/stats"
	"idstat/internal/plan"
	"idstat/internal/testkit"
)

const testPlan = `name: cli
metrics: [median_id_length]
languages: [c, java, python]
domain_subsets: [[db, ml]]
caps: [20]
repetitions: 2
variants: [art, rank-type3]
comparisons: [language_vs_rest]
`

// setup writes an observations workbook and a plan into a fresh working
// directory.
func setup(t *testing.T) (dir, input, planFile string) {
	t.Helper()
	dir = t.TempDir()
	testChdir(t, dir)

	cfg := testkit.DefaultMetricConfig()
	cfg.Languages = []string{"c", "java", "python"}
	cfg.DomainShift = map[string]float64{"ml": 2}
	input = filepath.Join(dir, "obs.xlsx")
	require.NoError(t, excel.ExportObservations(input, map[string][]sample.Observation{
		cfg.Metric: testkit.NewMetricDataGenerator(cfg).Generate(),
	}))

	planFile = filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planFile, []byte(testPlan), 0o644))
	return dir, input, planFile
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return buf.String(), err
}

func TestStudyCommand(t *testing.T) {
	dir, input, planFile := setup(t)
	reportPath := filepath.Join(dir, "study.html")
	exportPath := filepath.Join(dir, "runs.xlsx")

	output, err := execute(t, "study",
		"--input", input,
		"--plan", planFile,
		"--workers", "2",
		"--study-id", "cli-study",
		"--report", reportPath,
		"--export", exportPath,
	)
	require.NoError(t, err, output)
	assert.Contains(t, output, "study cli-study: 2 units, 0 failed")
	assert.Contains(t, output, "median_id_length")
	assert.FileExists(t, reportPath)
	assert.FileExists(t, exportPath)
}

func TestStudyWithBadgerThenReport(t *testing.T) {
	dir, input, planFile := setup(t)
	store := filepath.Join(dir, "runs")

	_, err := execute(t, "study", "--quiet", "--input", input, "--plan", planFile,
		"--storage", "badger", "--badger-dir", store, "--study-id", "persisted")
	require.NoError(t, err)

	output, err := execute(t, "report",
		"--storage", "badger", "--badger-dir", store, "--study-id", "persisted", "--markdown")
	require.NoError(t, err, output)
	assert.Contains(t, output, "# Study persisted")
	assert.Contains(t, output, "rank-type3")

	_, err = execute(t, "report",
		"--storage", "badger", "--badger-dir", store, "--study-id", "other")
	assert.Error(t, err)
}

func TestANOVACommand(t *testing.T) {
	_, input, _ := setup(t)

	output, err := execute(t, "anova", "median_id_length", "--input", input,
		"--languages", "c,java,python", "--domains", "db,ml", "--cap", "30", "--variant", "art")
	require.NoError(t, err, output)
	assert.Contains(t, output, "n=90")
	assert.Contains(t, output, "language")
	assert.Contains(t, output, "interaction")
}

func TestANOVACommandReproducibleFromSeed(t *testing.T) {
	_, input, _ := setup(t)
	args := []string{"anova", "median_id_length", "--input", input,
		"--languages", "c,java,python", "--domains", "db,ml", "--cap", "20", "--seed", "7"}

	first, err := execute(t, args...)
	require.NoError(t, err, first)
	second, err := execute(t, args...)
	require.NoError(t, err, second)
	assert.Equal(t, first, second)

	other, err := execute(t, append(args[:len(args)-1], "8")...)
	require.NoError(t, err, other)
	assert.NotEqual(t, first, other)
}

func TestDeviationCommand(t *testing.T) {
	_, input, _ := setup(t)

	output, err := execute(t, "deviation", "median_id_length", "--input", input,
		"--languages", "c,java,python", "--domains", "db,ml", "--cap", "30",
		"--comparison", "language_vs_rest,cell_pairwise")
	require.NoError(t, err, output)
	assert.Contains(t, output, "Kruskal-Wallis")
	assert.Contains(t, output, "java")
}

func TestNormalityCommand(t *testing.T) {
	_, input, _ := setup(t)

	output, err := execute(t, "normality", "median_id_length", "--input", input,
		"--languages", "c,java,python", "--domains", "db,ml", "--cap", "30")
	require.NoError(t, err, output)
	assert.Contains(t, output, "all")
	assert.Contains(t, output, "python")
}

func TestMetricsCommand(t *testing.T) {
	_, input, _ := setup(t)

	output, err := execute(t, "metrics", "--input", input)
	require.NoError(t, err)
	assert.Equal(t, "median_id_length\n", output)
}

func TestPlanCommandPrintsLoadablePlan(t *testing.T) {
	_, _, planFile := setup(t)

	output, err := execute(t, "plan", "--plan", planFile)
	require.NoError(t, err)
	assert.Contains(t, output, "# 2 units")

	p, err := plan.Parse([]byte(output))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "java", "python"}, p.Languages)
	assert.Equal(t, 2, p.Repetitions)
}

func TestMissingSourceFails(t *testing.T) {
	setup(t)
	_, err := execute(t, "metrics")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	_, input, _ := setup(t)
	_, err := execute(t, "metrics", "--input", input, "--alpha", "1.5")
	assert.Error(t, err)
}

func TestParseVariantsAndComparisons(t *testing.T) {
	variants, err := parseVariants([]string{"art", "rank-type3"})
	require.NoError(t, err)
	assert.Equal(t, []stats.DesignVariant{stats.DesignART, stats.DesignRankType3}, variants)

	_, err = parseVariants([]string{"type2"})
	assert.Error(t, err)

	comparisons, err := parseComparisons([]string{"cell_vs_rest"})
	require.NoError(t, err)
	assert.Equal(t, []stats.Comparison{stats.ComparisonCellVsRest}, comparisons)

	_, err = parseComparisons([]string{"everything"})
	assert.Error(t, err)
}
