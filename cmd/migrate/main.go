package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"idstat/adapters/excel"
	"idstat/adapters/postgres"
	"idstat/domain/sample"
	"idstat/internal"
	"idstat/internal/migration"
	"idstat/internal/plan"
)

const usage = "Usage: migrate <database_url> [observations.xlsx|observations.csv]"

func main() {
	_ = godotenv.Load()
	logger := internal.NewDefaultLogger()
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	databaseURL := os.Args[1]
	var inputFile string
	if len(os.Args) > 2 {
		inputFile = os.Args[2]
	}

	if err := run(context.Background(), logger, databaseURL, inputFile); err != nil {
		logger.Error("migration failed: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *internal.Logger, databaseURL, inputFile string) error {
	var population map[string][]sample.Observation
	metrics := plan.Default().Metrics
	if inputFile != "" {
		var err error
		population, err = readObservations(logger, inputFile)
		if err != nil {
			return err
		}
		metrics = mergeMetrics(metrics, population)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	runner := migration.NewRunnerWithMetrics(metrics)
	logger.Info("running schema migrations v%s for %d metrics", runner.Version(), len(metrics))
	if err := runner.Run(ctx, db); err != nil {
		return err
	}

	if len(population) == 0 {
		logger.Info("schema is up to date")
		return nil
	}

	repo, err := postgres.NewSampleRepository(db, postgres.DefaultObservationView, 1)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(population))
	for m := range population {
		names = append(names, m)
	}
	sort.Strings(names)

	total := 0
	for _, m := range names {
		n, err := repo.ImportObservations(ctx, m, population[m])
		if err != nil {
			return fmt.Errorf("import %s: %w", m, err)
		}
		logger.Info("imported %d observations of %s", n, m)
		total += n
	}
	logger.Info("imported %d observations from %s", total, inputFile)
	return nil
}

func readObservations(logger *internal.Logger, path string) (map[string][]sample.Observation, error) {
	data, err := excel.NewDataReader(path, "", logger.Zap()).ReadData()
	if err != nil {
		return nil, err
	}
	population, skipped, err := excel.Observations(data, excel.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("skipped %d rows of %s with a missing label or non-numeric value", skipped, path)
	}
	return population, nil
}

// mergeMetrics adds the file's metrics to the default columns so every
// imported metric has a column.
func mergeMetrics(defaults []string, population map[string][]sample.Observation) []string {
	seen := make(map[string]bool, len(defaults))
	merged := append([]string(nil), defaults...)
	for _, m := range defaults {
		seen[m] = true
	}
	var extra []string
	for m := range population {
		if !seen[m] {
			extra = append(extra, m)
		}
	}
	sort.Strings(extra)
	return append(merged, extra...)
}
