package migration

import (
	"context"
	"fmt"
	"strings"

	"idstat/internal/errors"
	"idstat/internal/plan"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Step is one idempotent schema statement.
type Step struct {
	Name string
	SQL  string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	metrics []string
}

// NewRunner creates a runner whose functions table carries one column per
// metric of the default study plan.
func NewRunner() *MigrationRunner {
	return NewRunnerWithMetrics(plan.Default().Metrics)
}

// NewRunnerWithMetrics creates a runner for a custom metric set.
func NewRunnerWithMetrics(metrics []string) *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		metrics: append([]string(nil), metrics...),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps, err := r.Steps()
	if err != nil {
		return err
	}
	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrapf(errors.DatabaseError(step.Name, err), "failed to run migration step %s", step.Name)
		}
	}
	return nil
}

// Steps lists the statements Run executes.
func (r *MigrationRunner) Steps() ([]Step, error) {
	metricDDL := make([]string, 0, len(r.metrics))
	metricSelect := make([]string, 0, len(r.metrics))
	for _, m := range r.metrics {
		if !isIdentifier(m) {
			return nil, errors.ConfigInvalid(fmt.Sprintf("metric %q is not a valid column name", m))
		}
		metricDDL = append(metricDDL, fmt.Sprintf("ALTER TABLE functions ADD COLUMN IF NOT EXISTS %s DOUBLE PRECISION;", m))
		metricSelect = append(metricSelect, "f."+m)
	}

	viewColumns := "f.id, f.repo_id, f.lang AS language, r.type AS domain"
	if len(metricSelect) > 0 {
		viewColumns += ", " + strings.Join(metricSelect, ", ")
	}

	steps := []Step{
		{Name: "create repos table", SQL: `
			CREATE TABLE IF NOT EXISTS repos (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				stars INTEGER,
				size INTEGER,
				lang TEXT NOT NULL,
				owner TEXT,
				type TEXT,
				description TEXT,
				path TEXT
			)`},
		{Name: "create functions table", SQL: `
			CREATE TABLE IF NOT EXISTS functions (
				id SERIAL PRIMARY KEY,
				name TEXT,
				names TEXT,
				repo_id INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
				file_name TEXT,
				lang TEXT NOT NULL,
				"order" INTEGER
			)`},
	}
	if len(metricDDL) > 0 {
		steps = append(steps, Step{Name: "add metric columns", SQL: strings.Join(metricDDL, "\n")})
	}
	steps = append(steps, []Step{
		{Name: "create observations view", SQL: fmt.Sprintf(`
			CREATE OR REPLACE VIEW observations AS
			SELECT %s
			FROM functions f
			JOIN repos r ON r.id = f.repo_id
			WHERE r.type IS NOT NULL`, viewColumns)},
		{Name: "create anova_runs table", SQL: `
			CREATE TABLE IF NOT EXISTS anova_runs (
				id TEXT PRIMARY KEY,
				study_id TEXT NOT NULL,
				unit_id TEXT NOT NULL,
				metric TEXT NOT NULL,
				languages TEXT[] NOT NULL,
				domains TEXT[] NOT NULL,
				sample_cap INTEGER NOT NULL,
				design_variant TEXT NOT NULL,
				n INTEGER NOT NULL,
				lang_fval DOUBLE PRECISION,
				lang_p DOUBLE PRECISION,
				lang_df INTEGER,
				lang_es DOUBLE PRECISION,
				domain_fval DOUBLE PRECISION,
				domain_p DOUBLE PRECISION,
				domain_df INTEGER,
				domain_es DOUBLE PRECISION,
				interact_fval DOUBLE PRECISION,
				interact_p DOUBLE PRECISION,
				interact_df INTEGER,
				interact_es DOUBLE PRECISION,
				df_residual INTEGER,
				effects JSONB NOT NULL,
				fingerprint JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`},
		{Name: "create deviation_runs table", SQL: `
			CREATE TABLE IF NOT EXISTS deviation_runs (
				id TEXT PRIMARY KEY,
				study_id TEXT NOT NULL,
				unit_id TEXT NOT NULL,
				metric TEXT NOT NULL,
				domains TEXT[] NOT NULL,
				sample_cap INTEGER NOT NULL,
				comparison TEXT NOT NULL,
				group_label TEXT NOT NULL,
				p_value DOUBLE PRECISION,
				adjusted_p_value DOUBLE PRECISION,
				cliffs_delta DOUBLE PRECISION,
				median_diff DOUBLE PRECISION,
				n_obs INTEGER,
				overall_median DOUBLE PRECISION,
				significant BOOLEAN NOT NULL DEFAULT false,
				skipped BOOLEAN NOT NULL DEFAULT false,
				skip_reason TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`},
		{Name: "create unit_failures table", SQL: `
			CREATE TABLE IF NOT EXISTS unit_failures (
				id TEXT PRIMARY KEY,
				study_id TEXT NOT NULL,
				unit_id TEXT NOT NULL,
				metric TEXT NOT NULL,
				domains TEXT[] NOT NULL,
				sample_cap INTEGER NOT NULL,
				stage TEXT NOT NULL,
				error TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`},
		{Name: "create indexes", SQL: `
			CREATE INDEX IF NOT EXISTS idx_repos_type ON repos(type);
			CREATE INDEX IF NOT EXISTS idx_functions_repo_id ON functions(repo_id);
			CREATE INDEX IF NOT EXISTS idx_functions_lang ON functions(lang);
			CREATE INDEX IF NOT EXISTS idx_anova_runs_study ON anova_runs(study_id, metric, sample_cap);
			CREATE INDEX IF NOT EXISTS idx_deviation_runs_study ON deviation_runs(study_id, metric, sample_cap);
			CREATE INDEX IF NOT EXISTS idx_unit_failures_study ON unit_failures(study_id)`},
	}...)
	return steps, nil
}

func isIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
