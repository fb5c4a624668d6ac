package postgres

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"idstat/domain/core"
	"idstat/domain/sample"
	"idstat/ports"
)

// DefaultObservationView is the view created by the migrations: one row per
// analysed function with its language, its repository's domain and one
// column per metric.
const DefaultObservationView = "observations"

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// labelColumns are never offered as metrics.
var labelColumns = map[string]struct{}{
	"id": {}, "function_id": {}, "repo_id": {}, "language": {}, "domain": {},
}

// SampleRepository draws metric observations from Postgres. The full
// population for a (metric, languages, domains) key is read once and cached;
// the per-language cap is enforced in memory with the request's seed so a
// draw is reproducible regardless of the database's row order.
type SampleRepository struct {
	db    *sqlx.DB
	view  string
	cache *lru.Cache[string, []sample.Observation]
}

// NewSampleRepository creates a repository over view (DefaultObservationView
// when empty) caching up to cacheSize populations.
func NewSampleRepository(db *sqlx.DB, view string, cacheSize int) (*SampleRepository, error) {
	if view == "" {
		view = DefaultObservationView
	}
	if !identifierPattern.MatchString(view) {
		return nil, core.NewValidationError("sample_table", fmt.Sprintf("%q is not a plain identifier", view))
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, []sample.Observation](cacheSize)
	if err != nil {
		return nil, err
	}
	return &SampleRepository{db: db, view: view, cache: cache}, nil
}

type observationRow struct {
	Value    float64 `db:"value"`
	Language string  `db:"language"`
	Domain   string  `db:"domain"`
}

// Sample implements ports.SampleProvider
func (r *SampleRepository) Sample(ctx context.Context, req ports.SampleRequest) ([]sample.Observation, error) {
	population, err := r.population(ctx, req.Metric, req.Languages, req.Domains)
	if err != nil {
		return nil, err
	}
	return sample.CapPerLanguage(population, req.PerLanguageCap, rand.New(rand.NewSource(req.Seed))), nil
}

func (r *SampleRepository) population(ctx context.Context, metric string, languages, domains []string) ([]sample.Observation, error) {
	key := populationKey(metric, languages, domains)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	query, err := sampleQuery(r.view, metric)
	if err != nil {
		return nil, err
	}
	var rows []observationRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(languages), pq.Array(domains)); err != nil {
		return nil, fmt.Errorf("select %s observations: %w", metric, err)
	}

	population := make([]sample.Observation, 0, len(rows))
	for _, row := range rows {
		if math.IsNaN(row.Value) || math.IsInf(row.Value, 0) {
			continue
		}
		population = append(population, sample.Observation{Value: row.Value, Language: row.Language, Domain: row.Domain})
	}
	r.cache.Add(key, population)
	return population, nil
}

// Metrics implements ports.MetricCatalog by listing the view's numeric columns.
func (r *SampleRepository) Metrics(ctx context.Context) ([]string, error) {
	var columns []string
	err := r.db.SelectContext(ctx, &columns, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
		  AND data_type IN ('double precision', 'real', 'numeric', 'integer', 'bigint', 'smallint')
		ORDER BY column_name
	`, r.view)
	if err != nil {
		return nil, fmt.Errorf("list metric columns: %w", err)
	}

	metrics := columns[:0]
	for _, c := range columns {
		if _, label := labelColumns[c]; !label {
			metrics = append(metrics, c)
		}
	}
	return metrics, nil
}

// Purge drops every cached population.
func (r *SampleRepository) Purge() {
	r.cache.Purge()
}

// sampleQuery builds the population query for one metric column. Metric
// names are identifiers, not parameters, so they are validated and quoted.
func sampleQuery(view, metric string) (string, error) {
	if !identifierPattern.MatchString(metric) {
		return "", fmt.Errorf("%w: %q", core.ErrMetricNotFound, metric)
	}
	if _, label := labelColumns[metric]; label {
		return "", fmt.Errorf("%w: %q is a label column", core.ErrMetricNotFound, metric)
	}
	column := pq.QuoteIdentifier(metric)
	return fmt.Sprintf(`
		SELECT %s AS value, language, domain
		FROM %s
		WHERE language = ANY($1)
		  AND domain = ANY($2)
		  AND %s IS NOT NULL
		ORDER BY id
	`, column, pq.QuoteIdentifier(view), column), nil
}

func populationKey(metric string, languages, domains []string) string {
	l := append([]string(nil), languages...)
	d := append([]string(nil), domains...)
	sort.Strings(l)
	sort.Strings(d)
	return metric + "|" + strings.Join(l, ",") + "|" + strings.Join(d, ",")
}
