package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"idstat/domain/sample"
)

// ImportObservations stores obs as functions of one metric. Each
// language×domain cell gets a synthetic repository named import/<lang>/<domain>
// so the observations view picks up the domain label. The whole import runs
// in one transaction and the population cache is purged afterwards.
func (r *SampleRepository) ImportObservations(ctx context.Context, metric string, obs []sample.Observation) (int, error) {
	if _, err := sampleQuery(r.view, metric); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repos := make(map[string]int)
	insert := fmt.Sprintf(`INSERT INTO functions (repo_id, lang, name, %s) VALUES ($1, $2, $3, $4)`, pq.QuoteIdentifier(metric))
	for i, o := range obs {
		cell := o.CellLabel()
		repoID, ok := repos[cell]
		if !ok {
			repoID, err = ensureImportRepo(ctx, tx, o.Language, o.Domain)
			if err != nil {
				return 0, err
			}
			repos[cell] = repoID
		}
		if _, err := tx.ExecContext(ctx, insert, repoID, o.Language, fmt.Sprintf("import_%d", i), o.Value); err != nil {
			return 0, fmt.Errorf("insert observation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	r.Purge()
	return len(obs), nil
}

func ensureImportRepo(ctx context.Context, tx *sqlx.Tx, language, domain string) (int, error) {
	name := fmt.Sprintf("import/%s/%s", language, domain)
	var id int
	err := tx.GetContext(ctx, &id, `SELECT id FROM repos WHERE name = $1 AND lang = $2 AND type = $3 LIMIT 1`, name, language, domain)
	if err == nil {
		return id, nil
	}
	if err := tx.GetContext(ctx, &id, `INSERT INTO repos (name, lang, type) VALUES ($1, $2, $3) RETURNING id`, name, language, domain); err != nil {
		return 0, fmt.Errorf("create repo %s: %w", name, err)
	}
	return id, nil
}
