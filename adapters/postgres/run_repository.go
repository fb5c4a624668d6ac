package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/stats"
	"idstat/ports"
)

// RunRepository implements ports.RunStore for PostgreSQL. Every record is a
// single append; there are no cross-record transactions.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunStore {
	return &RunRepository{db: db}
}

// anovaRow flattens the three effects into the lang_/domain_/interact_
// column groups and keeps each full effect as JSON for flags and sums of squares.
type anovaRow struct {
	ID            string         `db:"id"`
	StudyID       string         `db:"study_id"`
	UnitID        string         `db:"unit_id"`
	Metric        string         `db:"metric"`
	Languages     pq.StringArray `db:"languages"`
	Domains       pq.StringArray `db:"domains"`
	SampleCap     int            `db:"sample_cap"`
	DesignVariant string         `db:"design_variant"`
	N             int            `db:"n"`

	LangFValue     float64 `db:"lang_fval"`
	LangP          float64 `db:"lang_p"`
	LangDF         int     `db:"lang_df"`
	LangES         float64 `db:"lang_es"`
	DomainFValue   float64 `db:"domain_fval"`
	DomainP        float64 `db:"domain_p"`
	DomainDF       int     `db:"domain_df"`
	DomainES       float64 `db:"domain_es"`
	InteractFValue float64 `db:"interact_fval"`
	InteractP      float64 `db:"interact_p"`
	InteractDF     int     `db:"interact_df"`
	InteractES     float64 `db:"interact_es"`
	DFResidual     int     `db:"df_residual"`

	Effects     []byte    `db:"effects"`
	Fingerprint []byte    `db:"fingerprint"`
	CreatedAt   time.Time `db:"created_at"`
}

type anovaEffects struct {
	Language    stats.EffectResult `json:"language"`
	Domain      stats.EffectResult `json:"domain"`
	Interaction stats.EffectResult `json:"interaction"`
}

func toANOVARow(r run.ANOVARecord) (anovaRow, error) {
	effects, err := json.Marshal(anovaEffects{Language: r.Language, Domain: r.Domain, Interaction: r.Interaction})
	if err != nil {
		return anovaRow{}, fmt.Errorf("encode effects: %w", err)
	}
	fp, err := json.Marshal(r.Fingerprint)
	if err != nil {
		return anovaRow{}, fmt.Errorf("encode fingerprint: %w", err)
	}
	return anovaRow{
		ID:             r.ID.String(),
		StudyID:        r.StudyID.String(),
		UnitID:         r.UnitID.String(),
		Metric:         r.Metric,
		Languages:      r.Languages,
		Domains:        r.Domains,
		SampleCap:      r.SampleCap,
		DesignVariant:  string(r.DesignVariant),
		N:              r.N,
		LangFValue:     r.Language.FValue,
		LangP:          r.Language.PValue,
		LangDF:         r.Language.DF,
		LangES:         r.Language.PartialEffectSize,
		DomainFValue:   r.Domain.FValue,
		DomainP:        r.Domain.PValue,
		DomainDF:       r.Domain.DF,
		DomainES:       r.Domain.PartialEffectSize,
		InteractFValue: r.Interaction.FValue,
		InteractP:      r.Interaction.PValue,
		InteractDF:     r.Interaction.DF,
		InteractES:     r.Interaction.PartialEffectSize,
		DFResidual:     firstPositive(r.Language.DFResidual, r.Domain.DFResidual, r.Interaction.DFResidual),
		Effects:        effects,
		Fingerprint:    fp,
		CreatedAt:      r.CreatedAt.Time(),
	}, nil
}

func (row anovaRow) record() (run.ANOVARecord, error) {
	var effects anovaEffects
	if err := json.Unmarshal(row.Effects, &effects); err != nil {
		return run.ANOVARecord{}, fmt.Errorf("decode effects of %s: %w", row.ID, err)
	}
	var fp run.Fingerprint
	if len(row.Fingerprint) > 0 {
		if err := json.Unmarshal(row.Fingerprint, &fp); err != nil {
			return run.ANOVARecord{}, fmt.Errorf("decode fingerprint of %s: %w", row.ID, err)
		}
	}
	return run.ANOVARecord{
		ID:            core.RunID(row.ID),
		StudyID:       core.StudyID(row.StudyID),
		UnitID:        core.UnitID(row.UnitID),
		Metric:        row.Metric,
		Languages:     row.Languages,
		Domains:       row.Domains,
		SampleCap:     row.SampleCap,
		DesignVariant: stats.DesignVariant(row.DesignVariant),
		N:             row.N,
		Language:      effects.Language,
		Domain:        effects.Domain,
		Interaction:   effects.Interaction,
		Fingerprint:   fp,
		CreatedAt:     core.NewTimestamp(row.CreatedAt),
	}, nil
}

type deviationRow struct {
	ID             string         `db:"id"`
	StudyID        string         `db:"study_id"`
	UnitID         string         `db:"unit_id"`
	Metric         string         `db:"metric"`
	Domains        pq.StringArray `db:"domains"`
	SampleCap      int            `db:"sample_cap"`
	Comparison     string         `db:"comparison"`
	GroupLabel     string         `db:"group_label"`
	PValue         float64        `db:"p_value"`
	AdjustedPValue float64        `db:"adjusted_p_value"`
	CliffsDelta    float64        `db:"cliffs_delta"`
	MedianDiff     float64        `db:"median_diff"`
	NObs           int            `db:"n_obs"`
	OverallMedian  float64        `db:"overall_median"`
	Significant    bool           `db:"significant"`
	Skipped        bool           `db:"skipped"`
	SkipReason     string         `db:"skip_reason"`
	CreatedAt      time.Time      `db:"created_at"`
}

func toDeviationRow(r run.DeviationRecord) deviationRow {
	return deviationRow{
		ID:             r.ID.String(),
		StudyID:        r.StudyID.String(),
		UnitID:         r.UnitID.String(),
		Metric:         r.Metric,
		Domains:        r.Domains,
		SampleCap:      r.SampleCap,
		Comparison:     string(r.Comparison),
		GroupLabel:     r.GroupLabel,
		PValue:         r.PValue,
		AdjustedPValue: r.AdjustedPValue,
		CliffsDelta:    r.CliffsDelta,
		MedianDiff:     r.MedianDiff,
		NObs:           r.NObs,
		OverallMedian:  r.OverallMedian,
		Significant:    r.Significant,
		Skipped:        r.Skipped,
		SkipReason:     r.SkipReason,
		CreatedAt:      r.CreatedAt.Time(),
	}
}

func (row deviationRow) record() run.DeviationRecord {
	return run.DeviationRecord{
		ID:             core.RunID(row.ID),
		StudyID:        core.StudyID(row.StudyID),
		UnitID:         core.UnitID(row.UnitID),
		Metric:         row.Metric,
		Domains:        row.Domains,
		SampleCap:      row.SampleCap,
		Comparison:     stats.Comparison(row.Comparison),
		GroupLabel:     row.GroupLabel,
		PValue:         row.PValue,
		AdjustedPValue: row.AdjustedPValue,
		CliffsDelta:    row.CliffsDelta,
		MedianDiff:     row.MedianDiff,
		NObs:           row.NObs,
		OverallMedian:  row.OverallMedian,
		Significant:    row.Significant,
		Skipped:        row.Skipped,
		SkipReason:     row.SkipReason,
		CreatedAt:      core.NewTimestamp(row.CreatedAt),
	}
}

type failureRow struct {
	ID        string         `db:"id"`
	StudyID   string         `db:"study_id"`
	UnitID    string         `db:"unit_id"`
	Metric    string         `db:"metric"`
	Domains   pq.StringArray `db:"domains"`
	SampleCap int            `db:"sample_cap"`
	Stage     string         `db:"stage"`
	Error     string         `db:"error"`
	CreatedAt time.Time      `db:"created_at"`
}

const insertANOVA = `
	INSERT INTO anova_runs (
		id, study_id, unit_id, metric, languages, domains, sample_cap, design_variant, n,
		lang_fval, lang_p, lang_df, lang_es,
		domain_fval, domain_p, domain_df, domain_es,
		interact_fval, interact_p, interact_df, interact_es,
		df_residual, effects, fingerprint, created_at
	) VALUES (
		:id, :study_id, :unit_id, :metric, :languages, :domains, :sample_cap, :design_variant, :n,
		:lang_fval, :lang_p, :lang_df, :lang_es,
		:domain_fval, :domain_p, :domain_df, :domain_es,
		:interact_fval, :interact_p, :interact_df, :interact_es,
		:df_residual, :effects, :fingerprint, :created_at
	)`

const insertDeviation = `
	INSERT INTO deviation_runs (
		id, study_id, unit_id, metric, domains, sample_cap, comparison, group_label,
		p_value, adjusted_p_value, cliffs_delta, median_diff, n_obs, overall_median,
		significant, skipped, skip_reason, created_at
	) VALUES (
		:id, :study_id, :unit_id, :metric, :domains, :sample_cap, :comparison, :group_label,
		:p_value, :adjusted_p_value, :cliffs_delta, :median_diff, :n_obs, :overall_median,
		:significant, :skipped, :skip_reason, :created_at
	)`

const insertFailure = `
	INSERT INTO unit_failures (id, study_id, unit_id, metric, domains, sample_cap, stage, error, created_at)
	VALUES (:id, :study_id, :unit_id, :metric, :domains, :sample_cap, :stage, :error, :created_at)`

// RecordANOVA appends one ANOVA run
func (r *RunRepository) RecordANOVA(ctx context.Context, record run.ANOVARecord) error {
	row, err := toANOVARow(record)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, insertANOVA, row); err != nil {
		return fmt.Errorf("insert anova run: %w", err)
	}
	return nil
}

// RecordDeviations appends one row per comparison in a single batch insert
func (r *RunRepository) RecordDeviations(ctx context.Context, records []run.DeviationRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]deviationRow, len(records))
	for i, rec := range records {
		rows[i] = toDeviationRow(rec)
	}
	if _, err := r.db.NamedExecContext(ctx, insertDeviation, rows); err != nil {
		return fmt.Errorf("insert deviation runs: %w", err)
	}
	return nil
}

// RecordFailure appends a failed unit stage
func (r *RunRepository) RecordFailure(ctx context.Context, record run.FailureRecord) error {
	row := failureRow{
		ID:        record.ID.String(),
		StudyID:   record.StudyID.String(),
		UnitID:    record.UnitID.String(),
		Metric:    record.Metric,
		Domains:   record.Domains,
		SampleCap: record.SampleCap,
		Stage:     string(record.Stage),
		Error:     record.Error,
		CreatedAt: record.CreatedAt.Time(),
	}
	if _, err := r.db.NamedExecContext(ctx, insertFailure, row); err != nil {
		return fmt.Errorf("insert unit failure: %w", err)
	}
	return nil
}

// ListANOVA returns ANOVA runs matching filter, oldest first
func (r *RunRepository) ListANOVA(ctx context.Context, filter run.Filter) ([]run.ANOVARecord, error) {
	where, args := filterClause(filter)
	var rows []anovaRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM anova_runs"+where+" ORDER BY created_at, id"+limitClause(filter), args...); err != nil {
		return nil, fmt.Errorf("select anova runs: %w", err)
	}
	records := make([]run.ANOVARecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListDeviations returns deviation rows matching filter, oldest first
func (r *RunRepository) ListDeviations(ctx context.Context, filter run.Filter) ([]run.DeviationRecord, error) {
	where, args := filterClause(filter)
	var rows []deviationRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM deviation_runs"+where+" ORDER BY created_at, id"+limitClause(filter), args...); err != nil {
		return nil, fmt.Errorf("select deviation runs: %w", err)
	}
	records := make([]run.DeviationRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// ListFailures returns failure rows matching filter, oldest first
func (r *RunRepository) ListFailures(ctx context.Context, filter run.Filter) ([]run.FailureRecord, error) {
	where, args := filterClause(filter)
	var rows []failureRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM unit_failures"+where+" ORDER BY created_at, id"+limitClause(filter), args...); err != nil {
		return nil, fmt.Errorf("select unit failures: %w", err)
	}
	records := make([]run.FailureRecord, len(rows))
	for i, row := range rows {
		records[i] = run.FailureRecord{
			ID:        core.RunID(row.ID),
			StudyID:   core.StudyID(row.StudyID),
			UnitID:    core.UnitID(row.UnitID),
			Metric:    row.Metric,
			Domains:   row.Domains,
			SampleCap: row.SampleCap,
			Stage:     run.Stage(row.Stage),
			Error:     row.Error,
			CreatedAt: core.NewTimestamp(row.CreatedAt),
		}
	}
	return records, nil
}

// filterClause renders the non-zero filter fields as a WHERE clause with
// positional parameters. Metric matching is case-insensitive, as in run.Filter.
func filterClause(f run.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.StudyID != "" {
		args = append(args, f.StudyID.String())
		conds = append(conds, fmt.Sprintf("study_id = $%d", len(args)))
	}
	if f.Metric != "" {
		args = append(args, f.Metric)
		conds = append(conds, fmt.Sprintf("lower(metric) = lower($%d)", len(args)))
	}
	if f.SampleCap != 0 {
		args = append(args, f.SampleCap)
		conds = append(conds, fmt.Sprintf("sample_cap = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitClause(f run.Filter) string {
	if f.Limit > 0 {
		return fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
