package excel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"idstat/domain/run"
	"idstat/domain/sample"
	"idstat/internal/errors"
)

const (
	anovaSheet       = "ANOVA"
	deviationSheet   = "Deviations"
	failureSheet     = "Failures"
	observationSheet = "Observations"
)

var anovaHeader = []interface{}{
	"study_id", "unit_id", "metric", "design_variant", "sample_cap", "domains", "n",
	"lang_f", "lang_p", "lang_df", "lang_es",
	"domain_f", "domain_p", "domain_df", "domain_es",
	"interact_f", "interact_p", "interact_df", "interact_es",
	"df_residual", "fingerprint",
}

var deviationHeader = []interface{}{
	"study_id", "unit_id", "metric", "comparison", "group", "sample_cap", "domains",
	"n_obs", "p_value", "adjusted_p_value", "cliffs_delta", "median_diff",
	"overall_median", "significant", "skip_reason",
}

var failureHeader = []interface{}{
	"study_id", "unit_id", "metric", "sample_cap", "domains", "stage", "error",
}

// ExportRuns writes recorded runs to an xlsx workbook with one sheet per
// record kind.
func ExportRuns(path string, anova []run.ANOVARecord, deviations []run.DeviationRecord, failures []run.FailureRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := make([][]interface{}, 0, len(anova)+1)
	rows = append(rows, anovaHeader)
	for _, r := range anova {
		rows = append(rows, []interface{}{
			string(r.StudyID), string(r.UnitID), r.Metric, string(r.DesignVariant), r.SampleCap, strings.Join(r.Domains, "+"), r.N,
			r.Language.FValue, r.Language.PValue, r.Language.DF, r.Language.PartialEffectSize,
			r.Domain.FValue, r.Domain.PValue, r.Domain.DF, r.Domain.PartialEffectSize,
			r.Interaction.FValue, r.Interaction.PValue, r.Interaction.DF, r.Interaction.PartialEffectSize,
			r.Language.DFResidual, string(r.Fingerprint.Fingerprint),
		})
	}
	if err := writeSheet(f, anovaSheet, rows); err != nil {
		return errors.ExportError(path, err)
	}

	rows = append(rows[:0], deviationHeader)
	for _, d := range deviations {
		rows = append(rows, []interface{}{
			string(d.StudyID), string(d.UnitID), d.Metric, string(d.Comparison), d.GroupLabel, d.SampleCap, strings.Join(d.Domains, "+"),
			d.NObs, d.PValue, d.AdjustedPValue, d.CliffsDelta, d.MedianDiff,
			d.OverallMedian, d.Significant, d.SkipReason,
		})
	}
	if err := writeSheet(f, deviationSheet, rows); err != nil {
		return errors.ExportError(path, err)
	}

	rows = append(rows[:0], failureHeader)
	for _, fr := range failures {
		rows = append(rows, []interface{}{
			string(fr.StudyID), string(fr.UnitID), fr.Metric, fr.SampleCap, strings.Join(fr.Domains, "+"), string(fr.Stage), fr.Error,
		})
	}
	if err := writeSheet(f, failureSheet, rows); err != nil {
		return errors.ExportError(path, err)
	}

	return save(f, path)
}

// ExportObservations writes observations in the long layout read by
// WorkbookSampleProvider. Metrics are written in sorted order.
func ExportObservations(path string, observations map[string][]sample.Observation) error {
	f := excelize.NewFile()
	defer f.Close()

	metrics := make([]string, 0, len(observations))
	for m := range observations {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	cfg := DefaultConfig(path)
	rows := [][]interface{}{{cfg.MetricColumn, cfg.LanguageColumn, cfg.DomainColumn, cfg.ValueColumn}}
	for _, m := range metrics {
		for _, o := range observations[m] {
			rows = append(rows, []interface{}{m, o.Language, o.Domain, o.Value})
		}
	}
	if err := writeSheet(f, observationSheet, rows); err != nil {
		return errors.ExportError(path, err)
	}
	return save(f, path)
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

func save(f *excelize.File, path string) error {
	if idx, err := f.GetSheetIndex("Sheet1"); err == nil && idx >= 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return errors.ExportError(path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.ExportError(path, err)
	}
	return nil
}
