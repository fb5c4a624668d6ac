package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"idstat/adapters/stats/normality"
	"idstat/domain/run"
	"idstat/domain/stats"
)

// Style selects how tables are drawn.
type Style int

const (
	// StyleConsole draws borderless aligned columns.
	StyleConsole Style = iota
	// StyleMarkdown draws pipe tables.
	StyleMarkdown
)

func newTable(w io.Writer, style Style, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	switch style {
	case StyleMarkdown:
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	default:
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetColumnSeparator("")
		table.SetHeaderLine(true)
	}
	return table
}

func formatP(p float64) string {
	if p < 0.0001 {
		return "<0.0001"
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// WriteANOVASummary writes one row per aggregated cell and factor.
func WriteANOVASummary(w io.Writer, style Style, summaries []ANOVASummary) {
	table := newTable(w, style, []string{"metric", "variant", "cap", "domains", "factor", "runs", "significant", "median p", "", "median η²", "magnitude"})
	for _, s := range summaries {
		for _, f := range s.Factors {
			table.Append([]string{
				s.Metric, string(s.DesignVariant), strconv.Itoa(s.SampleCap), s.Domains, string(f.Factor),
				strconv.Itoa(f.Runs),
				fmt.Sprintf("%d (%.0f%%)", f.Significant, 100*f.SignificantShare()),
				formatP(f.MedianP), Stars(f.MedianP),
				formatFloat(f.MedianEffect), EtaLabel(f.MedianEffect),
			})
		}
	}
	table.Render()
}

// WriteANOVARecords writes every effect of every record.
func WriteANOVARecords(w io.Writer, style Style, records []run.ANOVARecord) {
	table := newTable(w, style, []string{"unit", "variant", "n", "factor", "F", "df", "p", "", "η²", "note"})
	for _, r := range records {
		res := r.Result()
		for _, factor := range stats.Factors() {
			e := res.Effect(factor)
			note := EtaLabel(e.PartialEffectSize)
			if e.Skipped {
				note = "skipped: " + e.SkipReason
			}
			table.Append([]string{
				string(r.UnitID), string(r.DesignVariant), strconv.Itoa(r.N), string(factor),
				formatFloat(e.FValue), fmt.Sprintf("%d/%d", e.DF, e.DFResidual),
				formatP(e.PValue), Stars(e.PValue), formatFloat(e.PartialEffectSize), note,
			})
		}
	}
	table.Render()
}

// WriteDeviations writes deviation records in the given order.
func WriteDeviations(w io.Writer, style Style, records []run.DeviationRecord) {
	table := newTable(w, style, []string{"metric", "cap", "comparison", "group", "n", "median diff", "δ", "magnitude", "p adj", ""})
	for _, d := range records {
		table.Append([]string{
			d.Metric, strconv.Itoa(d.SampleCap), string(d.Comparison), d.GroupLabel, strconv.Itoa(d.NObs),
			formatFloat(d.MedianDiff), formatFloat(d.CliffsDelta), DeltaLabel(d.CliffsDelta),
			formatP(d.AdjustedPValue), Stars(d.AdjustedPValue),
		})
	}
	table.Render()
}

// WriteFailures writes failed units.
func WriteFailures(w io.Writer, style Style, records []run.FailureRecord) {
	table := newTable(w, style, []string{"unit", "metric", "stage", "error"})
	for _, f := range records {
		table.Append([]string{string(f.UnitID), f.Metric, string(f.Stage), f.Error})
	}
	table.Render()
}

// WriteNormality writes distribution summaries and K² results.
func WriteNormality(w io.Writer, style Style, summaries []normality.Summary) {
	table := newTable(w, style, []string{"group", "n", "mean", "median", "sd", "q25", "q75", "skew", "kurtosis", "K²", "p", "normal"})
	for _, s := range summaries {
		k2, p, normal := "-", "-", "untested"
		if s.Tested {
			k2, p, normal = formatFloat(s.K2), formatP(s.PValue), strconv.FormatBool(s.IsNormal)
		}
		table.Append([]string{
			s.Group, strconv.Itoa(s.N), formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.StdDev),
			formatFloat(s.Q25), formatFloat(s.Q75), formatFloat(s.Skewness), formatFloat(s.Kurtosis),
			k2, p, normal,
		})
	}
	table.Render()
}
