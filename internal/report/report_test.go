package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idstat/adapters/stats/normality"
	"idstat/domain/run"
	"idstat/domain/stats"
)

func TestStars(t *testing.T) {
	cases := map[float64]string{
		0.0005: "***",
		0.001:  "**",
		0.009:  "**",
		0.01:   "*",
		0.049:  "*",
		0.05:   "ns",
		0.7:    "ns",
	}
	for p, want := range cases {
		assert.Equal(t, want, Stars(p), "p=%v", p)
	}
}

func TestMagnitudeLabels(t *testing.T) {
	assert.Equal(t, "negligible", EtaLabel(0.005))
	assert.Equal(t, "small", EtaLabel(0.01))
	assert.Equal(t, "medium", EtaLabel(0.06))
	assert.Equal(t, "large", EtaLabel(0.2))

	assert.Equal(t, "negligible", DeltaLabel(-0.1))
	assert.Equal(t, "small", DeltaLabel(0.147))
	assert.Equal(t, "medium", DeltaLabel(-0.4))
	assert.Equal(t, "large", DeltaLabel(0.474))
}

func anovaRecord(metric string, cap int, langP, langES float64, skippedInteraction bool) run.ANOVARecord {
	return run.ANOVARecord{
		UnitID:        "u",
		Metric:        metric,
		SampleCap:     cap,
		Domains:       []string{"web", "game"},
		DesignVariant: stats.DesignART,
		N:             100,
		Language:      stats.EffectResult{Factor: stats.FactorLanguage, PValue: langP, PartialEffectSize: langES, DF: 3, DFResidual: 92},
		Domain:        stats.EffectResult{Factor: stats.FactorDomain, PValue: 0.5, PartialEffectSize: 0.001},
		Interaction:   stats.EffectResult{Factor: stats.FactorInteraction, PValue: 1, Skipped: skippedInteraction},
	}
}

func TestAggregateANOVA(t *testing.T) {
	records := []run.ANOVARecord{
		anovaRecord("term_entropy", 60, 0.01, 0.1, false),
		anovaRecord("term_entropy", 60, 0.03, 0.2, true),
		anovaRecord("term_entropy", 60, 0.2, 0.3, true),
		anovaRecord("term_entropy", 120, 0.001, 0.05, false),
		anovaRecord("median_id_length", 60, 0.5, 0.0, false),
	}

	summaries := AggregateANOVA(records, 0.05)
	require.Len(t, summaries, 3)
	assert.Equal(t, "median_id_length", summaries[0].Metric)
	assert.Equal(t, 120, summaries[1].SampleCap)
	assert.Equal(t, 60, summaries[2].SampleCap)
	assert.Equal(t, "web+game", summaries[2].Domains)

	lang := summaries[2].Factors[0]
	assert.Equal(t, stats.FactorLanguage, lang.Factor)
	assert.Equal(t, 3, lang.Runs)
	assert.Equal(t, 2, lang.Significant)
	assert.InDelta(t, 0.03, lang.MedianP, 1e-12)
	assert.InDelta(t, 0.2, lang.MedianEffect, 1e-12)
	assert.InDelta(t, 2.0/3.0, lang.SignificantShare(), 1e-12)

	interaction := summaries[2].Factors[2]
	assert.Equal(t, 1, interaction.Runs)
	assert.Equal(t, 0, interaction.Significant)
}

func TestTopDeviations(t *testing.T) {
	records := []run.DeviationRecord{
		{GroupLabel: "a", CliffsDelta: 0.9},
		{GroupLabel: "b", CliffsDelta: -0.3, Significant: true},
		{GroupLabel: "c", CliffsDelta: 0.6, Significant: true},
		{GroupLabel: "d", CliffsDelta: 1, Skipped: true},
	}
	top := TopDeviations(records, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].GroupLabel)
	assert.Equal(t, "b", top[1].GroupLabel)

	all := TopDeviations(records, 0)
	assert.Len(t, all, 3)
	assert.Equal(t, "a", all[2].GroupLabel)
}

func testDocument() Document {
	return Document{
		Title: "Identifier study",
		ANOVA: []run.ANOVARecord{anovaRecord("term_entropy", 60, 0.0001, 0.2, false)},
		Deviations: []run.DeviationRecord{
			{Metric: "term_entropy", GroupLabel: "java", CliffsDelta: 0.5, AdjustedPValue: 0.002, Significant: true},
		},
		Failures:  []run.FailureRecord{{UnitID: "r0/x", Metric: "x", Stage: run.StageSample, Error: "metric not found"}},
		Normality: []normality.Summary{{Group: "all", N: 3, Mean: 1}},
	}
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, testDocument())
	out := buf.String()
	assert.Contains(t, out, "Identifier study")
	assert.Contains(t, out, "term_entropy")
	assert.Contains(t, out, "***")
	assert.Contains(t, out, "large")
	assert.Contains(t, out, "metric not found")
	assert.Contains(t, out, "untested")
}

func TestMarkdownAndHTML(t *testing.T) {
	md := string(Markdown(testDocument()))
	assert.Contains(t, md, "# Identifier study")
	assert.Contains(t, md, "## Top 1 deviations")
	assert.Contains(t, md, "| java")

	page := string(HTML(testDocument()))
	assert.Contains(t, page, "<html")
	assert.Contains(t, page, "Identifier study")
	assert.Contains(t, page, "java")
}

func TestEmptyDocument(t *testing.T) {
	assert.Empty(t, Markdown(Document{}))
}

func TestTableStyles(t *testing.T) {
	records := testDocument().Deviations

	var console, md bytes.Buffer
	WriteDeviations(&console, StyleConsole, records)
	WriteDeviations(&md, StyleMarkdown, records)

	assert.NotContains(t, console.String(), "|")
	assert.Contains(t, console.String(), "java")
	assert.Contains(t, md.String(), "| java")
}
