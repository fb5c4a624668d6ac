package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/app"
	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/stats"
	"idstat/internal/container"
	"idstat/internal/plan"
	"idstat/internal/report"
)

// unitOptions select the sample of a single-unit command.
type unitOptions struct {
	languages []string
	domains   []string
	sampleCap int
	markdown  bool
}

func (o *unitOptions) register(cmd *cobra.Command) {
	defaults := plan.Default()
	cmd.Flags().StringSliceVarP(&o.languages, "languages", "l", defaults.Languages, "languages to compare")
	cmd.Flags().StringSliceVarP(&o.domains, "domains", "d", defaults.DomainSubsets[0], "domains to include")
	cmd.Flags().IntVar(&o.sampleCap, "cap", defaults.Caps[0], "maximum observations per language")
	cmd.Flags().BoolVar(&o.markdown, "markdown", false, "print Markdown tables")
}

func (o *unitOptions) style() report.Style {
	if o.markdown {
		return report.StyleMarkdown
	}
	return report.StyleConsole
}

// unit builds a one-unit plan for metric.
func (o *unitOptions) unit(metric string, variants []stats.DesignVariant, comparisons []stats.Comparison) (plan.Unit, error) {
	p := plan.Plan{
		Name:          "adhoc",
		Metrics:       []string{metric},
		Languages:     o.languages,
		DomainSubsets: [][]string{o.domains},
		Caps:          []int{o.sampleCap},
		Repetitions:   1,
		Variants:      variants,
		Comparisons:   comparisons,
	}
	if err := p.Validate(); err != nil {
		return plan.Unit{}, err
	}
	return p.Units()[0], nil
}

// runSingle executes one unit and returns its records from the store.
func runSingle(cmd *cobra.Command, c *container.Container, unit plan.Unit) (app.UnitResult, report.Document, error) {
	studyID := core.NewStudyID()
	result, err := c.Analysis.RunUnit(cmd.Context(), studyID, unit)
	if err != nil {
		return result, report.Document{}, err
	}
	doc, err := loadDocument(cmd, c, run.Filter{StudyID: studyID}, "", 0)
	if err != nil {
		return result, doc, err
	}
	fmt.Fprintf(out(cmd), "%s: n=%d seed=%d\n\n", unit, result.N, result.Seed)
	return result, doc, nil
}

func parseVariants(names []string) ([]stats.DesignVariant, error) {
	variants := make([]stats.DesignVariant, 0, len(names))
	for _, n := range names {
		v := stats.DesignVariant(n)
		if v != stats.DesignART && v != stats.DesignRankType3 {
			return nil, fmt.Errorf("unknown design variant %q (use %s or %s)", n, stats.DesignART, stats.DesignRankType3)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func parseComparisons(names []string) ([]stats.Comparison, error) {
	comparisons := make([]stats.Comparison, 0, len(names))
	for _, n := range names {
		c := stats.Comparison(n)
		switch c {
		case stats.ComparisonLanguagePairwise, stats.ComparisonLanguageVsRest,
			stats.ComparisonCellPairwise, stats.ComparisonCellVsRest:
			comparisons = append(comparisons, c)
		default:
			return nil, fmt.Errorf("unknown comparison %q", n)
		}
	}
	return comparisons, nil
}
