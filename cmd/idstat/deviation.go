package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/internal/container"
	"idstat/internal/report"
)

func newDeviationCmd(state *appState) *cobra.Command {
	opts := &unitOptions{}
	var comparisonNames []string
	var top int

	cmd := &cobra.Command{
		Use:   "deviation <metric>",
		Short: "Find groups whose distribution deviates from the rest",
		Long: `Run Mann-Whitney tests with Cliff's delta and Holm correction for one metric.

Comparisons: language_vs_rest, language_pairwise, cell_vs_rest, cell_pairwise.

Example: idstat deviation term_entropy --input obs.xlsx --comparison language_vs_rest,cell_pairwise`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comparisons, err := parseComparisons(comparisonNames)
			if err != nil {
				return err
			}
			unit, err := opts.unit(args[0], nil, comparisons)
			if err != nil {
				return err
			}
			return state.withSource(cmd, func(c *container.Container) error {
				result, doc, err := runSingle(cmd, c, unit)
				if err != nil {
					return err
				}
				for _, pass := range result.Deviations {
					if o := pass.Omnibus; o != nil && !o.Skipped {
						fmt.Fprintf(out(cmd), "%s: Kruskal-Wallis H=%.3f df=%d p=%.4g %s ε²=%.3f\n",
							pass.Comparison, o.H, o.DF, o.PValue, report.Stars(o.PValue), o.EpsilonSq)
					}
				}
				fmt.Fprintln(out(cmd))
				report.WriteDeviations(out(cmd), opts.style(), report.TopDeviations(doc.Deviations, top))
				if result.Failed() {
					report.WriteFailures(out(cmd), opts.style(), doc.Failures)
					return fmt.Errorf("unit %s failed", unit.ID)
				}
				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringSliceVar(&comparisonNames, "comparison", []string{"language_vs_rest"}, "comparisons to run")
	cmd.Flags().IntVar(&top, "top", 0, "only list the top N results (0 = all)")
	return cmd
}
