package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/internal/container"
	"idstat/internal/report"
)

func newANOVACmd(state *appState) *cobra.Command {
	opts := &unitOptions{}
	var variantNames []string

	cmd := &cobra.Command{
		Use:   "anova <metric>",
		Short: "Fit the two-factor rank ANOVA for one metric",
		Long: `Draw one capped sample of the metric and test the language, domain and
interaction effects.

Example: idstat anova median_id_length --input obs.xlsx --cap 500 --variant art,rank-type3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := parseVariants(variantNames)
			if err != nil {
				return err
			}
			unit, err := opts.unit(args[0], variants, nil)
			if err != nil {
				return err
			}
			return state.withSource(cmd, func(c *container.Container) error {
				result, doc, err := runSingle(cmd, c, unit)
				if err != nil {
					return err
				}
				report.WriteANOVARecords(out(cmd), opts.style(), doc.ANOVA)
				if result.Failed() {
					report.WriteFailures(out(cmd), opts.style(), doc.Failures)
					return fmt.Errorf("unit %s failed", unit.ID)
				}
				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringSliceVar(&variantNames, "variant", []string{"art"}, "design variants: art, rank-type3")
	return cmd
}
