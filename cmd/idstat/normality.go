package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/adapters/stats/normality"
	"idstat/domain/sample"
	"idstat/internal/container"
	"idstat/internal/report"
	"idstat/ports"
)

func newNormalityCmd(state *appState) *cobra.Command {
	opts := &unitOptions{}

	cmd := &cobra.Command{
		Use:   "normality <metric>",
		Short: "Summarize a metric's distribution and test it for normality",
		Long: `Describe one capped sample of the metric overall and per language, with the
D'Agostino-Pearson K² test.

Example: idstat normality median_id_length --input obs.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := opts.unit(args[0], nil, nil)
			if err != nil {
				return err
			}
			return state.withSource(cmd, func(c *container.Container) error {
				obs, err := c.Source.Sample(cmd.Context(), ports.SampleRequest{
					Metric:         unit.Metric,
					Languages:      unit.Languages,
					Domains:        unit.Domains,
					PerLanguageCap: unit.SampleCap,
					Seed:           c.Config.Analysis.Seed,
				})
				if err != nil {
					return err
				}
				smp, err := sample.New(unit.Metric, unit.Languages, unit.Domains, unit.SampleCap, obs)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "%s: n=%d\n\n", unit, smp.Len())
				summaries := normality.NewChecker(c.Config.Analysis.Alpha).Check(smp)
				report.WriteNormality(out(cmd), opts.style(), summaries)
				return nil
			})
		},
	}

	opts.register(cmd)
	return cmd
}
