package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/internal/container"
)

func newMetricsCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the metrics the observation source provides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return state.withSource(cmd, func(c *container.Container) error {
				metrics, err := c.Source.Metrics(cmd.Context())
				if err != nil {
					return err
				}
				for _, m := range metrics {
					fmt.Fprintln(out(cmd), m)
				}
				return nil
			})
		},
	}
}

func newPlanCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the effective study plan as YAML",
		Long: `Print the plan named by --plan, or the built-in plan, with defaults filled in.
The output is a valid --plan file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPlan(state.cfg.Analysis.PlanFile)
			if err != nil {
				return err
			}
			data, err := p.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "# %d units\n", p.Size())
			_, err = out(cmd).Write(data)
			return err
		},
	}
}
