package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/adapters/excel"
	"idstat/internal/container"
)

func newExportCmd(state *appState) *cobra.Command {
	filter := &recordFilter{}

	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export recorded runs to a workbook",
		Long: `Write recorded ANOVA runs, deviations and failures to an xlsx workbook with
one sheet per record kind.

Example: idstat export runs.xlsx --storage postgres --database-url $DATABASE_URL --metric term_entropy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withContainer(cmd, func(c *container.Container) error {
				doc, err := loadDocument(cmd, c, filter.filter(), "", 0)
				if err != nil {
					return err
				}
				if err := excel.ExportRuns(args[0], doc.ANOVA, doc.Deviations, doc.Failures); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "exported %d anova, %d deviation and %d failure records to %s\n",
					len(doc.ANOVA), len(doc.Deviations), len(doc.Failures), args[0])
				return nil
			})
		},
	}

	filter.register(cmd)
	return cmd
}
