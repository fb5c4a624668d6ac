package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/internal/container"
	"idstat/internal/report"
)

type recordFilter struct {
	studyID   string
	metric    string
	sampleCap int
	limit     int
}

func (f *recordFilter) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.studyID, "study-id", "", "only records of this study")
	cmd.Flags().StringVar(&f.metric, "metric", "", "only records of this metric")
	cmd.Flags().IntVar(&f.sampleCap, "cap", 0, "only records with this sample cap")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "read at most this many records of each kind")
}

func (f *recordFilter) filter() run.Filter {
	return run.Filter{
		StudyID:   core.StudyID(f.studyID),
		Metric:    f.metric,
		SampleCap: f.sampleCap,
		Limit:     f.limit,
	}
}

func (f *recordFilter) title() string {
	if f.studyID != "" {
		return "Study " + f.studyID
	}
	return "Recorded runs"
}

func newReportCmd(state *appState) *cobra.Command {
	filter := &recordFilter{}
	var outPath string
	var top int
	var markdown bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded runs",
		Long: `Aggregate recorded ANOVA runs across repetitions and list the strongest
deviations. Needs a persistent store (--storage postgres or badger).

Example: idstat report --storage badger --badger-dir runs --study-id <id> --out report.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return state.withContainer(cmd, func(c *container.Container) error {
				doc, err := loadDocument(cmd, c, filter.filter(), filter.title(), top)
				if err != nil {
					return err
				}
				if len(doc.ANOVA)+len(doc.Deviations)+len(doc.Failures) == 0 {
					return fmt.Errorf("no records match")
				}
				switch {
				case outPath != "":
					return writeReport(outPath, doc)
				case markdown:
					_, err := out(cmd).Write(report.Markdown(doc))
					return err
				default:
					report.Write(out(cmd), doc)
					return nil
				}
			})
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write a .md or .html report instead of printing")
	cmd.Flags().IntVar(&top, "top", report.DefaultTopN, "deviations listed")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print Markdown")
	return cmd
}
