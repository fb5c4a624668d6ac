package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"idstat/adapters/excel"
	"idstat/app"
	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/internal/container"
	"idstat/internal/plan"
	"idstat/internal/report"
)

type studyOptions struct {
	studyID   string
	reportOut string
	exportOut string
	top       int
	quiet     bool
}

func newStudyCmd(state *appState) *cobra.Command {
	opts := &studyOptions{}

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Run every unit of a study plan",
		Long: `Run every (repetition, cap, metric, domain subset) unit of the study plan.

Without --plan the built-in plan is used: nine languages, thirteen metrics,
two domain subsets, caps 10600/8400/6300 and ten repetitions.

Example: idstat study --input observations.xlsx --plan small.yaml --report study.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPlan(state.cfg.Analysis.PlanFile)
			if err != nil {
				return err
			}
			return state.withSource(cmd, func(c *container.Container) error {
				return runStudy(cmd, c, p, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.studyID, "study-id", "", "study id (default random)")
	cmd.Flags().StringVar(&opts.reportOut, "report", "", "write a .md or .html report to this path")
	cmd.Flags().StringVar(&opts.exportOut, "export", "", "write recorded runs to this .xlsx workbook")
	cmd.Flags().IntVar(&opts.top, "top", report.DefaultTopN, "deviations listed in the report")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the summary tables")
	return cmd
}

func loadPlan(path string) (plan.Plan, error) {
	if path == "" {
		return plan.Default(), nil
	}
	return plan.Load(path)
}

func runStudy(cmd *cobra.Command, c *container.Container, p plan.Plan, opts *studyOptions) error {
	log := c.Logger.Zap()
	units := p.Units()
	log.Info("study starting",
		zap.String("plan", p.Name),
		zap.Int("units", len(units)),
		zap.Int("workers", c.Config.WorkerCount()),
	)

	result, err := c.Study.Run(cmd.Context(), app.StudyRequest{
		StudyID: core.StudyID(opts.studyID),
		Units:   units,
		Progress: func(done, total int, unit app.UnitResult) {
			log.Info("unit finished",
				zap.String("unit", unit.UnitID.String()),
				zap.Int("done", done),
				zap.Int("total", total),
				zap.Bool("failed", unit.Failed()),
				zap.Duration("took", unit.Duration),
			)
		},
	})
	if result != nil {
		log.Info("study finished",
			zap.String("study_id", result.StudyID.String()),
			zap.Int("units", len(result.Units)),
			zap.Int("failed", result.Failed),
			zap.Duration("took", result.Duration),
		)
	}
	if err != nil {
		return err
	}

	doc, err := loadDocument(cmd, c, run.Filter{StudyID: result.StudyID}, "Study "+result.StudyID.String(), opts.top)
	if err != nil {
		return err
	}
	if !opts.quiet {
		report.Write(out(cmd), doc)
	}
	if opts.reportOut != "" {
		if err := writeReport(opts.reportOut, doc); err != nil {
			return err
		}
	}
	if opts.exportOut != "" {
		if err := excel.ExportRuns(opts.exportOut, doc.ANOVA, doc.Deviations, doc.Failures); err != nil {
			return err
		}
	}
	fmt.Fprintf(out(cmd), "study %s: %d units, %d failed\n", result.StudyID, len(result.Units), result.Failed)
	return nil
}

// loadDocument reads every record kind matching filter from the run store.
func loadDocument(cmd *cobra.Command, c *container.Container, filter run.Filter, title string, top int) (report.Document, error) {
	ctx := cmd.Context()
	anova, err := c.Store.ListANOVA(ctx, filter)
	if err != nil {
		return report.Document{}, err
	}
	deviations, err := c.Store.ListDeviations(ctx, filter)
	if err != nil {
		return report.Document{}, err
	}
	failures, err := c.Store.ListFailures(ctx, filter)
	if err != nil {
		return report.Document{}, err
	}
	return report.Document{
		Title:      title,
		Alpha:      c.Config.Analysis.Alpha,
		TopN:       top,
		ANOVA:      anova,
		Deviations: deviations,
		Failures:   failures,
	}, nil
}

// writeReport picks the format from the file extension.
func writeReport(path string, doc report.Document) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		data = report.HTML(doc)
	case ".md", ".markdown":
		data = report.Markdown(doc)
	default:
		return fmt.Errorf("unsupported report format %q (use .md or .html)", filepath.Ext(path))
	}
	return os.WriteFile(path, data, 0o644)
}
