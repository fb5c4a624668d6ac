package app

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"idstat/domain/core"
	"idstat/internal/plan"
)

// StudyService fans a plan's units out over a fixed worker pool.
type StudyService struct {
	analysis *AnalysisService
	workers  int
	logger   *zap.Logger
}

// NewStudyService creates a study driver. workers < 1 means one per CPU.
func NewStudyService(analysis *AnalysisService, workers int, logger *zap.Logger) *StudyService {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyService{analysis: analysis, workers: workers, logger: logger}
}

// StudyRequest names the study and the units to run.
type StudyRequest struct {
	StudyID core.StudyID
	Units   []plan.Unit
	// Progress, when set, is called after each unit from the worker that ran it.
	Progress func(done, total int, unit UnitResult)
}

// StudyResult holds every unit's result in plan order.
type StudyResult struct {
	StudyID  core.StudyID
	Units    []UnitResult
	Failed   int
	Duration time.Duration
}

// Run executes every unit. Each worker owns one contiguous chunk of the
// plan and runs it sequentially; results are concatenated in chunk order.
// A unit failure never stops its siblings. Cancelling ctx stops every worker
// before its next unit and Run returns the context error with the units that
// finished.
func (s *StudyService) Run(ctx context.Context, req StudyRequest) (*StudyResult, error) {
	start := time.Now()
	studyID := req.StudyID
	if studyID == "" {
		studyID = core.NewStudyID()
	}

	chunks := Partition(req.Units, s.workers)
	outputs := make([][]UnitResult, len(chunks))
	total := len(req.Units)
	var done atomic.Int64

	s.logger.Info("study started",
		zap.String("study", studyID.String()),
		zap.Int("units", total),
		zap.Int("workers", len(chunks)),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			results := make([]UnitResult, 0, len(chunk))
			for _, unit := range chunk {
				if err := groupCtx.Err(); err != nil {
					outputs[i] = results
					return err
				}
				res, err := s.analysis.RunUnit(groupCtx, studyID, unit)
				if err != nil {
					outputs[i] = results
					return err
				}
				results = append(results, res)
				n := int(done.Add(1))
				if req.Progress != nil {
					req.Progress(n, total, res)
				}
			}
			outputs[i] = results
			return nil
		})
	}
	err := group.Wait()

	result := &StudyResult{StudyID: studyID}
	for _, out := range outputs {
		for _, res := range out {
			if res.Failed() {
				result.Failed++
			}
		}
		result.Units = append(result.Units, out...)
	}
	result.Duration = time.Since(start)

	s.logger.Info("study finished",
		zap.String("study", studyID.String()),
		zap.Int("completed", len(result.Units)),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, err
}
