package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"idstat/adapters/stats/anova"
	"idstat/adapters/stats/deviation"
	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/sample"
	"idstat/domain/stats"
	"idstat/internal/errors"
	"idstat/internal/metrics"
	"idstat/internal/plan"
	"idstat/ports"
)

// AnalysisService runs one unit of work end to end: draw the sample, fit
// the requested design variants, run the deviation passes and record
// everything. It holds no per-unit state and is safe for concurrent use.
type AnalysisService struct {
	provider ports.SampleProvider
	recorder ports.RunRecorder
	rngPort  ports.RNGPort
	anova    *anova.RankANOVA
	detector *deviation.Detector
	settings stats.Settings
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewAnalysisService wires the unit pipeline. logger and collector may be nil.
func NewAnalysisService(
	provider ports.SampleProvider,
	recorder ports.RunRecorder,
	rngPort ports.RNGPort,
	settings stats.Settings,
	logger *zap.Logger,
	collector *metrics.Collector,
) (*AnalysisService, error) {
	detector, err := deviation.NewDetector(settings)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		provider: provider,
		recorder: recorder,
		rngPort:  rngPort,
		anova:    anova.NewRankANOVA(),
		detector: detector,
		settings: settings,
		logger:   logger,
		metrics:  collector,
	}, nil
}

// Settings returns the analysis settings shared by every unit.
func (s *AnalysisService) Settings() stats.Settings {
	return s.settings
}

// UnitResult is everything one unit produced. Failures hold the stages that
// did not complete; the other stages' results are still present.
type UnitResult struct {
	StudyID    core.StudyID
	UnitID     core.UnitID
	Seed       int64
	N          int
	ANOVA      []stats.ANOVARunResult
	Deviations []stats.DeviationRunResult
	Failures   []run.FailureRecord
	Duration   time.Duration
}

// Failed reports whether any stage of the unit failed.
func (r UnitResult) Failed() bool {
	return len(r.Failures) > 0
}

// RunUnit executes unit and records its results. It only returns an error
// when ctx is cancelled; numeric and storage failures are captured as
// failure records in the result.
func (s *AnalysisService) RunUnit(ctx context.Context, studyID core.StudyID, unit plan.Unit) (result UnitResult, _ error) {
	start := time.Now()
	seed := s.rngPort.DeriveSeed(unit.ID.String(), s.settings.Seed)
	result = UnitResult{StudyID: studyID, UnitID: unit.ID, Seed: seed}
	log := s.logger.With(
		zap.String("unit", unit.ID.String()),
		zap.String("metric", unit.Metric),
		zap.Int("cap", unit.SampleCap),
	)

	defer func() {
		result.Duration = time.Since(start)
		s.metrics.UnitFinished(result.Failed(), result.Duration)
	}()

	smp, err := s.draw(ctx, unit, seed)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		s.fail(ctx, log, &result, unit, run.StageSample, errors.SamplingError(unit.ID.String(), err))
		return result, nil
	}
	result.N = smp.Len()
	log.Debug("sample drawn", zap.Int("n", smp.Len()), zap.String("sample_hash", smp.Hash().String()))

	unitSettings := s.settings.WithSeed(seed)
	unitSettings.SampleCap = unit.SampleCap

	for _, variant := range unit.Variants {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := s.anova.Run(smp, variant)
		if err != nil {
			s.fail(ctx, log, &result, unit, run.StageANOVA, errors.AnalysisError(unit.ID.String(), string(run.StageANOVA), err))
			continue
		}
		s.observeANOVA(log, res)
		result.ANOVA = append(result.ANOVA, res)

		record := run.NewANOVARecord(studyID, unit.ID, res, run.NewFingerprint(smp.Hash(), unitSettings, variant))
		if err := s.recorder.RecordANOVA(ctx, record); err != nil {
			s.fail(ctx, log, &result, unit, run.StageRecord, errors.StorageError("record anova", err))
		}
	}

	for _, comparison := range unit.Comparisons {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := s.detector.Run(smp, deviation.Request{Comparison: comparison})
		if err != nil {
			s.fail(ctx, log, &result, unit, run.StageDeviation, errors.AnalysisError(unit.ID.String(), string(run.StageDeviation), err))
			continue
		}
		s.observeDeviations(res)
		result.Deviations = append(result.Deviations, res)
		log.Debug("deviation pass complete",
			zap.String("comparison", string(comparison)),
			zap.Int("tested", len(res.Tested())),
			zap.Int("significant", res.SignificantCount()),
		)

		if err := s.recorder.RecordDeviations(ctx, run.NewDeviationRecords(studyID, unit.ID, res)); err != nil {
			s.fail(ctx, log, &result, unit, run.StageRecord, errors.StorageError("record deviations", err))
		}
	}

	return result, nil
}

func (s *AnalysisService) draw(ctx context.Context, unit plan.Unit, seed int64) (*sample.Sample, error) {
	obs, err := s.provider.Sample(ctx, ports.SampleRequest{
		Metric:         unit.Metric,
		Languages:      unit.Languages,
		Domains:        unit.Domains,
		PerLanguageCap: unit.SampleCap,
		Seed:           seed,
	})
	if err != nil {
		return nil, err
	}
	return sample.New(unit.Metric, unit.Languages, unit.Domains, unit.SampleCap, obs)
}

func (s *AnalysisService) observeANOVA(log *zap.Logger, res stats.ANOVARunResult) {
	for _, factor := range stats.Factors() {
		effect := res.Effect(factor)
		if effect.Skipped {
			for _, flag := range effect.Flags {
				s.metrics.FactorSkipped(string(factor), string(flag))
			}
			log.Debug("factor skipped",
				zap.String("variant", string(res.DesignVariant)),
				zap.String("factor", string(factor)),
				zap.String("reason", effect.SkipReason),
			)
			continue
		}
		if effect.Significant(s.settings.Alpha) {
			s.metrics.EffectSignificant(string(res.DesignVariant), string(factor))
		}
	}
	log.Info("anova complete",
		zap.String("variant", string(res.DesignVariant)),
		zap.Int("n", res.N),
		zap.Float64("language_p", res.Language.PValue),
		zap.Float64("domain_p", res.Domain.PValue),
		zap.Float64("interaction_p", res.Interaction.PValue),
	)
}

func (s *AnalysisService) observeDeviations(res stats.DeviationRunResult) {
	for _, r := range res.Results {
		outcome := "ns"
		switch {
		case r.Skipped:
			outcome = "skipped"
		case r.Significant:
			outcome = "significant"
		}
		s.metrics.Comparison(string(res.Comparison), outcome)
	}
}

// fail records a stage failure. A failure record that cannot be stored is
// logged and kept on the result.
func (s *AnalysisService) fail(ctx context.Context, log *zap.Logger, result *UnitResult, unit plan.Unit, stage run.Stage, err error) {
	record := run.FailureRecord{
		ID:        core.NewRunID(),
		StudyID:   result.StudyID,
		UnitID:    unit.ID,
		Metric:    unit.Metric,
		Domains:   unit.Domains,
		SampleCap: unit.SampleCap,
		Stage:     stage,
		Error:     err.Error(),
		CreatedAt: core.Now(),
	}
	result.Failures = append(result.Failures, record)
	log.Warn("unit stage failed", zap.String("stage", string(stage)), zap.String("code", errors.GetCode(err)), zap.Error(err))

	if stage == run.StageRecord {
		return
	}
	if recErr := s.recorder.RecordFailure(ctx, record); recErr != nil {
		log.Error("failed to record failure", zap.Error(recErr))
	}
}
