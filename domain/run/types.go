package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"idstat/domain/core"
	"idstat/domain/stats"
)

// Fingerprint pins down everything that determines a unit's numeric output.
type Fingerprint struct {
	SampleHash    core.SampleHash     `json:"sample_hash"`
	SettingsHash  core.Hash           `json:"settings_hash"`
	DesignVariant stats.DesignVariant `json:"design_variant,omitempty"`
	Seed          int64               `json:"seed"`
	Fingerprint   core.Hash           `json:"fingerprint"`
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(sampleHash core.SampleHash, settings stats.Settings, variant stats.DesignVariant) Fingerprint {
	settingsHash := core.ComputeSettingsHash(map[string]interface{}{
		"alpha":      settings.Alpha,
		"min_sample": settings.MinSample,
		"sample_cap": settings.SampleCap,
	})

	data := fmt.Sprintf("sample:%s|settings:%s|variant:%s|seed:%d",
		sampleHash, settingsHash, variant, settings.Seed)
	hash := sha256.Sum256([]byte(data))

	return Fingerprint{
		SampleHash:    sampleHash,
		SettingsHash:  settingsHash,
		DesignVariant: variant,
		Seed:          settings.Seed,
		Fingerprint:   core.Hash(fmt.Sprintf("%x", hash)),
	}
}

// ANOVARecord is the persisted form of one ANOVA run.
type ANOVARecord struct {
	ID            core.RunID          `json:"id"`
	StudyID       core.StudyID        `json:"study_id"`
	UnitID        core.UnitID         `json:"unit_id"`
	Metric        string              `json:"metric"`
	Languages     []string            `json:"languages"`
	Domains       []string            `json:"domains"`
	SampleCap     int                 `json:"sample_cap"`
	DesignVariant stats.DesignVariant `json:"design_variant"`
	N             int                 `json:"n"`
	Language      stats.EffectResult  `json:"language"`
	Domain        stats.EffectResult  `json:"domain"`
	Interaction   stats.EffectResult  `json:"interaction"`
	Fingerprint   Fingerprint         `json:"fingerprint"`
	CreatedAt     core.Timestamp      `json:"created_at"`
}

// NewANOVARecord wraps result for persistence.
func NewANOVARecord(studyID core.StudyID, unitID core.UnitID, result stats.ANOVARunResult, fp Fingerprint) ANOVARecord {
	return ANOVARecord{
		ID:            core.NewRunID(),
		StudyID:       studyID,
		UnitID:        unitID,
		Metric:        result.Metric,
		Languages:     result.Languages,
		Domains:       result.Domains,
		SampleCap:     result.SampleCap,
		DesignVariant: result.DesignVariant,
		N:             result.N,
		Language:      result.Language,
		Domain:        result.Domain,
		Interaction:   result.Interaction,
		Fingerprint:   fp,
		CreatedAt:     core.Now(),
	}
}

// Result converts the record back into an analysis result.
func (r ANOVARecord) Result() stats.ANOVARunResult {
	return stats.ANOVARunResult{
		Metric:        r.Metric,
		Languages:     r.Languages,
		Domains:       r.Domains,
		SampleCap:     r.SampleCap,
		DesignVariant: r.DesignVariant,
		N:             r.N,
		Language:      r.Language,
		Domain:        r.Domain,
		Interaction:   r.Interaction,
	}
}

// DeviationRecord is the persisted form of one deviation comparison.
type DeviationRecord struct {
	ID             core.RunID       `json:"id"`
	StudyID        core.StudyID     `json:"study_id"`
	UnitID         core.UnitID      `json:"unit_id"`
	Metric         string           `json:"metric"`
	Domains        []string         `json:"domains"`
	SampleCap      int              `json:"sample_cap"`
	Comparison     stats.Comparison `json:"comparison"`
	GroupLabel     string           `json:"group_label"`
	PValue         float64          `json:"p_value"`
	AdjustedPValue float64          `json:"adjusted_p_value"`
	CliffsDelta    float64          `json:"cliffs_delta"`
	MedianDiff     float64          `json:"median_diff"`
	NObs           int              `json:"n_obs"`
	OverallMedian  float64          `json:"overall_median"`
	Significant    bool             `json:"significant"`
	Skipped        bool             `json:"skipped"`
	SkipReason     string           `json:"skip_reason,omitempty"`
	CreatedAt      core.Timestamp   `json:"created_at"`
}

// NewDeviationRecords flattens a deviation run into one record per group.
func NewDeviationRecords(studyID core.StudyID, unitID core.UnitID, result stats.DeviationRunResult) []DeviationRecord {
	now := core.Now()
	records := make([]DeviationRecord, 0, len(result.Results))
	for _, d := range result.Results {
		records = append(records, DeviationRecord{
			ID:             core.NewRunID(),
			StudyID:        studyID,
			UnitID:         unitID,
			Metric:         result.Metric,
			Domains:        result.Domains,
			SampleCap:      result.SampleCap,
			Comparison:     d.Comparison,
			GroupLabel:     d.GroupLabel,
			PValue:         d.PValue,
			AdjustedPValue: d.AdjustedPValue,
			CliffsDelta:    d.CliffsDelta,
			MedianDiff:     d.MedianDiff,
			NObs:           d.NObs,
			OverallMedian:  d.OverallMedian,
			Significant:    d.Significant,
			Skipped:        d.Skipped,
			SkipReason:     d.SkipReason,
			CreatedAt:      now,
		})
	}
	return records
}

// Stage names the part of a unit that failed.
type Stage string

const (
	StageSample    Stage = "sample"
	StageANOVA     Stage = "anova"
	StageDeviation Stage = "deviation"
	StageRecord    Stage = "record"
)

// FailureRecord keeps a failed unit visible next to the successful ones.
type FailureRecord struct {
	ID        core.RunID     `json:"id"`
	StudyID   core.StudyID   `json:"study_id"`
	UnitID    core.UnitID    `json:"unit_id"`
	Metric    string         `json:"metric"`
	Domains   []string       `json:"domains"`
	SampleCap int            `json:"sample_cap"`
	Stage     Stage          `json:"stage"`
	Error     string         `json:"error"`
	CreatedAt core.Timestamp `json:"created_at"`
}

// Filter selects stored records. Zero fields match everything.
type Filter struct {
	StudyID   core.StudyID
	Metric    string
	SampleCap int
	Limit     int
}

// Matches reports whether a record with the given keys passes the filter.
func (f Filter) Matches(studyID core.StudyID, metric string, sampleCap int) bool {
	if f.StudyID != "" && f.StudyID != studyID {
		return false
	}
	if f.Metric != "" && !strings.EqualFold(f.Metric, metric) {
		return false
	}
	if f.SampleCap != 0 && f.SampleCap != sampleCap {
		return false
	}
	return true
}
