package stats

import (
	"fmt"

	"idstat/domain/core"
)

// ============================================================================
// FACTORS AND DESIGN VARIANTS
// ============================================================================

// Factor identifies one effect of the language×domain design.
type Factor string

const (
	FactorLanguage    Factor = "language"
	FactorDomain      Factor = "domain"
	FactorInteraction Factor = "interaction"
)

// Factors lists every effect in reporting order.
func Factors() []Factor {
	return []Factor{FactorLanguage, FactorDomain, FactorInteraction}
}

// ParseFactor parses a factor name.
func ParseFactor(s string) (Factor, error) {
	switch Factor(s) {
	case FactorLanguage, FactorDomain, FactorInteraction:
		return Factor(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidFactor, s)
}

// DesignVariant names the model family that produced an ANOVA run.
type DesignVariant string

const (
	// DesignART aligns and ranks once per factor, then fits that factor alone.
	DesignART DesignVariant = "art"
	// DesignRankType3 ranks the raw values once and fits the full factorial model.
	DesignRankType3 DesignVariant = "rank-type3"
)

// ============================================================================
// WARNINGS
// ============================================================================

// WarningCode represents structured warning types
type WarningCode string

const (
	WarningDesignSingular       WarningCode = "DESIGN_SINGULAR"        // Rank-deficient design matrix
	WarningZeroVariance         WarningCode = "ZERO_VARIANCE"          // Response column is constant
	WarningUndefinedEffectSize  WarningCode = "UNDEFINED_EFFECT_SIZE"  // SS(term) + SS(residual) = 0
	WarningZeroResidualVariance WarningCode = "ZERO_RESIDUAL_VARIANCE" // Model fits exactly, F undefined
	WarningInsufficientSample   WarningCode = "INSUFFICIENT_SAMPLE"    // Group below minimum size
	WarningAllTied              WarningCode = "ALL_TIED"               // Every rank identical
	WarningCorrectionEmpty      WarningCode = "CORRECTION_INPUT_EMPTY" // Nothing to adjust
)

// ============================================================================
// SETTINGS
// ============================================================================

// Settings is the explicit analysis context threaded through every call.
type Settings struct {
	SampleCap int     `json:"sample_cap" yaml:"sample_cap" validate:"gte=0"`
	Alpha     float64 `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	MinSample int     `json:"min_sample" yaml:"min_sample" validate:"gte=2"`
	Seed      int64   `json:"seed" yaml:"seed"`
}

const (
	DefaultAlpha     = 0.05
	DefaultMinSample = 10
)

// DefaultSettings returns alpha 0.05 and a minimum group size of 10.
func DefaultSettings() Settings {
	return Settings{Alpha: DefaultAlpha, MinSample: DefaultMinSample}
}

// Validate checks the numeric ranges of the settings.
func (s Settings) Validate() error {
	if !(s.Alpha > 0 && s.Alpha < 1) {
		return core.NewValidationError("alpha", fmt.Sprintf("%g is outside (0, 1)", s.Alpha))
	}
	if s.MinSample < 2 {
		return core.NewValidationError("min_sample", fmt.Sprintf("%d is below 2", s.MinSample))
	}
	if s.SampleCap < 0 {
		return core.NewValidationError("sample_cap", "must not be negative")
	}
	return nil
}

// WithSeed returns a copy carrying seed.
func (s Settings) WithSeed(seed int64) Settings {
	s.Seed = seed
	return s
}

// ============================================================================
// ALIGNED RANK TRANSFORM
// ============================================================================

// AlignedColumn holds the aligned residual and its global average rank for
// every observation of a sample, for one factor under test.
type AlignedColumn struct {
	Factor    Factor    `json:"factor"`
	Residuals []float64 `json:"residuals"`
	Ranks     []float64 `json:"ranks"`
}

// Len returns the number of observations in the column.
func (c AlignedColumn) Len() int {
	return len(c.Ranks)
}

// ============================================================================
// ANOVA RESULTS
// ============================================================================

// EffectResult is the Type III test of one factor.
// INVARIANTS:
// - 0 <= PartialEffectSize < 1
// - Skipped results carry a SkipReason and report F = 0, p = 1
type EffectResult struct {
	Factor            Factor        `json:"factor"`
	FValue            float64       `json:"f_value"`
	PValue            float64       `json:"p_value"`
	DF                int           `json:"df"`
	DFResidual        int           `json:"df_residual"`
	SumSq             float64       `json:"sum_sq"`
	SumSqResidual     float64       `json:"sum_sq_residual"`
	PartialEffectSize float64       `json:"partial_effect_size"`
	Skipped           bool          `json:"skipped"`
	SkipReason        string        `json:"skip_reason,omitempty"`
	Flags             []WarningCode `json:"flags,omitempty"`
}

// SkippedEffect builds the per-factor record of a fit that could not run.
func SkippedEffect(factor Factor, flag WarningCode, err error) EffectResult {
	return EffectResult{
		Factor:     factor,
		PValue:     1.0,
		Skipped:    true,
		SkipReason: err.Error(),
		Flags:      []WarningCode{flag},
	}
}

// HasFlag reports whether the result carries flag.
func (e EffectResult) HasFlag(flag WarningCode) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Significant reports p < alpha on a fitted result.
func (e EffectResult) Significant(alpha float64) bool {
	return !e.Skipped && e.PValue < alpha
}

// ANOVARunResult groups the three factor tests of one sample.
type ANOVARunResult struct {
	Metric        string        `json:"metric"`
	Languages     []string      `json:"languages"`
	Domains       []string      `json:"domains"`
	SampleCap     int           `json:"sample_cap"`
	DesignVariant DesignVariant `json:"design_variant"`
	N             int           `json:"n"`
	Language      EffectResult  `json:"language"`
	Domain        EffectResult  `json:"domain"`
	Interaction   EffectResult  `json:"interaction"`
}

// Effect returns the result for factor.
func (r ANOVARunResult) Effect(factor Factor) EffectResult {
	switch factor {
	case FactorLanguage:
		return r.Language
	case FactorDomain:
		return r.Domain
	default:
		return r.Interaction
	}
}

// SetEffect stores result under its factor.
func (r *ANOVARunResult) SetEffect(result EffectResult) {
	switch result.Factor {
	case FactorLanguage:
		r.Language = result
	case FactorDomain:
		r.Domain = result
	case FactorInteraction:
		r.Interaction = result
	}
}

// ============================================================================
// DEVIATION RESULTS
// ============================================================================

// Comparison names how a deviation result's groups were formed.
type Comparison string

const (
	ComparisonLanguagePairwise Comparison = "language_pairwise"
	ComparisonLanguageVsRest   Comparison = "language_vs_rest"
	ComparisonCellPairwise     Comparison = "cell_pairwise"
	ComparisonCellVsRest       Comparison = "cell_vs_rest"
)

// Pairwise reports whether the comparison contrasts two named groups.
func (c Comparison) Pairwise() bool {
	return c == ComparisonLanguagePairwise || c == ComparisonCellPairwise
}

// DeviationResult is one rank-sum comparison. For pairwise comparisons
// GroupLabel is "a vs b" and U is computed against a; for group-vs-rest U is
// computed against the group.
type DeviationResult struct {
	GroupLabel     string        `json:"group_label"`
	Comparison     Comparison    `json:"comparison"`
	PValue         float64       `json:"p_value"`
	AdjustedPValue float64       `json:"adjusted_p_value"`
	CliffsDelta    float64       `json:"cliffs_delta"`
	MedianDiff     float64       `json:"median_diff"`
	U              float64       `json:"u"`
	NObs           int           `json:"n_obs"`
	NRest          int           `json:"n_rest"`
	OverallMedian  float64       `json:"overall_median"`
	Exact          bool          `json:"exact"`
	Significant    bool          `json:"significant"`
	Skipped        bool          `json:"skipped"`
	SkipReason     string        `json:"skip_reason,omitempty"`
	Flags          []WarningCode `json:"flags,omitempty"`
}

// OmnibusResult is a Kruskal–Wallis test over every group of a comparison.
type OmnibusResult struct {
	Grouping   string  `json:"grouping"`
	H          float64 `json:"h"`
	DF         int     `json:"df"`
	PValue     float64 `json:"p_value"`
	EpsilonSq  float64 `json:"epsilon_sq"`
	Groups     int     `json:"groups"`
	N          int     `json:"n"`
	Skipped    bool    `json:"skipped"`
	SkipReason string  `json:"skip_reason,omitempty"`
}

// DeviationRunResult is one deviation pass over a sample.
type DeviationRunResult struct {
	Metric     string            `json:"metric"`
	Languages  []string          `json:"languages"`
	Domains    []string          `json:"domains"`
	SampleCap  int               `json:"sample_cap"`
	Comparison Comparison        `json:"comparison"`
	Alpha      float64           `json:"alpha"`
	Omnibus    *OmnibusResult    `json:"omnibus,omitempty"`
	Results    []DeviationResult `json:"results"`
	Flags      []WarningCode     `json:"flags,omitempty"`
}

// Tested returns the results that were not skipped.
func (r DeviationRunResult) Tested() []DeviationResult {
	out := make([]DeviationResult, 0, len(r.Results))
	for _, d := range r.Results {
		if !d.Skipped {
			out = append(out, d)
		}
	}
	return out
}

// SignificantCount counts significant results.
func (r DeviationRunResult) SignificantCount() int {
	n := 0
	for _, d := range r.Results {
		if d.Significant {
			n++
		}
	}
	return n
}
