package deviation

import (
	"fmt"
	"math"
	"sort"

	"idstat/adapters/stats/rank"
	"idstat/domain/core"
	"idstat/domain/sample"
	"idstat/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// Detector finds the languages or language×domain cells that deviate from
// the rest of a sample. Every comparison uses the sample's single global rank
// of the metric value.
type Detector struct {
	settings stats.Settings
}

// NewDetector creates a detector with the given alpha and minimum group size.
func NewDetector(settings stats.Settings) (*Detector, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Detector{settings: settings}, nil
}

// Settings returns the detector's settings.
func (d *Detector) Settings() stats.Settings {
	return d.settings
}

// Request selects a comparison and, optionally, the groups to test. An empty
// Groups list tests every group present in the sample.
type Request struct {
	Comparison stats.Comparison
	Groups     []string
}

// groupedSample is the sample viewed through one grouping.
type groupedSample struct {
	values        []float64
	ranks         []float64
	overallMedian float64
	indices       map[string][]int
	labels        []string
}

func groupSample(s *sample.Sample, comparison stats.Comparison) (*groupedSample, error) {
	var key func(sample.Observation) string
	switch comparison {
	case stats.ComparisonLanguagePairwise, stats.ComparisonLanguageVsRest:
		key = func(o sample.Observation) string { return o.Language }
	case stats.ComparisonCellPairwise, stats.ComparisonCellVsRest:
		key = sample.Observation.CellLabel
	default:
		return nil, fmt.Errorf("unknown comparison %q", comparison)
	}

	values := s.Values()
	g := &groupedSample{
		values:  values,
		ranks:   rank.AverageRanks(values),
		indices: s.GroupIndices(key),
	}
	for label := range g.indices {
		g.labels = append(g.labels, label)
	}
	sort.Strings(g.labels)
	if len(values) > 0 {
		g.overallMedian, _ = mstats.Median(values)
	}
	return g, nil
}

// Run executes one deviation pass and applies Holm–Bonferroni across every
// comparison that was tested. Results are ordered by |δ| descending, skipped
// comparisons last.
func (d *Detector) Run(s *sample.Sample, req Request) (stats.DeviationRunResult, error) {
	g, err := groupSample(s, req.Comparison)
	if err != nil {
		return stats.DeviationRunResult{}, err
	}

	labels := g.labels
	if len(req.Groups) > 0 {
		for _, label := range req.Groups {
			if len(g.indices[label]) == 0 {
				return stats.DeviationRunResult{}, core.NewInsufficientSampleError(label, 0, 1)
			}
		}
		labels = append([]string(nil), req.Groups...)
		sort.Strings(labels)
	}

	var results []stats.DeviationResult
	if req.Comparison.Pairwise() {
		results = d.pairwise(g, labels, req.Comparison)
	} else {
		results = d.groupVsRest(g, labels, req.Comparison)
	}

	run := stats.DeviationRunResult{
		Metric:     s.Metric(),
		Languages:  s.Languages(),
		Domains:    s.Domains(),
		SampleCap:  s.SampleCap(),
		Comparison: req.Comparison,
		Alpha:      d.settings.Alpha,
		Results:    results,
	}

	omnibusGroups := make(map[string][]float64, len(labels))
	for _, label := range labels {
		omnibusGroups[label] = rank.Select(g.ranks, g.indices[label])
	}
	omnibus := KruskalWallis(string(req.Comparison), omnibusGroups)
	run.Omnibus = &omnibus

	if !d.Correct(run.Results) {
		run.Flags = append(run.Flags, stats.WarningCorrectionEmpty)
	}
	SortByEffect(run.Results)
	return run, nil
}

func (d *Detector) pairwise(g *groupedSample, labels []string, comparison stats.Comparison) []stats.DeviationResult {
	minSize := 2
	if comparison == stats.ComparisonCellPairwise {
		minSize = d.settings.MinSample
	}

	var results []stats.DeviationResult
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			a, b := labels[i], labels[j]
			idxA, idxB := g.indices[a], g.indices[b]
			result := stats.DeviationResult{
				GroupLabel:    a + " vs " + b,
				Comparison:    comparison,
				NObs:          len(idxA),
				NRest:         len(idxB),
				OverallMedian: g.overallMedian,
			}
			if m := min(len(idxA), len(idxB)); m < minSize {
				small := smallestGroup(a, len(idxA), b, len(idxB))
				results = append(results, skipped(result, core.NewInsufficientSampleError(small, m, minSize)))
				continue
			}

			medianA, _ := mstats.Median(rank.Select(g.values, idxA))
			medianB, _ := mstats.Median(rank.Select(g.values, idxB))
			result.MedianDiff = medianA - medianB
			results = append(results, d.test(result, rank.Select(g.ranks, idxA), rank.Select(g.ranks, idxB)))
		}
	}
	return results
}

func (d *Detector) groupVsRest(g *groupedSample, labels []string, comparison stats.Comparison) []stats.DeviationResult {
	n := len(g.values)
	results := make([]stats.DeviationResult, 0, len(labels))
	for _, label := range labels {
		idx := g.indices[label]
		rest := rank.Complement(n, idx)
		result := stats.DeviationResult{
			GroupLabel:    label,
			Comparison:    comparison,
			NObs:          len(idx),
			NRest:         len(rest),
			OverallMedian: g.overallMedian,
		}
		if len(idx) < d.settings.MinSample {
			results = append(results, skipped(result, core.NewInsufficientSampleError(label, len(idx), d.settings.MinSample)))
			continue
		}
		if len(rest) < 2 {
			results = append(results, skipped(result, core.NewInsufficientSampleError("rest of "+label, len(rest), 2)))
			continue
		}

		groupMedian, _ := mstats.Median(rank.Select(g.values, idx))
		result.MedianDiff = groupMedian - g.overallMedian
		results = append(results, d.test(result, rank.Select(g.ranks, idx), rank.Select(g.ranks, rest)))
	}
	return results
}

func (d *Detector) test(result stats.DeviationResult, x, y []float64) stats.DeviationResult {
	mw := MannWhitney(x, y)
	result.U = mw.U
	result.PValue = mw.PValue
	result.Exact = mw.Exact
	result.CliffsDelta = CliffsDelta(mw.U, mw.N1, mw.N2)
	if mw.AllTied {
		result.Flags = append(result.Flags, stats.WarningAllTied)
	}
	return result
}

// Pairwise compares every pair of languages.
func (d *Detector) Pairwise(s *sample.Sample) (stats.DeviationRunResult, error) {
	return d.Run(s, Request{Comparison: stats.ComparisonLanguagePairwise})
}

// GroupVsRest compares each language against all other languages pooled.
func (d *Detector) GroupVsRest(s *sample.Sample) (stats.DeviationRunResult, error) {
	return d.Run(s, Request{Comparison: stats.ComparisonLanguageVsRest})
}

// Correct applies Holm–Bonferroni to the tested results in place and reports
// whether there was anything to correct. Skipped results keep p = 1.
func (d *Detector) Correct(results []stats.DeviationResult) bool {
	var positions []int
	var pValues []float64
	for i, r := range results {
		if r.Skipped {
			continue
		}
		positions = append(positions, i)
		pValues = append(pValues, r.PValue)
	}

	adjusted := HolmBonferroni(pValues)
	for k, i := range positions {
		results[i].AdjustedPValue = adjusted[k]
		results[i].Significant = adjusted[k] < d.settings.Alpha
	}
	return len(pValues) > 0
}

// SortByEffect orders results by |δ| descending with skipped results last;
// ties keep label order.
func SortByEffect(results []stats.DeviationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Skipped != b.Skipped {
			return !a.Skipped
		}
		da, db := math.Abs(a.CliffsDelta), math.Abs(b.CliffsDelta)
		if da != db {
			return da > db
		}
		return a.GroupLabel < b.GroupLabel
	})
}

func skipped(result stats.DeviationResult, err error) stats.DeviationResult {
	result.Skipped = true
	result.SkipReason = err.Error()
	result.PValue = 1.0
	result.AdjustedPValue = 1.0
	result.Flags = append(result.Flags, stats.WarningInsufficientSample)
	return result
}

func smallestGroup(a string, na int, b string, nb int) string {
	if na <= nb {
		return a
	}
	return b
}
