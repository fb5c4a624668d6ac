package report

import (
	"math"
	"sort"
	"strings"

	mstats "github.com/montanaflynn/stats"

	"idstat/domain/run"
	"idstat/domain/stats"
)

// FactorSummary condenses one factor of an ANOVA cell across repetitions.
type FactorSummary struct {
	Factor       stats.Factor
	Runs         int
	Significant  int
	MedianP      float64
	MedianEffect float64
}

// SignificantShare is the fraction of tested runs with p below alpha.
func (s FactorSummary) SignificantShare() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Significant) / float64(s.Runs)
}

// ANOVASummary groups repetitions of the same metric, variant, cap and
// domain subset.
type ANOVASummary struct {
	Metric        string
	DesignVariant stats.DesignVariant
	SampleCap     int
	Domains       string
	Factors       []FactorSummary
}

// AggregateANOVA summarizes records by (metric, variant, cap, domains).
// Skipped effects do not count as runs. Output is sorted by metric, variant,
// descending cap and domains.
func AggregateANOVA(records []run.ANOVARecord, alpha float64) []ANOVASummary {
	type key struct {
		metric  string
		variant stats.DesignVariant
		cap     int
		domains string
	}
	grouped := make(map[key][]run.ANOVARecord)
	var keys []key
	for _, r := range records {
		k := key{r.Metric, r.DesignVariant, r.SampleCap, strings.Join(r.Domains, "+")}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.metric != b.metric {
			return a.metric < b.metric
		}
		if a.variant != b.variant {
			return a.variant < b.variant
		}
		if a.cap != b.cap {
			return a.cap > b.cap
		}
		return a.domains < b.domains
	})

	out := make([]ANOVASummary, 0, len(keys))
	for _, k := range keys {
		summary := ANOVASummary{Metric: k.metric, DesignVariant: k.variant, SampleCap: k.cap, Domains: k.domains}
		for _, factor := range stats.Factors() {
			summary.Factors = append(summary.Factors, summarizeFactor(grouped[k], factor, alpha))
		}
		out = append(out, summary)
	}
	return out
}

func summarizeFactor(records []run.ANOVARecord, factor stats.Factor, alpha float64) FactorSummary {
	fs := FactorSummary{Factor: factor}
	var ps, effects []float64
	for _, r := range records {
		e := r.Result().Effect(factor)
		if e.Skipped {
			continue
		}
		fs.Runs++
		if e.PValue < alpha {
			fs.Significant++
		}
		ps = append(ps, e.PValue)
		effects = append(effects, e.PartialEffectSize)
	}
	if fs.Runs > 0 {
		fs.MedianP, _ = mstats.Median(ps)
		fs.MedianEffect, _ = mstats.Median(effects)
	}
	return fs
}

// TopDeviations returns up to n tested deviation records ordered by
// significance first and then by |δ| descending.
func TopDeviations(records []run.DeviationRecord, n int) []run.DeviationRecord {
	tested := make([]run.DeviationRecord, 0, len(records))
	for _, d := range records {
		if !d.Skipped {
			tested = append(tested, d)
		}
	}
	sort.SliceStable(tested, func(i, j int) bool {
		a, b := tested[i], tested[j]
		if a.Significant != b.Significant {
			return a.Significant
		}
		return math.Abs(a.CliffsDelta) > math.Abs(b.CliffsDelta)
	})
	if n > 0 && len(tested) > n {
		tested = tested[:n]
	}
	return tested
}
