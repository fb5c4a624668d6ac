package deviation

import (
	"sort"

	"idstat/adapters/stats/dist"
	"idstat/adapters/stats/rank"
	"idstat/domain/stats"
)

// KruskalWallis tests whether any group's rank distribution differs. Groups
// hold values (or global ranks) keyed by label; values are ranked jointly and
// H is divided by the tie correction 1 − Σ(t³−t)/(N³−N). Epsilon squared is
// H/(N−1).
func KruskalWallis(grouping string, groups map[string][]float64) stats.OmnibusResult {
	result := stats.OmnibusResult{Grouping: grouping, PValue: 1.0}

	labels := make([]string, 0, len(groups))
	for label, values := range groups {
		if len(values) > 0 {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	var pooled []float64
	for _, label := range labels {
		pooled = append(pooled, groups[label]...)
	}
	n := len(pooled)
	result.Groups = len(labels)
	result.N = n

	if len(labels) < 2 {
		result.Skipped = true
		result.SkipReason = "fewer than two non-empty groups"
		return result
	}

	ranks := rank.AverageRanks(pooled)
	fn := float64(n)

	var h float64
	offset := 0
	for _, label := range labels {
		size := len(groups[label])
		sum := rank.Sum(ranks[offset : offset+size])
		h += sum * sum / float64(size)
		offset += size
	}
	h = 12/(fn*(fn+1))*h - 3*(fn+1)

	correction := 1 - rank.TieCorrection(pooled)/(fn*fn*fn-fn)
	if correction <= 0 {
		result.Skipped = true
		result.SkipReason = "all values tied"
		return result
	}
	h /= correction
	if h < 0 {
		h = 0
	}

	result.H = h
	result.DF = len(labels) - 1
	result.PValue = dist.NewDistributions().ChiSquarePValue(h, result.DF)
	if n > 1 {
		result.EpsilonSq = h / (fn - 1)
	}
	return result
}
