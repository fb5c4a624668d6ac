package deviation

import (
	"sort"
)

// HolmBonferroni adjusts p-values for family-wise error. With p sorted
// ascending, the i-th (0-based) of m values is multiplied by m−i, capped at 1,
// and a running maximum enforces monotonicity. Adjusted values are returned in
// input order. An empty input yields an empty result.
func HolmBonferroni(pValues []float64) []float64 {
	m := len(pValues)
	adjusted := make([]float64, m)
	if m == 0 {
		return adjusted
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pValues[order[a]] < pValues[order[b]]
	})

	running := 0.0
	for i, idx := range order {
		adj := float64(m-i) * pValues[idx]
		if adj > 1 {
			adj = 1
		}
		if adj < running {
			adj = running
		}
		running = adj
		adjusted[idx] = adj
	}
	return adjusted
}
