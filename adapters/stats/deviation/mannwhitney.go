package deviation

import (
	"idstat/adapters/stats/dist"
	"idstat/adapters/stats/rank"
)

const (
	// exactMaxSmaller is the largest smaller-group size tested exactly.
	exactMaxSmaller = 8
	// exactMaxTotal bounds the pooled size of an exact test.
	exactMaxTotal = 400
)

// MannWhitneyResult is a two-sided rank-sum test of x against y.
type MannWhitneyResult struct {
	U       float64 // computed against x
	PValue  float64
	Exact   bool
	AllTied bool
	N1, N2  int
}

// MannWhitney tests x against y. The inputs may be raw values or any
// order-preserving transform of them, such as global ranks; they are
// re-ranked jointly here.
func MannWhitney(x, y []float64) MannWhitneyResult {
	n1, n2 := len(x), len(y)
	result := MannWhitneyResult{N1: n1, N2: n2, PValue: 1.0}
	if n1 == 0 || n2 == 0 {
		return result
	}

	pooled := make([]float64, 0, n1+n2)
	pooled = append(pooled, x...)
	pooled = append(pooled, y...)
	ranks := rank.AverageRanks(pooled)

	r1 := rank.Sum(ranks[:n1])
	fn1 := float64(n1)
	result.U = r1 - fn1*(fn1+1)/2

	tieTerm := rank.TieCorrection(pooled)
	total := float64(n1 + n2)
	if tieTerm == total*total*total-total {
		result.AllTied = true
		return result
	}

	sd := dist.NewDistributions()
	smaller := n1
	if n2 < smaller {
		smaller = n2
	}
	if tieTerm == 0 && smaller <= exactMaxSmaller && n1+n2 <= exactMaxTotal {
		result.Exact = true
		result.PValue = sd.MannWhitneyExactPValue(result.U, n1, n2)
		return result
	}
	result.PValue = sd.MannWhitneyNormalPValue(result.U, n1, n2, tieTerm)
	return result
}

// CliffsDelta converts U (computed against group 1) into δ = 2U/(n1·n2) − 1.
func CliffsDelta(u float64, n1, n2 int) float64 {
	if n1 == 0 || n2 == 0 {
		return 0
	}
	return 2*u/float64(n1*n2) - 1
}

// CliffsDeltaPairs counts dominance directly: (#{x>y} − #{x<y}) / (n1·n2).
func CliffsDeltaPairs(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 {
		return 0
	}
	var dominance int
	for _, a := range x {
		for _, b := range y {
			switch {
			case a > b:
				dominance++
			case a < b:
				dominance--
			}
		}
	}
	return float64(dominance) / float64(len(x)*len(y))
}
