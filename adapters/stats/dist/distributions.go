package dist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides the reference distributions used by the
// rank tests.
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// FTestPValue returns P(F_{df1,df2} > f).
func (sd *StatisticalDistributions) FTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(fStatistic) {
		return 1.0
	}
	if fStatistic <= 0 {
		return 1.0
	}
	if math.IsInf(fStatistic, 1) {
		return 0.0
	}

	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return clampProbability(fDist.Survival(fStatistic))
}

// ChiSquarePValue returns P(X²_df > x).
func (sd *StatisticalDistributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 || math.IsNaN(chiSquare) || chiSquare <= 0 {
		return 1.0
	}
	if math.IsInf(chiSquare, 1) {
		return 0.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return clampProbability(chiDist.Survival(chiSquare))
}

// NormalCDF computes cumulative distribution function for standard normal
func (sd *StatisticalDistributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalTwoSidedPValue returns 2·P(Z > |z|).
func (sd *StatisticalDistributions) NormalTwoSidedPValue(z float64) float64 {
	if math.IsNaN(z) {
		return 1.0
	}
	return clampProbability(2 * distuv.UnitNormal.Survival(math.Abs(z)))
}

// MannWhitneyNormalPValue is the two-sided normal approximation of the U
// statistic with tie-corrected variance and a 0.5 continuity correction.
// tieTerm is sum(t^3 - t) over tie groups of the pooled sample.
func (sd *StatisticalDistributions) MannWhitneyNormalPValue(uStatistic float64, n1, n2 int, tieTerm float64) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 1.0
	}

	fn1, fn2 := float64(n1), float64(n2)
	n := fn1 + fn2
	meanU := fn1 * fn2 / 2.0
	variance := fn1 * fn2 / 12.0 * ((n + 1) - tieTerm/(n*(n-1)))
	if variance <= 0 {
		return 1.0
	}

	diff := math.Abs(uStatistic-meanU) - 0.5
	if diff < 0 {
		diff = 0
	}
	return sd.NormalTwoSidedPValue(diff / math.Sqrt(variance))
}

// MannWhitneyExactPValue computes the exact two-sided p-value of U for two
// untied samples by enumerating the rank-sum distribution of group 1.
func (sd *StatisticalDistributions) MannWhitneyExactPValue(uStatistic float64, n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 1.0
	}

	// U for (n1, n2) and for (n2, n1) share one null distribution; enumerate
	// subsets of the smaller group.
	small, large := n1, n2
	if small > large {
		small, large = large, small
	}
	counts := mannWhitneyCounts(small, large)
	var total float64
	for _, c := range counts {
		total += c
	}

	u := int(math.Round(uStatistic))
	maxU := n1 * n2
	if u < 0 {
		u = 0
	}
	if u > maxU {
		u = maxU
	}

	// The null distribution is symmetric about n1·n2/2.
	lower := u
	if maxU-u < lower {
		lower = maxU - u
	}
	var cum float64
	for k := 0; k <= lower; k++ {
		cum += counts[k]
	}
	return clampProbability(2 * cum / total)
}

// mannWhitneyCounts returns, for every U in [0, n1·n2], the number of ways to
// choose group 1's ranks from 1..n1+n2 such that group 1 attains U.
func mannWhitneyCounts(n1, n2 int) []float64 {
	n := n1 + n2
	maxSum := n1 * (2*n - n1 + 1) / 2

	// dp[k][s] = number of k-subsets of the ranks seen so far summing to s.
	dp := make([][]float64, n1+1)
	for k := range dp {
		dp[k] = make([]float64, maxSum+1)
	}
	dp[0][0] = 1
	for r := 1; r <= n; r++ {
		top := r
		if top > n1 {
			top = n1
		}
		for k := top; k >= 1; k-- {
			for s := maxSum; s >= r; s-- {
				dp[k][s] += dp[k-1][s-r]
			}
		}
	}

	minSum := n1 * (n1 + 1) / 2
	counts := make([]float64, n1*n2+1)
	for u := range counts {
		counts[u] = dp[n1][u+minSum]
	}
	return counts
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return 1.0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
