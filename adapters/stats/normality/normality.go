package normality

import (
	"math"
	"sort"

	"idstat/adapters/stats/dist"
	"idstat/domain/sample"

	mstats "github.com/montanaflynn/stats"
)

// minK2Sample is the smallest sample the K² transforms are defined for.
const minK2Sample = 8

// Summary describes the distribution of one group of metric values.
type Summary struct {
	Group    string  `json:"group"`
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess
	K2       float64 `json:"k2"`
	PValue   float64 `json:"p_value"`
	IsNormal bool    `json:"is_normal"`
	Tested   bool    `json:"tested"`
}

// Checker runs D'Agostino–Pearson omnibus tests.
type Checker struct {
	alpha float64
	dists *dist.StatisticalDistributions
}

// NewChecker creates a checker that calls a group normal when p > alpha.
func NewChecker(alpha float64) *Checker {
	return &Checker{alpha: alpha, dists: dist.NewDistributions()}
}

// Summarize computes descriptive statistics and the K² test for data.
func (c *Checker) Summarize(group string, data []float64) Summary {
	s := Summary{Group: group, N: len(data), PValue: 1.0}
	if len(data) == 0 {
		return s
	}

	s.Mean, _ = mstats.Mean(data)
	s.Median, _ = mstats.Median(data)
	s.StdDev, _ = mstats.StandardDeviationSample(data)
	s.Q25, _ = mstats.Percentile(data, 25)
	s.Q75, _ = mstats.Percentile(data, 75)

	g1, b2, ok := moments(data)
	if !ok {
		return s
	}
	s.Skewness = g1
	s.Kurtosis = b2 - 3

	if len(data) < minK2Sample {
		return s
	}
	k2, ok := c.k2(g1, b2, float64(len(data)))
	if !ok {
		return s
	}
	s.K2 = k2
	s.PValue = c.dists.ChiSquarePValue(k2, 2)
	s.IsNormal = s.PValue > c.alpha
	s.Tested = true
	return s
}

// Check summarizes the whole sample and then every language.
func (c *Checker) Check(s *sample.Sample) []Summary {
	values := s.Values()
	summaries := []Summary{c.Summarize("all", values)}

	groups := s.GroupIndices(func(o sample.Observation) string { return o.Language })
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		idx := groups[label]
		data := make([]float64, len(idx))
		for i, k := range idx {
			data[i] = values[k]
		}
		summaries = append(summaries, c.Summarize(label, data))
	}
	return summaries
}

// moments returns the population skewness √b1 and kurtosis b2.
func moments(data []float64) (g1, b2 float64, ok bool) {
	n := float64(len(data))
	mean, _ := mstats.Mean(data)
	var m2, m3, m4 float64
	for _, x := range data {
		d := x - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 <= 0 || math.IsNaN(m2) {
		return 0, 0, false
	}
	return m3 / math.Pow(m2, 1.5), m4 / (m2 * m2), true
}

// k2 combines the D'Agostino skewness transform and the Anscombe–Glynn
// kurtosis transform into K² = Z1² + Z2², chi-squared with 2 df under
// normality.
func (c *Checker) k2(g1, b2, n float64) (float64, bool) {
	// ---- Skewness transform to Z1 ----
	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := (3 * (n*n + 27*n - 70) * (n + 1) * (n + 3)) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	if w2 <= 1 {
		return 0, false
	}
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	alpha := math.Sqrt(2 / (w2 - 1))
	ay := y / alpha
	z1 := delta * math.Log(ay+math.Sqrt(ay*ay+1))

	// ---- Kurtosis transform to Z2 ----
	e := 3 * (n - 1) / (n + 1)
	v := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	if v <= 0 {
		return 0, false
	}
	x := (b2 - e) / math.Sqrt(v)

	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	if a <= 4 {
		return 0, false
	}
	term := 1 - 2/(9*a)
	den := 1 + x*math.Sqrt(2/(a-4))
	if den <= 0 {
		return math.Inf(1), true
	}
	z2 := (term - math.Cbrt((1-2/a)/den)) / math.Sqrt(2/(9*a))

	return z1*z1 + z2*z2, true
}
