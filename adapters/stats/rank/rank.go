package rank

import (
	"sort"
)

// AverageRanks converts values to 1-based ranks over the whole slice, giving
// tied values the mean of the positions they occupy. The input is not modified.
func AverageRanks(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return []float64{}
	}

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, val := range data {
		pairs[i] = pair{value: val, index: i}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	ranks := make([]float64, n)

	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}

		groupSize := j - i
		avgRank := float64(i+1) + float64(groupSize-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}

		i = j
	}

	return ranks
}

// TieSizes returns the size of every group of equal values with more than one
// member.
func TieSizes(data []float64) []int {
	if len(data) < 2 {
		return nil
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	var sizes []int
	i := 0
	for i < len(sorted) {
		j := i + 1
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > 1 {
			sizes = append(sizes, j-i)
		}
		i = j
	}
	return sizes
}

// TieCorrection returns sum(t^3 - t) over tie groups.
func TieCorrection(data []float64) float64 {
	var sum float64
	for _, t := range TieSizes(data) {
		ft := float64(t)
		sum += ft*ft*ft - ft
	}
	return sum
}

// Select returns values at the given indices, in index order.
func Select(values []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

// Complement returns every index in [0, n) not present in indices, ascending.
func Complement(n int, indices []int) []int {
	in := make([]bool, n)
	for _, idx := range indices {
		in[idx] = true
	}
	out := make([]int, 0, n-len(indices))
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}

// Sum adds ranks.
func Sum(ranks []float64) float64 {
	var total float64
	for _, r := range ranks {
		total += r
	}
	return total
}
