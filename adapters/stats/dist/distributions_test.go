package dist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFTestPValue(t *testing.T) {
	sd := NewDistributions()
	assert.Equal(t, 1.0, sd.FTestPValue(0, 3, 10))
	assert.Equal(t, 1.0, sd.FTestPValue(2, 0, 10))
	// 95th percentile of F(1, 10)
	assert.InDelta(t, 0.05, sd.FTestPValue(4.9646, 1, 10), 1e-4)
}

func TestChiSquarePValue(t *testing.T) {
	sd := NewDistributions()
	assert.InDelta(t, 0.05, sd.ChiSquarePValue(5.9915, 2), 1e-4)
	assert.Equal(t, 1.0, sd.ChiSquarePValue(-1, 2))
}

func TestMannWhitneyCountsSymmetricAndComplete(t *testing.T) {
	counts := mannWhitneyCounts(3, 3)
	assert.Len(t, counts, 10)

	var total float64
	for u := range counts {
		total += counts[u]
		assert.Equal(t, counts[u], counts[len(counts)-1-u])
	}
	// C(6,3)
	assert.Equal(t, 20.0, total)
	assert.Equal(t, []float64{1, 1, 2, 3, 3, 3, 3, 2, 1, 1}, counts)
}

func TestMannWhitneyExactPValue(t *testing.T) {
	sd := NewDistributions()
	assert.InDelta(t, 0.1, sd.MannWhitneyExactPValue(0, 3, 3), 1e-12)
	assert.InDelta(t, 0.1, sd.MannWhitneyExactPValue(9, 3, 3), 1e-12)
	assert.Equal(t, 1.0, sd.MannWhitneyExactPValue(4.5, 3, 3))
}

func TestMannWhitneyNormalPValueCentered(t *testing.T) {
	sd := NewDistributions()
	assert.Equal(t, 1.0, sd.MannWhitneyNormalPValue(50, 10, 10, 0))
	assert.Less(t, sd.MannWhitneyNormalPValue(0, 30, 30, 0), 1e-6)
}

func TestMannWhitneyExactPValueGroupOrder(t *testing.T) {
	sd := NewDistributions()
	assert.InDelta(t, sd.MannWhitneyExactPValue(2, 3, 5), sd.MannWhitneyExactPValue(13, 5, 3), 1e-12)

	start := time.Now()
	largeFirst := sd.MannWhitneyExactPValue(0, 392, 8)
	assert.Less(t, time.Since(start), time.Second)
	assert.InDelta(t, sd.MannWhitneyExactPValue(0, 8, 392), largeFirst, 1e-18)
	assert.Greater(t, largeFirst, 0.0)
}
