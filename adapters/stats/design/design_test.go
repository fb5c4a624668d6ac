package design

import (
	"testing"

	"idstat/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumCodingRows(t *testing.T) {
	c := SumCoding([]string{"c", "go", "java"})
	require.Equal(t, 2, c.Columns())

	row, err := c.Row("c")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, row)

	row, err = c.Row("java")
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1}, row)

	_, err = c.Row("rust")
	assert.Error(t, err)
}

func TestSumCodingColumnsSumToZeroOverLevels(t *testing.T) {
	levels := []string{"a", "b", "c", "d"}
	term, err := MainEffect("f", levels, levels)
	require.NoError(t, err)
	for _, col := range term.Columns {
		var sum float64
		for _, v := range col {
			sum += v
		}
		assert.Zero(t, sum)
	}
}

func TestMainEffectSingleLevelIsSingular(t *testing.T) {
	_, err := MainEffect("domain", []string{"db", "db"}, []string{"db"})
	assert.True(t, core.IsDesignSingular(err))
}

func TestInteractionColumnCount(t *testing.T) {
	labelsA := []string{"a", "b", "c", "a", "b", "c"}
	labelsB := []string{"x", "x", "x", "y", "y", "y"}
	a, err := MainEffect("A", labelsA, []string{"a", "b", "c"})
	require.NoError(t, err)
	b, err := MainEffect("B", labelsB, []string{"x", "y"})
	require.NoError(t, err)

	ab := Interaction("A:B", a, b)
	assert.Equal(t, 2, ab.DF())
	// row 0 is (a, x): a codes [1 0], x codes [1]
	assert.Equal(t, 1.0, ab.Columns[0][0])
	assert.Equal(t, 0.0, ab.Columns[1][0])
	// row 5 is (c, y): c codes [-1 -1], y codes [-1]
	assert.Equal(t, 1.0, ab.Columns[0][5])
	assert.Equal(t, 1.0, ab.Columns[1][5])
}

func TestOLSRecoversLine(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2 + 3*x[i]
	}
	fit, err := OLS(y, Intercept(len(y)), Term{Name: "x", Columns: [][]float64{x}})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, fit.Coefficients[0], 1e-9)
	assert.InDelta(t, 3.0, fit.Coefficients[1], 1e-9)
	assert.InDelta(t, 0.0, fit.RSS, 1e-9)
	assert.Equal(t, 3, fit.DFResidual())
}

func TestOLSInterceptOnlyRSSIsTotalSS(t *testing.T) {
	y := []float64{1, 4, 2, 8, 5}
	fit, err := OLS(y, Intercept(len(y)))
	require.NoError(t, err)
	assert.InDelta(t, TotalSS(y), fit.RSS, 1e-9)
	for i := range y {
		assert.InDelta(t, y[i], fit.Fitted[i]+fit.Residuals[i], 1e-12)
	}
}

func TestTotalSS(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	assert.InDelta(t, 5.0, TotalSS(y), 1e-12)
	assert.Equal(t, []float64{1, 2, 3, 4}, y)
	assert.Equal(t, 0.0, TotalSS(nil))
	assert.Equal(t, 0.0, TotalSS([]float64{7}))
}

func TestOLSDetectsDependentColumns(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	_, err := OLS([]float64{1, 2, 3, 5},
		Intercept(4),
		Term{Name: "x", Columns: [][]float64{x}},
		Term{Name: "x2", Columns: [][]float64{{2, 4, 6, 8}}},
	)
	assert.True(t, core.IsDesignSingular(err))
}

func TestOLSTooFewObservations(t *testing.T) {
	_, err := OLS([]float64{1}, Intercept(1), Term{Name: "x", Columns: [][]float64{{3}}})
	assert.True(t, core.IsDesignSingular(err))
}
