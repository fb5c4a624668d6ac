package design

import (
	"fmt"
	"math"

	"idstat/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// singularTolerance is relative to the largest diagonal entry of R.
const singularTolerance = 1e-9

// Fit is an ordinary least squares solution.
type Fit struct {
	Coefficients []float64
	Fitted       []float64
	Residuals    []float64
	RSS          float64
	N            int
	Params       int
}

// DFResidual returns n - p.
func (f *Fit) DFResidual() int {
	return f.N - f.Params
}

// Matrix stacks the columns of terms into an n×p design matrix and returns the
// owning term name of every column.
func Matrix(n int, terms ...Term) (*mat.Dense, []string) {
	p := 0
	for _, t := range terms {
		p += t.DF()
	}
	if p == 0 {
		return nil, nil
	}
	x := mat.NewDense(n, p, nil)
	owners := make([]string, 0, p)
	j := 0
	for _, t := range terms {
		for _, col := range t.Columns {
			x.SetCol(j, col)
			owners = append(owners, t.Name)
			j++
		}
	}
	return x, owners
}

// OLS regresses y on the columns of terms via Householder QR. A column that is
// numerically dependent on earlier columns fails with ErrDesignSingular.
func OLS(y []float64, terms ...Term) (*Fit, error) {
	n := len(y)
	x, owners := Matrix(n, terms...)
	if x == nil {
		return nil, core.NewDesignSingularError("empty design")
	}
	_, p := x.Dims()
	if n < p {
		return nil, core.NewDesignSingularError(fmt.Sprintf("%d observations for %d parameters", n, p))
	}

	var qr mat.QR
	qr.Factorize(x)

	var r mat.Dense
	qr.RTo(&r)

	maxDiag := 0.0
	for j := 0; j < p; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	for j := 0; j < p; j++ {
		if math.Abs(r.At(j, j)) <= singularTolerance*maxDiag || maxDiag == 0 {
			return nil, core.NewDesignSingularError(fmt.Sprintf("column %d of term %s is linearly dependent", j, owners[j]))
		}
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, yv); err != nil {
		return nil, core.NewDesignSingularError(err.Error())
	}

	fittedVec := mat.NewVecDense(n, nil)
	fittedVec.MulVec(x, beta)

	fit := &Fit{
		Coefficients: make([]float64, p),
		Fitted:       make([]float64, n),
		Residuals:    make([]float64, n),
		N:            n,
		Params:       p,
	}
	for j := 0; j < p; j++ {
		fit.Coefficients[j] = beta.AtVec(j)
	}
	for i := 0; i < n; i++ {
		fit.Fitted[i] = fittedVec.AtVec(i)
		fit.Residuals[i] = y[i] - fit.Fitted[i]
		fit.RSS += fit.Residuals[i] * fit.Residuals[i]
	}
	return fit, nil
}

// TotalSS returns the sum of squared deviations of y from its mean.
func TotalSS(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	centered := append([]float64(nil), y...)
	floats.AddConst(-stat.Mean(y, nil), centered)
	return floats.Dot(centered, centered)
}
