package predictor

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTolerance is the relative cutoff below which singular values are
// treated as zero.
const rankTolerance = 1e-10

var errNoConvergence = errors.New("svd factorization did not converge")

// linearModel is an ordinary least squares fit over standardized features.
type linearModel struct {
	scaler    *scaler
	coef      []float64
	intercept float64
}

// fitLinear solves min |Xb - y| with an intercept. The lagged closes are
// strongly collinear, so the minimum-norm SVD solution is used.
func fitLinear(xs [][]float64, ys []float64) (*linearModel, error) {
	sc := fitScaler(xs)
	rows, cols := len(xs), len(xs[0])

	scaled := make([][]float64, rows)
	xMean := make([]float64, cols)
	for i, r := range xs {
		scaled[i] = sc.transform(r)
		floats.Add(xMean, scaled[i])
	}
	floats.Scale(1/float64(rows), xMean)
	yMean := stat.Mean(ys, nil)

	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	for i, r := range scaled {
		for j, v := range r {
			a.Set(i, j, v-xMean[j])
		}
		b.SetVec(i, ys[i]-yMean)
	}

	coef := make([]float64, cols)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, errNoConvergence
	}
	if rank := svd.Rank(rankTolerance); rank > 0 {
		var sol mat.VecDense
		svd.SolveVecTo(&sol, b, rank)
		for j := range coef {
			coef[j] = sol.AtVec(j)
		}
	}

	return &linearModel{
		scaler:    sc,
		coef:      coef,
		intercept: yMean - floats.Dot(xMean, coef),
	}, nil
}

func (m *linearModel) predict(row []float64) float64 {
	return m.intercept + floats.Dot(m.coef, m.scaler.transform(row))
}

// score is the coefficient of determination over the given rows.
// A constant target yields NaN.
func (m *linearModel) score(xs [][]float64, ys []float64) float64 {
	if len(ys) == 0 {
		return math.NaN()
	}
	pred := make([]float64, len(xs))
	for i, r := range xs {
		pred[i] = m.predict(r)
	}
	return stat.RSquaredFrom(pred, ys, nil)
}
