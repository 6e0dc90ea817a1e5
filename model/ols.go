package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrFitFailed marks a deterministic numerical fit that cannot be produced:
// a rank-deficient design or a likelihood maximization that does not
// converge.  There is no retry semantics; callers treat it as fatal for the
// run.
var ErrFitFailed = errors.New("model fit failed")

// Coefficient is one row of a fitted coefficient table.  Stat is a
// t-statistic under OLS and a z-statistic under GLS.
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	Stat     float64
	PValue   float64
}

// OLSFit is an ordinary least squares fit.
type OLSFit struct {
	Design *Design
	Coef   []Coefficient

	Fitted []float64
	Resid  []float64

	N, P    int
	RSS     float64
	TSS     float64
	Sigma2  float64 // ML variance estimate RSS/N
	R2      float64
	AdjR2   float64
	FStat   float64
	FPValue float64
	LogLik  float64
	AIC     float64

	Cov *mat.Dense // coefficient covariance
}

// solveLS solves least squares by the normal equations, falling back to SVD
// when X'X is numerically singular.  It returns the coefficients and the
// unscaled covariance (X'X)^-1.  A rank-deficient design is ErrFitFailed.
func solveLS(x *mat.Dense, y []float64) ([]float64, *mat.Dense, error) {
	n, p := x.Dims()

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	yv := mat.NewDense(n, 1, y)

	var xtxInv mat.Dense
	if eInv := xtxInv.Inverse(&xtx); eInv != nil {
		// SVD least squares, as long as X has full column rank
		var svd mat.SVD
		if !svd.Factorize(x, mat.SVDThinU|mat.SVDThinV) {
			return nil, nil, fmt.Errorf("%w: SVD factorization failed: %v", ErrFitFailed, eInv)
		}

		if rank := svd.Rank(1e-12); rank < p {
			return nil, nil, fmt.Errorf("%w: design matrix is rank deficient (rank %d of %d)", ErrFitFailed, rank, p)
		}

		var b mat.Dense
		svd.SolveTo(&b, yv, p)

		// (X'X)^-1 = V S^-2 V'
		var v mat.Dense
		svd.VTo(&v)
		s := svd.Values(nil)

		scaled := mat.NewDense(p, p, nil)
		for j := 0; j < p; j++ {
			for i := 0; i < p; i++ {
				scaled.Set(i, j, v.At(i, j)/(s[j]*s[j]))
			}
		}

		var inv mat.Dense
		inv.Mul(scaled, v.T())

		beta := make([]float64, p)
		for j := 0; j < p; j++ {
			beta[j] = b.At(j, 0)
		}

		return beta, &inv, nil
	}

	var xty mat.Dense
	xty.Mul(x.T(), yv)

	var b mat.Dense
	b.Mul(&xtxInv, &xty)

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = b.At(j, 0)
	}

	return beta, &xtxInv, nil
}

// FitOLS fits the design by ordinary least squares: coefficient table with
// t-statistics, overall F, R-squared, log-likelihood and AIC, plus fitted
// values and residuals in input order.
func FitOLS(d *Design) (*OLSFit, error) {
	n, p := d.X.Dims()
	if n <= p {
		return nil, fmt.Errorf("%w: %d rows cannot identify %d coefficients", ErrFitFailed, n, p)
	}

	var (
		beta []float64
		inv  *mat.Dense
		e    error
	)

	if beta, inv, e = solveLS(d.X, d.Y); e != nil {
		return nil, e
	}

	fitted := make([]float64, n)
	resid := make([]float64, n)
	for row := 0; row < n; row++ {
		fitted[row] = mat.Dot(mat.NewVecDense(p, beta), d.X.RowView(row))
		resid[row] = d.Y[row] - fitted[row]
	}

	rss := floats.Dot(resid, resid)

	ybar := stat.Mean(d.Y, nil)
	var tss float64
	for _, yy := range d.Y {
		tss += (yy - ybar) * (yy - ybar)
	}

	dfResid := float64(n - p)
	sigma2 := rss / dfResid // unbiased, for the standard errors

	cov := mat.NewDense(p, p, nil)
	cov.Scale(sigma2, inv)

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfResid}
	coef := make([]Coefficient, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(cov.At(j, j))
		tStat := beta[j] / se
		coef[j] = Coefficient{
			Name:     d.Names[j],
			Estimate: beta[j],
			StdErr:   se,
			Stat:     tStat,
			PValue:   2 * (1 - tDist.CDF(math.Abs(tStat))),
		}
	}

	fit := &OLSFit{
		Design: d,
		Coef:   coef,
		Fitted: fitted,
		Resid:  resid,
		N:      n,
		P:      p,
		RSS:    rss,
		TSS:    tss,
		Sigma2: rss / float64(n),
		Cov:    cov,
	}

	if tss > 0 {
		fit.R2 = 1 - rss/tss
		fit.AdjR2 = 1 - (rss/dfResid)/(tss/float64(n-1))
	}

	if p > 1 && tss > 0 {
		fit.FStat = ((tss - rss) / float64(p-1)) / (rss / dfResid)
		fDist := distuv.F{D1: float64(p - 1), D2: dfResid}
		fit.FPValue = 1 - fDist.CDF(fit.FStat)
	} else {
		fit.FStat, fit.FPValue = math.NaN(), math.NaN()
	}

	fit.LogLik = -0.5 * float64(n) * (math.Log(2*math.Pi) + math.Log(fit.Sigma2) + 1)
	fit.AIC = -2*fit.LogLik + 2*float64(p+1)

	return fit, nil
}
