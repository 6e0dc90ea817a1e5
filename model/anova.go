package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AnovaRow is one term's joint significance test.
type AnovaRow struct {
	Term   string
	DF     int
	Stat   float64 // F under OLS, chi-squared under GLS
	PValue float64
}

// waldStat is b' Cov^-1 b over the block's coefficient span.
func waldStat(coef []Coefficient, cov *mat.Dense, blk Block) (float64, error) {
	b := make([]float64, blk.N)
	for j := 0; j < blk.N; j++ {
		b[j] = coef[blk.Start+j].Estimate
	}

	sub := cov.Slice(blk.Start, blk.Start+blk.N, blk.Start, blk.Start+blk.N)

	var subInv mat.Dense
	if e := subInv.Inverse(sub); e != nil {
		return 0, fmt.Errorf("%w: covariance of term %s is singular: %v", ErrFitFailed, blk.Term, e)
	}

	bv := mat.NewVecDense(blk.N, b)

	var tmp mat.VecDense
	tmp.MulVec(&subInv, bv)

	return mat.Dot(bv, &tmp), nil
}

// Anova tests each term's coefficient block jointly against zero with a
// Wald F test.
func (fit *OLSFit) Anova() ([]AnovaRow, error) {
	dfResid := float64(fit.N - fit.P)

	var rows []AnovaRow
	for _, blk := range fit.Design.Blocks {
		w, e := waldStat(fit.Coef, fit.Cov, blk)
		if e != nil {
			return nil, e
		}

		f := w / float64(blk.N)
		fDist := distuv.F{D1: float64(blk.N), D2: dfResid}
		rows = append(rows, AnovaRow{Term: blk.Term, DF: blk.N, Stat: f, PValue: 1 - fDist.CDF(f)})
	}

	return rows, nil
}

// Anova tests each term's coefficient block jointly against zero with a
// Wald chi-squared test.
func (fit *GLSFit) Anova() ([]AnovaRow, error) {
	var rows []AnovaRow
	for _, blk := range fit.Design.Blocks {
		w, e := waldStat(fit.Coef, fit.Cov, blk)
		if e != nil {
			return nil, e
		}

		chi := distuv.ChiSquared{K: float64(blk.N)}
		rows = append(rows, AnovaRow{Term: blk.Term, DF: blk.N, Stat: w, PValue: 1 - chi.CDF(w)})
	}

	return rows, nil
}
