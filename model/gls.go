package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Group is one correlation stratum: row indices into the design, already in
// time order.  The AR(1) clock runs down Rows and resets at the next group.
type Group struct {
	Name string
	Rows []int
}

// GroupFit carries one group's fitted values and residuals, in time order.
type GroupFit struct {
	Name   string
	Rows   []int
	Fitted []float64
	Resid  []float64
}

// GLSFit is a maximum-likelihood GLS fit with AR(1) errors per group.
type GLSFit struct {
	Design *Design
	Coef   []Coefficient

	Rho     float64
	RhoCI   [2]float64
	CILevel float64

	N, P      int
	Sigma2    float64 // ML variance of the whitened residuals
	LogLik    float64
	AIC       float64
	OLSLogLik float64 // the rho = 0 point of the same likelihood
	LRStat    float64 // 2*(LogLik - OLSLogLik), chi-squared with 1 df
	LRPValue  float64

	Cov    *mat.Dense
	Fitted []float64 // input order, original scale
	Resid  []float64
	Groups []GroupFit
}

// whiten applies the AR(1) transform at rho: within each group the first row
// passes unchanged and row t becomes (row_t - rho*row_{t-1})/sqrt(1-rho^2),
// so the transformed errors are uncorrelated with the marginal variance.
func whiten(x *mat.Dense, y []float64, groups []Group, rho float64) (*mat.Dense, []float64) {
	n, p := x.Dims()
	xw := mat.NewDense(n, p, nil)
	yw := make([]float64, n)

	c := 1 / math.Sqrt(1-rho*rho)
	for _, g := range groups {
		prev := -1
		for _, row := range g.Rows {
			if prev < 0 {
				for j := 0; j < p; j++ {
					xw.Set(row, j, x.At(row, j))
				}

				yw[row] = y[row]
				prev = row
				continue
			}

			for j := 0; j < p; j++ {
				xw.Set(row, j, c*(x.At(row, j)-rho*x.At(prev, j)))
			}

			yw[row] = c * (y[row] - rho*y[prev])
			prev = row
		}
	}

	return xw, yw
}

type glsPoint struct {
	beta []float64
	rss  float64
	ll   float64
}

// glsAt solves the whitened least squares at rho and evaluates the
// concentrated log-likelihood
//
//	l(rho) = -n/2*(log 2pi + 1 + log(RSS_w/n)) - 1/2*sum_g (n_g-1)*log(1-rho^2)
func glsAt(d *Design, groups []Group, rho float64) (*glsPoint, error) {
	n, p := d.X.Dims()

	xw, yw := whiten(d.X, d.Y, groups, rho)

	var qr mat.QR
	qr.Factorize(xw)

	betaVec := mat.NewVecDense(p, nil)
	if e := qr.SolveVecTo(betaVec, false, mat.NewVecDense(n, yw)); e != nil {
		var cond mat.Condition
		if !errors.As(e, &cond) {
			return nil, fmt.Errorf("%w: whitened solve at rho=%.4f: %v", ErrFitFailed, rho, e)
		}
	}

	var rss float64
	for row := 0; row < n; row++ {
		r := yw[row] - mat.Dot(xw.RowView(row), betaVec)
		rss += r * r
	}

	if rss <= 0 || math.IsNaN(rss) {
		return nil, fmt.Errorf("%w: degenerate whitened residuals at rho=%.4f", ErrFitFailed, rho)
	}

	ll := -0.5*float64(n)*(math.Log(2*math.Pi)+1+math.Log(rss/float64(n))) -
		0.5*float64(n-len(groups))*math.Log(1-rho*rho)

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = betaVec.AtVec(j)
	}

	return &glsPoint{beta: beta, rss: rss, ll: ll}, nil
}

// startRho is the pooled lag-1 autocorrelation of the OLS residuals, clipped
// away from the boundary.
func startRho(resid []float64, groups []Group) float64 {
	var num, den float64
	for _, g := range groups {
		for t := 1; t < len(g.Rows); t++ {
			num += resid[g.Rows[t]] * resid[g.Rows[t-1]]
		}
	}

	for _, r := range resid {
		den += r * r
	}

	if den == 0 {
		return 0
	}

	r := num / den
	if math.IsNaN(r) {
		return 0
	}

	return math.Max(-0.9, math.Min(0.9, r))
}

// checkGroups verifies the groups partition all n rows exactly once.
func checkGroups(groups []Group, n int) error {
	seen := make([]bool, n)
	covered := 0
	for _, g := range groups {
		for _, row := range g.Rows {
			if row < 0 || row >= n {
				return fmt.Errorf("group %s has row %d outside 0..%d", g.Name, row, n-1)
			}

			if seen[row] {
				return fmt.Errorf("row %d appears in more than one group", row)
			}

			seen[row] = true
			covered++
		}
	}

	if covered != n {
		return fmt.Errorf("groups cover %d of %d rows", covered, n)
	}

	return nil
}

// FitGLS fits the design under GLS where the errors follow an AR(1) process
// within each group, by maximum likelihood (not REML).  The correlation does
// not leak across group boundaries; single-row groups join the fit through
// an identity transform but carry no information about rho.  The likelihood
// is profiled over rho and maximized with Nelder-Mead on theta = atanh(rho).
// Non-convergence is ErrFitFailed: fatal, no retry.  alpha sets the
// confidence level (1-alpha) of the rho interval.
func FitGLS(d *Design, groups []Group, alpha float64) (*GLSFit, error) {
	n, p := d.X.Dims()
	if n <= p {
		return nil, fmt.Errorf("%w: %d rows cannot identify %d coefficients", ErrFitFailed, n, p)
	}

	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("alpha %v is not in (0, 1)", alpha)
	}

	if e := checkGroups(groups, n); e != nil {
		return nil, e
	}

	if n == len(groups) {
		return nil, fmt.Errorf("%w: no group has consecutive observations to identify rho", ErrFitFailed)
	}

	var (
		p0 *glsPoint
		e  error
	)

	// rho = 0 is the OLS point of the same likelihood
	if p0, e = glsAt(d, groups, 0); e != nil {
		return nil, e
	}

	resid0 := make([]float64, n)
	beta0 := mat.NewVecDense(p, p0.beta)
	for row := 0; row < n; row++ {
		resid0[row] = d.Y[row] - mat.Dot(d.X.RowView(row), beta0)
	}

	obj := func(theta []float64) float64 {
		pt, e2 := glsAt(d, groups, math.Tanh(theta[0]))
		if e2 != nil {
			return math.Inf(1)
		}

		return -pt.ll
	}

	var res *optimize.Result
	problem := optimize.Problem{Func: obj}
	start := []float64{math.Atanh(startRho(resid0, groups))}

	if res, e = optimize.Minimize(problem, start, nil, &optimize.NelderMead{}); e != nil {
		return nil, fmt.Errorf("%w: AR(1) likelihood maximization: %v", ErrFitFailed, e)
	}

	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, fmt.Errorf("%w: AR(1) likelihood did not attain a finite optimum", ErrFitFailed)
	}

	thetaHat := res.X[0]
	rhoHat := math.Tanh(thetaHat)

	// interval from the curvature of the profile likelihood, on the atanh
	// scale, mapped back by tanh
	llTheta := func(theta float64) float64 {
		pt, e2 := glsAt(d, groups, math.Tanh(theta))
		if e2 != nil {
			return math.Inf(-1)
		}

		return pt.ll
	}

	d2 := fd.Derivative(llTheta, thetaHat, &fd.Settings{Formula: fd.Central2nd})
	if !(d2 < 0) || math.IsInf(d2, 0) {
		return nil, fmt.Errorf("%w: profile likelihood is not curved at rho=%.4f", ErrFitFailed, rhoHat)
	}

	seTheta := 1 / math.Sqrt(-d2)
	z := distuv.UnitNormal.Quantile(1 - alpha/2)

	// final solve at the optimum, with the coefficient covariance
	xw, yw := whiten(d.X, d.Y, groups, rhoHat)

	var (
		beta []float64
		inv  *mat.Dense
	)

	if beta, inv, e = solveLS(xw, yw); e != nil {
		return nil, e
	}

	betaVec := mat.NewVecDense(p, beta)

	var rssW float64
	for row := 0; row < n; row++ {
		r := yw[row] - mat.Dot(xw.RowView(row), betaVec)
		rssW += r * r
	}

	sigma2W := rssW / float64(n-p)

	cov := mat.NewDense(p, p, nil)
	cov.Scale(sigma2W, inv)

	coef := make([]Coefficient, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(cov.At(j, j))
		zStat := beta[j] / se
		coef[j] = Coefficient{
			Name:     d.Names[j],
			Estimate: beta[j],
			StdErr:   se,
			Stat:     zStat,
			PValue:   2 * (1 - distuv.UnitNormal.CDF(math.Abs(zStat))),
		}
	}

	fitted := make([]float64, n)
	resid := make([]float64, n)
	for row := 0; row < n; row++ {
		fitted[row] = mat.Dot(d.X.RowView(row), betaVec)
		resid[row] = d.Y[row] - fitted[row]
	}

	ll := -0.5*float64(n)*(math.Log(2*math.Pi)+1+math.Log(rssW/float64(n))) -
		0.5*float64(n-len(groups))*math.Log(1-rhoHat*rhoHat)

	fit := &GLSFit{
		Design:    d,
		Coef:      coef,
		Rho:       rhoHat,
		RhoCI:     [2]float64{math.Tanh(thetaHat - z*seTheta), math.Tanh(thetaHat + z*seTheta)},
		CILevel:   1 - alpha,
		N:         n,
		P:         p,
		Sigma2:    rssW / float64(n),
		LogLik:    ll,
		AIC:       -2*ll + 2*float64(p+2),
		OLSLogLik: p0.ll,
		LRStat:    math.Max(0, 2*(ll-p0.ll)),
		Cov:       cov,
		Fitted:    fitted,
		Resid:     resid,
	}

	fit.LRPValue = 1 - distuv.ChiSquared{K: 1}.CDF(fit.LRStat)

	for _, g := range groups {
		gf := GroupFit{Name: g.Name, Rows: g.Rows}
		for _, row := range g.Rows {
			gf.Fitted = append(gf.Fitted, fitted[row])
			gf.Resid = append(gf.Resid, resid[row])
		}

		fit.Groups = append(fit.Groups, gf)
	}

	return fit, nil
}
