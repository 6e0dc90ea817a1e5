package diag

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult is the portmanteau test for autocorrelation.  The null
// hypothesis is no autocorrelation through the tested lags.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

func (r *LjungBoxResult) Reject(alpha float64) bool {
	return r.PValue < alpha
}

// LjungBox tests x for autocorrelation over the first lags lags.  fitdf is
// the number of model parameters already estimated from x (0 for raw
// regression residuals).  Returns nil when the test is undefined.
func LjungBox(x []float64, lags, fitdf int) *LjungBoxResult {
	n := len(x)
	if n < 2 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(x, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi := distuv.ChiSquared{K: float64(dof)}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    1 - chi.CDF(q),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatson returns the Durbin-Watson statistic for first-order serial
// correlation.  Values near 2 mean none; toward 0, positive; toward 4,
// negative.  NaN when undefined.
func DurbinWatson(resid []float64) float64 {
	if len(resid) < 2 {
		return math.NaN()
	}

	num, den := 0.0, 0.0
	for i := 0; i < len(resid); i++ {
		if i > 0 {
			d := resid[i] - resid[i-1]
			num += d * d
		}
		den += resid[i] * resid[i]
	}

	if den == 0 {
		return math.NaN()
	}

	return num / den
}

// BreuschPaganResult is the LM test for heteroscedasticity: squared
// residuals regressed on the model matrix.
type BreuschPaganResult struct {
	Statistic float64
	PValue    float64
	DOF       int
}

func (r *BreuschPaganResult) Reject(alpha float64) bool {
	return r.PValue < alpha
}

// BreuschPagan tests the residuals against the design matrix x, whose first
// column must be the intercept.  Returns nil when the auxiliary regression is
// undefined.
func BreuschPagan(resid []float64, x *mat.Dense) *BreuschPaganResult {
	n, p := x.Dims()
	if n != len(resid) || p < 2 || n <= p {
		return nil
	}

	u := make([]float64, n)
	uMean := 0.0
	for i, e := range resid {
		u[i] = e * e
		uMean += u[i]
	}
	uMean /= float64(n)

	tss := 0.0
	for _, v := range u {
		tss += (v - uMean) * (v - uMean)
	}

	if tss == 0 {
		return nil
	}

	var qr mat.QR
	qr.Factorize(x)

	var beta mat.VecDense
	if e := qr.SolveVecTo(&beta, false, mat.NewVecDense(n, u)); e != nil {
		return nil
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	rss := 0.0
	for i := 0; i < n; i++ {
		d := u[i] - fitted.AtVec(i)
		rss += d * d
	}

	r2 := 1 - rss/tss
	lm := float64(n) * r2
	dof := p - 1

	chi := distuv.ChiSquared{K: float64(dof)}

	return &BreuschPaganResult{
		Statistic: lm,
		PValue:    1 - chi.CDF(lm),
		DOF:       dof,
	}
}

// JarqueBeraResult is the moment test for normality of the residuals.
type JarqueBeraResult struct {
	Statistic float64
	PValue    float64
	Skewness  float64
	Kurtosis  float64 // excess
}

func (r *JarqueBeraResult) Reject(alpha float64) bool {
	return r.PValue < alpha
}

// JarqueBera tests resid for departure from normality using skewness and
// excess kurtosis.  Returns nil when undefined.
func JarqueBera(resid []float64) *JarqueBeraResult {
	n := len(resid)
	if n < 4 {
		return nil
	}

	if stat.Variance(resid, nil) == 0 {
		return nil
	}

	skew := stat.Skew(resid, nil)
	exKurt := stat.ExKurtosis(resid, nil)

	jb := float64(n) / 6.0 * (skew*skew + exKurt*exKurt/4.0)

	chi := distuv.ChiSquared{K: 2}

	return &JarqueBeraResult{
		Statistic: jb,
		PValue:    1 - chi.CDF(jb),
		Skewness:  skew,
		Kurtosis:  exKurt,
	}
}
