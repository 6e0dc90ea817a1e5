package diag

import (
	"gonum.org/v1/gonum/mat"
)

// Suite is the full residual workup for one fitted model: whole-model tests
// plus the per-stratum autocorrelation gate.  Individual results are nil when
// the corresponding test was undefined for the data.
type Suite struct {
	Alpha float64

	BreuschPagan *BreuschPaganResult
	JarqueBera   *JarqueBeraResult
	DurbinWatson float64

	Groups []*GroupResult

	// GateReject is true when any group's Ljung-Box test rejects
	// independence at Alpha.  Offenders lists those groups.
	GateReject bool
	Offenders  []string
}

// RunSuite computes every residual diagnostic: Breusch-Pagan against the
// design matrix x, Jarque-Bera and Durbin-Watson on the pooled residuals, and
// the per-group autocorrelation tests through maxLag.
func RunSuite(resid []float64, x *mat.Dense, groups []Grouped, maxLag int, alpha float64) *Suite {
	s := &Suite{Alpha: alpha}

	s.BreuschPagan = BreuschPagan(resid, x)
	s.JarqueBera = JarqueBera(resid)
	s.DurbinWatson = DurbinWatson(resid)
	s.Groups = GroupAutocorr(groups, maxLag)
	s.GateReject, s.Offenders = AnyReject(s.Groups, alpha)

	return s
}
