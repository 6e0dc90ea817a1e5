package diag

import (
	"math"
)

// Grouped is one stratum's residuals in year order.
type Grouped struct {
	Name  string
	Resid []float64
}

// GroupResult is the autocorrelation diagnostic for one stratum, estimated
// from that stratum's residuals alone.
type GroupResult struct {
	Group   string
	N       int
	Skipped bool // fewer than two observations

	ACF      *ACFResult
	LjungBox *LjungBoxResult
	Rho1     float64 // lag-1 sample autocorrelation
}

// GroupAutocorr runs the per-stratum autocorrelation diagnostics.  Groups
// with a single observation are marked skipped, never dropped.  Each group's
// estimates use only that group's residuals.
func GroupAutocorr(groups []Grouped, maxLag int) []*GroupResult {
	var out []*GroupResult
	for _, g := range groups {
		res := &GroupResult{Group: g.Name, N: len(g.Resid), Rho1: math.NaN()}
		if len(g.Resid) < 2 {
			res.Skipped = true
			out = append(out, res)
			continue
		}

		lag := maxLag
		if lag > len(g.Resid)-1 {
			lag = len(g.Resid) - 1
		}
		if lag < 1 {
			lag = 1
		}

		res.ACF = ACFWithConfidence(g.Resid, lag)
		res.LjungBox = LjungBox(g.Resid, lag, 0)
		if res.ACF != nil && len(res.ACF.Values) > 1 {
			res.Rho1 = res.ACF.Values[1]
		}

		out = append(out, res)
	}

	return out
}

// AnyReject reports whether any group's Ljung-Box test rejects independence
// at alpha, and which groups did.
func AnyReject(results []*GroupResult, alpha float64) (reject bool, offenders []string) {
	for _, r := range results {
		if r.Skipped || r.LjungBox == nil {
			continue
		}

		if r.LjungBox.Reject(alpha) {
			offenders = append(offenders, r.Group)
		}
	}

	return len(offenders) > 0, offenders
}
