package cornfit

import (
	"fmt"

	"github.com/invertedv/cornfit/frame"
)

// defaults for RunConfig fields left zero
const (
	DefaultAlpha     = 0.05
	DefaultMaxLag    = 10
	DefaultRejectCap = 0.5
)

// RunConfig fixes one pipeline run.  Zero values for Layout, Alpha, MaxLag
// and RejectCap take the defaults.  Run works on its own defaulted copy, so
// a config can be reused across runs.
type RunConfig struct {
	InputFile  string       // NASS QuickStats export
	Layout     *frame.Files // input layout, nil for the standard comma layout
	RegionFile string       // optional YAML lookup replacing the built-in regions

	Alpha      float64 // test size for every diagnostic decision
	MaxLag     int     // ACF and Ljung-Box lag ceiling per stratum
	CenterYear bool    // center the year term at its mean
	RejectCap  float64 // abort when rejects exceed this fraction of rows
}

// withDefaults validates cfg and returns a copy with the zero fields filled.
func (cfg *RunConfig) withDefaults() (*RunConfig, error) {
	out := *cfg

	if out.InputFile == "" {
		return nil, fmt.Errorf("no input file configured")
	}

	if out.Layout == nil {
		out.Layout = frame.NewFiles()
	}

	if out.Alpha == 0 {
		out.Alpha = DefaultAlpha
	}

	if out.Alpha <= 0 || out.Alpha >= 1 {
		return nil, fmt.Errorf("alpha %v is not in (0, 1)", out.Alpha)
	}

	if out.MaxLag == 0 {
		out.MaxLag = DefaultMaxLag
	}

	if out.MaxLag < 1 {
		return nil, fmt.Errorf("max lag %d is less than 1", out.MaxLag)
	}

	if out.RejectCap == 0 {
		out.RejectCap = DefaultRejectCap
	}

	if out.RejectCap <= 0 || out.RejectCap > 1 {
		return nil, fmt.Errorf("reject cap %v is not in (0, 1]", out.RejectCap)
	}

	return &out, nil
}
