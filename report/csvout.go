package report

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/invertedv/cornfit/diag"
	"github.com/invertedv/cornfit/frame"
	"github.com/invertedv/cornfit/model"
)

// saveTables writes the CSV extracts under dir.  The set mirrors
// tableFiles.
func saveTables(dir string, in *Input) error {
	write := func(file string, df *frame.Frame, e error) error {
		if e != nil {
			return fmt.Errorf("building table %s: %w", file, e)
		}

		if e := frame.NewFiles().SaveCSV(filepath.Join(dir, file), df); e != nil {
			return fmt.Errorf("writing table %s: %w", file, e)
		}

		return nil
	}

	if in.Tidy != nil {
		if e := write("observations.csv", in.Tidy, nil); e != nil {
			return e
		}
	}

	if in.Agg != nil {
		if e := write("aggregates.csv", in.Agg, nil); e != nil {
			return e
		}
	}

	if in.Additive != nil {
		df, e := CoefFrame(in.Additive.Coef)
		if e := write("coef_additive.csv", df, e); e != nil {
			return e
		}
	}

	if in.Interact != nil {
		df, e := CoefFrame(in.Interact.Coef)
		if e := write("coef_interactions.csv", df, e); e != nil {
			return e
		}
	}

	if len(in.OLSAnova) > 0 {
		df, e := AnovaFrame(in.OLSAnova)
		if e := write("anova_interactions.csv", df, e); e != nil {
			return e
		}
	}

	if in.GLS != nil {
		df, e := CoefFrame(in.GLS.Coef)
		if e := write("coef_gls.csv", df, e); e != nil {
			return e
		}
	}

	if len(in.GLSAnova) > 0 {
		df, e := AnovaFrame(in.GLSAnova)
		if e := write("anova_gls.csv", df, e); e != nil {
			return e
		}
	}

	if in.GLS != nil && len(in.GLS.Groups) > 0 {
		df, e := GroupsFrame(in.GLS.Groups)
		if e := write("gls_groups.csv", df, e); e != nil {
			return e
		}
	}

	if in.Diag != nil {
		df, e := DiagFrame(in.Diag)
		if e := write("diagnostics.csv", df, e); e != nil {
			return e
		}
	}

	return nil
}

// tableFiles lists the CSVs saveTables will produce for this input.
func tableFiles(in *Input) []string {
	var out []string
	add := func(cond bool, name string) {
		if cond {
			out = append(out, name)
		}
	}

	add(in.Tidy != nil, "observations.csv")
	add(in.Agg != nil, "aggregates.csv")
	add(in.Additive != nil, "coef_additive.csv")
	add(in.Interact != nil, "coef_interactions.csv")
	add(len(in.OLSAnova) > 0, "anova_interactions.csv")
	add(in.GLS != nil, "coef_gls.csv")
	add(len(in.GLSAnova) > 0, "anova_gls.csv")
	add(in.GLS != nil && len(in.GLS.Groups) > 0, "gls_groups.csv")
	add(in.Diag != nil, "diagnostics.csv")

	return out
}

func newFrame(names []string, vecs []*frame.Vector) (*frame.Frame, error) {
	var cols []*frame.Col
	for ind := 0; ind < len(names); ind++ {
		col, e := frame.NewCol(names[ind], vecs[ind])
		if e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return frame.NewFrame(cols...)
}

// CoefFrame tabulates a coefficient set as a frame.
func CoefFrame(coef []model.Coefficient) (*frame.Frame, error) {
	var (
		term               []string
		est, se, stat, pvl []float64
	)
	for _, c := range coef {
		term = append(term, c.Name)
		est = append(est, c.Estimate)
		se = append(se, c.StdErr)
		stat = append(stat, c.Stat)
		pvl = append(pvl, c.PValue)
	}

	return newFrame(
		[]string{"term", "estimate", "stdErr", "stat", "pValue"},
		[]*frame.Vector{frame.Strings(term...), frame.Floats(est...), frame.Floats(se...),
			frame.Floats(stat...), frame.Floats(pvl...)})
}

// AnovaFrame tabulates ANOVA rows as a frame.
func AnovaFrame(rows []model.AnovaRow) (*frame.Frame, error) {
	var (
		term      []string
		df        []int
		stat, pvl []float64
	)
	for _, r := range rows {
		term = append(term, r.Term)
		df = append(df, r.DF)
		stat = append(stat, r.Stat)
		pvl = append(pvl, r.PValue)
	}

	return newFrame(
		[]string{"term", "df", "stat", "pValue"},
		[]*frame.Vector{frame.Strings(term...), frame.Ints(df...), frame.Floats(stat...), frame.Floats(pvl...)})
}

// GroupsFrame tabulates the per-stratum fitted values and residuals.
func GroupsFrame(groups []model.GroupFit) (*frame.Frame, error) {
	var (
		name       []string
		row        []int
		fit, resid []float64
	)
	for _, g := range groups {
		for ind := 0; ind < len(g.Rows); ind++ {
			name = append(name, g.Name)
			row = append(row, g.Rows[ind])
			fit = append(fit, g.Fitted[ind])
			resid = append(resid, g.Resid[ind])
		}
	}

	return newFrame(
		[]string{"stratum", "row", "fitted", "resid"},
		[]*frame.Vector{frame.Strings(name...), frame.Ints(row...), frame.Floats(fit...), frame.Floats(resid...)})
}

// DiagFrame tabulates every diagnostic decision, one test per row.
func DiagFrame(s *diag.Suite) (*frame.Frame, error) {
	var (
		test, stratum, dec []string
		stat, pvl          []float64
		df                 []int
	)
	add := func(t, st string, x, p float64, d int, decide string) {
		test = append(test, t)
		stratum = append(stratum, st)
		stat = append(stat, x)
		pvl = append(pvl, p)
		df = append(df, d)
		dec = append(dec, decide)
	}

	if bp := s.BreuschPagan; bp != nil {
		add("breusch-pagan", "", bp.Statistic, bp.PValue, bp.DOF, decision(bp.Reject(s.Alpha)))
	}

	if jb := s.JarqueBera; jb != nil {
		add("jarque-bera", "", jb.Statistic, jb.PValue, 2, decision(jb.Reject(s.Alpha)))
	}

	add("durbin-watson", "", s.DurbinWatson, math.NaN(), 0, "")

	for _, g := range s.Groups {
		if g.Skipped || g.LjungBox == nil {
			add("ljung-box", g.Group, math.NaN(), math.NaN(), 0, "skipped")
			continue
		}

		add("ljung-box", g.Group, g.LjungBox.Statistic, g.LjungBox.PValue, g.LjungBox.DOF,
			decision(g.LjungBox.Reject(s.Alpha)))
	}

	return newFrame(
		[]string{"test", "stratum", "statistic", "pValue", "df", "decision"},
		[]*frame.Vector{frame.Strings(test...), frame.Strings(stratum...), frame.Floats(stat...),
			frame.Floats(pvl...), frame.Ints(df...), frame.Strings(dec...)})
}
