package cornfit

import (
	"fmt"
	"time"

	"github.com/invertedv/cornfit/diag"
	"github.com/invertedv/cornfit/frame"
	"github.com/invertedv/cornfit/ingest"
	"github.com/invertedv/cornfit/model"
	"github.com/invertedv/cornfit/region"
	"github.com/invertedv/cornfit/report"
	"go.uber.org/zap"
)

// RunResult is everything one pipeline pass produces.  Check fills the data
// fields; Run fills the rest.
type RunResult struct {
	Config *RunConfig // defaults applied

	Rejects *ingest.RejectReport
	Gaps    *ingest.GapReport

	Tidy *frame.Frame // observations with derived yield
	Agg  *frame.Frame // regional aggregates, sorted region, irrigation, year

	Additive *model.OLSFit
	Interact *model.OLSFit
	OLSAnova []model.AnovaRow

	Diag *diag.Suite // residual workup of the interaction model

	GLS      *model.GLSFit
	GLSAnova []model.AnovaRow
}

// Check runs the data half of the pipeline: read the export, reshape, enforce
// the reject cap, aggregate to regions, sort into stratum and year order.
// The model fields of the result stay nil.  A nil logger disables logging.
func Check(cfg *RunConfig, lg *zap.Logger) (*RunResult, error) {
	var e error
	if cfg, e = cfg.withDefaults(); e != nil {
		return nil, e
	}

	if lg == nil {
		lg = zap.NewNop()
	}

	regions := region.Default()
	if cfg.RegionFile != "" {
		if regions, e = region.Load(cfg.RegionFile); e != nil {
			return nil, e
		}
	}

	res := &RunResult{Config: cfg, Rejects: ingest.NewRejectReport()}
	start := time.Now()

	var raw *frame.Frame
	if raw, e = ingest.Read(cfg.InputFile, cfg.Layout, res.Rejects); e != nil {
		return nil, e
	}

	lg.Info("read input",
		zap.String("file", cfg.InputFile),
		zap.Int("rows", raw.RowCount()),
		zap.Duration("elapsed", time.Since(start)))

	if res.Tidy, e = ingest.Reshape(raw, res.Rejects); e != nil {
		return nil, e
	}

	if rate := res.Rejects.Rate(); rate > cfg.RejectCap {
		return nil, fmt.Errorf("rejects are %.1f%% of rows, the cap is %.0f%%\n%s",
			100*rate, 100*cfg.RejectCap, res.Rejects)
	}

	if res.Tidy.RowCount() == 0 {
		return nil, fmt.Errorf("no observations survived reshaping\n%s", res.Rejects)
	}

	lg.Info("reshaped",
		zap.Int("observations", res.Tidy.RowCount()),
		zap.Int("rejects", res.Rejects.Rejected()))

	if res.Agg, res.Gaps, e = ingest.Aggregate(res.Tidy, regions); e != nil {
		return nil, e
	}

	if !res.Gaps.Empty() {
		lg.Warn("states not in the region lookup",
			zap.Strings("states", res.Gaps.States()),
			zap.Int("rows", res.Gaps.Total()))
	}

	if res.Agg.RowCount() == 0 {
		return nil, fmt.Errorf("no observations matched the region lookup")
	}

	// the AR(1) clock needs year order within each stratum
	if e = res.Agg.Sort(ingest.ColRegion, ingest.ColIrrigated, ingest.ColYear); e != nil {
		return nil, e
	}

	lg.Info("aggregated", zap.Int("rows", res.Agg.RowCount()))

	return res, nil
}

// Run is the whole pipeline: the Check stages, both OLS fits with the ANOVA
// table, the residual workup, and the AR(1) GLS refit.  The GLS is always
// fitted; the autocorrelation gate decides how the report frames it.
func Run(cfg *RunConfig, lg *zap.Logger) (*RunResult, error) {
	if lg == nil {
		lg = zap.NewNop()
	}

	var (
		res *RunResult
		e   error
	)

	if res, e = Check(cfg, lg); e != nil {
		return nil, e
	}

	cfg = res.Config

	var addDesign, intDesign *model.Design
	if addDesign, e = model.BuildDesign(res.Agg, model.Additive(), cfg.CenterYear); e != nil {
		return nil, e
	}

	if intDesign, e = model.BuildDesign(res.Agg, model.Interactions(), cfg.CenterYear); e != nil {
		return nil, e
	}

	start := time.Now()

	if res.Additive, e = model.FitOLS(addDesign); e != nil {
		return nil, fmt.Errorf("additive model: %w", e)
	}

	if res.Interact, e = model.FitOLS(intDesign); e != nil {
		return nil, fmt.Errorf("interaction model: %w", e)
	}

	if res.OLSAnova, e = res.Interact.Anova(); e != nil {
		return nil, e
	}

	lg.Info("ols fitted",
		zap.Float64("additiveR2", res.Additive.R2),
		zap.Float64("interactR2", res.Interact.R2),
		zap.Int("observations", res.Interact.N))

	var groups []*frame.RowGroup
	if groups, e = res.Agg.GroupRows(ingest.ColRegion, ingest.ColIrrigated); e != nil {
		return nil, e
	}

	dGroups := make([]diag.Grouped, len(groups))
	mGroups := make([]model.Group, len(groups))
	for ind := 0; ind < len(groups); ind++ {
		g := groups[ind]

		resid := make([]float64, len(g.Rows))
		for j := 0; j < len(g.Rows); j++ {
			resid[j] = res.Interact.Resid[g.Rows[j]]
		}

		dGroups[ind] = diag.Grouped{Name: g.Label, Resid: resid}
		mGroups[ind] = model.Group{Name: g.Label, Rows: g.Rows}

		lg.Debug("stratum", zap.String("name", g.Label), zap.Int("rows", len(g.Rows)))
	}

	res.Diag = diag.RunSuite(res.Interact.Resid, intDesign.X, dGroups, cfg.MaxLag, cfg.Alpha)

	if res.Diag.GateReject {
		lg.Info("residual autocorrelation detected", zap.Strings("strata", res.Diag.Offenders))
	} else {
		lg.Info("no residual autocorrelation at the gate")
	}

	if res.GLS, e = model.FitGLS(intDesign, mGroups, cfg.Alpha); e != nil {
		return nil, fmt.Errorf("gls refit: %w", e)
	}

	if res.GLSAnova, e = res.GLS.Anova(); e != nil {
		return nil, e
	}

	lg.Info("gls fitted",
		zap.Float64("rho", res.GLS.Rho),
		zap.Float64("logLik", res.GLS.LogLik),
		zap.Duration("elapsed", time.Since(start)))

	return res, nil
}

// ReportInput shapes the result for the report renderers.
func (res *RunResult) ReportInput() *report.Input {
	return &report.Input{
		InputFile: res.Config.InputFile,
		Alpha:     res.Config.Alpha,
		Rejects:   res.Rejects,
		Gaps:      res.Gaps,
		Tidy:      res.Tidy,
		Agg:       res.Agg,
		Additive:  res.Additive,
		Interact:  res.Interact,
		OLSAnova:  res.OLSAnova,
		Diag:      res.Diag,
		GLS:       res.GLS,
		GLSAnova:  res.GLSAnova,
	}
}

// Table is one frame ready for the store, with the name it persists under
// and the column the table is keyed on.
type Table struct {
	Name    string
	OrderBy string
	DF      *frame.Frame
}

// Tables returns the exportable frames: the aggregated observations under
// prefix and, when the models were fitted, <prefix>_coef with every
// coefficient table and <prefix>_fit with the per-stratum GLS fits.
func (res *RunResult) Tables(prefix string) ([]Table, error) {
	if prefix == "" {
		prefix = "corn"
	}

	out := []Table{{Name: prefix, OrderBy: ingest.ColYear, DF: res.Agg}}

	if res.GLS == nil {
		return out, nil
	}

	var (
		coef, fit *frame.Frame
		e         error
	)

	if coef, e = res.coefTable(); e != nil {
		return nil, e
	}

	if fit, e = report.GroupsFrame(res.GLS.Groups); e != nil {
		return nil, e
	}

	out = append(out,
		Table{Name: prefix + "_coef", OrderBy: "model", DF: coef},
		Table{Name: prefix + "_fit", OrderBy: "stratum", DF: fit})

	return out, nil
}

// coefTable stacks the three coefficient tables with a model column.
func (res *RunResult) coefTable() (*frame.Frame, error) {
	mdl := frame.MakeVector(frame.DTstring, 0)
	term := frame.MakeVector(frame.DTstring, 0)
	est := frame.MakeVector(frame.DTfloat, 0)
	se := frame.MakeVector(frame.DTfloat, 0)
	stat := frame.MakeVector(frame.DTfloat, 0)
	pval := frame.MakeVector(frame.DTfloat, 0)

	add := func(name string, coef []model.Coefficient) {
		for _, c := range coef {
			mdl.Append(name)
			term.Append(c.Name)
			est.Append(c.Estimate)
			se.Append(c.StdErr)
			stat.Append(c.Stat)
			pval.Append(c.PValue)
		}
	}

	add("ols additive", res.Additive.Coef)
	add("ols interactions", res.Interact.Coef)
	add("gls ar(1)", res.GLS.Coef)

	names := []string{"model", "term", "estimate", "stdErr", "stat", "pValue"}
	vecs := []*frame.Vector{mdl, term, est, se, stat, pval}

	var cols []*frame.Col
	for ind := 0; ind < len(names); ind++ {
		var (
			col *frame.Col
			e   error
		)
		if col, e = frame.NewCol(names[ind], vecs[ind]); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return frame.NewFrame(cols...)
}
