// Package report renders the pipeline's results as an offline HTML chart
// set, CSV tables, a markdown narrative, and a console summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invertedv/cornfit/diag"
	"github.com/invertedv/cornfit/frame"
	"github.com/invertedv/cornfit/ingest"
	"github.com/invertedv/cornfit/model"
)

const (
	figureDir = "figures"
	tableDir  = "tables"
)

// Input carries everything the renderers consume.
type Input struct {
	InputFile string
	Alpha     float64

	Rejects *ingest.RejectReport
	Gaps    *ingest.GapReport

	Tidy *frame.Frame // county-level observations with derived yield
	Agg  *frame.Frame // regional aggregates, sorted region/irrigation/year

	Additive *model.OLSFit
	Interact *model.OLSFit
	OLSAnova []model.AnovaRow // interaction model, by term

	Diag *diag.Suite // residual workup of the interaction model

	GLS      *model.GLSFit
	GLSAnova []model.AnovaRow
}

// Render writes the full report under outDir: report.md at the top, the
// charts under figures/ and the CSV extracts under tables/.
func Render(outDir string, in *Input) error {
	for _, dir := range []string{outDir, filepath.Join(outDir, figureDir), filepath.Join(outDir, tableDir)} {
		if e := os.MkdirAll(dir, 0o775); e != nil {
			return fmt.Errorf("cannot create report directory %s: %w", dir, e)
		}
	}

	if e := saveTables(filepath.Join(outDir, tableDir), in); e != nil {
		return e
	}

	if e := saveFigures(filepath.Join(outDir, figureDir), in); e != nil {
		return e
	}

	md := Markdown(in)

	return os.WriteFile(filepath.Join(outDir, "report.md"), []byte(md), 0o664)
}

// saveFigures writes the chart set.
func saveFigures(dir string, in *Input) error {
	if in.Agg != nil {
		for _, m := range []struct{ col, ylab, file string }{
			{ingest.ColYield, "yield (bu/acre)", "yield.html"},
			{ingest.ColProduction, "production (bu)", "production.html"},
		} {
			series, e := aggSeries(in.Agg, m.col)
			if e != nil {
				return e
			}

			p := TimeSeriesPlot("Corn "+m.col+" by region and irrigation", m.ylab, series)
			p.Write(filepath.Join(dir, m.file))
		}
	}

	if in.Interact != nil {
		ResidualPlot("Residuals vs fitted, interaction model", in.Interact.Fitted, in.Interact.Resid).
			Write(filepath.Join(dir, "residuals.html"))
		QQPlot("Normal Q-Q, interaction model residuals", in.Interact.Resid).
			Write(filepath.Join(dir, "qq.html"))
	}

	if in.Diag != nil {
		for _, g := range in.Diag.Groups {
			if g.ACF == nil {
				continue
			}

			ACFPlot("Residual ACF, "+g.Group, g.ACF).
				Write(filepath.Join(dir, acfFile(g.Group)))
		}
	}

	return nil
}

// aggSeries builds one series per region and irrigation stratum.
func aggSeries(agg *frame.Frame, measure string) ([]Series, error) {
	groups, e := agg.GroupRows(ingest.ColRegion, ingest.ColIrrigated)
	if e != nil {
		return nil, e
	}

	var yearCol, mCol *frame.Col
	if yearCol, e = agg.Column(ingest.ColYear); e != nil {
		return nil, e
	}

	if mCol, e = agg.Column(measure); e != nil {
		return nil, e
	}

	var out []Series
	for _, g := range groups {
		s := Series{Name: g.Label}
		for _, row := range g.Rows {
			s.X = append(s.X, float64(yearCol.ElementInt(row)))
			s.Y = append(s.Y, mCol.ElementFloat(row))
		}

		out = append(out, s)
	}

	return out, nil
}

// acfFile is the figure file name for one group's ACF chart.
func acfFile(group string) string {
	return "acf_" + slug(group) + ".html"
}

// slug maps a group label to a file-name-safe token.
func slug(s string) string {
	out := strings.ToLower(s)
	for _, r := range []string{" ", ":", "/", "\\"} {
		out = strings.ReplaceAll(out, r, "_")
	}

	return out
}
