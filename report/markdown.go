package report

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/invertedv/cornfit/ingest"
	"github.com/invertedv/cornfit/model"
)

// Markdown assembles the narrative report.  The output is deterministic for
// a given Input.
func Markdown(in *Input) string {
	var b strings.Builder

	b.WriteString("# Corn yield: exploratory models\n\n")
	fmt.Fprintf(&b, "Input: `%s`. Significance level: %s.\n\n", in.InputFile, g4(in.Alpha))

	mdData(&b, in)
	mdModels(&b, in)
	mdDiagnostics(&b, in)
	mdGLS(&b, in)
	mdArtifacts(&b, in)

	return b.String()
}

func mdData(b *strings.Builder, in *Input) {
	b.WriteString("## Data\n\n")

	if in.Rejects != nil {
		fmt.Fprintf(b, "Rows read: %d. Rejected: %d (%.1f%%).\n\n",
			in.Rejects.Total(), in.Rejects.Rejected(), 100*in.Rejects.Rate())

		if !in.Rejects.Empty() {
			b.WriteString("| reason | count |\n|---|---|\n")
			for _, k := range in.Rejects.Kinds() {
				fmt.Fprintf(b, "| %s | %d |\n", k, in.Rejects.Count(k))
			}
			b.WriteString("\n")

			for _, k := range in.Rejects.Kinds() {
				fmt.Fprintf(b, "Examples, %s:\n\n", k)
				for _, ex := range in.Rejects.Examples(k) {
					fmt.Fprintf(b, "  - `%s`\n", ex)
				}
				b.WriteString("\n")
			}
		}
	}

	if in.Gaps != nil && !in.Gaps.Empty() {
		b.WriteString("States without a region assignment, excluded from aggregation:\n\n")
		for _, st := range in.Gaps.States() {
			fmt.Fprintf(b, "  - %s (%d rows)\n", st, in.Gaps.Count(st))
		}
		b.WriteString("\n")
	}

	if in.Tidy != nil {
		fmt.Fprintf(b, "County-level observations: %d.\n", in.Tidy.RowCount())
	}

	if in.Agg != nil {
		lo, hi := yearRange(in)
		fmt.Fprintf(b, "Regional aggregates: %d rows, years %d-%d.\n", in.Agg.RowCount(), lo, hi)
	}

	b.WriteString("\n")
}

func mdModels(b *strings.Builder, in *Input) {
	b.WriteString("## Least squares fits\n\n")

	if in.Additive != nil {
		b.WriteString("### Additive model\n\n")
		fmt.Fprintf(b, "`%s`\n\n", model.Additive())
		mdOLSSummary(b, in.Additive)
		mdCoefTable(b, in.Additive.Coef, "t")
	}

	if in.Interact != nil {
		b.WriteString("### Interaction model\n\n")
		fmt.Fprintf(b, "`%s`\n\n", model.Interactions())
		mdOLSSummary(b, in.Interact)
		mdCoefTable(b, in.Interact.Coef, "t")
		mdAnovaTable(b, in.OLSAnova, "F")
	}
}

func mdOLSSummary(b *strings.Builder, fit *model.OLSFit) {
	fmt.Fprintf(b, "n = %d, p = %d, R2 = %s, adjusted R2 = %s.\n", fit.N, fit.P, f4(fit.R2), f4(fit.AdjR2))
	if fit.P > 1 {
		fmt.Fprintf(b, "F(%d, %d) = %s, p = %s.\n", fit.P-1, fit.N-fit.P, f4(fit.FStat), g4(fit.FPValue))
	}
	fmt.Fprintf(b, "Log-likelihood = %s, AIC = %s.\n\n", f4(fit.LogLik), f4(fit.AIC))
}

func mdDiagnostics(b *strings.Builder, in *Input) {
	if in.Diag == nil {
		return
	}

	b.WriteString("## Residual diagnostics, interaction model\n\n")
	b.WriteString("| test | statistic | p-value | decision |\n|---|---|---|---|\n")

	if bp := in.Diag.BreuschPagan; bp != nil {
		fmt.Fprintf(b, "| Breusch-Pagan (df=%d) | %s | %s | %s |\n",
			bp.DOF, f4(bp.Statistic), g4(bp.PValue), decision(bp.Reject(in.Diag.Alpha)))
	}

	if jb := in.Diag.JarqueBera; jb != nil {
		fmt.Fprintf(b, "| Jarque-Bera | %s | %s | %s |\n",
			f4(jb.Statistic), g4(jb.PValue), decision(jb.Reject(in.Diag.Alpha)))
	}

	fmt.Fprintf(b, "| Durbin-Watson | %s | | |\n\n", f4(in.Diag.DurbinWatson))

	b.WriteString("Per-stratum autocorrelation (residuals in year order):\n\n")
	b.WriteString("| stratum | n | lag-1 rho | Ljung-Box Q | df | p-value | decision |\n|---|---|---|---|---|---|---|\n")
	for _, g := range in.Diag.Groups {
		if g.Skipped || g.LjungBox == nil {
			fmt.Fprintf(b, "| %s | %d | | | | | skipped |\n", g.Group, g.N)
			continue
		}

		fmt.Fprintf(b, "| %s | %d | %s | %s | %d | %s | %s |\n",
			g.Group, g.N, f4(g.Rho1), f4(g.LjungBox.Statistic), g.LjungBox.DOF,
			g4(g.LjungBox.PValue), decision(g.LjungBox.Reject(in.Diag.Alpha)))
	}
	b.WriteString("\n")

	if in.Diag.GateReject {
		fmt.Fprintf(b, "Autocorrelation detected in: %s. The AR(1) GLS refit below addresses it.\n\n",
			strings.Join(in.Diag.Offenders, ", "))
	} else {
		b.WriteString("No stratum shows significant autocorrelation; the AR(1) GLS refit is reported for comparison.\n\n")
	}
}

func mdGLS(b *strings.Builder, in *Input) {
	if in.GLS == nil {
		return
	}

	fit := in.GLS

	b.WriteString("## GLS with AR(1) errors\n\n")
	fmt.Fprintf(b, "Maximum likelihood, errors AR(1) within each region-irrigation stratum.\n\n")
	fmt.Fprintf(b, "rho = %s, %s%% CI [%s, %s].\n", f4(fit.Rho),
		trimFloat(100*fit.CILevel), f4(fit.RhoCI[0]), f4(fit.RhoCI[1]))
	fmt.Fprintf(b, "Log-likelihood = %s (OLS %s), AIC = %s.\n", f4(fit.LogLik), f4(fit.OLSLogLik), f4(fit.AIC))
	fmt.Fprintf(b, "Likelihood ratio vs rho = 0: %s, p = %s.\n\n", f4(fit.LRStat), g4(fit.LRPValue))

	mdCoefTable(b, fit.Coef, "z")
	mdAnovaTable(b, in.GLSAnova, "chi2")

	if len(fit.Groups) > 0 {
		b.WriteString("Per-stratum fit:\n\n")
		b.WriteString("| stratum | n | residual sd |\n|---|---|---|\n")
		for _, g := range fit.Groups {
			fmt.Fprintf(b, "| %s | %d | %s |\n", g.Name, len(g.Resid), f4(residSD(g.Resid)))
		}
		b.WriteString("\n")
	}
}

func mdArtifacts(b *strings.Builder, in *Input) {
	b.WriteString("## Figures\n\n")
	if in.Agg != nil {
		fmt.Fprintf(b, "  - [yield by region](%s/yield.html)\n", figureDir)
		fmt.Fprintf(b, "  - [production by region](%s/production.html)\n", figureDir)
	}

	if in.Interact != nil {
		fmt.Fprintf(b, "  - [residuals vs fitted](%s/residuals.html)\n", figureDir)
		fmt.Fprintf(b, "  - [normal Q-Q](%s/qq.html)\n", figureDir)
	}

	if in.Diag != nil {
		for _, g := range in.Diag.Groups {
			if g.ACF == nil {
				continue
			}

			fmt.Fprintf(b, "  - [residual ACF, %s](%s/%s)\n", g.Group, figureDir, acfFile(g.Group))
		}
	}

	b.WriteString("\n## Tables\n\n")
	for _, t := range tableFiles(in) {
		fmt.Fprintf(b, "  - [%s](%s/%s)\n", strings.TrimSuffix(t, ".csv"), tableDir, t)
	}
	b.WriteString("\n")
}

// *********** helpers ***********

func mdCoefTable(b *strings.Builder, coef []model.Coefficient, statName string) {
	fmt.Fprintf(b, "| term | estimate | std err | %s | p-value |\n|---|---|---|---|---|\n", statName)
	for _, c := range coef {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			c.Name, f4(c.Estimate), f4(c.StdErr), f4(c.Stat), g4(c.PValue))
	}
	b.WriteString("\n")
}

func mdAnovaTable(b *strings.Builder, rows []model.AnovaRow, statName string) {
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(b, "ANOVA (Wald, by term):\n\n| term | df | %s | p-value |\n|---|---|---|---|\n", statName)
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %d | %s | %s |\n", r.Term, r.DF, f4(r.Stat), g4(r.PValue))
	}
	b.WriteString("\n")
}

func yearRange(in *Input) (lo, hi int) {
	col, e := in.Agg.Column(ingest.ColYear)
	if e != nil || col.Len() == 0 {
		return 0, 0
	}

	years := col.AsInt()
	lo, hi = years[0], years[0]
	for _, y := range years {
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}

	return lo, hi
}

func residSD(resid []float64) float64 {
	if len(resid) < 2 {
		return 0
	}

	return math.Sqrt(stat.Variance(resid, nil))
}

func decision(reject bool) string {
	if reject {
		return "reject"
	}

	return "retain"
}

func f4(x float64) string { return fmt.Sprintf("%.4f", x) }

func g4(x float64) string { return fmt.Sprintf("%.4g", x) }

// trimFloat drops trailing zeros: 95, 97.5.
func trimFloat(x float64) string {
	s := fmt.Sprintf("%.2f", x)
	s = strings.TrimRight(s, "0")

	return strings.TrimRight(s, ".")
}
