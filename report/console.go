package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Console prints the run summary to w: data counts, diagnostic verdicts, and
// the model comparison.
func Console(w io.Writer, in *Input) {
	head := color.New(color.FgCyan, color.Bold)
	okc := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()

	verdict := func(reject bool) string {
		if reject {
			return bad("FAIL")
		}

		return okc("pass")
	}

	_, _ = head.Fprintln(w, "corn yield: exploratory models")
	fmt.Fprintf(w, "input: %s\n\n", in.InputFile)

	// *********** data ***********

	if in.Rejects != nil {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Stage", "Rows"})
		table.Append([]string{"read", strconv.Itoa(in.Rejects.Total())})
		table.Append([]string{"rejected", strconv.Itoa(in.Rejects.Rejected())})
		if in.Tidy != nil {
			table.Append([]string{"observations", strconv.Itoa(in.Tidy.RowCount())})
		}
		if in.Agg != nil {
			table.Append([]string{"aggregates", strconv.Itoa(in.Agg.RowCount())})
		}
		if in.Gaps != nil {
			table.Append([]string{"unmatched state rows", strconv.Itoa(in.Gaps.Total())})
		}
		table.Render()
		fmt.Fprintln(w)
	}

	// *********** diagnostics ***********

	if in.Diag != nil {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Test", "Stratum", "Statistic", "P-Value", "Verdict"})

		if bp := in.Diag.BreuschPagan; bp != nil {
			table.Append([]string{"breusch-pagan", "", f4(bp.Statistic), g4(bp.PValue), verdict(bp.Reject(in.Diag.Alpha))})
		}

		if jb := in.Diag.JarqueBera; jb != nil {
			table.Append([]string{"jarque-bera", "", f4(jb.Statistic), g4(jb.PValue), verdict(jb.Reject(in.Diag.Alpha))})
		}

		table.Append([]string{"durbin-watson", "", f4(in.Diag.DurbinWatson), "", ""})

		for _, g := range in.Diag.Groups {
			if g.Skipped || g.LjungBox == nil {
				table.Append([]string{"ljung-box", g.Group, "", "", "skipped"})
				continue
			}

			table.Append([]string{"ljung-box", g.Group, f4(g.LjungBox.Statistic),
				g4(g.LjungBox.PValue), verdict(g.LjungBox.Reject(in.Diag.Alpha))})
		}

		table.Render()

		if in.Diag.GateReject {
			fmt.Fprintf(w, "%s %s\n\n", bad("autocorrelation detected:"), strings.Join(in.Diag.Offenders, ", "))
		} else {
			fmt.Fprintf(w, "%s\n\n", okc("no residual autocorrelation detected"))
		}
	}

	// *********** models ***********

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model", "LogLik", "AIC"})
	if in.Additive != nil {
		table.Append([]string{"ols additive", f4(in.Additive.LogLik), f4(in.Additive.AIC)})
	}
	if in.Interact != nil {
		table.Append([]string{"ols interactions", f4(in.Interact.LogLik), f4(in.Interact.AIC)})
	}
	if in.GLS != nil {
		table.Append([]string{"gls ar(1)", f4(in.GLS.LogLik), f4(in.GLS.AIC)})
	}
	table.Render()

	if in.GLS != nil {
		fmt.Fprintf(w, "rho = %s, %s%% CI [%s, %s], LR p = %s\n",
			f4(in.GLS.Rho), trimFloat(100*in.GLS.CILevel),
			f4(in.GLS.RhoCI[0]), f4(in.GLS.RhoCI[1]), g4(in.GLS.LRPValue))
	}
}
