package report

import (
	"fmt"
	"math"
	"sort"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/MetalBlueberry/go-plotly/offline"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/invertedv/cornfit/diag"
)

// Plot wraps a plotly figure and its layout.
type Plot struct {
	Fig *grob.Fig
	Lay *grob.Layout
}

type Opt func(plot *Plot) *Plot

func NewPlot(opt ...Opt) *Plot {
	fig := &grob.Fig{}
	lay := &grob.Layout{}
	fig.Layout = lay
	p := &Plot{Fig: fig, Lay: lay}
	for _, o := range opt {
		o(p)
	}

	return p
}

func WithWidth(w float64) Opt {
	if w < 0.0 {
		panic(fmt.Errorf("negative width"))
	}

	return func(p *Plot) *Plot {
		p.Lay.Width = w
		return p
	}
}

func WithHeight(h float64) Opt {
	if h < 0.0 {
		panic(fmt.Errorf("negative height"))
	}

	return func(p *Plot) *Plot {
		p.Lay.Height = h
		return p
	}
}

func WithTitle(title string) Opt {
	return func(p *Plot) *Plot { p.Lay.Title = &grob.LayoutTitle{Text: title}; return p }
}

func WithLegend(show bool) Opt {
	return func(p *Plot) *Plot {
		if show {
			p.Lay.Showlegend = grob.True
		} else {
			p.Lay.Showlegend = grob.False
		}

		return p
	}
}

func WithXlabel(label string) Opt {
	return func(p *Plot) *Plot {
		if p.Lay.Xaxis == nil {
			p.Lay.Xaxis = &grob.LayoutXaxis{}
		}

		if p.Lay.Xaxis.Title == nil {
			p.Lay.Xaxis.Title = &grob.LayoutXaxisTitle{}
		}

		p.Lay.Xaxis.Title.Text = label
		return p
	}
}

func WithYlabel(label string) Opt {
	return func(p *Plot) *Plot {
		if p.Lay.Yaxis == nil {
			p.Lay.Yaxis = &grob.LayoutYaxis{}
		}

		if p.Lay.Yaxis.Title == nil {
			p.Lay.Yaxis.Title = &grob.LayoutYaxisTitle{}
		}

		p.Lay.Yaxis.Title.Text = label
		return p
	}
}

// Lines adds a line trace.
func (p *Plot) Lines(x, y []float64, seriesName, color string) {
	tr := &grob.Scatter{Name: seriesName, X: x, Y: y,
		Mode: grob.ScatterModeLines, Line: &grob.ScatterLine{Color: color}}

	p.Fig.AddTraces(tr)
}

// Markers adds a scatter trace.
func (p *Plot) Markers(x, y []float64, seriesName, color string) {
	tr := &grob.Scatter{Name: seriesName, X: x, Y: y,
		Mode: grob.ScatterModeMarkers, Marker: &grob.ScatterMarker{Color: color}}

	p.Fig.AddTraces(tr)
}

// Bars adds a bar trace.
func (p *Plot) Bars(x, y []float64, seriesName, color string) {
	tr := &grob.Bar{Name: seriesName, X: x, Y: y,
		Marker: &grob.BarMarker{Color: color}}

	p.Fig.AddTraces(tr)
}

// Write renders the figure to an offline HTML file.
func (p *Plot) Write(fileName string) {
	offline.ToHtml(p.Fig, fileName)
}

// *********** Pipeline charts ***********

// palette cycles over repeated series.
var palette = []string{"steelblue", "firebrick", "seagreen", "darkorange",
	"purple", "saddlebrown", "teal", "gray"}

// Series is one named line of a time-series chart.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// TimeSeriesPlot draws one line per series, each sorted by x.
func TimeSeriesPlot(title, ylab string, series []Series) *Plot {
	p := NewPlot(WithTitle(title), WithXlabel("year"), WithYlabel(ylab), WithLegend(true))

	for ind, s := range series {
		x := make([]float64, len(s.X))
		y := make([]float64, len(s.Y))
		copy(x, s.X)
		copy(y, s.Y)

		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = i
		}

		sort.Slice(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

		xs := make([]float64, len(x))
		ys := make([]float64, len(y))
		for i, id := range idx {
			xs[i], ys[i] = x[id], y[id]
		}

		p.Lines(xs, ys, s.Name, palette[ind%len(palette)])
	}

	return p
}

// ResidualPlot is the fitted-versus-residual scatter with a zero line.
func ResidualPlot(title string, fitted, resid []float64) *Plot {
	p := NewPlot(WithTitle(title), WithXlabel("fitted"), WithYlabel("residual"), WithLegend(false))
	p.Markers(fitted, resid, "residuals", palette[0])

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range fitted {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	p.Lines([]float64{lo, hi}, []float64{0, 0}, "zero", "gray")

	return p
}

// QQPlot compares the standardized residual quantiles to the normal ones.
func QQPlot(title string, resid []float64) *Plot {
	n := len(resid)

	std := make([]float64, n)
	copy(std, resid)

	mean := stat.Mean(std, nil)
	sd := math.Sqrt(stat.Variance(std, nil))
	if sd == 0 {
		sd = 1
	}

	for ind := range std {
		std[ind] = (std[ind] - mean) / sd
	}

	sort.Float64s(std)

	theo := make([]float64, n)
	for ind := 0; ind < n; ind++ {
		theo[ind] = distuv.UnitNormal.Quantile((float64(ind) + 0.5) / float64(n))
	}

	p := NewPlot(WithTitle(title), WithXlabel("normal quantile"), WithYlabel("residual quantile"), WithLegend(false))
	p.Markers(theo, std, "residuals", palette[0])

	if n > 0 {
		lo, hi := theo[0], theo[n-1]
		p.Lines([]float64{lo, hi}, []float64{lo, hi}, "reference", "gray")
	}

	return p
}

// ACFPlot draws one group's autocorrelation bars with its confidence bounds.
func ACFPlot(title string, acf *diag.ACFResult) *Plot {
	p := NewPlot(WithTitle(title), WithXlabel("lag"), WithYlabel("acf"), WithLegend(false))

	lags := make([]float64, len(acf.Lags))
	for ind, l := range acf.Lags {
		lags[ind] = float64(l)
	}

	p.Bars(lags, acf.Values, "acf", palette[0])

	if len(lags) > 0 {
		lo, hi := lags[0]-0.5, lags[len(lags)-1]+0.5
		p.Lines([]float64{lo, hi}, []float64{acf.ConfBound, acf.ConfBound}, "bound", "gray")
		p.Lines([]float64{lo, hi}, []float64{-acf.ConfBound, -acf.ConfBound}, "bound", "gray")
	}

	return p
}
