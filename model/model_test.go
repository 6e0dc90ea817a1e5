package model

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/invertedv/cornfit/frame"
	"github.com/invertedv/cornfit/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numFrame(t *testing.T, names []string, vecs []*frame.Vector) *frame.Frame {
	t.Helper()

	var cols []*frame.Col
	for ind := 0; ind < len(names); ind++ {
		col, e := frame.NewCol(names[ind], vecs[ind])
		require.NoError(t, e)
		cols = append(cols, col)
	}

	df, e := frame.NewFrame(cols...)
	require.NoError(t, e)

	return df
}

// two years x two regions x two irrigation statuses
func cornFrame(t *testing.T) *frame.Frame {
	t.Helper()

	years := frame.Ints(2000, 2000, 2000, 2000, 2001, 2001, 2001, 2001)

	regions, e := frame.Category([]string{"MOUNTAIN", "PACIFIC"},
		"MOUNTAIN", "MOUNTAIN", "PACIFIC", "PACIFIC", "MOUNTAIN", "MOUNTAIN", "PACIFIC", "PACIFIC")
	require.NoError(t, e)

	irr, e := frame.Category(ingest.IrrigationLevels,
		"IRRIGATED", "NON-IRRIGATED", "IRRIGATED", "NON-IRRIGATED",
		"IRRIGATED", "NON-IRRIGATED", "IRRIGATED", "NON-IRRIGATED")
	require.NoError(t, e)

	yield := frame.Floats(100.1, 79.9, 110.0, 90.2, 102.0, 81.8, 112.1, 92.0)

	return numFrame(t,
		[]string{ingest.ColYear, ingest.ColRegion, ingest.ColIrrigated, ingest.ColYield},
		[]*frame.Vector{years, regions, irr, yield})
}

func TestBuildDesign_Additive(t *testing.T) {
	d, e := BuildDesign(cornFrame(t), Additive(), false)
	require.NoError(t, e)

	assert.Equal(t, []string{"(Intercept)", "year", "region=PACIFIC", "irrigated=NON-IRRIGATED"}, d.Names)
	assert.Equal(t, []Block{
		{Term: "year", Start: 1, N: 1},
		{Term: "region", Start: 2, N: 1},
		{Term: "irrigated", Start: 3, N: 1},
	}, d.Blocks)
	assert.Empty(t, d.Dropped)

	// (2000, MOUNTAIN, IRRIGATED) and (2001, PACIFIC, NON-IRRIGATED)
	assert.Equal(t, []float64{1, 2000, 0, 0}, []float64{d.X.At(0, 0), d.X.At(0, 1), d.X.At(0, 2), d.X.At(0, 3)})
	assert.Equal(t, []float64{1, 2001, 1, 1}, []float64{d.X.At(7, 0), d.X.At(7, 1), d.X.At(7, 2), d.X.At(7, 3)})
	assert.Equal(t, 100.1, d.Y[0])
}

func TestBuildDesign_Centered(t *testing.T) {
	d, e := BuildDesign(cornFrame(t), Additive(), true)
	require.NoError(t, e)

	assert.Equal(t, 2000.5, d.Centers["year"])
	assert.Equal(t, -0.5, d.X.At(0, 1))
	assert.Equal(t, 0.5, d.X.At(7, 1))
}

func TestBuildDesign_Interactions(t *testing.T) {
	d, e := BuildDesign(cornFrame(t), Interactions(), false)
	require.NoError(t, e)

	_, p := d.X.Dims()
	assert.Equal(t, 7, p)

	want := []string{"(Intercept)", "year", "region=PACIFIC", "irrigated=NON-IRRIGATED",
		"year:region=PACIFIC", "year:irrigated=NON-IRRIGATED",
		"region=PACIFIC:irrigated=NON-IRRIGATED"}
	assert.Equal(t, want, d.Names)

	require.Len(t, d.Blocks, 6)
	assert.Equal(t, "year:region", d.Blocks[3].Term)
	assert.Equal(t, "region:irrigated", d.Blocks[5].Term)

	// (2001, PACIFIC, NON-IRRIGATED): products of the parent columns
	assert.Equal(t, 2001.0, d.X.At(7, 4))
	assert.Equal(t, 2001.0, d.X.At(7, 5))
	assert.Equal(t, 1.0, d.X.At(7, 6))
}

func TestBuildDesign_DropsSingleLevel(t *testing.T) {
	years := frame.Ints(2000, 2001, 2000, 2001)

	regions, e := frame.Category([]string{"MOUNTAIN", "PACIFIC"}, "MOUNTAIN", "MOUNTAIN", "MOUNTAIN", "MOUNTAIN")
	require.NoError(t, e)

	irr, e := frame.Category(ingest.IrrigationLevels, "IRRIGATED", "IRRIGATED", "NON-IRRIGATED", "NON-IRRIGATED")
	require.NoError(t, e)

	yield := frame.Floats(100, 102, 80, 82)

	df := numFrame(t,
		[]string{ingest.ColYear, ingest.ColRegion, ingest.ColIrrigated, ingest.ColYield},
		[]*frame.Vector{years, regions, irr, yield})

	d, e := BuildDesign(df, Interactions(), false)
	require.NoError(t, e)

	assert.Equal(t, []string{"region"}, d.Dropped)
	assert.Equal(t, []string{"(Intercept)", "year", "irrigated=NON-IRRIGATED", "year:irrigated=NON-IRRIGATED"}, d.Names)
}

// y = 0.5 + 1.6x fits x = 1..4, y = (2, 4, 5, 7) with RSS 0.2 and TSS 13.
func TestFitOLS(t *testing.T) {
	df := numFrame(t, []string{"x", "y"},
		[]*frame.Vector{frame.Floats(1, 2, 3, 4), frame.Floats(2, 4, 5, 7)})

	d, e := BuildDesign(df, &Spec{Response: "y", Continuous: []string{"x"}}, false)
	require.NoError(t, e)

	fit, e := FitOLS(d)
	require.NoError(t, e)

	assert.InDelta(t, 0.5, fit.Coef[0].Estimate, 1e-10)
	assert.InDelta(t, 1.6, fit.Coef[1].Estimate, 1e-10)

	wantFitted := []float64{2.1, 3.7, 5.3, 6.9}
	for ind := range wantFitted {
		assert.InDelta(t, wantFitted[ind], fit.Fitted[ind], 1e-10)
		assert.InDelta(t, df.Row(ind)[1].(float64)-wantFitted[ind], fit.Resid[ind], 1e-10)
	}

	assert.InDelta(t, 0.2, fit.RSS, 1e-10)
	assert.InDelta(t, 13.0, fit.TSS, 1e-10)
	assert.InDelta(t, 1-0.2/13.0, fit.R2, 1e-10)

	// se(b) = sqrt(sigma2/Sxx) = sqrt(0.1/5)
	assert.InDelta(t, math.Sqrt(0.02), fit.Coef[1].StdErr, 1e-10)
	assert.InDelta(t, 1.6/math.Sqrt(0.02), fit.Coef[1].Stat, 1e-9)
	assert.Greater(t, fit.Coef[1].PValue, 0.0)
	assert.Less(t, fit.Coef[1].PValue, 0.01)

	assert.InDelta(t, 128.0, fit.FStat, 1e-8)

	// ML loglik with sigma2 = RSS/n = 0.05
	wantLL := -0.5 * 4 * (math.Log(2*math.Pi) + math.Log(0.05) + 1)
	assert.InDelta(t, wantLL, fit.LogLik, 1e-10)
	assert.InDelta(t, -2*wantLL+2*3, fit.AIC, 1e-10)
}

func TestFitOLS_RankDeficient(t *testing.T) {
	df := numFrame(t, []string{"x", "x2", "y"},
		[]*frame.Vector{frame.Floats(1, 2, 3, 4, 5), frame.Floats(1, 2, 3, 4, 5), frame.Floats(2, 4, 5, 7, 9)})

	d, e := BuildDesign(df, &Spec{Response: "y", Continuous: []string{"x", "x2"}}, false)
	require.NoError(t, e)

	_, e = FitOLS(d)
	assert.ErrorIs(t, e, ErrFitFailed)
}

func TestOLS_Anova(t *testing.T) {
	d, e := BuildDesign(cornFrame(t), Additive(), false)
	require.NoError(t, e)

	fit, e := FitOLS(d)
	require.NoError(t, e)

	rows, e := fit.Anova()
	require.NoError(t, e)
	require.Len(t, rows, 3)

	// a single-df Wald F equals the squared t of its coefficient
	assert.Equal(t, "year", rows[0].Term)
	assert.InDelta(t, fit.Coef[1].Stat*fit.Coef[1].Stat, rows[0].Stat, 1e-9)
	assert.InDelta(t, fit.Coef[3].Stat*fit.Coef[3].Stat, rows[2].Stat, 1e-9)
}

func seqRows(lo, hi int) []int {
	var rows []int
	for ind := lo; ind < hi; ind++ {
		rows = append(rows, ind)
	}

	return rows
}

// two groups of nPer years each, linear trend plus AR(1) noise
func simDesign(t *testing.T, rho float64, nPer int, seed int64) (*Design, []Group) {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))

	tv := frame.MakeVector(frame.DTfloat, 0)
	gv := frame.MakeVector(frame.DTstring, 0)
	yv := frame.MakeVector(frame.DTfloat, 0)

	for g := 0; g < 2; g++ {
		var eps float64
		for i := 0; i < nPer; i++ {
			if i == 0 {
				eps = rng.NormFloat64()
				if rho != 0 {
					eps /= math.Sqrt(1 - rho*rho)
				}
			} else {
				eps = rho*eps + rng.NormFloat64()
			}

			tv.Append(float64(i))
			gv.Append(fmt.Sprintf("g%d", g))
			yv.Append(10 + 0.5*float64(i) + 5*float64(g) + eps)
		}
	}

	df := numFrame(t, []string{"t", "g", "y"}, []*frame.Vector{tv, gv, yv})

	d, e := BuildDesign(df, &Spec{Response: "y", Continuous: []string{"t"}, Categorical: []string{"g"}}, false)
	require.NoError(t, e)

	groups := []Group{
		{Name: "g0", Rows: seqRows(0, nPer)},
		{Name: "g1", Rows: seqRows(nPer, 2*nPer)},
	}

	return d, groups
}

func TestFitGLS(t *testing.T) {
	d, groups := simDesign(t, 0.7, 40, 21)

	fit, e := FitGLS(d, groups, 0.05)
	require.NoError(t, e)

	assert.Greater(t, fit.Rho, 0.3)
	assert.Less(t, fit.Rho, 0.95)
	assert.Less(t, fit.RhoCI[0], fit.Rho)
	assert.Greater(t, fit.RhoCI[1], fit.Rho)
	assert.InDelta(t, 0.95, fit.CILevel, 1e-12)

	// the rho = 0 point of the likelihood is the OLS loglik
	ols, e := FitOLS(d)
	require.NoError(t, e)
	assert.InDelta(t, ols.LogLik, fit.OLSLogLik, 1e-8)

	assert.GreaterOrEqual(t, fit.LogLik+1e-8, fit.OLSLogLik)
	assert.GreaterOrEqual(t, fit.LRStat, 0.0)
	assert.Less(t, fit.LRPValue, 0.05)
	assert.InDelta(t, -2*fit.LogLik+2*float64(fit.P+2), fit.AIC, 1e-10)

	// fitted + residual reproduces the response, in input order
	require.Len(t, fit.Fitted, fit.N)
	for row := 0; row < fit.N; row++ {
		assert.InDelta(t, d.Y[row], fit.Fitted[row]+fit.Resid[row], 1e-10)
	}

	require.Len(t, fit.Groups, 2)
	assert.Equal(t, "g0", fit.Groups[0].Name)
	assert.Len(t, fit.Groups[0].Resid, 40)
	assert.Equal(t, fit.Resid[40], fit.Groups[1].Resid[0])

	rows, e := fit.Anova()
	require.NoError(t, e)
	require.Len(t, rows, 2)
	assert.Less(t, rows[0].PValue, 0.05) // the trend is real
}

func TestFitGLS_WhiteNoise(t *testing.T) {
	d, groups := simDesign(t, 0, 40, 33)

	fit, e := FitGLS(d, groups, 0.05)
	require.NoError(t, e)

	assert.Less(t, math.Abs(fit.Rho), 0.5)
	assert.Greater(t, fit.LRPValue, 1e-4)
}

func TestFitGLS_SingletonGroup(t *testing.T) {
	d, groups := simDesign(t, 0.6, 10, 7)

	// split g1 into a 9-row group and a singleton
	groups = []Group{
		groups[0],
		{Name: "g1", Rows: groups[1].Rows[:9]},
		{Name: "g1b", Rows: groups[1].Rows[9:]},
	}

	fit, e := FitGLS(d, groups, 0.05)
	require.NoError(t, e)

	require.Len(t, fit.Groups, 3)
	assert.Len(t, fit.Groups[2].Resid, 1)
}

func TestFitGLS_NoConsecutive(t *testing.T) {
	d, _ := simDesign(t, 0, 3, 5)

	var all []Group
	for row := 0; row < 6; row++ {
		all = append(all, Group{Name: fmt.Sprintf("r%d", row), Rows: []int{row}})
	}

	_, e := FitGLS(d, all, 0.05)
	assert.ErrorIs(t, e, ErrFitFailed)
}

func TestCheckGroups(t *testing.T) {
	assert.Error(t, checkGroups([]Group{{Name: "a", Rows: []int{0, 1}}, {Name: "b", Rows: []int{1}}}, 2))
	assert.Error(t, checkGroups([]Group{{Name: "a", Rows: []int{0}}}, 2))
	assert.Error(t, checkGroups([]Group{{Name: "a", Rows: []int{0, 5}}}, 2))
	assert.NoError(t, checkGroups([]Group{{Name: "a", Rows: []int{1, 0}}}, 2))
}

func TestWhiten(t *testing.T) {
	x := frame.Floats(1, 2, 4)
	y := frame.Floats(10, 12, 16)

	df := numFrame(t, []string{"x", "y"}, []*frame.Vector{x, y})

	d, e := BuildDesign(df, &Spec{Response: "y", Continuous: []string{"x"}}, false)
	require.NoError(t, e)

	rho := 0.5
	groups := []Group{{Name: "g", Rows: []int{0, 1, 2}}}
	xw, yw := whiten(d.X, d.Y, groups, rho)

	// first row passes unchanged
	assert.Equal(t, 1.0, xw.At(0, 0))
	assert.Equal(t, 1.0, xw.At(0, 1))
	assert.Equal(t, 10.0, yw[0])

	c := 1 / math.Sqrt(1-rho*rho)
	assert.InDelta(t, c*(1-rho*1), xw.At(1, 0), 1e-12)
	assert.InDelta(t, c*(2-rho*1), xw.At(1, 1), 1e-12)
	assert.InDelta(t, c*(12-rho*10), yw[1], 1e-12)
	assert.InDelta(t, c*(16-rho*12), yw[2], 1e-12)

	// two groups: the clock resets, so row 2 is not differenced against row 1
	split := []Group{{Name: "g0", Rows: []int{0, 1}}, {Name: "g1", Rows: []int{2}}}
	xw, yw = whiten(d.X, d.Y, split, rho)
	assert.Equal(t, 4.0, xw.At(2, 1))
	assert.Equal(t, 16.0, yw[2])
}
