package ingest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invertedv/cornfit/frame"
	"github.com/invertedv/cornfit/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, lines []string) string {
	t.Helper()

	fileName := filepath.Join(t.TempDir(), "corn.csv")
	require.NoError(t, os.WriteFile(fileName, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	return fileName
}

type rawRow struct {
	year  int
	state string
	item  string
	value string
}

// makeRaw builds the frame Read would produce from rows, with fixed district,
// district code, county and commodity.
func makeRaw(t *testing.T, rows []rawRow) *frame.Frame {
	t.Helper()

	year := frame.MakeVector(frame.DTint, 0)
	state := frame.MakeVector(frame.DTstring, 0)
	district := frame.MakeVector(frame.DTstring, 0)
	code := frame.MakeVector(frame.DTstring, 0)
	county := frame.MakeVector(frame.DTstring, 0)
	commodity := frame.MakeVector(frame.DTstring, 0)
	item := frame.MakeVector(frame.DTstring, 0)
	value := frame.MakeVector(frame.DTstring, 0)

	for _, r := range rows {
		year.Append(r.year)
		state.Append(r.state)
		district.Append("CENTRAL")
		code.Append("50")
		county.Append("BUFFALO")
		commodity.Append("CORN")
		item.Append(r.item)
		value.Append(r.value)
	}

	names := []string{ColYear, ColState, ColDistrict, ColDistrictCode, ColCounty, ColCommodity, ColDataItem, ColValue}
	vecs := []*frame.Vector{year, state, district, code, county, commodity, item, value}

	var cols []*frame.Col
	for ind := 0; ind < len(names); ind++ {
		col, e := frame.NewCol(names[ind], vecs[ind])
		require.NoError(t, e)
		cols = append(cols, col)
	}

	raw, e := frame.NewFrame(cols...)
	require.NoError(t, e)

	return raw
}

func TestRead(t *testing.T) {
	lines := []string{
		"Year,State,Ag District,Ag District Code,County,Commodity,Data Item,Value",
		`2001,NEBRASKA,CENTRAL,50,BUFFALO,CORN,"CORN, GRAIN, IRRIGATED - ACRES HARVESTED","91,500"`,
		`2001,NEBRASKA,CENTRAL,50,BUFFALO,CORN,"CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU","16,830,000"`,
		`junk,NEBRASKA,CENTRAL,50,BUFFALO,CORN,"CORN, GRAIN, IRRIGATED - ACRES HARVESTED","100"`,
		`2001,KANSAS,NW,10`,
	}

	rep := NewRejectReport()
	raw, e := Read(writeCSV(t, lines), frame.NewFiles(), rep)
	require.NoError(t, e)

	assert.Equal(t, 2, raw.RowCount())
	assert.Equal(t, 4, rep.Total())
	assert.Equal(t, 1, rep.Count(RejectValue))
	assert.Equal(t, 1, rep.Count(RejectRecord))

	yearCol, e := raw.Column(ColYear)
	require.NoError(t, e)
	assert.Equal(t, []int{2001, 2001}, yearCol.AsInt())

	// Value keeps its thousands separators for Reshape
	valCol, e := raw.Column(ColValue)
	require.NoError(t, e)
	assert.Equal(t, "91,500", valCol.ElementString(0))
}

func TestRead_MissingColumn(t *testing.T) {
	lines := []string{
		"Year,State,Ag District,Ag District Code,County,Commodity,Data Item",
		`2001,NEBRASKA,CENTRAL,50,BUFFALO,CORN,"CORN, GRAIN, IRRIGATED - ACRES HARVESTED"`,
	}

	_, e := Read(writeCSV(t, lines), frame.NewFiles(), NewRejectReport())
	assert.ErrorContains(t, e, "Value")
}

func TestParseItem(t *testing.T) {
	tests := []struct {
		item      string
		kind      RejectKind
		irrigated string
		variable  string
		unit      string
	}{
		{"CORN, GRAIN, IRRIGATED - ACRES HARVESTED", 0, "IRRIGATED", "ACRES HARVESTED", ""},
		{"CORN, GRAIN, NON-IRRIGATED - PRODUCTION, MEASURED IN BU", 0, "NON-IRRIGATED", "PRODUCTION", "MEASURED IN BU"},
		{"CORN, GRAIN - ACRES HARVESTED", RejectDataItem, "", "", ""},
		{"CORN, GRAIN, SILAGE, IRRIGATED - ACRES HARVESTED", RejectDataItem, "", "", ""},
		{"CORN GRAIN IRRIGATED ACRES HARVESTED", RejectDataItem, "", "", ""},
		{"CORN, GRAIN, FERTIGATED - ACRES HARVESTED", RejectLevel, "", "", ""},
		{"CORN, GRAIN, IRRIGATED - YIELD, MEASURED IN BU / ACRE", RejectLevel, "", "", ""},
	}

	for _, tc := range tests {
		di, kind := parseItem(tc.item)
		if tc.kind != 0 {
			assert.Nil(t, di, tc.item)
			assert.Equal(t, tc.kind, kind, tc.item)
			continue
		}

		require.NotNil(t, di, tc.item)
		assert.Equal(t, "CORN", di.commodity, tc.item)
		assert.Equal(t, "GRAIN", di.croptype, tc.item)
		assert.Equal(t, tc.irrigated, di.irrigated, tc.item)
		assert.Equal(t, tc.variable, di.variable, tc.item)
		assert.Equal(t, tc.unit, di.unit, tc.item)
	}
}

func TestNormValue(t *testing.T) {
	tests := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1,234,567", 1234567, true},
		{" 42 ", 42, true},
		{"1.5", 1.5, true},
		{"(D)", 0, false},
		{"(Z)", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		x, ok := normValue(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.out, x, tc.in)
		}
	}
}

func TestReshape(t *testing.T) {
	rows := []rawRow{
		{2001, "NEBRASKA", "CORN, GRAIN, IRRIGATED - ACRES HARVESTED", "1,000"},
		{2001, "NEBRASKA", "CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU", "150,000"},
		{2001, "NEBRASKA", "CORN, GRAIN, NON-IRRIGATED - ACRES HARVESTED", "2,000"},
		{2001, "NEBRASKA", "CORN, GRAIN, NON-IRRIGATED - PRODUCTION, MEASURED IN BU", "100,000"},
		{2000, "NEBRASKA", "CORN, GRAIN, IRRIGATED - ACRES HARVESTED", "500"},
		{2000, "NEBRASKA", "CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU", "60,000"},
	}

	rep := NewRejectReport()
	tidy, e := Reshape(makeRaw(t, rows), rep)
	require.NoError(t, e)
	assert.True(t, rep.Empty())
	require.Equal(t, 3, tidy.RowCount())

	irrCol, e := tidy.Column(ColIrrigated)
	require.NoError(t, e)
	assert.Equal(t, frame.DTcategory, irrCol.VectorType())
	assert.Equal(t, IrrigationLevels, irrCol.Levels())

	// canonical order: year, then the key columns
	yearCol, e := tidy.Column(ColYear)
	require.NoError(t, e)
	assert.Equal(t, []int{2000, 2001, 2001}, yearCol.AsInt())
	assert.Equal(t, []string{"IRRIGATED", "IRRIGATED", "NON-IRRIGATED"}, irrCol.AsString())

	yieldCol, e := tidy.Column(ColYield)
	require.NoError(t, e)
	assert.InDelta(t, 120.0, yieldCol.ElementFloat(0), 1e-12)
	assert.InDelta(t, 150.0, yieldCol.ElementFloat(1), 1e-12)
	assert.InDelta(t, 50.0, yieldCol.ElementFloat(2), 1e-12)
}

func TestReshape_Rejects(t *testing.T) {
	rows := []rawRow{
		{2001, "NEBRASKA", "CORN, GRAIN, IRRIGATED - ACRES HARVESTED", "100"},
		{2001, "NEBRASKA", "CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU", "5,000"},
		// same key, second acres value
		{2001, "NEBRASKA", "CORN, GRAIN, IRRIGATED - ACRES HARVESTED", "999"},
		{2001, "NEBRASKA", "CORN, GRAIN, FERTIGATED - ACRES HARVESTED", "10"},
		{2001, "NEBRASKA", "CORN, GRAIN, IRRIGATED - YIELD, MEASURED IN BU / ACRE", "50"},
		{2001, "NEBRASKA", "CORN, GRAIN - ACRES HARVESTED", "10"},
		{2001, "KANSAS", "CORN, GRAIN, IRRIGATED - ACRES HARVESTED", "(D)"},
		{2001, "TEXAS", "CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU", "7,000"},
		{2001, "COLORADO", "CORN, GRAIN, IRRIGATED - ACRES HARVESTED", "0"},
		{2001, "COLORADO", "CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU", "3,000"},
	}

	rep := NewRejectReport()
	tidy, e := Reshape(makeRaw(t, rows), rep)
	require.NoError(t, e)

	assert.Equal(t, 1, rep.Count(RejectDuplicate))
	assert.Equal(t, 2, rep.Count(RejectLevel))
	assert.Equal(t, 1, rep.Count(RejectDataItem))
	assert.Equal(t, 1, rep.Count(RejectValue))
	assert.Equal(t, 1, rep.Count(RejectUnpaired))
	assert.Equal(t, 1, rep.Count(RejectZeroAcres))

	// only the complete NEBRASKA key survives; the first acres value wins
	require.Equal(t, 1, tidy.RowCount())

	acresCol, e := tidy.Column(ColAcres)
	require.NoError(t, e)
	assert.InDelta(t, 100.0, acresCol.ElementFloat(0), 1e-12)

	yieldCol, e := tidy.Column(ColYield)
	require.NoError(t, e)
	for row := 0; row < tidy.RowCount(); row++ {
		assert.False(t, math.IsInf(yieldCol.ElementFloat(row), 0))
	}
}

func TestReshape_ExampleCap(t *testing.T) {
	var rows []rawRow
	for ind := 0; ind < 7; ind++ {
		rows = append(rows, rawRow{2001, "NEBRASKA", fmt.Sprintf("JUNK %d", ind), "1"})
	}

	rep := NewRejectReport()
	_, e := Reshape(makeRaw(t, rows), rep)
	require.NoError(t, e)

	assert.Equal(t, 7, rep.Count(RejectDataItem))
	assert.Len(t, rep.Examples(RejectDataItem), 5)
}

type tidyRow struct {
	year       int
	state      string
	irrigated  string
	acres      float64
	production float64
}

func makeTidy(t *testing.T, rows []tidyRow) *frame.Frame {
	t.Helper()

	year := frame.MakeVector(frame.DTint, 0)
	state := frame.MakeVector(frame.DTstring, 0)
	district := frame.MakeVector(frame.DTstring, 0)
	county := frame.MakeVector(frame.DTstring, 0)
	commodity := frame.MakeVector(frame.DTstring, 0)
	croptype := frame.MakeVector(frame.DTstring, 0)
	acres := frame.MakeVector(frame.DTfloat, 0)
	production := frame.MakeVector(frame.DTfloat, 0)
	yield := frame.MakeVector(frame.DTfloat, 0)

	irrigated, e := frame.Category(IrrigationLevels)
	require.NoError(t, e)

	for _, r := range rows {
		year.Append(r.year)
		state.Append(r.state)
		district.Append("CENTRAL")
		county.Append("BUFFALO")
		commodity.Append("CORN")
		croptype.Append("GRAIN")
		irrigated.Append(r.irrigated)
		acres.Append(r.acres)
		production.Append(r.production)
		yield.Append(r.production / r.acres)
	}

	names := []string{ColYear, ColState, ColDistrict, ColCounty, ColCommodity, ColCropType,
		ColIrrigated, ColAcres, ColProduction, ColYield}
	vecs := []*frame.Vector{year, state, district, county, commodity, croptype,
		irrigated, acres, production, yield}

	var cols []*frame.Col
	for ind := 0; ind < len(names); ind++ {
		col, e2 := frame.NewCol(names[ind], vecs[ind])
		require.NoError(t, e2)
		cols = append(cols, col)
	}

	tidy, e := frame.NewFrame(cols...)
	require.NoError(t, e)

	return tidy
}

func TestAggregate(t *testing.T) {
	rows := []tidyRow{
		{2001, "NEBRASKA", "IRRIGATED", 100, 15000}, // yield 150
		{2001, "KANSAS", "IRRIGATED", 50, 4000},     // yield 80
		{2001, "IOWA", "IRRIGATED", 75, 9000},       // not in the lookup
	}

	agg, gaps, e := Aggregate(makeTidy(t, rows), region.Default())
	require.NoError(t, e)

	assert.Equal(t, []string{"IOWA"}, gaps.States())
	assert.Equal(t, 1, gaps.Count("IOWA"))

	require.Equal(t, 1, agg.RowCount())

	regCol, e := agg.Column(ColRegion)
	require.NoError(t, e)
	assert.Equal(t, frame.DTcategory, regCol.VectorType())
	assert.Equal(t, "NORTHERN PLAINS", regCol.ElementString(0))

	// summed then divided, not the mean of per-row yields
	yieldCol, e := agg.Column(ColYield)
	require.NoError(t, e)
	assert.InDelta(t, 19000.0/150.0, yieldCol.ElementFloat(0), 1e-12)
	assert.NotEqual(t, (150.0+80.0)/2, yieldCol.ElementFloat(0))

	nCol, e := agg.Column("n")
	require.NoError(t, e)
	assert.Equal(t, 2, nCol.ElementInt(0))
}

func TestAggregate_AllUnmatched(t *testing.T) {
	rows := []tidyRow{
		{2001, "IOWA", "IRRIGATED", 75, 9000},
		{2002, "IOWA", "IRRIGATED", 80, 9500},
	}

	agg, gaps, e := Aggregate(makeTidy(t, rows), region.Default())
	require.NoError(t, e)

	assert.Equal(t, 0, agg.RowCount())
	assert.Equal(t, 2, gaps.Total())
}
