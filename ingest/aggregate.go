package ingest

import (
	"fmt"
	"strings"

	"github.com/invertedv/cornfit/frame"
	"github.com/invertedv/cornfit/region"
)

// Aggregate joins the tidy observations to the region lookup and sums
// production and acres within (year, region, commodity, croptype, irrigated),
// recomputing yield from the summed totals.  Yield is a rate built from two
// extensive quantities: the sums are divided, never the per-row yields
// averaged.  States the lookup misses are excluded from the output and
// reported in the GapReport.  The output carries a row count column "n".
func Aggregate(tidy *frame.Frame, regions *region.Map) (*frame.Frame, *GapReport, error) {
	need := []string{ColYear, ColState, ColCommodity, ColCropType, ColIrrigated, ColAcres, ColProduction}
	if !tidy.HasColumns(need...) {
		return nil, nil, fmt.Errorf("tidy frame is missing one of %s", strings.Join(need, ", "))
	}

	var (
		stateCol *frame.Col
		e        error
	)

	if stateCol, e = tidy.Column(ColState); e != nil {
		return nil, nil, e
	}

	gaps := NewGapReport()
	keep := make([]bool, tidy.RowCount())
	var regionVals []string

	for row := 0; row < tidy.RowCount(); row++ {
		reg, ok := regions.Lookup(stateCol.ElementString(row))
		if !ok {
			gaps.Add(stateCol.ElementString(row))
			continue
		}

		keep[row] = true
		regionVals = append(regionVals, reg)
	}

	var matched *frame.Frame
	if matched, e = tidy.Where(keep); e != nil {
		return nil, nil, e
	}

	var regionVec *frame.Vector
	if regionVec, e = frame.Category(regions.Regions(), regionVals...); e != nil {
		return nil, nil, e
	}

	var regionCol *frame.Col
	if regionCol, e = frame.NewCol(ColRegion, regionVec); e != nil {
		return nil, nil, e
	}

	if e = matched.AppendColumn(regionCol); e != nil {
		return nil, nil, e
	}

	var agg *frame.Frame
	if agg, e = matched.By(
		[]string{ColYear, ColRegion, ColCommodity, ColCropType, ColIrrigated},
		[]string{ColAcres, ColProduction}); e != nil {
		return nil, nil, e
	}

	var acresCol, prodCol *frame.Col
	if acresCol, e = agg.Column(ColAcres); e != nil {
		return nil, nil, e
	}
	if prodCol, e = agg.Column(ColProduction); e != nil {
		return nil, nil, e
	}

	// acres sums are positive: Reshape drops keys without positive acres
	yield := frame.MakeVector(frame.DTfloat, agg.RowCount())
	for row := 0; row < agg.RowCount(); row++ {
		yield.SetFloat(prodCol.ElementFloat(row)/acresCol.ElementFloat(row), row)
	}

	var yieldCol *frame.Col
	if yieldCol, e = frame.NewCol(ColYield, yield); e != nil {
		return nil, nil, e
	}

	if e = agg.AppendColumn(yieldCol); e != nil {
		return nil, nil, e
	}

	return agg, gaps, nil
}
