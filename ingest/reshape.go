package ingest

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/invertedv/cornfit/frame"
)

// IrrigationLevels are the only values the irrigated column admits.
var IrrigationLevels = []string{"IRRIGATED", "NON-IRRIGATED"}

// measured variables the pivot keeps
const (
	varAcres      = "ACRES HARVESTED"
	varProduction = "PRODUCTION"
)

// dataItem is the parse of one composite Data Item description, e.g.
// "CORN, GRAIN, IRRIGATED - PRODUCTION, MEASURED IN BU".
type dataItem struct {
	commodity string
	croptype  string
	irrigated string
	variable  string
	unit      string
}

// parseItem splits the description on " - " into a three-part categorical
// head (commodity, croptype, irrigation) and a variable tail whose first
// comma part is the measured variable, remainder the unit.  A zero RejectKind
// means the parse succeeded.
func parseItem(s string) (*dataItem, RejectKind) {
	head, tail, found := strings.Cut(s, " - ")
	if !found {
		return nil, RejectDataItem
	}

	parts := strings.Split(head, ",")
	if len(parts) != 3 {
		return nil, RejectDataItem
	}

	di := &dataItem{
		commodity: strings.TrimSpace(parts[0]),
		croptype:  strings.TrimSpace(parts[1]),
		irrigated: strings.TrimSpace(parts[2]),
	}

	if di.commodity == "" || di.croptype == "" {
		return nil, RejectDataItem
	}

	vbl, unit, _ := strings.Cut(tail, ",")
	di.variable, di.unit = strings.TrimSpace(vbl), strings.TrimSpace(unit)

	if !slices.Contains(IrrigationLevels, di.irrigated) {
		return nil, RejectLevel
	}

	if di.variable != varAcres && di.variable != varProduction {
		return nil, RejectLevel
	}

	return di, 0
}

// normValue normalizes a NASS Value: strip thousands separators and trim.
// Suppression codes like (D) or (Z) fail the parse.
func normValue(s string) (float64, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return 0, false
	}

	x, e := strconv.ParseFloat(clean, 64)
	if e != nil {
		return 0, false
	}

	return x, true
}

// pivotKey identifies one reshaped observation.
type pivotKey struct {
	year      int
	state     string
	district  string
	county    string
	commodity string
	croptype  string
	irrigated string
}

func (k pivotKey) label() string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s",
		k.year, k.state, k.district, k.county, k.commodity, k.croptype, k.irrigated)
}

type pivotVal struct {
	acres         float64
	production    float64
	hasAcres      bool
	hasProduction bool
}

// Reshape splits Data Item, normalizes Value, and pivots so each (year,
// state, district, county, commodity, croptype, irrigated) key holds acres
// harvested and production side by side, with yield = production/acres.
//
// Keys missing one of the two measures are rejected as unpaired; keys without
// positive acres are rejected rather than yielding infinity.  A duplicate
// (key, variable) pair keeps the first value and rejects the rest.  All
// rejects land in rep with the offending raw value.
func Reshape(raw *frame.Frame, rep *RejectReport) (*frame.Frame, error) {
	need := []string{ColYear, ColState, ColDistrict, ColCounty, ColCommodity, ColDataItem, ColValue}
	if !raw.HasColumns(need...) {
		return nil, fmt.Errorf("raw frame is missing one of %s", strings.Join(need, ", "))
	}

	var (
		yearCol, stateCol, distCol, cntyCol, itemCol, valCol *frame.Col
		e                                                    error
	)

	if yearCol, e = raw.Column(ColYear); e != nil {
		return nil, e
	}
	if stateCol, e = raw.Column(ColState); e != nil {
		return nil, e
	}
	if distCol, e = raw.Column(ColDistrict); e != nil {
		return nil, e
	}
	if cntyCol, e = raw.Column(ColCounty); e != nil {
		return nil, e
	}
	if itemCol, e = raw.Column(ColDataItem); e != nil {
		return nil, e
	}
	if valCol, e = raw.Column(ColValue); e != nil {
		return nil, e
	}

	pivots := make(map[pivotKey]*pivotVal)
	var order []pivotKey

	for row := 0; row < raw.RowCount(); row++ {
		item := itemCol.ElementString(row)

		di, kind := parseItem(item)
		if di == nil {
			rep.Add(kind, item)
			continue
		}

		val, ok := normValue(valCol.ElementString(row))
		if !ok {
			rep.Add(RejectValue, fmt.Sprintf("%s = %q", item, valCol.ElementString(row)))
			continue
		}

		key := pivotKey{
			year:      yearCol.ElementInt(row),
			state:     stateCol.ElementString(row),
			district:  distCol.ElementString(row),
			county:    cntyCol.ElementString(row),
			commodity: di.commodity,
			croptype:  di.croptype,
			irrigated: di.irrigated,
		}

		pv, seen := pivots[key]
		if !seen {
			pv = &pivotVal{}
			pivots[key] = pv
			order = append(order, key)
		}

		switch di.variable {
		case varAcres:
			if pv.hasAcres {
				rep.Add(RejectDuplicate, key.label()+" "+varAcres)
				continue
			}

			pv.acres, pv.hasAcres = val, true
		case varProduction:
			if pv.hasProduction {
				rep.Add(RejectDuplicate, key.label()+" "+varProduction)
				continue
			}

			pv.production, pv.hasProduction = val, true
		}
	}

	year := frame.MakeVector(frame.DTint, 0)
	state := frame.MakeVector(frame.DTstring, 0)
	district := frame.MakeVector(frame.DTstring, 0)
	county := frame.MakeVector(frame.DTstring, 0)
	commodity := frame.MakeVector(frame.DTstring, 0)
	croptype := frame.MakeVector(frame.DTstring, 0)
	acres := frame.MakeVector(frame.DTfloat, 0)
	production := frame.MakeVector(frame.DTfloat, 0)
	yield := frame.MakeVector(frame.DTfloat, 0)

	var irrigated *frame.Vector
	if irrigated, e = frame.Category(IrrigationLevels); e != nil {
		return nil, e
	}

	for _, key := range order {
		pv := pivots[key]
		switch {
		case !pv.hasAcres || !pv.hasProduction:
			rep.Add(RejectUnpaired, key.label())
			continue
		case pv.acres <= 0:
			rep.Add(RejectZeroAcres, key.label())
			continue
		}

		year.Append(key.year)
		state.Append(key.state)
		district.Append(key.district)
		county.Append(key.county)
		commodity.Append(key.commodity)
		croptype.Append(key.croptype)
		irrigated.Append(key.irrigated)
		acres.Append(pv.acres)
		production.Append(pv.production)
		yield.Append(pv.production / pv.acres)
	}

	names := []string{ColYear, ColState, ColDistrict, ColCounty, ColCommodity, ColCropType,
		ColIrrigated, ColAcres, ColProduction, ColYield}
	vecs := []*frame.Vector{year, state, district, county, commodity, croptype,
		irrigated, acres, production, yield}

	var cols []*frame.Col
	for ind := 0; ind < len(names); ind++ {
		var col *frame.Col
		if col, e = frame.NewCol(names[ind], vecs[ind]); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	var tidy *frame.Frame
	if tidy, e = frame.NewFrame(cols...); e != nil {
		return nil, e
	}

	// canonical order
	if e = tidy.Sort(ColYear, ColState, ColDistrict, ColCounty, ColCommodity, ColCropType, ColIrrigated); e != nil {
		return nil, e
	}

	return tidy, nil
}
