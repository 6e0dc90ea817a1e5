// Package ingest turns a NASS QuickStats export into tidy and
// region-aggregated observation tables.
//
// The stages are Read, Reshape, Aggregate.  Read loads the delimited file.
// Reshape splits the composite Data Item description, pivots acres harvested
// and production into columns and derives yield.  Aggregate joins the region
// lookup and sums within (year, region, commodity, croptype, irrigated).
// Rows that violate the schema are counted in a RejectReport with their raw
// values; states the lookup misses land in a GapReport.  Neither is silent.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/invertedv/cornfit/frame"
)

// Column names of the frames ingest produces.
const (
	ColYear         = "year"
	ColState        = "state"
	ColDistrict     = "district"
	ColDistrictCode = "districtCode"
	ColCounty       = "county"
	ColCommodity    = "commodity"
	ColDataItem     = "dataItem"
	ColValue        = "value"
	ColCropType     = "croptype"
	ColIrrigated    = "irrigated"
	ColAcres        = "acres"
	ColProduction   = "production"
	ColYield        = "yield"
	ColRegion       = "region"
)

// required maps the source file headers to the frame column names.
var required = [][2]string{
	{"Year", ColYear},
	{"State", ColState},
	{"Ag District", ColDistrict},
	{"Ag District Code", ColDistrictCode},
	{"County", ColCounty},
	{"Commodity", ColCommodity},
	{"Data Item", ColDataItem},
	{"Value", ColValue},
}

// Read loads a NASS QuickStats export per the layout.  Required columns are
// located by header name; a missing header is fatal.  Rows with the wrong
// field count and rows whose Year does not parse are rejected, not fatal.
// Everything but Year stays text; Value keeps its thousands separators for
// Reshape to normalize.
func Read(fileName string, layout *frame.Files, rep *RejectReport) (*frame.Frame, error) {
	if !layout.Header {
		return nil, fmt.Errorf("%s: a header row is required to locate columns", fileName)
	}

	if e := layout.Open(fileName); e != nil {
		return nil, fmt.Errorf("cannot open %s: %w", fileName, e)
	}
	defer func() { _ = layout.Close() }()

	rdr := csv.NewReader(layout.File())
	rdr.Comma = rune(layout.Sep)
	rdr.TrimLeadingSpace = true
	rdr.FieldsPerRecord = -1

	var (
		header []string
		e      error
	)

	if header, e = rdr.Read(); e != nil {
		return nil, fmt.Errorf("cannot read header of %s: %w", fileName, e)
	}

	pos := make([]int, len(required))
	for ind := 0; ind < len(required); ind++ {
		pos[ind] = -1
		for j := 0; j < len(header); j++ {
			if strings.TrimSpace(header[j]) == required[ind][0] {
				pos[ind] = j
				break
			}
		}

		if pos[ind] < 0 {
			return nil, fmt.Errorf("required column %q not in %s", required[ind][0], fileName)
		}
	}

	vecs := make([]*frame.Vector, len(required))
	vecs[0] = frame.MakeVector(frame.DTint, 0)
	for ind := 1; ind < len(required); ind++ {
		vecs[ind] = frame.MakeVector(frame.DTstring, 0)
	}

	for row := 1; ; row++ {
		var rec []string
		if rec, e = rdr.Read(); errors.Is(e, io.EOF) {
			break
		}

		rep.Observe(1)

		if e != nil {
			var parseErr *csv.ParseError
			if !errors.As(e, &parseErr) {
				return nil, fmt.Errorf("read failed at row %d of %s: %w", row, fileName, e)
			}

			rep.Add(RejectRecord, fmt.Sprintf("row %d: %v", row, e))
			continue
		}

		if len(rec) != len(header) {
			rep.Add(RejectRecord, fmt.Sprintf("row %d: %d fields, want %d", row, len(rec), len(header)))
			continue
		}

		var yr int
		if yr, e = strconv.Atoi(strings.TrimSpace(rec[pos[0]])); e != nil {
			rep.Add(RejectValue, fmt.Sprintf("row %d: year %q", row, rec[pos[0]]))
			continue
		}

		vecs[0].Append(yr)
		for ind := 1; ind < len(required); ind++ {
			vecs[ind].Append(strings.TrimSpace(rec[pos[ind]]))
		}
	}

	var cols []*frame.Col
	for ind := 0; ind < len(required); ind++ {
		var col *frame.Col
		if col, e = frame.NewCol(required[ind][1], vecs[ind]); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return frame.NewFrame(cols...)
}
