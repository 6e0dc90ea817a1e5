package frame

import (
	"fmt"
	"sort"
	"strings"
)

// Col is a named Vector.
type Col struct {
	name string

	*Vector
}

func NewCol(name string, v *Vector) (*Col, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid column name: %s", name)
	}

	if v == nil {
		return nil, fmt.Errorf("nil vector for column %s", name)
	}

	return &Col{name: name, Vector: v}, nil
}

// Name returns the column name, renaming it first if renameTo is non-empty.
func (c *Col) Name(renameTo string) string {
	if renameTo != "" {
		c.name = renameTo
	}

	return c.name
}

func (c *Col) Copy() *Col {
	return &Col{name: c.name, Vector: c.Vector.Copy()}
}

// Frame is an ordered set of equal-length columns.
type Frame struct {
	cols []*Col

	by []*Col // sort keys, set by Sort
}

func NewFrame(cols ...*Col) (*Frame, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns in NewFrame")
	}

	f := &Frame{}
	for ind := 0; ind < len(cols); ind++ {
		if e := f.AppendColumn(cols[ind]); e != nil {
			return nil, e
		}
	}

	return f, nil
}

func (f *Frame) RowCount() int {
	if len(f.cols) == 0 {
		return 0
	}

	return f.cols[0].Len()
}

func (f *Frame) ColumnCount() int {
	return len(f.cols)
}

func (f *Frame) ColumnNames() []string {
	var names []string
	for ind := 0; ind < len(f.cols); ind++ {
		names = append(names, f.cols[ind].Name(""))
	}

	return names
}

func (f *Frame) Column(colName string) (*Col, error) {
	for ind := 0; ind < len(f.cols); ind++ {
		if f.cols[ind].Name("") == colName {
			return f.cols[ind], nil
		}
	}

	return nil, fmt.Errorf("column %s not found", colName)
}

func (f *Frame) HasColumns(colNames ...string) bool {
	for ind := 0; ind < len(colNames); ind++ {
		if _, e := f.Column(colNames[ind]); e != nil {
			return false
		}
	}

	return true
}

func (f *Frame) AppendColumn(col *Col) error {
	if has(col.Name(""), f.ColumnNames()) {
		return fmt.Errorf("duplicate column name: %s", col.Name(""))
	}

	if len(f.cols) > 0 && col.Len() != f.RowCount() {
		return fmt.Errorf("length mismatch: frame - %d, append col - %d", f.RowCount(), col.Len())
	}

	f.cols = append(f.cols, col)

	return nil
}

func (f *Frame) DropColumns(colNames ...string) error {
	for _, cName := range colNames {
		pos := position(cName, f.ColumnNames())
		if pos < 0 {
			return fmt.Errorf("column %s not found", cName)
		}

		if len(f.cols) == 1 {
			return fmt.Errorf("no columns left")
		}

		f.cols = append(f.cols[:pos], f.cols[pos+1:]...)
	}

	return nil
}

func (f *Frame) KeepColumns(colNames ...string) (*Frame, error) {
	var cols []*Col
	for ind := 0; ind < len(colNames); ind++ {
		var (
			col *Col
			e   error
		)

		if col, e = f.Column(colNames[ind]); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewFrame(cols...)
}

func (f *Frame) Copy() *Frame {
	var cols []*Col
	for ind := 0; ind < len(f.cols); ind++ {
		cols = append(cols, f.cols[ind].Copy())
	}

	out, e := NewFrame(cols...)
	if e != nil {
		panic(e)
	}

	return out
}

// Row returns the values of row indx, in column order.
func (f *Frame) Row(indx int) []any {
	var row []any
	for ind := 0; ind < len(f.cols); ind++ {
		row = append(row, f.cols[ind].Element(indx))
	}

	return row
}

// Where returns a new frame keeping the rows where keep is true.
func (f *Frame) Where(keep []bool) (*Frame, error) {
	if len(keep) != f.RowCount() {
		return nil, fmt.Errorf("mask length mismatch in Frame.Where")
	}

	var cols []*Col
	for ind := 0; ind < len(f.cols); ind++ {
		var (
			col *Col
			e   error
		)
		if col, e = NewCol(f.cols[ind].Name(""), f.cols[ind].Vector.Where(keep)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewFrame(cols...)
}

// ///////// sorting

func (f *Frame) Sort(keys ...string) error {
	var by []*Col

	for ind := 0; ind < len(keys); ind++ {
		var (
			col *Col
			e   error
		)

		if col, e = f.Column(keys[ind]); e != nil {
			return e
		}

		by = append(by, col)
	}

	f.by = by
	sort.Stable(f)

	return nil
}

// Len is required for sort
func (f *Frame) Len() int {
	return f.RowCount()
}

func (f *Frame) Less(i, j int) bool {
	for ind := 0; ind < len(f.by); ind++ {
		switch f.by[ind].Compare(i, j) {
		case -1:
			return true
		case 1:
			return false
		}
		// equal -- keep checking
	}

	return false
}

func (f *Frame) Swap(i, j int) {
	for ind := 0; ind < len(f.cols); ind++ {
		f.cols[ind].Vector.Swap(i, j)
	}
}

// ///////// grouping

// groupSep separates key parts in group labels.
const groupSep = "\x1f"

// By groups rows by the key columns and sums the sum columns, which must be
// numeric.  The output holds one row per group: the key columns, the summed
// columns, and a row count column "n".  Groups are ordered by key.
func (f *Frame) By(keys []string, sums []string) (*Frame, error) {
	var keyCols, sumCols []*Col
	for ind := 0; ind < len(keys); ind++ {
		var (
			col *Col
			e   error
		)
		if col, e = f.Column(keys[ind]); e != nil {
			return nil, e
		}

		keyCols = append(keyCols, col)
	}

	for ind := 0; ind < len(sums); ind++ {
		var (
			col *Col
			e   error
		)
		if col, e = f.Column(sums[ind]); e != nil {
			return nil, e
		}

		if dt := col.VectorType(); dt != DTfloat && dt != DTint {
			return nil, fmt.Errorf("column %s is not numeric, cannot sum", sums[ind])
		}

		sumCols = append(sumCols, col)
	}

	if has("n", keys) || has("n", sums) {
		return nil, fmt.Errorf(`column name "n" is reserved by Frame.By`)
	}

	type acc struct {
		keyVals []any
		sums    []float64
		n       int
	}

	groups := make(map[string]*acc)
	var labels []string
	for row := 0; row < f.RowCount(); row++ {
		var parts []string
		for ind := 0; ind < len(keyCols); ind++ {
			parts = append(parts, elementString(keyCols[ind].Element(row)))
		}

		label := strings.Join(parts, groupSep)
		a, ok := groups[label]
		if !ok {
			a = &acc{sums: make([]float64, len(sumCols))}
			for ind := 0; ind < len(keyCols); ind++ {
				a.keyVals = append(a.keyVals, keyCols[ind].Element(row))
			}

			groups[label] = a
			labels = append(labels, label)
		}

		for ind := 0; ind < len(sumCols); ind++ {
			a.sums[ind] += sumCols[ind].ElementFloat(row)
		}

		a.n++
	}

	sort.Strings(labels)

	var outCols []*Col
	for ind := 0; ind < len(keyCols); ind++ {
		v := MakeVector(keyCols[ind].VectorType(), len(labels))
		v.levels = keyCols[ind].Levels()
		for g, label := range labels {
			switch v.VectorType() {
			case DTfloat:
				v.SetFloat(groups[label].keyVals[ind].(float64), g)
			case DTint:
				v.SetInt(groups[label].keyVals[ind].(int), g)
			default:
				v.SetString(groups[label].keyVals[ind].(string), g)
			}
		}

		col, e := NewCol(keyCols[ind].Name(""), v)
		if e != nil {
			return nil, e
		}

		outCols = append(outCols, col)
	}

	for ind := 0; ind < len(sumCols); ind++ {
		v := MakeVector(DTfloat, len(labels))
		for g, label := range labels {
			v.SetFloat(groups[label].sums[ind], g)
		}

		col, e := NewCol(sumCols[ind].Name(""), v)
		if e != nil {
			return nil, e
		}

		outCols = append(outCols, col)
	}

	nVec := MakeVector(DTint, len(labels))
	for g, label := range labels {
		nVec.SetInt(groups[label].n, g)
	}

	nCol, e := NewCol("n", nVec)
	if e != nil {
		return nil, e
	}

	outCols = append(outCols, nCol)

	return NewFrame(outCols...)
}

// RowGroup is the set of row indices sharing one key combination.  Rows keep
// the frame's current order.
type RowGroup struct {
	Label string
	Vals  []string
	Rows  []int
}

// GroupRows partitions the frame's rows by the key columns.  Groups come back
// in order of first appearance.
func (f *Frame) GroupRows(keys ...string) ([]*RowGroup, error) {
	var keyCols []*Col
	for ind := 0; ind < len(keys); ind++ {
		var (
			col *Col
			e   error
		)
		if col, e = f.Column(keys[ind]); e != nil {
			return nil, e
		}

		keyCols = append(keyCols, col)
	}

	groups := make(map[string]*RowGroup)
	var out []*RowGroup
	for row := 0; row < f.RowCount(); row++ {
		var parts []string
		for ind := 0; ind < len(keyCols); ind++ {
			parts = append(parts, elementString(keyCols[ind].Element(row)))
		}

		label := strings.Join(parts, groupSep)
		g, ok := groups[label]
		if !ok {
			g = &RowGroup{Label: strings.Join(parts, ":"), Vals: parts}
			groups[label] = g
			out = append(out, g)
		}

		g.Rows = append(g.Rows, row)
	}

	return out, nil
}
