package model

import (
	"fmt"
	"sort"

	"github.com/invertedv/cornfit/frame"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Block is the column span one term occupies in the design matrix.
type Block struct {
	Term  string
	Start int
	N     int
}

// Design is a built model matrix: the intercept column, then one block per
// term.  Categorical terms use reference-level dummy coding over the levels
// present in the data, sorted, the first level being the baseline.
type Design struct {
	X        *mat.Dense
	Y        []float64
	Names    []string
	Blocks   []Block
	Dropped  []string           // terms without variation, left out
	Centers  map[string]float64 // continuous column -> mean subtracted
	Response string
}

// Rows returns the observation count.
func (d *Design) Rows() int {
	r, _ := d.X.Dims()

	return r
}

// built columns of one main-effect term
type termCols struct {
	term  string
	names []string
	cols  [][]float64
}

// BuildDesign expands the spec against df.  With center true, continuous
// terms are centered at their means (recorded in Centers).  A categorical
// term with fewer than two levels present carries no information beyond the
// intercept: it is dropped, along with any interaction involving it, and
// listed in Dropped.
func BuildDesign(df *frame.Frame, sp *Spec, center bool) (*Design, error) {
	if sp.Response == "" {
		return nil, fmt.Errorf("model spec has no response")
	}

	n := df.RowCount()
	if n == 0 {
		return nil, fmt.Errorf("no rows to build a design from")
	}

	var (
		respCol *frame.Col
		e       error
	)

	if respCol, e = df.Column(sp.Response); e != nil {
		return nil, e
	}

	if dt := respCol.VectorType(); dt != frame.DTfloat && dt != frame.DTint {
		return nil, fmt.Errorf("response %s is not numeric", sp.Response)
	}

	y := make([]float64, n)
	copy(y, respCol.AsFloat())

	d := &Design{Y: y, Centers: make(map[string]float64), Response: sp.Response}

	var mains []*termCols
	for _, name := range sp.Continuous {
		var tc *termCols
		if tc, e = continuousTerm(df, name, center, d.Centers); e != nil {
			return nil, e
		}

		mains = append(mains, tc)
	}

	for _, name := range sp.Categorical {
		var tc *termCols
		if tc, e = categoricalTerm(df, name); e != nil {
			return nil, e
		}

		if tc.cols == nil {
			d.Dropped = append(d.Dropped, name)
			continue
		}

		mains = append(mains, tc)
	}

	terms := make([]*termCols, len(mains))
	copy(terms, mains)

	if sp.Pairwise {
		for i := 0; i < len(mains); i++ {
			for j := i + 1; j < len(mains); j++ {
				terms = append(terms, interact(mains[i], mains[j]))
			}
		}
	}

	p := 1
	for _, tc := range terms {
		p += len(tc.cols)
	}

	x := mat.NewDense(n, p, nil)
	names := []string{"(Intercept)"}
	for row := 0; row < n; row++ {
		x.Set(row, 0, 1)
	}

	col := 1
	var blocks []Block
	for _, tc := range terms {
		blocks = append(blocks, Block{Term: tc.term, Start: col, N: len(tc.cols)})
		for k := 0; k < len(tc.cols); k++ {
			for row := 0; row < n; row++ {
				x.Set(row, col, tc.cols[k][row])
			}

			names = append(names, tc.names[k])
			col++
		}
	}

	d.X, d.Names, d.Blocks = x, names, blocks

	return d, nil
}

func continuousTerm(df *frame.Frame, name string, center bool, centers map[string]float64) (*termCols, error) {
	var (
		c *frame.Col
		e error
	)

	if c, e = df.Column(name); e != nil {
		return nil, e
	}

	if dt := c.VectorType(); dt != frame.DTfloat && dt != frame.DTint {
		return nil, fmt.Errorf("continuous term %s is not numeric", name)
	}

	vals := make([]float64, c.Len())
	copy(vals, c.AsFloat())

	if center {
		mean := stat.Mean(vals, nil)
		for ind := range vals {
			vals[ind] -= mean
		}

		centers[name] = mean
	}

	return &termCols{term: name, names: []string{name}, cols: [][]float64{vals}}, nil
}

// categoricalTerm returns nil cols when fewer than two levels are present.
func categoricalTerm(df *frame.Frame, name string) (*termCols, error) {
	var (
		c *frame.Col
		e error
	)

	if c, e = df.Column(name); e != nil {
		return nil, e
	}

	if dt := c.VectorType(); dt != frame.DTcategory && dt != frame.DTstring {
		return nil, fmt.Errorf("categorical term %s is not a string or category column", name)
	}

	vals := c.AsString()

	seen := make(map[string]bool)
	var levels []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}

	sort.Strings(levels)

	if len(levels) < 2 {
		return &termCols{term: name}, nil
	}

	tc := &termCols{term: name}
	for _, lvl := range levels[1:] {
		dummy := make([]float64, len(vals))
		for ind, v := range vals {
			if v == lvl {
				dummy[ind] = 1
			}
		}

		tc.cols = append(tc.cols, dummy)
		tc.names = append(tc.names, fmt.Sprintf("%s=%s", name, lvl))
	}

	return tc, nil
}

func interact(a, b *termCols) *termCols {
	tc := &termCols{term: a.term + ":" + b.term}
	for i := 0; i < len(a.cols); i++ {
		for j := 0; j < len(b.cols); j++ {
			prod := make([]float64, len(a.cols[i]))
			for row := range prod {
				prod[row] = a.cols[i][row] * b.cols[j][row]
			}

			tc.cols = append(tc.cols, prod)
			tc.names = append(tc.names, a.names[i]+":"+b.names[j])
		}
	}

	return tc
}
