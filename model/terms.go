// Package model builds fixed-effects design matrices and fits the yield
// regressions: ordinary least squares, then generalized least squares with
// AR(1) errors estimated independently within each (region, irrigation)
// group by maximum likelihood.
package model

import (
	"strings"

	"github.com/invertedv/cornfit/ingest"
)

// Spec is an immutable model specification: the response column, the
// continuous and categorical main effects, and whether all pairwise
// interactions of the main effects are included.
type Spec struct {
	Response    string
	Continuous  []string
	Categorical []string
	Pairwise    bool
}

// Additive is the baseline formula: yield explained by year, region and
// irrigation main effects.
func Additive() *Spec {
	return &Spec{
		Response:    ingest.ColYield,
		Continuous:  []string{ingest.ColYear},
		Categorical: []string{ingest.ColRegion, ingest.ColIrrigated},
	}
}

// Interactions is the additive formula plus all pairwise interactions.
func Interactions() *Spec {
	sp := Additive()
	sp.Pairwise = true

	return sp
}

func (sp *Spec) String() string {
	terms := make([]string, 0, len(sp.Continuous)+len(sp.Categorical))
	terms = append(terms, sp.Continuous...)
	terms = append(terms, sp.Categorical...)

	f := sp.Response + " ~ " + strings.Join(terms, " + ")
	if sp.Pairwise {
		f += " + pairwise interactions"
	}

	return f
}
