package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// maxExamples caps the raw values kept per reject kind.
const maxExamples = 5

// RejectKind classifies why a row or key was rejected during ingest.
type RejectKind uint8

// values of RejectKind
const (
	RejectRecord RejectKind = 0 + iota
	RejectDataItem
	RejectLevel
	RejectValue
	RejectDuplicate
	RejectUnpaired
	RejectZeroAcres
)

func (k RejectKind) String() string {
	switch k {
	case RejectRecord:
		return "malformed record"
	case RejectDataItem:
		return "data item does not split"
	case RejectLevel:
		return "unknown irrigation or variable"
	case RejectValue:
		return "bad numeric value"
	case RejectDuplicate:
		return "duplicate key"
	case RejectUnpaired:
		return "unpaired key"
	case RejectZeroAcres:
		return "zero acres harvested"
	default:
		return "unknown"
	}
}

// RejectReport counts schema violations by kind, keeping up to maxExamples
// offending raw values per kind.  Rejects are reported, never silent.
type RejectReport struct {
	total    int
	counts   map[RejectKind]int
	examples map[RejectKind][]string
}

func NewRejectReport() *RejectReport {
	return &RejectReport{
		counts:   make(map[RejectKind]int),
		examples: make(map[RejectKind][]string),
	}
}

// Observe bumps the count of rows examined.
func (r *RejectReport) Observe(n int) {
	r.total += n
}

// Add records one rejected row or key with its offending raw value.
func (r *RejectReport) Add(kind RejectKind, raw string) {
	r.counts[kind]++
	if len(r.examples[kind]) < maxExamples {
		r.examples[kind] = append(r.examples[kind], raw)
	}
}

// Total returns the number of rows examined.
func (r *RejectReport) Total() int {
	return r.total
}

// Rejected returns the number of rejects across all kinds.
func (r *RejectReport) Rejected() int {
	var n int
	for _, c := range r.counts {
		n += c
	}

	return n
}

func (r *RejectReport) Count(kind RejectKind) int {
	return r.counts[kind]
}

func (r *RejectReport) Examples(kind RejectKind) []string {
	return r.examples[kind]
}

// Kinds returns the kinds with at least one reject, in enum order.
func (r *RejectReport) Kinds() []RejectKind {
	var kinds []RejectKind
	for k := range r.counts {
		kinds = append(kinds, k)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// Rate returns rejects as a fraction of rows examined.
func (r *RejectReport) Rate() float64 {
	if r.total == 0 {
		return 0
	}

	return float64(r.Rejected()) / float64(r.total)
}

func (r *RejectReport) Empty() bool {
	return r.Rejected() == 0
}

func (r *RejectReport) String() string {
	if r.Empty() {
		return fmt.Sprintf("no rejects in %d rows", r.total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d rows rejected\n", r.Rejected(), r.total)
	for _, k := range r.Kinds() {
		fmt.Fprintf(&b, "  %s: %d", k, r.counts[k])
		if ex := r.examples[k]; len(ex) > 0 {
			fmt.Fprintf(&b, " (e.g. %s)", strings.Join(ex, "; "))
		}

		b.WriteByte('\n')
	}

	return b.String()
}

// GapReport lists the states the region lookup does not cover, with the row
// counts lost to each.  A gap is a warning, never fatal.
type GapReport struct {
	states map[string]int
}

func NewGapReport() *GapReport {
	return &GapReport{states: make(map[string]int)}
}

func (g *GapReport) Add(state string) {
	g.states[state]++
}

func (g *GapReport) Empty() bool {
	return len(g.states) == 0
}

// States returns the unmatched states, sorted.
func (g *GapReport) States() []string {
	var states []string
	for s := range g.states {
		states = append(states, s)
	}

	sort.Strings(states)

	return states
}

func (g *GapReport) Count(state string) int {
	return g.states[state]
}

// Total returns the number of rows excluded by lookup gaps.
func (g *GapReport) Total() int {
	var n int
	for _, c := range g.states {
		n += c
	}

	return n
}

func (g *GapReport) String() string {
	if g.Empty() {
		return "all states matched the region lookup"
	}

	var parts []string
	for _, s := range g.States() {
		parts = append(parts, fmt.Sprintf("%s (%d rows)", s, g.states[s]))
	}

	return "states missing from the region lookup: " + strings.Join(parts, ", ")
}
