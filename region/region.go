// Package region holds the hand-authored mapping from states to the coarser
// analysis regions the models group by.
package region

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultYAML []byte

// Map is an immutable many-to-one State -> Region lookup.
type Map struct {
	stateTo map[string]string
	regions []string
}

type mapFile struct {
	Regions map[string][]string `yaml:"regions"`
}

// Default returns the built-in lookup.
func Default() *Map {
	m, e := parse(defaultYAML)
	if e != nil {
		panic(e)
	}

	return m
}

// Load reads a lookup from a YAML file of the same shape as the built-in one.
func Load(fileName string) (*Map, error) {
	var (
		raw []byte
		e   error
	)
	if raw, e = os.ReadFile(fileName); e != nil {
		return nil, fmt.Errorf("cannot read region file: %w", e)
	}

	var m *Map
	if m, e = parse(raw); e != nil {
		return nil, fmt.Errorf("%s: %w", fileName, e)
	}

	return m, nil
}

func parse(raw []byte) (*Map, error) {
	var mf mapFile
	if e := yaml.Unmarshal(raw, &mf); e != nil {
		return nil, e
	}

	if len(mf.Regions) == 0 {
		return nil, fmt.Errorf("region lookup is empty")
	}

	stateTo := make(map[string]string)
	var regions []string
	for regionName, states := range mf.Regions {
		if regionName != strings.ToUpper(regionName) {
			return nil, fmt.Errorf("region %s is not upper case", regionName)
		}

		if len(states) == 0 {
			return nil, fmt.Errorf("region %s has no states", regionName)
		}

		regions = append(regions, regionName)
		for _, state := range states {
			if state != strings.ToUpper(state) {
				return nil, fmt.Errorf("state %s is not upper case", state)
			}

			if other, ok := stateTo[state]; ok {
				return nil, fmt.Errorf("state %s appears in both %s and %s", state, other, regionName)
			}

			stateTo[state] = regionName
		}
	}

	sort.Strings(regions)

	return &Map{stateTo: stateTo, regions: regions}, nil
}

// Lookup maps a state to its region.  ok is false for states outside the
// lookup; callers report those, they never guess.
func (m *Map) Lookup(state string) (region string, ok bool) {
	region, ok = m.stateTo[state]
	return region, ok
}

// Regions returns the region labels in sorted order.
func (m *Map) Regions() []string {
	out := make([]string, len(m.regions))
	copy(out, m.regions)

	return out
}

// States returns the mapped states in sorted order.
func (m *Map) States() []string {
	var out []string
	for state := range m.stateTo {
		out = append(out, state)
	}

	sort.Strings(out)

	return out
}

func (m *Map) Len() int {
	return len(m.stateTo)
}
