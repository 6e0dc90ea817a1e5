package frame

import (
	"fmt"
)

// DataTypes are the column types the package supports
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTstring
	DTfloat
	DTint
	DTcategory
)

func (dt DataTypes) String() string {
	switch dt {
	case DTstring:
		return "string"
	case DTfloat:
		return "float"
	case DTint:
		return "int"
	case DTcategory:
		return "category"
	default:
		return "unknown"
	}
}

// Vector is typed column storage.  The accessors panic on type misuse --
// callers validate data before it gets here.
type Vector struct {
	dt DataTypes

	data any

	levels []string // DTcategory only
}

func Floats(x ...float64) *Vector {
	return &Vector{dt: DTfloat, data: x}
}

func Ints(x ...int) *Vector {
	return &Vector{dt: DTint, data: x}
}

func Strings(x ...string) *Vector {
	return &Vector{dt: DTstring, data: x}
}

// Category builds a validated categorical vector.  Every element of x must be
// one of levels.
func Category(levels []string, x ...string) (*Vector, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("category vector needs at least one level")
	}

	for ind := 0; ind < len(levels); ind++ {
		if position(levels[ind], levels[ind+1:]) >= 0 {
			return nil, fmt.Errorf("duplicate category level %s", levels[ind])
		}
	}

	for ind := 0; ind < len(x); ind++ {
		if !has(x[ind], levels) {
			return nil, fmt.Errorf("value %s is not a level", x[ind])
		}
	}

	lvl := make([]string, len(levels))
	copy(lvl, levels)

	return &Vector{dt: DTcategory, data: x, levels: lvl}, nil
}

func MakeVector(dt DataTypes, n int) *Vector {
	switch dt {
	case DTfloat:
		return &Vector{dt: dt, data: make([]float64, n)}
	case DTint:
		return &Vector{dt: dt, data: make([]int, n)}
	case DTstring, DTcategory:
		return &Vector{dt: dt, data: make([]string, n)}
	default:
		panic(fmt.Errorf("cannot make Vector with data type %s", dt))
	}
}

func (v *Vector) VectorType() DataTypes {
	return v.dt
}

// Levels returns the level set of a DTcategory vector, nil otherwise.
func (v *Vector) Levels() []string {
	return v.levels
}

func (v *Vector) Len() int {
	switch v.dt {
	case DTfloat:
		return len(v.data.([]float64))
	case DTint:
		return len(v.data.([]int))
	case DTstring, DTcategory:
		return len(v.data.([]string))
	default:
		panic(fmt.Errorf("unexpected error in Vector.Len"))
	}
}

func (v *Vector) SetFloat(val float64, indx int) {
	if v.VectorType() != DTfloat {
		panic(fmt.Errorf("vector isn't DTfloat"))
	}

	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	v.data.([]float64)[indx] = val
}

func (v *Vector) SetInt(val, indx int) {
	if v.VectorType() != DTint {
		panic(fmt.Errorf("vector isn't DTint"))
	}

	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	v.data.([]int)[indx] = val
}

func (v *Vector) SetString(val string, indx int) {
	if v.VectorType() != DTstring && v.VectorType() != DTcategory {
		panic(fmt.Errorf("vector isn't DTstring"))
	}

	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	if v.dt == DTcategory && !has(val, v.levels) {
		panic(fmt.Errorf("value %s is not a level", val))
	}

	v.data.([]string)[indx] = val
}

func (v *Vector) AsAny() any {
	return v.data
}

func (v *Vector) AsFloat() []float64 {
	if v.VectorType() == DTfloat {
		return v.data.([]float64)
	}

	if v.VectorType() == DTint {
		xOut := make([]float64, v.Len())
		for ind, xx := range v.data.([]int) {
			xOut[ind] = float64(xx)
		}

		return xOut
	}

	panic(fmt.Errorf("cannot convert to Vector.AsFloat"))
}

func (v *Vector) AsInt() []int {
	if v.VectorType() == DTint {
		return v.data.([]int)
	}

	if v.VectorType() == DTfloat {
		xOut := make([]int, v.Len())
		for ind, xx := range v.data.([]float64) {
			xOut[ind] = int(xx)
		}

		return xOut
	}

	panic(fmt.Errorf("cannot convert to Vector.AsInt"))
}

func (v *Vector) AsString() []string {
	if v.dt == DTstring || v.dt == DTcategory {
		return v.data.([]string)
	}

	xOut := make([]string, v.Len())
	for ind := 0; ind < v.Len(); ind++ {
		xOut[ind] = elementString(v.Element(ind))
	}

	return xOut
}

func (v *Vector) Element(indx int) any {
	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return v.data.([]int)[indx]
	case DTstring, DTcategory:
		return v.data.([]string)[indx]
	default:
		panic(fmt.Errorf("error in Element"))
	}
}

func (v *Vector) ElementFloat(indx int) float64 {
	if v.VectorType() == DTint {
		return float64(v.data.([]int)[indx])
	}

	if v.VectorType() != DTfloat {
		panic(fmt.Errorf("element is not float-able"))
	}

	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	return v.data.([]float64)[indx]
}

func (v *Vector) ElementInt(indx int) int {
	if v.VectorType() != DTint {
		panic(fmt.Errorf("element is not int-able"))
	}

	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	return v.data.([]int)[indx]
}

func (v *Vector) ElementString(indx int) string {
	if v.VectorType() != DTstring && v.VectorType() != DTcategory {
		panic(fmt.Errorf("element is not a string"))
	}

	if indx < 0 || indx >= v.Len() {
		panic(fmt.Errorf("index out of range"))
	}

	return v.data.([]string)[indx]
}

func (v *Vector) Append(data ...any) {
	for ind := 0; ind < len(data); ind++ {
		switch v.dt {
		case DTfloat:
			var (
				x  float64
				ok bool
			)
			if x, ok = toFloat(data[ind]); !ok {
				panic(fmt.Errorf("cannot make float in Append"))
			}

			v.data = append(v.data.([]float64), x)
		case DTint:
			var (
				x  int
				ok bool
			)
			if x, ok = toInt(data[ind]); !ok {
				panic(fmt.Errorf("cannot make int in Append"))
			}

			v.data = append(v.data.([]int), x)
		case DTstring, DTcategory:
			x, ok := data[ind].(string)
			if !ok {
				panic(fmt.Errorf("cannot make string in Append"))
			}

			if v.dt == DTcategory && !has(x, v.levels) {
				panic(fmt.Errorf("value %s is not a level", x))
			}

			v.data = append(v.data.([]string), x)
		}
	}
}

func (v *Vector) Copy() *Vector {
	vCopy := &Vector{dt: v.dt}
	switch v.dt {
	case DTfloat:
		x := make([]float64, v.Len())
		copy(x, v.data.([]float64))
		vCopy.data = x
	case DTint:
		x := make([]int, v.Len())
		copy(x, v.data.([]int))
		vCopy.data = x
	case DTstring, DTcategory:
		x := make([]string, v.Len())
		copy(x, v.data.([]string))
		vCopy.data = x
	default:
		panic(fmt.Errorf("unexpected error in Vector.Copy"))
	}

	if v.levels != nil {
		lvl := make([]string, len(v.levels))
		copy(lvl, v.levels)
		vCopy.levels = lvl
	}

	return vCopy
}

// Where keeps the elements of v where keep is true.
func (v *Vector) Where(keep []bool) *Vector {
	if len(keep) != v.Len() {
		panic(fmt.Errorf("mask length mismatch in Vector.Where"))
	}

	outVec := MakeVector(v.dt, 0)
	outVec.levels = v.levels
	for ind := 0; ind < v.Len(); ind++ {
		if keep[ind] {
			outVec.Append(v.Element(ind))
		}
	}

	return outVec
}

func (v *Vector) Swap(i, j int) {
	switch v.dt {
	case DTfloat:
		v.data.([]float64)[i], v.data.([]float64)[j] = v.data.([]float64)[j], v.data.([]float64)[i]
	case DTint:
		v.data.([]int)[i], v.data.([]int)[j] = v.data.([]int)[j], v.data.([]int)[i]
	case DTstring, DTcategory:
		v.data.([]string)[i], v.data.([]string)[j] = v.data.([]string)[j], v.data.([]string)[i]
	default:
		panic(fmt.Errorf("unexpected error in Vector.Swap"))
	}
}

// Compare orders elements i, j returning -1, 0, 1.
func (v *Vector) Compare(i, j int) int {
	switch v.dt {
	case DTfloat:
		x := v.data.([]float64)
		switch {
		case x[i] < x[j]:
			return -1
		case x[i] > x[j]:
			return 1
		default:
			return 0
		}
	case DTint:
		x := v.data.([]int)
		switch {
		case x[i] < x[j]:
			return -1
		case x[i] > x[j]:
			return 1
		default:
			return 0
		}
	case DTstring, DTcategory:
		x := v.data.([]string)
		switch {
		case x[i] < x[j]:
			return -1
		case x[i] > x[j]:
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Errorf("unexpected error in Vector.Compare"))
	}
}

func (v *Vector) Less(i, j int) bool {
	return v.Compare(i, j) < 0
}
