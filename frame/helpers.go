package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// *********** Conversions ***********

func toFloat(x any) (float64, bool) {
	switch xx := x.(type) {
	case float64:
		return xx, true
	case float32:
		return float64(xx), true
	case int:
		return float64(xx), true
	case int64:
		return float64(xx), true
	case string:
		if f, e := strconv.ParseFloat(xx, 64); e == nil {
			return f, true
		}
	}

	return 0, false
}

func toInt(x any) (int, bool) {
	switch xx := x.(type) {
	case int:
		return xx, true
	case int64:
		return int(xx), true
	case float64:
		return int(xx), true
	case string:
		if i, e := strconv.ParseInt(xx, 10, 64); e == nil {
			return int(i), true
		}
	}

	return 0, false
}

func elementString(x any) string {
	switch xx := x.(type) {
	case string:
		return xx
	case int:
		return strconv.Itoa(xx)
	case float64:
		return fmt.Sprintf("%v", xx)
	default:
		panic(fmt.Errorf("cannot make string"))
	}
}

// *********** Other ***********

func has[C comparable](needle C, haystack []C) bool {
	return position(needle, haystack) >= 0
}

func position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}

func validName(name string) bool {
	const illegal = "!@#$%^&*()=+-;:'`/.,>< ~ " + `"`

	return name != "" && !strings.ContainsAny(name, illegal)
}
