package safemath

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Numeric is implemented by values that can report their own numeric form.
type Numeric interface {
	Float64() float64
}

// Coerce converts a numeric-like value to a float64.
//
// Accepted shapes are Go numbers, booleans (true is 1), numeric strings
// (comma grouping and scientific notation allowed), json.Number, values
// implementing Numeric, and non-nil pointers to any of these. The second
// result is false for everything else, including nil, "" and NaN; such
// values must be skipped by callers rather than folded into a result.
func Coerce(v any) (float64, bool) {
	var f float64

	switch x := v.(type) {
	case nil:
		return 0, false
	case Numeric:
		f = x.Float64()
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		return Parse(x)
	case json.Number:
		return Parse(string(x))
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return 0, false
		}
		return Coerce(rv.Elem().Interface())
	}

	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Parse reads a numeric string such as "1,000", "-0.25" or "987.654E6".
func Parse(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range values saturate to ±Inf, which is still a number.
		if !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
