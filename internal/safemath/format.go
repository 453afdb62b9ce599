package safemath

import (
	"math"
	"strconv"
	"strings"
)

// Format renders f the way a calculator display expects: the shortest
// decimal string that round-trips, exponent notation only at or above 1e21
// or below 1e-6, and Infinity, -Infinity or NaN for the special values.
// Negative zero prints as "0".
func Format(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// strconv pads the exponent to two digits ("1e-07").
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + exp[:1] + digits
}

// Canonical reformats a numeric string, e.g. "5." to "5" or "007" to "7".
// Strings that are not numbers are returned unchanged.
func Canonical(s string) string {
	f, ok := Parse(s)
	if !ok {
		return s
	}
	return Format(f)
}

// Group inserts thousands separators into the integer part of a numeric
// string. The sign and the fraction, trailing zeros included, are kept as
// they are: "-1234.5600" becomes "-1,234.5600".
func Group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	integer, fraction, hasFraction := strings.Cut(s, ".")
	if len(integer) <= 3 || !isDigits(integer) {
		return sign + s
	}

	var b strings.Builder
	b.WriteString(sign)

	lead := len(integer) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(integer[:lead])
	for i := lead; i < len(integer); i += 3 {
		b.WriteByte(',')
		b.WriteString(integer[i : i+3])
	}

	if hasFraction {
		b.WriteByte('.')
		b.WriteString(fraction)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
