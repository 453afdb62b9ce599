// Package safemath performs decimal arithmetic on float64 values without the
// artifacts of base-2 representation, so that 0.1 + 0.2 is 0.3 and
// 0.15 / 0.1 is 1.5.
//
// Operands are scaled to integers by the power of ten that covers the longer
// decimal fraction, combined, then scaled back down.
package safemath

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// MaxSafeInteger is the largest integer n such that n and n+1 are both
// exactly representable as float64.
const MaxSafeInteger = 1<<53 - 1

// maxScale bounds the power of ten used by Expand. Longer fractions cannot be
// scaled to exact integers, so they fall back to plain float64 arithmetic.
const maxScale = 15

var (
	ErrDivideByZero = errors.New("cannot divide by zero")
	ErrNegativeRoot = errors.New("square root of a negative number")
)

// Expansion is a pair of operands scaled up to integers by By.
type Expansion struct {
	Left  float64
	Right float64
	By    float64
}

// Expand scales a and b by 10^n, where n is the larger of their decimal
// fraction lengths.
func Expand(a, b float64) Expansion {
	pow := max(fractionDigits(a), fractionDigits(b))
	if pow == 0 || pow > maxScale {
		return Expansion{Left: a, Right: b, By: 1}
	}

	by := math.Pow10(pow)
	left, right := a*by, b*by
	if math.Abs(left) > MaxSafeInteger || math.Abs(right) > MaxSafeInteger {
		return Expansion{Left: a, Right: b, By: 1}
	}

	// 0.14 * 100 is 14.000000000000002 in float64.
	return Expansion{Left: math.Round(left), Right: math.Round(right), By: by}
}

func fractionDigits(x float64) int {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return 0
	}

	s := strconv.FormatFloat(x, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// Add returns a + b computed on the scaled operands.
func Add(a, b float64) float64 {
	e := Expand(a, b)
	return (e.Left + e.Right) / e.By
}

// Subtract returns a - b computed on the scaled operands.
func Subtract(a, b float64) float64 {
	e := Expand(a, b)
	return (e.Left - e.Right) / e.By
}

// Multiply returns a * b, dividing the scaled product by the squared scale factor.
func Multiply(a, b float64) float64 {
	e := Expand(a, b)
	return (e.Left * e.Right) / (e.By * e.By)
}

// Divide returns a / b. The scale factors cancel, so only the scaled
// integers are divided. Division by zero follows IEEE 754 (±Inf or NaN);
// use Reciprocal or check b when a domain error is wanted instead.
func Divide(a, b float64) float64 {
	e := Expand(a, b)
	return e.Left / e.Right
}

// Percent returns x / 100.
func Percent(x float64) float64 {
	return Divide(x, 100)
}

// Reciprocal returns 1 / x, or ErrDivideByZero when x is zero.
func Reciprocal(x float64) (float64, error) {
	if x == 0 {
		return 0, ErrDivideByZero
	}
	return Divide(1, x), nil
}

// Square returns x * x through Multiply.
func Square(x float64) float64 {
	return Multiply(x, x)
}

// Sqrt returns the square root of x, or ErrNegativeRoot when x < 0.
func Sqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, ErrNegativeRoot
	}
	return math.Sqrt(x), nil
}
