package safemath

import "reflect"

// Apply folds fn over values from left to right. A single slice or array
// argument is treated as the list of values. Entries that do not coerce to
// a number are skipped; ok is false when none remain.
func Apply(fn func(a, b float64) float64, values ...any) (result float64, ok bool) {
	nums := numbers(values)
	if len(nums) == 0 {
		return 0, false
	}

	result = nums[0]
	for _, f := range nums[1:] {
		result = fn(result, f)
	}
	return result, true
}

// Sum adds the numeric-like values. It returns 0 when there are none.
func Sum(values ...any) float64 {
	result, _ := Apply(Add, values...)
	return result
}

// Product multiplies the numeric-like values. It returns 0 when there are none.
func Product(values ...any) float64 {
	result, _ := Apply(Multiply, values...)
	return result
}

// Avg returns the mean of the numeric-like values, or 0 when there are none.
func Avg(values ...any) float64 {
	nums := numbers(values)
	if len(nums) == 0 {
		return 0
	}

	sum, _ := Apply(Add, nums)
	return Divide(sum, float64(len(nums)))
}

func numbers(values []any) []float64 {
	flat := flatten(values)

	nums := make([]float64, 0, len(flat))
	for _, v := range flat {
		if f, ok := Coerce(v); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

func flatten(values []any) []any {
	if len(values) != 1 {
		return values
	}

	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
