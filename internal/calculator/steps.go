package calculator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"sam-calculator/internal/safemath"
)

const (
	lastEquals = "equals"
	lastNegate = "negate"
)

const (
	msgInvalidAction   = `Invalid action step, "%s"`
	msgInvalidDigit    = `Invalid digit value, "%s"`
	msgInvalidOperator = `Invalid operator value, "%s"`
	msgInvalidRoot     = `Invalid input for square root, "%s"`
	msgDivideByZero    = "Cannot divide by zero"
)

// stepKind classifies the Last tag of a state.
type stepKind int

const (
	stepNone     stepKind = iota // cleared
	stepEntry                    // digits or a decimal point typed into output
	stepOperator                 // a binary operator was just chosen
	stepEquals
	stepUnary // percent, reciprocal, square or squareroot wrote into the expression
	stepValue // output changed without typing, e.g. negate
)

func classify(last string) stepKind {
	if last == "" {
		return stepNone
	}
	if last == lastEquals {
		return stepEquals
	}
	if _, ok := ParseOperator(last); ok {
		return stepOperator
	}
	switch last {
	case ActionPercent.String(), ActionReciprocal.String(), ActionSquare.String(), ActionSquareRoot.String():
		return stepUnary
	}
	if isEntry(last) {
		return stepEntry
	}
	return stepValue
}

func isEntry(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != '.' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	return s != "" && !strings.Contains(s, ".") && isEntry(s)
}

func tail(expression []string) string {
	if len(expression) == 0 {
		return ""
	}
	return expression[len(expression)-1]
}

// afterEquals reports whether the last computation has been completed, either
// by equals itself or by entry that followed it.
func afterEquals(s State) bool {
	return classify(s.Last) == stepEquals || tail(s.Expression) == symbolEquals
}

// unaryTail reports whether the expression ends in a unary notation such as
// sqr(5) that the next unary step should wrap or the next entry replace.
func unaryTail(s State) bool {
	t := tail(s.Expression)
	return classify(s.Last) == stepUnary && t != "" && t != symbolEquals && !isOperatorSymbol(t)
}

// recordOperand returns the operands with value placed in the slot the
// current step is editing, or nil when no operation is pending.
func recordOperand(s State, value string) *[2]string {
	if s.NextOp == OpNone {
		return nil
	}

	operands := s.Operands
	if afterEquals(s) {
		operands[0] = value
	} else {
		operands[1] = value
	}
	return &operands
}

func ptr[T any](v T) *T {
	return &v
}

func errorPatch(format string, args ...any) *Patch {
	return &Patch{Error: fmt.Sprintf(format, args...)}
}

func patchFrom(s State) *Patch {
	return &Patch{
		Output:     ptr(s.Output),
		Operands:   ptr(s.Operands),
		Expression: slices.Clone(s.Expression),
		NextOp:     ptr(s.NextOp),
		Last:       ptr(s.Last),
	}
}

// trimLeadingZeros collapses "007" to "7" and "00.5" to "0.5".
func trimLeadingZeros(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	integer, fraction, hasFraction := strings.Cut(s, ".")
	integer = strings.TrimLeft(integer, "0")
	if integer == "" {
		integer = "0"
	}
	if hasFraction {
		return sign + integer + "." + fraction
	}
	return sign + integer
}

// withinSafeRange reports whether output can still be held exactly.
func withinSafeRange(output string) bool {
	f, ok := safemath.Parse(output)
	if !ok {
		return false
	}
	return f <= safemath.MaxSafeInteger && f >= -safemath.MaxSafeInteger
}

// entry handles digit and decimal input. next builds the new output from
// the current one when the user is continuing an operand.
func entry(s State, last string, fresh string, next func(output string) (string, bool)) *Patch {
	var (
		output     string
		expression []string
	)

	switch kind := classify(s.Last); {
	case kind == stepEquals:
		output = fresh
	case kind == stepEntry:
		var ok bool
		output, ok = next(s.Output)
		if !ok {
			return nil
		}
	default:
		output = fresh
		if unaryTail(s) {
			expression = slices.Clone(s.Expression[:len(s.Expression)-1])
		}
	}

	output = trimLeadingZeros(output)
	if !withinSafeRange(output) {
		return nil
	}

	value := safemath.Canonical(output)
	if afterEquals(s) {
		// Entry after equals starts over but keeps the trailing equals sign.
		expression = []string{value, symbolEquals}
	}

	return &Patch{
		Output:     ptr(output),
		Operands:   recordOperand(s, value),
		Expression: expression,
		Last:       ptr(last),
	}
}

func digit(s State, value string) *Patch {
	if !isDigits(value) {
		return errorPatch(msgInvalidDigit, value)
	}

	return entry(s, value, value, func(output string) (string, bool) {
		if output == "0" {
			return value, true
		}
		return output + value, true
	})
}

func decimal(s State) *Patch {
	return entry(s, ".", "0.", func(output string) (string, bool) {
		if strings.Contains(output, ".") {
			return "", false
		}
		return output + ".", true
	})
}

// backspace edits typed input only; a computed result is left as it is.
func backspace(s State) *Patch {
	if classify(s.Last) != stepEntry {
		return nil
	}

	output := s.Output
	if output != "" {
		output = output[:len(output)-1]
	}
	if _, ok := safemath.Parse(output); !ok || output == "-0" {
		output = "0"
	}

	value := safemath.Canonical(output)
	p := &Patch{
		Output:   ptr(output),
		Operands: recordOperand(s, value),
	}
	if tail(s.Expression) == symbolEquals {
		p.Expression = []string{value, symbolEquals}
	}
	return p
}

func reset() *Patch {
	return patchFrom(Baseline())
}

func clearEntry() *Patch {
	return &Patch{Output: ptr("0")}
}

func negate(s State) *Patch {
	f, ok := safemath.Parse(s.Output)
	if !ok || f == 0 {
		return nil
	}

	output := "-" + s.Output
	if strings.HasPrefix(s.Output, "-") {
		output = s.Output[1:]
	}

	p := &Patch{
		Output:   ptr(output),
		Operands: recordOperand(s, safemath.Canonical(output)),
	}
	if classify(s.Last) != stepEntry {
		p.Last = ptr(lastNegate)
	}
	return p
}

// compute applies op to the operand strings.
func compute(op Operator, left, right string) (string, error) {
	a, ok := safemath.Parse(left)
	if !ok {
		a = 0
	}
	b, ok := safemath.Parse(right)
	if !ok {
		b = 0
	}

	var result float64
	switch op {
	case OpPlus:
		result = safemath.Add(a, b)
	case OpMinus:
		result = safemath.Subtract(a, b)
	case OpMultiply:
		result = safemath.Multiply(a, b)
	case OpDivide:
		if b == 0 {
			return "", safemath.ErrDivideByZero
		}
		result = safemath.Divide(a, b)
	default:
		return "", fmt.Errorf("unknown operator %q", op)
	}
	return safemath.Format(result), nil
}

func nextOp(s State, value string) *Patch {
	op, ok := ParseOperator(value)
	if !ok {
		return errorPatch(msgInvalidOperator, value)
	}

	symbol := op.Symbol()
	output := safemath.Canonical(s.Output)
	kind := classify(s.Last)

	switch {
	case kind == stepOperator:
		if Operator(s.Last) == op {
			return nil
		}

		// Swap the operator just chosen for the new one.
		expression := slices.Clone(s.Expression)
		if isOperatorSymbol(tail(expression)) {
			expression[len(expression)-1] = symbol
		} else {
			expression = append(expression, symbol)
		}
		return &Patch{Expression: expression, NextOp: ptr(op), Last: ptr(value)}

	case afterEquals(s):
		return &Patch{
			Output:     ptr(output),
			Operands:   &[2]string{output, output},
			Expression: []string{output, symbol},
			NextOp:     ptr(op),
			Last:       ptr(value),
		}

	case s.NextOp != OpNone:
		expression := slices.Clone(s.Expression)
		if !unaryTail(s) {
			expression = append(expression, output)
		}
		expression = append(expression, symbol)

		result, err := compute(s.NextOp, s.Operands[0], s.Operands[1])
		if err != nil {
			return divisionError(err, expression)
		}
		return &Patch{
			Output:     ptr(result),
			Operands:   &[2]string{result, result},
			Expression: expression,
			NextOp:     ptr(op),
			Last:       ptr(value),
		}
	}

	expression := []string{output, symbol}
	if unaryTail(s) {
		expression[0] = tail(s.Expression)
	}
	return &Patch{
		Output:     ptr(output),
		Operands:   &[2]string{output, output},
		Expression: expression,
		NextOp:     ptr(op),
		Last:       ptr(value),
	}
}

// divisionError drops the pending operation along with the failed result,
// so the step after the error starts from a clean slate.
func divisionError(err error, expression []string) *Patch {
	msg := err.Error()
	if errors.Is(err, safemath.ErrDivideByZero) {
		msg = msgDivideByZero
	}
	return &Patch{
		Operands:   &[2]string{},
		Expression: expression,
		NextOp:     ptr(OpNone),
		Last:       ptr(""),
		Error:      msg,
	}
}

func equals(s State) *Patch {
	output := safemath.Canonical(s.Output)

	if s.NextOp == OpNone {
		expression := []string{output, symbolEquals}
		if unaryTail(s) {
			expression[0] = tail(s.Expression)
		}
		return &Patch{Output: ptr(output), Expression: expression, Last: ptr(lastEquals)}
	}

	left, right := s.Operands[0], s.Operands[1]
	symbol := s.NextOp.Symbol()

	var expression []string
	switch {
	case tail(s.Expression) == symbolEquals:
		// Repeat the last operation on the new base without growing the trail.
		left = output
		expression = []string{left, symbol, right, symbolEquals}
	case unaryTail(s) && len(s.Expression) == 1:
		expression = []string{tail(s.Expression), symbol, right, symbolEquals}
	case unaryTail(s):
		expression = append(slices.Clone(s.Expression), symbolEquals)
	case classify(s.Last) == stepOperator:
		expression = append(slices.Clone(s.Expression), right, symbolEquals)
	default:
		expression = append(slices.Clone(s.Expression), output, symbolEquals)
	}

	result, err := compute(s.NextOp, left, right)
	if err != nil {
		return divisionError(err, expression)
	}
	return &Patch{
		Output:     ptr(result),
		Operands:   &[2]string{result, right},
		Expression: expression,
		Last:       ptr(lastEquals),
	}
}

// percent replaces the current entry with that percentage of the left
// operand, so 9 + 5 % shows 9 + 0.45.
func percent(s State) *Patch {
	last := ptr(ActionPercent.String())

	if s.NextOp == OpNone {
		return &Patch{Output: ptr("0"), Expression: []string{"0"}, Last: last}
	}

	output := safemath.Canonical(s.Output)
	left, right := s.Operands[0], output
	kind := classify(s.Last)
	if kind == stepEquals {
		left = output
	}
	if kind == stepEquals || kind == stepOperator || afterEquals(s) {
		right = left
	}

	l, _ := safemath.Parse(left)
	r, _ := safemath.Parse(right)
	value := safemath.Format(safemath.Multiply(l, safemath.Percent(r)))

	var expression []string
	switch {
	case afterEquals(s):
		expression = []string{value}
	case unaryTail(s):
		expression = slices.Clone(s.Expression)
		expression[len(expression)-1] = value
	default:
		expression = append(slices.Clone(s.Expression), value)
	}

	return &Patch{
		Output:     ptr(value),
		Operands:   recordOperand(s, value),
		Expression: expression,
		Last:       last,
	}
}

// unary applies reciprocal, square or squareroot to the output and writes
// its notation, e.g. sqr(9), into the expression. A failed step still shows
// the notation it attempted.
func unary(s State, action Action) *Patch {
	output := safemath.Canonical(s.Output)

	operand := output
	if unaryTail(s) {
		operand = tail(s.Expression)
	}
	notation := notate(action, operand)

	var expression []string
	switch {
	case unaryTail(s):
		expression = slices.Clone(s.Expression)
		expression[len(expression)-1] = notation
	case afterEquals(s), s.NextOp == OpNone:
		expression = []string{notation}
	default:
		expression = append(slices.Clone(s.Expression), notation)
	}

	x, _ := safemath.Parse(output)

	var (
		result float64
		err    error
	)
	switch action {
	case ActionReciprocal:
		result, err = safemath.Reciprocal(x)
		if err != nil {
			return &Patch{Expression: expression, Error: msgDivideByZero}
		}
	case ActionSquare:
		result = safemath.Square(x)
	case ActionSquareRoot:
		result, err = safemath.Sqrt(x)
		if err != nil {
			return &Patch{Expression: expression, Error: fmt.Sprintf(msgInvalidRoot, s.Output)}
		}
	default:
		return errorPatch(msgInvalidAction, action)
	}

	value := safemath.Format(result)
	return &Patch{
		Output:     ptr(value),
		Operands:   recordOperand(s, value),
		Expression: expression,
		Last:       ptr(action.String()),
	}
}

func notate(action Action, operand string) string {
	switch action {
	case ActionReciprocal:
		return "1/(" + operand + ")"
	case ActionSquare:
		return "sqr(" + operand + ")"
	case ActionSquareRoot:
		return "√(" + operand + ")"
	}
	return operand
}
