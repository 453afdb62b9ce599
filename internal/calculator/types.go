package calculator

import (
	"slices"
)

// Operator names a pending binary operation.
type Operator string

const (
	OpNone     Operator = ""
	OpPlus     Operator = "plus"
	OpMinus    Operator = "minus"
	OpMultiply Operator = "multiply"
	OpDivide   Operator = "divide"
)

// Expression symbols.
const (
	symbolPlus     = "+"
	symbolMinus    = "−"
	symbolMultiply = "×"
	symbolDivide   = "÷"
	symbolEquals   = "="
)

// ParseOperator maps an operator name to an Operator.
func ParseOperator(name string) (Operator, bool) {
	switch op := Operator(name); op {
	case OpPlus, OpMinus, OpMultiply, OpDivide:
		return op, true
	}
	return OpNone, false
}

// Symbol returns the expression token for o.
func (o Operator) Symbol() string {
	switch o {
	case OpPlus:
		return symbolPlus
	case OpMinus:
		return symbolMinus
	case OpMultiply:
		return symbolMultiply
	case OpDivide:
		return symbolDivide
	}
	return ""
}

func isOperatorSymbol(token string) bool {
	switch token {
	case symbolPlus, symbolMinus, symbolMultiply, symbolDivide:
		return true
	}
	return false
}

// Action is one of the steps the model knows how to apply.
type Action int

const (
	ActionBackspace Action = iota + 1
	ActionClear
	ActionClearEntry
	ActionDecimal
	ActionDigit
	ActionEquals
	ActionNegate
	ActionNextOp
	ActionPercent
	ActionReciprocal
	ActionSquare
	ActionSquareRoot
)

var actionNames = map[Action]string{
	ActionBackspace:  "backspace",
	ActionClear:      "clear",
	ActionClearEntry: "clearentry",
	ActionDecimal:    "decimal",
	ActionDigit:      "digit",
	ActionEquals:     "equals",
	ActionNegate:     "negate",
	ActionNextOp:     "nextOp",
	ActionPercent:    "percent",
	ActionReciprocal: "reciprocal",
	ActionSquare:     "square",
	ActionSquareRoot: "squareroot",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

// ParseAction maps an action name such as "digit" or "squareroot" to an Action.
func ParseAction(name string) (Action, bool) {
	a, ok := actionsByName[name]
	return a, ok
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Proposal is a request to apply an action, e.g. {"action":"digit","value":"7"}.
type Proposal struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
}

// State is the calculator record folded from the stream of actions.
type State struct {
	Output     string    `json:"output"`
	Operands   [2]string `json:"operands"`
	Expression []string  `json:"expression"`
	NextOp     Operator  `json:"nextOp"`
	Last       string    `json:"last"`
	Error      string    `json:"error"`
}

// Baseline returns the cleared state.
func Baseline() State {
	return State{
		Output:     "0",
		Expression: []string{},
	}
}

// Clone returns a copy of s that shares no memory with it.
func (s State) Clone() State {
	s.Expression = slices.Clone(s.Expression)
	if s.Expression == nil {
		s.Expression = []string{}
	}
	return s
}

// Equal reports whether s and other hold the same values.
func (s State) Equal(other State) bool {
	return s.Output == other.Output &&
		s.Operands == other.Operands &&
		slices.Equal(s.Expression, other.Expression) &&
		s.NextOp == other.NextOp &&
		s.Last == other.Last &&
		s.Error == other.Error
}

// Patch is the set of fields a step changes. Nil fields are left as they
// are; a nil Expression leaves the expression alone while an empty non-nil
// one clears it. Error is always applied, so a patch without an error
// clears the previous one.
type Patch struct {
	Output     *string
	Operands   *[2]string
	Expression []string
	NextOp     *Operator
	Last       *string
	Error      string
}

// Representation is what a renderer shows for a State.
type Representation struct {
	Output     string `json:"output"`
	Expression string `json:"expression"`
	Alert      string `json:"alert"`
	Error      string `json:"error,omitempty"`
	HasError   bool   `json:"hasError"`
}

// History groups the snapshots of the computation in progress and of
// computations that ended with equals.
type History struct {
	Current   []State   `json:"current"`
	Completed [][]State `json:"completed"`
}

// SessionResponse is the JSON body for session endpoints.
type SessionResponse struct {
	ID      string         `json:"id"`
	State   State          `json:"state"`
	Display Representation `json:"display"`
}

// BatchRequest is the JSON body for POST /calculator/sessions/{id}/batch.
type BatchRequest struct {
	Actions []Proposal `json:"actions"`
}
