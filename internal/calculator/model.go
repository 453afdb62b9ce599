package calculator

import (
	"slices"

	"go.uber.org/zap"
)

// Sink receives every state the model accepts.
type Sink interface {
	Transition(data State)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(data State)

func (f SinkFunc) Transition(data State) { f(data) }

// Model folds proposals into a State. It is not safe for concurrent use;
// callers sharing a Model must serialize Propose.
type Model struct {
	data   State
	sink   Sink
	logger *zap.Logger
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithLogger sets the logger used for step diagnostics.
func WithLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel returns a Model in the cleared state that reports to sink.
func NewModel(sink Sink, opts ...ModelOption) *Model {
	m := &Model{
		data:   Baseline(),
		sink:   sink,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Data returns a copy of the current state.
func (m *Model) Data() State {
	return m.data.Clone()
}

// Propose applies one action. Steps that change nothing, such as a second
// decimal point, are dropped without notifying the sink unless they dismiss
// an error. Invalid proposals
// never panic; they set Error on the emitted state instead.
func (m *Model) Propose(p Proposal) {
	patch := m.step(p)
	if patch == nil && m.data.Error != "" {
		// A no-op step still dismisses the error.
		patch = &Patch{}
	}
	if patch == nil {
		m.logger.Debug("proposal ignored",
			zap.String("action", p.Action),
			zap.String("value", p.Value),
		)
		return
	}

	m.data = merge(m.data, patch)

	if m.data.Error != "" {
		m.logger.Info("calculator step rejected",
			zap.String("action", p.Action),
			zap.String("value", p.Value),
			zap.String("error", m.data.Error),
		)
	} else {
		m.logger.Debug("calculator step applied",
			zap.String("action", p.Action),
			zap.String("value", p.Value),
			zap.String("output", m.data.Output),
			zap.Strings("expression", m.data.Expression),
		)
	}

	if m.sink != nil {
		m.sink.Transition(m.data.Clone())
	}
}

func (m *Model) step(p Proposal) *Patch {
	action, ok := ParseAction(p.Action)
	if !ok {
		return errorPatch(msgInvalidAction, p.Action)
	}

	s := m.data
	if s.Error != "" {
		// The step after an error starts a fresh operand and drops the
		// attempted expression.
		s.Last = ""
		s.Expression = []string{}
	}

	switch action {
	case ActionBackspace:
		return backspace(s)
	case ActionClear:
		return reset()
	case ActionClearEntry:
		return clearEntry()
	case ActionDecimal:
		return decimal(s)
	case ActionDigit:
		return digit(s, p.Value)
	case ActionEquals:
		return equals(s)
	case ActionNegate:
		return negate(s)
	case ActionNextOp:
		if p.Value == lastEquals {
			return equals(s)
		}
		return nextOp(s, p.Value)
	case ActionPercent:
		return percent(s)
	case ActionReciprocal, ActionSquare, ActionSquareRoot:
		return unary(s, action)
	}
	return errorPatch(msgInvalidAction, p.Action)
}

// merge applies p on top of s. An error and the expression annotation that
// came with it last only until the next step that does not set an error.
func merge(s State, p *Patch) State {
	next := s.Clone()

	if p.Output != nil {
		next.Output = *p.Output
	}
	if p.Operands != nil {
		next.Operands = *p.Operands
	}
	if p.Expression != nil {
		next.Expression = slices.Clone(p.Expression)
	} else if s.Error != "" && p.Error == "" {
		next.Expression = []string{}
	}
	if p.NextOp != nil {
		next.NextOp = *p.NextOp
	}
	if p.Last != nil {
		next.Last = *p.Last
	}
	next.Error = p.Error

	return next
}
