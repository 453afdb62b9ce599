package calculator

import "fmt"

// Proposer accepts proposals that have passed validation.
type Proposer interface {
	Propose(p Proposal)
}

// ProposalError describes a proposal the dispatcher refused to forward.
type ProposalError struct {
	Proposal Proposal
	Message  string
}

func (e *ProposalError) Error() string {
	return e.Message
}

// Dispatcher checks the shape of incoming proposals before handing them to
// the model.
type Dispatcher struct {
	model Proposer
}

func NewDispatcher(model Proposer) *Dispatcher {
	return &Dispatcher{model: model}
}

// Next forwards p to the model, or returns a *ProposalError without
// forwarding when the action is empty or its value has the wrong shape.
func (d *Dispatcher) Next(p Proposal) error {
	if p.Action == "" {
		return reject(p, `Invalid action specified, "%s"`, p.Action)
	}

	switch p.Action {
	case ActionDigit.String():
		if len(p.Value) != 1 || p.Value[0] < '0' || p.Value[0] > '9' {
			return reject(p, `Invalid value specified for digit, "%s"`, p.Value)
		}
	case ActionNextOp.String():
		if _, ok := ParseOperator(p.Value); !ok && p.Value != lastEquals {
			return reject(p, `Invalid value specified for nextOp, "%s"`, p.Value)
		}
	}

	d.model.Propose(p)
	return nil
}

func reject(p Proposal, format string, args ...any) error {
	return &ProposalError{Proposal: p, Message: fmt.Sprintf(format, args...)}
}
