package engine

import "github.com/mikewrather/agent-arena/internal/models"

// OutcomeKind classifies how a run ended (or suspended).
type OutcomeKind string

const (
	OutcomeApproved      OutcomeKind = "approved"
	OutcomeAborted       OutcomeKind = "aborted"
	OutcomeAwaitingHuman OutcomeKind = "awaiting_human"
	OutcomeError         OutcomeKind = "error"
)

// Process exit codes, one per outcome so calling tooling can branch.
const (
	ExitOK            = 0
	ExitError         = 1
	ExitAwaitingHuman = 10
	ExitMaxIterations = 11
)

// Outcome is the terminal (or suspension) signal of a run.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string
	Questions []models.Question
	Err       error
}

// ExitCode maps the outcome to its process exit code.
func (o Outcome) ExitCode() int {
	switch o.Kind {
	case OutcomeApproved:
		return ExitOK
	case OutcomeAborted:
		return ExitMaxIterations
	case OutcomeAwaitingHuman:
		return ExitAwaitingHuman
	default:
		return ExitError
	}
}

func errorOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err}
}
