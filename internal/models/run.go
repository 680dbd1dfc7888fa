package models

import (
	"fmt"
	"time"
)

// Run statuses as stored in the journal.
const (
	RunStatusRunning       = "running"
	RunStatusApproved      = "approved"
	RunStatusAwaitingHuman = "awaiting_human"
	RunStatusAborted       = "aborted"
	RunStatusError         = "error"
)

// Run is one journal row per workflow execution.
type Run struct {
	ID        string     `json:"id"`
	RunDir    string     `json:"run_dir"`
	Workflow  string     `json:"workflow"`
	Status    string     `json:"status"`
	Iteration int        `json:"iteration"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Validate checks the run for storage.
func (r Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run: id is required")
	}
	if r.RunDir == "" {
		return fmt.Errorf("run %s: run_dir is required", r.ID)
	}
	switch r.Status {
	case RunStatusRunning, RunStatusApproved, RunStatusAwaitingHuman,
		RunStatusAborted, RunStatusError:
		return nil
	default:
		return fmt.Errorf("run %s: unknown status %q", r.ID, r.Status)
	}
}

// StepEvent is one journal row per step transition within a run.
type StepEvent struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Iteration int       `json:"iteration"`
	StepIndex int       `json:"step_index"`
	StepName  string    `json:"step_name"`
	StepKind  string    `json:"step_kind"`
	Agent     string    `json:"agent,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Step event outcomes.
const (
	StepOutcomeOK        = "ok"
	StepOutcomeHalted    = "halted"
	StepOutcomeEscalated = "escalated"
	StepOutcomeLooped    = "looped"
	StepOutcomeError     = "error"
)
