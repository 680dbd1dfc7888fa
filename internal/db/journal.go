package db

import (
	"context"

	"github.com/mikewrather/agent-arena/internal/models"
)

// Journal records run and step transitions into the SQLite journal. It
// carries the run directory and workflow name so status updates can create
// the run row on first use.
type Journal struct {
	runs   *RunRepository
	events *StepEventRepository

	runDir   string
	workflow string
}

// NewJournal builds a journal for one run.
func NewJournal(database *DB, runDir, workflow string) *Journal {
	return &Journal{
		runs:     NewRunRepository(database),
		events:   NewStepEventRepository(database),
		runDir:   runDir,
		workflow: workflow,
	}
}

// AppendStep records one step transition.
func (j *Journal) AppendStep(ctx context.Context, event models.StepEvent) error {
	return j.events.Append(ctx, &event)
}

// SetRunStatus upserts the run row with its current status and iteration.
func (j *Journal) SetRunStatus(ctx context.Context, runID, status string, iteration int, detail string) error {
	return j.runs.Upsert(ctx, &models.Run{
		ID:        runID,
		RunDir:    j.runDir,
		Workflow:  j.workflow,
		Status:    status,
		Iteration: iteration,
		Detail:    detail,
	})
}
