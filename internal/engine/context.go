package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/mikewrather/agent-arena/internal/models"
)

// RunContext is the single mutable entity the engine owns. It is the
// persisted state record: a reader of the serialized form can reconstruct
// the exact machine position.
type RunContext struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	Goal     string `json:"goal,omitempty"`

	AwaitingHuman bool `json:"awaiting_human"`
	Iteration     int  `json:"iteration"`
	StepIndex     int  `json:"step_index"`

	Artifact     string `json:"artifact,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`

	CritiquesByStep  map[string][]models.CritiqueRecord `json:"critiques_by_step"`
	Unadjudicated    []models.CritiqueRecord            `json:"unadjudicated"`
	LastCritiqueStep string                             `json:"last_critique_step,omitempty"`
	LastAdjudication *models.Adjudication               `json:"last_adjudication"`

	// Pending is the suspended critique step result, carried so resume can
	// replay it instead of re-invoking critics.
	Pending *models.PendingCritique `json:"pending_critique,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewRunContext builds a fresh context at (iteration 1, step 0).
func NewRunContext(workflowName, goal string) *RunContext {
	return &RunContext{
		RunID:           uuid.NewString(),
		Workflow:        workflowName,
		Goal:            goal,
		Iteration:       1,
		StepIndex:       0,
		CritiquesByStep: make(map[string][]models.CritiqueRecord),
	}
}

// clearCritiqueState empties both critique accumulators. Called on
// generate, on a resolved loop-back, and on the outer iteration wrap.
func (rc *RunContext) clearCritiqueState() {
	rc.CritiquesByStep = make(map[string][]models.CritiqueRecord)
	rc.Unadjudicated = nil
	rc.LastCritiqueStep = ""
}

// rewind jumps the machine to a step index and clears critique state. The
// loop_to primitive and the outer iteration wrap are both expressed through
// it; only the wrap increments the iteration counter.
func (rc *RunContext) rewind(stepIndex int, bumpIteration bool) {
	rc.StepIndex = stepIndex
	rc.clearCritiqueState()
	if bumpIteration {
		rc.Iteration++
	}
}
