package engine

import (
	"context"

	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

// GenerateRequest carries everything a generator needs for one invocation.
type GenerateRequest struct {
	Agent              string
	Model              string
	Goal               string
	ConstraintsSummary string
	PriorArtifact      string
	PriorAdjudication  *models.Adjudication
	Iteration          int
}

// CritiqueRequest asks a critic to review the artifact against one
// constraint.
type CritiqueRequest struct {
	Agent      string
	Model      string
	Artifact   string
	Goal       string
	Constraint constraints.Constraint
	Iteration  int
}

// AdjudicateRequest hands the adjudicator the scope-resolved issues.
type AdjudicateRequest struct {
	Agent         string
	Model         string
	Artifact      string
	Goal          string
	Issues        []models.CritiqueIssue
	Iteration     int
	MaxIterations int
}

// RefineRequest asks the refiner to rework the artifact per the last
// adjudication's bill of work.
type RefineRequest struct {
	Agent        string
	Model        string
	Artifact     string
	Goal         string
	Mode         workflows.RefineMode
	Adjudication models.Adjudication
	Iteration    int
}

// Generator produces the initial (or rewritten) artifact text.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Critic reviews the artifact against a single constraint.
type Critic interface {
	Critique(ctx context.Context, req CritiqueRequest) (models.CritiqueRecord, error)
}

// Adjudicator rules on the visible issues.
type Adjudicator interface {
	Adjudicate(ctx context.Context, req AdjudicateRequest) (models.Adjudication, error)
}

// Refiner reworks the artifact according to the adjudication.
type Refiner interface {
	Refine(ctx context.Context, req RefineRequest) (string, error)
}

// Store persists the run context with replace-on-write semantics.
type Store interface {
	Save(rc *RunContext) error
	// Load returns (nil, nil) when no state has been persisted yet.
	Load() (*RunContext, error)
}

// Workspace is the run directory surface the engine writes artifacts and
// terminal markers through.
type Workspace interface {
	SaveArtifact(iteration int, name, text string) (string, error)
	SaveCritique(iteration int, constraintID, reviewer string, record any) error
	SaveFinalArtifact(text string) (string, error)
	WriteResolution(reason string, iteration int, summary string) error
}

// HITLChannel carries questions out to a human and answers back in.
type HITLChannel interface {
	WriteQuestions(questions []models.Question, iteration int) error
	// IngestAnswers consumes the answer file if present, returning nil when
	// no answers have been supplied.
	IngestAnswers() ([]models.Answer, error)
	// QuestionsPending reports whether a question set is still on disk.
	QuestionsPending() bool
	// ClearQuestions removes the question set once the suspension is
	// resolved.
	ClearQuestions() error
}

// Journal records run and step transitions for audit. Journal failures are
// logged but never fail the run; state.json is the correctness-critical
// record.
type Journal interface {
	AppendStep(ctx context.Context, event models.StepEvent) error
	SetRunStatus(ctx context.Context, runID, status string, iteration int, detail string) error
}

// NopJournal discards all events.
type NopJournal struct{}

func (NopJournal) AppendStep(context.Context, models.StepEvent) error { return nil }
func (NopJournal) SetRunStatus(context.Context, string, string, int, string) error {
	return nil
}
