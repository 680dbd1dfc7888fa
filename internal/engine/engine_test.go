package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

// memStore round-trips the context through JSON so tests exercise the same
// serialization a real resume would.
type memStore struct {
	data []byte
}

func (s *memStore) Save(rc *RunContext) error {
	data, err := json.Marshal(rc)
	if err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *memStore) Load() (*RunContext, error) {
	if s.data == nil {
		return nil, nil
	}
	var rc RunContext
	if err := json.Unmarshal(s.data, &rc); err != nil {
		return nil, err
	}
	if rc.CritiquesByStep == nil {
		rc.CritiquesByStep = make(map[string][]models.CritiqueRecord)
	}
	return &rc, nil
}

type memWorkspace struct {
	artifacts   map[string]string
	finalText   string
	resolutions []string
}

func newMemWorkspace() *memWorkspace {
	return &memWorkspace{artifacts: make(map[string]string)}
}

func (w *memWorkspace) SaveArtifact(iteration int, name, text string) (string, error) {
	key := name
	w.artifacts[key] = text
	return key, nil
}

func (w *memWorkspace) SaveCritique(iteration int, constraintID, reviewer string, record any) error {
	return nil
}

func (w *memWorkspace) SaveFinalArtifact(text string) (string, error) {
	w.finalText = text
	return "final/artifact.md", nil
}

func (w *memWorkspace) WriteResolution(reason string, iteration int, summary string) error {
	w.resolutions = append(w.resolutions, reason)
	return nil
}

type memHITL struct {
	written [][]models.Question
	answers []models.Answer
	pending bool
	cleared int
}

func (h *memHITL) WriteQuestions(questions []models.Question, iteration int) error {
	h.written = append(h.written, questions)
	h.pending = true
	return nil
}

func (h *memHITL) IngestAnswers() ([]models.Answer, error) {
	out := h.answers
	h.answers = nil
	return out, nil
}

func (h *memHITL) QuestionsPending() bool {
	return h.pending
}

func (h *memHITL) ClearQuestions() error {
	h.pending = false
	h.cleared++
	return nil
}

type fakeCollab struct {
	generate   func(GenerateRequest) (string, error)
	critique   func(CritiqueRequest) (models.CritiqueRecord, error)
	adjudicate func(AdjudicateRequest) (models.Adjudication, error)
	refine     func(RefineRequest) (string, error)

	generateCalls   atomic.Int64
	critiqueCalls   atomic.Int64
	adjudicateCalls atomic.Int64
	refineCalls     atomic.Int64
}

func (f *fakeCollab) Generate(_ context.Context, req GenerateRequest) (string, error) {
	f.generateCalls.Add(1)
	if f.generate != nil {
		return f.generate(req)
	}
	return "draft text", nil
}

func (f *fakeCollab) Critique(_ context.Context, req CritiqueRequest) (models.CritiqueRecord, error) {
	f.critiqueCalls.Add(1)
	if f.critique != nil {
		return f.critique(req)
	}
	return models.CritiqueRecord{Overall: "PASS"}, nil
}

func (f *fakeCollab) Adjudicate(_ context.Context, req AdjudicateRequest) (models.Adjudication, error) {
	f.adjudicateCalls.Add(1)
	if f.adjudicate != nil {
		return f.adjudicate(req)
	}
	return models.Adjudication{Status: models.AdjudicationApproved}, nil
}

func (f *fakeCollab) Refine(_ context.Context, req RefineRequest) (string, error) {
	f.refineCalls.Add(1)
	if f.refine != nil {
		return f.refine(req)
	}
	return "refined text", nil
}

type testRig struct {
	engine *Engine
	store  *memStore
	files  *memWorkspace
	hitl   *memHITL
	collab *fakeCollab
}

func newRig(t *testing.T, wf *workflows.Workflow, all []constraints.Constraint, collab *fakeCollab, opts ...func(*Config)) *testRig {
	t.Helper()
	validated, err := workflows.ValidateWorkflow(wf)
	if err != nil {
		t.Fatalf("workflow invalid: %v", err)
	}

	store := &memStore{}
	files := newMemWorkspace()
	hitl := &memHITL{}
	cfg := Config{
		Workflow:    validated,
		Constraints: all,
		Generator:   collab,
		Critic:      collab,
		Adjudicator: collab,
		Refiner:     collab,
		Store:       store,
		Workspace:   files,
		HITL:        hitl,
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return &testRig{engine: eng, store: store, files: files, hitl: hitl, collab: collab}
}

func basicWorkflow(maxIterations int) *workflows.Workflow {
	return &workflows.Workflow{
		Name:          "test",
		Goal:          "write a thing",
		MaxIterations: maxIterations,
		Steps: []workflows.Step{
			{Kind: workflows.StepGenerate, Name: "draft", Agent: "writer"},
			{Kind: workflows.StepCritique, Name: "review", Agent: "reviewer"},
			{Kind: workflows.StepAdjudicate, Name: "judge", Agent: "judge"},
			{Kind: workflows.StepRefine, Name: "revise", Agent: "writer"},
		},
	}
}

func TestRunApprovedFirstIteration(t *testing.T) {
	rig := newRig(t, basicWorkflow(3), []constraints.Constraint{{ID: "style"}}, &fakeCollab{
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			return models.CritiqueRecord{
				Overall: "FAIL",
				Issues:  []models.CritiqueIssue{{ID: "i1", Severity: models.SeverityMedium, Finding: "meh"}},
			}, nil
		},
	})

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeApproved {
		t.Fatalf("expected approved, got %+v", outcome)
	}
	if outcome.ExitCode() != ExitOK {
		t.Fatalf("expected exit 0, got %d", outcome.ExitCode())
	}
	if rig.files.finalText != "draft text" {
		t.Fatalf("expected final artifact written, got %q", rig.files.finalText)
	}
	if len(rig.files.resolutions) != 1 || rig.files.resolutions[0] != "approved" {
		t.Fatalf("expected approved resolution, got %v", rig.files.resolutions)
	}
}

func TestSerialHaltScenarioExactCallsAndAbort(t *testing.T) {
	// Workflow: generate then a serial critique over constraints A
	// (priority 1, halts) and B (priority 2); max_iterations 1. A is
	// invoked once, B never, and the run aborts at the iteration cap.
	wf := &workflows.Workflow{
		Name:          "serial-halt",
		MaxIterations: 1,
		Steps: []workflows.Step{
			{Kind: workflows.StepGenerate, Name: "draft", Agent: "writer"},
			{Kind: workflows.StepCritique, Name: "review", Agent: "reviewer",
				Execution: workflows.ExecutionSerial, Order: workflows.OrderPriority},
		},
	}
	all := []constraints.Constraint{
		{ID: "A", Priority: 1},
		{ID: "B", Priority: 2},
	}
	var critiqued []string
	collab := &fakeCollab{
		critique: func(req CritiqueRequest) (models.CritiqueRecord, error) {
			critiqued = append(critiqued, req.Constraint.ID)
			if req.Constraint.ID == "A" {
				return models.CritiqueRecord{
					Overall: "FAIL",
					Issues:  []models.CritiqueIssue{{ID: "a1", Severity: models.SeverityCritical, Finding: "broken"}},
				}, nil
			}
			return models.CritiqueRecord{Overall: "PASS"}, nil
		},
	}
	rig := newRig(t, wf, all, collab)

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeAborted || outcome.Reason != "max_iterations" {
		t.Fatalf("expected aborted(max_iterations), got %+v", outcome)
	}
	if outcome.ExitCode() != ExitMaxIterations {
		t.Fatalf("expected exit 11, got %d", outcome.ExitCode())
	}
	if len(critiqued) != 1 || critiqued[0] != "A" {
		t.Fatalf("expected exactly one critique call for A, got %v", critiqued)
	}
}

func TestGenerateClearsCritiqueState(t *testing.T) {
	// Two iterations: first ends unapproved with leftover critiques, the
	// second generate must start from empty critique state.
	var unadjudicatedAtJudge []int
	collab := &fakeCollab{
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			return models.CritiqueRecord{
				Overall: "FAIL",
				Issues:  []models.CritiqueIssue{{ID: "i", Severity: models.SeverityMedium, Finding: "x"}},
			}, nil
		},
	}
	collab.adjudicate = func(req AdjudicateRequest) (models.Adjudication, error) {
		unadjudicatedAtJudge = append(unadjudicatedAtJudge, len(req.Issues))
		if len(unadjudicatedAtJudge) == 2 {
			return models.Adjudication{Status: models.AdjudicationApproved}, nil
		}
		return models.Adjudication{Status: models.AdjudicationRewrite, BillOfWork: "fix it"}, nil
	}
	rig := newRig(t, basicWorkflow(3), []constraints.Constraint{{ID: "style"}}, collab)

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeApproved {
		t.Fatalf("expected approval on second iteration, got %+v", outcome)
	}
	// Each adjudication sees exactly one fresh issue: iteration two's
	// generate cleared iteration one's residue.
	if len(unadjudicatedAtJudge) != 2 || unadjudicatedAtJudge[0] != 1 || unadjudicatedAtJudge[1] != 1 {
		t.Fatalf("expected [1 1] visible issues, got %v", unadjudicatedAtJudge)
	}
	if rig.collab.generateCalls.Load() != 2 {
		t.Fatalf("expected 2 generate calls, got %d", rig.collab.generateCalls.Load())
	}
}

func TestLoopBackResetsWithoutIterationBump(t *testing.T) {
	wf := basicWorkflow(3)
	wf.Steps[3].LoopTo = "review"

	round := 0
	collab := &fakeCollab{
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			return models.CritiqueRecord{
				Overall: "FAIL",
				Issues:  []models.CritiqueIssue{{ID: "i", Severity: models.SeverityMedium, Finding: "x"}},
			}, nil
		},
		adjudicate: func(req AdjudicateRequest) (models.Adjudication, error) {
			round++
			if round == 2 {
				return models.Adjudication{Status: models.AdjudicationApproved}, nil
			}
			return models.Adjudication{Status: models.AdjudicationRewrite, BillOfWork: "tighten"}, nil
		},
	}
	rig := newRig(t, wf, []constraints.Constraint{{ID: "style"}}, collab)

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeApproved {
		t.Fatalf("expected approval after loop-back, got %+v", outcome)
	}
	// One generate only: the loop-back re-enters at the critique step
	// within the same iteration.
	if rig.collab.generateCalls.Load() != 1 {
		t.Fatalf("expected 1 generate call, got %d", rig.collab.generateCalls.Load())
	}
	if rig.collab.critiqueCalls.Load() != 2 {
		t.Fatalf("expected critique re-run after loop-back, got %d", rig.collab.critiqueCalls.Load())
	}

	var persisted RunContext
	if err := json.Unmarshal(rig.store.data, &persisted); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if persisted.Iteration != 1 {
		t.Fatalf("loop-back must not bump iteration, got %d", persisted.Iteration)
	}
}

func TestLoopToMissingTargetFallsThrough(t *testing.T) {
	wf := basicWorkflow(1)
	// Bypass validation's loop_to check to exercise the runtime fallback.
	validated, err := workflows.ValidateWorkflow(wf)
	if err != nil {
		t.Fatalf("workflow invalid: %v", err)
	}
	validated.Steps[3].LoopTo = "ghost"

	collab := &fakeCollab{
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			return models.CritiqueRecord{
				Overall: "FAIL",
				Issues:  []models.CritiqueIssue{{ID: "i", Severity: models.SeverityMedium, Finding: "x"}},
			}, nil
		},
		adjudicate: func(AdjudicateRequest) (models.Adjudication, error) {
			return models.Adjudication{Status: models.AdjudicationRewrite, BillOfWork: "w"}, nil
		},
	}
	store := &memStore{}
	eng, err := New(Config{
		Workflow:    validated,
		Constraints: []constraints.Constraint{{ID: "style"}},
		Generator:   collab, Critic: collab, Adjudicator: collab, Refiner: collab,
		Store: store, Workspace: newMemWorkspace(), HITL: &memHITL{},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	outcome := eng.Run(context.Background())

	// Refine advanced past the missing target and the single iteration
	// ran out: aborted, not an error.
	if outcome.Kind != OutcomeAborted {
		t.Fatalf("expected aborted, got %+v", outcome)
	}
	if collab.refineCalls.Load() != 1 {
		t.Fatalf("expected refine invoked once, got %d", collab.refineCalls.Load())
	}
}

func TestEscalationSuspendsAndResumeReplays(t *testing.T) {
	wf := basicWorkflow(3)
	wf.DefaultBehavior = map[string]string{"high": "escalate"}

	collab := &fakeCollab{
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			return models.CritiqueRecord{
				Overall: "FAIL",
				Issues:  []models.CritiqueIssue{{ID: "i1", Severity: models.SeverityHigh, Finding: "needs a human"}},
			}, nil
		},
	}
	rig := newRig(t, wf, []constraints.Constraint{{ID: "style"}}, collab)

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeAwaitingHuman {
		t.Fatalf("expected suspension, got %+v", outcome)
	}
	if outcome.ExitCode() != ExitAwaitingHuman {
		t.Fatalf("expected exit 10, got %d", outcome.ExitCode())
	}
	if len(rig.hitl.written) != 1 || len(outcome.Questions) != 1 {
		t.Fatalf("expected one question set written, got %+v", rig.hitl.written)
	}
	critiqueCallsAtSuspend := rig.collab.critiqueCalls.Load()

	// Resume without answers: identical questions, no new agent calls.
	resume := rig.engine.Run(context.Background())
	if resume.Kind != OutcomeAwaitingHuman {
		t.Fatalf("expected re-suspension, got %+v", resume)
	}
	if len(resume.Questions) != 1 || resume.Questions[0].Text != outcome.Questions[0].Text {
		t.Fatalf("expected identical questions on re-suspend")
	}
	if rig.collab.critiqueCalls.Load() != critiqueCallsAtSuspend {
		t.Fatalf("re-suspension must not invoke agents")
	}

	// Supply answers: the stored critique result is replayed (escalation
	// downgraded), no critic re-invocation, and the run proceeds to
	// approval.
	rig.hitl.answers = []models.Answer{{QuestionID: "q1", Text: "proceed as drafted"}}
	final := rig.engine.Run(context.Background())

	if final.Kind != OutcomeApproved {
		t.Fatalf("expected approval after answers, got %+v", final)
	}
	// The suspension is resolved: the question set must be gone.
	if rig.hitl.cleared == 0 || rig.hitl.pending {
		t.Fatalf("expected question set cleared after answers")
	}
	if rig.collab.critiqueCalls.Load() != critiqueCallsAtSuspend {
		t.Fatalf("resume with answers must replay, not re-invoke critics: %d calls",
			rig.collab.critiqueCalls.Load())
	}
	if rig.collab.adjudicateCalls.Load() != 1 {
		t.Fatalf("expected adjudication after replay, got %d", rig.collab.adjudicateCalls.Load())
	}
}

func TestCollaboratorErrorAbortsRun(t *testing.T) {
	boom := errors.New("generator crashed")
	collab := &fakeCollab{
		generate: func(GenerateRequest) (string, error) { return "", boom },
	}
	rig := newRig(t, basicWorkflow(3), nil, collab)

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeError || !errors.Is(outcome.Err, boom) {
		t.Fatalf("expected error outcome wrapping cause, got %+v", outcome)
	}
	if outcome.ExitCode() != ExitError {
		t.Fatalf("expected exit 1, got %d", outcome.ExitCode())
	}
}

func TestMaxIterationsOverride(t *testing.T) {
	collab := &fakeCollab{
		adjudicate: func(AdjudicateRequest) (models.Adjudication, error) {
			return models.Adjudication{Status: models.AdjudicationRewrite, BillOfWork: "again"}, nil
		},
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			return models.CritiqueRecord{
				Overall: "FAIL",
				Issues:  []models.CritiqueIssue{{ID: "i", Severity: models.SeverityMedium, Finding: "x"}},
			}, nil
		},
	}
	rig := newRig(t, basicWorkflow(5), []constraints.Constraint{{ID: "style"}}, collab,
		func(cfg *Config) { cfg.MaxIterations = 2 })

	outcome := rig.engine.Run(context.Background())

	if outcome.Kind != OutcomeAborted {
		t.Fatalf("expected aborted at override cap, got %+v", outcome)
	}
	if rig.collab.generateCalls.Load() != 2 {
		t.Fatalf("expected 2 iterations under override, got %d generates", rig.collab.generateCalls.Load())
	}
	// Last artifact and an aborted resolution still land on disk.
	if rig.files.finalText == "" || rig.files.resolutions[len(rig.files.resolutions)-1] != "max_iterations" {
		t.Fatalf("expected final artifact + max_iterations resolution, got %+v", rig.files.resolutions)
	}
}

func TestResetHITLDiscardsPendingState(t *testing.T) {
	wf := basicWorkflow(1)
	wf.DefaultBehavior = map[string]string{"high": "escalate"}

	escalateOnce := true
	collab := &fakeCollab{
		critique: func(CritiqueRequest) (models.CritiqueRecord, error) {
			if escalateOnce {
				escalateOnce = false
				return models.CritiqueRecord{
					Overall: "FAIL",
					Issues:  []models.CritiqueIssue{{ID: "i1", Severity: models.SeverityHigh, Finding: "ask"}},
				}, nil
			}
			return models.CritiqueRecord{Overall: "PASS"}, nil
		},
	}
	rig := newRig(t, wf, []constraints.Constraint{{ID: "style"}}, collab)

	if outcome := rig.engine.Run(context.Background()); outcome.Kind != OutcomeAwaitingHuman {
		t.Fatalf("expected suspension, got %+v", outcome)
	}

	// Rebuild the engine with ResetHITL using the same persisted store.
	validated, err := workflows.ValidateWorkflow(basicWorkflow(1))
	if err != nil {
		t.Fatalf("workflow invalid: %v", err)
	}
	validated.DefaultBehavior = map[string]string{"high": "escalate"}
	eng, err := New(Config{
		Workflow:    validated,
		Constraints: []constraints.Constraint{{ID: "style"}},
		Generator:   collab, Critic: collab, Adjudicator: collab, Refiner: collab,
		Store: rig.store, Workspace: rig.files, HITL: rig.hitl,
		Logger:    zerolog.Nop(),
		ResetHITL: true,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	outcome := eng.Run(context.Background())

	// Pending state was discarded, the critique re-ran clean, and the run
	// finished.
	if outcome.Kind != OutcomeApproved {
		t.Fatalf("expected approval after reset, got %+v", outcome)
	}
	if rig.collab.critiqueCalls.Load() != 2 {
		t.Fatalf("expected a fresh critique after reset, got %d calls", rig.collab.critiqueCalls.Load())
	}
	if rig.hitl.pending {
		t.Fatalf("expected stale questions cleared by reset")
	}
}
