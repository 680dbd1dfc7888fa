// Package engine implements the workflow state machine: it walks the
// ordered step list, dispatches step handlers, interprets their control
// signals, and manages the outer iteration loop with crash-safe
// persistence and human-in-the-loop suspension.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/critique"
	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/policy"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

// stepSignal is the control signal a step handler hands back to the loop.
type stepSignal int

const (
	sigAdvance stepSignal = iota
	sigLoopBack
	sigSuspend
	sigApproved
)

// Config wires an Engine.
type Config struct {
	Workflow    *workflows.Workflow
	Constraints []constraints.Constraint

	Generator   Generator
	Critic      Critic
	Adjudicator Adjudicator
	Refiner     Refiner

	Store     Store
	Workspace Workspace
	HITL      HITLChannel
	Journal   Journal

	Logger zerolog.Logger

	// MaxIterations overrides the workflow's cap when > 0.
	MaxIterations int
	// ResetHITL discards any persisted awaiting-human state on start.
	ResetHITL bool
}

// Engine drives one run. A single control thread advances the machine; the
// only internal concurrency is the critique dispatcher's parallel fan-out.
type Engine struct {
	wf        *workflows.Workflow
	all       []constraints.Constraint
	summaries string
	resolver  policy.Resolver

	generator   Generator
	critic      Critic
	adjudicator Adjudicator
	refiner     Refiner

	store   Store
	files   Workspace
	hitl    HITLChannel
	journal Journal

	logger zerolog.Logger

	maxIterations int
	resetHITL     bool
}

// New builds an engine from a validated workflow.
func New(cfg Config) (*Engine, error) {
	if cfg.Workflow == nil {
		return nil, fmt.Errorf("engine: workflow is required")
	}
	if cfg.Store == nil || cfg.Workspace == nil || cfg.HITL == nil {
		return nil, fmt.Errorf("engine: store, workspace, and hitl channel are required")
	}

	journal := cfg.Journal
	if journal == nil {
		journal = NopJournal{}
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = cfg.Workflow.MaxIterations
	}

	return &Engine{
		wf:            cfg.Workflow,
		all:           cfg.Constraints,
		summaries:     constraints.Summaries(cfg.Constraints),
		resolver:      policy.FromWorkflow(cfg.Workflow.DefaultBehavior, cfg.Workflow.ConstraintBehaviors),
		generator:     cfg.Generator,
		critic:        cfg.Critic,
		adjudicator:   cfg.Adjudicator,
		refiner:       cfg.Refiner,
		store:         cfg.Store,
		files:         cfg.Workspace,
		hitl:          cfg.HITL,
		journal:       journal,
		logger:        cfg.Logger,
		maxIterations: maxIterations,
		resetHITL:     cfg.ResetHITL,
	}, nil
}

// Run starts or resumes the workflow and drives it to a terminal outcome
// or suspension.
func (e *Engine) Run(ctx context.Context) Outcome {
	rc, err := e.store.Load()
	if err != nil {
		return errorOutcome(fmt.Errorf("load state: %w", err))
	}
	if rc == nil {
		rc = NewRunContext(e.wf.Name, e.wf.Goal)
		if err := e.save(rc); err != nil {
			return errorOutcome(err)
		}
		e.logger.Info().Str("run_id", rc.RunID).Str("workflow", e.wf.Name).Msg("run started")
	} else {
		e.logger.Info().
			Str("run_id", rc.RunID).
			Int("iteration", rc.Iteration).
			Int("step_index", rc.StepIndex).
			Msg("run resumed")
	}

	e.setRunStatus(ctx, rc, models.RunStatusRunning, "")

	if rc.AwaitingHuman {
		if outcome, suspended := e.resumeHITL(ctx, rc); suspended {
			return outcome
		}
	}

	return e.loop(ctx, rc)
}

// resumeHITL handles a persisted awaiting-human flag. Returns the outcome
// and true when the run must stay suspended.
func (e *Engine) resumeHITL(ctx context.Context, rc *RunContext) (Outcome, bool) {
	if e.resetHITL {
		rc.AwaitingHuman = false
		rc.Pending = nil
		if err := e.save(rc); err != nil {
			return errorOutcome(err), true
		}
		if err := e.hitl.ClearQuestions(); err != nil {
			e.logger.Warn().Err(err).Msg("clear questions failed")
		}
		e.logger.Info().Msg("awaiting-human state cleared by reset")
		return Outcome{}, false
	}

	answers, err := e.hitl.IngestAnswers()
	if err != nil {
		return errorOutcome(fmt.Errorf("ingest answers: %w", err)), true
	}
	if len(answers) > 0 {
		// Keep Pending: the critique handler replays it in place of a
		// fresh dispatch, so no critic is re-invoked.
		rc.AwaitingHuman = false
		if err := e.save(rc); err != nil {
			return errorOutcome(err), true
		}
		if err := e.hitl.ClearQuestions(); err != nil {
			e.logger.Warn().Err(err).Msg("clear questions failed")
		}
		e.logger.Info().Int("answers", len(answers)).Msg("human answers received, resuming")
		return Outcome{}, false
	}

	if !e.hitl.QuestionsPending() {
		// Awaiting flag set but the question set is gone; clear the stale
		// suspension rather than blocking forever.
		rc.AwaitingHuman = false
		rc.Pending = nil
		if err := e.save(rc); err != nil {
			return errorOutcome(err), true
		}
		e.logger.Warn().Msg("cleared stale awaiting-human state: no questions on disk")
		return Outcome{}, false
	}

	var questions []models.Question
	if rc.Pending != nil {
		questions = rc.Pending.Questions
	}
	e.setRunStatus(ctx, rc, models.RunStatusAwaitingHuman, "no answers supplied")
	e.logger.Info().Msg("still awaiting human answers")
	return Outcome{
		Kind:      OutcomeAwaitingHuman,
		Reason:    "awaiting human answers",
		Questions: questions,
	}, true
}

func (e *Engine) loop(ctx context.Context, rc *RunContext) Outcome {
	for {
		for rc.StepIndex < len(e.wf.Steps) {
			step := e.wf.Steps[rc.StepIndex]
			sig, outcome, err := e.executeStep(ctx, rc, step)
			if err != nil {
				e.setRunStatus(ctx, rc, models.RunStatusError, err.Error())
				return errorOutcome(err)
			}

			switch sig {
			case sigAdvance:
				rc.StepIndex++
				if err := e.save(rc); err != nil {
					return errorOutcome(err)
				}
			case sigLoopBack:
				if err := e.save(rc); err != nil {
					return errorOutcome(err)
				}
			case sigSuspend, sigApproved:
				return outcome
			}
		}

		// End of the step list with no approval: wrap to the next
		// iteration or abort at the cap.
		if rc.Iteration >= e.maxIterations {
			return e.finishAborted(ctx, rc)
		}
		rc.rewind(0, true)
		if err := e.save(rc); err != nil {
			return errorOutcome(err)
		}
		e.logger.Info().Int("iteration", rc.Iteration).Msg("starting next iteration")
	}
}

func (e *Engine) finishAborted(ctx context.Context, rc *RunContext) Outcome {
	e.logger.Warn().Int("max_iterations", e.maxIterations).Msg("max iterations reached")

	if rc.Artifact != "" {
		if _, err := e.files.SaveFinalArtifact(rc.Artifact); err != nil {
			return errorOutcome(fmt.Errorf("save final artifact: %w", err))
		}
	}
	if err := e.files.WriteResolution("max_iterations", rc.Iteration, "reached max iterations"); err != nil {
		return errorOutcome(fmt.Errorf("write resolution: %w", err))
	}
	e.setRunStatus(ctx, rc, models.RunStatusAborted, "max iterations reached")

	return Outcome{Kind: OutcomeAborted, Reason: "max_iterations"}
}

func (e *Engine) executeStep(ctx context.Context, rc *RunContext, step workflows.Step) (stepSignal, Outcome, error) {
	switch step.Kind {
	case workflows.StepGenerate:
		return e.handleGenerate(ctx, rc, step)
	case workflows.StepCritique:
		return e.handleCritique(ctx, rc, step)
	case workflows.StepAdjudicate:
		return e.handleAdjudicate(ctx, rc, step)
	case workflows.StepRefine:
		return e.handleRefine(ctx, rc, step)
	default:
		return 0, Outcome{}, fmt.Errorf("unknown step kind %q at index %d", step.Kind, rc.StepIndex)
	}
}

func (e *Engine) handleGenerate(ctx context.Context, rc *RunContext, step workflows.Step) (stepSignal, Outcome, error) {
	name := e.wf.EffectiveName(rc.StepIndex)
	e.logger.Info().Str("step", name).Int("iteration", rc.Iteration).Msg("generate")

	text, err := e.generator.Generate(ctx, GenerateRequest{
		Agent:              step.Agent,
		Model:              step.Model,
		Goal:               rc.Goal,
		ConstraintsSummary: e.summaries,
		PriorArtifact:      rc.Artifact,
		PriorAdjudication:  rc.LastAdjudication,
		Iteration:          rc.Iteration,
	})
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("generate step %s: %w", name, err)
	}

	rc.Artifact = strings.TrimSpace(text)
	path, err := e.files.SaveArtifact(rc.Iteration, "artifact.md", rc.Artifact)
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("save artifact: %w", err)
	}
	rc.ArtifactPath = path

	// A new artifact invalidates every accumulated critique.
	rc.clearCritiqueState()

	e.recordStep(ctx, rc, step, name, models.StepOutcomeOK, "")
	return sigAdvance, Outcome{}, nil
}

func (e *Engine) handleCritique(ctx context.Context, rc *RunContext, step workflows.Step) (stepSignal, Outcome, error) {
	name := e.wf.EffectiveName(rc.StepIndex)

	var result critique.Result
	if pending := rc.Pending; pending != nil &&
		pending.StepIndex == rc.StepIndex && pending.Iteration == rc.Iteration {
		e.logger.Info().Str("step", name).Msg("replaying suspended critique result")
		result = replayPending(pending)
		rc.Pending = nil
	} else {
		selected := constraints.SelectForStep(step, e.all)
		e.logger.Info().
			Str("step", name).
			Str("execution", string(step.Execution)).
			Int("constraints", len(selected)).
			Msg("critique")

		invoke := func(ctx context.Context, c constraints.Constraint) (models.CritiqueRecord, error) {
			return e.critic.Critique(ctx, CritiqueRequest{
				Agent:      step.Agent,
				Model:      step.Model,
				Artifact:   rc.Artifact,
				Goal:       rc.Goal,
				Constraint: c,
				Iteration:  rc.Iteration,
			})
		}
		var err error
		result, err = critique.Dispatch(ctx, step, selected, invoke, e.resolver, e.logger)
		if err != nil {
			return 0, Outcome{}, fmt.Errorf("critique step %s: %w", name, err)
		}
	}

	for i := range result.Records {
		record := &result.Records[i]
		record.StepName = name
		record.Iteration = rc.Iteration
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if err := e.files.SaveCritique(rc.Iteration, record.ConstraintID, record.Reviewer, record); err != nil {
			e.logger.Warn().Err(err).Str("constraint", record.ConstraintID).Msg("critique file write failed")
		}
	}

	if result.Escalated() {
		return e.suspendForEscalation(ctx, rc, step, name, result)
	}

	if result.Halted {
		e.logger.Warn().Str("step", name).Str("reason", result.HaltReason).Msg("critique halted")
	}

	rc.CritiquesByStep[name] = append(rc.CritiquesByStep[name], result.Records...)
	for _, record := range result.Records {
		if !record.Failed {
			rc.Unadjudicated = append(rc.Unadjudicated, record)
		}
	}
	rc.LastCritiqueStep = name

	outcome := models.StepOutcomeOK
	if result.Halted {
		outcome = models.StepOutcomeHalted
	}
	e.recordStep(ctx, rc, step, name, outcome, result.HaltReason)
	return sigAdvance, Outcome{}, nil
}

func (e *Engine) suspendForEscalation(ctx context.Context, rc *RunContext, step workflows.Step, name string, result critique.Result) (stepSignal, Outcome, error) {
	questions := questionsFromIssues(result.Escalations)
	ids := make([]string, 0, len(result.Escalations))
	for _, issue := range result.Escalations {
		ids = append(ids, issue.ID)
	}

	rc.Pending = &models.PendingCritique{
		StepName:          name,
		StepIndex:         rc.StepIndex,
		Iteration:         rc.Iteration,
		Records:           result.Records,
		Halted:            result.Halted,
		HaltReason:        result.HaltReason,
		EscalatedIssueIDs: ids,
		Questions:         questions,
	}
	rc.AwaitingHuman = true

	if err := e.hitl.WriteQuestions(questions, rc.Iteration); err != nil {
		return 0, Outcome{}, fmt.Errorf("write questions: %w", err)
	}
	if err := e.save(rc); err != nil {
		return 0, Outcome{}, err
	}

	e.recordStep(ctx, rc, step, name, models.StepOutcomeEscalated,
		fmt.Sprintf("%d issues escalated", len(result.Escalations)))
	e.setRunStatus(ctx, rc, models.RunStatusAwaitingHuman,
		fmt.Sprintf("%d escalated issues", len(result.Escalations)))
	e.logger.Warn().
		Str("step", name).
		Int("escalations", len(result.Escalations)).
		Msg("suspending for human input")

	return sigSuspend, Outcome{
		Kind:      OutcomeAwaitingHuman,
		Reason:    "escalated issues",
		Questions: questions,
	}, nil
}

func (e *Engine) handleAdjudicate(ctx context.Context, rc *RunContext, step workflows.Step) (stepSignal, Outcome, error) {
	name := e.wf.EffectiveName(rc.StepIndex)

	if RecordsInScope(step.Scope, rc.CritiquesByStep, rc.Unadjudicated, rc.LastCritiqueStep) == 0 {
		e.logger.Info().Str("step", name).Msg("no critiques to adjudicate, continuing")
		e.recordStep(ctx, rc, step, name, models.StepOutcomeOK, "no critiques")
		return sigAdvance, Outcome{}, nil
	}

	visible, clear := SelectForAdjudication(step.Scope, rc.CritiquesByStep, rc.Unadjudicated, rc.LastCritiqueStep)

	e.logger.Info().
		Str("step", name).
		Str("scope", string(step.Scope)).
		Int("issues", len(visible)).
		Msg("adjudicate")

	adj, err := e.adjudicator.Adjudicate(ctx, AdjudicateRequest{
		Agent:         step.Agent,
		Model:         step.Model,
		Artifact:      rc.Artifact,
		Goal:          rc.Goal,
		Issues:        visible,
		Iteration:     rc.Iteration,
		MaxIterations: e.maxIterations,
	})
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("adjudicate step %s: %w", name, err)
	}

	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	adj.Iteration = rc.Iteration
	adj.StepName = name
	rc.LastAdjudication = &adj
	rc.applyClear(clear)

	if adj.Approved() {
		path, err := e.files.SaveFinalArtifact(rc.Artifact)
		if err != nil {
			return 0, Outcome{}, fmt.Errorf("save final artifact: %w", err)
		}
		if err := e.files.WriteResolution("approved", rc.Iteration, "all constraints satisfied"); err != nil {
			return 0, Outcome{}, fmt.Errorf("write resolution: %w", err)
		}
		if err := e.save(rc); err != nil {
			return 0, Outcome{}, err
		}

		e.recordStep(ctx, rc, step, name, models.StepOutcomeOK, "approved")
		e.setRunStatus(ctx, rc, models.RunStatusApproved, "artifact approved")
		e.logger.Info().Str("output", path).Msg("approved")
		return sigApproved, Outcome{Kind: OutcomeApproved}, nil
	}

	e.recordStep(ctx, rc, step, name, models.StepOutcomeOK, adj.Status)
	return sigAdvance, Outcome{}, nil
}

func (e *Engine) handleRefine(ctx context.Context, rc *RunContext, step workflows.Step) (stepSignal, Outcome, error) {
	name := e.wf.EffectiveName(rc.StepIndex)

	if rc.LastAdjudication == nil {
		e.logger.Info().Str("step", name).Msg("no adjudication to refine from, skipping")
		e.recordStep(ctx, rc, step, name, models.StepOutcomeOK, "skipped")
		return sigAdvance, Outcome{}, nil
	}

	e.logger.Info().Str("step", name).Str("mode", string(step.Mode)).Msg("refine")

	text, err := e.refiner.Refine(ctx, RefineRequest{
		Agent:        step.Agent,
		Model:        step.Model,
		Artifact:     rc.Artifact,
		Goal:         rc.Goal,
		Mode:         step.Mode,
		Adjudication: *rc.LastAdjudication,
		Iteration:    rc.Iteration,
	})
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("refine step %s: %w", name, err)
	}

	rc.Artifact = strings.TrimSpace(text)
	path, err := e.files.SaveArtifact(rc.Iteration, "artifact_refined.md", rc.Artifact)
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("save refined artifact: %w", err)
	}
	rc.ArtifactPath = path

	if step.LoopTo != "" {
		if target := e.wf.StepIndexByName(step.LoopTo); target >= 0 {
			e.logger.Info().Str("step", name).Str("target", step.LoopTo).Msg("looping back")
			rc.rewind(target, false)
			e.recordStep(ctx, rc, step, name, models.StepOutcomeLooped, step.LoopTo)
			return sigLoopBack, Outcome{}, nil
		}
		// Missing target falls through to sequential advance.
		e.logger.Warn().Str("target", step.LoopTo).Msg("loop_to target not found, continuing")
	}

	e.recordStep(ctx, rc, step, name, models.StepOutcomeOK, "")
	return sigAdvance, Outcome{}, nil
}

// replayPending rebuilds a critique result from the persisted suspension,
// downgrading escalations to continue so the step completes as if the
// collaborator had just returned.
func replayPending(pending *models.PendingCritique) critique.Result {
	records := make([]models.CritiqueRecord, len(pending.Records))
	copy(records, pending.Records)
	for i := range records {
		issues := make([]models.CritiqueIssue, len(records[i].Issues))
		copy(issues, records[i].Issues)
		for j := range issues {
			if issues[j].Behavior == models.BehaviorEscalate {
				issues[j].Behavior = models.BehaviorContinue
			}
		}
		records[i].Issues = issues
	}
	return critique.Result{
		Records:    records,
		Halted:     pending.Halted,
		HaltReason: pending.HaltReason,
	}
}

func questionsFromIssues(issues []models.CritiqueIssue) []models.Question {
	questions := make([]models.Question, 0, len(issues))
	for i, issue := range issues {
		questions = append(questions, models.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			IssueID:  issue.ID,
			Text:     fmt.Sprintf("[%s] %s (%s): %s", issue.Severity, issue.ID, issue.ConstraintID, issue.Finding),
			Priority: strings.ToLower(string(issue.Severity)),
			Required: true,
		})
	}
	return questions
}

func (e *Engine) save(rc *RunContext) error {
	rc.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(rc); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (e *Engine) recordStep(ctx context.Context, rc *RunContext, step workflows.Step, name, outcome, detail string) {
	event := models.StepEvent{
		RunID:     rc.RunID,
		Iteration: rc.Iteration,
		StepIndex: rc.StepIndex,
		StepName:  name,
		StepKind:  string(step.Kind),
		Agent:     step.Agent,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.journal.AppendStep(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("step", name).Msg("journal append failed")
	}
}

func (e *Engine) setRunStatus(ctx context.Context, rc *RunContext, status, detail string) {
	if err := e.journal.SetRunStatus(ctx, rc.RunID, status, rc.Iteration, detail); err != nil {
		e.logger.Warn().Err(err).Str("status", status).Msg("journal status update failed")
	}
}
