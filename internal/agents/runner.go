package agents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikewrather/agent-arena/internal/engine"
	"github.com/mikewrather/agent-arena/internal/logging"
	"github.com/mikewrather/agent-arena/internal/models"
)

// execFunc runs one agent invocation and returns its stdout. Swappable in
// tests so collaborator logic can be exercised without subprocesses.
type execFunc func(ctx context.Context, profile models.AgentProfile, model, prompt string) (string, error)

// Runner executes workflow steps through named agent profiles. It implements
// the engine's Generator, Critic, Adjudicator, and Refiner collaborators.
type Runner struct {
	profiles map[string]models.AgentProfile
	log      zerolog.Logger
	exec     execFunc
}

// NewRunner builds a runner over the given profiles, keyed by profile name.
func NewRunner(profiles map[string]models.AgentProfile) *Runner {
	r := &Runner{
		profiles: profiles,
		log:      logging.Component("agents"),
	}
	r.exec = r.run
	return r
}

func (r *Runner) profileFor(name string) (models.AgentProfile, error) {
	profile, ok := r.profiles[name]
	if !ok {
		return models.AgentProfile{}, fmt.Errorf("unknown agent profile %q", name)
	}
	return profile, nil
}

// Generate produces the initial or rewritten artifact.
func (r *Runner) Generate(ctx context.Context, req engine.GenerateRequest) (string, error) {
	profile, err := r.profileFor(req.Agent)
	if err != nil {
		return "", err
	}
	out, err := r.exec(ctx, profile, req.Model, BuildGeneratorPrompt(req))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Critique reviews the artifact against one constraint. Subprocess failure
// is returned as an error; unparseable output degrades to an ERROR record.
func (r *Runner) Critique(ctx context.Context, req engine.CritiqueRequest) (models.CritiqueRecord, error) {
	profile, err := r.profileFor(req.Agent)
	if err != nil {
		return models.CritiqueRecord{}, err
	}
	out, err := r.exec(ctx, profile, req.Model, BuildCriticPrompt(req))
	if err != nil {
		return models.CritiqueRecord{}, err
	}
	record := ParseCritique(out, profile.Name, req.Constraint.ID, req.Iteration)
	if record.Overall == "ERROR" {
		r.log.Warn().
			Str("agent", profile.Name).
			Str("constraint", req.Constraint.ID).
			Msg("critic output was not parseable")
	}
	return record, nil
}

// Adjudicate rules on the visible issues.
func (r *Runner) Adjudicate(ctx context.Context, req engine.AdjudicateRequest) (models.Adjudication, error) {
	profile, err := r.profileFor(req.Agent)
	if err != nil {
		return models.Adjudication{}, err
	}
	out, err := r.exec(ctx, profile, req.Model, BuildAdjudicatorPrompt(req))
	if err != nil {
		return models.Adjudication{}, err
	}
	adj := ParseAdjudication(out, req.Iteration)
	if adj.Status == "ERROR" {
		r.log.Warn().Str("agent", profile.Name).Msg("adjudicator output was not parseable")
	}
	return adj, nil
}

// Refine reworks the artifact per the adjudication's bill of work.
func (r *Runner) Refine(ctx context.Context, req engine.RefineRequest) (string, error) {
	profile, err := r.profileFor(req.Agent)
	if err != nil {
		return "", err
	}
	out, err := r.exec(ctx, profile, req.Model, BuildRefinerPrompt(req))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// run is the real subprocess execution path.
func (r *Runner) run(ctx context.Context, profile models.AgentProfile, model, prompt string) (string, error) {
	if profile.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(profile.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	execution, err := BuildExecution(ctx, profile, model, prompt)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	execution.Cmd.Stdout = &stdout
	execution.Cmd.Stderr = &stderr

	start := time.Now()
	r.log.Debug().
		Str("agent", profile.Name).
		Str("model", model).
		Msg("invoking agent")

	if err := execution.Cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		stderrText := strings.TrimSpace(stderr.String())
		if profile.SuppressStderr {
			stderrText = ""
		}
		return "", &AgentError{Agent: profile.Name, ExitCode: exitCode, Stderr: stderrText, Err: err}
	}

	r.log.Debug().
		Str("agent", profile.Name).
		Dur("elapsed", time.Since(start)).
		Int("stdout_bytes", stdout.Len()).
		Msg("agent finished")
	return stdout.String(), nil
}
