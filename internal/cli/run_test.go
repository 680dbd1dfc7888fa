package cli

import (
	"errors"
	"testing"

	"github.com/mikewrather/agent-arena/internal/engine"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

func TestApplyDefaultAgents(t *testing.T) {
	wf := &workflows.Workflow{
		Name: "essay",
		Steps: []workflows.Step{
			{Kind: workflows.StepGenerate, Name: "draft", Agent: "claude"},
			{Kind: workflows.StepCritique, Name: "review"},
		},
	}

	if err := applyDefaultAgents(wf, "codex"); err != nil {
		t.Fatalf("applyDefaultAgents failed: %v", err)
	}
	if wf.Steps[0].Agent != "claude" {
		t.Fatalf("explicit agent overwritten: %s", wf.Steps[0].Agent)
	}
	if wf.Steps[1].Agent != "codex" {
		t.Fatalf("default agent not applied: %s", wf.Steps[1].Agent)
	}

	wf.Steps[1].Agent = ""
	if err := applyDefaultAgents(wf, ""); err == nil {
		t.Fatalf("expected error when no default agent is configured")
	}
}

func TestReportOutcomeExitCodes(t *testing.T) {
	cases := []struct {
		outcome  engine.Outcome
		wantCode int
	}{
		{engine.Outcome{Kind: engine.OutcomeAwaitingHuman}, engine.ExitAwaitingHuman},
		{engine.Outcome{Kind: engine.OutcomeAborted, Reason: "max_iterations"}, engine.ExitMaxIterations},
		{engine.Outcome{Kind: engine.OutcomeError, Err: errors.New("boom")}, engine.ExitError},
	}

	for _, tc := range cases {
		err := reportOutcome(tc.outcome, t.TempDir())
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("%s: expected ExitError, got %v", tc.outcome.Kind, err)
		}
		if exitErr.Code != tc.wantCode {
			t.Fatalf("%s: exit code %d, want %d", tc.outcome.Kind, exitErr.Code, tc.wantCode)
		}
	}

	if err := reportOutcome(engine.Outcome{Kind: engine.OutcomeApproved}, t.TempDir()); err != nil {
		t.Fatalf("approved outcome should return nil, got %v", err)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("  goal line\nrest of it"); got != "goal line" {
		t.Fatalf("firstLine = %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Fatalf("firstLine = %q", got)
	}
}
