package critique

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/policy"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

func serialStep() workflows.Step {
	return workflows.Step{Kind: workflows.StepCritique, Execution: workflows.ExecutionSerial}
}

func parallelStep() workflows.Step {
	return workflows.Step{Kind: workflows.StepCritique, Execution: workflows.ExecutionParallel}
}

func issueRecord(issues ...models.CritiqueIssue) models.CritiqueRecord {
	overall := "PASS"
	if len(issues) > 0 {
		overall = "FAIL"
	}
	return models.CritiqueRecord{Overall: overall, Issues: issues}
}

func staticCritic(t *testing.T, calls *atomic.Int64, byID map[string]models.CritiqueRecord) CriticFunc {
	t.Helper()
	return func(_ context.Context, c constraints.Constraint) (models.CritiqueRecord, error) {
		calls.Add(1)
		return byID[c.ID], nil
	}
}

func TestSerialHaltInvokesExactlyK(t *testing.T) {
	selected := []constraints.Constraint{
		{ID: "a", Priority: 1},
		{ID: "b", Priority: 2},
		{ID: "c", Priority: 3},
	}
	records := map[string]models.CritiqueRecord{
		"a": issueRecord(models.CritiqueIssue{ID: "A1", Severity: models.SeverityMedium, Finding: "minor"}),
		"b": issueRecord(models.CritiqueIssue{ID: "B1", Severity: models.SeverityCritical, Finding: "broken"}),
		"c": issueRecord(),
	}

	var calls atomic.Int64
	result, err := Dispatch(context.Background(), serialStep(), selected,
		staticCritic(t, &calls, records), policy.Resolver{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if calls.Load() != 2 {
		t.Fatalf("expected exactly 2 invocations, got %d", calls.Load())
	}
	if !result.Halted {
		t.Fatalf("expected halted result")
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records (a and the halting b), got %d", len(result.Records))
	}
	if result.Records[1].ConstraintID != "b" {
		t.Fatalf("expected halting record last, got %s", result.Records[1].ConstraintID)
	}
}

func TestSerialEscalationDoesNotStopWalk(t *testing.T) {
	selected := []constraints.Constraint{{ID: "a"}, {ID: "b"}}
	resolver := policy.FromWorkflow(map[string]string{"high": "escalate"}, nil)
	records := map[string]models.CritiqueRecord{
		"a": issueRecord(models.CritiqueIssue{ID: "A1", Severity: models.SeverityHigh}),
		"b": issueRecord(models.CritiqueIssue{ID: "B1", Severity: models.SeverityHigh}),
	}

	var calls atomic.Int64
	result, err := Dispatch(context.Background(), serialStep(), selected,
		staticCritic(t, &calls, records), resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if calls.Load() != 2 {
		t.Fatalf("expected both constraints invoked, got %d", calls.Load())
	}
	if !result.Escalated() || len(result.Escalations) != 2 {
		t.Fatalf("expected 2 escalations, got %d", len(result.Escalations))
	}
	if result.Halted {
		t.Fatalf("escalation must not set halted")
	}
}

func TestSerialCollaboratorErrorAbortsStep(t *testing.T) {
	selected := []constraints.Constraint{{ID: "a"}, {ID: "b"}}
	boom := errors.New("agent exploded")
	invoke := func(_ context.Context, c constraints.Constraint) (models.CritiqueRecord, error) {
		if c.ID == "a" {
			return models.CritiqueRecord{}, boom
		}
		return issueRecord(), nil
	}

	_, err := Dispatch(context.Background(), serialStep(), selected, invoke,
		policy.Resolver{}, zerolog.Nop())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped collaborator error, got %v", err)
	}
}

func TestParallelInvokesAllAndOrdersRecords(t *testing.T) {
	selected := []constraints.Constraint{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	records := map[string]models.CritiqueRecord{
		"a": issueRecord(),
		"b": issueRecord(models.CritiqueIssue{ID: "B1", Severity: models.SeverityCritical, Finding: "bad"}),
		"c": issueRecord(),
		"d": issueRecord(models.CritiqueIssue{ID: "D1", Severity: models.SeverityLow}),
	}

	var calls atomic.Int64
	result, err := Dispatch(context.Background(), parallelStep(), selected,
		staticCritic(t, &calls, records), policy.Resolver{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if calls.Load() != 4 {
		t.Fatalf("expected all 4 invoked despite halt, got %d", calls.Load())
	}
	if !result.Halted {
		t.Fatalf("expected halted outcome")
	}
	if len(result.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(result.Records))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if result.Records[i].ConstraintID != want {
			t.Fatalf("record %d: expected %s, got %s", i, want, result.Records[i].ConstraintID)
		}
	}
}

func TestParallelFailureIsolatedToConstraint(t *testing.T) {
	selected := []constraints.Constraint{{ID: "a"}, {ID: "b"}}
	invoke := func(_ context.Context, c constraints.Constraint) (models.CritiqueRecord, error) {
		if c.ID == "a" {
			return models.CritiqueRecord{}, errors.New("timeout")
		}
		return issueRecord(models.CritiqueIssue{ID: "B1", Severity: models.SeverityMedium}), nil
	}

	result, err := Dispatch(context.Background(), parallelStep(), selected, invoke,
		policy.Resolver{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("parallel failure must not abort step: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	failed := result.Records[0]
	if !failed.Failed || failed.Error == "" || failed.ConstraintID != "a" {
		t.Fatalf("expected failed record for a, got %+v", failed)
	}
	if result.Records[1].Failed {
		t.Fatalf("expected b to succeed")
	}
}

func TestIgnoredIssuesAnnotatedButKept(t *testing.T) {
	selected := []constraints.Constraint{{ID: "a"}}
	records := map[string]models.CritiqueRecord{
		"a": issueRecord(
			models.CritiqueIssue{ID: "A1", Severity: models.SeverityLow},
			models.CritiqueIssue{ID: "A2", Severity: models.SeverityMedium},
		),
	}

	var calls atomic.Int64
	result, err := Dispatch(context.Background(), parallelStep(), selected,
		staticCritic(t, &calls, records), policy.Resolver{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	record := result.Records[0]
	if len(record.Issues) != 2 {
		t.Fatalf("ignored issues must stay in the record, got %d", len(record.Issues))
	}
	if record.Issues[0].Behavior != models.BehaviorIgnore {
		t.Fatalf("expected LOW annotated ignore, got %s", record.Issues[0].Behavior)
	}
	actionable := record.ActionableIssues()
	if len(actionable) != 1 || actionable[0].ID != "A2" {
		t.Fatalf("expected only A2 actionable, got %+v", actionable)
	}
}

func TestEscalationInParallelTakesPrecedenceOverHalt(t *testing.T) {
	selected := []constraints.Constraint{{ID: "a"}, {ID: "b"}}
	resolver := policy.FromWorkflow(map[string]string{"high": "escalate"}, nil)
	records := map[string]models.CritiqueRecord{
		"a": issueRecord(models.CritiqueIssue{ID: "A1", Severity: models.SeverityCritical, Finding: "halt me"}),
		"b": issueRecord(models.CritiqueIssue{ID: "B1", Severity: models.SeverityHigh}),
	}

	var calls atomic.Int64
	result, err := Dispatch(context.Background(), parallelStep(), selected,
		staticCritic(t, &calls, records), resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if !result.Halted || !result.Escalated() {
		t.Fatalf("expected both halt and escalation to be reported, got %+v", result)
	}
	if result.Escalations[0].ID != "B1" {
		t.Fatalf("expected B1 escalated, got %s", result.Escalations[0].ID)
	}
}

func TestHaltReasonTruncationKeepsValidUTF8(t *testing.T) {
	finding := strings.Repeat("語", 30) // 3-byte runes, the 50-byte cap lands mid-rune
	selected := []constraints.Constraint{{ID: "facts"}}
	resolver := policy.FromWorkflow(map[string]string{"critical": "halt"}, nil)
	records := map[string]models.CritiqueRecord{
		"facts": issueRecord(models.CritiqueIssue{ID: "F1", Severity: models.SeverityCritical, Finding: finding}),
	}

	var calls atomic.Int64
	result, err := Dispatch(context.Background(), serialStep(), selected,
		staticCritic(t, &calls, records), resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if !result.Halted {
		t.Fatalf("expected halt, got %+v", result)
	}
	if !utf8.ValidString(result.HaltReason) {
		t.Fatalf("halt reason is not valid UTF-8: %q", result.HaltReason)
	}
}
