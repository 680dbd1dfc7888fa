package policy

import (
	"testing"

	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/models"
)

func TestResolveChainPriority(t *testing.T) {
	constraint := constraints.Constraint{
		ID:       "style",
		Behavior: map[string]string{"critical": "escalate"},
	}
	resolver := FromWorkflow(
		map[string]string{"critical": "continue", "high": "continue"},
		map[string]map[string]string{"style": {"critical": "ignore", "medium": "halt"}},
	)

	cases := []struct {
		name     string
		severity models.Severity
		want     models.Behavior
	}{
		// Level 1: constraint's own map wins over everything.
		{"constraint own map", models.SeverityCritical, models.BehaviorEscalate},
		// Level 2: per-constraint workflow override when the constraint's
		// own map lacks the severity.
		{"workflow constraint override", models.SeverityMedium, models.BehaviorHalt},
		// Level 3: workflow default_behavior.
		{"workflow default", models.SeverityHigh, models.BehaviorContinue},
		// Level 4: built-in default.
		{"builtin", models.SeverityLow, models.BehaviorIgnore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolver.Resolve(tc.severity, constraint)
			if got != tc.want {
				t.Fatalf("Resolve(%s) = %s, want %s", tc.severity, got, tc.want)
			}
		})
	}
}

func TestResolveBuiltinsOnly(t *testing.T) {
	resolver := Resolver{}
	constraint := constraints.Constraint{ID: "bare"}

	want := models.BuiltinBehaviors()
	for severity, behavior := range want {
		if got := resolver.Resolve(severity, constraint); got != behavior {
			t.Fatalf("Resolve(%s) = %s, want builtin %s", severity, got, behavior)
		}
	}
}

func TestResolveOverridesDoNotLeakAcrossConstraints(t *testing.T) {
	resolver := FromWorkflow(nil, map[string]map[string]string{
		"strict": {"low": "halt"},
	})

	strict := constraints.Constraint{ID: "strict"}
	other := constraints.Constraint{ID: "other"}

	if got := resolver.Resolve(models.SeverityLow, strict); got != models.BehaviorHalt {
		t.Fatalf("expected halt for strict, got %s", got)
	}
	if got := resolver.Resolve(models.SeverityLow, other); got != models.BehaviorIgnore {
		t.Fatalf("expected builtin ignore for other, got %s", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	resolver := FromWorkflow(
		map[string]string{"medium": "escalate"},
		map[string]map[string]string{"a": {"high": "continue"}},
	)
	constraint := constraints.Constraint{
		ID:       "a",
		Behavior: map[string]string{"low": "halt"},
	}

	for _, severity := range models.Severities() {
		first := resolver.Resolve(severity, constraint)
		second := resolver.Resolve(severity, constraint)
		if first != second {
			t.Fatalf("Resolve(%s) not idempotent: %s then %s", severity, first, second)
		}
	}
}

func TestFromWorkflowDropsInvalidEntries(t *testing.T) {
	resolver := FromWorkflow(
		map[string]string{"urgent": "halt"},
		map[string]map[string]string{"x": {"high": "explode"}},
	)

	if len(resolver.Defaults) != 0 {
		t.Fatalf("expected invalid default severity dropped, got %v", resolver.Defaults)
	}
	if len(resolver.ConstraintOverrides) != 0 {
		t.Fatalf("expected invalid override dropped, got %v", resolver.ConstraintOverrides)
	}
}
