package constraints

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

func writeConstraint(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write constraint: %v", err)
	}
}

func TestLoadDirParsesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConstraint(t, dir, "style-voice.yaml", `
id: style-voice
priority: 2
summary: Keep an active, confident voice
behavior:
  high: continue
rules:
  - id: SV1
    text: Avoid passive constructions
`)
	writeConstraint(t, dir, "structure.yaml", `
summary: One idea per paragraph
rules:
  - id: ST1
    text: Each paragraph advances a single point
    default_severity: MEDIUM
`)

	all, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 constraints, got %d", len(all))
	}

	// Lexical order: structure.yaml before style-voice.yaml.
	structure := all[0]
	if structure.ID != "structure" {
		t.Fatalf("expected filename-stem id, got %q", structure.ID)
	}
	if structure.Priority != 10 {
		t.Fatalf("expected default priority 10, got %d", structure.Priority)
	}

	voice := all[1]
	if voice.Rules[0].DefaultSeverity != string(models.SeverityHigh) {
		t.Fatalf("expected default severity HIGH, got %q", voice.Rules[0].DefaultSeverity)
	}
	overrides := voice.BehaviorOverrides()
	if overrides[models.SeverityHigh] != models.BehaviorContinue {
		t.Fatalf("expected behavior override high=continue, got %v", overrides)
	}
}

func TestLoadDirRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeConstraint(t, dir, "a.yaml", "id: same\nsummary: a\n")
	writeConstraint(t, dir, "b.yaml", "id: same\nsummary: b\n")

	_, err := LoadDir(dir)
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if !strings.Contains(err.Error(), "same") {
		t.Fatalf("expected id in error, got: %v", err)
	}
}

func TestLoadDirMissingDirIsEmpty(t *testing.T) {
	all, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty result")
	}
}

func testConstraints() []Constraint {
	return []Constraint{
		{ID: "style-voice", Priority: 3},
		{ID: "style-tone", Priority: 1},
		{ID: "structure-flow", Priority: 2},
	}
}

func TestSelectForStepPatternsAndPriority(t *testing.T) {
	step := workflows.Step{
		Kind:        workflows.StepCritique,
		Order:       workflows.OrderPriority,
		Constraints: []string{"style-*"},
	}

	selected := SelectForStep(step, testConstraints())
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}
	if selected[0].ID != "style-tone" || selected[1].ID != "style-voice" {
		t.Fatalf("expected priority order [style-tone style-voice], got [%s %s]",
			selected[0].ID, selected[1].ID)
	}
}

func TestSelectForStepNoPatternsSelectsAll(t *testing.T) {
	step := workflows.Step{Kind: workflows.StepCritique, Order: workflows.OrderDefinition}

	selected := SelectForStep(step, testConstraints())
	if len(selected) != 3 {
		t.Fatalf("expected all 3, got %d", len(selected))
	}
	// Definition order preserved.
	if selected[0].ID != "style-voice" {
		t.Fatalf("expected definition order, got %s first", selected[0].ID)
	}
}

func TestSelectForStepNonCritique(t *testing.T) {
	step := workflows.Step{Kind: workflows.StepGenerate}
	if got := SelectForStep(step, testConstraints()); got != nil {
		t.Fatalf("expected nil for non-critique step, got %v", got)
	}
}

func TestSummariesOrderedByPriority(t *testing.T) {
	all := []Constraint{
		{ID: "b", Priority: 2, Summary: "second"},
		{ID: "a", Priority: 1, Summary: "first"},
		{ID: "c", Priority: 3, Summary: ""},
	}

	digest := Summaries(all)
	first := strings.Index(digest, "[a] first")
	second := strings.Index(digest, "[b] second")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("unexpected digest:\n%s", digest)
	}
	if strings.Contains(digest, "[c]") {
		t.Fatalf("empty summaries should be skipped:\n%s", digest)
	}
}
