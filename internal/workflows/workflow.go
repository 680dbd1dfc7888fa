// Package workflows defines the workflow definition schema, loading, and
// validation.
package workflows

import "fmt"

// StepKind discriminates the four step handlers.
type StepKind string

const (
	StepGenerate   StepKind = "generate"
	StepCritique   StepKind = "critique"
	StepAdjudicate StepKind = "adjudicate"
	StepRefine     StepKind = "refine"
)

// ExecutionMode controls how a critique step walks its constraints.
type ExecutionMode string

const (
	ExecutionParallel ExecutionMode = "parallel"
	ExecutionSerial   ExecutionMode = "serial"
)

// ConstraintOrder controls the ordering of selected constraints.
type ConstraintOrder string

const (
	OrderPriority   ConstraintOrder = "priority"
	OrderDefinition ConstraintOrder = "definition"
)

// AdjudicationScope selects which critique records an adjudicator sees.
type AdjudicationScope string

const (
	ScopeAccumulated AdjudicationScope = "accumulated"
	ScopePrevious    AdjudicationScope = "previous"
	ScopeAll         AdjudicationScope = "all"
)

// RefineMode controls how the refiner reworks the artifact.
type RefineMode string

const (
	RefineEdit    RefineMode = "edit"
	RefineRewrite RefineMode = "rewrite"
)

// DefaultMaxIterations caps the outer iteration loop when a workflow does
// not set its own limit.
const DefaultMaxIterations = 3

// Step is one entry in the ordered step list. Kind decides which of the
// optional fields apply; the rest are ignored.
type Step struct {
	Kind  StepKind `toml:"step"`
	Name  string   `toml:"name"`
	Agent string   `toml:"agent"`
	Model string   `toml:"model"`

	// Critique fields.
	Execution   ExecutionMode   `toml:"execution"`
	Order       ConstraintOrder `toml:"order"`
	Constraints []string        `toml:"constraints"`

	// Adjudicate field.
	Scope AdjudicationScope `toml:"scope"`

	// Refine fields.
	Mode   RefineMode `toml:"mode"`
	LoopTo string     `toml:"loop_to"`
}

// Workflow is a parsed workflow definition file. Immutable after Validate.
type Workflow struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Goal        string `toml:"goal"`

	MaxIterations int `toml:"max_iterations"`

	// DefaultBehavior maps severity names to behaviors, overriding the
	// built-in defaults for every constraint without its own override.
	DefaultBehavior map[string]string `toml:"default_behavior"`

	// ConstraintBehaviors maps constraint ids to severity→behavior maps,
	// sitting between a constraint's own behavior field and DefaultBehavior
	// in the resolution chain.
	ConstraintBehaviors map[string]map[string]string `toml:"constraint_behaviors"`

	Steps []Step `toml:"steps"`

	Source string `toml:"-"`
}

// EffectiveName returns the step's name, or a positional fallback for
// unnamed steps so records and logs always carry a step tag.
func (w *Workflow) EffectiveName(i int) string {
	if i < 0 || i >= len(w.Steps) {
		return ""
	}
	if w.Steps[i].Name != "" {
		return w.Steps[i].Name
	}
	return fmt.Sprintf("%s_%d", w.Steps[i].Kind, i)
}

// StepIndexByName returns the index of the step with the given name, or -1.
func (w *Workflow) StepIndexByName(name string) int {
	if name == "" {
		return -1
	}
	for i, step := range w.Steps {
		if step.Name == name {
			return i
		}
	}
	return -1
}
