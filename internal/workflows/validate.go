package workflows

import (
	"fmt"
	"strings"

	"github.com/mikewrather/agent-arena/internal/models"
)

var validStepKinds = map[StepKind]struct{}{
	StepGenerate:   {},
	StepCritique:   {},
	StepAdjudicate: {},
	StepRefine:     {},
}

// ValidateWorkflow validates and normalizes a workflow. All problems are
// collected into one ErrorList; the engine refuses to start a run with any
// non-empty list.
func ValidateWorkflow(wf *Workflow) (*Workflow, error) {
	if wf == nil {
		list := &ErrorList{}
		list.Add(WorkflowError{Code: ErrCodeMissingField, Message: "workflow is required"})
		return nil, list
	}

	NormalizeWorkflow(wf)
	path := wf.Source
	list := &ErrorList{}

	if wf.Name == "" {
		list.Add(WorkflowError{
			Code:    ErrCodeMissingField,
			Message: "name is required",
			Path:    path,
			Field:   "name",
		})
	}

	if len(wf.Steps) == 0 {
		list.Add(WorkflowError{
			Code:    ErrCodeMissingField,
			Message: "steps are required",
			Path:    path,
			Field:   "steps",
		})
	}

	if wf.MaxIterations < 1 {
		list.Add(WorkflowError{
			Code:    ErrCodeInvalidField,
			Message: fmt.Sprintf("max_iterations must be >= 1, got %d", wf.MaxIterations),
			Path:    path,
			Field:   "max_iterations",
		})
	}

	validateBehaviorMap(path, "default_behavior", wf.DefaultBehavior, list)
	for id, raw := range wf.ConstraintBehaviors {
		validateBehaviorMap(path, fmt.Sprintf("constraint_behaviors.%s", id), raw, list)
	}

	seen := make(map[string]int)
	hasGenerate := false
	for i := range wf.Steps {
		step := &wf.Steps[i]
		index := i + 1

		if step.Kind == StepGenerate {
			hasGenerate = true
		}

		if step.Kind == "" {
			list.Add(WorkflowError{
				Code:    ErrCodeMissingField,
				Message: "step kind is required",
				Path:    path,
				Field:   "steps.step",
				Index:   index,
			})
		} else if _, ok := validStepKinds[step.Kind]; !ok {
			list.Add(WorkflowError{
				Code:    ErrCodeUnknownType,
				Message: fmt.Sprintf("unknown step kind %q", step.Kind),
				Path:    path,
				Step:    step.Name,
				Field:   "steps.step",
				Index:   index,
			})
		}

		if step.Name != "" {
			if prev, exists := seen[step.Name]; exists {
				list.Add(WorkflowError{
					Code:    ErrCodeDuplicateStep,
					Message: fmt.Sprintf("duplicate step name %q (also in step %d)", step.Name, prev),
					Path:    path,
					Step:    step.Name,
					Field:   "steps.name",
					Index:   index,
				})
			} else {
				seen[step.Name] = index
			}
		}

		validateStepFields(wf, step, index, path, list)
	}

	if len(wf.Steps) > 0 && !hasGenerate {
		list.Add(WorkflowError{
			Code:    ErrCodeMissingStep,
			Message: "workflow must have at least one generate step",
			Path:    path,
			Field:   "steps",
		})
	}

	if list.Empty() {
		return wf, nil
	}
	return wf, list
}

func validateStepFields(wf *Workflow, step *Step, index int, path string, list *ErrorList) {
	switch step.Kind {
	case StepCritique:
		if step.Execution != ExecutionParallel && step.Execution != ExecutionSerial {
			list.Add(invalidFieldError(path, step.Name, index, "execution",
				fmt.Sprintf("invalid execution %q (use parallel or serial)", step.Execution)))
		}
		if step.Order != OrderPriority && step.Order != OrderDefinition {
			list.Add(invalidFieldError(path, step.Name, index, "order",
				fmt.Sprintf("invalid order %q (use priority or definition)", step.Order)))
		}
	case StepAdjudicate:
		switch step.Scope {
		case ScopeAccumulated, ScopePrevious, ScopeAll:
		default:
			list.Add(invalidFieldError(path, step.Name, index, "scope",
				fmt.Sprintf("invalid scope %q (use accumulated, previous, or all)", step.Scope)))
		}
	case StepRefine:
		if step.Mode != RefineEdit && step.Mode != RefineRewrite {
			list.Add(invalidFieldError(path, step.Name, index, "mode",
				fmt.Sprintf("invalid mode %q (use edit or rewrite)", step.Mode)))
		}
	}

	if step.LoopTo != "" {
		if step.Kind != StepRefine {
			list.Add(invalidFieldError(path, step.Name, index, "loop_to",
				"loop_to is only valid on refine steps"))
		}
		if wf.StepIndexByName(step.LoopTo) < 0 {
			list.Add(WorkflowError{
				Code:    ErrCodeMissingStep,
				Message: fmt.Sprintf("loop_to references unknown step %q", step.LoopTo),
				Path:    path,
				Step:    step.Name,
				Field:   "loop_to",
				Index:   index,
			})
		}
	}
}

func invalidFieldError(path, step string, index int, field, message string) WorkflowError {
	return WorkflowError{
		Code:    ErrCodeInvalidField,
		Message: message,
		Path:    path,
		Step:    step,
		Field:   field,
		Index:   index,
	}
}

func validateBehaviorMap(path, field string, raw map[string]string, list *ErrorList) {
	for key, value := range raw {
		if !severityKeyKnown(key) {
			list.Add(WorkflowError{
				Code:    ErrCodeUnknownSeverity,
				Message: fmt.Sprintf("unknown severity %q", key),
				Path:    path,
				Field:   field,
			})
			continue
		}
		if _, ok := models.ParseBehavior(value); !ok {
			list.Add(WorkflowError{
				Code:    ErrCodeUnknownBehavior,
				Message: fmt.Sprintf("unknown behavior %q for severity %q", value, key),
				Path:    path,
				Field:   field,
			})
		}
	}
}

// severityKeyKnown distinguishes a genuinely unknown key from one that
// ParseSeverity would silently default to HIGH.
func severityKeyKnown(key string) bool {
	for _, s := range models.Severities() {
		if strings.EqualFold(key, string(s)) {
			return true
		}
	}
	return false
}
