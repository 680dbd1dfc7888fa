package workflows

import "strings"

// NormalizeWorkflow trims whitespace, lowercases enums, and applies the
// documented per-field defaults.
func NormalizeWorkflow(wf *Workflow) *Workflow {
	if wf == nil {
		return nil
	}

	wf.Name = strings.TrimSpace(wf.Name)
	wf.Description = strings.TrimSpace(wf.Description)
	wf.Goal = strings.TrimSpace(wf.Goal)
	if wf.MaxIterations == 0 {
		wf.MaxIterations = DefaultMaxIterations
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		step.Kind = StepKind(strings.ToLower(strings.TrimSpace(string(step.Kind))))
		step.Name = strings.TrimSpace(step.Name)
		step.Agent = strings.TrimSpace(step.Agent)
		step.Model = strings.TrimSpace(step.Model)
		step.LoopTo = strings.TrimSpace(step.LoopTo)
		step.Constraints = normalizeStringSlice(step.Constraints)

		step.Execution = ExecutionMode(strings.ToLower(strings.TrimSpace(string(step.Execution))))
		if step.Execution == "" {
			step.Execution = ExecutionParallel
		}
		step.Order = ConstraintOrder(strings.ToLower(strings.TrimSpace(string(step.Order))))
		if step.Order == "" {
			step.Order = OrderPriority
		}
		step.Scope = AdjudicationScope(strings.ToLower(strings.TrimSpace(string(step.Scope))))
		if step.Scope == "" {
			step.Scope = ScopeAccumulated
		}
		step.Mode = RefineMode(strings.ToLower(strings.TrimSpace(string(step.Mode))))
		if step.Mode == "" {
			step.Mode = RefineEdit
		}
	}

	return wf
}

func normalizeStringSlice(items []string) []string {
	if len(items) == 0 {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
