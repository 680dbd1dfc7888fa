package engine

import (
	"sort"

	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

// ClearSpec says which critique records to drop from the unadjudicated list
// after an adjudicate step. Clearing is applied by the state machine, never
// inside the resolver.
type ClearSpec struct {
	// All clears the whole unadjudicated list.
	All bool
	// Step clears only records tagged with this step name.
	Step string
}

// SelectForAdjudication computes the issues visible to an adjudicator under
// the given scope, plus the clear-spec to apply afterwards. Ignore-flagged
// issues and failed records are never visible. Pure function.
func SelectForAdjudication(
	scope workflows.AdjudicationScope,
	critiquesByStep map[string][]models.CritiqueRecord,
	unadjudicated []models.CritiqueRecord,
	lastCritiqueStep string,
) ([]models.CritiqueIssue, ClearSpec) {
	switch scope {
	case workflows.ScopePrevious:
		return visibleIssues(critiquesByStep[lastCritiqueStep]), ClearSpec{Step: lastCritiqueStep}

	case workflows.ScopeAll:
		steps := make([]string, 0, len(critiquesByStep))
		for step := range critiquesByStep {
			steps = append(steps, step)
		}
		sort.Strings(steps)
		var all []models.CritiqueRecord
		for _, step := range steps {
			all = append(all, critiquesByStep[step]...)
		}
		return visibleIssues(all), ClearSpec{}

	default: // accumulated
		return visibleIssues(unadjudicated), ClearSpec{All: true}
	}
}

// RecordsInScope counts the critique records a scope exposes, including
// clean passes with no issues. The adjudicator is invoked whenever any
// record is in scope, so an all-pass critique round can still be approved.
func RecordsInScope(
	scope workflows.AdjudicationScope,
	critiquesByStep map[string][]models.CritiqueRecord,
	unadjudicated []models.CritiqueRecord,
	lastCritiqueStep string,
) int {
	switch scope {
	case workflows.ScopePrevious:
		return len(critiquesByStep[lastCritiqueStep])
	case workflows.ScopeAll:
		total := 0
		for _, records := range critiquesByStep {
			total += len(records)
		}
		return total
	default:
		return len(unadjudicated)
	}
}

func visibleIssues(records []models.CritiqueRecord) []models.CritiqueIssue {
	var issues []models.CritiqueIssue
	for _, record := range records {
		issues = append(issues, record.ActionableIssues()...)
	}
	return issues
}

// applyClear executes a clear-spec against the run context.
func (rc *RunContext) applyClear(clear ClearSpec) {
	if clear.All {
		rc.Unadjudicated = nil
		return
	}
	if clear.Step == "" {
		return
	}
	kept := rc.Unadjudicated[:0]
	for _, record := range rc.Unadjudicated {
		if record.StepName != clear.Step {
			kept = append(kept, record)
		}
	}
	rc.Unadjudicated = kept
}
