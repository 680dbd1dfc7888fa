package constraints

import (
	"path"
	"sort"

	"github.com/mikewrather/agent-arena/internal/workflows"
)

// SelectForStep filters the loaded constraints by the critique step's glob
// patterns and orders the selection. No patterns selects everything.
// Ordering is ascending priority (stable, so definition order breaks ties)
// or pure definition order.
func SelectForStep(step workflows.Step, all []Constraint) []Constraint {
	if step.Kind != workflows.StepCritique {
		return nil
	}

	var selected []Constraint
	if len(step.Constraints) == 0 {
		selected = make([]Constraint, len(all))
		copy(selected, all)
	} else {
		for _, c := range all {
			for _, pattern := range step.Constraints {
				if ok, err := path.Match(pattern, c.ID); err == nil && ok {
					selected = append(selected, c)
					break
				}
			}
		}
	}

	if step.Order == workflows.OrderPriority {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Priority < selected[j].Priority
		})
	}

	return selected
}
