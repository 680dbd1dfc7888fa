// Package policy resolves the behavior to apply to a critique issue from
// its severity and owning constraint.
package policy

import (
	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/models"
)

// Resolver answers severity→behavior lookups. It is a pure value: Resolve
// has no side effects and is deterministic for identical inputs.
type Resolver struct {
	// ConstraintOverrides maps constraint ids to workflow-level behavior
	// overrides, consulted when the constraint has no behavior of its own.
	ConstraintOverrides map[string]models.BehaviorMap

	// Defaults is the workflow's default_behavior map.
	Defaults models.BehaviorMap
}

// FromWorkflow builds a resolver from raw workflow behavior configuration.
func FromWorkflow(defaultBehavior map[string]string, constraintBehaviors map[string]map[string]string) Resolver {
	r := Resolver{Defaults: models.ParseBehaviorMap(defaultBehavior)}
	if len(constraintBehaviors) > 0 {
		r.ConstraintOverrides = make(map[string]models.BehaviorMap, len(constraintBehaviors))
		for id, raw := range constraintBehaviors {
			if parsed := models.ParseBehaviorMap(raw); parsed != nil {
				r.ConstraintOverrides[id] = parsed
			}
		}
	}
	return r
}

// Resolve walks the lookup chain, first match wins:
//  1. the constraint's own behavior map
//  2. the workflow's per-constraint override for the constraint's id
//  3. the workflow's default_behavior map
//  4. built-in defaults
func (r Resolver) Resolve(severity models.Severity, constraint constraints.Constraint) models.Behavior {
	if b, ok := constraint.BehaviorOverrides()[severity]; ok {
		return b
	}

	if b, ok := r.ConstraintOverrides[constraint.ID][severity]; ok {
		return b
	}

	if b, ok := r.Defaults[severity]; ok {
		return b
	}

	return builtinFor(severity)
}

func builtinFor(severity models.Severity) models.Behavior {
	if b, ok := models.BuiltinBehaviors()[severity]; ok {
		return b
	}
	return models.BehaviorContinue
}
