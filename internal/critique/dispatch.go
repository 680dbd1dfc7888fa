// Package critique executes one critique step across its selected
// constraints, serially or in parallel, and applies severity policy to
// every reported issue.
package critique

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/policy"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

// CriticFunc invokes the critique collaborator for one constraint.
type CriticFunc func(ctx context.Context, constraint constraints.Constraint) (models.CritiqueRecord, error)

// Result is the outcome of one critique step.
type Result struct {
	// Records holds one record per processed constraint, in selection
	// order. In parallel mode a failed invocation yields a record with
	// Failed set instead of aborting the step.
	Records []models.CritiqueRecord

	// Halted means a halt-resolving issue was found. Halt short-circuits
	// the serial walk; in parallel mode it only flags the outcome.
	Halted     bool
	HaltReason string

	// Escalations are issues that resolved to escalate, in record order.
	// Any escalation suspends the run for human input regardless of
	// Halted.
	Escalations []models.CritiqueIssue
}

// Escalated reports whether the step produced escalations.
func (r Result) Escalated() bool {
	return len(r.Escalations) > 0
}

// Dispatch runs the critique step over the selected constraints.
func Dispatch(
	ctx context.Context,
	step workflows.Step,
	selected []constraints.Constraint,
	invoke CriticFunc,
	resolver policy.Resolver,
	logger zerolog.Logger,
) (Result, error) {
	if step.Execution == workflows.ExecutionSerial {
		return dispatchSerial(ctx, selected, invoke, resolver, logger)
	}
	return dispatchParallel(ctx, selected, invoke, resolver, logger)
}

// dispatchSerial walks constraints one at a time. The first halt-resolving
// issue stops the walk; constraints after it are never invoked. Escalations
// accumulate without stopping the walk.
func dispatchSerial(
	ctx context.Context,
	selected []constraints.Constraint,
	invoke CriticFunc,
	resolver policy.Resolver,
	logger zerolog.Logger,
) (Result, error) {
	var result Result

	for _, constraint := range selected {
		record, err := invoke(ctx, constraint)
		if err != nil {
			return result, fmt.Errorf("critique %s: %w", constraint.ID, err)
		}
		record.ConstraintID = constraint.ID

		applyBehaviors(&record, constraint, resolver, &result, logger)
		result.Records = append(result.Records, record)

		if result.Halted {
			logger.Info().
				Str("constraint", constraint.ID).
				Str("reason", result.HaltReason).
				Msg("serial critique halted")
			break
		}
	}

	return result, nil
}

// dispatchParallel invokes every constraint concurrently and joins all
// results before applying behaviors in selection order. One failure cancels
// nothing; it becomes a failed record for its constraint.
func dispatchParallel(
	ctx context.Context,
	selected []constraints.Constraint,
	invoke CriticFunc,
	resolver policy.Resolver,
	logger zerolog.Logger,
) (Result, error) {
	type indexed struct {
		record models.CritiqueRecord
		err    error
	}

	results := make([]indexed, len(selected))
	done := make(chan int, len(selected))

	for i, constraint := range selected {
		go func(i int, constraint constraints.Constraint) {
			record, err := invoke(ctx, constraint)
			results[i] = indexed{record: record, err: err}
			done <- i
		}(i, constraint)
	}
	for range selected {
		<-done
	}

	var result Result
	for i, constraint := range selected {
		record := results[i].record
		record.ConstraintID = constraint.ID

		if err := results[i].err; err != nil {
			record.Failed = true
			record.Error = err.Error()
			record.Overall = "ERROR"
			record.Issues = nil
			logger.Warn().
				Str("constraint", constraint.ID).
				Err(err).
				Msg("critique failed, recording and continuing")
			result.Records = append(result.Records, record)
			continue
		}

		applyBehaviors(&record, constraint, resolver, &result, logger)
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// applyBehaviors resolves and annotates the behavior for each issue in the
// record, updating the step result's halt flag and escalation list.
func applyBehaviors(
	record *models.CritiqueRecord,
	constraint constraints.Constraint,
	resolver policy.Resolver,
	result *Result,
	logger zerolog.Logger,
) {
	for i := range record.Issues {
		issue := &record.Issues[i]
		issue.ConstraintID = constraint.ID
		issue.Behavior = resolver.Resolve(issue.Severity, constraint)

		logger.Debug().
			Str("constraint", constraint.ID).
			Str("issue", issue.ID).
			Str("severity", string(issue.Severity)).
			Str("behavior", string(issue.Behavior)).
			Msg("issue behavior resolved")

		switch issue.Behavior {
		case models.BehaviorHalt:
			if !result.Halted {
				result.Halted = true
				result.HaltReason = fmt.Sprintf("%s issue in %s: %s",
					issue.Severity, constraint.ID, truncate(issue.Finding, 50))
			}
		case models.BehaviorEscalate:
			result.Escalations = append(result.Escalations, *issue)
		}
	}
}

// truncate caps s at n bytes, backing off to a rune boundary so the result
// stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
