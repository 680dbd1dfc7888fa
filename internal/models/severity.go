// Package models defines the core data types for the genflow engine:
// severities, behaviors, critiques, adjudications, and run records.
package models

import "strings"

// Severity is the ordinal importance of a critique issue.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// ParseSeverity normalizes a severity string. Unknown values map to HIGH,
// matching how critics report unclassified findings.
func ParseSeverity(value string) Severity {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(SeverityCritical):
		return SeverityCritical
	case string(SeverityHigh):
		return SeverityHigh
	case string(SeverityMedium):
		return SeverityMedium
	case string(SeverityLow):
		return SeverityLow
	default:
		return SeverityHigh
	}
}

// Valid reports whether the severity is one of the declared levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Severities lists all severity levels from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// Behavior is the policy action applied to an issue of a given severity.
type Behavior string

const (
	// BehaviorHalt stops the critique step and proceeds to adjudication.
	BehaviorHalt Behavior = "halt"
	// BehaviorContinue accumulates the issue and keeps running.
	BehaviorContinue Behavior = "continue"
	// BehaviorEscalate suspends the run for human input.
	BehaviorEscalate Behavior = "escalate"
	// BehaviorIgnore records the issue but excludes it from adjudication.
	BehaviorIgnore Behavior = "ignore"
)

// ParseBehavior parses a behavior string.
func ParseBehavior(value string) (Behavior, bool) {
	switch Behavior(strings.ToLower(strings.TrimSpace(value))) {
	case BehaviorHalt:
		return BehaviorHalt, true
	case BehaviorContinue:
		return BehaviorContinue, true
	case BehaviorEscalate:
		return BehaviorEscalate, true
	case BehaviorIgnore:
		return BehaviorIgnore, true
	default:
		return "", false
	}
}

// Valid reports whether the behavior is one of the declared actions.
func (b Behavior) Valid() bool {
	_, ok := ParseBehavior(string(b))
	return ok
}

// BehaviorMap maps severities to behaviors.
type BehaviorMap map[Severity]Behavior

// BuiltinBehaviors returns the engine defaults used when no override applies.
func BuiltinBehaviors() BehaviorMap {
	return BehaviorMap{
		SeverityCritical: BehaviorHalt,
		SeverityHigh:     BehaviorHalt,
		SeverityMedium:   BehaviorContinue,
		SeverityLow:      BehaviorIgnore,
	}
}

// ParseBehaviorMap converts a raw severity→behavior string map into a
// BehaviorMap. Keys are matched case-insensitively; entries with unknown
// severities or behaviors are dropped.
func ParseBehaviorMap(raw map[string]string) BehaviorMap {
	if len(raw) == 0 {
		return nil
	}
	parsed := make(BehaviorMap, len(raw))
	for key, value := range raw {
		severity := ParseSeverity(key)
		if !strings.EqualFold(key, string(severity)) {
			continue
		}
		behavior, ok := ParseBehavior(value)
		if !ok {
			continue
		}
		parsed[severity] = behavior
	}
	if len(parsed) == 0 {
		return nil
	}
	return parsed
}
