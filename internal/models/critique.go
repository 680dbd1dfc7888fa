package models

// CritiqueIssue is a single finding reported by a critic agent.
type CritiqueIssue struct {
	ID           string   `json:"id"`
	RuleID       string   `json:"rule_id,omitempty"`
	ConstraintID string   `json:"constraint_id,omitempty"`
	Severity     Severity `json:"severity"`
	Location     string   `json:"location,omitempty"`
	Finding      string   `json:"finding"`
	Evidence     string   `json:"evidence,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`

	// Behavior is the resolved policy action for this issue, annotated by
	// the critique dispatcher. Issues with BehaviorIgnore stay in the record
	// for audit but are excluded from adjudication.
	Behavior Behavior `json:"behavior,omitempty"`
}

// CritiqueRecord groups the issues one critic produced for one constraint
// within a single critique step invocation.
type CritiqueRecord struct {
	ID           string          `json:"id"`
	ConstraintID string          `json:"constraint_id"`
	Reviewer     string          `json:"reviewer"`
	StepName     string          `json:"step_name,omitempty"`
	Iteration    int             `json:"iteration"`
	Overall      string          `json:"overall"` // PASS, FAIL, or ERROR
	Issues       []CritiqueIssue `json:"issues"`
	Summary      string          `json:"summary,omitempty"`

	// Failed marks a record whose critic invocation failed; Error carries
	// the failure detail. Failed records are kept in selection order so the
	// step result stays deterministic.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ActionableIssues returns the record's issues excluding ignored ones.
// Failed records contribute nothing.
func (r CritiqueRecord) ActionableIssues() []CritiqueIssue {
	if r.Failed {
		return nil
	}
	issues := make([]CritiqueIssue, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if issue.Behavior == BehaviorIgnore {
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}
