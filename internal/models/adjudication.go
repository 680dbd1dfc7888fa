package models

// Adjudication statuses.
const (
	AdjudicationApproved = "APPROVED"
	AdjudicationRewrite  = "REWRITE"
)

// Decision values an adjudicator may assign to an individual issue.
const (
	DecisionPursue  = "PURSUE"
	DecisionDismiss = "DISMISS"
	DecisionDefer   = "DEFER"
)

// AdjudicationDecision is the adjudicator's ruling on a single issue.
type AdjudicationDecision struct {
	IssueID   string `json:"issue_id"`
	Decision  string `json:"decision"`
	Rationale string `json:"rationale,omitempty"`
}

// Adjudication is the outcome of one adjudicate step: an overall verdict
// plus per-issue decisions and the work the refiner should perform.
type Adjudication struct {
	ID        string                 `json:"id"`
	Iteration int                    `json:"iteration"`
	StepName  string                 `json:"step_name,omitempty"`
	Status    string                 `json:"status"`
	Decisions []AdjudicationDecision `json:"decisions,omitempty"`

	// BillOfWork is the adjudicator's consolidated instruction set for the
	// refine step. Empty when Status is APPROVED.
	BillOfWork string `json:"bill_of_work,omitempty"`
	Summary    string `json:"summary,omitempty"`

	CriticalPursuing int `json:"critical_pursuing"`
	HighPursuing     int `json:"high_pursuing"`
}

// Approved reports whether the adjudicator accepted the artifact as-is.
func (a Adjudication) Approved() bool {
	return a.Status == AdjudicationApproved
}

// PursuedIssueIDs returns the ids of issues the adjudicator chose to pursue.
func (a Adjudication) PursuedIssueIDs() []string {
	var ids []string
	for _, d := range a.Decisions {
		if d.Decision == DecisionPursue {
			ids = append(ids, d.IssueID)
		}
	}
	return ids
}
