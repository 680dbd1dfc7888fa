package models

// Question is a single escalated item put to a human reviewer.
type Question struct {
	ID       string `json:"id"`
	IssueID  string `json:"issue_id,omitempty"`
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Answer is a human response to an escalated question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// PendingCritique is the full result of a critique step suspended on
// escalation. Persisting it lets resume replay the step without re-invoking
// any critic.
type PendingCritique struct {
	StepName          string           `json:"step_name"`
	StepIndex         int              `json:"step_index"`
	Iteration         int              `json:"iteration"`
	Records           []CritiqueRecord `json:"records"`
	Halted            bool             `json:"halted,omitempty"`
	HaltReason        string           `json:"halt_reason,omitempty"`
	EscalatedIssueIDs []string         `json:"escalated_issue_ids"`
	Questions         []Question       `json:"questions"`
}
