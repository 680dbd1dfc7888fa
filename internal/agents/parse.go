package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mikewrather/agent-arena/internal/models"
)

var (
	jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	yamlFence = regexp.MustCompile("(?s)```yaml\\s*(.*?)```")
	bareFence = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

type critiqueWire struct {
	Overall string      `json:"overall" yaml:"overall"`
	Issues  []issueWire `json:"issues" yaml:"issues"`
	Summary string      `json:"summary" yaml:"summary"`
}

type issueWire struct {
	ID           string  `json:"id" yaml:"id"`
	RuleID       string  `json:"rule_id" yaml:"rule_id"`
	Severity     string  `json:"severity" yaml:"severity"`
	Location     string  `json:"location" yaml:"location"`
	Finding      string  `json:"finding" yaml:"finding"`
	Evidence     string  `json:"evidence" yaml:"evidence"`
	SuggestedFix string  `json:"suggested_fix" yaml:"suggested_fix"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
}

// ParseCritique parses a critic's JSON output, tolerating a markdown code
// fence around the object. Unparseable output degrades to an ERROR record
// with no issues instead of failing the step.
func ParseCritique(raw, reviewer, constraintID string, iteration int) models.CritiqueRecord {
	raw = strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	record := models.CritiqueRecord{
		ConstraintID: constraintID,
		Reviewer:     reviewer,
		Iteration:    iteration,
	}

	var wire critiqueWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		record.Overall = "ERROR"
		record.Summary = fmt.Sprintf("failed to parse critique: %v", err)
		return record
	}

	record.Overall = strings.ToUpper(strings.TrimSpace(wire.Overall))
	if record.Overall == "" {
		record.Overall = "PASS"
	}
	record.Summary = wire.Summary
	for i, issue := range wire.Issues {
		id := issue.ID
		if id == "" {
			id = fmt.Sprintf("%s-%03d", constraintID, i+1)
		}
		record.Issues = append(record.Issues, models.CritiqueIssue{
			ID:           id,
			RuleID:       issue.RuleID,
			ConstraintID: constraintID,
			Severity:     models.ParseSeverity(issue.Severity),
			Location:     issue.Location,
			Finding:      issue.Finding,
			Evidence:     issue.Evidence,
			SuggestedFix: issue.SuggestedFix,
			Confidence:   issue.Confidence,
		})
	}
	return record
}

type adjudicationWire struct {
	Status     string         `json:"status" yaml:"status"`
	Decisions  []decisionWire `json:"decisions" yaml:"decisions"`
	Summary    string         `json:"summary" yaml:"summary"`
	BillOfWork string         `json:"bill_of_work" yaml:"bill_of_work"`

	Termination struct {
		CriticalPursuing int `json:"critical_pursuing" yaml:"critical_pursuing"`
		HighPursuing     int `json:"high_pursuing" yaml:"high_pursuing"`
	} `json:"termination" yaml:"termination"`
}

type decisionWire struct {
	IssueID   string `json:"issue_id" yaml:"issue_id"`
	Status    string `json:"status" yaml:"status"`
	Rationale string `json:"rationale" yaml:"rationale"`
}

// ParseAdjudication parses adjudicator output. The preferred shape is the
// two-section form (structured verdict above an "=== BILL_OF_WORK ==="
// marker, raw bill of work below it); the verdict itself may be JSON or
// YAML, fenced or bare. Unparseable output degrades to an ERROR verdict.
func ParseAdjudication(raw string, iteration int) models.Adjudication {
	raw = strings.TrimSpace(raw)

	verdict, billOfWork := splitBillOfWork(raw)
	verdict = stripFence(verdict)

	adj := models.Adjudication{Iteration: iteration}

	var wire adjudicationWire
	if err := json.Unmarshal([]byte(verdict), &wire); err != nil {
		if yerr := yaml.Unmarshal([]byte(verdict), &wire); yerr != nil {
			adj.Status = "ERROR"
			adj.Summary = fmt.Sprintf("failed to parse adjudication: %v", err)
			return adj
		}
	}

	adj.Status = strings.ToUpper(strings.TrimSpace(wire.Status))
	if adj.Status == "" {
		adj.Status = models.AdjudicationRewrite
	}
	adj.Summary = wire.Summary
	adj.BillOfWork = billOfWork
	if adj.BillOfWork == "" {
		adj.BillOfWork = wire.BillOfWork
	}
	adj.CriticalPursuing = wire.Termination.CriticalPursuing
	adj.HighPursuing = wire.Termination.HighPursuing
	for _, d := range wire.Decisions {
		adj.Decisions = append(adj.Decisions, models.AdjudicationDecision{
			IssueID:   d.IssueID,
			Decision:  normalizeDecision(d.Status),
			Rationale: d.Rationale,
		})
	}
	return adj
}

func splitBillOfWork(raw string) (verdict, billOfWork string) {
	const marker = "=== BILL_OF_WORK ==="
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return raw, ""
	}
	verdict = raw[:idx]
	verdict = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(verdict), "=== ADJUDICATION ==="))
	return verdict, strings.TrimSpace(raw[idx+len(marker):])
}

func stripFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := yamlFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bareFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}

func normalizeDecision(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "dismissed", "dismiss":
		return models.DecisionDismiss
	case "deferred", "defer":
		return models.DecisionDefer
	default:
		return models.DecisionPursue
	}
}
