package agents

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikewrather/agent-arena/internal/engine"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

// BuildGeneratorPrompt assembles the generate-step prompt. When a prior
// artifact and adjudication exist the generator is asked to rewrite against
// the bill of work instead of drafting from scratch.
func BuildGeneratorPrompt(req engine.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SYSTEM CONTEXT\nYou are a generator agent in a content-generation pipeline.\nIteration: %d\n\n", req.Iteration)
	fmt.Fprintf(&b, "GOAL\n%s\n\n", strings.TrimSpace(req.Goal))
	if req.ConstraintsSummary != "" {
		fmt.Fprintf(&b, "CONSTRAINTS\n%s\n\n", strings.TrimSpace(req.ConstraintsSummary))
	}

	if req.PriorArtifact != "" && req.PriorAdjudication != nil {
		fmt.Fprintf(&b, "PREVIOUS ARTIFACT\n%s\n\n", req.PriorArtifact)
		fmt.Fprintf(&b, "ADJUDICATION FEEDBACK\n%s\n\n", req.PriorAdjudication.BillOfWork)
		b.WriteString("INSTRUCTIONS\n" +
			"You are rewriting the previous artifact. Apply ONLY the fixes in the\n" +
			"adjudication feedback; keep the structure and intent otherwise intact.\n\n")
	} else {
		b.WriteString("INSTRUCTIONS\n" +
			"Generate complete content that satisfies the goal while adhering to\n" +
			"all constraints. This is your first draft; be thorough.\n\n")
	}

	b.WriteString("OUTPUT\nProduce ONLY the artifact content. No JSON, no commentary.")
	return b.String()
}

// BuildCriticPrompt assembles a critique-step prompt for one constraint,
// including its full rule list and the required JSON response shape.
func BuildCriticPrompt(req engine.CritiqueRequest) string {
	c := req.Constraint

	var rules strings.Builder
	for _, rule := range c.Rules {
		fmt.Fprintf(&rules, "### Rule: %s\n%s\nDefault Severity: %s\n", rule.ID, rule.Text, rule.DefaultSeverity)
		if v, ok := rule.Examples["violation"]; ok {
			fmt.Fprintf(&rules, "Example Violation: %s\n", v)
		}
		if v, ok := rule.Examples["compliant"]; ok {
			fmt.Fprintf(&rules, "Example Compliant: %s\n", v)
		}
		rules.WriteString("\n")
	}

	goal := truncate(req.Goal, 500)

	var b strings.Builder
	fmt.Fprintf(&b, "SYSTEM CONTEXT\nYou are a critic agent reviewing content for constraint: %s\nIteration: %d\n\n", c.ID, req.Iteration)
	fmt.Fprintf(&b, "CONSTRAINT: %s\nPriority: %d\n\n%s\n\n", strings.ToUpper(c.ID), c.Priority, strings.TrimSpace(c.Summary))
	fmt.Fprintf(&b, "RULES TO EVALUATE\n%s\n", rules.String())
	fmt.Fprintf(&b, "GOAL CONTEXT\n%s\n\n", goal)
	fmt.Fprintf(&b, "ARTIFACT TO REVIEW\n%s\n\n", req.Artifact)
	fmt.Fprintf(&b, `OUTPUT REQUIREMENTS
Respond with a SINGLE JSON object (no markdown, no extra text):
{
  "overall": "PASS" | "FAIL",
  "issues": [
    {
      "id": "%s-001",
      "rule_id": "rule-id-that-was-violated",
      "severity": "CRITICAL" | "HIGH" | "MEDIUM" | "LOW",
      "location": "paragraph X, sentence Y" or "section name",
      "finding": "What is wrong",
      "evidence": "Quote or reference from rules",
      "suggested_fix": "How to fix it",
      "confidence": 0.0-1.0
    }
  ],
  "summary": "Brief summary of findings"
}

EVALUATION GUIDELINES
- Only flag genuine violations, with specific locations
- Suggest concrete fixes, not vague improvements
- If no issues found, return overall: "PASS" with an empty issues array`, c.ID)
	return b.String()
}

// BuildAdjudicatorPrompt assembles the adjudicate-step prompt over the
// scope-resolved issues.
func BuildAdjudicatorPrompt(req engine.AdjudicateRequest) string {
	var issues strings.Builder
	if len(req.Issues) == 0 {
		issues.WriteString("No open issues. All critiques passed.\n")
	}
	for _, issue := range req.Issues {
		fmt.Fprintf(&issues, "- [%s] %s (%s): %s\n", issue.Severity, issue.ID, issue.ConstraintID, issue.Finding)
		if issue.SuggestedFix != "" {
			fmt.Fprintf(&issues, "  Suggested fix: %s\n", issue.SuggestedFix)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SYSTEM CONTEXT\nYou are the adjudicator in a content-generation pipeline.\nIteration: %d/%d\n\n", req.Iteration, req.MaxIterations)
	fmt.Fprintf(&b, "GOAL\n%s\n\n", strings.TrimSpace(req.Goal))
	fmt.Fprintf(&b, "ARTIFACT UNDER REVIEW\n%s\n\n", req.Artifact)
	fmt.Fprintf(&b, "OPEN ISSUES FROM CRITICS\n%s\n", issues.String())
	fmt.Fprintf(&b, `YOUR ROLE
1. Decide which issues to pursue vs dismiss
2. Produce a precise, surgical bill of work for the refiner

DECISION CRITERIA
- CRITICAL issues must be fixed
- HIGH issues should be fixed unless they conflict with higher-priority constraints
- MEDIUM/LOW issues: fix if easy, dismiss if stylistic or conflicting

OUTPUT FORMAT
Use this exact two-section format. Do NOT put bill_of_work inside the JSON.

=== ADJUDICATION ===
{
  "iteration": %d,
  "status": "REWRITE" | "APPROVED",
  "decisions": [
    {"issue_id": "constraint-001", "status": "pursuing" | "dismissed", "rationale": "why"}
  ],
  "termination": {"critical_pursuing": 0, "high_pursuing": 0},
  "summary": "one-line verdict"
}

=== BILL_OF_WORK ===
(Raw markdown with surgical find/replace edits. Use literal text from the
artifact and keep edits minimal.)

APPROVAL CRITERIA
Status is "APPROVED" only when no CRITICAL or HIGH issues are pursuing;
otherwise "REWRITE".`, req.Iteration)
	return b.String()
}

// BuildRefinerPrompt assembles the refine-step prompt. Edit mode asks for
// surgical application of the bill of work; rewrite mode allows a fuller
// reworking guided by it.
func BuildRefinerPrompt(req engine.RefineRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REFINEMENT TASK\nYou are refining an artifact based on adjudicator feedback.\nIteration: %d\n\n", req.Iteration)
	fmt.Fprintf(&b, "GOAL (for context)\n%s\n\n", strings.TrimSpace(req.Goal))
	fmt.Fprintf(&b, "CURRENT ARTIFACT\n%s\n\n", req.Artifact)
	fmt.Fprintf(&b, "BILL OF WORK\n%s\n\n", req.Adjudication.BillOfWork)

	if req.Mode == workflows.RefineRewrite {
		b.WriteString("INSTRUCTIONS\n" +
			"Rewrite the artifact so every item in the bill of work is resolved.\n" +
			"You may restructure where the feedback requires it, but preserve the\n" +
			"artifact's intent.\n\n")
	} else {
		b.WriteString("INSTRUCTIONS\n" +
			"Apply EXACTLY the changes in the bill of work, one at a time, using\n" +
			"literal text matches. Do NOT add content, restructure, or rewrite\n" +
			"sections the bill of work does not mention.\n\n")
	}

	b.WriteString("OUTPUT\nProduce ONLY the complete revised artifact content. No commentary.")
	return b.String()
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
