package planner

import (
	"strings"

	"triage-agent/internal/domain"
)

// buildPromptMessages constructs the fixed two-message prompt for one
// request: the endpoint's system instruction plus a user message embedding
// the literal input text. Pure; no network and no mutation.
func buildPromptMessages(ep Endpoint, text string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: ep.systemPrompt},
		{Role: "user", Content: buildUserPrompt(text)},
	}
}

func buildTriageSystemPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are a workflow triage assistant. Given a free-text description of a",
		"workflow problem, produce a structured triage result.",
		"",
		"Output Shape:",
		outputShapeRules(),
		"",
		"Behavior Rules:",
		"1) Every next step must begin with one of the approved action verbs,",
		"   for example Define, Identify, Implement, Review, Automate or Document.",
		"2) Return raw JSON only; no markdown wrapping or code fences.",
		"3) Schema keys must not leak into string values.",
		"4) Keep items short, concrete and specific to the described problem.",
	}, "\n")
}

func buildPlanSystemPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are a remediation planning assistant. Given a free-text description of",
		"a workflow problem, produce a structured remediation plan.",
		"",
		"Output Shape:",
		outputShapeRules(),
		"",
		"Behavior Rules:",
		"1) Start each next step with an action verb.",
		"2) Return raw JSON only; no markdown wrapping or code fences.",
		"3) Schema keys must not leak into string values.",
		"4) Keep items short, concrete and specific to the described problem.",
	}, "\n")
}

// outputShapeRules enumerates the six required fields with their cardinality
// ranges. The authoritative constraints live in the planschema rule table;
// this text restates them for the model.
func outputShapeRules() string {
	return strings.Join([]string{
		"Return a JSON object with exactly these properties and no others:",
		"- problem_statement: string, a restatement of the problem in at least 10 characters",
		"- clarifying_questions: array of 3 to 5 strings",
		"- proposed_approach: array of 4 to 7 strings",
		"- recommended_tools: array of 1 to 10 strings",
		"- risks_and_privacy: array of 1 to 10 strings",
		"- next_steps: array of 4 to 7 strings, each starting with an action verb",
	}, "\n")
}

func buildUserPrompt(text string) string {
	return strings.Join([]string{
		"Workflow problem description:",
		"",
		text,
		"",
		"Respond with a single JSON object conforming exactly to the schema.",
	}, "\n")
}
