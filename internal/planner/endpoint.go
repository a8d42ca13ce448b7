package planner

import (
	"triage-agent/internal/planschema"
)

// Endpoint parameterizes the shared pipeline for one public route. The two
// routes are behaviorally identical apart from the input field name, the
// prompt wording and the next-steps pattern carried by the schema.
type Endpoint struct {
	Name         string
	Path         string
	InputField   string
	Schema       *planschema.Schema
	systemPrompt string
}

// TriageEndpoint is the /triage route: field "input", closed action-verb
// next steps.
func TriageEndpoint() Endpoint {
	return Endpoint{
		Name:         "triage",
		Path:         "/triage",
		InputField:   "input",
		Schema:       planschema.Triage(),
		systemPrompt: buildTriageSystemPrompt(),
	}
}

// PlanEndpoint is the /plan route: field "userMessage", capitalized-word
// next steps.
func PlanEndpoint() Endpoint {
	return Endpoint{
		Name:         "plan",
		Path:         "/plan",
		InputField:   "userMessage",
		Schema:       planschema.Plan(),
		systemPrompt: buildPlanSystemPrompt(),
	}
}
