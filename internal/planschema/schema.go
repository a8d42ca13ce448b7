// Package planschema holds the single declarative rule table for the
// six-field plan contract. The same table drives both artifacts that must
// stay in sync: the json_schema descriptor sent to the completion provider
// and the in-process structural re-validation of whatever the provider
// actually returns.
package planschema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const nextStepsField = "next_steps"

// stepPrefix allows an optional numbering or bullet marker before the first
// word of a next-steps item, e.g. "1. Define ..." or "- Review ...".
const stepPrefix = `\s*(?:(?:\d+[.)]|[-*•])\s*)?`

// triageActionVerbs is the closed list of first words accepted for triage
// next steps. The plan endpoint uses the looser capitalized-word rule
// instead; the divergence is intentional per-endpoint configuration.
var triageActionVerbs = []string{
	"Define", "Identify", "Implement", "Review", "Automate", "Document",
	"Map", "Audit", "Schedule", "Create", "Set", "Collect", "Measure",
	"Pilot", "Test", "Train", "Assign", "Draft", "Evaluate", "Prioritize",
}

var (
	capitalizedStepPattern = regexp.MustCompile(`^` + stepPrefix + `[A-Z][A-Za-z]*\b`)
	actionVerbStepPattern  = regexp.MustCompile(`^` + stepPrefix + `(?:` + strings.Join(triageActionVerbs, "|") + `)\b`)
)

// fieldRule is one row of the contract table. minLen applies to the trimmed
// value for the string field and to each trimmed item for array fields.
type fieldRule struct {
	name     string
	array    bool
	minItems int
	maxItems int
	minLen   int
}

// fieldRules lists the six required properties in validation order.
var fieldRules = []fieldRule{
	{name: "problem_statement", minLen: 10},
	{name: "clarifying_questions", array: true, minItems: 3, maxItems: 5, minLen: 5},
	{name: "proposed_approach", array: true, minItems: 4, maxItems: 7, minLen: 5},
	{name: "recommended_tools", array: true, minItems: 1, maxItems: 10, minLen: 2},
	{name: "risks_and_privacy", array: true, minItems: 1, maxItems: 10, minLen: 5},
	{name: nextStepsField, array: true, minItems: 4, maxItems: 7, minLen: 3},
}

// Schema is the plan contract for one endpoint. The only per-endpoint
// variation is the next-steps pattern.
type Schema struct {
	name        string
	stepPattern *regexp.Regexp
	stepHint    string
	descriptor  json.RawMessage
}

// Triage returns the schema for the triage endpoint: next steps must begin
// with one of the approved action verbs.
func Triage() *Schema {
	return newSchema("triage_result", actionVerbStepPattern,
		"must begin with an approved action verb such as Define, Implement, Review or Automate")
}

// Plan returns the schema for the plan endpoint: next steps must begin,
// optionally after a numbering or bullet prefix, with a capitalized word.
func Plan() *Schema {
	return newSchema("remediation_plan", capitalizedStepPattern,
		"must begin with a capitalized action verb")
}

func newSchema(name string, stepPattern *regexp.Regexp, stepHint string) *Schema {
	s := &Schema{name: name, stepPattern: stepPattern, stepHint: stepHint}
	raw, err := json.Marshal(s.definition())
	if err != nil {
		// The definition is built from static literals; this cannot fail.
		panic(fmt.Sprintf("planschema: marshal %s definition: %v", name, err))
	}
	s.descriptor = raw
	return s
}

// Name is the schema name announced to the provider in response_format.
func (s *Schema) Name() string {
	return s.name
}

// JSON returns the json_schema descriptor for the provider request.
func (s *Schema) JSON() json.RawMessage {
	return s.descriptor
}

// definition builds the JSON-schema document from the rule table.
func (s *Schema) definition() map[string]any {
	props := make(map[string]any, len(fieldRules))
	required := make([]string, 0, len(fieldRules))
	for _, f := range fieldRules {
		if f.array {
			item := map[string]any{"type": "string", "minLength": f.minLen}
			if f.name == nextStepsField {
				item["pattern"] = s.stepPattern.String()
				item["description"] = "Next step; " + s.stepHint
			}
			props[f.name] = map[string]any{
				"type":     "array",
				"minItems": f.minItems,
				"maxItems": f.maxItems,
				"items":    item,
			}
		} else {
			props[f.name] = map[string]any{"type": "string", "minLength": f.minLen}
		}
		required = append(required, f.name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}
