package planschema

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"triage-agent/internal/domain"
)

func validPlan() domain.Plan {
	return domain.Plan{
		ProblemStatement:    "Weekly reporting takes two full days of manual copy-paste work.",
		ClarifyingQuestions: []string{"Which tools produce the source data?", "How many people touch the report?", "Is the deadline fixed?"},
		ProposedApproach:    []string{"Inventory the data sources", "Standardize the export format", "Script the aggregation step", "Automate distribution of the final report"},
		RecommendedTools:    []string{"Google Sheets", "Zapier"},
		RisksAndPrivacy:     []string{"Source exports may contain customer PII"},
		NextSteps:           []string{"Define the current process end to end", "Implement a shared export template", "Review the draft with stakeholders", "Automate the weekly aggregation"},
	}
}

func marshalPlan(t *testing.T, p domain.Plan) []byte {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestValidate_HappyPath_BothSchemas(t *testing.T) {
	raw := marshalPlan(t, validPlan())
	require.NoError(t, Triage().Validate(raw))
	require.NoError(t, Plan().Validate(raw))
}

func TestValidate_NonJSON(t *testing.T) {
	err := Plan().Validate([]byte("Here is your plan: ..."))
	require.Error(t, err)
	require.Equal(t, "Model returned non-JSON output", err.Error())
}

func TestValidate_NonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"plan"`, `42`, `null`} {
		err := Plan().Validate([]byte(raw))
		require.Error(t, err, "raw=%s", raw)
		require.Equal(t, "Model output is not a JSON object", err.Error())
	}
}

func TestValidate_UnexpectedProperty(t *testing.T) {
	var obj map[string]any
	require.NoError(t, json.Unmarshal(marshalPlan(t, validPlan()), &obj))
	obj["confidence"] = 0.9
	raw, err := json.Marshal(obj)
	require.NoError(t, err)

	verr := Plan().Validate(raw)
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "unexpected property")
	require.Contains(t, verr.Error(), "confidence")
}

func TestValidate_MissingProperty(t *testing.T) {
	for _, missing := range []string{"problem_statement", "clarifying_questions", "next_steps"} {
		t.Run(missing, func(t *testing.T) {
			var obj map[string]any
			require.NoError(t, json.Unmarshal(marshalPlan(t, validPlan()), &obj))
			delete(obj, missing)
			raw, err := json.Marshal(obj)
			require.NoError(t, err)

			verr := Plan().Validate(raw)
			require.Error(t, verr)
			require.Contains(t, verr.Error(), "missing required property")
			require.Contains(t, verr.Error(), missing)
		})
	}
}

func TestValidate_ProblemStatement(t *testing.T) {
	p := validPlan()
	p.ProblemStatement = "   too short  "
	verr := Plan().Validate(marshalPlan(t, p))
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "problem_statement")
	require.Contains(t, verr.Error(), "10")

	raw := []byte(`{"problem_statement":7,"clarifying_questions":[],"proposed_approach":[],"recommended_tools":[],"risks_and_privacy":[],"next_steps":[]}`)
	verr = Plan().Validate(raw)
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "must be a string")
}

func TestValidate_Cardinality(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Plan)
	}{
		{"clarifying_questions too few", func(p *domain.Plan) { p.ClarifyingQuestions = p.ClarifyingQuestions[:2] }},
		{"clarifying_questions too many", func(p *domain.Plan) {
			p.ClarifyingQuestions = append(p.ClarifyingQuestions, "Extra one?", "Extra two?", "Extra three?")
		}},
		{"proposed_approach too few", func(p *domain.Plan) { p.ProposedApproach = p.ProposedApproach[:3] }},
		{"recommended_tools empty", func(p *domain.Plan) { p.RecommendedTools = []string{} }},
		{"risks_and_privacy empty", func(p *domain.Plan) { p.RisksAndPrivacy = []string{} }},
		{"next_steps too few", func(p *domain.Plan) { p.NextSteps = p.NextSteps[:3] }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPlan()
			tc.mutate(&p)
			verr := Plan().Validate(marshalPlan(t, p))
			require.Error(t, verr)
			require.Contains(t, verr.Error(), "between")
		})
	}
}

func TestValidate_ItemConstraints(t *testing.T) {
	p := validPlan()
	p.RecommendedTools = []string{"Google Sheets", " x "}
	verr := Plan().Validate(marshalPlan(t, p))
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "recommended_tools")
	require.Contains(t, verr.Error(), "item 1")

	raw := []byte(`{"problem_statement":"A long enough statement.","clarifying_questions":["Why is it slow?","Who owns it?",42],"proposed_approach":["Step one ok","Step two ok","Step three ok","Step four ok"],"recommended_tools":["Sheets"],"risks_and_privacy":["PII exposure risk"],"next_steps":["Define it","Implement it","Review it","Automate it"]}`)
	verr = Plan().Validate(raw)
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "clarifying_questions")
	require.Contains(t, verr.Error(), "must be a string")
}

func TestValidate_MinLengthCountsCharacters(t *testing.T) {
	p := validPlan()
	p.ProblemStatement = "工作流程审批太慢了" // 9 characters, 27 bytes
	verr := Plan().Validate(marshalPlan(t, p))
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "problem_statement")

	p.ProblemStatement = "工作流程的审批太慢了" // 10 characters
	require.NoError(t, Plan().Validate(marshalPlan(t, p)))

	p.RecommendedTools = []string{"表"} // 1 character, 3 bytes
	verr = Plan().Validate(marshalPlan(t, p))
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "recommended_tools")

	p.RecommendedTools = []string{"表格"} // 2 characters
	require.NoError(t, Plan().Validate(marshalPlan(t, p)))
}

func TestValidate_NextStepsPattern_PlanVariant(t *testing.T) {
	p := validPlan()
	p.NextSteps = []string{"1. Define the scope", "- Review with the team", "2) Draft the rollout", "Implement monitoring"}
	require.NoError(t, Plan().Validate(marshalPlan(t, p)))

	p.NextSteps = []string{"Define the scope", "review with the team", "Draft the rollout", "Implement monitoring"}
	verr := Plan().Validate(marshalPlan(t, p))
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "next_steps")
	require.Contains(t, verr.Error(), "item 1")
}

func TestValidate_NextStepsPattern_TriageVariant(t *testing.T) {
	p := validPlan()
	// Capitalized but not on the approved verb list.
	p.NextSteps = []string{"Define the scope", "Consider a new tool", "Review with the team", "Automate the export"}
	verr := Triage().Validate(marshalPlan(t, p))
	require.Error(t, verr)
	require.Contains(t, verr.Error(), "item 1")
	require.Contains(t, verr.Error(), "action verb")

	// The same output satisfies the looser plan pattern.
	require.NoError(t, Plan().Validate(marshalPlan(t, p)))

	p.NextSteps = []string{"1. Define the scope", "Implement a template", "Review with the team", "Automate the export"}
	require.NoError(t, Triage().Validate(marshalPlan(t, p)))
}

func TestValidate_Idempotent(t *testing.T) {
	raw := marshalPlan(t, validPlan())
	require.NoError(t, Triage().Validate(raw))

	// Re-serialize and validate again; verdict must not change.
	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	again, err := json.Marshal(obj)
	require.NoError(t, err)
	require.NoError(t, Triage().Validate(again))
	require.NoError(t, Triage().Validate(again))
}

func TestDescriptor_MatchesRuleTable(t *testing.T) {
	var def struct {
		Type                 string         `json:"type"`
		AdditionalProperties bool           `json:"additionalProperties"`
		Required             []string       `json:"required"`
		Properties           map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(Triage().JSON(), &def))
	require.Equal(t, "object", def.Type)
	require.False(t, def.AdditionalProperties)
	require.Equal(t, []string{"problem_statement", "clarifying_questions", "proposed_approach", "recommended_tools", "risks_and_privacy", "next_steps"}, def.Required)
	require.Len(t, def.Properties, 6)

	ns := def.Properties["next_steps"].(map[string]any)
	require.Equal(t, float64(4), ns["minItems"])
	require.Equal(t, float64(7), ns["maxItems"])
	item := ns["items"].(map[string]any)
	require.NotEmpty(t, item["pattern"])
}

func TestDescriptor_PatternsDifferPerEndpoint(t *testing.T) {
	require.NotEqual(t, string(Triage().JSON()), string(Plan().JSON()))
	require.Equal(t, "triage_result", Triage().Name())
	require.Equal(t, "remediation_plan", Plan().Name())
}

func TestStepPatterns(t *testing.T) {
	cases := []struct {
		step   string
		triage bool
		plan   bool
	}{
		{"Define the intake process", true, true},
		{"1. Implement the template", true, true},
		{"- Automate the export", true, true},
		{"Consider a new tool", false, true},
		{"define the intake process", false, false},
		{"  3) Review access logs", true, true},
		{"Defines nothing", false, true}, // prefix match on verb list requires a word boundary
	}
	for i, tc := range cases {
		require.Equal(t, tc.triage, actionVerbStepPattern.MatchString(tc.step), fmt.Sprintf("case %d triage: %s", i, tc.step))
		require.Equal(t, tc.plan, capitalizedStepPattern.MatchString(tc.step), fmt.Sprintf("case %d plan: %s", i, tc.step))
	}
}
