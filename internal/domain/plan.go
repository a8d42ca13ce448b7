package domain

// Plan is the six-field remediation plan returned to callers. It has no
// identity and no lifecycle: it is built from one model response, validated,
// serialized and discarded. The validator works on the raw JSON so the model
// output passes through byte-for-byte; this struct exists for construction of
// fixtures and for documentation of the contract.
type Plan struct {
	ProblemStatement    string   `json:"problem_statement"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
	ProposedApproach    []string `json:"proposed_approach"`
	RecommendedTools    []string `json:"recommended_tools"`
	RisksAndPrivacy     []string `json:"risks_and_privacy"`
	NextSteps           []string `json:"next_steps"`
}
