package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"triage-agent/internal/domain"
	"triage-agent/internal/planschema"
)

const defaultMaxInputLen = 8000

// LLMClient is the completion-provider surface consumed by the pipeline.
type LLMClient interface {
	Complete(ctx context.Context, model string, messages []domain.ChatMessage, schema *planschema.Schema) (string, error)
}

// Service runs the four-stage pipeline for one endpoint: input validation,
// prompt construction, the single provider call, and structural validation
// of the model output. It holds no per-request state.
type Service struct {
	llm         LLMClient
	model       string
	endpoint    Endpoint
	maxInputLen int
}

func NewService(llm LLMClient, model string, ep Endpoint, maxInputLen int) (*Service, error) {
	if llm == nil {
		return nil, errors.New("planner: llm client must not be nil")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("planner: model must not be empty")
	}
	if ep.InputField == "" || ep.Schema == nil {
		return nil, errors.New("planner: endpoint is not fully configured")
	}
	if maxInputLen <= 0 {
		maxInputLen = defaultMaxInputLen
	}
	return &Service{
		llm:         llm,
		model:       model,
		endpoint:    ep,
		maxInputLen: maxInputLen,
	}, nil
}

// Endpoint returns the endpoint configuration this service was built for.
func (s *Service) Endpoint() Endpoint {
	return s.endpoint
}

// Generate runs the pipeline for one input text. On success the validated
// model output is returned byte-for-byte as the response body; every failure
// is a classified *Error.
func (s *Service) Generate(ctx context.Context, text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, newError(ErrorInvalidInput, "empty_input",
			fmt.Sprintf("Missing required field %q", s.endpoint.InputField), nil)
	}
	// The ceiling is defined in characters, not bytes.
	if utf8.RuneCountInString(text) > s.maxInputLen {
		return nil, newError(ErrorInvalidInput, "input_too_long",
			fmt.Sprintf("Input exceeds the maximum length of %d characters", s.maxInputLen), nil)
	}

	raw, err := s.llm.Complete(ctx, s.model, buildPromptMessages(s.endpoint, trimmed), s.endpoint.Schema)
	if err != nil {
		return nil, classifyUpstream(err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{
			Code:    ErrorBadModelOutput,
			Reason:  "empty_model_output",
			Message: "Model returned empty output",
		}
	}

	if verr := s.endpoint.Schema.Validate([]byte(raw)); verr != nil {
		return nil, &Error{
			Code:        ErrorBadModelOutput,
			Reason:      "model_output_invalid",
			Message:     verr.Error(),
			ModelOutput: raw,
			Err:         verr,
		}
	}
	return json.RawMessage(raw), nil
}
