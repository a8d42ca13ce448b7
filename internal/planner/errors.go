package planner

import (
	"errors"
	"fmt"
	"net/http"

	"triage-agent/internal/integrations/openai"
)

type ErrorCode string

const (
	ErrorInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrorRateLimited    ErrorCode = "RATE_LIMITED"
	ErrorUpstreamAuth   ErrorCode = "UPSTREAM_AUTH_ERROR"
	ErrorUpstream       ErrorCode = "UPSTREAM_ERROR"
	ErrorBadModelOutput ErrorCode = "BAD_MODEL_OUTPUT"
	ErrorInternal       ErrorCode = "INTERNAL_ERROR"
)

// Error is the classified pipeline failure surfaced to the handler. Message
// is the user-facing text for the error envelope; Reason is the stable
// machine token used in logs; ModelOutput carries the raw model text for
// debug envelopes and is only set for upstream contract violations.
type Error struct {
	Code        ErrorCode
	Reason      string
	Message     string
	ModelOutput string
	Err         error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("planner: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("planner: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// classifyStatus maps an upstream HTTP status to an error code. Kept as a
// standalone function so the mapping table is testable without a network.
func classifyStatus(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorUpstreamAuth
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited
	default:
		return ErrorUpstream
	}
}

// classifyUpstream converts a completion-client failure into a pipeline
// Error. Credential resolution failures are server configuration errors;
// empty output is a distinct upstream contract violation; everything else is
// classified by upstream status where one is available.
func classifyUpstream(err error) *Error {
	var credErr *openai.CredentialError
	if errors.As(err, &credErr) {
		return newError(ErrorInternal, "missing_credential", "Server configuration error", err)
	}
	if errors.Is(err, openai.ErrEmptyOutput) {
		return newError(ErrorBadModelOutput, "empty_model_output", "Model returned empty output", err)
	}

	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		switch classifyStatus(statusErr.HTTPStatusCode()) {
		case ErrorUpstreamAuth:
			return newError(ErrorUpstreamAuth, "upstream_auth_error", "Upstream authentication failed", err)
		case ErrorRateLimited:
			return newError(ErrorRateLimited, "upstream_rate_limited", "Model provider rate limit exceeded", err)
		}
	}
	return newError(ErrorUpstream, "upstream_error", "Model provider request failed", err)
}
