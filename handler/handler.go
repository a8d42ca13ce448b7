// Package handler adapts API Gateway proxy events onto the planner pipeline:
// it normalizes the inbound request, routes it to the endpoint's service and
// renders success or a classified error envelope, with CORS and request-id
// headers on every response.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"triage-agent/internal/planner"
)

const (
	// maxBodyBytes is checked against the raw body before any base64 decode
	// or JSON parse is attempted.
	maxBodyBytes = 65536

	requestIDHeader     = "X-Request-Id"
	maxDebugModelOutput = 2000
)

// PlanGenerator is the pipeline surface the handler depends on.
type PlanGenerator interface {
	Generate(ctx context.Context, text string) (json.RawMessage, error)
}

// Route binds one public path to its input field name and pipeline.
type Route struct {
	Path       string
	InputField string
	Generator  PlanGenerator
}

// Config carries operator toggles for the handler.
type Config struct {
	// DebugErrors enables the details and model_output fields on error
	// envelopes. Off by default so model internals do not leak.
	DebugErrors bool
}

type Handler struct {
	routes      map[string]Route
	debugErrors bool
}

func NewHandler(routes []Route, cfg Config) (*Handler, error) {
	if len(routes) == 0 {
		return nil, errors.New("handler: at least one route is required")
	}
	byPath := make(map[string]Route, len(routes))
	for _, r := range routes {
		if r.Path == "" || r.InputField == "" {
			return nil, errors.New("handler: route path and input field are required")
		}
		if r.Generator == nil {
			return nil, fmt.Errorf("handler: route %s has no generator", r.Path)
		}
		if _, dup := byPath[r.Path]; dup {
			return nil, fmt.Errorf("handler: duplicate route %s", r.Path)
		}
		byPath[r.Path] = r
	}
	return &Handler{routes: byPath, debugErrors: cfg.DebugErrors}, nil
}

// errorResponse is the JSON error envelope. Details and ModelOutput are
// explicit optional fields populated only under the debug toggle.
type errorResponse struct {
	Error       string `json:"error"`
	RequestID   string `json:"requestId"`
	Details     string `json:"details,omitempty"`
	ModelOutput string `json:"model_output,omitempty"`
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := headerValue(event.Headers, requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	// Pre-flight is acknowledged before routing so it succeeds regardless
	// of path or any other state.
	if event.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNoContent,
			Headers:    responseHeaders(requestID, false),
		}, nil
	}

	route, ok := h.routes[event.Path]
	if !ok {
		return h.errorEvent(event, requestID, http.StatusNotFound, errorResponse{Error: "Not found"}), nil
	}
	if event.HTTPMethod != http.MethodPost {
		return h.errorEvent(event, requestID, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"}), nil
	}
	if len(event.Body) > maxBodyBytes {
		return h.errorEvent(event, requestID, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"}), nil
	}

	text, reject := extractInputField(event, route.InputField)
	if reject != "" {
		return h.errorEvent(event, requestID, http.StatusBadRequest, errorResponse{Error: reject}), nil
	}

	out, err := route.Generator.Generate(ctx, text)
	if err != nil {
		status, envelope := h.classify(err)
		return h.errorEvent(event, requestID, status, envelope), nil
	}

	slog.Info("request completed", "path", event.Path, "status", http.StatusOK, "requestId", requestID)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    responseHeaders(requestID, true),
		Body:       string(out),
	}, nil
}

// extractInputField decodes and parses the body and pulls out the endpoint's
// text field. A non-empty second return value is the rejection message.
func extractInputField(event events.APIGatewayProxyRequest, field string) (string, string) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", "Invalid JSON body"
		}
		body = string(decoded)
	}
	if strings.TrimSpace(body) == "" {
		body = "{}"
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", "Invalid JSON body"
	}
	text, ok := payload[field].(string)
	if !ok {
		return "", fmt.Sprintf("Missing required field %q", field)
	}
	return text, ""
}

// classify maps a pipeline failure to an HTTP status and error envelope.
func (h *Handler) classify(err error) (int, errorResponse) {
	var perr *planner.Error
	if !errors.As(err, &perr) {
		envelope := errorResponse{Error: "Internal server error"}
		if h.debugErrors {
			envelope.Details = err.Error()
		}
		return http.StatusInternalServerError, envelope
	}

	envelope := errorResponse{Error: perr.Message}
	if h.debugErrors {
		if perr.Err != nil {
			envelope.Details = perr.Err.Error()
		}
		envelope.ModelOutput = truncate(perr.ModelOutput, maxDebugModelOutput)
	}
	return statusForCode(perr.Code), envelope
}

func statusForCode(code planner.ErrorCode) int {
	switch code {
	case planner.ErrorInvalidInput:
		return http.StatusBadRequest
	case planner.ErrorRateLimited:
		return http.StatusTooManyRequests
	case planner.ErrorUpstreamAuth, planner.ErrorUpstream, planner.ErrorBadModelOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) errorEvent(event events.APIGatewayProxyRequest, requestID string, status int, envelope errorResponse) events.APIGatewayProxyResponse {
	envelope.RequestID = requestID
	slog.Error("request failed",
		"path", event.Path,
		"method", event.HTTPMethod,
		"status", status,
		"error", envelope.Error,
		"requestId", requestID,
	)

	body, err := json.Marshal(envelope)
	if err != nil {
		body = []byte(`{"error":"Internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(requestID, true),
		Body:       string(body),
	}
}

// responseHeaders returns the permissive CORS header set carried by every
// response, plus the request-id echo.
func responseHeaders(requestID string, withContentType bool) map[string]string {
	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "content-type",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		requestIDHeader:                requestID,
	}
	if withContentType {
		headers["Content-Type"] = "application/json"
	}
	return headers
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
